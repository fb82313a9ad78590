package usecase

import (
	"context"
	"net/http"
	"strings"

	"ecapp/internal/authz"
	"ecapp/internal/domain/model"
	repo "ecapp/internal/repository"
)

// 在庫・注文ステータス・カテゴリ削除・sold_count再計算で書かれたログを見る
type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

func (u *AuditLogUsecase) List(ctx context.Context, p authz.Principal, f repo.AuditLogListFilter) (AuditLogListOutput, error) {
	if err := requireAdmin(p); err != nil {
		return AuditLogListOutput{}, err
	}
	if f.Page < 1 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	// 大文字小文字はどちらでも受ける
	f.Action = strings.ToUpper(strings.TrimSpace(f.Action))
	if f.Action != "" && !model.AuditAction(f.Action).Valid() {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid action")
	}
	f.ResourceType = strings.ToLower(strings.TrimSpace(f.ResourceType))
	if f.ResourceType != "" && !model.AuditResourceType(f.ResourceType).Valid() {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid resource_type")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be <= to")
	}

	logs, total, err := u.logs.List(ctx, f)
	if err != nil {
		return AuditLogListOutput{}, errDB(err)
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return AuditLogListOutput{Items: logs, Total: total, Page: f.Page, Limit: f.Limit}, nil
}
