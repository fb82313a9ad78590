package repository

import (
	"context"
	"time"

	"ecapp/internal/domain/model"
)

// 管理画面の監査ログ一覧の条件。空/nilは絞り込まない
type AuditLogListFilter struct {
	Page         int
	Limit        int
	ActorUserID  *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	From         *time.Time
	To           *time.Time
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error

	// 新しい順。totalは絞り込み後の件数
	List(ctx context.Context, f AuditLogListFilter) ([]model.AuditLog, int64, error)
}
