package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ecapp/internal/authz"
	"ecapp/internal/domain/model"
	repo "ecapp/internal/repository"

	"go.uber.org/zap"
)

type CategoryDeleteAction string

const (
	CategoryDeleteEmpty           CategoryDeleteAction = "delete_empty"
	CategoryDeleteCascadeInactive CategoryDeleteAction = "cascade_inactive"
	CategoryDeleteReassign        CategoryDeleteAction = "reassign"
	CategoryDeleteForce           CategoryDeleteAction = "force"
)

type CategoryDeleteRequest struct {
	ReassignTo *int64
	Force      bool
}

type CategoryDeletionPlan struct {
	Action       CategoryDeleteAction
	ProductCount int64
	ReassignTo   int64
}

// 削除方法を決める。DBには触らない
func ResolveCategoryDeletion(c model.Category, linked int64, req CategoryDeleteRequest) (CategoryDeletionPlan, error) {
	plan := CategoryDeletionPlan{ProductCount: linked}

	switch {
	case linked == 0:
		plan.Action = CategoryDeleteEmpty
	case c.Status == model.CategoryStatusInactive:
		plan.Action = CategoryDeleteCascadeInactive
	case req.ReassignTo != nil:
		if *req.ReassignTo == c.ID {
			return CategoryDeletionPlan{}, NewHTTPErrorWithDetails(http.StatusBadRequest,
				"cannot reassign products to the category being deleted",
				map[string]any{"reassign_to": *req.ReassignTo})
		}
		if *req.ReassignTo <= 0 {
			return CategoryDeletionPlan{}, NewHTTPError(http.StatusBadRequest, "invalid reassign_to")
		}
		plan.Action = CategoryDeleteReassign
		plan.ReassignTo = *req.ReassignTo
	case req.Force:
		plan.Action = CategoryDeleteForce
	default:
		return CategoryDeletionPlan{}, NewHTTPErrorWithDetails(http.StatusBadRequest,
			"category still has products",
			map[string]any{
				"product_count": linked,
				"hint":          "set reassign_to to move the products, or force=true to delete them",
			})
	}
	return plan, nil
}

type CategoryUsecase struct {
	tx         repo.TransactionManager
	categories repo.CategoryRepository
	log        *zap.Logger
}

func NewCategoryUsecase(tx repo.TransactionManager, categories repo.CategoryRepository, log *zap.Logger) *CategoryUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &CategoryUsecase{tx: tx, categories: categories, log: log}
}

type CategoryInput struct {
	Name        string
	Description string
	Status      string
}

type CategoryListOutput struct {
	Items []model.Category `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

type CategoryDeleteOutput struct {
	Action          CategoryDeleteAction `json:"action"`
	CategoryID      int64                `json:"category_id"`
	ProductCount    int64                `json:"product_count"`
	ReassignedTo    *int64               `json:"reassigned_to,omitempty"`
	ProductsMoved   int64                `json:"products_moved"`
	ProductsDeleted int64                `json:"products_deleted"`
}

func (u *CategoryUsecase) List(ctx context.Context, q repo.CategoryListQuery) (CategoryListOutput, error) {
	if q.Page < 1 {
		return CategoryListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if q.Limit < 1 || q.Limit > 100 {
		return CategoryListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if q.Status != "" && !model.CategoryStatus(q.Status).Valid() {
		return CategoryListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	q.Search = strings.TrimSpace(q.Search)

	items, total, err := u.categories.List(ctx, q)
	if err != nil {
		return CategoryListOutput{}, errDB(err)
	}
	return CategoryListOutput{Items: items, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

func (u *CategoryUsecase) ListActive(ctx context.Context) ([]model.Category, error) {
	items, err := u.categories.ListByStatus(ctx, model.CategoryStatusActive)
	if err != nil {
		return nil, errDB(err)
	}
	return items, nil
}

func (u *CategoryUsecase) Get(ctx context.Context, id int64) (model.Category, error) {
	if id <= 0 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	c, err := u.categories.FindByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Category{}, errDB(err)
	}
	return c, nil
}

func (u *CategoryUsecase) Create(ctx context.Context, p authz.Principal, in CategoryInput) (model.Category, error) {
	if err := requireAdmin(p); err != nil {
		return model.Category{}, err
	}
	c, err := normalizeCategory(in)
	if err != nil {
		return model.Category{}, err
	}

	created, err := u.categories.Create(ctx, c)
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Category{}, NewHTTPError(http.StatusConflict, "category name already exists")
	}
	if err != nil {
		return model.Category{}, errDB(err)
	}
	return created, nil
}

func (u *CategoryUsecase) Update(ctx context.Context, p authz.Principal, id int64, in CategoryInput) (model.Category, error) {
	if err := requireAdmin(p); err != nil {
		return model.Category{}, err
	}
	current, err := u.Get(ctx, id)
	if err != nil {
		return model.Category{}, err
	}
	if strings.TrimSpace(in.Status) == "" {
		in.Status = string(current.Status)
	}
	c, err := normalizeCategory(in)
	if err != nil {
		return model.Category{}, err
	}
	c.ID = id

	err = u.categories.Update(ctx, c)
	if errors.Is(err, repo.ErrDuplicate) {
		return model.Category{}, NewHTTPError(http.StatusConflict, "category name already exists")
	}
	if errors.Is(err, repo.ErrNotFound) {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Category{}, errDB(err)
	}
	return u.Get(ctx, id)
}

// active <-> inactive
func (u *CategoryUsecase) ToggleStatus(ctx context.Context, p authz.Principal, id int64) (model.Category, error) {
	if err := requireAdmin(p); err != nil {
		return model.Category{}, err
	}
	c, err := u.Get(ctx, id)
	if err != nil {
		return model.Category{}, err
	}

	if c.Status == model.CategoryStatusActive {
		c.Status = model.CategoryStatusInactive
	} else {
		c.Status = model.CategoryStatusActive
	}
	if err := u.categories.Update(ctx, c); err != nil {
		return model.Category{}, passOrDB(err)
	}
	return c, nil
}

// 削除方針の決定から実行・監査ログまで1トランザクション
func (u *CategoryUsecase) Delete(ctx context.Context, p authz.Principal, id int64, req CategoryDeleteRequest) (CategoryDeleteOutput, error) {
	if err := requireAdmin(p); err != nil {
		return CategoryDeleteOutput{}, err
	}
	if id <= 0 {
		return CategoryDeleteOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out CategoryDeleteOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Categories().FindByIDForUpdate(ctx, id)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB(err)
		}

		linked, err := r.ProductLinks().CountByCategory(ctx, id)
		if err != nil {
			return errDB(err)
		}

		plan, err := ResolveCategoryDeletion(c, linked, req)
		if err != nil {
			return err
		}
		out = CategoryDeleteOutput{Action: plan.Action, CategoryID: id, ProductCount: linked}

		switch plan.Action {
		case CategoryDeleteReassign:
			if _, err := r.Categories().FindByID(ctx, plan.ReassignTo); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return NewHTTPErrorWithDetails(http.StatusBadRequest, "reassign target not found",
						map[string]any{"reassign_to": plan.ReassignTo})
				}
				return errDB(err)
			}
			moved, err := r.ProductLinks().ReassignCategory(ctx, id, plan.ReassignTo)
			if err != nil {
				return errDB(err)
			}
			target := plan.ReassignTo
			out.ReassignedTo = &target
			out.ProductsMoved = moved
		case CategoryDeleteCascadeInactive, CategoryDeleteForce:
			deleted, err := r.ProductLinks().DeleteByCategory(ctx, id)
			if err != nil {
				return errDB(err)
			}
			out.ProductsDeleted = deleted
		}

		if err := r.Categories().Delete(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "not found")
			}
			return errDB(err)
		}

		beforeJSON, _ := json.Marshal(map[string]any{"name": c.Name, "status": c.Status, "product_count": linked})
		afterJSON, _ := json.Marshal(out)
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  p.UserID,
			Action:       model.AuditActionDeleteCategory,
			ResourceType: model.AuditResourceCategory,
			ResourceID:   id,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    time.Now(),
		}); err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return CategoryDeleteOutput{}, err
	}

	u.log.Info("category deleted",
		zap.Int64("category_id", id),
		zap.String("action", string(out.Action)),
		zap.Int64("product_count", out.ProductCount),
		zap.Int64("actor_user_id", p.UserID),
	)
	return out, nil
}

func normalizeCategory(in CategoryInput) (model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if len(name) > 255 {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "name too long")
	}

	status := model.CategoryStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if status == "" {
		status = model.CategoryStatusActive
	}
	if !status.Valid() {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	return model.Category{Name: name, Description: strings.TrimSpace(in.Description), Status: status}, nil
}
