package repository

import (
	"context"

	"ecapp/internal/domain/model"
)

type CategoryListQuery struct {
	Page   int
	Limit  int
	Search string
	Status string
}

type CategoryRepository interface {
	List(ctx context.Context, q CategoryListQuery) ([]model.Category, int64, error)
	ListByStatus(ctx context.Context, status model.CategoryStatus) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	// 削除処理中に他の更新と競合しないようロックして取る
	FindByIDForUpdate(ctx context.Context, id int64) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	Delete(ctx context.Context, id int64) error
}
