package repository

import (
	"context"
	"errors"

	"ecapp/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 一意制約違反
var ErrDuplicate = errors.New("duplicate key")

// 参照先が存在しない（FK違反）
var ErrInvalidReference = errors.New("invalid reference")

// 一覧検索
type ProductListQuery struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	MinPrice   *int64
	MaxPrice   *int64
	Sort       string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	// variantsも一緒に返す
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	ReplaceVariants(ctx context.Context, productID int64, variants []model.ProductVariant) error
	Delete(ctx context.Context, id int64) error

	// sold_count += qty（配達済みになった時だけ）
	IncrementSoldCount(ctx context.Context, productID int64, qty int64) error
	LockSoldCounts(ctx context.Context) (map[int64]int64, error)
	SetSoldCount(ctx context.Context, productID int64, soldCount int64) error
}

// カテゴリ削除がProductに触るための狭い窓口
type CategoryProductLinker interface {
	CountByCategory(ctx context.Context, categoryID int64) (int64, error)
	ReassignCategory(ctx context.Context, fromCategoryID int64, toCategoryID int64) (int64, error)
	DeleteByCategory(ctx context.Context, categoryID int64) (int64, error)
}
