package repository

import (
	"context"
	"strings"

	"ecapp/internal/domain/model"
	repo "ecapp/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

func preloadVariants(tx *gorm.DB) *gorm.DB {
	return tx.Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("id asc")
	})
}

// 公開商品のみを、カテゴリ/検索/価格帯/ソート/ページング付きで返す。
func (r *ProductGormRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Product{}).Where("is_active = ?", true)

	if q.CategoryID != nil {
		tx = tx.Where("category_id = ?", *q.CategoryID)
	}

	// q nameを対象
	if s := strings.TrimSpace(q.Q); s != "" {
		tx = tx.Where("name ILIKE ?", "%"+s+"%")
	}

	//価格帯
	if q.MinPrice != nil {
		tx = tx.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		tx = tx.Where("price <= ?", *q.MaxPrice)
	}

	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	switch q.Sort {
	case "price_asc":
		tx = tx.Order("price asc").Order("id asc")
	case "price_desc":
		tx = tx.Order("price desc").Order("id desc")
	case "best_selling":
		tx = tx.Order("sold_count desc").Order("id desc")
	default:
		tx = tx.Order("created_at desc").Order("id desc")
	}

	offset := (q.Page - 1) * q.Limit
	if err := preloadVariants(tx).Offset(offset).Limit(q.Limit).Find(&products).Error; err != nil {
		return []model.Product{}, 0, err
	}

	return products, total, nil
}

// IDで商品を取得（variants付き）
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	if err := preloadVariants(r.db.WithContext(ctx)).First(&p, id).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

// 商品の作成（variantsも同時に作る）
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return model.Product{}, translate(err)
	}
	return p, nil
}

// 商品の更新。在庫とsold_countはここでは触らない
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) error {
	res := r.db.WithContext(ctx).Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
		"category_id": p.CategoryID,
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"unit":        p.Unit,
		"is_active":   p.IsActive,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// variantsを丸ごと入れ替える
func (r *ProductGormRepository) ReplaceVariants(ctx context.Context, productID int64, variants []model.ProductVariant) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("product_id = ?", productID).Delete(&model.ProductVariant{}).Error; err != nil {
		return err
	}
	if len(variants) == 0 {
		return nil
	}
	for i := range variants {
		variants[i].ID = 0
		variants[i].ProductID = productID
	}
	return translate(db.Create(&variants).Error)
}

// 商品削除。order_itemsはFKでNULLになりスナップショットだけ残る
func (r *ProductGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ProductGormRepository) IncrementSoldCount(ctx context.Context, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		UpdateColumn("sold_count", gorm.Expr("sold_count + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 全商品の行をid順にロックして読む。集計中に加算が割り込まないように
func (r *ProductGormRepository) LockSoldCounts(ctx context.Context) (map[int64]int64, error) {
	var rows []struct {
		ID        int64
		SoldCount int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id, sold_count").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[int64]int64, len(rows))
	for _, row := range rows {
		out[row.ID] = row.SoldCount
	}
	return out, nil
}

func (r *ProductGormRepository) SetSoldCount(ctx context.Context, productID int64, soldCount int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("id = ?", productID).
		UpdateColumn("sold_count", soldCount)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// カテゴリに紐づく商品数
func (r *ProductGormRepository) CountByCategory(ctx context.Context, categoryID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

// 紐づく商品を別カテゴリへ一括で付け替える
func (r *ProductGormRepository) ReassignCategory(ctx context.Context, fromCategoryID int64, toCategoryID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Product{}).
		Where("category_id = ?", fromCategoryID).
		Update("category_id", toCategoryID)
	return res.RowsAffected, res.Error
}

// 紐づく商品をまとめて削除
func (r *ProductGormRepository) DeleteByCategory(ctx context.Context, categoryID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("category_id = ?", categoryID).Delete(&model.Product{})
	return res.RowsAffected, res.Error
}
