package model

import (
	"strings"
	"time"
)

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  *int64 `gorm:"index" json:"category_id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Price       int64  `gorm:"not null;check:chk_products_price,price >= 0" json:"price"`
	// 在庫は0未満にならない
	Stock int64 `gorm:"not null;default:0;check:chk_products_stock,stock >= 0" json:"stock"`
	// 配達済みの累計数量
	SoldCount int64            `gorm:"not null;default:0;check:chk_products_sold_count,sold_count >= 0" json:"sold_count"`
	Unit      string           `gorm:"type:varchar(50)" json:"unit"`
	IsActive  bool             `gorm:"not null;default:true" json:"is_active"`
	Variants  []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants"`
	Category  *Category        `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"-"`
	CreatedAt time.Time        `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// サイズ別の在庫と価格
type ProductVariant struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;uniqueIndex:idx_variant_product_size" json:"product_id"`
	Size      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_variant_product_size" json:"size"`
	Price     int64     `gorm:"not null;check:chk_variants_price,price >= 0" json:"price"`
	Stock     int64     `gorm:"not null;default:0;check:chk_variants_stock,stock >= 0" json:"stock"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// unitに一致するサイズを探す（大文字小文字は区別しない）
func (p Product) VariantBySize(unit string) (ProductVariant, bool) {
	u := strings.TrimSpace(unit)
	for _, v := range p.Variants {
		if strings.EqualFold(strings.TrimSpace(v.Size), u) {
			return v, true
		}
	}
	return ProductVariant{}, false
}
