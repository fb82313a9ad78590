package model

import "time"

// カートの明細
// (cart, product, unit) は一意。追加時点の価格を保存。
type CartItem struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID            int64     `gorm:"not null;uniqueIndex:idx_cart_product_unit" json:"cart_id"`
	ProductID         int64     `gorm:"not null;uniqueIndex:idx_cart_product_unit;index" json:"product_id"`
	Unit              string    `gorm:"type:varchar(50);not null;default:'';uniqueIndex:idx_cart_product_unit" json:"unit"`
	Quantity          int64     `gorm:"not null;check:chk_cart_items_quantity,quantity > 0" json:"quantity"`
	UnitPriceSnapshot int64     `gorm:"not null;column:unit_price_snapshot" json:"unit_price_snapshot"`
	Product           *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
