package model

import "time"

// 注文時点の商品情報を凍結して保存する。商品が消えても残る。
type OrderItem struct {
	ID                  int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID             int64     `gorm:"not null;index" json:"order_id"`
	ProductID           *int64    `gorm:"index" json:"product_id"`
	ProductNameSnapshot string    `gorm:"type:varchar(255);not null" json:"product_name"`
	UnitPriceSnapshot   int64     `gorm:"not null" json:"product_price"`
	Unit                string    `gorm:"type:varchar(50);not null;default:''" json:"unit"`
	Quantity            int64     `gorm:"not null;check:chk_order_items_quantity,quantity > 0" json:"quantity"`
	Product             *Product  `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL" json:"-"`
	CreatedAt           time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (i OrderItem) LineTotal() int64 {
	return i.UnitPriceSnapshot * i.Quantity
}
