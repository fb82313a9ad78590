package model

import "time"

type InventoryReason string

const (
	InventoryReasonOrderPlaced   InventoryReason = "order_placed"
	InventoryReasonOrderCanceled InventoryReason = "order_canceled"
	InventoryReasonAdminSet      InventoryReason = "admin_set"
)

// 在庫の増減履歴（台帳）
type InventoryAdjustment struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64           `gorm:"not null;index" json:"product_id"`
	Unit        string          `gorm:"type:varchar(50);not null;default:''" json:"unit"`
	OrderID     *int64          `gorm:"index" json:"order_id"`
	ActorUserID int64           `gorm:"not null;index" json:"actor_user_id"`
	Delta       int64           `gorm:"not null" json:"delta"`
	StockBefore int64           `gorm:"not null" json:"stock_before"`
	StockAfter  int64           `gorm:"not null" json:"stock_after"`
	Reason      InventoryReason `gorm:"type:varchar(50);not null" json:"reason"`
	Note        string          `gorm:"type:varchar(255)" json:"note"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
