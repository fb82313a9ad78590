package model

import (
	"fmt"
	"time"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusShipping  OrderStatus = "shipping"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var AllOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipping,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, v := range AllOrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCOD     PaymentMethod = "cod"
	PaymentMethodMoMo    PaymentMethod = "momo"
	PaymentMethodVNPay   PaymentMethod = "vnpay"
	PaymentMethodBanking PaymentMethod = "banking"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCOD, PaymentMethodMoMo, PaymentMethodVNPay, PaymentMethodBanking:
		return true
	}
	return false
}

// リダイレクト＋署名付きコールバックが必要な決済
func (m PaymentMethod) UsesGateway() bool {
	return m == PaymentMethodMoMo
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// 送料無料になる小計
const FreeShippingThreshold int64 = 500000

// 一律の送料
const FlatShippingFee int64 = 30000

func ShippingFeeFor(subtotal int64) int64 {
	if subtotal >= FreeShippingThreshold {
		return 0
	}
	return FlatShippingFee
}

// 採番済みIDから注文コードを作る
func OrderCodeFor(id int64) string {
	return fmt.Sprintf("ORD%08d", id)
}

type Order struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64       `gorm:"not null;index" json:"user_id"`
	OrderCode string      `gorm:"type:varchar(50);not null;uniqueIndex" json:"order_code"`
	Status    OrderStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	// 注文時点の顧客情報
	FullName string `gorm:"type:varchar(255);not null" json:"full_name"`
	Phone    string `gorm:"type:varchar(20);not null" json:"phone"`
	Email    string `gorm:"type:varchar(255);not null" json:"email"`
	Address  string `gorm:"type:text;not null" json:"address"`
	City     string `gorm:"type:varchar(100);not null" json:"city"`
	District string `gorm:"type:varchar(100);not null" json:"district"`
	Note     string `gorm:"type:text" json:"note"`

	PaymentMethod PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"payment_status"`

	// 作成時に確定して以後変えない
	Subtotal    int64 `gorm:"not null;check:chk_orders_subtotal,subtotal >= 0" json:"subtotal"`
	ShippingFee int64 `gorm:"not null;default:0;check:chk_orders_shipping_fee,shipping_fee >= 0" json:"shipping_fee"`
	TotalAmount int64 `gorm:"not null;check:chk_orders_total_amount,total_amount >= 0" json:"total_amount"`

	// MoMoとの突き合わせ用
	GatewayOrderID   string `gorm:"type:varchar(100);index" json:"gateway_order_id,omitempty"`
	GatewayRequestID string `gorm:"type:varchar(100)" json:"gateway_request_id,omitempty"`
	GatewayTransID   string `gorm:"type:varchar(100)" json:"gateway_trans_id,omitempty"`

	Items     []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt time.Time   `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
