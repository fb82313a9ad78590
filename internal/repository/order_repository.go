package repository

import (
	"context"
	"time"

	"ecapp/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page          int
	Limit         int
	Q             string
	Status        string
	PaymentStatus string
	PaymentMethod string
	UserID        *int64
	From          *time.Time
	To            *time.Time
}

// 決済まわりの更新。空の値は更新しない
type PaymentUpdate struct {
	Status           model.PaymentStatus
	GatewayOrderID   string
	GatewayRequestID string
	GatewayTransID   string
}

type OrderStats struct {
	TotalOrders  int64                       `json:"total_orders"`
	ByStatus     map[model.OrderStatus]int64 `json:"by_status"`
	TotalRevenue int64                       `json:"total_revenue"`
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// ステータス変更の前に行ロック
	FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error)
	FindByGatewayOrderIDForUpdate(ctx context.Context, gatewayOrderID string) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	Create(ctx context.Context, order model.Order) (int64, error)
	UpdateOrderCode(ctx context.Context, orderID int64, code string) error
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error
	UpdatePayment(ctx context.Context, orderID int64, u PaymentUpdate) error

	Stats(ctx context.Context) (OrderStats, error)
}
