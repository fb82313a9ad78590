package repository

import (
	"context"

	"ecapp/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
	// 配達済み注文の数量を商品ごとに合計
	SumDeliveredQuantities(ctx context.Context) (map[int64]int64, error)
}
