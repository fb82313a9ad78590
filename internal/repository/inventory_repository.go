package repository

import (
	"context"

	"ecapp/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫が足りるときだけ減算し、減算後の在庫を返す
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (after int64, ok bool, err error)
	DecreaseVariantStockIfEnough(ctx context.Context, variantID int64, qty int64) (after int64, ok bool, err error)

	// 在庫戻し（キャンセルなど）。上限チェックはしない
	IncreaseStock(ctx context.Context, productID int64, qty int64) (after int64, err error)
	IncreaseVariantStock(ctx context.Context, variantID int64, qty int64) (after int64, err error)

	// 在庫の現在値を設定
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 台帳の履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
