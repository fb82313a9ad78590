package repository

import (
	"context"

	"ecapp/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)
	// 同じ(cart, product, unit)の行を行ロック付きで探す
	FindByCartProductUnitForUpdate(ctx context.Context, cartID int64, productID int64, unit string) (model.CartItem, bool, error)
	FindByIDForUpdate(ctx context.Context, cartItemID int64) (model.CartItem, error)
	Create(ctx context.Context, item model.CartItem) (model.CartItem, error)
	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error
	// 明細をまとめて削除
	DeleteByCartID(ctx context.Context, cartID int64) error
}
