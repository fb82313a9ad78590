package repository

import (
	"context"

	"ecapp/internal/domain/model"
)

type CartRepository interface {
	// 無ければ空のカートを作る
	GetOrCreateByUserID(ctx context.Context, userID int64) (model.Cart, error)
	FindByID(ctx context.Context, cartID int64) (model.Cart, error)
}
