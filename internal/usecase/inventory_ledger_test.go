package usecase_test

import (
	"context"
	"testing"

	"ecapp/internal/domain/model"
	"ecapp/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryLedger_CheckAndPrice(t *testing.T) {
	l := usecase.NewInventoryLedger(nil)
	p := model.Product{ID: 1, Name: "Shirt", Price: 100, Stock: 2, Variants: []model.ProductVariant{
		{ID: 2, Size: "M", Price: 150, Stock: 5},
	}}

	ok, err := l.CheckAvailable(p, "", 2)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.CheckAvailable(p, "", 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = l.CheckAvailable(p, "m", 5)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = l.CheckAvailable(p, "XL", 1)
	assert.ErrorIs(t, err, usecase.ErrSizeNotFound)

	_, err = l.CheckAvailable(p, "", 0)
	assert.ErrorIs(t, err, usecase.ErrInvalidQuantity)

	price, err := l.UnitPrice(p, "M")
	require.NoError(t, err)
	assert.Equal(t, int64(150), price)

	price, err = l.UnitPrice(p, "")
	require.NoError(t, err)
	assert.Equal(t, int64(100), price)
}

func TestInventoryLedger_DecrementNeverGoesNegative(t *testing.T) {
	s := newMemStore()
	p := s.addProduct(model.Product{Name: "A", Price: 1, Stock: 3})
	l := usecase.NewInventoryLedger(nil)
	ctx := context.Background()
	ref := usecase.StockRef{Reason: model.InventoryReasonOrderPlaced}

	require.NoError(t, l.Decrement(ctx, s.Inventory(), p, "", 3, ref))
	err := l.Decrement(ctx, s.Inventory(), p, "", 1, ref)
	assert.ErrorIs(t, err, usecase.ErrInsufficientStock)
	assert.Equal(t, int64(0), s.product(p.ID).Stock)

	require.NoError(t, l.Restore(ctx, s.Inventory(), p, "", 2, usecase.StockRef{Reason: model.InventoryReasonOrderCanceled}))
	assert.Equal(t, int64(2), s.product(p.ID).Stock)

	adj := s.adjustmentRows()
	require.Len(t, adj, 2)
	assert.Equal(t, int64(3), adj[0].StockBefore)
	assert.Equal(t, int64(0), adj[0].StockAfter)
	assert.Equal(t, int64(0), adj[1].StockBefore)
	assert.Equal(t, int64(2), adj[1].StockAfter)
}
