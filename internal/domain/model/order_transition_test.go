package model_test

import (
	"testing"

	"ecapp/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanTransition_Allowed(t *testing.T) {
	cases := []struct {
		from, to model.OrderStatus
		effects  []model.SideEffect
	}{
		{model.OrderStatusPending, model.OrderStatusConfirmed, nil},
		{model.OrderStatusPending, model.OrderStatusCancelled, []model.SideEffect{model.SideEffectRestoreStock}},
		{model.OrderStatusConfirmed, model.OrderStatusShipping, nil},
		{model.OrderStatusConfirmed, model.OrderStatusCancelled, []model.SideEffect{model.SideEffectRestoreStock}},
		{model.OrderStatusShipping, model.OrderStatusDelivered, []model.SideEffect{model.SideEffectAccrueSoldCount}},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			plan, err := model.PlanTransition(tc.from, tc.to)
			require.NoError(t, err)
			assert.Equal(t, tc.from, plan.From)
			assert.Equal(t, tc.to, plan.To)
			assert.Equal(t, tc.effects, plan.SideEffects)
		})
	}
}

func TestPlanTransition_Rejected(t *testing.T) {
	cases := []struct {
		from, to model.OrderStatus
	}{
		{model.OrderStatusPending, model.OrderStatusShipping},
		{model.OrderStatusPending, model.OrderStatusDelivered},
		{model.OrderStatusConfirmed, model.OrderStatusPending},
		{model.OrderStatusShipping, model.OrderStatusCancelled},
		{model.OrderStatusShipping, model.OrderStatusConfirmed},
		{model.OrderStatusDelivered, model.OrderStatusCancelled},
		{model.OrderStatusDelivered, model.OrderStatusShipping},
		{model.OrderStatusCancelled, model.OrderStatusPending},
		{model.OrderStatusCancelled, model.OrderStatusConfirmed},
	}

	for _, tc := range cases {
		t.Run(string(tc.from)+"->"+string(tc.to), func(t *testing.T) {
			_, err := model.PlanTransition(tc.from, tc.to)
			require.ErrorIs(t, err, model.ErrInvalidTransition)
			assert.Contains(t, err.Error(), string(tc.from))
			assert.Contains(t, err.Error(), string(tc.to))
		})
	}
}

func TestPlanTransition_SameStatusIsError(t *testing.T) {
	for _, s := range model.AllOrderStatuses {
		_, err := model.PlanTransition(s, s)
		assert.ErrorIs(t, err, model.ErrSameStatus, string(s))
	}
}

func TestPlanTransition_UnknownStatus(t *testing.T) {
	_, err := model.PlanTransition(model.OrderStatusPending, "paid")
	assert.ErrorIs(t, err, model.ErrUnknownStatus)
}

func TestCustomerCancellable(t *testing.T) {
	assert.True(t, model.CustomerCancellable(model.OrderStatusPending))
	assert.True(t, model.CustomerCancellable(model.OrderStatusConfirmed))
	assert.False(t, model.CustomerCancellable(model.OrderStatusShipping))
	assert.False(t, model.CustomerCancellable(model.OrderStatusDelivered))
	assert.False(t, model.CustomerCancellable(model.OrderStatusCancelled))
}

func TestShippingFeeFor(t *testing.T) {
	assert.Equal(t, int64(0), model.ShippingFeeFor(600000))
	assert.Equal(t, int64(0), model.ShippingFeeFor(500000))
	assert.Equal(t, int64(30000), model.ShippingFeeFor(499999))
	assert.Equal(t, int64(30000), model.ShippingFeeFor(200000))
}

func TestOrderCodeFor(t *testing.T) {
	assert.Equal(t, "ORD00000042", model.OrderCodeFor(42))
	assert.Equal(t, "ORD12345678", model.OrderCodeFor(12345678))
}

func TestProduct_VariantBySize(t *testing.T) {
	p := model.Product{Variants: []model.ProductVariant{{Size: "M", Stock: 3}, {Size: "L", Stock: 1}}}

	v, ok := p.VariantBySize(" m ")
	require.True(t, ok)
	assert.Equal(t, int64(3), v.Stock)

	_, ok = p.VariantBySize("XL")
	assert.False(t, ok)
}
