package model

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSameStatus        = errors.New("order already in requested status")
	ErrUnknownStatus     = errors.New("unknown order status")
)

// 遷移に伴って適用する副作用
type SideEffect string

const (
	// 注文明細の数量を在庫に戻す
	SideEffectRestoreStock SideEffect = "restore_stock"
	// 注文明細の数量をsold_countに加算する
	SideEffectAccrueSoldCount SideEffect = "accrue_sold_count"
)

type TransitionPlan struct {
	From        OrderStatus
	To          OrderStatus
	SideEffects []SideEffect
}

func (p TransitionPlan) Has(effect SideEffect) bool {
	for _, e := range p.SideEffects {
		if e == effect {
			return true
		}
	}
	return false
}

var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed: {OrderStatusShipping, OrderStatusCancelled},
	OrderStatusShipping:  {OrderStatusDelivered},
	OrderStatusDelivered: {},
	OrderStatusCancelled: {},
}

// 遷移の可否と副作用を決める。状態は引数だけで判断する。
func PlanTransition(from, to OrderStatus) (TransitionPlan, error) {
	if !from.Valid() || !to.Valid() {
		return TransitionPlan{}, fmt.Errorf("%w: %q -> %q", ErrUnknownStatus, from, to)
	}
	if from == to {
		return TransitionPlan{}, fmt.Errorf("%w: %s", ErrSameStatus, from)
	}

	allowed := false
	for _, next := range allowedTransitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return TransitionPlan{}, fmt.Errorf("%w: cannot change order from %s to %s", ErrInvalidTransition, from, to)
	}

	plan := TransitionPlan{From: from, To: to}
	switch to {
	case OrderStatusCancelled:
		plan.SideEffects = append(plan.SideEffects, SideEffectRestoreStock)
	case OrderStatusDelivered:
		plan.SideEffects = append(plan.SideEffects, SideEffectAccrueSoldCount)
	}
	return plan, nil
}

func IsTerminal(s OrderStatus) bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// 顧客が自分でキャンセルできるのは発送前だけ
func CustomerCancellable(s OrderStatus) bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}
