package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ecapp/internal/domain/model"
	repo "ecapp/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrSizeNotFound      = errors.New("size not found")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// 在庫変動の理由と紐づく注文
type StockRef struct {
	OrderID     *int64
	ActorUserID int64
	Reason      model.InventoryReason
	Note        string
}

// 在庫の増減はすべてここを通す。減算は条件付きUPDATEで負にならない
type InventoryLedger struct {
	log *zap.Logger
}

func NewInventoryLedger(log *zap.Logger) *InventoryLedger {
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryLedger{log: log}
}

// 対象の在庫（variantか商品本体）
type stockTarget struct {
	variant *model.ProductVariant
	stock   int64
}

func resolveTarget(p model.Product, unit string) (stockTarget, error) {
	if strings.TrimSpace(unit) != "" && p.HasVariants() {
		v, ok := p.VariantBySize(unit)
		if !ok {
			return stockTarget{}, fmt.Errorf("%w: %s (%s)", ErrSizeNotFound, p.Name, unit)
		}
		return stockTarget{variant: &v, stock: v.Stock}, nil
	}
	return stockTarget{stock: p.Stock}, nil
}

// 読み込み時点の在庫で判定する（確定はDecrementの条件付きUPDATE）
func (l *InventoryLedger) CheckAvailable(p model.Product, unit string, qty int64) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}
	t, err := resolveTarget(p, unit)
	if err != nil {
		return false, err
	}
	return t.stock >= qty, nil
}

// 単価：variantがあればその価格、なければ商品価格
func (l *InventoryLedger) UnitPrice(p model.Product, unit string) (int64, error) {
	t, err := resolveTarget(p, unit)
	if err != nil {
		return 0, err
	}
	if t.variant != nil {
		return t.variant.Price, nil
	}
	return p.Price, nil
}

func (l *InventoryLedger) Decrement(ctx context.Context, inv repo.InventoryRepository, p model.Product, unit string, qty int64, ref StockRef) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	t, err := resolveTarget(p, unit)
	if err != nil {
		return err
	}

	var after int64
	var ok bool
	if t.variant != nil {
		after, ok, err = inv.DecreaseVariantStockIfEnough(ctx, t.variant.ID, qty)
	} else {
		after, ok, err = inv.DecreaseStockIfEnough(ctx, p.ID, qty)
	}
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrInsufficientStock, describe(p, t))
	}

	return l.record(ctx, inv, p, t, -qty, after+qty, after, ref)
}

// 取り消し用。上限はない。注文時のサイズが既に無ければ商品本体の在庫へ戻す
func (l *InventoryLedger) Restore(ctx context.Context, inv repo.InventoryRepository, p model.Product, unit string, qty int64, ref StockRef) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	t, err := resolveTarget(p, unit)
	if errors.Is(err, ErrSizeNotFound) {
		l.log.Warn("restore to product stock: size no longer exists",
			zap.Int64("product_id", p.ID),
			zap.String("unit", unit),
		)
		t, err = stockTarget{stock: p.Stock}, nil
	}
	if err != nil {
		return err
	}

	var after int64
	if t.variant != nil {
		after, err = inv.IncreaseVariantStock(ctx, t.variant.ID, qty)
	} else {
		after, err = inv.IncreaseStock(ctx, p.ID, qty)
	}
	if err != nil {
		return err
	}

	return l.record(ctx, inv, p, t, qty, after-qty, after, ref)
}

func (l *InventoryLedger) record(ctx context.Context, inv repo.InventoryRepository, p model.Product, t stockTarget, delta, before, after int64, ref StockRef) error {
	unit := ""
	if t.variant != nil {
		unit = t.variant.Size
	}

	if err := inv.CreateAdjustment(ctx, model.InventoryAdjustment{
		ProductID:   p.ID,
		Unit:        unit,
		OrderID:     ref.OrderID,
		ActorUserID: ref.ActorUserID,
		Delta:       delta,
		StockBefore: before,
		StockAfter:  after,
		Reason:      ref.Reason,
		Note:        ref.Note,
	}); err != nil {
		return err
	}

	fields := []zap.Field{
		zap.Int64("product_id", p.ID),
		zap.String("unit", unit),
		zap.Int64("delta", delta),
		zap.Int64("stock_before", before),
		zap.Int64("stock_after", after),
		zap.String("reason", string(ref.Reason)),
	}
	if ref.OrderID != nil {
		fields = append(fields, zap.Int64("order_id", *ref.OrderID))
	}
	l.log.Info("stock changed", fields...)
	return nil
}

func describe(p model.Product, t stockTarget) string {
	if t.variant != nil {
		return fmt.Sprintf("%s (size %s)", p.Name, t.variant.Size)
	}
	return p.Name
}

// 在庫系エラーをHTTPErrorへ
func stockHTTPError(err error, p model.Product, unit string) error {
	details := map[string]any{"product_id": p.ID}
	if unit != "" {
		details["unit"] = unit
	}
	switch {
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrSizeNotFound):
		return NewHTTPErrorWithDetails(http.StatusBadRequest, err.Error(), details)
	case errors.Is(err, ErrInvalidQuantity):
		return NewHTTPError(http.StatusBadRequest, "invalid quantity")
	default:
		return passOrDB(err)
	}
}
