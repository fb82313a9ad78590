package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"ecapp/internal/authz"
	"ecapp/internal/domain/model"
	repo "ecapp/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	orders repo.OrderRepository
	ledger *InventoryLedger
	events orderEvents
	log    *zap.Logger
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	ledger *InventoryLedger,
	pub EventPublisher,
	log *zap.Logger,
) *AdminOrderUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminOrderUsecase{
		tx:     tx,
		orders: orders,
		ledger: ledger,
		events: newOrderEvents(pub, log),
		log:    log,
	}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminOrderStatsOutput struct {
	TotalOrders     int64            `json:"total_orders"`
	PendingOrders   int64            `json:"pending_orders"`
	CompletedOrders int64            `json:"completed_orders"`
	ByStatus        map[string]int64 `json:"by_status"`
	TotalRevenue    int64            `json:"total_revenue"`
}

func requireAdmin(p authz.Principal) error {
	if err := authz.RequireAdmin(p); err != nil {
		return NewHTTPError(http.StatusForbidden, "admin only")
	}
	return nil
}

// 注文一覧（検索・絞り込み・ページング）
func (u *AdminOrderUsecase) List(ctx context.Context, p authz.Principal, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	if err := requireAdmin(p); err != nil {
		return OrderListOutput{}, err
	}
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}
	if f.PaymentStatus != "" && !model.PaymentStatus(f.PaymentStatus).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_status")
	}
	if f.PaymentMethod != "" && !model.PaymentMethod(f.PaymentMethod).Valid() {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid payment_method")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "from must be <= to")
	}
	f.Q = strings.TrimSpace(f.Q)

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, errDB(err)
	}

	out := OrderListOutput{Items: make([]OrderOutput, 0, len(orders)), Total: total, Page: f.Page, Limit: f.Limit}
	for _, o := range orders {
		out.Items = append(out.Items, toOrderOutput(o, o.Items))
	}
	return out, nil
}

func (u *AdminOrderUsecase) Get(ctx context.Context, p authz.Principal, orderID int64) (OrderOutput, error) {
	if err := requireAdmin(p); err != nil {
		return OrderOutput{}, err
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return OrderOutput{}, errDB(err)
	}
	return toOrderOutput(o, o.Items), nil
}

// ステータス更新。副作用と監査ログは同じトランザクション
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, p authz.Principal, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if err := requireAdmin(p); err != nil {
		return OrderOutput{}, err
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	next := model.OrderStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	if !next.Valid() {
		return OrderOutput{}, NewHTTPErrorWithDetails(http.StatusBadRequest, "invalid status",
			map[string]any{"allowed": model.AllOrderStatuses})
	}

	var before model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return errDB(err)
		}
		before = o

		plan, err := model.PlanTransition(o.Status, next)
		if err != nil {
			return NewHTTPErrorWithDetails(http.StatusConflict, err.Error(),
				map[string]any{"from": o.Status, "to": next})
		}

		ref := StockRef{OrderID: &o.ID, ActorUserID: p.UserID, Reason: model.InventoryReasonOrderCanceled, Note: "admin cancel"}
		if err := applyTransition(ctx, r, u.ledger, u.log, o, plan, ref); err != nil {
			return err
		}

		// 「誰が」「どの注文を」「何から何へ」変えたか
		beforeJSON, _ := json.Marshal(map[string]any{"status": o.Status})
		afterJSON, _ := json.Marshal(map[string]any{"status": plan.To, "side_effects": plan.SideEffects})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  p.UserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   o.ID,
			BeforeJSON:   string(beforeJSON),
			AfterJSON:    string(afterJSON),
			CreatedAt:    time.Now(),
		}); err != nil {
			return errDB(err)
		}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.log.Info("order status changed",
		zap.Int64("order_id", before.ID),
		zap.String("from", string(before.Status)),
		zap.String("to", string(next)),
		zap.Int64("actor_user_id", p.UserID),
	)
	u.events.statusChanged(ctx, before, before.Status, next, p.UserID)

	return u.Get(ctx, p, orderID)
}

// 売上はキャンセル以外のtotal_amount合計
func (u *AdminOrderUsecase) Stats(ctx context.Context, p authz.Principal) (AdminOrderStatsOutput, error) {
	if err := requireAdmin(p); err != nil {
		return AdminOrderStatsOutput{}, err
	}

	s, err := u.orders.Stats(ctx)
	if err != nil {
		return AdminOrderStatsOutput{}, errDB(err)
	}

	byStatus := make(map[string]int64, len(model.AllOrderStatuses))
	for _, st := range model.AllOrderStatuses {
		byStatus[string(st)] = s.ByStatus[st]
	}
	return AdminOrderStatsOutput{
		TotalOrders:     s.TotalOrders,
		PendingOrders:   s.ByStatus[model.OrderStatusPending],
		CompletedOrders: s.ByStatus[model.OrderStatusDelivered],
		ByStatus:        byStatus,
		TotalRevenue:    s.TotalRevenue,
	}, nil
}

// 期間パラメータはhandlerでここを通してから渡す
func ParseDateParam(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid date: "+s)
	}
	return &t, nil
}
