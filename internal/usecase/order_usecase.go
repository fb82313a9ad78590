package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ecapp/internal/domain/model"
	"ecapp/internal/infra/momo"
	repo "ecapp/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// リダイレクト型決済の作成
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req momo.PaymentRequest) (momo.PaymentResponse, error)
}

type OrderUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	ledger  *InventoryLedger
	gateway PaymentGateway
	events  orderEvents
	log     *zap.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	ledger *InventoryLedger,
	gateway PaymentGateway,
	pub EventPublisher,
	log *zap.Logger,
) *OrderUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderUsecase{
		tx:      tx,
		orders:  orders,
		ledger:  ledger,
		gateway: gateway,
		events:  newOrderEvents(pub, log),
		log:     log,
	}
}

// 注文時点の顧客情報
type CustomerInfo struct {
	FullName string
	Phone    string
	Email    string
	Address  string
	City     string
	District string
	Note     string
}

// Priceはnilか0なら現在価格を使う
type OrderItemInput struct {
	ProductID int64
	Unit      string
	Quantity  int64
	Price     *int64
}

type CreateOrderInput struct {
	Customer      CustomerInfo
	PaymentMethod string
	Items         []OrderItemInput
}

type CreateOrderFromCartInput struct {
	Customer      CustomerInfo
	PaymentMethod string
}

type OrderItemOutput struct {
	ID        int64  `json:"id"`
	ProductID *int64 `json:"product_id"`
	Name      string `json:"product_name"`
	Price     int64  `json:"product_price"`
	Unit      string `json:"unit"`
	Quantity  int64  `json:"quantity"`
	LineTotal int64  `json:"line_total"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	OrderCode     string            `json:"order_code"`
	UserID        int64             `json:"user_id"`
	Status        string            `json:"status"`
	PaymentMethod string            `json:"payment_method"`
	PaymentStatus string            `json:"payment_status"`
	FullName      string            `json:"full_name"`
	Phone         string            `json:"phone"`
	Email         string            `json:"email"`
	Address       string            `json:"address"`
	City          string            `json:"city"`
	District      string            `json:"district"`
	Note          string            `json:"note"`
	Subtotal      int64             `json:"subtotal"`
	ShippingFee   int64             `json:"shipping_fee"`
	TotalAmount   int64             `json:"total_amount"`
	Items         []OrderItemOutput `json:"items"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
}

// 決済URLの取得に失敗しても注文は残す
type CreateOrderOutput struct {
	Order        OrderOutput `json:"order"`
	PayURL       string      `json:"pay_url,omitempty"`
	PaymentError string      `json:"payment_error,omitempty"`
	Message      string      `json:"message"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *OrderUsecase) CreateOrder(ctx context.Context, userID int64, in CreateOrderInput) (CreateOrderOutput, error) {
	if userID <= 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	method, err := validateOrderHeader(in.Customer, in.PaymentMethod)
	if err != nil {
		return CreateOrderOutput{}, err
	}
	if len(in.Items) == 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, "items must not be empty")
	}
	for i, it := range in.Items {
		if it.ProductID <= 0 {
			return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("items[%d]: invalid product_id", i))
		}
		if it.Quantity < 1 {
			return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("items[%d]: invalid quantity", i))
		}
		if it.Price != nil && *it.Price < 0 {
			return CreateOrderOutput{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("items[%d]: price must be >= 0", i))
		}
	}

	var created model.Order
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := u.placeOrder(ctx, r, userID, in.Customer, method, in.Items)
		if err != nil {
			return err
		}
		created = o
		return nil
	})
	if err != nil {
		return CreateOrderOutput{}, err
	}

	return u.afterCommit(ctx, created), nil
}

// カートの中身で注文し、同じトランザクションでカートを空にする
func (u *OrderUsecase) CreateOrderFromCart(ctx context.Context, userID int64, in CreateOrderFromCartInput) (CreateOrderOutput, error) {
	if userID <= 0 {
		return CreateOrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	method, err := validateOrderHeader(in.Customer, in.PaymentMethod)
	if err != nil {
		return CreateOrderOutput{}, err
	}

	var created model.Order
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return errDB(err)
		}
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return errDB(err)
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart is empty")
		}

		items := make([]OrderItemInput, 0, len(cartItems))
		for _, ci := range cartItems {
			price := ci.UnitPriceSnapshot
			items = append(items, OrderItemInput{
				ProductID: ci.ProductID,
				Unit:      ci.Unit,
				Quantity:  ci.Quantity,
				Price:     &price,
			})
		}

		o, err := u.placeOrder(ctx, r, userID, in.Customer, method, items)
		if err != nil {
			return err
		}
		if err := r.CartItems().DeleteByCartID(ctx, cart.ID); err != nil {
			return errDB(err)
		}
		created = o
		return nil
	})
	if err != nil {
		return CreateOrderOutput{}, err
	}

	return u.afterCommit(ctx, created), nil
}

type orderLine struct {
	product model.Product
	unit    string
	qty     int64
	price   int64
}

// トランザクション内で呼ぶ。全明細を検証してから在庫を減らす
func (u *OrderUsecase) placeOrder(ctx context.Context, r repo.TxRepos, userID int64, cust CustomerInfo, method model.PaymentMethod, items []OrderItemInput) (model.Order, error) {
	lines := make([]orderLine, 0, len(items))
	requested := map[string]int64{}

	for _, it := range items {
		p, err := r.Products().FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, NewHTTPErrorWithDetails(http.StatusNotFound,
				fmt.Sprintf("product %d not found", it.ProductID),
				map[string]any{"product_id": it.ProductID})
		}
		if err != nil {
			return model.Order{}, errDB(err)
		}
		if !p.IsActive {
			return model.Order{}, NewHTTPErrorWithDetails(http.StatusBadRequest,
				fmt.Sprintf("product %s is not available", p.Name),
				map[string]any{"product_id": p.ID})
		}

		unit := strings.TrimSpace(it.Unit)
		if v, ok := p.VariantBySize(unit); ok && unit != "" {
			unit = v.Size
		}

		price, err := u.ledger.UnitPrice(p, unit)
		if err != nil {
			return model.Order{}, stockHTTPError(err, p, unit)
		}
		if it.Price != nil && *it.Price > 0 {
			price = *it.Price
		}

		// 同じ商品+サイズが複数行あっても合計で判定する
		key := fmt.Sprintf("%d:%s", p.ID, strings.ToLower(unit))
		requested[key] += it.Quantity
		ok, err := u.ledger.CheckAvailable(p, unit, requested[key])
		if err != nil {
			return model.Order{}, stockHTTPError(err, p, unit)
		}
		if !ok {
			label := p.Name
			if unit != "" {
				label = fmt.Sprintf("%s (size %s)", p.Name, unit)
			}
			return model.Order{}, NewHTTPErrorWithDetails(http.StatusBadRequest,
				"insufficient stock: "+label,
				map[string]any{"product_id": p.ID, "unit": unit, "requested": requested[key]})
		}

		lines = append(lines, orderLine{product: p, unit: unit, qty: it.Quantity, price: price})
	}

	var subtotal int64
	for _, l := range lines {
		subtotal += l.price * l.qty
	}
	fee := model.ShippingFeeFor(subtotal)

	paymentStatus := model.PaymentStatusCompleted
	if method.UsesGateway() {
		paymentStatus = model.PaymentStatusPending
	}

	o := model.Order{
		UserID:        userID,
		OrderCode:     "TMP-" + uuid.NewString(),
		Status:        model.OrderStatusPending,
		FullName:      strings.TrimSpace(cust.FullName),
		Phone:         strings.TrimSpace(cust.Phone),
		Email:         strings.TrimSpace(cust.Email),
		Address:       strings.TrimSpace(cust.Address),
		City:          strings.TrimSpace(cust.City),
		District:      strings.TrimSpace(cust.District),
		Note:          cust.Note,
		PaymentMethod: method,
		PaymentStatus: paymentStatus,
		Subtotal:      subtotal,
		ShippingFee:   fee,
		TotalAmount:   subtotal + fee,
	}

	id, err := r.Orders().Create(ctx, o)
	if err != nil {
		return model.Order{}, errDB(err)
	}
	o.ID = id

	// コードは採番済みIDから作る
	o.OrderCode = model.OrderCodeFor(id)
	if err := r.Orders().UpdateOrderCode(ctx, id, o.OrderCode); err != nil {
		return model.Order{}, errDB(err)
	}

	orderItems := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		pid := l.product.ID
		orderItems = append(orderItems, model.OrderItem{
			ProductID:           &pid,
			ProductNameSnapshot: l.product.Name,
			UnitPriceSnapshot:   l.price,
			Unit:                l.unit,
			Quantity:            l.qty,
		})
	}
	if err := r.OrderItems().CreateBulk(ctx, id, orderItems); err != nil {
		return model.Order{}, errDB(err)
	}

	// どれか1つでも減らせなければ全体をロールバック
	ref := StockRef{OrderID: &id, ActorUserID: userID, Reason: model.InventoryReasonOrderPlaced}
	for _, l := range lines {
		if err := u.ledger.Decrement(ctx, r.Inventory(), l.product, l.unit, l.qty, ref); err != nil {
			return model.Order{}, stockHTTPError(err, l.product, l.unit)
		}
	}

	o.Items = orderItems
	return o, nil
}

// コミット後：イベント送信と決済URLの取得
func (u *OrderUsecase) afterCommit(ctx context.Context, o model.Order) CreateOrderOutput {
	u.events.created(ctx, o)

	out := CreateOrderOutput{Message: "order created"}
	if o.PaymentMethod.UsesGateway() && u.gateway != nil {
		res, err := u.gateway.CreatePayment(ctx, momo.PaymentRequest{
			OrderID:   o.OrderCode,
			Amount:    o.TotalAmount,
			OrderInfo: "Thanh toan don hang " + o.OrderCode,
		})
		update := repo.PaymentUpdate{GatewayOrderID: o.OrderCode, GatewayRequestID: res.RequestID}
		if err != nil {
			u.log.Warn("payment request failed",
				zap.Int64("order_id", o.ID),
				zap.String("order_code", o.OrderCode),
				zap.Error(err),
			)
			update.Status = model.PaymentStatusFailed
			out.PaymentError = paymentErrorMessage(err)
			out.Message = "order created, payment request failed"
		} else {
			out.PayURL = res.PayURL
		}

		if uerr := u.orders.UpdatePayment(ctx, o.ID, update); uerr != nil {
			u.log.Error("save gateway ids failed", zap.Int64("order_id", o.ID), zap.Error(uerr))
		} else {
			o.GatewayOrderID = update.GatewayOrderID
			o.GatewayRequestID = update.GatewayRequestID
			if update.Status != "" {
				o.PaymentStatus = update.Status
			}
		}
		if update.Status != "" {
			u.events.paymentUpdated(ctx, o, update.Status, "", -1)
		}
	}

	out.Order = toOrderOutput(o, o.Items)
	return out
}

func paymentErrorMessage(err error) string {
	var re *momo.ResultError
	if errors.As(err, &re) {
		return fmt.Sprintf("payment gateway rejected the request (%d): %s", re.ResultCode, re.Message)
	}
	if errors.Is(err, momo.ErrGatewayUnavailable) {
		return "payment gateway is unavailable"
	}
	return "payment request failed"
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if limit < 1 || limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, errDB(err)
	}

	out := OrderListOutput{Items: make([]OrderOutput, 0, len(orders)), Total: total, Page: page, Limit: limit}
	for _, o := range orders {
		out.Items = append(out.Items, toOrderOutput(o, o.Items))
	}
	return out, nil
}

// 自分の注文だけ見られる
func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
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
	if o.UserID != userID {
		return OrderOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return toOrderOutput(o, o.Items), nil
}

// 顧客によるキャンセル（pending/confirmedのみ）。在庫は明細の数量だけ戻す
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
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
		if o.UserID != userID {
			return NewHTTPError(http.StatusForbidden, "forbidden")
		}
		if !model.CustomerCancellable(o.Status) {
			return NewHTTPErrorWithDetails(http.StatusConflict,
				fmt.Sprintf("order in status %s can no longer be cancelled", o.Status),
				map[string]any{"status": o.Status})
		}
		before = o

		plan, err := model.PlanTransition(o.Status, model.OrderStatusCancelled)
		if err != nil {
			return NewHTTPError(http.StatusConflict, err.Error())
		}
		ref := StockRef{OrderID: &o.ID, ActorUserID: userID, Reason: model.InventoryReasonOrderCanceled, Note: "customer cancel"}
		return applyTransition(ctx, r, u.ledger, u.log, o, plan, ref)
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.events.statusChanged(ctx, before, before.Status, model.OrderStatusCancelled, userID)
	return u.GetMyOrderDetail(ctx, userID, orderID)
}

// 遷移の副作用（在庫戻し・販売数加算）とステータス更新
func applyTransition(ctx context.Context, r repo.TxRepos, ledger *InventoryLedger, log *zap.Logger, o model.Order, plan model.TransitionPlan, ref StockRef) error {
	if plan.Has(model.SideEffectRestoreStock) {
		if err := restoreItems(ctx, r, ledger, log, o.Items, ref); err != nil {
			return err
		}
	}

	if plan.Has(model.SideEffectAccrueSoldCount) {
		if err := accrueSoldCount(ctx, r, log, o.Items); err != nil {
			return err
		}
	}

	if err := r.Orders().UpdateStatus(ctx, o.ID, plan.To); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return errDB(err)
	}
	return nil
}

// 商品が削除済みの明細は戻し先が無いので飛ばす
func restoreItems(ctx context.Context, r repo.TxRepos, ledger *InventoryLedger, log *zap.Logger, items []model.OrderItem, ref StockRef) error {
	for _, it := range items {
		if it.ProductID == nil {
			log.Warn("skip restore: product deleted", zap.Int64("order_item_id", it.ID))
			continue
		}
		p, err := r.Products().FindByID(ctx, *it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn("skip restore: product not found", zap.Int64("product_id", *it.ProductID))
			continue
		}
		if err != nil {
			return errDB(err)
		}

		if err := ledger.Restore(ctx, r.Inventory(), p, it.Unit, it.Quantity, ref); err != nil {
			return passOrDB(err)
		}
	}
	return nil
}

// 商品ごとに合計してから1回ずつ加算
func accrueSoldCount(ctx context.Context, r repo.TxRepos, log *zap.Logger, items []model.OrderItem) error {
	totals := map[int64]int64{}
	order := []int64{}
	for _, it := range items {
		if it.ProductID == nil {
			continue
		}
		if _, seen := totals[*it.ProductID]; !seen {
			order = append(order, *it.ProductID)
		}
		totals[*it.ProductID] += it.Quantity
	}

	for _, pid := range order {
		err := r.Products().IncrementSoldCount(ctx, pid, totals[pid])
		if errors.Is(err, repo.ErrNotFound) {
			log.Warn("skip sold_count: product not found", zap.Int64("product_id", pid))
			continue
		}
		if err != nil {
			return errDB(err)
		}
	}
	return nil
}

func validateOrderHeader(c CustomerInfo, method string) (model.PaymentMethod, error) {
	required := []struct {
		field string
		value string
	}{
		{"full_name", c.FullName},
		{"phone", c.Phone},
		{"email", c.Email},
		{"address", c.Address},
		{"city", c.City},
		{"district", c.District},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return "", NewHTTPErrorWithDetails(http.StatusBadRequest, r.field+" is required", map[string]any{"field": r.field})
		}
	}

	m := model.PaymentMethod(strings.ToLower(strings.TrimSpace(method)))
	if !m.Valid() {
		return "", NewHTTPErrorWithDetails(http.StatusBadRequest, "invalid payment_method", map[string]any{"field": "payment_method"})
	}
	return m, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Unit:      it.Unit,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal(),
		})
	}

	return OrderOutput{
		ID:            o.ID,
		OrderCode:     o.OrderCode,
		UserID:        o.UserID,
		Status:        string(o.Status),
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		FullName:      o.FullName,
		Phone:         o.Phone,
		Email:         o.Email,
		Address:       o.Address,
		City:          o.City,
		District:      o.District,
		Note:          o.Note,
		Subtotal:      o.Subtotal,
		ShippingFee:   o.ShippingFee,
		TotalAmount:   o.TotalAmount,
		Items:         outItems,
		CreatedAt:     formatTime(o.CreatedAt),
		UpdatedAt:     formatTime(o.UpdatedAt),
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}
