package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"ecapp/internal/authz"
	"ecapp/internal/domain/model"
	"ecapp/internal/infra/momo"
	"ecapp/internal/infra/redisx"
	repo "ecapp/internal/repository"

	"go.uber.org/zap"
)

const dedupScopeIPN = "momo-ipn"

// コールバック検証と状態照会
type PaymentVerifier interface {
	VerifyCallback(p momo.CallbackPayload) bool
	QueryStatus(ctx context.Context, orderID, requestID string) (momo.QueryResponse, error)
}

type PaymentUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	gateway PaymentVerifier
	dedup   redisx.Deduper
	events  orderEvents
	log     *zap.Logger
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	gateway PaymentVerifier,
	dedup redisx.Deduper,
	pub EventPublisher,
	log *zap.Logger,
) *PaymentUsecase {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentUsecase{
		tx:      tx,
		orders:  orders,
		gateway: gateway,
		dedup:   dedup,
		events:  newOrderEvents(pub, log),
		log:     log,
	}
}

type PaymentStatusOutput struct {
	OrderID       int64  `json:"order_id"`
	OrderCode     string `json:"order_code"`
	PaymentMethod string `json:"payment_method"`
	PaymentStatus string `json:"payment_status"`
	ResultCode    *int   `json:"result_code,omitempty"`
	Message       string `json:"message,omitempty"`
}

// IPNの処理。署名が正しければ結果に関係なく受領を返す
func (u *PaymentUsecase) HandleCallback(ctx context.Context, in momo.CallbackPayload) error {
	if !u.gateway.VerifyCallback(in) {
		u.log.Warn("momo callback signature mismatch",
			zap.String("order_id", in.OrderID),
			zap.Int64("trans_id", in.TransID),
		)
		return NewHTTPError(http.StatusBadRequest, "invalid signature")
	}

	dedupID := fmt.Sprintf("%s:%d", in.OrderID, in.TransID)
	claimed := false
	if u.dedup != nil {
		first, err := u.dedup.FirstSeen(ctx, dedupScopeIPN, dedupID)
		if err != nil {
			// Redisが落ちていても処理は続ける（状態更新は冪等）
			u.log.Warn("ipn dedup unavailable", zap.Error(err))
		} else if !first {
			u.log.Info("duplicate momo callback", zap.String("order_id", in.OrderID), zap.Int64("trans_id", in.TransID))
			return nil
		}
		claimed = first
	}

	status := model.PaymentStatusFailed
	if in.ResultCode == 0 {
		status = model.PaymentStatusCompleted
	}
	transID := ""
	if in.TransID != 0 {
		transID = strconv.FormatInt(in.TransID, 10)
	}

	var (
		updated model.Order
		changed bool
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByGatewayOrderIDForUpdate(ctx, in.OrderID)
		if errors.Is(err, repo.ErrNotFound) {
			u.log.Warn("momo callback for unknown order", zap.String("order_id", in.OrderID))
			return nil
		}
		if err != nil {
			return errDB(err)
		}

		if !paymentStatusMayChange(o.PaymentStatus, status) {
			return nil
		}

		pu := repo.PaymentUpdate{Status: status}
		if status == model.PaymentStatusCompleted {
			pu.GatewayTransID = transID
		}
		if err := r.Orders().UpdatePayment(ctx, o.ID, pu); err != nil {
			return errDB(err)
		}
		o.PaymentStatus = status
		updated = o
		changed = true
		return nil
	})
	if err != nil {
		// 再送で反映できるよう印を外す
		if claimed {
			if ferr := u.dedup.Forget(context.WithoutCancel(ctx), dedupScopeIPN, dedupID); ferr != nil {
				u.log.Warn("ipn dedup release failed", zap.String("order_id", in.OrderID), zap.Error(ferr))
			}
		}
		return err
	}

	if changed {
		u.log.Info("payment status updated",
			zap.Int64("order_id", updated.ID),
			zap.String("payment_status", string(status)),
			zap.Int("result_code", in.ResultCode),
		)
		u.events.paymentUpdated(ctx, updated, status, transID, in.ResultCode)
	}
	return nil
}

// MoMoに問い合わせて結果を反映する。本人か管理者のみ
func (u *PaymentUsecase) CheckStatus(ctx context.Context, p authz.Principal, orderID int64) (PaymentStatusOutput, error) {
	if orderID <= 0 {
		return PaymentStatusOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return PaymentStatusOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return PaymentStatusOutput{}, errDB(err)
	}
	if !authz.CanAccessOwned(p, o.UserID) {
		return PaymentStatusOutput{}, NewHTTPError(http.StatusForbidden, "forbidden")
	}

	out := PaymentStatusOutput{
		OrderID:       o.ID,
		OrderCode:     o.OrderCode,
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
	}
	if !o.PaymentMethod.UsesGateway() || o.GatewayOrderID == "" {
		return out, nil
	}

	res, err := u.gateway.QueryStatus(ctx, o.GatewayOrderID, o.GatewayRequestID)
	if err != nil {
		u.log.Warn("momo query failed", zap.Int64("order_id", o.ID), zap.Error(err))
		return PaymentStatusOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway is unavailable")
	}
	code := res.ResultCode
	out.ResultCode = &code
	out.Message = res.Message

	mapped := momo.MapResultCode(res.ResultCode)
	if mapped == model.PaymentStatusPending || !paymentStatusMayChange(o.PaymentStatus, mapped) {
		return out, nil
	}

	pu := repo.PaymentUpdate{Status: mapped}
	if mapped == model.PaymentStatusCompleted && res.TransID != 0 {
		pu.GatewayTransID = strconv.FormatInt(res.TransID, 10)
	}
	if err := u.orders.UpdatePayment(ctx, o.ID, pu); err != nil {
		return PaymentStatusOutput{}, errDB(err)
	}
	out.PaymentStatus = string(mapped)
	u.events.paymentUpdated(ctx, o, mapped, pu.GatewayTransID, res.ResultCode)
	return out, nil
}

// completedは確定。それ以外は変化があるときだけ
func paymentStatusMayChange(current, next model.PaymentStatus) bool {
	if current == model.PaymentStatusCompleted {
		return false
	}
	return current != next
}
