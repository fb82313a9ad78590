package usecase

import (
	"context"
	"time"

	"ecapp/internal/domain/event"
	"ecapp/internal/domain/model"

	"go.uber.org/zap"
)

// コミット後に注文イベントを流す先
type EventPublisher interface {
	Publish(ctx context.Context, e event.Envelope) error
}

// KAFKA_BROKERS未設定時
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, event.Envelope) error { return nil }

// 送信失敗は注文処理を失敗にしない。ログだけ
type orderEvents struct {
	pub EventPublisher
	log *zap.Logger
	now func() time.Time
}

func newOrderEvents(pub EventPublisher, log *zap.Logger) orderEvents {
	if pub == nil {
		pub = NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return orderEvents{pub: pub, log: log, now: time.Now}
}

func (e orderEvents) emit(ctx context.Context, topic string, orderID int64, payload any) {
	env, err := event.New(topic, orderID, payload, e.now())
	if err == nil {
		err = e.pub.Publish(ctx, env)
	}
	if err != nil {
		e.log.Warn("publish order event failed",
			zap.String("topic", topic),
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
	}
}

func (e orderEvents) created(ctx context.Context, o model.Order) {
	items := make([]event.OrderItemPayload, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, event.OrderItemPayload{
			ProductID: it.ProductID,
			Unit:      it.Unit,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPriceSnapshot,
		})
	}
	e.emit(ctx, event.TopicOrderCreated, o.ID, event.OrderCreatedPayload{
		OrderID:       o.ID,
		OrderCode:     o.OrderCode,
		UserID:        o.UserID,
		PaymentMethod: string(o.PaymentMethod),
		TotalAmount:   o.TotalAmount,
		Items:         items,
	})
}

func (e orderEvents) statusChanged(ctx context.Context, o model.Order, from, to model.OrderStatus, actorID int64) {
	e.emit(ctx, event.TopicOrderStatusChanged, o.ID, event.OrderStatusChangedPayload{
		OrderID:     o.ID,
		OrderCode:   o.OrderCode,
		From:        string(from),
		To:          string(to),
		ActorUserID: actorID,
	})
}

func (e orderEvents) paymentUpdated(ctx context.Context, o model.Order, status model.PaymentStatus, transID string, resultCode int) {
	e.emit(ctx, event.TopicOrderPaymentUpdate, o.ID, event.OrderPaymentUpdatedPayload{
		OrderID:       o.ID,
		OrderCode:     o.OrderCode,
		PaymentStatus: string(status),
		TransID:       transID,
		ResultCode:    resultCode,
	})
}
