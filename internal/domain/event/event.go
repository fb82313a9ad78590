package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// トピック。パーティションキーは注文ID
const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
	TopicOrderPaymentUpdate = "order.payment.updated"
)

const producerName = "ecapp-api"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderItemPayload struct {
	ProductID *int64 `json:"product_id"`
	Unit      string `json:"unit"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type OrderCreatedPayload struct {
	OrderID       int64              `json:"order_id"`
	OrderCode     string             `json:"order_code"`
	UserID        int64              `json:"user_id"`
	PaymentMethod string             `json:"payment_method"`
	TotalAmount   int64              `json:"total_amount"`
	Items         []OrderItemPayload `json:"items"`
}

type OrderStatusChangedPayload struct {
	OrderID     int64  `json:"order_id"`
	OrderCode   string `json:"order_code"`
	From        string `json:"from"`
	To          string `json:"to"`
	ActorUserID int64  `json:"actor_user_id"`
}

type OrderPaymentUpdatedPayload struct {
	OrderID       int64  `json:"order_id"`
	OrderCode     string `json:"order_code"`
	PaymentStatus string `json:"payment_status"`
	TransID       string `json:"trans_id,omitempty"`
	ResultCode    int    `json:"result_code"`
}

// 封筒に包む。CorrelationIDは注文ID
func New(topic string, orderID int64, payload any, now time.Time) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", topic, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     topic,
		EventVersion:  1,
		OccurredAt:    now.UTC(),
		Producer:      producerName,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       b,
	}, nil
}

// 1注文のイベント順序を保つためのキー
func (e Envelope) PartitionKey() []byte {
	return []byte(e.CorrelationID)
}
