package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"ecapp/internal/domain/event"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

var (
	ErrProducerClosed = errors.New("kafka producer closed")
	ErrBufferFull     = errors.New("kafka producer buffer full")
)

// 注文イベントを非同期で送る。トピックはメッセージごとに指定
type Producer struct {
	w      *kafka.Writer
	log    *zap.Logger
	inbox  chan kafka.Message
	done   chan struct{}
	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, buf int, log *zap.Logger) *Producer {
	if buf <= 0 {
		buf = 256
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			WriteTimeout:           5 * time.Second,
		},
		log:   log,
		inbox: make(chan kafka.Message, buf),
		done:  make(chan struct{}),
	}
	go p.loop()
	return p
}

// inboxが閉じられるまで書き続ける
func (p *Producer) loop() {
	defer close(p.done)
	for m := range p.inbox {
		if err := p.w.WriteMessages(context.Background(), m); err != nil {
			p.log.Error("kafka write failed",
				zap.String("topic", m.Topic),
				zap.ByteString("key", m.Key),
				zap.Error(err),
			)
		}
	}
	if err := p.w.Close(); err != nil {
		p.log.Warn("kafka writer close failed", zap.Error(err))
	}
}

func (p *Producer) Publish(ctx context.Context, e event.Envelope) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: e.EventType,
		Key:   e.PartitionKey(),
		Value: b,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "event_id", Value: []byte(e.EventID)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}

	// コミット後に呼ばれるので待たない。溢れたら捨てる
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.log.Warn("kafka buffer full, event dropped",
			zap.String("topic", msg.Topic),
			zap.String("event_id", e.EventID),
		)
		return ErrBufferFull
	}
}

// 残りをflushしてから戻る
func (p *Producer) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()
	<-p.done
}
