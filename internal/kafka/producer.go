package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/TemirB/wb-tech-orders/internal/domain"
)

const (
	EventOrderCreated  = "OrderCreated"
	EventOrderRejected = "OrderRejected"

	eventVersion = 1
)

// Envelope wraps every event written to the event topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderLinePayload struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID    string             `json:"order_id"`
	CustomerID string             `json:"customer_id"`
	Lines      []OrderLinePayload `json:"lines"`
	Total      decimal.Decimal    `json:"total"`
}

type OrderRejectedPayload struct {
	RequestID  string `json:"request_id"`
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
	Message    string `json:"message"`
}

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// EventPublisher writes order events synchronously. Messages are keyed by
// order id, or by request id for rejections, so one order stays on one partition.
type EventPublisher struct {
	w        writer
	producer string
	logger   *zap.Logger
	now      func() time.Time
}

func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}
}

func NewEventPublisher(w writer, producer string, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{
		w:        w,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

func (p *EventPublisher) OrderCreated(ctx context.Context, order *domain.Order) error {
	lines := make([]OrderLinePayload, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, OrderLinePayload{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
		})
	}
	return p.publish(ctx, EventOrderCreated, order.ID, OrderCreatedPayload{
		OrderID:    order.ID,
		CustomerID: order.CustomerID(),
		Lines:      lines,
		Total:      order.Total(),
	})
}

func (p *EventPublisher) OrderRejected(ctx context.Context, requestID, customerID, reason, message string) error {
	return p.publish(ctx, EventOrderRejected, requestID, OrderRejectedPayload{
		RequestID:  requestID,
		CustomerID: customerID,
		Reason:     reason,
		Message:    message,
	})
}

func (p *EventPublisher) Close() error {
	return p.w.Close()
}

func (p *EventPublisher) publish(ctx context.Context, eventType, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	env := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		OccurredAt:    p.now().UTC(),
		Producer:      p.producer,
		CorrelationID: key,
		Payload:       raw,
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", eventType, err)
	}

	msg := kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Time:  env.OccurredAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to send event to kafka",
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
		return fmt.Errorf("write %s: %w", eventType, err)
	}
	p.logger.Debug("event sent to kafka",
		zap.String("event_type", eventType),
		zap.String("event_id", env.EventID),
		zap.String("key", key),
	)
	return nil
}
