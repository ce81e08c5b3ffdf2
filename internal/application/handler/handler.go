package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/wb-tech-orders/internal/config"
	"github.com/TemirB/wb-tech-orders/internal/domain"
	"github.com/TemirB/wb-tech-orders/internal/observability"
	"github.com/TemirB/wb-tech-orders/internal/pkg/retry"
)

//go:generate mockgen -source internal/application/handler/handler.go -destination=internal/application/handler/handler_mock_test.go -package=handler

var (
	ErrBadJSON     = errors.New("bad json")
	ErrCreate      = errors.New("create order failed")
	ErrCircuitOpen = errors.New("circuit breaker open")
)

// PlaceOrderCommand is the payload of the command topic.
type PlaceOrderCommand struct {
	RequestID  string                 `json:"request_id"`
	CustomerID string                 `json:"customer_id"`
	Products   []domain.RequestedItem `json:"products"`
}

type Service interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error)
}

type Rejections interface {
	OrderRejected(ctx context.Context, requestID, customerID, reason, message string) error
}

type brk interface {
	Allow() error
	Success()
	Failure()
}

type Handler struct {
	service     Service
	breaker     brk
	rejections  Rejections
	logger      *zap.Logger
	metrics     observability.Metrics
	retryPolicy config.Retry
}

func NewHandler(service Service, brk brk, rejections Rejections, retryPolicy config.Retry, metrics observability.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		service:     service,
		breaker:     brk,
		rejections:  rejections,
		logger:      logger,
		metrics:     metrics,
		retryPolicy: retryPolicy,
	}
}

// Handle processes one place-order command. A nil return lets the consumer
// commit the offset. Malformed commands and business rejections return nil
// because redelivery cannot change their outcome.
func (h *Handler) Handle(ctx context.Context, message kafkago.Message) error {
	start := time.Now()
	err := h.handle(ctx, message)
	h.metrics.ObserveKafka(float64(time.Since(start).Microseconds())/1000.0, err == nil)
	return err
}

func (h *Handler) handle(ctx context.Context, message kafkago.Message) error {
	if err := h.breaker.Allow(); err != nil {
		h.logger.Warn("circuit breaker is open",
			zap.Error(err),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}

	req, err := decode(message)
	if err != nil {
		h.logger.Error("dropping malformed command",
			zap.Error(err),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		return nil
	}

	err = retry.Do(ctx, h.retryPolicy, func() error {
		_, err := h.service.CreateOrder(ctx, req)
		if domain.IsRejection(err) {
			return retry.Permanent(err)
		}
		return err
	})

	switch {
	case err == nil:
		h.breaker.Success()
		h.logger.Info("successfully processed command",
			zap.String("request_id", req.IdempotencyKey),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
			zap.Int("value_bytes", len(message.Value)),
		)
		return nil

	case domain.IsRejection(err):
		h.breaker.Success()
		reason := domain.RejectionReason(err)
		h.logger.Info("command rejected",
			zap.String("request_id", req.IdempotencyKey),
			zap.String("reason", reason),
			zap.Error(err),
		)
		if h.rejections == nil {
			return nil
		}
		if perr := h.rejections.OrderRejected(ctx, req.IdempotencyKey, req.CustomerID, reason, err.Error()); perr != nil {
			h.logger.Warn("can't publish order rejected event",
				zap.String("request_id", req.IdempotencyKey),
				zap.Error(perr),
			)
		}
		return nil

	default:
		h.logger.Error("create failed after retries",
			zap.String("request_id", req.IdempotencyKey),
			zap.Error(err),
			zap.Int("partition", message.Partition),
			zap.Int64("offset", message.Offset),
		)
		h.breaker.Failure()
		return fmt.Errorf("%w: %v", ErrCreate, err)
	}
}

// decode builds the create request. A command without request_id is keyed by
// its log position so a redelivery maps onto the same order.
func decode(message kafkago.Message) (domain.CreateOrderRequest, error) {
	var cmd PlaceOrderCommand
	if err := json.Unmarshal(message.Value, &cmd); err != nil {
		return domain.CreateOrderRequest{}, fmt.Errorf("%w: %v", ErrBadJSON, err)
	}
	if strings.TrimSpace(cmd.CustomerID) == "" {
		return domain.CreateOrderRequest{}, fmt.Errorf("%w: missing customer_id", ErrBadJSON)
	}

	key := strings.TrimSpace(cmd.RequestID)
	if key == "" {
		key = fmt.Sprintf("%s/%d/%d", message.Topic, message.Partition, message.Offset)
	}
	return domain.CreateOrderRequest{
		CustomerID:     cmd.CustomerID,
		Items:          cmd.Products,
		IdempotencyKey: key,
	}, nil
}
