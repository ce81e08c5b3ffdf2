package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TemirB/wb-tech-orders/internal/domain"
	"github.com/TemirB/wb-tech-orders/internal/observability"
)

//go:generate mockgen -source internal/application/service/service.go -destination=internal/application/service/service_mock_test.go -package=service

type Cache interface {
	Set(*domain.Order)
	Get(string) (*domain.Order, bool)
}

type OrderReader interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
}

type Publisher interface {
	OrderCreated(ctx context.Context, order *domain.Order) error
}

type Idempotency interface {
	Begin(ctx context.Context, key string) (orderID string, claimed bool, err error)
	Complete(ctx context.Context, key, orderID string) error
	Release(ctx context.Context, key string) error
}

type Service struct {
	uow         domain.UnitOfWork
	orders      OrderReader
	cache       Cache
	publisher   Publisher
	idempotency Idempotency
	logger      *zap.Logger
	metrics     observability.Metrics
}

type Option func(*Service)

// WithPublisher announces every created order.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithIdempotency enables deduplication of create requests that carry a key.
func WithIdempotency(i Idempotency) Option {
	return func(s *Service) { s.idempotency = i }
}

func NewService(uow domain.UnitOfWork, orders OrderReader, cache Cache, logger *zap.Logger, metrics observability.Metrics, opts ...Option) *Service {
	s := &Service{
		uow:     uow,
		orders:  orders,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	o, _, err := s.CreateOrderWithStats(ctx, req)
	return o, err
}

// CreateOrderWithStats validates req, then creates the order and decrements
// stock in one unit of work. Nothing is written when an error is returned.
func (s *Service) CreateOrderWithStats(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, CreateStats, error) {
	var st CreateStats

	req = req.Canonical()
	if err := req.Validate(); err != nil {
		s.rejected(req, err)
		return nil, st, err
	}

	key := req.IdempotencyKey
	if key != "" && s.idempotency != nil {
		orderID, claimed, err := s.idempotency.Begin(ctx, key)
		if err != nil {
			s.logger.Warn("Idempotency key not claimed",
				zap.String("idempotency_key", key),
				zap.Error(err),
			)
			return nil, st, err
		}
		if !claimed {
			order, err := s.replay(ctx, key, orderID)
			if err != nil {
				return nil, st, err
			}
			st.Replayed = true
			return order, st, nil
		}
	} else {
		key = ""
	}

	items := req.MergedItems()

	t0 := time.Now()
	var order *domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context, repos domain.Repositories) error {
		var err error
		order, err = placeOrder(ctx, repos, req.CustomerID, items)
		return err
	})
	st.DBWriteMs = convertToMs(t0)

	if err != nil {
		s.release(key)
		if domain.IsRejection(err) {
			s.rejected(req, err)
			return nil, st, err
		}
		s.logger.Error("Error while creating order",
			zap.String("customer_id", req.CustomerID),
			zap.Int("items", len(items)),
			zap.Error(err),
		)
		return nil, st, err
	}

	s.cache.Set(order)
	s.metrics.ObserveCreate(st.DBWriteMs)

	s.complete(key, order.ID)
	if s.publisher != nil {
		if err := s.publisher.OrderCreated(ctx, order); err != nil {
			s.logger.Warn("Can't publish order created event",
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID),
		zap.String("customer_id", order.CustomerID()),
		zap.Int("lines", len(order.Lines)),
		zap.String("total", order.Total().StringFixed(2)),
		zap.Float64("db_write_ms", st.DBWriteMs),
	)
	return order, st, nil
}

func (s *Service) replay(ctx context.Context, key, orderID string) (*domain.Order, error) {
	order, _, err := s.FindOrderWithStats(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: idempotency key %s points at missing order %s",
			domain.ErrInternalInconsistency, key, orderID)
	}
	s.logger.Info("Order replayed for idempotency key",
		zap.String("idempotency_key", key),
		zap.String("order_id", orderID),
	)
	return order, nil
}

// complete records orderID under a claimed key. Like release it runs detached
// from the request context and tries twice. If both attempts fail the claim
// expires after the store's pending TTL.
func (s *Service) complete(key, orderID string) {
	if key == "" {
		return
	}
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = s.idempotency.Complete(ctx, key, orderID)
		cancel()
		if err == nil {
			return
		}
	}
	s.logger.Warn("Can't complete idempotency key",
		zap.String("idempotency_key", key),
		zap.String("order_id", orderID),
		zap.Error(err),
	)
}

// release frees a claimed key after a failed attempt. It must not inherit the
// request context, which may already be cancelled.
func (s *Service) release(key string) {
	if key == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.idempotency.Release(ctx, key); err != nil {
		s.logger.Warn("Can't release idempotency key",
			zap.String("idempotency_key", key),
			zap.Error(err),
		)
	}
}

func (s *Service) rejected(req domain.CreateOrderRequest, err error) {
	reason := domain.RejectionReason(err)
	s.metrics.IncRejected(reason)
	s.logger.Info("Order rejected",
		zap.String("customer_id", req.CustomerID),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// FindOrder returns found=false with a nil error when no order has id.
func (s *Service) FindOrder(ctx context.Context, id string) (*domain.Order, bool, error) {
	o, _, err := s.FindOrderWithStats(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return o, o != nil, nil
}

// FindOrderWithStats looks in the cache, then the store. An absent order is
// reported as a nil order, SourceNone and a nil error.
func (s *Service) FindOrderWithStats(ctx context.Context, id string) (*domain.Order, LookupStats, error) {
	var st LookupStats
	id = domain.CanonicalID(id)

	// Try cache
	tCacheStart := time.Now()
	if order, ok := s.cache.Get(id); ok {
		st.Source = SourceCache
		st.CacheMs = convertToMs(tCacheStart)
		s.metrics.IncCacheHit()
		s.metrics.ObserveLookup(string(st.Source), st.CacheMs, 0)

		s.logger.Debug("Order fetched from cache",
			zap.String("order_id", id),
			zap.Float64("cache_ms", st.CacheMs),
		)
		return order, st, nil
	}

	// Try DB
	s.metrics.IncCacheMiss()
	st.CacheMs = convertToMs(tCacheStart)

	tDbStart := time.Now()
	order, err := s.orders.FindByID(ctx, id)
	st.DBMs = convertToMs(tDbStart)
	if errors.Is(err, domain.ErrNotFound) {
		st.Source = SourceNone
		s.metrics.ObserveLookup(string(st.Source), st.CacheMs, st.DBMs)
		s.logger.Debug("Order not found", zap.String("order_id", id))
		return nil, st, nil
	}
	if err != nil {
		s.logger.Error("Can't find order",
			zap.String("order_id", id),
			zap.Error(err),
			zap.Float64("cache_ms", st.CacheMs),
		)
		return nil, st, fmt.Errorf("find order %s: %w", id, err)
	}

	st.Source = SourceDB
	s.cache.Set(order)

	s.metrics.ObserveLookup(string(st.Source), st.CacheMs, st.DBMs)
	s.logger.Debug("Order fetched from DB",
		zap.String("order_id", id),
		zap.Float64("cache_ms", st.CacheMs),
		zap.Float64("db_ms", st.DBMs),
	)
	return order, st, nil
}
