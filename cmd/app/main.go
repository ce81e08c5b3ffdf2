package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TemirB/wb-tech-orders/internal/application/handler"
	"github.com/TemirB/wb-tech-orders/internal/application/service"
	"github.com/TemirB/wb-tech-orders/internal/cache"
	"github.com/TemirB/wb-tech-orders/internal/config"
	"github.com/TemirB/wb-tech-orders/internal/database"
	"github.com/TemirB/wb-tech-orders/internal/database/memory"
	"github.com/TemirB/wb-tech-orders/internal/domain"
	"github.com/TemirB/wb-tech-orders/internal/httpapi"
	"github.com/TemirB/wb-tech-orders/internal/idempotency"
	"github.com/TemirB/wb-tech-orders/internal/kafka"
	"github.com/TemirB/wb-tech-orders/internal/observability"
	"github.com/TemirB/wb-tech-orders/internal/pkg/breaker"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("orders service stopped with error", zap.Error(err))
	}
	logger.Info("orders service stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}

type orderReader interface {
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	RecentOrderIDs(ctx context.Context, limit int) ([]string, error)
}

type storage struct {
	uow    domain.UnitOfWork
	orders orderReader
	close  func()
}

func openStorage(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage, error) {
	if cfg.Storage == config.StorageMemory {
		s := memory.New()
		s.SeedDemo()
		logger.Info("using in-memory storage with demo catalog",
			zap.String("customer_id", memory.DemoCustomerID),
		)
		return storage{uow: s, orders: s.Orders(), close: func() {}}, nil
	}

	pool, err := database.Connect(ctx, cfg.DSN(), cfg.Pg.MaxConns, logger)
	if err != nil {
		return storage{}, fmt.Errorf("connect postgres: %w", err)
	}
	if err := database.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return storage{}, fmt.Errorf("migrate: %w", err)
	}
	s := database.NewStore(pool)
	return storage{uow: s, orders: s.Orders(), close: pool.Close}, nil
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewPrometheus(registry)

	orderCache, err := cache.New(cfg.CacheCap)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	warmed := orderCache.Warm(ctx, st.orders)
	logger.Info("cache warmed", zap.Int("orders", warmed), zap.Int("capacity", cfg.CacheCap))

	var opts []service.Option
	if cfg.Redis.Enabled() {
		rdb := idempotency.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		opts = append(opts, service.WithIdempotency(idempotency.New(rdb, cfg.Redis.KeyTTL, cfg.Redis.PendingTTL)))
		logger.Info("idempotency keys enabled", zap.String("redis", cfg.Redis.Addr))
	}

	var publisher *kafka.EventPublisher
	if cfg.Kafka.Enabled() {
		publisher = kafka.NewEventPublisher(
			kafka.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.EventTopic),
			cfg.ServiceName,
			logger.Named("publisher"),
		)
		defer func() { _ = publisher.Close() }()
		opts = append(opts, service.WithPublisher(publisher))
	}

	svc := service.NewService(st.uow, st.orders, orderCache, logger.Named("service"), metrics, opts...)

	var wg sync.WaitGroup
	if cfg.Kafka.Enabled() {
		if err := kafka.EnsureTopics(ctx, cfg.Kafka, logger.Named("kafka")); err != nil {
			return err
		}

		reader := kafka.NewReader(cfg.Kafka)
		defer func() { _ = reader.Close() }()

		h := handler.NewHandler(svc, breaker.New(cfg.Breaker), publisher, cfg.Retry, metrics, logger.Named("handler"))
		consumer := kafka.NewConsumer(h, reader, cfg.Kafka.Workers, logger.Named("consumer"))

		wg.Add(1)
		go func() {
			defer wg.Done()
			consumer.Start(ctx)
		}()
	}

	api := httpapi.New(svc, logger.Named("http"), metrics, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.Storage))

	err = api.ListenAndServe(ctx, cfg.HTTPAddr)
	// The consumer stops with the server, even when the listener failed.
	cancel()
	wg.Wait()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
