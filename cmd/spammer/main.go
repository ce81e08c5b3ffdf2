package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/TemirB/wb-tech-orders/internal/application/handler"
	"github.com/TemirB/wb-tech-orders/internal/database/memory"
	"github.com/TemirB/wb-tech-orders/internal/domain"
)

// Spammer publishes random place-order commands against the demo catalog.
type Spammer struct {
	writer    *kafka.Writer
	logger    *zap.Logger
	isRunning atomic.Bool
	wg        sync.WaitGroup
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	totalSent atomic.Int64
}

type SpamRequest struct {
	Rate     int    `json:"rate"`
	Duration string `json:"duration"`
}

func NewSpammer(brokers []string, topic string, logger *zap.Logger) *Spammer {
	ctx, cancel := context.WithCancel(context.Background())

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}

	return &Spammer{
		writer:    writer,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Spammer) StartSpam(rate int, duration time.Duration) {
	if !s.isRunning.CompareAndSwap(false, true) {
		return
	}
	s.totalSent.Store(0)

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()

	s.logger.Info("Starting spam", zap.Int("rate", rate), zap.Duration("duration", duration))

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.isRunning.Store(false)

		ticker := time.NewTicker(time.Second / time.Duration(rate))
		defer ticker.Stop()

		timer := time.NewTimer(duration)
		defer timer.Stop()

		for {
			select {
			case <-ticker.C:
				cmd := generateCommand()
				value, err := json.Marshal(cmd)
				if err != nil {
					s.logger.Error("Error marshaling command", zap.Error(err))
					continue
				}

				err = s.writer.WriteMessages(ctx, kafka.Message{
					Key:   []byte(cmd.CustomerID),
					Value: value,
					Time:  time.Now(),
				})
				if err != nil {
					s.logger.Warn("Error sending command to Kafka", zap.Error(err))
				} else {
					s.totalSent.Add(1)
				}

			case <-timer.C:
				s.logger.Info("Spam completed", zap.Int64("total_sent", s.totalSent.Load()))
				return

			case <-ctx.Done():
				s.logger.Info("Spam stopped", zap.Int64("total_sent", s.totalSent.Load()))
				return
			}
		}
	}()
}

func (s *Spammer) StopSpam() {
	if !s.isRunning.Load() {
		return
	}
	s.mu.Lock()
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()

	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()
}

func (s *Spammer) Close() {
	s.StopSpam()
	_ = s.writer.Close()
}

var demoProducts = []string{memory.DemoKeyboardID, memory.DemoMouseID, memory.DemoMonitorID}

// generateCommand mostly asks for small amounts of the demo products. Some
// commands name an unknown product or a huge quantity to exercise rejections.
func generateCommand() handler.PlaceOrderCommand {
	n := rand.Intn(len(demoProducts)) + 1
	items := make([]domain.RequestedItem, 0, n+1)
	for _, i := range rand.Perm(len(demoProducts))[:n] {
		items = append(items, domain.RequestedItem{
			ProductID: demoProducts[i],
			Quantity:  rand.Intn(3) + 1,
		})
	}

	switch rand.Intn(20) {
	case 0:
		items = append(items, domain.RequestedItem{ProductID: uuid.NewString(), Quantity: 1})
	case 1:
		items[0].Quantity = 100000
	}

	return handler.PlaceOrderCommand{
		RequestID:  uuid.NewString(),
		CustomerID: memory.DemoCustomerID,
		Products:   items,
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	brokers := []string{"kafka:9092"}
	if envBrokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); envBrokers != "" {
		brokers = strings.Split(envBrokers, ",")
	}

	topic := "orders.place"
	if envTopic := os.Getenv("KAFKA_COMMAND_TOPIC"); envTopic != "" {
		topic = envTopic
	}

	spammer := NewSpammer(brokers, topic, logger)
	defer spammer.Close()

	r := chi.NewRouter()
	r.Post("/start", func(w http.ResponseWriter, req *http.Request) {
		var body SpamRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if body.Rate <= 0 {
			body.Rate = 10
		}

		duration, err := time.ParseDuration(body.Duration)
		if err != nil {
			http.Error(w, "Invalid duration format: "+err.Error(), http.StatusBadRequest)
			return
		}

		spammer.StartSpam(body.Rate, duration)
		writeJSON(w, map[string]any{
			"status":   "started",
			"rate":     body.Rate,
			"duration": duration.String(),
		})
	})

	r.Post("/stop", func(w http.ResponseWriter, _ *http.Request) {
		spammer.StopSpam()
		writeJSON(w, map[string]any{
			"status":     "stopped",
			"total_sent": spammer.totalSent.Load(),
		})
	})

	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"is_running": spammer.isRunning.Load(),
			"total_sent": spammer.totalSent.Load(),
		})
	})

	port := ":8082"
	if envPort := os.Getenv("SPAMMER_PORT"); envPort != "" {
		port = ":" + envPort
	}

	logger.Info("Spammer server started", zap.String("addr", port), zap.Strings("brokers", brokers), zap.String("topic", topic))
	if err := http.ListenAndServe(port, r); err != nil {
		logger.Fatal("spammer server", zap.Error(err))
	}
}
