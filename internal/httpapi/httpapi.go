package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/TemirB/wb-tech-orders/internal/application/service"
	"github.com/TemirB/wb-tech-orders/internal/domain"
	"github.com/TemirB/wb-tech-orders/internal/observability"
)

//go:generate mockgen -source internal/httpapi/httpapi.go -destination=internal/httpapi/httpapi_mock_test.go -package=httpapi

const maxBodyBytes = 1 << 20

type ServerWithStats interface {
	FindOrderWithStats(ctx context.Context, id string) (*domain.Order, service.LookupStats, error)
	CreateOrderWithStats(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, service.CreateStats, error)
}

type Server struct {
	service ServerWithStats
	router  chi.Router
	logger  *zap.Logger
	metrics observability.Metrics
}

// New builds the router. metricsHandler is mounted on /metrics when not nil.
func New(service ServerWithStats, logger *zap.Logger, metrics observability.Metrics, metricsHandler http.Handler) *Server {
	s := &Server{
		service: service,
		logger:  logger,
		metrics: metrics,
	}
	s.routes(metricsHandler)
	return s
}

func (s *Server) routes(metricsHandler http.Handler) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(ServerTimingApp(s.metrics))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", s.createOrder)
		r.Get("/{id}", s.getOrder)
	})
	s.router = r
}

func (s *Server) getOrder(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "order id required")
		return
	}

	order, st, err := s.service.FindOrderWithStats(r.Context(), id)
	if err != nil {
		s.logger.Error("Error while finding order",
			zap.String("order_id", id),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "service error")
		return
	}

	observability.WriteLookupHeaders(w, string(st.Source), st.CacheMs, st.DBMs)

	if order == nil {
		writeError(w, http.StatusNotFound, "no order with this id")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	var req domain.CreateOrderRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		s.logger.Warn("Error while decoding JSON", zap.Error(err))
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if strings.TrimSpace(req.CustomerID) == "" {
		writeError(w, http.StatusBadRequest, "customer_id is required")
		return
	}
	req.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))

	order, st, err := s.service.CreateOrderWithStats(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			writeError(w, status, "service error")
			return
		}
		writeError(w, status, err.Error())
		return
	}

	observability.AppendServerTiming(w, "db_write", st.DBWriteMs, "")
	w.Header().Set("Location", "/orders/"+order.ID)
	if st.Replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		writeJSON(w, http.StatusOK, order)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrCustomerNotFound),
		errors.Is(err, domain.ErrProductsNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrRequestInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoItems),
		errors.Is(err, domain.ErrInvalidQuantity):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	return srv.ListenAndServe()
}

func (s *Server) Handler() http.Handler { return s.router }
