package observability

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Prometheus exports the service metrics. Durations arrive in milliseconds
// and are recorded in seconds.
type Prometheus struct {
	lookups     *prometheus.HistogramVec
	creates     prometheus.Histogram
	httpReqs    *prometheus.HistogramVec
	kafkaMsgs   *prometheus.HistogramVec
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	rejected    *prometheus.CounterVec
}

func NewPrometheus(registerer prometheus.Registerer) *Prometheus {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Prometheus{
		lookups: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_lookup_duration_seconds",
			Help:    "Order lookup duration by source",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}),
		creates: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "orders_create_duration_seconds",
			Help:    "Duration of the order creation unit of work",
			Buckets: prometheus.DefBuckets,
		}),
		httpReqs: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		kafkaMsgs: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_kafka_message_duration_seconds",
			Help:    "Kafka command processing duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"result"}),
		cacheHits: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_cache_hits_total",
			Help: "Order cache hits",
		}),
		cacheMisses: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_cache_misses_total",
			Help: "Order cache misses",
		}),
		rejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "Create requests rejected by reason",
		}, []string{"reason"}),
	}
}

func (p *Prometheus) ObserveLookup(source string, cacheMs, dbMs float64) {
	p.lookups.WithLabelValues(source).Observe((cacheMs + dbMs) / 1000)
}

func (p *Prometheus) ObserveCreate(dbWriteMs float64) {
	p.creates.Observe(dbWriteMs / 1000)
}

func (p *Prometheus) ObserveHTTP(method, route string, status int, durMs float64) {
	p.httpReqs.WithLabelValues(method, route, strconv.Itoa(status)).Observe(durMs / 1000)
}

func (p *Prometheus) ObserveKafka(processMs float64, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	p.kafkaMsgs.WithLabelValues(result).Observe(processMs / 1000)
}

func (p *Prometheus) IncCacheHit()  { p.cacheHits.Inc() }
func (p *Prometheus) IncCacheMiss() { p.cacheMisses.Inc() }

func (p *Prometheus) IncRejected(reason string) {
	p.rejected.WithLabelValues(reason).Inc()
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}
