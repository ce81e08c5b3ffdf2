package observability

import "sync"

type observe struct {
	Kind    string
	Source  string
	Method  string
	Route   string
	Status  int
	CacheMs float64
	DBMs    float64
	DurMs   float64
	OK      bool
}

// Totals are the running counters kept by Inmem.
type Totals struct {
	CacheHits  int
	CacheMiss  int
	Rejections map[string]int
}

// Inmem keeps the last max observations and running counters.
type Inmem struct {
	mu     sync.Mutex
	last   []*observe
	max    int
	totals struct {
		cacheHits, cacheMiss int
		rejected             map[string]int
	}
}

func NewInmem(max int) *Inmem {
	return &Inmem{
		max: max,
	}
}

func (m *Inmem) push(v *observe) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = append(m.last, v)
	if len(m.last) > m.max {
		m.last = m.last[1:]
	}
}

func (m *Inmem) ObserveLookup(source string, cacheMs, dbMs float64) {
	m.push(&observe{Kind: "lookup", Source: source, CacheMs: cacheMs, DBMs: dbMs})
}

func (m *Inmem) ObserveCreate(dbWriteMs float64) {
	m.push(&observe{Kind: "create", DBMs: dbWriteMs})
}

func (m *Inmem) ObserveHTTP(method, route string, status int, durMs float64) {
	m.push(&observe{Kind: "http", Method: method, Route: route, Status: status, DurMs: durMs})
}

func (m *Inmem) ObserveKafka(processMs float64, ok bool) {
	m.push(&observe{Kind: "kafka", DurMs: processMs, OK: ok})
}

func (m *Inmem) IncCacheHit() {
	m.mu.Lock()
	m.totals.cacheHits++
	m.mu.Unlock()
}

func (m *Inmem) IncCacheMiss() {
	m.mu.Lock()
	m.totals.cacheMiss++
	m.mu.Unlock()
}

func (m *Inmem) IncRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.totals.rejected == nil {
		m.totals.rejected = make(map[string]int)
	}
	m.totals.rejected[reason]++
}

func (m *Inmem) Totals() Totals {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := Totals{
		CacheHits:  m.totals.cacheHits,
		CacheMiss:  m.totals.cacheMiss,
		Rejections: make(map[string]int, len(m.totals.rejected)),
	}
	for k, v := range m.totals.rejected {
		t.Rejections[k] = v
	}
	return t
}

// Kinds lists the kinds of the retained observations, oldest first.
func (m *Inmem) Kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.last))
	for i, o := range m.last {
		out[i] = o.Kind
	}
	return out
}
