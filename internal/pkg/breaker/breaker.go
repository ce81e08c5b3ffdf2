package breaker

import (
	"errors"
	"sync"
	"time"

	"github.com/TemirB/wb-tech-orders/internal/config"
)

var ErrOpenState = errors.New("circuit breaker is open")

type State uint8

const (
	Closed   State = iota // normal operation
	Open                  // requests rejected until OpenTimeout passes
	HalfOpen              // up to MaxHalfOpen trial requests
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// Breaker opens after Threshold consecutive failures in Closed state.
// Callers report outcomes with Success/Failure.
type Breaker struct {
	mu         sync.Mutex
	cfg        config.Breaker
	state      State
	failCount  uint32
	lastChange time.Time
	trial      uint32

	now func() time.Time
}

func New(cfg config.Breaker) *Breaker {
	if cfg.Threshold == 0 {
		cfg.Threshold = 1
	}
	return &Breaker{
		cfg:        cfg,
		state:      Closed,
		lastChange: time.Now(),
		now:        time.Now,
	}
}

// Allow returns ErrOpenState while the circuit is open or the half-open trial
// budget is spent. It moves Open to HalfOpen once OpenTimeout has passed.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case Open:
		if now.Sub(b.lastChange) < b.cfg.OpenTimeout {
			return ErrOpenState
		}
		b.transitionTo(now, HalfOpen)
		b.trial++
		return nil
	case HalfOpen:
		if b.trial >= b.cfg.MaxHalfOpen {
			return ErrOpenState
		}
		b.trial++
		return nil
	default:
		return nil
	}
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.transitionTo(b.now(), Closed)
	case Closed:
		b.failCount = 0
	}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case HalfOpen:
		b.transitionTo(now, Open)
	case Closed:
		b.failCount++
		if b.failCount >= b.cfg.Threshold {
			b.transitionTo(now, Open)
		}
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) transitionTo(now time.Time, next State) {
	b.state = next
	b.lastChange = now
	b.trial = 0
	if next == Closed {
		b.failCount = 0
	}
}
