package service

import "time"

type LookupSource string

const (
	SourceCache LookupSource = "cache"
	SourceDB    LookupSource = "db"
	// SourceNone marks a lookup that found nothing.
	SourceNone LookupSource = "none"
)

type LookupStats struct {
	Source  LookupSource
	CacheMs float64
	DBMs    float64
}

type CreateStats struct {
	DBWriteMs float64
	// Replayed is set when an idempotency key returned an earlier order.
	Replayed bool
}

func convertToMs(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
