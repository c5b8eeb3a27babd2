// FILE: logweave/src/internal/ratelimit/limiter.go
package ratelimit

import (
	"fmt"
	"sync/atomic"
	"time"

	"logweave/src/internal/tokenbucket"
)

// Config bounds the entry rate of one writer
type Config struct {
	// Rate is entries per second; zero disables the limiter
	Rate float64
	// Burst defaults to Rate
	Burst float64
}

// Limiter drops entries beyond a sustained rate
type Limiter struct {
	bucket *tokenbucket.TokenBucket
	cfg    Config

	droppedCount atomic.Uint64
}

// New creates a limiter. A zero rate returns nil, which allows everything.
func New(cfg Config) (*Limiter, error) {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock is New with an injectable time source
func NewWithClock(cfg Config, now func() time.Time) (*Limiter, error) {
	if cfg.Rate < 0 || cfg.Burst < 0 {
		return nil, fmt.Errorf("rate and burst must not be negative")
	}
	if cfg.Rate == 0 {
		return nil, nil
	}
	if cfg.Burst == 0 {
		cfg.Burst = cfg.Rate
	}

	return &Limiter{
		bucket: tokenbucket.NewWithClock(cfg.Burst, cfg.Rate, now),
		cfg:    cfg,
	}, nil
}

// Allow reports whether one more entry may pass
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	if l.bucket.Allow() {
		return true
	}
	l.droppedCount.Add(1)
	return false
}

func (l *Limiter) Stats() map[string]any {
	if l == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled":       true,
		"rate":          l.cfg.Rate,
		"burst":         l.cfg.Burst,
		"tokens":        l.bucket.Tokens(),
		"dropped_total": l.droppedCount.Load(),
	}
}
