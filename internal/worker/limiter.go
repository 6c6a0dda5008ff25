package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ppiankov/wordrules/internal/model"
)

const defaultBurst = 1

// Limiter paces oracle calls with one token bucket per provider name.
// It satisfies pipeline.Throttle.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*rate.Limiter
	fallback  model.RateLimit
	overrides map[string]model.RateLimit
}

// NewLimiter builds a limiter from the rate limiting config
func NewLimiter(cfg model.RateLimitingConfig) *Limiter {
	overrides := make(map[string]model.RateLimit, len(cfg.Providers))
	for name, limit := range cfg.Providers {
		overrides[name] = limit
	}
	return &Limiter{
		buckets:   make(map[string]*rate.Limiter),
		fallback:  cfg.RateLimit,
		overrides: overrides,
	}
}

// Wait blocks until provider may make another call or ctx ends
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	return l.bucket(provider).Wait(ctx)
}

// Allow reports whether provider may call now without waiting
func (l *Limiter) Allow(provider string) bool {
	return l.bucket(provider).Allow()
}

// Limit returns the effective settings for provider
func (l *Limiter) Limit(provider string) model.RateLimit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limitLocked(provider)
}

func (l *Limiter) limitLocked(provider string) model.RateLimit {
	limit, ok := l.overrides[provider]
	if !ok {
		limit = l.fallback
	}
	if limit.BurstSize <= 0 {
		limit.BurstSize = defaultBurst
	}
	return limit
}

func (l *Limiter) bucket(provider string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[provider]; ok {
		return b
	}

	limit := l.limitLocked(provider)
	every := rate.Inf
	if limit.RequestsPerSecond > 0 {
		every = rate.Limit(limit.RequestsPerSecond)
	}
	b := rate.NewLimiter(every, limit.BurstSize)
	l.buckets[provider] = b
	return b
}
