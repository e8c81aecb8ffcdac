package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound requests.
type Limiter interface {
	// Allow reports whether a request may proceed right now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset refills the bucket
	Reset()
}

// TokenBucket is a Limiter backed by golang.org/x/time/rate.
type TokenBucket struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewTokenBucket allows burst requests at once and refills one token every
// interval.
func NewTokenBucket(burst int, interval time.Duration) *TokenBucket {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &TokenBucket{
		limiter: rate.NewLimiter(limit, burst),
		limit:   limit,
		burst:   burst,
	}
}

// NewPerMinute builds a TokenBucket from a requests-per-minute budget.
func NewPerMinute(requestsPerMinute, burst int) *TokenBucket {
	if requestsPerMinute <= 0 {
		return NewTokenBucket(burst, 0)
	}
	return NewTokenBucket(burst, time.Minute/time.Duration(requestsPerMinute))
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}

func (tb *TokenBucket) Allow() bool {
	return tb.current().Allow()
}

func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.current().Wait(ctx)
}

func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(tb.limit, tb.burst)
}

// Keyed keeps one TokenBucket per key, typically a request host, so media
// CDN traffic does not starve structured-data lookups.
type Keyed struct {
	mu       sync.Mutex
	buckets  map[string]*TokenBucket
	burst    int
	interval time.Duration
}

// NewKeyed creates a keyed limiter where each key gets its own bucket.
func NewKeyed(burst int, interval time.Duration) *Keyed {
	return &Keyed{
		buckets:  make(map[string]*TokenBucket),
		burst:    burst,
		interval: interval,
	}
}

// For returns the bucket for key, creating it on first use.
func (k *Keyed) For(key string) *TokenBucket {
	k.mu.Lock()
	defer k.mu.Unlock()

	b, ok := k.buckets[key]
	if !ok {
		b = NewTokenBucket(k.burst, k.interval)
		k.buckets[key] = b
	}
	return b
}

// Wait blocks on the bucket for key.
func (k *Keyed) Wait(ctx context.Context, key string) error {
	return k.For(key).Wait(ctx)
}

// Unlimited never blocks. Used when rate limiting is switched off and in tests.
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}
