package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Wait blocks until a token is available or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket refills continuously at a fixed rate up to its burst size
type TokenBucket struct {
	mu       sync.Mutex
	capacity float64
	tokens   float64
	interval time.Duration // time to earn one token
	last     time.Time
	now      func() time.Time
}

// NewTokenBucket creates a bucket allowing requestsPerMinute with the given burst
func NewTokenBucket(requestsPerMinute, burst int) *TokenBucket {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		capacity: float64(burst),
		tokens:   float64(burst),
		interval: time.Minute / time.Duration(requestsPerMinute),
		last:     time.Now(),
		now:      time.Now,
	}
}

// Wait blocks until a token is available or ctx is done
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		tb.mu.Lock()
		wait := tb.take()
		tb.mu.Unlock()

		if wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take consumes a token and returns 0, or returns how long until one is available.
// Callers must hold mu.
func (tb *TokenBucket) take() time.Duration {
	now := tb.now()
	elapsed := now.Sub(tb.last)
	if elapsed > 0 {
		tb.tokens += float64(elapsed) / float64(tb.interval)
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.last = now
	}

	if tb.tokens >= 1 {
		tb.tokens--
		return 0
	}

	missing := 1 - tb.tokens
	return time.Duration(missing * float64(tb.interval))
}

// Unlimited never blocks
type Unlimited struct{}

// Wait only reports cancellation
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
