package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
}

// TokenBucket is a request ceiling backed by golang.org/x/time/rate
type TokenBucket struct {
	inner *rate.Limiter
}

// NewTokenBucket allows capacity requests per period, refilled continuously
func NewTokenBucket(capacity int, period time.Duration) *TokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	return &TokenBucket{
		inner: rate.NewLimiter(rate.Every(period/time.Duration(capacity)), capacity),
	}
}

// PerMinute returns a limiter for n requests per minute with a burst of one,
// or nil when n is zero (no ceiling).
func PerMinute(n int) Limiter {
	if n <= 0 {
		return nil
	}
	return NewTokenBucket(1, time.Minute/time.Duration(n))
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.inner.Wait(ctx)
}
