// Package ratelimiter throttles outbound calls to external market-data providers.
package ratelimiter

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// RateLimiterInterface は、API呼び出しなどの操作の頻度を制限するインターフェースです。
type RateLimiterInterface interface {
	Wait(ctx context.Context) error
}

// RateLimiter allows at most limit calls per interval (fixed window).
// It is safe for concurrent use; callers that overflow a window are
// scheduled into the next one.
type RateLimiter struct {
	mu          sync.Mutex
	limit       int           // calls per window
	interval    time.Duration // window length
	count       int
	windowStart time.Time
	now         func() time.Time
}

// NewRateLimiter returns a limiter allowing limit calls per interval.
// A limit <= 0 disables limiting.
func NewRateLimiter(limit int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:       limit,
		interval:    interval,
		windowStart: time.Now(),
		now:         time.Now,
	}
}

// Wait blocks until the caller may issue its next call or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl.limit <= 0 || rl.interval <= 0 {
		return ctx.Err()
	}

	rl.mu.Lock()
	now := rl.now()
	// interval を過ぎたらカウントリセット
	if now.Sub(rl.windowStart) >= rl.interval {
		rl.windowStart = now
		rl.count = 0
	}
	if rl.count >= rl.limit {
		rl.windowStart = rl.windowStart.Add(rl.interval)
		rl.count = 0
	}
	rl.count++
	wait := rl.windowStart.Sub(now)
	rl.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}

	slog.Info("rate limit reached, waiting", "limit", rl.limit, "interval", rl.interval, "wait", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Noop never waits. Useful in tests and for providers without quotas.
type Noop struct{}

// Wait returns immediately unless ctx is already done.
func (Noop) Wait(ctx context.Context) error { return ctx.Err() }
