package util

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces calls evenly at a fixed number per minute, holding at
// most one token. A nil *RateLimiter never blocks.
type RateLimiter struct {
	interval time.Duration
	next     time.Time // earliest time the next call may proceed
	now      func() time.Time
	mu       sync.Mutex
}

// NewRateLimiter creates a RateLimiter that allows perMinute calls per
// minute. It returns nil, an unlimited limiter, when perMinute <= 0.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		interval: time.Minute / time.Duration(perMinute),
		now:      time.Now,
	}
}

// Interval returns the spacing enforced between calls.
func (rl *RateLimiter) Interval() time.Duration {
	if rl == nil {
		return 0
	}
	return rl.interval
}

// Wait blocks until the caller may proceed or ctx is cancelled.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	if rl == nil {
		return ctx.Err()
	}

	rl.mu.Lock()
	now := rl.now()
	wait := rl.next.Sub(now)
	if wait < 0 {
		wait = 0
		rl.next = now
	}
	rl.next = rl.next.Add(rl.interval)
	rl.mu.Unlock()

	return Sleep(ctx, wait)
}
