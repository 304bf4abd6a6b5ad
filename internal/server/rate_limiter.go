// Package server throttles per-connection update frequency so one chatty
// client cannot monopolize the hub's inbound queue.
package server

import (
	"math"
	"sync"
	"time"
)

// tokenBucket admits up to burst frames at once and refills continuously at
// burst-per-interval. Each connection carries its own bucket; a depleted
// bucket means the frame is discarded while the connection stays open.
type tokenBucket struct {
	mu     sync.Mutex
	tokens float64
	burst  float64
	perSec float64
	last   time.Time
}

func newTokenBucket(burst int, interval time.Duration) *tokenBucket {
	if burst <= 0 {
		burst = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	return &tokenBucket{
		tokens: float64(burst),
		burst:  float64(burst),
		perSec: float64(burst) / interval.Seconds(),
		last:   time.Now(),
	}
}

// allow consumes one token if available, crediting refill for the time since
// the previous call first.
func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(tb.last).Seconds(); elapsed > 0 {
		tb.tokens = math.Min(tb.burst, tb.tokens+elapsed*tb.perSec)
	}
	tb.last = now

	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}
