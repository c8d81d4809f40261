package ynab

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	stopCh   chan struct{}
	tokens   int
	capacity int
	interval time.Duration
	mu       sync.Mutex
	stopOnce sync.Once
}

// newRateLimiter creates a limiter allowing requestsPerHour calls, refilled
// one token at a time.
func newRateLimiter(requestsPerHour int) *rateLimiter {
	if requestsPerHour <= 0 {
		requestsPerHour = DefaultRequestsPerHour
	}

	rl := &rateLimiter{
		tokens:   requestsPerHour,
		capacity: requestsPerHour,
		interval: time.Hour / time.Duration(requestsPerHour),
		stopCh:   make(chan struct{}),
	}

	go rl.refill()

	return rl
}

// wait blocks until a token is available or the context is canceled.
func (rl *rateLimiter) wait(ctx context.Context) error {
	if rl.tryAcquire() {
		return nil
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-ticker.C:
			if rl.tryAcquire() {
				return nil
			}
		}
	}
}

func (rl *rateLimiter) tryAcquire() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.tokens > 0 {
		rl.tokens--
		return true
	}
	return false
}

func (rl *rateLimiter) refill() {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			if rl.tokens < rl.capacity {
				rl.tokens++
			}
			rl.mu.Unlock()
		}
	}
}

// available returns the current number of tokens.
func (rl *rateLimiter) available() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tokens
}

// close stops the refill goroutine. It is safe to call more than once.
func (rl *rateLimiter) close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}
