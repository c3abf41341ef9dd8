package authpipeline

import (
	"sync"
	"time"
)

// breaker is a per-check circuit breaker: after threshold consecutive
// timeouts it opens for resetAfter, during which the check is skipped
// (treated as non-blocking) rather than attempted again.
type breaker struct {
	mu           sync.Mutex
	threshold    int
	resetAfter   time.Duration
	now          func() time.Time
	failureCount int
	openUntil    time.Time
}

func newBreaker(threshold int, resetAfter time.Duration) *breaker {
	return newBreakerWithClock(threshold, resetAfter, time.Now)
}

func newBreakerWithClock(threshold int, resetAfter time.Duration, now func() time.Time) *breaker {
	return &breaker{threshold: threshold, resetAfter: resetAfter, now: now}
}

// Open reports whether the breaker is currently tripped.
func (b *breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.openUntil.IsZero() {
		return false
	}
	if b.now().After(b.openUntil) {
		b.failureCount = 0
		b.openUntil = time.Time{}
		return false
	}
	return true
}

// RecordTimeout registers a timeout, tripping the breaker once threshold is
// reached.
func (b *breaker) RecordTimeout() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	if b.failureCount >= b.threshold {
		b.openUntil = b.now().Add(b.resetAfter)
	}
}

// RecordSuccess resets the consecutive-failure counter.
func (b *breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
}

// breakers guards one breaker per named check.
type breakers struct {
	mu        sync.Mutex
	perCheck  map[string]*breaker
	threshold int
	reset     time.Duration
	now       func() time.Time
}

func newBreakers(threshold int, reset time.Duration) *breakers {
	return &breakers{perCheck: make(map[string]*breaker), threshold: threshold, reset: reset, now: time.Now}
}

func (b *breakers) For(name string) *breaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	br, ok := b.perCheck[name]
	if !ok {
		br = newBreakerWithClock(b.threshold, b.reset, b.now)
		b.perCheck[name] = br
	}
	return br
}
