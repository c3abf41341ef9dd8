package limiter

import (
	"sync"
	"time"
)

// dailyCounter tracks a count and the calendar day it was last reset on.
type dailyCounter struct {
	count   int
	day     string
	maxSeen int
}

// Count enforces a maximum number of occurrences per key per calendar day,
// reset at local-midnight in the configured timezone.
type Count struct {
	mu       sync.Mutex
	counters map[string]*dailyCounter
	max      int
	loc      *time.Location
	now      func() time.Time
}

// NewCount creates a count limiter allowing max occurrences per day, per key.
func NewCount(max int, loc *time.Location) *Count {
	return NewCountWithClock(max, loc, time.Now)
}

// NewCountWithClock creates a count limiter with an injectable clock for tests.
func NewCountWithClock(max int, loc *time.Location, now func() time.Time) *Count {
	if loc == nil {
		loc = time.UTC
	}
	return &Count{
		counters: make(map[string]*dailyCounter),
		max:      max,
		loc:      loc,
		now:      now,
	}
}

func (c *Count) dayKey() string {
	return c.now().In(c.loc).Format("2006-01-02")
}

// Check reports whether key is still under its daily limit.
func (c *Count) Check(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	counter := c.resetIfNewDay(key)
	return counter.count < c.max
}

// Increase records one more occurrence for key.
func (c *Count) Increase(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	counter := c.resetIfNewDay(key)
	counter.count++
}

// Remaining returns how many more occurrences key is allowed today.
func (c *Count) Remaining(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	counter := c.resetIfNewDay(key)
	remaining := c.max - counter.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// resetIfNewDay must be called with the lock held.
func (c *Count) resetIfNewDay(key string) *dailyCounter {
	today := c.dayKey()

	counter, ok := c.counters[key]
	if !ok {
		counter = &dailyCounter{day: today}
		c.counters[key] = counter
		return counter
	}

	if counter.day != today {
		counter.day = today
		counter.count = 0
	}
	return counter
}
