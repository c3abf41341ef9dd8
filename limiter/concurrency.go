package limiter

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Concurrency caps the number of simultaneously in-flight operations per key
// using a buffered-channel semaphore.
type Concurrency struct {
	mu    sync.Mutex
	sems  map[string]chan struct{}
	active map[string]int
	cap   int
	log   *zap.SugaredLogger
}

// NewConcurrency creates a concurrency limiter with the given per-key capacity.
func NewConcurrency(capacity int, log *zap.SugaredLogger) *Concurrency {
	return &Concurrency{
		sems:   make(map[string]chan struct{}),
		active: make(map[string]int),
		cap:    capacity,
		log:    log,
	}
}

func (c *Concurrency) semFor(key string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	sem, ok := c.sems[key]
	if !ok {
		sem = make(chan struct{}, c.cap)
		c.sems[key] = sem
	}
	return sem
}

// Acquire blocks until a permit for key is available or ctx is cancelled.
func (c *Concurrency) Acquire(ctx context.Context, key string) error {
	sem := c.semFor(key)

	select {
	case sem <- struct{}{}:
		c.mu.Lock()
		c.active[key]++
		c.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns one permit for key. Releasing with no active permits is a
// programmer error in the caller; it is logged and otherwise a no-op.
func (c *Concurrency) Release(key string) {
	c.mu.Lock()
	if c.active[key] <= 0 {
		c.mu.Unlock()
		if c.log != nil {
			c.log.Warnw("concurrency limiter release with no active permits", "key", key)
		}
		return
	}
	c.active[key]--
	sem := c.sems[key]
	c.mu.Unlock()

	select {
	case <-sem:
	default:
	}
}

// Active returns the number of currently held permits for key.
func (c *Concurrency) Active(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[key]
}
