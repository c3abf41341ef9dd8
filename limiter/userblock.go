package limiter

import (
	"sync"
	"time"
)

// UserBlockTTL is the self-healing duration after which a block automatically clears.
const UserBlockTTL = 30 * time.Second

// UserBlock is a boolean lock per key that self-heals after UserBlockTTL,
// guarding against a stuck "true" left behind by a crashed handler.
type UserBlock struct {
	mu      sync.Mutex
	blocked map[string]time.Time
	now     func() time.Time
}

// NewUserBlock creates a user-block limiter.
func NewUserBlock() *UserBlock {
	return NewUserBlockWithClock(time.Now)
}

// NewUserBlockWithClock creates a user-block limiter with an injectable clock for tests.
func NewUserBlockWithClock(now func() time.Time) *UserBlock {
	return &UserBlock{
		blocked: make(map[string]time.Time),
		now:     now,
	}
}

// Check returns false only when key is blocked and the block was set less
// than UserBlockTTL ago; otherwise it returns true.
func (b *UserBlock) Check(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	setAt, ok := b.blocked[key]
	if !ok {
		return true
	}
	return b.now().Sub(setAt) >= UserBlockTTL
}

// SetTrue blocks key starting now.
func (b *UserBlock) SetTrue(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked[key] = b.now()
}

// SetFalse clears the block on key.
func (b *UserBlock) SetFalse(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blocked, key)
}
