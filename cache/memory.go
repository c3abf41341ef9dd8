package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// defaultMemoryCapacity bounds the number of entries the in-memory backend
// retains; eviction beyond that point is LRU.
const defaultMemoryCapacity = 8192

// memoryBackend is the in-process cache backend, backed by an expiring LRU.
// Because entries may carry per-call TTLs, it wraps the LRU's own bookkeeping
// with one entry per stored value plus an explicit expiry so a longer-than-
// default TTL (or no TTL) can still be honored per Set call.
type memoryBackend struct {
	lru *expirable.LRU[string, memoryEntry]
}

type memoryEntry struct {
	value   any
	expires time.Time // zero means no expiry
}

// NewMemoryBackend creates an in-memory cache backend with the given default
// per-entry TTL ceiling. Individual Set calls with a shorter TTL still expire
// sooner; Set calls with a longer or zero TTL are capped at ceiling to bound
// memory growth (zero ceiling disables the bound).
func NewMemoryBackend(ceiling time.Duration) Backend {
	return &memoryBackend{
		lru: expirable.NewLRU[string, memoryEntry](defaultMemoryCapacity, nil, ceiling),
	}
}

func (b *memoryBackend) Get(_ context.Context, key string) (any, bool, error) {
	entry, ok := b.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if !entry.expires.IsZero() && time.Now().After(entry.expires) {
		b.lru.Remove(key)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (b *memoryBackend) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expires = time.Now().Add(ttl)
	}
	b.lru.Add(key, entry)
	return nil
}

func (b *memoryBackend) Delete(_ context.Context, key string) error {
	b.lru.Remove(key)
	return nil
}

func (b *memoryBackend) Clear(_ context.Context, prefix string) error {
	for _, key := range b.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			b.lru.Remove(key)
		}
	}
	return nil
}
