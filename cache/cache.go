// Package cache provides a typed key-value front for the store, with
// namespaced composite keys, TTL expiry, negative-result caching, and
// per-namespace hit/miss statistics. Backends: in-memory (LRU with TTL),
// remote (Redis-backed), and none (every op is a no-op).
package cache

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// nullSentinel marks a negative-cache entry: the underlying row is known not
// to exist, so repeat lookups are shielded from hitting the store.
type nullSentinel struct{}

// Null is the negative-cache sentinel value. Set stores it like any other
// value; Get returns ErrNullHit when it is retrieved.
var Null = nullSentinel{}

const defaultNegativeTTL = 300 * time.Second

// Backend is the storage contract a Cache delegates to.
type Backend interface {
	Get(ctx context.Context, key string) (value any, found bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context, prefix string) error
}

// Stats tracks per-namespace cache activity.
type Stats struct {
	Hits     int64
	NullHits int64
	Misses   int64
	Sets     int64
	NullSets int64
	Deletes  int64
}

// HitRate returns the fraction of reads (hits + null-hits) over all reads.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.NullHits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits+s.NullHits) / float64(total)
}

// namespaceSpec describes how a namespace renders a field-keyed lookup into
// a single composite cache key.
type namespaceSpec struct {
	fields []string
	format string // optional "{a}_{b}" style format; fields used when empty
}

// Cache is the namespaced, TTL-aware front for the store.
type Cache struct {
	backend     Backend
	negativeTTL time.Duration

	mu         sync.RWMutex
	namespaces map[string]namespaceSpec
	stats      map[string]*Stats
}

// New creates a Cache backed by the given Backend.
func New(backend Backend, negativeTTL time.Duration) *Cache {
	if negativeTTL <= 0 {
		negativeTTL = defaultNegativeTTL
	}
	return &Cache{
		backend:     backend,
		negativeTTL: negativeTTL,
		namespaces:  make(map[string]namespaceSpec),
		stats:       make(map[string]*Stats),
	}
}

// RegisterNamespace declares the ordered field names used to build composite
// keys for namespace. Call once per namespace, typically at startup.
func (c *Cache) RegisterNamespace(namespace string, fields ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces[namespace] = namespaceSpec{fields: fields}
}

// RegisterNamespaceFormat declares a format string like "{user_id}_{group_id}"
// for namespace instead of an ordered field list.
func (c *Cache) RegisterNamespaceFormat(namespace, format string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.namespaces[namespace] = namespaceSpec{format: format}
}

// BuildKey renders a field map into the composite key for namespace, per its
// registered spec. An unregistered namespace falls back to sorted-field
// concatenation.
func (c *Cache) BuildKey(namespace string, fields map[string]string) string {
	c.mu.RLock()
	spec, ok := c.namespaces[namespace]
	c.mu.RUnlock()

	if ok && spec.format != "" {
		key := spec.format
		for name, value := range fields {
			key = strings.ReplaceAll(key, "{"+name+"}", value)
		}
		return key
	}

	var order []string
	if ok && len(spec.fields) > 0 {
		order = spec.fields
	} else {
		for name := range fields {
			order = append(order, name)
		}
		sort.Strings(order)
	}

	parts := make([]string, 0, len(order))
	for _, name := range order {
		parts = append(parts, fields[name])
	}
	return strings.Join(parts, "_")
}

func (c *Cache) statsFor(namespace string) *Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[namespace]
	if !ok {
		s = &Stats{}
		c.stats[namespace] = s
	}
	return s
}

// Stats returns a snapshot of the counters for namespace.
func (c *Cache) Stats(namespace string) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if s, ok := c.stats[namespace]; ok {
		return *s
	}
	return Stats{}
}

func storageKey(namespace, key string) string {
	return namespace + ":" + key
}

// ErrNullHit indicates the requested entry is a negative-cache sentinel:
// the underlying row is known not to exist.
var ErrNullHit = &nullHitError{}

type nullHitError struct{}

func (*nullHitError) Error() string { return "cache: null sentinel hit" }

// Get looks up (namespace, key). It returns (value, true, nil) on a real
// hit, (nil, true, ErrNullHit) on a negative-cache hit, and (nil, false, nil)
// on a miss.
func (c *Cache) Get(ctx context.Context, namespace, key string) (any, bool, error) {
	stats := c.statsFor(namespace)

	value, found, err := c.backend.Get(ctx, storageKey(namespace, key))
	if err != nil {
		return nil, false, err
	}
	if !found {
		stats.Misses++
		return nil, false, nil
	}

	if _, isNull := value.(nullSentinel); isNull {
		stats.NullHits++
		return nil, true, ErrNullHit
	}

	stats.Hits++
	return value, true, nil
}

// Set stores value for (namespace, key). A zero ttl uses no expiry, except
// for a Null value, which then uses the negative-cache TTL.
func (c *Cache) Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) error {
	stats := c.statsFor(namespace)

	if _, isNull := value.(nullSentinel); isNull {
		stats.NullSets++
		if ttl <= 0 {
			ttl = c.negativeTTL
		}
	} else {
		stats.Sets++
	}

	return c.backend.Set(ctx, storageKey(namespace, key), value, ttl)
}

// SetNull records a negative-cache entry for (namespace, key) using the
// configured negative TTL.
func (c *Cache) SetNull(ctx context.Context, namespace, key string) error {
	return c.Set(ctx, namespace, key, Null, c.negativeTTL)
}

// Delete removes (namespace, key).
func (c *Cache) Delete(ctx context.Context, namespace, key string) error {
	c.statsFor(namespace).Deletes++
	return c.backend.Delete(ctx, storageKey(namespace, key))
}

// Exists reports whether (namespace, key) currently has any entry, real or negative.
func (c *Cache) Exists(ctx context.Context, namespace, key string) (bool, error) {
	_, found, err := c.backend.Get(ctx, storageKey(namespace, key))
	if err != nil {
		return false, err
	}
	return found, nil
}

// Clear removes every entry in namespace.
func (c *Cache) Clear(ctx context.Context, namespace string) error {
	return c.backend.Clear(ctx, namespace+":")
}
