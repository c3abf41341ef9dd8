package cache

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sbvh/botcore/config"
)

// NewFromConfig builds a Cache whose backend matches cfg.Backend
// ("memory", "remote", or "none").
func NewFromConfig(cfg config.CacheConfig) *Cache {
	negativeTTL := time.Duration(cfg.NegativeTTLSeconds) * time.Second

	var backend Backend
	switch cfg.Backend {
	case "remote":
		client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
		timeout := time.Duration(cfg.RemoteTimeoutMS) * time.Millisecond
		backend = NewRemoteBackend(client, cfg.RemotePrefix, timeout)
	case "none":
		backend = NewNoneBackend()
	default:
		backend = NewMemoryBackend(0)
	}

	return New(backend, negativeTTL)
}
