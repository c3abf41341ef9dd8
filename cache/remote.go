package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sbvh/botcore/errors"
)

// remoteBackend stores entries in Redis as JSON under a configurable key
// prefix, bounding every round trip with a short timeout. A timed-out or
// failed Get degrades to a miss, since the cache is a shielding layer in
// front of the store, not the store itself. Set, Delete and Clear return
// their errors, as does a Get whose stored value fails to decode.
type remoteBackend struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// NewRemoteBackend creates a Redis-backed cache backend. prefix namespaces
// all keys this backend writes (e.g. "BOTCORE"); timeout bounds every call.
func NewRemoteBackend(client *redis.Client, prefix string, timeout time.Duration) Backend {
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	return &remoteBackend{client: client, prefix: prefix, timeout: timeout}
}

func (b *remoteBackend) fullKey(key string) string {
	return b.prefix + ":" + key
}

type remoteEnvelope struct {
	Null  bool            `json:"null,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (b *remoteBackend) Get(ctx context.Context, key string) (any, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	raw, err := b.client.Get(ctx, b.fullKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		// Timeouts and connectivity errors degrade to a miss.
		return nil, false, nil
	}

	var env remoteEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, false, errors.Wrapf(err, "decode cache entry for %s", key)
	}
	if env.Null {
		return Null, true, nil
	}

	var value any
	if err := json.Unmarshal(env.Value, &value); err != nil {
		return nil, false, errors.Wrapf(err, "decode cache value for %s", key)
	}
	return value, true, nil
}

func (b *remoteBackend) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	env := remoteEnvelope{}
	if _, isNull := value.(nullSentinel); isNull {
		env.Null = true
	} else {
		encoded, err := json.Marshal(value)
		if err != nil {
			return errors.Wrapf(err, "encode cache value for %s", key)
		}
		env.Value = encoded
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return errors.Wrapf(err, "encode cache envelope for %s", key)
	}

	return b.client.Set(ctx, b.fullKey(key), payload, ttl).Err()
}

func (b *remoteBackend) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.client.Del(ctx, b.fullKey(key)).Err()
}

func (b *remoteBackend) Clear(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	pattern := b.fullKey(prefix) + "*"
	iter := b.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := b.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
