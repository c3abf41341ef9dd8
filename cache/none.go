package cache

import (
	"context"
	"time"
)

// noneBackend disables caching: every Get is a miss, every other op a no-op.
// Used when a deployment wants read-through behavior without a cache tier.
type noneBackend struct{}

// NewNoneBackend creates a backend where every operation is a no-op.
func NewNoneBackend() Backend { return noneBackend{} }

func (noneBackend) Get(context.Context, string) (any, bool, error)        { return nil, false, nil }
func (noneBackend) Set(context.Context, string, any, time.Duration) error { return nil }
func (noneBackend) Delete(context.Context, string) error                  { return nil }
func (noneBackend) Clear(context.Context, string) error                   { return nil }
