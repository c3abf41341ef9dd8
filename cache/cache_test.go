package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New(NewMemoryBackend(0), 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "tag_service", "k1", "hello", time.Minute))

	value, found, err := c.Get(ctx, "tag_service", "k1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "hello", value)
}

func TestCache_Miss(t *testing.T) {
	c := New(NewMemoryBackend(0), 0)
	ctx := context.Background()

	value, found, err := c.Get(ctx, "tag_service", "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)

	stats := c.Stats("tag_service")
	assert.Equal(t, int64(1), stats.Misses)
}

func TestCache_NullSentinel(t *testing.T) {
	c := New(NewMemoryBackend(0), 100*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.SetNull(ctx, "group_plugin_settings", "g1_p1"))

	value, found, err := c.Get(ctx, "group_plugin_settings", "g1_p1")
	assert.Nil(t, value)
	assert.True(t, found)
	assert.ErrorIs(t, err, ErrNullHit)

	stats := c.Stats("group_plugin_settings")
	assert.Equal(t, int64(1), stats.NullSets)
	assert.Equal(t, int64(1), stats.NullHits)
}

func TestCache_BuildKey_Fields(t *testing.T) {
	c := New(NewNoneBackend(), 0)
	c.RegisterNamespace("limits", "user_id", "group_id")

	key := c.BuildKey("limits", map[string]string{"group_id": "g1", "user_id": "u1"})
	assert.Equal(t, "u1_g1", key)
}

func TestCache_BuildKey_Format(t *testing.T) {
	c := New(NewNoneBackend(), 0)
	c.RegisterNamespaceFormat("limits", "{user_id}_{group_id}")

	key := c.BuildKey("limits", map[string]string{"group_id": "g1", "user_id": "u1"})
	assert.Equal(t, "u1_g1", key)
}

func TestCache_Clear(t *testing.T) {
	c := New(NewMemoryBackend(0), 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "tag_service", "a", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "tag_service", "b", 2, time.Minute))
	require.NoError(t, c.Set(ctx, "other", "a", 3, time.Minute))

	require.NoError(t, c.Clear(ctx, "tag_service"))

	_, found, _ := c.Get(ctx, "tag_service", "a")
	assert.False(t, found)
	_, found, _ = c.Get(ctx, "other", "a")
	assert.True(t, found, "clearing one namespace must not affect another")
}

func TestCache_NoneBackendAlwaysMisses(t *testing.T) {
	c := New(NewNoneBackend(), 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ns", "k", "v", time.Minute))
	_, found, err := c.Get(ctx, "ns", "k")
	require.NoError(t, err)
	assert.False(t, found)
}
