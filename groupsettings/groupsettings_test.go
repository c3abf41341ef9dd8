package groupsettings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbvh/botcore/cache"
	dbtest "github.com/sbvh/botcore/internal/testing"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(dbtest.CreateTestDB(t), cache.New(cache.NewMemoryBackend(0), 0))
}

func TestSetFullConfig_GetAllForPlugin_Merges(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetFullConfig(ctx, "group1", "weather", map[string]any{"units": "metric"}))

	defaults := map[string]any{"units": "imperial", "interval": "5m"}
	effective, err := svc.GetAllForPlugin(ctx, "group1", "weather", defaults)
	require.NoError(t, err)

	assert.Equal(t, "metric", effective["units"])
	assert.Equal(t, "5m", effective["interval"])
}

func TestGetAllForPlugin_NoOverrideReturnsDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	defaults := map[string]any{"units": "imperial"}
	effective, err := svc.GetAllForPlugin(ctx, "group2", "weather", defaults)
	require.NoError(t, err)
	assert.Equal(t, "imperial", effective["units"])
}

func TestSetKey_ResetKey(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetKey(ctx, "group1", "weather", "units", "metric"))
	require.NoError(t, svc.SetKey(ctx, "group1", "weather", "interval", "10m"))

	effective, err := svc.GetAllForPlugin(ctx, "group1", "weather", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "metric", effective["units"])
	assert.Equal(t, "10m", effective["interval"])

	require.NoError(t, svc.ResetKey(ctx, "group1", "weather", "units"))
	effective, err = svc.GetAllForPlugin(ctx, "group1", "weather", map[string]any{"units": "imperial"})
	require.NoError(t, err)
	assert.Equal(t, "imperial", effective["units"])
	assert.Equal(t, "10m", effective["interval"])
}

func TestResetKey_EmptiesRowDeletesIt(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetKey(ctx, "group1", "weather", "units", "metric"))
	require.NoError(t, svc.ResetKey(ctx, "group1", "weather", "units"))

	var count int
	err := svc.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_plugin_settings WHERE group_id = ? AND plugin_name = ?`,
		"group1", "weather").Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestResetAll_DeletesRow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetFullConfig(ctx, "group1", "weather", map[string]any{"units": "metric"}))
	require.NoError(t, svc.ResetAll(ctx, "group1", "weather"))

	effective, err := svc.GetAllForPlugin(ctx, "group1", "weather", map[string]any{"units": "imperial"})
	require.NoError(t, err)
	assert.Equal(t, "imperial", effective["units"])
}

func TestGetAllForPlugin_CachesOverrides(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetFullConfig(ctx, "group1", "weather", map[string]any{"units": "metric"}))

	// First read populates the cache.
	_, err := svc.GetAllForPlugin(ctx, "group1", "weather", map[string]any{})
	require.NoError(t, err)

	stats := svc.cache.Stats(CacheNamespace)
	assert.Zero(t, stats.Hits, "first read should be a miss, not a hit")

	_, err = svc.GetAllForPlugin(ctx, "group1", "weather", map[string]any{})
	require.NoError(t, err)

	stats = svc.cache.Stats(CacheNamespace)
	assert.Equal(t, int64(1), stats.Hits)
}
