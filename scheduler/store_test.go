package scheduler

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dbtest "github.com/sbvh/botcore/internal/testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(dbtest.CreateTestDB(t))
}

func newJob(plugin string, targetType TargetType, identifier string) *ScheduledJob {
	return &ScheduledJob{
		PluginName:       plugin,
		TargetType:       targetType,
		TargetIdentifier: identifier,
		TriggerType:      TriggerInterval,
		TriggerConfig:    json.RawMessage(`{"seconds":60}`),
		JobKwargs:        json.RawMessage(`{}`),
		Options:          ExecutionOptions{ConcurrencyPolicy: PolicyAllow},
		IsEnabled:        true,
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	job := newJob("reminder", TargetGroup, "g1")
	id, err := store.Create(ctx, job)
	require.NoError(t, err)
	require.NotZero(t, id)

	loaded, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "reminder", loaded.PluginName)
	require.Equal(t, TargetGroup, loaded.TargetType)
	require.Equal(t, "g1", loaded.TargetIdentifier)
	require.True(t, loaded.IsEnabled)
	require.False(t, loaded.CreatedAt.IsZero())
}

func TestStore_GetMissingReturnsError(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Get(context.Background(), 999)
	require.Error(t, err)
}

func TestStore_FindByTarget(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	job := newJob("digest", TargetUser, "u1")
	id, err := store.Create(ctx, job)
	require.NoError(t, err)

	found, err := store.FindByTarget(ctx, "digest", TargetUser, "u1", "")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, id, found.ID)

	missing, err := store.FindByTarget(ctx, "digest", TargetUser, "u2", "")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestStore_ListEnabled(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	enabled := newJob("a", TargetGroup, "g1")
	disabled := newJob("b", TargetGroup, "g2")
	disabled.IsEnabled = false

	_, err := store.Create(ctx, enabled)
	require.NoError(t, err)
	_, err = store.Create(ctx, disabled)
	require.NoError(t, err)

	jobs, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, "a", jobs[0].PluginName)
}

func TestStore_UpdateAfterExecution(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Create(ctx, newJob("a", TargetGroup, "g1"))
	require.NoError(t, err)

	require.NoError(t, store.UpdateAfterExecution(ctx, id, time.Now(), RunFailure, 2))

	job, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.Equal(t, RunFailure, job.LastRunStatus)
	require.Equal(t, 2, job.ConsecutiveFailures)
	require.NotNil(t, job.LastRunAt)
}

func TestStore_SetEnabledAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.Create(ctx, newJob("a", TargetGroup, "g1"))
	require.NoError(t, err)

	require.NoError(t, store.SetEnabled(ctx, id, false))
	job, err := store.Get(ctx, id)
	require.NoError(t, err)
	require.False(t, job.IsEnabled)

	require.NoError(t, store.Delete(ctx, id))
	_, err = store.Get(ctx, id)
	require.Error(t, err)
}

func TestStore_DisablePlugin(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id1, err := store.Create(ctx, newJob("gone", TargetGroup, "g1"))
	require.NoError(t, err)
	id2, err := store.Create(ctx, newJob("stays", TargetGroup, "g2"))
	require.NoError(t, err)

	require.NoError(t, store.DisablePlugin(ctx, "gone"))

	j1, err := store.Get(ctx, id1)
	require.NoError(t, err)
	require.False(t, j1.IsEnabled)

	j2, err := store.Get(ctx, id2)
	require.NoError(t, err)
	require.True(t, j2.IsEnabled)
}
