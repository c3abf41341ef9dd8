package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedJobs(t *testing.T, store *Store) (g1, g2, u1 int64) {
	t.Helper()
	ctx := context.Background()

	id1, err := store.Create(ctx, newJob("digest", TargetGroup, "g1"))
	require.NoError(t, err)
	id2, err := store.Create(ctx, newJob("digest", TargetGroup, "g2"))
	require.NoError(t, err)
	id3, err := store.Create(ctx, newJob("reminder", TargetUser, "u1"))
	require.NoError(t, err)
	return id1, id2, id3
}

func TestTargeter_MatchByPlugin(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedJobs(t, store)

	targeter := NewTargeter(store)
	matched, err := targeter.Match(ctx, TargetFilter{PluginName: "digest"})
	require.NoError(t, err)
	require.Len(t, matched, 2)
}

func TestTargeter_MatchByIDIn(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	g1, _, u1 := seedJobs(t, store)

	targeter := NewTargeter(store)
	matched, err := targeter.Match(ctx, TargetFilter{IDIn: []int64{g1, u1}})
	require.NoError(t, err)
	require.Len(t, matched, 2)
}

func TestTargeter_PauseAndResumeMatching(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedJobs(t, store)

	targeter := NewTargeter(store)
	n, err := targeter.PauseMatching(ctx, TargetFilter{PluginName: "digest"})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	enabled, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)

	n, err = targeter.ResumeMatching(ctx, TargetFilter{PluginName: "digest"})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	enabled, err = store.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 3)
}

func TestTargeter_RemoveMatching(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedJobs(t, store)

	targeter := NewTargeter(store)
	n, err := targeter.RemoveMatching(ctx, TargetFilter{TargetType: TargetUser})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	remaining, err := targeter.Match(ctx, TargetFilter{})
	require.NoError(t, err)
	require.Len(t, remaining, 2)
}
