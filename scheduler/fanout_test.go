package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFanOut_Serial_RunsInOrder(t *testing.T) {
	job := newJob("a", TargetGroup, "")
	job.Options.Interval = time.Millisecond
	job.Options.Spread = 0

	var mu sync.Mutex
	var order []string
	errs := FanOut(context.Background(), job, []string{"a", "b", "c"}, 0, func(ctx context.Context, target string) error {
		mu.Lock()
		order = append(order, target)
		mu.Unlock()
		return nil
	}, nil)

	require.Empty(t, errs)
	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestFanOut_Serial_CollectsErrorsWithoutAborting(t *testing.T) {
	job := newJob("a", TargetGroup, "")
	job.Options.Interval = time.Millisecond

	errs := FanOut(context.Background(), job, []string{"a", "b", "c"}, 0, func(ctx context.Context, target string) error {
		if target == "b" {
			return context.DeadlineExceeded
		}
		return nil
	}, nil)

	require.Len(t, errs, 1)
}

func TestFanOut_Concurrent_RunsAllTargets(t *testing.T) {
	job := newJob("a", TargetGroup, "")
	job.Options.Spread = 5 * time.Millisecond

	var mu sync.Mutex
	seen := map[string]bool{}
	errs := FanOut(context.Background(), job, []string{"a", "b", "c", "d"}, 2, func(ctx context.Context, target string) error {
		mu.Lock()
		seen[target] = true
		mu.Unlock()
		return nil
	}, testLogger())

	require.Empty(t, errs)
	require.Len(t, seen, 4)
}

func TestFanOut_Concurrent_CollectsErrors(t *testing.T) {
	job := newJob("a", TargetGroup, "")
	job.Options.Spread = time.Millisecond

	errs := FanOut(context.Background(), job, []string{"a", "b"}, 2, func(ctx context.Context, target string) error {
		if target == "a" {
			return context.DeadlineExceeded
		}
		return nil
	}, testLogger())

	require.Len(t, errs, 1)
}

func TestFanOut_NoTargetsReturnsNil(t *testing.T) {
	job := newJob("a", TargetGroup, "")
	errs := FanOut(context.Background(), job, nil, 1, func(ctx context.Context, target string) error {
		t.Fatal("should not be called")
		return nil
	}, nil)
	require.Empty(t, errs)
}
