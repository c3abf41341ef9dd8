package scheduler

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sbvh/botcore/plugin"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func registryWith(t *testing.T, reg plugin.Registration) *plugin.Registry {
	t.Helper()
	registry := plugin.NewRegistry("1.0.0")
	require.NoError(t, registry.Register(reg))
	return registry
}

type fakeBlocker struct {
	blocked bool
	err     error
}

func (f fakeBlocker) IsBlocked(context.Context, string, string, string) (bool, error) {
	return f.blocked, f.err
}

func TestExecutor_Run_InvokesHandler(t *testing.T) {
	var gotTarget string
	registry := registryWith(t, plugin.Registration{
		Name: "digest",
		Handler: func(ctx context.Context, sc plugin.ScheduleContext, targetID string, kwargs json.RawMessage) error {
			gotTarget = targetID
			return nil
		},
	})

	exec := NewExecutor(registry, nil, testLogger())
	job := newJob("digest", TargetGroup, "g1")

	err := exec.Run(context.Background(), job, "g1")
	require.NoError(t, err)
	require.Equal(t, "g1", gotTarget)
}

func TestExecutor_Run_UnknownPluginErrors(t *testing.T) {
	registry := plugin.NewRegistry("1.0.0")
	exec := NewExecutor(registry, nil, testLogger())
	job := newJob("missing", TargetGroup, "g1")

	err := exec.Run(context.Background(), job, "g1")
	require.Error(t, err)
}

func TestExecutor_Run_ValidationErrorFails(t *testing.T) {
	registry := registryWith(t, plugin.Registration{
		Name: "digest",
		Handler: func(ctx context.Context, sc plugin.ScheduleContext, targetID string, kwargs json.RawMessage) error {
			return nil
		},
		ParamsValidator: func(kwargs json.RawMessage) error {
			return errTransient
		},
	})

	exec := NewExecutor(registry, nil, testLogger())
	job := newJob("digest", TargetGroup, "g1")
	job.JobKwargs = json.RawMessage(`{"bad":true}`)

	err := exec.Run(context.Background(), job, "g1")
	require.Error(t, err)
}

func TestExecutor_Run_BlockedTargetSkipsSilently(t *testing.T) {
	called := false
	registry := registryWith(t, plugin.Registration{
		Name: "digest",
		Handler: func(ctx context.Context, sc plugin.ScheduleContext, targetID string, kwargs json.RawMessage) error {
			called = true
			return nil
		},
	})

	exec := NewExecutor(registry, fakeBlocker{blocked: true}, testLogger())
	job := newJob("digest", TargetGroup, "g1")

	err := exec.Run(context.Background(), job, "g1")
	require.NoError(t, err)
	require.False(t, called)
}

func TestExecutor_Run_RetriesOnFailure(t *testing.T) {
	attempts := 0
	registry := registryWith(t, plugin.Registration{
		Name: "digest",
		Handler: func(ctx context.Context, sc plugin.ScheduleContext, targetID string, kwargs json.RawMessage) error {
			attempts++
			if attempts < 3 {
				return errTransient
			}
			return nil
		},
	})

	exec := NewExecutor(registry, nil, testLogger())
	job := newJob("digest", TargetGroup, "g1")
	job.Options.Retries = 2
	job.Options.RetryDelaySeconds = 0

	err := exec.Run(context.Background(), job, "g1")
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestExecutor_Run_ControlFlowIsNotAFailure(t *testing.T) {
	registry := registryWith(t, plugin.Registration{
		Name: "digest",
		Handler: func(ctx context.Context, sc plugin.ScheduleContext, targetID string, kwargs json.RawMessage) error {
			return Paused("target paused mid-run")
		},
	})

	exec := NewExecutor(registry, nil, testLogger())
	job := newJob("digest", TargetGroup, "g1")

	err := exec.Run(context.Background(), job, "g1")
	require.NoError(t, err)
}

var errTransient = errTransientType{}

type errTransientType struct{}

func (errTransientType) Error() string { return "transient failure" }
