package scheduler

import (
	"context"
	"time"

	"github.com/sbvh/botcore/errors"
	"github.com/sbvh/botcore/plugin"
	"github.com/sbvh/botcore/retry"
	"go.uber.org/zap"
)

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

// BlockChecker reports whether a target is currently blocked from running
// a plugin's scheduled jobs, e.g. by group settings or an admin override.
type BlockChecker interface {
	IsBlocked(ctx context.Context, pluginName, targetType, targetIdentifier string) (bool, error)
}

// noopBlockChecker never blocks, used when no BlockChecker is configured.
type noopBlockChecker struct{}

func (noopBlockChecker) IsBlocked(context.Context, string, string, string) (bool, error) {
	return false, nil
}

// controlFlow marks handler errors that are benign interruptions (the
// target paused, finished, or was skipped mid-run) rather than failures.
type controlFlow struct {
	reason string
}

func (c *controlFlow) Error() string { return c.reason }

// Paused signals that the handler recognized its target as paused and
// exited early; it does not count as a failed execution.
func Paused(reason string) error { return &controlFlow{reason: reason} }

// Finished signals the handler's target has already completed its work.
func Finished(reason string) error { return &controlFlow{reason: reason} }

// Skipped signals the handler chose not to run for this target.
func Skipped(reason string) error { return &controlFlow{reason: reason} }

func isControlFlow(err error) bool {
	var cf *controlFlow
	return errors.As(err, &cf)
}

// Executor runs a single target invocation of a registered plugin handler.
type Executor struct {
	registry *plugin.Registry
	blocks   BlockChecker
	log      *zap.SugaredLogger
}

// NewExecutor creates an Executor dispatching through registry. blocks may
// be nil to skip the block check entirely.
func NewExecutor(registry *plugin.Registry, blocks BlockChecker, log *zap.SugaredLogger) *Executor {
	if blocks == nil {
		blocks = noopBlockChecker{}
	}
	return &Executor{registry: registry, blocks: blocks, log: log}
}

// Run executes job against a single resolved target. A nil error return
// after a silent block-skip or a benign control-flow interruption both mean
// "did not fail"; the caller should not count either toward
// consecutive_failures.
func (e *Executor) Run(ctx context.Context, job *ScheduledJob, target string) error {
	blocked, err := e.blocks.IsBlocked(ctx, job.PluginName, string(job.TargetType), target)
	if err != nil {
		e.log.Warnw("block check failed, proceeding", "job", job.ID, "target", target, "error", err)
	} else if blocked {
		e.log.Infow("target blocked, skipping", "job", job.ID, "plugin", job.PluginName, "target", target)
		return nil
	}

	reg, ok := e.registry.Get(job.PluginName)
	if !ok {
		return errors.Newf("plugin %q is not registered", job.PluginName)
	}

	if err := reg.Validate(job.JobKwargs); err != nil {
		return errors.Wrapf(err, "validate job_kwargs for job %d", job.ID)
	}

	groupID := ""
	if job.TargetType == TargetGroup {
		groupID = target
	}
	sc := plugin.ScheduleContext{
		ScheduleID: job.ID,
		PluginName: job.PluginName,
		BotID:      job.BotID,
		GroupID:    groupID,
	}

	invoke := func(ctx context.Context) error {
		return reg.Handler(ctx, sc, target, job.JobKwargs)
	}

	var runErr error
	if job.Options.Retries > 0 {
		_, runErr = retry.Do(ctx, e.retryOptions(job), func(ctx context.Context) (any, error) {
			return nil, invoke(ctx)
		})
	} else {
		runErr = invoke(ctx)
	}

	if runErr == nil {
		return nil
	}
	if isControlFlow(runErr) {
		e.log.Warnw("handler interrupted benignly", "job", job.ID, "target", target, "reason", runErr)
		return nil
	}
	return runErr
}

func (e *Executor) retryOptions(job *ScheduledJob) retry.Options {
	return retry.Options{
		MaxAttempts: job.Options.Retries + 1,
		Strategy:    retry.Fixed,
		WaitFixed:   secondsToDuration(job.Options.RetryDelaySeconds),
		ShouldRetry: func(err error) bool { return !isControlFlow(err) },
		LogName:     job.PluginName,
		Log:         e.log,
	}
}
