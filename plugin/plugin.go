// Package plugin holds the in-memory registry of handler registrations the
// scheduler and authorization pipeline dispatch against. A registration is
// process-local and transient: it is created when a plugin loads and is gone
// on restart, at which point the owning plugin re-registers it.
package plugin

import (
	"context"
	"encoding/json"
	"time"
)

// ScheduleContext is the invocation metadata injected alongside a scheduled
// job's target and kwargs: which schedule fired, which bot and group (if
// any) it fired for.
type ScheduleContext struct {
	ScheduleID int64
	PluginName string
	BotID      string
	GroupID    string
}

// HandlerFunc is the function a scheduled job or pipeline-approved event
// ultimately invokes, given the invocation context and the validated
// job/event payload for one target.
type HandlerFunc func(ctx context.Context, sc ScheduleContext, targetID string, kwargs json.RawMessage) error

// ParamsValidator checks a job's kwargs against a plugin-declared shape
// before the job is persisted. A nil validator accepts any payload.
type ParamsValidator func(kwargs json.RawMessage) error

// CLIParser turns command-line arguments into a kwargs payload, for plugins
// that expose a manual-trigger or one-off CLI surface. Optional.
type CLIParser func(args []string) (json.RawMessage, error)

// Registration is the record a plugin installs under its name: the handler
// itself plus the defaults the scheduler falls back to when a job of this
// plugin doesn't specify its own execution options.
type Registration struct {
	Name    string
	Handler HandlerFunc

	// ParamsValidator validates job_kwargs before a job referencing this
	// plugin is saved. Nil means no validation.
	ParamsValidator ParamsValidator

	// CLIParser parses CLI arguments into job_kwargs for manual/one-off
	// triggers issued from a command surface. Optional.
	CLIParser CLIParser

	// DefaultPermission is the required_permission a scheduled job gets
	// when it does not specify one explicitly.
	DefaultPermission int

	// DefaultJitter, DefaultSpread, and DefaultInterval seed a job's
	// execution options when unset. Spread and interval are mutually
	// exclusive at the job level; registering both here is legal (a job
	// picks whichever it needs) but a single job may only apply one.
	DefaultJitter   time.Duration
	DefaultSpread   time.Duration
	DefaultInterval time.Duration

	// MinCoreVersion is an optional semver constraint (e.g. ">= 1.2.0")
	// checked against the running core version at Register time.
	MinCoreVersion string
}

// Validate runs the plugin's declared validator against kwargs, if any.
func (r Registration) Validate(kwargs json.RawMessage) error {
	if r.ParamsValidator == nil {
		return nil
	}
	return r.ParamsValidator(kwargs)
}
