// Package scheduler is the durable, targetable job scheduler: it persists
// ScheduledJob rows, fires them on cron/interval/date triggers, resolves
// each job's symbolic target into concrete IDs via the tag resolver, and
// executes per-target with configurable concurrency, spread, and retry
// policy.
package scheduler

import (
	"encoding/json"
	"strconv"
	"time"
)

// TargetType names what a job's target_identifier refers to.
type TargetType string

const (
	TargetGroup     TargetType = "GROUP"
	TargetUser      TargetType = "USER"
	TargetTag       TargetType = "TAG"
	TargetAllGroups TargetType = "ALL_GROUPS"
	TargetGlobal    TargetType = "GLOBAL"
)

// TriggerType names the scheduling rule a job's trigger_config encodes.
type TriggerType string

const (
	TriggerCron     TriggerType = "cron"
	TriggerInterval TriggerType = "interval"
	TriggerDate     TriggerType = "date"
)

// ConcurrencyPolicy governs what happens when the ticker's next fire for a
// job arrives before the previous invocation has finished.
type ConcurrencyPolicy string

const (
	// PolicyAllow lets another instance start alongside the running one.
	PolicyAllow ConcurrencyPolicy = "ALLOW"
	// PolicySkip coalesces overlapping fires: only one instance runs at a
	// time and missed fires are simply dropped.
	PolicySkip ConcurrencyPolicy = "SKIP"
	// PolicyQueue also allows only one instance at a time, but overlapping
	// fires wait for the running one to finish instead of being dropped.
	PolicyQueue ConcurrencyPolicy = "QUEUE"
)

// RunStatus records the outcome of a job's last completed invocation.
type RunStatus string

const (
	RunSuccess RunStatus = "SUCCESS"
	RunFailure RunStatus = "FAILURE"
)

// ExecutionOptions is a job's execution policy. Interval and Spread are
// mutually exclusive: Interval selects serial fan-out, Spread (the
// default when neither is set) selects concurrent fan-out.
type ExecutionOptions struct {
	Jitter            time.Duration     `json:"jitter,omitempty"`
	Spread            time.Duration     `json:"spread,omitempty"`
	Interval          time.Duration     `json:"interval,omitempty"`
	ConcurrencyPolicy ConcurrencyPolicy `json:"concurrency_policy,omitempty"`
	Retries           int               `json:"retries,omitempty"`
	RetryDelaySeconds int               `json:"retry_delay_seconds,omitempty"`
}

// Validate enforces the interval/spread exclusivity invariant and applies
// the package default spread when neither is set.
func (o *ExecutionOptions) Validate() error {
	if o.Interval > 0 && o.Spread > 0 {
		return errInvalidOptions
	}
	if o.Interval == 0 && o.Spread == 0 {
		o.Spread = defaultSpread
	}
	if o.ConcurrencyPolicy == "" {
		o.ConcurrencyPolicy = PolicyAllow
	}
	return nil
}

const defaultSpread = 1 * time.Second

// ScheduledJob is the durable scheduler record.
type ScheduledJob struct {
	ID                 int64
	Name               string
	PluginName         string
	BotID              string
	CreatedBy          string
	RequiredPermission int

	TargetType       TargetType
	TargetIdentifier string

	TriggerType   TriggerType
	TriggerConfig json.RawMessage

	JobKwargs json.RawMessage

	Options ExecutionOptions

	IsEnabled           bool
	IsOneOff            bool
	LastRunAt           *time.Time
	LastRunStatus       RunStatus
	ConsecutiveFailures int
	CreatedAt           time.Time
}

// liveJobKey is the identifier the live in-memory scheduler tracks a
// persisted job's trigger under.
func liveJobKey(id int64) string {
	return "botcore_schedule_" + strconv.FormatInt(id, 10)
}
