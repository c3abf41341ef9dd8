package scheduler

import (
	"encoding/json"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sbvh/botcore/errors"
)

// Trigger computes a job's next fire time given the last one.
type Trigger interface {
	// Next returns the next occurrence strictly after after, and false if
	// the trigger has no further occurrences (a date trigger already fired).
	Next(after time.Time) (time.Time, bool)
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// cronTrigger wraps a parsed robfig/cron schedule.
type cronTrigger struct {
	schedule cron.Schedule
}

type cronConfig struct {
	Expr     string `json:"expr"`
	Timezone string `json:"timezone,omitempty"`
}

// newCronTrigger parses a {"expr": "...", "timezone": "..."} trigger_config.
func newCronTrigger(raw json.RawMessage, defaultTZ string) (Trigger, error) {
	var cfg cronConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse cron trigger config")
	}
	tz := cfg.Timezone
	if tz == "" {
		tz = defaultTZ
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	sched, err := cronParser.Parse(cfg.Expr)
	if err != nil {
		return nil, errors.Wrapf(err, "parse cron expression %q", cfg.Expr)
	}
	return &cronTrigger{schedule: &locationSchedule{inner: sched, loc: loc}}, nil
}

// locationSchedule reinterprets the Next() argument in a fixed timezone
// before delegating, since robfig/cron.Schedule has no notion of timezone
// on its own.
type locationSchedule struct {
	inner cron.Schedule
	loc   *time.Location
}

func (l *locationSchedule) Next(t time.Time) time.Time {
	return l.inner.Next(t.In(l.loc))
}

func (c *cronTrigger) Next(after time.Time) (time.Time, bool) {
	return c.schedule.Next(after), true
}

// intervalTrigger fires every fixed duration after the instant passed to
// Next; the live scheduler passes the job's load or registration time, then
// each tick at which it fired.
type intervalTrigger struct {
	every time.Duration
}

type intervalConfig struct {
	Seconds int64 `json:"seconds"`
}

func newIntervalTrigger(raw json.RawMessage) (Trigger, error) {
	var cfg intervalConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse interval trigger config")
	}
	if cfg.Seconds <= 0 {
		return nil, errors.Newf("interval trigger requires seconds > 0, got %d", cfg.Seconds)
	}
	return &intervalTrigger{every: time.Duration(cfg.Seconds) * time.Second}, nil
}

func (t *intervalTrigger) Next(after time.Time) (time.Time, bool) {
	return after.Add(t.every), true
}

// dateTrigger fires exactly once, at a fixed instant.
type dateTrigger struct {
	at time.Time
}

type dateConfig struct {
	At time.Time `json:"at"`
}

func newDateTrigger(raw json.RawMessage) (Trigger, error) {
	var cfg dateConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "parse date trigger config")
	}
	if cfg.At.IsZero() {
		return nil, errors.New("date trigger requires a non-zero \"at\" timestamp")
	}
	return &dateTrigger{at: cfg.At}, nil
}

func (t *dateTrigger) Next(after time.Time) (time.Time, bool) {
	if !after.Before(t.at) {
		return time.Time{}, false
	}
	return t.at, true
}

// NewTrigger builds the Trigger a ScheduledJob's TriggerType/TriggerConfig
// describes, resolving an unqualified cron trigger against defaultTZ.
func NewTrigger(triggerType TriggerType, config json.RawMessage, defaultTZ string) (Trigger, error) {
	switch triggerType {
	case TriggerCron:
		return newCronTrigger(config, defaultTZ)
	case TriggerInterval:
		return newIntervalTrigger(config)
	case TriggerDate:
		return newDateTrigger(config)
	default:
		return nil, errors.Newf("unknown trigger type %q", triggerType)
	}
}
