package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sbvh/botcore/errors"
)

// Store persists ScheduledJob rows.
type Store struct {
	db *sql.DB
}

// NewStore creates a store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const selectColumns = `
	id, name, plugin_name, bot_id, created_by, required_permission,
	target_type, target_identifier, trigger_type, trigger_config, job_kwargs,
	jitter_seconds, spread_seconds, interval_seconds, concurrency_policy,
	retries, retry_delay_seconds, is_enabled, is_one_off,
	last_run_at, last_run_status, consecutive_failures, create_time`

func scanJob(row interface{ Scan(...any) error }) (*ScheduledJob, error) {
	var j ScheduledJob
	var name, botID, createdBy, targetIdentifier, lastRunStatus sql.NullString
	var jitter, spread, interval sql.NullInt64
	var lastRunAt sql.NullString
	var isEnabled, isOneOff int
	var triggerConfig, jobKwargs string
	var createTime string

	err := row.Scan(
		&j.ID, &name, &j.PluginName, &botID, &createdBy, &j.RequiredPermission,
		&j.TargetType, &targetIdentifier, &j.TriggerType, &triggerConfig, &jobKwargs,
		&jitter, &spread, &interval, &j.Options.ConcurrencyPolicy,
		&j.Options.Retries, &j.Options.RetryDelaySeconds, &isEnabled, &isOneOff,
		&lastRunAt, &lastRunStatus, &j.ConsecutiveFailures, &createTime,
	)
	if err != nil {
		return nil, err
	}

	j.Name = name.String
	j.BotID = botID.String
	j.CreatedBy = createdBy.String
	j.TargetIdentifier = targetIdentifier.String
	j.TriggerConfig = []byte(triggerConfig)
	j.JobKwargs = []byte(jobKwargs)
	j.Options.Jitter = time.Duration(jitter.Int64) * time.Second
	j.Options.Spread = time.Duration(spread.Int64) * time.Second
	j.Options.Interval = time.Duration(interval.Int64) * time.Second
	j.IsEnabled = isEnabled != 0
	j.IsOneOff = isOneOff != 0
	j.LastRunStatus = RunStatus(lastRunStatus.String)

	if lastRunAt.Valid {
		t, err := time.Parse(time.RFC3339Nano, lastRunAt.String)
		if err == nil {
			j.LastRunAt = &t
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, createTime); err == nil {
		j.CreatedAt = t
	}

	return &j, nil
}

// Create inserts job, returning its assigned ID.
func (s *Store) Create(ctx context.Context, job *ScheduledJob) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_jobs (
			name, plugin_name, bot_id, created_by, required_permission,
			target_type, target_identifier, trigger_type, trigger_config, job_kwargs,
			jitter_seconds, spread_seconds, interval_seconds, concurrency_policy,
			retries, retry_delay_seconds, is_enabled, is_one_off
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		nullable(job.Name), job.PluginName, nullable(job.BotID), nullable(job.CreatedBy), job.RequiredPermission,
		job.TargetType, job.TargetIdentifier, job.TriggerType, string(job.TriggerConfig), string(job.JobKwargs),
		durationSecondsOrNil(job.Options.Jitter), durationSecondsOrNil(job.Options.Spread), durationSecondsOrNil(job.Options.Interval), job.Options.ConcurrencyPolicy,
		job.Options.Retries, job.Options.RetryDelaySeconds, boolToInt(job.IsEnabled), boolToInt(job.IsOneOff),
	)
	if err != nil {
		return 0, errors.Wrap(err, "create scheduled job")
	}
	return res.LastInsertId()
}

// Get loads a job by ID.
func (s *Store) Get(ctx context.Context, id int64) (*ScheduledJob, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM scheduled_jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, errors.Newf("scheduled job not found: %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get scheduled job %d", id)
	}
	return job, nil
}

// FindByTarget looks up the job matching (plugin_name, target_type,
// target_identifier, bot_id), used by declarative reconciliation and
// addSchedule's upsert-by-binding semantics.
func (s *Store) FindByTarget(ctx context.Context, pluginName string, targetType TargetType, targetIdentifier, botID string) (*ScheduledJob, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+` FROM scheduled_jobs
		WHERE plugin_name = ? AND target_type = ? AND target_identifier = ? AND IFNULL(bot_id, '') = ?`,
		pluginName, targetType, targetIdentifier, botID)

	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find job by target %s/%s/%s", pluginName, targetType, targetIdentifier)
	}
	return job, nil
}

// ListEnabled returns every row with is_enabled = true, for startup load.
func (s *Store) ListEnabled(ctx context.Context) ([]*ScheduledJob, error) {
	return s.query(ctx, "SELECT "+selectColumns+" FROM scheduled_jobs WHERE is_enabled = 1")
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*ScheduledJob, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query scheduled jobs")
	}
	defer rows.Close()

	var jobs []*ScheduledJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan scheduled job row")
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateAfterExecution records the outcome of a completed invocation.
func (s *Store) UpdateAfterExecution(ctx context.Context, id int64, now time.Time, status RunStatus, consecutiveFailures int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs SET last_run_at = ?, last_run_status = ?, consecutive_failures = ? WHERE id = ?
	`, now.Format(time.RFC3339), status, consecutiveFailures, id)
	if err != nil {
		return errors.Wrapf(err, "update job %d after execution", id)
	}
	return nil
}

// Update applies a partial update to trigger/job_kwargs: an empty
// triggerType or an empty triggerConfig/jobKwargs leaves that column as it is.
func (s *Store) Update(ctx context.Context, id int64, triggerType TriggerType, triggerConfig, jobKwargs json.RawMessage) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE scheduled_jobs SET trigger_type = COALESCE(NULLIF(?, ''), trigger_type),
			trigger_config = COALESCE(?, trigger_config), job_kwargs = COALESCE(?, job_kwargs)
		WHERE id = ?
	`, string(triggerType), nullableJSON(triggerConfig), nullableJSON(jobKwargs), id)
	if err != nil {
		return errors.Wrapf(err, "update job %d", id)
	}
	return nil
}

// SetEnabled toggles is_enabled for pause/resume.
func (s *Store) SetEnabled(ctx context.Context, id int64, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE scheduled_jobs SET is_enabled = ? WHERE id = ?`, boolToInt(enabled), id)
	if err != nil {
		return errors.Wrapf(err, "set enabled=%v for job %d", enabled, id)
	}
	return nil
}

// Delete removes a job row, used for one-off completion cleanup and direct removal.
func (s *Store) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_jobs WHERE id = ?`, id)
	if err != nil {
		return errors.Wrapf(err, "delete job %d", id)
	}
	return nil
}

// DisablePlugin auto-disables every job referencing a plugin that is no
// longer registered at execution time.
func (s *Store) DisablePlugin(ctx context.Context, pluginName string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE scheduled_jobs SET is_enabled = 0 WHERE plugin_name = ?`, pluginName)
	if err != nil {
		return errors.Wrapf(err, "disable jobs for missing plugin %s", pluginName)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func durationSecondsOrNil(d time.Duration) any {
	if d <= 0 {
		return nil
	}
	return int64(d / time.Second)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
