package scheduler

import (
	"context"

	"github.com/sbvh/botcore/errors"
	"github.com/sbvh/botcore/tagresolver"
)

// TagResolver is the subset of tagresolver.Resolver the scheduler depends on.
type TagResolver interface {
	Resolve(ctx context.Context, name, botID string) ([]string, error)
}

// resolveTargets expands a job's TargetType/TargetIdentifier into the
// concrete identifiers to execute against. GROUP and USER jobs target
// exactly the identifier stored on the row; TAG and ALL_GROUPS defer to the
// tag resolver; GLOBAL has no per-target identity and executes once with an
// empty identifier.
func resolveTargets(ctx context.Context, resolver TagResolver, job *ScheduledJob) ([]string, error) {
	switch job.TargetType {
	case TargetGroup, TargetUser:
		if job.TargetIdentifier == "" {
			return nil, errors.Newf("job %d: %s target requires a target_identifier", job.ID, job.TargetType)
		}
		return []string{job.TargetIdentifier}, nil

	case TargetTag:
		if job.TargetIdentifier == "" {
			return nil, errors.Newf("job %d: TAG target requires a target_identifier naming the tag", job.ID)
		}
		return resolver.Resolve(ctx, job.TargetIdentifier, job.BotID)

	case TargetAllGroups:
		return resolver.Resolve(ctx, tagresolver.AllTag, job.BotID)

	case TargetGlobal:
		return []string{""}, nil

	default:
		return nil, errors.Newf("job %d: unknown target type %q", job.ID, job.TargetType)
	}
}

// TargetFilter narrows a bulk operation to jobs matching the given criteria.
// Zero-value fields are ignored. IDIn/TargetIdentifierIn, when non-empty,
// require the respective field be a member of the slice.
type TargetFilter struct {
	ID                 int64
	IDIn               []int64
	PluginName         string
	TargetType         TargetType
	TargetIdentifier   string
	TargetIdentifierIn []string
	BotID              string
}

// Targeter runs bulk pause/resume/remove operations over jobs matching a
// TargetFilter, for operator commands that act on many schedules at once.
type Targeter struct {
	store *Store
}

// NewTargeter creates a Targeter over store.
func NewTargeter(store *Store) *Targeter {
	return &Targeter{store: store}
}

// Match lists every job satisfying filter.
func (t *Targeter) Match(ctx context.Context, filter TargetFilter) ([]*ScheduledJob, error) {
	all, err := t.store.query(ctx, "SELECT "+selectColumns+" FROM scheduled_jobs")
	if err != nil {
		return nil, err
	}

	var matched []*ScheduledJob
	for _, job := range all {
		if matches(job, filter) {
			matched = append(matched, job)
		}
	}
	return matched, nil
}

func matches(job *ScheduledJob, f TargetFilter) bool {
	if f.ID != 0 && job.ID != f.ID {
		return false
	}
	if len(f.IDIn) > 0 && !containsInt64(f.IDIn, job.ID) {
		return false
	}
	if f.PluginName != "" && job.PluginName != f.PluginName {
		return false
	}
	if f.TargetType != "" && job.TargetType != f.TargetType {
		return false
	}
	if f.TargetIdentifier != "" && job.TargetIdentifier != f.TargetIdentifier {
		return false
	}
	if len(f.TargetIdentifierIn) > 0 && !containsString(f.TargetIdentifierIn, job.TargetIdentifier) {
		return false
	}
	if f.BotID != "" && job.BotID != f.BotID {
		return false
	}
	return true
}

func containsInt64(haystack []int64, needle int64) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}

// PauseMatching disables every job matching filter and returns how many were affected.
func (t *Targeter) PauseMatching(ctx context.Context, filter TargetFilter) (int, error) {
	return t.setEnabledMatching(ctx, filter, false)
}

// ResumeMatching enables every job matching filter and returns how many were affected.
func (t *Targeter) ResumeMatching(ctx context.Context, filter TargetFilter) (int, error) {
	return t.setEnabledMatching(ctx, filter, true)
}

func (t *Targeter) setEnabledMatching(ctx context.Context, filter TargetFilter, enabled bool) (int, error) {
	jobs, err := t.Match(ctx, filter)
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		if err := t.store.SetEnabled(ctx, job.ID, enabled); err != nil {
			return 0, err
		}
	}
	return len(jobs), nil
}

// RemoveMatching deletes every job matching filter and returns how many were removed.
func (t *Targeter) RemoveMatching(ctx context.Context, filter TargetFilter) (int, error) {
	jobs, err := t.Match(ctx, filter)
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		if err := t.store.Delete(ctx, job.ID); err != nil {
			return 0, err
		}
	}
	return len(jobs), nil
}
