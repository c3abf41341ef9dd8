package scheduler

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sbvh/botcore/config"
	"github.com/sbvh/botcore/errors"
	"github.com/sbvh/botcore/plugin"
)

// BotAvailability reports which configured bot, if any, is currently
// online and able to run a job. Jobs that pin a bot_id require that
// specific bot; jobs that don't accept any online bot.
type BotAvailability interface {
	IsOnline(botID string) bool
	AnyOnline() (string, bool)
}

// liveEntry tracks one job's in-memory scheduling state: its trigger, the
// next time it is due, and whether an invocation is currently running.
type liveEntry struct {
	trigger Trigger
	policy  ConcurrencyPolicy
	nextRun time.Time
	running bool
}

// ephemeralEntry is a one-shot job registered via RunAt, never persisted.
type ephemeralEntry struct {
	id      string
	nextRun time.Time
	fn      func(ctx context.Context) error
}

// Scheduler is the live, in-memory half of the persistent job scheduler: it
// ticks, computes due jobs from their Trigger, resolves targets, fans
// invocations out, and writes results back to the Store.
type Scheduler struct {
	store    *Store
	executor *Executor
	registry *plugin.Registry
	tags     TagResolver
	bots     BotAvailability
	cfg      config.SchedulerConfig
	log      *zap.SugaredLogger

	mu        sync.Mutex
	live      map[int64]*liveEntry
	ephemeral map[string]*ephemeralEntry
	declared  []declaration

	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// declaration is a plugin-registered default job created at startup if the
// store has no matching row yet.
type declaration struct {
	PluginName       string
	BotID            string
	TargetType       TargetType
	TargetIdentifier string
	TriggerType      TriggerType
	TriggerConfig    json.RawMessage
	Options          ExecutionOptions
}

// New creates a Scheduler. Call Declare to register declarative defaults
// before Start.
func New(store *Store, executor *Executor, tags TagResolver, bots BotAvailability, cfg config.SchedulerConfig, log *zap.SugaredLogger) *Scheduler {
	interval := time.Second
	if cfg.TickerIntervalSeconds > 0 {
		interval = time.Duration(cfg.TickerIntervalSeconds) * time.Second
	}
	s := &Scheduler{
		store:     store,
		executor:  executor,
		tags:      tags,
		bots:      bots,
		cfg:       cfg,
		log:       log,
		live:      make(map[int64]*liveEntry),
		ephemeral: make(map[string]*ephemeralEntry),
		interval:  interval,
	}
	if executor != nil {
		s.registry = executor.registry
	}
	return s
}

// pluginRegistered reports whether name has a live handler registration. A
// nil registry (executor-less scheduler, e.g. an admin CLI that never
// executes invocations) treats every plugin as registered.
func (s *Scheduler) pluginRegistered(name string) bool {
	if s.registry == nil {
		return true
	}
	_, ok := s.registry.Get(name)
	return ok
}

// Declare registers a plugin's default job, created in the store at Start
// time if no row already matches (plugin_name, target_type,
// target_identifier, bot_id). Declarative jobs never overwrite a
// user-modified row.
func (s *Scheduler) Declare(d declaration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.declared = append(s.declared, d)
}

// Start reconciles declarative defaults, loads every enabled row from the
// store into the live set, and begins the tick loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	if err := s.reconcileDeclared(s.ctx); err != nil {
		return errors.Wrap(err, "reconcile declarative schedules")
	}
	if err := s.loadEnabled(s.ctx); err != nil {
		return errors.Wrap(err, "load enabled schedules")
	}

	s.wg.Add(1)
	go s.run()
	s.log.Infow("scheduler started", "interval", s.interval, "jobs", len(s.live))
	return nil
}

// Stop cancels the tick loop and waits for the current tick to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) reconcileDeclared(ctx context.Context) error {
	s.mu.Lock()
	declared := append([]declaration(nil), s.declared...)
	s.mu.Unlock()

	for _, d := range declared {
		existing, err := s.store.FindByTarget(ctx, d.PluginName, d.TargetType, d.TargetIdentifier, d.BotID)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		if err := d.Options.Validate(); err != nil {
			return errors.Wrapf(err, "declarative job %s has invalid options", d.PluginName)
		}
		job := &ScheduledJob{
			PluginName:       d.PluginName,
			BotID:            d.BotID,
			TargetType:       d.TargetType,
			TargetIdentifier: d.TargetIdentifier,
			TriggerType:      d.TriggerType,
			TriggerConfig:    d.TriggerConfig,
			Options:          d.Options,
			IsEnabled:        true,
		}
		if _, err := s.store.Create(ctx, job); err != nil {
			return errors.Wrapf(err, "create declarative job %s", d.PluginName)
		}
	}
	return nil
}

func (s *Scheduler) loadEnabled(ctx context.Context) error {
	jobs, err := s.store.ListEnabled(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range jobs {
		if !s.pluginRegistered(job.PluginName) {
			s.log.Warnw("skipping job at load: plugin not registered", "job", job.ID, "plugin", job.PluginName)
			continue
		}
		trigger, err := NewTrigger(job.TriggerType, job.TriggerConfig, s.cfg.Timezone)
		if err != nil {
			s.log.Warnw("skipping job with invalid trigger at load", "job", job.ID, "error", err)
			continue
		}
		next, _ := trigger.Next(time.Now())
		s.live[job.ID] = &liveEntry{trigger: trigger, policy: job.Options.ConcurrencyPolicy, nextRun: next}
	}
	return nil
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *Scheduler) tick(now time.Time) {
	due := s.dueJobIDs(now)
	for _, id := range due {
		s.fireJob(id, now, false)
	}

	firedEphemeral := s.dueEphemeral(now)
	for _, e := range firedEphemeral {
		go func(e *ephemeralEntry) {
			if err := e.fn(s.ctx); err != nil {
				s.log.Warnw("ephemeral job failed", "id", e.id, "error", err)
			}
		}(e)
	}
}

func (s *Scheduler) dueJobIDs(now time.Time) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []int64
	for id, entry := range s.live {
		if entry.nextRun.After(now) {
			continue
		}
		due = append(due, id)
		entry.nextRun, _ = entry.trigger.Next(now)
	}
	return due
}

func (s *Scheduler) dueEphemeral(now time.Time) []*ephemeralEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*ephemeralEntry
	for id, e := range s.ephemeral {
		if e.nextRun.After(now) {
			continue
		}
		due = append(due, e)
		delete(s.ephemeral, id)
	}
	return due
}

// fireJob runs jobID's scheduled invocation. force bypasses the
// is_enabled=false skip, as required by a manual trigger.
func (s *Scheduler) fireJob(jobID int64, now time.Time, force bool) {
	policy := s.concurrencyGate(jobID, force)
	if policy == gateSkip {
		s.log.Infow("job fire skipped: already running under SKIP policy", "job", jobID)
		return
	}
	if policy == gateQueue {
		s.waitForSlot(jobID)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.releaseRunning(jobID)
		if err := s.executeInvocation(s.ctx, jobID, force); err != nil {
			s.log.Warnw("scheduled invocation failed", "job", jobID, "error", err)
		}
	}()
}

type gateDecision int

const (
	gateAllow gateDecision = iota
	gateSkip
	gateQueue
)

func (s *Scheduler) concurrencyGate(jobID int64, force bool) gateDecision {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live[jobID]
	if !ok {
		return gateAllow
	}
	if !entry.running {
		entry.running = true
		return gateAllow
	}
	if force || entry.policy == PolicyAllow {
		return gateAllow
	}
	if entry.policy == PolicyQueue {
		return gateQueue
	}
	return gateSkip
}

func (s *Scheduler) waitForSlot(jobID int64) {
	for {
		s.mu.Lock()
		entry, ok := s.live[jobID]
		if !ok || !entry.running {
			if ok {
				entry.running = true
			}
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		select {
		case <-s.ctx.Done():
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (s *Scheduler) releaseRunning(jobID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.live[jobID]; ok {
		entry.running = false
	}
}

// TriggerNow runs id's execution path immediately with force=true, bypassing
// the is_enabled=false skip.
func (s *Scheduler) TriggerNow(ctx context.Context, id int64) error {
	return s.executeInvocation(ctx, id, true)
}

// executeInvocation is the single-invocation execution flow: fetch, check
// enabled, resolve bot and targets, fan the work out, and record the
// outcome.
func (s *Scheduler) executeInvocation(ctx context.Context, jobID int64, force bool) error {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return err
	}
	if !job.IsEnabled && !force {
		s.log.Infow("job disabled, skipping invocation", "job", jobID)
		return nil
	}

	if !s.pluginRegistered(job.PluginName) {
		s.log.Warnw("plugin not registered, auto-disabling job", "job", jobID, "plugin", job.PluginName)
		if err := s.store.DisablePlugin(ctx, job.PluginName); err != nil {
			return errors.Wrapf(err, "auto-disable job %d for unregistered plugin %s", jobID, job.PluginName)
		}
		s.mu.Lock()
		delete(s.live, jobID)
		s.mu.Unlock()
		return nil
	}

	botID, err := s.resolveBot(job)
	if err != nil {
		return errors.Wrapf(err, "resolve bot for job %d", jobID)
	}

	targets, err := resolveTargets(ctx, s.tags, job)
	if err != nil {
		return errors.Wrapf(err, "resolve targets for job %d", jobID)
	}

	errs := FanOut(ctx, job, targets, s.cfg.AllGroupsConcurrencyLimit, func(ctx context.Context, target string) error {
		return s.executor.Run(ctx, withBot(job, botID), target)
	}, s.log)

	now := time.Now()
	status := RunSuccess
	consecutive := 0
	if len(errs) > 0 {
		status = RunFailure
		consecutive = job.ConsecutiveFailures + 1
	}
	if err := s.store.UpdateAfterExecution(ctx, jobID, now, status, consecutive); err != nil {
		return errors.Wrapf(err, "record execution result for job %d", jobID)
	}

	if job.IsOneOff && status == RunSuccess {
		s.cleanupOneOff(ctx, job)
	}

	if len(errs) > 0 {
		return errors.Newf("job %d: %d of %d targets failed", jobID, len(errs), len(targets))
	}
	return nil
}

func withBot(job *ScheduledJob, botID string) *ScheduledJob {
	if job.BotID == botID {
		return job
	}
	clone := *job
	clone.BotID = botID
	return &clone
}

func (s *Scheduler) resolveBot(job *ScheduledJob) (string, error) {
	if s.bots == nil {
		return job.BotID, nil
	}
	if job.BotID != "" {
		if !s.bots.IsOnline(job.BotID) {
			return "", errors.Newf("bot %s is not online", job.BotID)
		}
		return job.BotID, nil
	}
	botID, ok := s.bots.AnyOnline()
	if !ok {
		return "", errors.New("no bot is online")
	}
	return botID, nil
}

func (s *Scheduler) cleanupOneOff(ctx context.Context, job *ScheduledJob) {
	if err := s.store.Delete(ctx, job.ID); err != nil {
		s.log.Warnw("failed to delete completed one-off job", "job", job.ID, "error", err)
		return
	}
	s.mu.Lock()
	delete(s.live, job.ID)
	s.mu.Unlock()
	if isOneOffPluginKey(job.PluginName) && s.registry != nil {
		s.registry.Unregister(job.PluginName)
		s.log.Infow("deregistered one-off synthetic plugin", "plugin", job.PluginName)
	}
}

// AddSchedule upserts a persistent job keyed by (plugin_name, target_type,
// target_identifier, bot_id), the imperative job source.
func (s *Scheduler) AddSchedule(ctx context.Context, job *ScheduledJob) (*ScheduledJob, error) {
	if err := job.Options.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.store.FindByTarget(ctx, job.PluginName, job.TargetType, job.TargetIdentifier, job.BotID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		job.ID = existing.ID
		if err := s.store.Update(ctx, job.ID, job.TriggerType, job.TriggerConfig, job.JobKwargs); err != nil {
			return nil, err
		}
	} else {
		id, err := s.store.Create(ctx, job)
		if err != nil {
			return nil, err
		}
		job.ID = id
	}

	if err := s.registerLive(job); err != nil {
		return nil, err
	}
	return job, nil
}

// ScheduleOnce registers a one-off persistent job under a synthetic plugin
// key bound to handler. The row and the synthetic registration are both
// removed automatically after the job's first successful run.
func (s *Scheduler) ScheduleOnce(ctx context.Context, job *ScheduledJob, handler plugin.HandlerFunc) (*ScheduledJob, error) {
	if s.registry == nil {
		return nil, errors.New("one-off jobs require a plugin registry")
	}

	job.IsOneOff = true
	if job.PluginName == "" {
		job.PluginName = oneOffPluginPrefix + uuid.NewString()
	}
	if err := s.registry.Register(plugin.Registration{Name: job.PluginName, Handler: handler}); err != nil {
		return nil, errors.Wrapf(err, "register one-off handler %s", job.PluginName)
	}

	scheduled, err := s.AddSchedule(ctx, job)
	if err != nil {
		s.registry.Unregister(job.PluginName)
		return nil, err
	}
	return scheduled, nil
}

// RunAt registers a non-persistent, ephemeral one-shot job identified by a
// UUID, lost across restarts. It fires at the next occurrence trigger
// produces after now.
func (s *Scheduler) RunAt(trigger Trigger, fn func(ctx context.Context) error) (string, error) {
	next, ok := trigger.Next(time.Now())
	if !ok {
		return "", errors.New("ephemeral trigger has no future occurrence")
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.ephemeral[id] = &ephemeralEntry{id: id, nextRun: next, fn: fn}
	s.mu.Unlock()
	return id, nil
}

func (s *Scheduler) registerLive(job *ScheduledJob) error {
	trigger, err := NewTrigger(job.TriggerType, job.TriggerConfig, s.cfg.Timezone)
	if err != nil {
		return errors.Wrapf(err, "register live job %d", job.ID)
	}
	next, _ := trigger.Next(time.Now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.live[job.ID] = &liveEntry{trigger: trigger, policy: job.Options.ConcurrencyPolicy, nextRun: next}
	return nil
}

// UpdateSchedule applies a partial update and re-registers the live job.
func (s *Scheduler) UpdateSchedule(ctx context.Context, id int64, triggerType TriggerType, triggerConfig, jobKwargs json.RawMessage) error {
	if err := s.store.Update(ctx, id, triggerType, triggerConfig, jobKwargs); err != nil {
		return err
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.registerLive(job)
}

// PauseSchedule disables id and stops its live trigger.
func (s *Scheduler) PauseSchedule(ctx context.Context, id int64) error {
	if err := s.store.SetEnabled(ctx, id, false); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.live, id)
	s.mu.Unlock()
	return nil
}

// ResumeSchedule re-enables id and re-registers (or adds) its live trigger.
func (s *Scheduler) ResumeSchedule(ctx context.Context, id int64) error {
	if err := s.store.SetEnabled(ctx, id, true); err != nil {
		return err
	}
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.registerLive(job)
}

// Status reports whether jobID currently has an invocation running.
func (s *Scheduler) Status(jobID int64) (running bool, tracked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.live[jobID]
	if !ok {
		return false, false
	}
	return entry.running, true
}
