package authpipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sbvh/botcore/config"
)

// Pipeline runs an event through plugin/user resolution, cost evaluation,
// bot filtering, the concurrent check set, and gold deduction.
type Pipeline struct {
	plugins  PluginResolver
	users    UserResolver
	ledger   GoldLedger
	checks   []Check
	breakers *breakers

	checkTimeout    time.Duration
	slowWarn        time.Duration
	filterBot       bool
	knownBotIDs     map[string]struct{}
	log             *zap.SugaredLogger
	releaseBlockers []func(event Event)
}

// New builds a Pipeline from the hook configuration. checks runs in the
// order given, but all of them are evaluated concurrently per invocation.
func New(cfg config.HookConfig, plugins PluginResolver, users UserResolver, ledger GoldLedger, checks []Check, log *zap.SugaredLogger) *Pipeline {
	checkTimeout := time.Duration(cfg.CheckTimeoutMS) * time.Millisecond
	if checkTimeout <= 0 {
		checkTimeout = 200 * time.Millisecond
	}
	resetAfter := time.Duration(cfg.BreakerResetSecs) * time.Second
	if resetAfter <= 0 {
		resetAfter = 300 * time.Second
	}
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 3
	}
	slowWarn := time.Duration(cfg.SlowPipelineWarnMS) * time.Millisecond
	if slowWarn <= 0 {
		slowWarn = 500 * time.Millisecond
	}

	return &Pipeline{
		plugins:      plugins,
		users:        users,
		ledger:       ledger,
		checks:       checks,
		breakers:     newBreakers(threshold, resetAfter),
		checkTimeout: checkTimeout,
		slowWarn:     slowWarn,
		filterBot:    cfg.FilterBot,
		knownBotIDs:  make(map[string]struct{}),
		log:          log,
	}
}

// RegisterBotID marks id as a known bot sender, subject to the bot filter
// step when enabled.
func (p *Pipeline) RegisterBotID(id string) {
	p.knownBotIDs[id] = struct{}{}
}

// OnReleaseBlockers registers a callback invoked on every path out of Run
// (success or skip) to release any user-block tokens acquired during the
// checks, so a later invocation is never left stuck on a held token.
func (p *Pipeline) OnReleaseBlockers(fn func(event Event)) {
	p.releaseBlockers = append(p.releaseBlockers, fn)
}

// Run evaluates event against plugin.
func (p *Pipeline) Run(ctx context.Context, event Event) (Result, error) {
	start := time.Now()
	defer func() {
		for _, fn := range p.releaseBlockers {
			fn(event)
		}
	}()

	type resolved struct {
		plugin      Plugin
		pluginFound bool
		userExists  bool
		gold        int
		superuser   bool
	}

	var r resolved
	var pluginErr, userErr error

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.plugin, r.pluginFound, pluginErr = p.plugins.ResolvePlugin(ctx, event.PluginName)
	}()
	go func() {
		defer wg.Done()
		r.userExists, r.gold, r.superuser, userErr = p.users.ResolveUser(ctx, event.UserID)
	}()
	wg.Wait()

	if pluginErr != nil || userErr != nil || !r.pluginFound || !r.userExists {
		return Result{Outcome: Continue}, nil
	}

	// Cost evaluation.
	if r.plugin.CostGold > 0 {
		exempt := r.superuser && r.plugin.SuperuserExempt && !r.plugin.SuperuserOnly
		if !exempt && r.gold < r.plugin.CostGold {
			return Result{Outcome: Ignored, Message: "insufficient balance"}, nil
		}
	}

	// Bot-level filter.
	if p.filterBot {
		if _, isBot := p.knownBotIDs[event.UserID]; isBot {
			return Result{Outcome: Ignored}, nil
		}
	}

	skipMessage, err := p.runChecks(ctx, event, r.plugin)
	if err != nil {
		return Result{}, err
	}
	if skipMessage != "" {
		return Result{Outcome: Ignored, Message: skipMessage}, nil
	}

	if r.plugin.CostGold > 0 && !r.superuser {
		amount := r.plugin.CostGold
		if amount > r.gold {
			amount = r.gold
		}
		if p.ledger != nil {
			if err := p.ledger.Deduct(ctx, event.UserID, amount); err != nil {
				p.log.Warnw("gold deduction failed", "user_id", event.UserID, "error", err)
			}
		}
	}

	if elapsed := time.Since(start); elapsed > p.slowWarn {
		p.log.Warnw("authorization pipeline slow",
			"plugin", event.PluginName, "elapsed", elapsed, "threshold", p.slowWarn)
	}

	return Result{Outcome: Continue}, nil
}

// runChecks evaluates every registered check concurrently under 2×checkTimeout.
// It returns the first SkipPlugin message encountered, or "" if none vetoed.
func (p *Pipeline) runChecks(ctx context.Context, event Event, plugin Plugin) (string, error) {
	if len(p.checks) == 0 {
		return "", nil
	}

	outerCtx, cancel := context.WithTimeout(ctx, 2*p.checkTimeout)
	defer cancel()

	type outcome struct {
		check   string
		skipMsg string
	}
	results := make(chan outcome, len(p.checks))

	var wg sync.WaitGroup
	for _, check := range p.checks {
		check := check
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- outcome{check: check.Name(), skipMsg: p.evaluateOne(outerCtx, check, event, plugin)}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var firstSkip string
	for res := range results {
		if res.skipMsg != "" && firstSkip == "" {
			firstSkip = res.skipMsg
		}
	}

	return firstSkip, nil
}

// evaluateOne runs a single check under its own timeout and circuit
// breaker, returning a non-empty skip message if the check vetoed.
func (p *Pipeline) evaluateOne(ctx context.Context, check Check, event Event, plugin Plugin) string {
	br := p.breakers.For(check.Name())
	if br.Open() {
		p.log.Warnw("circuit breaker open, skipping check", "check", check.Name(), "plugin", plugin.Name)
		return ""
	}

	checkCtx, cancel := context.WithTimeout(ctx, p.checkTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- check.Evaluate(checkCtx, event, plugin)
	}()

	select {
	case <-checkCtx.Done():
		br.RecordTimeout()
		p.log.Warnw("authorization check timed out", "check", check.Name(), "plugin", plugin.Name)
		return ""

	case err := <-done:
		if checkCtx.Err() != nil {
			// The deadline fired at essentially the same instant the check
			// returned; treat it as the timeout it raced with, not a clean
			// result, so the breaker's failure accounting stays accurate.
			br.RecordTimeout()
			p.log.Warnw("authorization check timed out", "check", check.Name(), "plugin", plugin.Name)
			return ""
		}

		br.RecordSuccess()
		if err == nil {
			return ""
		}
		if skip, ok := asSkip(err); ok {
			return skip.Info
		}
		if _, ok := asSuperuser(err); ok {
			return ""
		}
		if _, ok := asExempt(err); ok {
			return ""
		}
		p.log.Warnw("authorization check failed, failing open", "check", check.Name(), "error", err)
		return ""
	}
}
