// Package retry provides a call-wrapping backoff decorator used by the
// scheduler's per-target execution; the authorization pipeline does not use
// it. It generalizes the exponential-backoff loop
// the host's async worker pool runs around job processing into a reusable,
// parameterized decorator rather than a loop inlined at each call site.
package retry

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// Strategy selects how the wait between attempts grows.
type Strategy int

const (
	// Fixed waits the same duration between every attempt.
	Fixed Strategy = iota
	// Exponential doubles the wait each attempt, capped at WaitExpMax.
	Exponential
)

// Options configures a retry decorator. Zero value retries once (no retry)
// with no backoff.
type Options struct {
	// MaxAttempts is the total number of calls including the first. A value
	// ≤ 1 disables retrying entirely.
	MaxAttempts int

	Strategy Strategy

	// WaitFixed is the wait between attempts under Fixed.
	WaitFixed time.Duration

	// WaitExpMultiplier and WaitExpMax bound Exponential: wait doubles each
	// attempt starting at WaitExpMultiplier, capped at WaitExpMax.
	WaitExpMultiplier time.Duration
	WaitExpMax        time.Duration

	// RetryOnResult, if set, is consulted after a successful call: a true
	// return retries even though no error occurred.
	RetryOnResult func(result any) bool

	// ShouldRetry, if set, filters which errors are retryable. Nil retries
	// on any error.
	ShouldRetry func(err error) bool

	// LogName labels each retry-warning log line.
	LogName string

	// OnFailure is called once, after the final failed attempt, before the
	// decorator returns. OnSuccess is called once after a successful call.
	OnFailure func(err error)
	OnSuccess func(result any)

	// ReturnOnFailure, when HasReturnOnFailure is true, is the value Do
	// returns (with a nil error) instead of propagating the final error.
	ReturnOnFailure    any
	HasReturnOnFailure bool

	Log *zap.SugaredLogger
}

// Op is the operation a retry decorator wraps. The returned result is only
// inspected if Options.RetryOnResult is set.
type Op func(ctx context.Context) (any, error)

// Do runs op, retrying per opts until it succeeds, attempts are exhausted,
// or ctx is cancelled.
func Do(ctx context.Context, opts Options, op Op) (any, error) {
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		result, err := op(ctx)
		if err == nil {
			retry := opts.RetryOnResult != nil && opts.RetryOnResult(result)
			if !retry {
				if opts.OnSuccess != nil {
					opts.OnSuccess(result)
				}
				return result, nil
			}
			lastErr = nil
		} else {
			if opts.ShouldRetry != nil && !opts.ShouldRetry(err) {
				return nil, err
			}
			lastErr = err
		}

		if attempt == attempts {
			break
		}

		wait := opts.wait(attempt)
		logRetry(opts, attempt, attempts, wait, lastErr)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if opts.OnFailure != nil {
		opts.OnFailure(lastErr)
	}
	if opts.HasReturnOnFailure {
		return opts.ReturnOnFailure, nil
	}
	if lastErr == nil {
		lastErr = errRetryOnResultExhausted
	}
	return nil, lastErr
}

func (o Options) wait(attempt int) time.Duration {
	if o.Strategy == Fixed {
		return o.WaitFixed
	}

	multiplier := o.WaitExpMultiplier
	if multiplier <= 0 {
		multiplier = time.Second
	}
	wait := multiplier << uint(attempt-1)
	if o.WaitExpMax > 0 && wait > o.WaitExpMax {
		wait = o.WaitExpMax
	}
	return wait
}

func logRetry(opts Options, attempt, max int, wait time.Duration, err error) {
	if opts.Log == nil {
		return
	}
	name := opts.LogName
	if name == "" {
		name = "retry"
	}
	opts.Log.Warnw(name+" retrying",
		"attempt", attempt,
		"max_attempts", max,
		"wait", wait,
		"error", err)
}

// Jitter returns a uniform-random duration in (0, max], or 0 when max is
// not positive.
func Jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max))) + 1
}
