package scheduler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// defaultConcurrencyLimit bounds concurrent-mode fan-out when a job does
// not carry its own, process-wide default.
const defaultConcurrencyLimit = 5

// FanOut runs job's ScheduleContext across every resolved target according
// to its ExecutionOptions: serial with a fixed interval, or concurrent with
// a random spread delay and a bounded semaphore. Every target is attempted
// regardless of earlier failures; the returned errors are one per failing
// target, in no particular order.
func FanOut(ctx context.Context, job *ScheduledJob, targets []string, concurrencyLimit int, exec func(ctx context.Context, target string) error, log *zap.SugaredLogger) []error {
	if len(targets) == 0 {
		return nil
	}
	if job.Options.Interval > 0 {
		return fanOutSerial(ctx, job.Options.Interval, targets, exec)
	}
	if concurrencyLimit <= 0 {
		concurrencyLimit = defaultConcurrencyLimit
	}
	spread := job.Options.Spread
	if spread <= 0 {
		spread = defaultSpread
	}
	return fanOutConcurrent(ctx, spread, concurrencyLimit, targets, exec, log)
}

func fanOutSerial(ctx context.Context, interval time.Duration, targets []string, exec func(ctx context.Context, target string) error) []error {
	var errs []error
	for i, target := range targets {
		if i > 0 {
			timer := time.NewTimer(interval)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				errs = append(errs, ctx.Err())
				return errs
			}
		}
		if err := exec(ctx, target); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func fanOutConcurrent(ctx context.Context, spread time.Duration, limit int, targets []string, exec func(ctx context.Context, target string) error, log *zap.SugaredLogger) []error {
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, target := range targets {
		target := target
		wg.Add(1)
		go func() {
			defer wg.Done()

			delay := spreadDelay(spread)
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				mu.Lock()
				errs = append(errs, ctx.Err())
				mu.Unlock()
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				mu.Lock()
				errs = append(errs, ctx.Err())
				mu.Unlock()
				return
			}
			defer func() { <-sem }()

			if err := exec(ctx, target); err != nil {
				if log != nil {
					log.Warnw("fan-out target failed", "target", target, "error", err)
				}
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	return errs
}

// spreadDelay picks a uniform-random delay in (0, spread].
func spreadDelay(spread time.Duration) time.Duration {
	if spread <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(spread))) + 1
}
