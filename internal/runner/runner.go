// Package runner drives a request rush: it gates the start time, spreads a
// shared request budget over a bounded worker set, and pushes every logical
// request through the pacing, proxy and retry layers until it reaches a
// terminal state.
package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"apirush/internal/client"
	"apirush/internal/config"
	"apirush/internal/metrics"
	"apirush/internal/pacing"
	"apirush/internal/proxy"
	"apirush/internal/retry"
	"apirush/internal/schedule"
	"apirush/internal/utils"
)

// Exchanger performs one HTTP attempt. *client.Client satisfies it.
type Exchanger interface {
	Exchange(ctx context.Context, spec client.Request, handle *proxy.Handle) (*client.Response, error)
}

// Work is one unit of work, invoked once per attempt with the logical
// request number and the borrowed proxy endpoint. The runner never
// inspects it beyond the returned error.
type Work func(ctx context.Context, request int, handle *proxy.Handle) error

// Options wires the collaborators for one run. Provider and Metrics may be
// nil; requests then go direct and uninstrumented. When Work is nil the
// runner exchanges Task through Client on every attempt.
type Options struct {
	Task     client.Request
	Run      config.RunConfig
	Policy   *retry.Policy
	Provider proxy.Provider
	Client   Exchanger
	Metrics  *metrics.Metrics
	Work     Work
}

// Runner executes one configured run.
type Runner struct {
	task     client.Request
	run      config.RunConfig
	policy   *retry.Policy
	provider proxy.Provider
	metrics  *metrics.Metrics
	work     Work

	scheduler *schedule.Scheduler
	injector  *pacing.Injector
	logger    zerolog.Logger
}

// New assembles a runner from its options.
func New(opts Options) *Runner {
	work := opts.Work
	if work == nil {
		task, exchanger := opts.Task, opts.Client
		work = func(ctx context.Context, request int, handle *proxy.Handle) error {
			_, err := exchanger.Exchange(ctx, task, handle)
			return err
		}
	}

	return &Runner{
		task:      opts.Task,
		run:       opts.Run,
		policy:    opts.Policy,
		provider:  opts.Provider,
		metrics:   opts.Metrics,
		work:      work,
		scheduler: schedule.New(),
		injector:  pacing.New(opts.Run.RequestDelay.Std()),
		logger:    utils.NewComponentLogger("runner"),
	}
}

// Run holds until the scheduled start, then executes the full request
// budget. Individual request failures never abort the run; only start-gate
// cancellation surfaces as an error.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	var startAt time.Time
	if r.run.ExecuteTime != nil {
		startAt = *r.run.ExecuteTime
	}
	if err := r.scheduler.WaitUntil(ctx, startAt); err != nil {
		return nil, err
	}

	budget := NewBudget(r.run.MaxRequests)
	workers := min(r.run.MaxConcurrent, r.run.MaxRequests)
	if workers < 1 {
		workers = 1
	}

	r.logger.Info().
		Int("workers", workers).
		Int("budget", r.run.MaxRequests).
		Str("target", r.task.URL).
		Msg("run starting")

	start := time.Now()
	collector := &resultCollector{}
	var seq atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for budget.Acquire() {
				id := int(seq.Add(1))
				attempts, err := r.executeRequest(gctx, id)
				switch {
				case err == nil:
					r.metrics.RequestSucceeded()
					collector.success(attempts)
				case isCancellation(err):
					collector.cancelled(attempts)
					return nil
				default:
					r.metrics.RequestFailed()
					collector.failure(id, attempts, err)
					r.logger.Debug().
						Err(err).
						Int("request", id).
						Int("attempts", attempts).
						Msg("request exhausted its attempts")
				}
			}
			return nil
		})
	}
	// Workers never return errors; failures are isolated per request.
	_ = g.Wait()

	result := collector.snapshot()
	result.Elapsed = time.Since(start)

	r.logger.Info().
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Int("cancelled", result.Cancelled).
		Int("attempts", result.Attempts).
		Dur("elapsed", result.Elapsed).
		Msg("run complete")
	return &result, nil
}

// executeRequest drives one logical request to a terminal state, returning
// the number of attempts it consumed.
func (r *Runner) executeRequest(ctx context.Context, id int) (int, error) {
	for attempt := 0; ; attempt++ {
		err := r.attemptOnce(ctx, id)
		if err == nil {
			return attempt + 1, nil
		}
		if isCancellation(err) {
			return attempt + 1, err
		}

		decision := r.policy.Decide(attempt, err)
		if !decision.Retry {
			return attempt + 1, err
		}

		r.metrics.RetryScheduled()
		if serr := sleepCtx(ctx, decision.After); serr != nil {
			return attempt + 1, serr
		}
	}
}

// attemptOnce performs the pacing pause, borrows a proxy endpoint, runs the
// unit of work and reports the outcome back to the provider.
func (r *Runner) attemptOnce(ctx context.Context, request int) error {
	if err := r.injector.Wait(ctx); err != nil {
		return err
	}

	var handle *proxy.Handle
	if r.provider != nil {
		var err error
		handle, err = r.provider.Acquire(ctx)
		if err != nil {
			return err
		}
	}

	r.metrics.AttemptStarted()
	start := time.Now()
	err := r.work(ctx, request, handle)
	elapsed := time.Since(start)

	if err != nil {
		r.metrics.AttemptFinished("failure", elapsed)
		if r.provider != nil && handle != nil {
			r.provider.ReportFailure(handle, err)
			r.metrics.ProxyFailure(handle.Source)
		}
		return err
	}

	r.metrics.AttemptFinished("success", elapsed)
	if r.provider != nil && handle != nil {
		r.provider.ReportSuccess(handle)
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
