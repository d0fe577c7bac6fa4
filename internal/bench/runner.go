// Package bench runs decode jobs end to end: it loads the source once,
// schedules the replicated decodes, waits for every unit, and reports the
// aggregate count together with the elapsed decode+aggregate time.
//
// Phases progress idle -> loading -> scheduling -> awaiting and end in
// completed, failed or cancelled. A failing unit fails the whole job; no
// partial count is ever reported as success. The worker pool of a job is
// always released before its terminal phase is announced.
package bench

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"json-decode-bench/internal/domain"
	"json-decode-bench/internal/jobs"
	"json-decode-bench/internal/metrics"
	"json-decode-bench/internal/schedule"
	"json-decode-bench/internal/source"
)

// Request describes one job.
type Request struct {
	Params  domain.JobParameters
	Loader  source.Loader
	OnPhase func(status domain.JobStatus)
}

// Runner executes jobs one at a time.
type Runner struct {
	scheduler *schedule.Scheduler
	metrics   *metrics.Recorder
	logger    *slog.Logger
	now       func() time.Time
	running   atomic.Bool
}

// Option configures a Runner.
type Option func(*Runner)

// WithMetrics records job metrics on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(rn *Runner) { rn.metrics = r }
}

// WithLogger sets the runner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(rn *Runner) { rn.logger = logger }
}

// NewRunner creates a runner on top of scheduler.
func NewRunner(scheduler *schedule.Scheduler, opts ...Option) *Runner {
	r := &Runner{
		scheduler: scheduler,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Scheduler returns the scheduler used by the runner.
func (r *Runner) Scheduler() *schedule.Scheduler { return r.scheduler }

// Run executes one job. The returned error is nil only for completed jobs;
// otherwise it is the cause of the failure and the result carries its
// ErrorInfo. A call made while another job is in flight is rejected with
// jobs.ErrJobAlreadyRunning without touching the running job.
func (r *Runner) Run(ctx context.Context, req Request) (domain.JobResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return failedResult(jobs.ErrJobAlreadyRunning, 0), jobs.ErrJobAlreadyRunning
	}
	defer r.running.Store(false)

	params := r.scheduler.Clamp(req.Params)
	logger := r.logger.With(
		slog.String("strategy", string(params.Strategy)),
		slog.String("codec", string(params.Codec)),
		slog.Int("width", params.ConcurrencyWidth),
		slog.Int("units", params.ReplicationFactor),
	)

	emit(req.OnPhase, domain.JobStatusLoading)
	text, err := r.load(ctx, req.Loader)
	if err != nil {
		return r.finish(ctx, req, params, logger, 0, 0, err)
	}

	emit(req.OnPhase, domain.JobStatusScheduling)
	sw := startStopwatch(r.now)

	g, gctx := errgroup.WithContext(ctx)
	batch, err := r.scheduler.Schedule(gctx, text, params)
	if err != nil {
		return r.finish(ctx, req, params, logger, 0, sw.stop(), err)
	}
	defer batch.Release()

	sw.exclude(func() { emit(req.OnPhase, domain.JobStatusAwaiting) })

	counts := make([]int, len(batch.Futures))
	unitErrs := make([]error, len(batch.Futures))
	for i, f := range batch.Futures {
		g.Go(func() error {
			outcome := f.Await()
			counts[i] = len(outcome.Records)
			unitErrs[i] = outcome.Err
			return outcome.Err
		})
	}
	waitErr := g.Wait()

	cause := firstCause(ctx, unitErrs, waitErr)
	total := 0
	if cause == nil {
		for _, n := range counts {
			total += n
		}
	}
	elapsed := sw.stop()

	if stats, ok := batch.PoolStats(); ok {
		logger.Debug("pool stats", slog.Int64("peak", stats.Peak), slog.Int64("completed", stats.Completed))
	}
	batch.Release()

	return r.finish(ctx, req, params, logger, total, elapsed, cause)
}

func (r *Runner) load(ctx context.Context, loader source.Loader) (string, error) {
	if loader == nil {
		return "", &SourceLoadError{Source: "none", Err: errors.New("no source loader configured")}
	}
	text, err := loader.Load(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &SourceLoadError{Source: source.Describe(loader), Err: err}
	}
	return text, nil
}

// finish builds the terminal result, records metrics and announces the
// terminal phase. The timer has already stopped when it is called.
func (r *Runner) finish(
	ctx context.Context,
	req Request,
	params domain.JobParameters,
	logger *slog.Logger,
	total int,
	elapsed time.Duration,
	cause error,
) (domain.JobResult, error) {
	status := domain.JobStatusCompleted
	result := domain.JobResult{TotalItemCount: total, ElapsedMillis: elapsed.Milliseconds()}
	switch {
	case cause == nil:
		logger.Info("job completed",
			slog.Int("items", total),
			slog.Int64("elapsed_ms", result.ElapsedMillis),
		)
	case Kind(cause) == KindCancelled:
		status = domain.JobStatusCancelled
		result = failedResult(cause, elapsed)
		logger.Info("job cancelled", slog.Int64("elapsed_ms", result.ElapsedMillis))
	default:
		status = domain.JobStatusFailed
		result = failedResult(cause, elapsed)
		logger.Warn("job failed",
			slog.String("kind", result.Error.Kind),
			slog.String("error", cause.Error()),
		)
	}

	r.metrics.RecordJob(context.WithoutCancel(ctx), params, status, result)
	emit(req.OnPhase, status)
	return result, cause
}

func failedResult(err error, elapsed time.Duration) domain.JobResult {
	return domain.JobResult{
		ElapsedMillis: elapsed.Milliseconds(),
		Error: &domain.ErrorInfo{
			Kind:    Kind(err),
			Message: err.Error(),
		},
	}
}

// firstCause picks the error that explains a job failure: the lowest-indexed
// unit error that is neither a skip nor a cancellation caused by fail-fast.
// Cancellations count only when the caller's context was cancelled.
func firstCause(ctx context.Context, unitErrs []error, waitErr error) error {
	for _, err := range unitErrs {
		if err == nil || errors.Is(err, schedule.ErrSkipped) {
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return waitErr
}

func emit(cb func(status domain.JobStatus), status domain.JobStatus) {
	if cb != nil {
		cb(status)
	}
}
