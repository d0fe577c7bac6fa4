// Package schedule fans decode work units out according to a job's
// strategy and hands back one future per unit.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"json-decode-bench/internal/decode"
	"json-decode-bench/internal/domain"
	"json-decode-bench/internal/pool"
)

// UnitHook observes every resolved unit.
type UnitHook func(strategy domain.Strategy, err error)

// Scheduler distributes work units for one job at a time.
type Scheduler struct {
	pools      *pool.Manager
	maxWidth   int
	logger     *slog.Logger
	onUnit     UnitHook
	decoderFor func(domain.Codec) (decode.Decoder, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxWidth overrides the available parallelism used to clamp widths.
func WithMaxWidth(n int) Option {
	return func(s *Scheduler) { s.maxWidth = n }
}

// WithLogger sets the scheduler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithUnitHook registers a callback invoked after each unit resolves.
func WithUnitHook(fn UnitHook) Option {
	return func(s *Scheduler) { s.onUnit = fn }
}

// WithDecoder makes every job use dec regardless of its codec.
func WithDecoder(dec decode.Decoder) Option {
	return func(s *Scheduler) {
		s.decoderFor = func(domain.Codec) (decode.Decoder, error) { return dec, nil }
	}
}

// New creates a scheduler backed by the given pool manager.
func New(pools *pool.Manager, opts ...Option) *Scheduler {
	s := &Scheduler{
		pools:      pools,
		maxWidth:   domain.AvailableParallelism(),
		decoderFor: decode.For,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxWidth < 1 {
		s.maxWidth = 1
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// MaxWidth returns the upper bound applied to pool widths.
func (s *Scheduler) MaxWidth() int { return s.maxWidth }

// Clamp bounds width to [1, MaxWidth] and replication to at least one.
func (s *Scheduler) Clamp(params domain.JobParameters) domain.JobParameters {
	if params.ConcurrencyWidth < 1 {
		params.ConcurrencyWidth = 1
	}
	if params.ConcurrencyWidth > s.maxWidth {
		params.ConcurrencyWidth = s.maxWidth
	}
	if params.ReplicationFactor < 1 {
		params.ReplicationFactor = 1
	}
	return params
}

// Batch is the set of futures produced for one job.
type Batch struct {
	Params  domain.JobParameters
	Futures []*Future

	pool    *pool.Pool
	release func()
	once    sync.Once
}

// Release returns the batch's pool, if any, to the manager. It must be
// called once every future resolved; calling it more than once is safe.
func (b *Batch) Release() {
	if b == nil {
		return
	}
	b.once.Do(func() {
		if b.release != nil {
			b.release()
		}
	})
}

// PoolStats reports pool counters for bounded batches.
func (b *Batch) PoolStats() (pool.Stats, bool) {
	if b == nil || b.pool == nil {
		return pool.Stats{}, false
	}
	return b.pool.Stats(), true
}

// Schedule submits params.ReplicationFactor decodes of source. Sequential
// batches are fully resolved on return; the other strategies return
// immediately with pending futures. A pool.CreationError is returned
// before any unit is submitted.
func (s *Scheduler) Schedule(ctx context.Context, source string, params domain.JobParameters) (*Batch, error) {
	params = s.Clamp(params)
	dec, err := s.decoderFor(params.Codec)
	if err != nil {
		return nil, err
	}

	batch := &Batch{Params: params}

	switch params.Strategy {
	case domain.StrategySequential:
		batch.Futures = s.runSequential(ctx, dec, source, params)

	case domain.StrategySystemDefault:
		batch.Futures = make([]*Future, params.ReplicationFactor)
		for i := range batch.Futures {
			f := newFuture(i)
			batch.Futures[i] = f
			go func() {
				f.resolve(s.runUnit(ctx, dec, source, i, params.Strategy))
			}()
		}

	case domain.StrategyBoundedPool:
		p, err := s.pools.Acquire(params.ConcurrencyWidth)
		if err != nil {
			return nil, err
		}
		batch.pool = p
		batch.release = func() { s.pools.Release(p) }

		batch.Futures = make([]*Future, params.ReplicationFactor)
		for i := range batch.Futures {
			f := newFuture(i)
			batch.Futures[i] = f
			submitErr := p.Submit(func() {
				f.resolve(s.runUnit(ctx, dec, source, i, params.Strategy))
			})
			if submitErr != nil {
				f.resolve(Outcome{Err: submitErr})
			}
		}

	default:
		return nil, fmt.Errorf("unknown strategy: %q", params.Strategy)
	}

	s.logger.Debug("work units scheduled",
		slog.String("strategy", string(params.Strategy)),
		slog.Int("width", params.ConcurrencyWidth),
		slog.Int("units", params.ReplicationFactor),
	)
	return batch, nil
}

// runSequential decodes every unit in order on the calling goroutine.
func (s *Scheduler) runSequential(ctx context.Context, dec decode.Decoder, source string, params domain.JobParameters) []*Future {
	futures := make([]*Future, params.ReplicationFactor)
	failed := false
	for i := range futures {
		if failed {
			futures[i] = resolvedFuture(Outcome{Index: i, Err: ErrSkipped})
			continue
		}
		outcome := s.runUnit(ctx, dec, source, i, params.Strategy)
		futures[i] = resolvedFuture(outcome)
		failed = outcome.Err != nil
	}
	return futures
}

// runUnit performs one decode. A cancelled context resolves the unit
// without decoding.
func (s *Scheduler) runUnit(ctx context.Context, dec decode.Decoder, source string, index int, strategy domain.Strategy) (outcome Outcome) {
	outcome.Index = index
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Index: index, Err: fmt.Errorf("work unit %d panicked: %v", index, r)}
		}
		if s.onUnit != nil {
			s.onUnit(strategy, outcome.Err)
		}
	}()

	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}

	records, err := dec.Decode(source)
	if err != nil {
		outcome.Err = err
		return outcome
	}
	outcome.Records = records
	return outcome
}
