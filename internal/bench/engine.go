package bench

import (
	"log/slog"

	"json-decode-bench/internal/metrics"
	"json-decode-bench/internal/pool"
	"json-decode-bench/internal/schedule"
)

// Engine is a runner together with the pool manager it draws workers from.
type Engine struct {
	Runner *Runner
	Pools  *pool.Manager
}

// NewEngine wires pool manager, scheduler and runner. Pools are parked for
// reuse between runs; rec may be nil.
func NewEngine(logger *slog.Logger, rec *metrics.Recorder) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	pools := pool.NewManager(
		pool.WithReuse(true),
		pool.WithLogger(logger),
		pool.WithActiveHook(rec.PoolActive),
	)
	scheduler := schedule.New(pools,
		schedule.WithLogger(logger),
		schedule.WithUnitHook(rec.RecordUnit),
	)
	return &Engine{
		Runner: NewRunner(scheduler, WithMetrics(rec), WithLogger(logger)),
		Pools:  pools,
	}
}

// Close tears down every pool.
func (e *Engine) Close() {
	e.Pools.Close()
}
