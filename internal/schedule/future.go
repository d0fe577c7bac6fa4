package schedule

import (
	"errors"

	"json-decode-bench/internal/domain"
)

// ErrSkipped resolves sequential units that never ran because an earlier
// unit failed.
var ErrSkipped = errors.New("work unit skipped after an earlier failure")

// Outcome is the explicit result of one work unit.
type Outcome struct {
	Index   int
	Records []domain.WeatherRecord
	Err     error
}

// Future resolves exactly once with the outcome of one work unit.
type Future struct {
	index   int
	done    chan struct{}
	outcome Outcome
}

func newFuture(index int) *Future {
	return &Future{index: index, done: make(chan struct{})}
}

func resolvedFuture(outcome Outcome) *Future {
	f := newFuture(outcome.Index)
	f.resolve(outcome)
	return f
}

// Index returns the unit index in 0..replicationFactor-1.
func (f *Future) Index() int { return f.index }

// Done is closed once the outcome is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Await blocks until the unit resolves.
func (f *Future) Await() Outcome {
	<-f.done
	return f.outcome
}

func (f *Future) resolve(outcome Outcome) {
	outcome.Index = f.index
	f.outcome = outcome
	close(f.done)
}
