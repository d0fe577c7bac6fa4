package schedule

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"json-decode-bench/internal/decode"
	"json-decode-bench/internal/domain"
	"json-decode-bench/internal/pool"
)

const sample = `[{"name":"Ana","language":"Kotlin","id":"1","bio":"x","version":1.0},{"name":"Bo","language":"Go","id":"2","bio":"y","version":2}]`

// countingDecoder records how many decodes overlap and how often it was called.
type countingDecoder struct {
	delay   time.Duration
	failOn  int64
	current atomic.Int64
	peak    atomic.Int64
	calls   atomic.Int64
}

// Decode returns as many records as its call ordinal, so ordering is
// observable from the results.
func (d *countingDecoder) Decode(string) ([]domain.WeatherRecord, error) {
	call := d.calls.Add(1)
	n := d.current.Add(1)
	defer d.current.Add(-1)
	for {
		peak := d.peak.Load()
		if n <= peak || d.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.failOn > 0 && call == d.failOn {
		return nil, &decode.Error{Index: -1, Message: "injected failure"}
	}
	return make([]domain.WeatherRecord, call), nil
}

func awaitAll(t *testing.T, batch *Batch) []Outcome {
	t.Helper()
	outcomes := make([]Outcome, len(batch.Futures))
	for i, f := range batch.Futures {
		select {
		case <-f.Done():
		case <-time.After(5 * time.Second):
			t.Fatalf("future %d did not resolve", i)
		}
		outcomes[i] = f.Await()
	}
	return outcomes
}

// TestClampBoundsWidthAndReplication checks parameter clamping.
func TestClampBoundsWidthAndReplication(t *testing.T) {
	s := New(pool.NewManager(), WithMaxWidth(4))

	got := s.Clamp(domain.JobParameters{ConcurrencyWidth: 16, ReplicationFactor: 0})
	assert.Equal(t, 4, got.ConcurrencyWidth)
	assert.Equal(t, 1, got.ReplicationFactor)

	got = s.Clamp(domain.JobParameters{ConcurrencyWidth: -2, ReplicationFactor: 5})
	assert.Equal(t, 1, got.ConcurrencyWidth)
	assert.Equal(t, 5, got.ReplicationFactor)
}

// TestScheduleAllStrategiesDecodeEveryUnit runs the real decoder per strategy.
func TestScheduleAllStrategiesDecodeEveryUnit(t *testing.T) {
	strategies := []domain.Strategy{
		domain.StrategySequential,
		domain.StrategyBoundedPool,
		domain.StrategySystemDefault,
	}
	for _, strategy := range strategies {
		t.Run(string(strategy), func(t *testing.T) {
			m := pool.NewManager()
			s := New(m, WithMaxWidth(4))

			batch, err := s.Schedule(context.Background(), sample, domain.NewJobParameters(3, 7, strategy, domain.CodecStd))
			require.NoError(t, err)
			defer batch.Release()

			outcomes := awaitAll(t, batch)
			require.Len(t, outcomes, 7)
			for i, outcome := range outcomes {
				require.NoError(t, outcome.Err)
				assert.Equal(t, i, outcome.Index)
				assert.Len(t, outcome.Records, 2)
			}
		})
	}
}

// TestSequentialRunsInOrderOnCaller verifies strict ordering and that the
// batch is resolved before Schedule returns.
func TestSequentialRunsInOrderOnCaller(t *testing.T) {
	dec := &countingDecoder{}
	s := New(pool.NewManager(), WithDecoder(dec))

	batch, err := s.Schedule(context.Background(), "", domain.NewJobParameters(1, 5, domain.StrategySequential, domain.CodecStd))
	require.NoError(t, err)

	for i, f := range batch.Futures {
		select {
		case <-f.Done():
		default:
			t.Fatalf("future %d not resolved on return", i)
		}
		assert.Len(t, f.Await().Records, i+1)
	}
	assert.Equal(t, int64(1), dec.peak.Load())
	_, hasPool := batch.PoolStats()
	assert.False(t, hasPool)
}

// TestSequentialSkipsAfterFailure stops decoding after the first error.
func TestSequentialSkipsAfterFailure(t *testing.T) {
	dec := &countingDecoder{failOn: 2}
	s := New(pool.NewManager(), WithDecoder(dec))

	batch, err := s.Schedule(context.Background(), "", domain.NewJobParameters(1, 4, domain.StrategySequential, domain.CodecStd))
	require.NoError(t, err)

	outcomes := awaitAll(t, batch)
	require.NoError(t, outcomes[0].Err)
	var decodeErr *decode.Error
	assert.ErrorAs(t, outcomes[1].Err, &decodeErr)
	assert.ErrorIs(t, outcomes[2].Err, ErrSkipped)
	assert.ErrorIs(t, outcomes[3].Err, ErrSkipped)
	assert.Equal(t, int64(2), dec.calls.Load())
}

// TestBoundedPoolRespectsWidth instruments concurrent decodes.
func TestBoundedPoolRespectsWidth(t *testing.T) {
	for _, width := range []int{1, 2, 4} {
		dec := &countingDecoder{delay: 3 * time.Millisecond}
		s := New(pool.NewManager(), WithMaxWidth(8), WithDecoder(dec))

		batch, err := s.Schedule(context.Background(), "", domain.NewJobParameters(width, 24, domain.StrategyBoundedPool, domain.CodecStd))
		require.NoError(t, err)
		awaitAll(t, batch)

		stats, ok := batch.PoolStats()
		require.True(t, ok)
		assert.Equal(t, width, stats.Width)
		assert.LessOrEqual(t, stats.Peak, int64(width))
		assert.LessOrEqual(t, dec.peak.Load(), int64(width))
		assert.Equal(t, int64(24), dec.calls.Load())
		batch.Release()
	}
}

// TestBoundedPoolCreationFailureSchedulesNothing checks fail-fast on capacity.
func TestBoundedPoolCreationFailureSchedulesNothing(t *testing.T) {
	dec := &countingDecoder{}
	s := New(pool.NewManager(pool.WithMaxWorkers(1)), WithMaxWidth(4), WithDecoder(dec))

	batch, err := s.Schedule(context.Background(), "", domain.NewJobParameters(2, 3, domain.StrategyBoundedPool, domain.CodecStd))
	assert.Nil(t, batch)
	var createErr *pool.CreationError
	require.ErrorAs(t, err, &createErr)
	assert.Equal(t, int64(0), dec.calls.Load())
}

// TestCancelledContextSkipsDecoding resolves units with the context error.
func TestCancelledContextSkipsDecoding(t *testing.T) {
	dec := &countingDecoder{}
	s := New(pool.NewManager(), WithMaxWidth(2), WithDecoder(dec))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := s.Schedule(ctx, "", domain.NewJobParameters(2, 6, domain.StrategyBoundedPool, domain.CodecStd))
	require.NoError(t, err)
	defer batch.Release()

	for _, outcome := range awaitAll(t, batch) {
		assert.True(t, errors.Is(outcome.Err, context.Canceled))
	}
	assert.Equal(t, int64(0), dec.calls.Load())
}

// TestUnitHookSeesEveryUnit checks the observer callback.
func TestUnitHookSeesEveryUnit(t *testing.T) {
	var (
		mu    sync.Mutex
		seen  int
		fails int
	)
	hook := func(strategy domain.Strategy, err error) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, domain.StrategySystemDefault, strategy)
		seen++
		if err != nil {
			fails++
		}
	}
	s := New(pool.NewManager(), WithDecoder(&countingDecoder{failOn: 3}), WithUnitHook(hook))

	batch, err := s.Schedule(context.Background(), "", domain.NewJobParameters(2, 5, domain.StrategySystemDefault, domain.CodecStd))
	require.NoError(t, err)
	awaitAll(t, batch)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, seen)
	assert.Equal(t, 1, fails)
}

// TestScheduleRejectsUnknownStrategy checks strategy validation.
func TestScheduleRejectsUnknownStrategy(t *testing.T) {
	s := New(pool.NewManager())
	_, err := s.Schedule(context.Background(), sample, domain.JobParameters{
		ConcurrencyWidth:  1,
		ReplicationFactor: 1,
		Strategy:          "fork",
		Codec:             domain.CodecStd,
	})
	require.Error(t, err)
}
