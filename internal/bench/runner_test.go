package bench

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"json-decode-bench/internal/decode"
	"json-decode-bench/internal/domain"
	"json-decode-bench/internal/jobs"
	"json-decode-bench/internal/pool"
	"json-decode-bench/internal/schedule"
	"json-decode-bench/internal/source"
)

const anaRecord = `[{"name":"Ana","language":"Kotlin","id":"1","bio":"x","version":1.0}]`

var allStrategies = []domain.Strategy{
	domain.StrategySequential,
	domain.StrategyBoundedPool,
	domain.StrategySystemDefault,
}

func textLoader(text string) source.Loader {
	return source.Func(func(context.Context) (string, error) { return text, nil })
}

func documentOf(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = `{"name":"Ana","language":"Go","id":"1","bio":"x","version":2,"unused":[1,2,3]}`
	}
	return "[" + strings.Join(items, ",") + "]"
}

// phaseLog collects phase notifications from the runner.
type phaseLog struct {
	mu     sync.Mutex
	phases []domain.JobStatus
}

func (p *phaseLog) record(status domain.JobStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phases = append(p.phases, status)
}

func (p *phaseLog) list() []domain.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.JobStatus(nil), p.phases...)
}

// trackingDecoder wraps the real decoder with concurrency tracking and an
// optional failure on one call.
type trackingDecoder struct {
	delay   time.Duration
	failOn  int64
	calls   atomic.Int64
	current atomic.Int64
	peak    atomic.Int64
}

func (d *trackingDecoder) Decode(text string) ([]domain.WeatherRecord, error) {
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
		return nil, &decode.Error{Index: 0, Field: "name", Message: "required field is missing"}
	}
	return decode.Std{}.Decode(text)
}

func newRunner(t *testing.T, m *pool.Manager, opts ...schedule.Option) *Runner {
	t.Helper()
	opts = append([]schedule.Option{schedule.WithMaxWidth(4)}, opts...)
	return NewRunner(schedule.New(m, opts...))
}

// TestRunTotalIsReplicationTimesRecords covers every strategy and codec.
func TestRunTotalIsReplicationTimesRecords(t *testing.T) {
	doc := documentOf(17)
	for _, codec := range []domain.Codec{domain.CodecStd, domain.CodecStream} {
		for _, strategy := range allStrategies {
			for _, n := range []int{1, 5, 30} {
				r := newRunner(t, pool.NewManager())
				params := domain.NewJobParameters(3, n, strategy, codec)

				result, err := r.Run(context.Background(), Request{Params: params, Loader: textLoader(doc)})
				require.NoError(t, err, "%s/%s/%d", codec, strategy, n)
				assert.Equal(t, 17*n, result.TotalItemCount, "%s/%s/%d", codec, strategy, n)
				assert.Nil(t, result.Error)
				assert.GreaterOrEqual(t, result.ElapsedMillis, int64(0))
			}
		}
	}
}

// TestRunSingleRecordReplicatedThreeTimes is the minimal worked example.
func TestRunSingleRecordReplicatedThreeTimes(t *testing.T) {
	for _, strategy := range allStrategies {
		r := newRunner(t, pool.NewManager())
		result, err := r.Run(context.Background(), Request{
			Params: domain.NewJobParameters(2, 3, strategy, domain.CodecStd),
			Loader: textLoader(anaRecord),
		})
		require.NoError(t, err)
		assert.Equal(t, 3, result.TotalItemCount, string(strategy))
	}
}

// TestSequentialMatchesBoundedWidthOne compares the baseline with the pool.
func TestSequentialMatchesBoundedWidthOne(t *testing.T) {
	doc := documentOf(9)
	r := newRunner(t, pool.NewManager())

	seq, err := r.Run(context.Background(), Request{
		Params: domain.NewJobParameters(1, 12, domain.StrategySequential, domain.CodecStd),
		Loader: textLoader(doc),
	})
	require.NoError(t, err)

	bounded, err := r.Run(context.Background(), Request{
		Params: domain.NewJobParameters(1, 12, domain.StrategyBoundedPool, domain.CodecStd),
		Loader: textLoader(doc),
	})
	require.NoError(t, err)

	assert.Equal(t, seq.TotalItemCount, bounded.TotalItemCount)
}

// TestRunBoundedPoolNeverExceedsWidth instruments decodes during a job.
func TestRunBoundedPoolNeverExceedsWidth(t *testing.T) {
	for _, width := range []int{1, 2, 3} {
		dec := &trackingDecoder{delay: 2 * time.Millisecond}
		r := newRunner(t, pool.NewManager(), schedule.WithDecoder(dec))

		result, err := r.Run(context.Background(), Request{
			Params: domain.NewJobParameters(width, 20, domain.StrategyBoundedPool, domain.CodecStd),
			Loader: textLoader(anaRecord),
		})
		require.NoError(t, err)
		assert.Equal(t, 20, result.TotalItemCount)
		assert.LessOrEqual(t, dec.peak.Load(), int64(width))
	}
}

// TestRunFailsWholeJobOnOneDecodeError checks fail-fast with no partial count.
func TestRunFailsWholeJobOnOneDecodeError(t *testing.T) {
	for _, strategy := range allStrategies {
		t.Run(string(strategy), func(t *testing.T) {
			dec := &trackingDecoder{failOn: 4}
			r := newRunner(t, pool.NewManager(), schedule.WithDecoder(dec))
			phases := &phaseLog{}

			result, err := r.Run(context.Background(), Request{
				Params:  domain.NewJobParameters(2, 10, strategy, domain.CodecStd),
				Loader:  textLoader(anaRecord),
				OnPhase: phases.record,
			})

			var decodeErr *decode.Error
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, 0, result.TotalItemCount)
			require.NotNil(t, result.Error)
			assert.Equal(t, KindDecode, result.Error.Kind)
			assert.Equal(t, err.Error(), result.Error.Message)

			got := phases.list()
			assert.Equal(t, domain.JobStatusFailed, got[len(got)-1])
		})
	}
}

// TestRunMalformedInputFailsWithDecodeError holds for every strategy and codec.
func TestRunMalformedInputFailsWithDecodeError(t *testing.T) {
	for _, codec := range []domain.Codec{domain.CodecStd, domain.CodecStream} {
		for _, strategy := range allStrategies {
			r := newRunner(t, pool.NewManager())
			result, err := r.Run(context.Background(), Request{
				Params: domain.NewJobParameters(2, 4, strategy, codec),
				Loader: textLoader("not json"),
			})

			var decodeErr *decode.Error
			require.ErrorAs(t, err, &decodeErr, "%s/%s", codec, strategy)
			assert.Equal(t, KindDecode, Kind(err))
			assert.Equal(t, 0, result.TotalItemCount)
		}
	}
}

// TestRunReleasesPoolOnEveryExitPath acquires the full cap after each job.
func TestRunReleasesPoolOnEveryExitPath(t *testing.T) {
	m := pool.NewManager(pool.WithMaxWorkers(2))
	ok := newRunner(t, m)
	failing := newRunner(t, m, schedule.WithDecoder(&trackingDecoder{failOn: 1}))
	params := domain.NewJobParameters(2, 6, domain.StrategyBoundedPool, domain.CodecStd)

	_, err := ok.Run(context.Background(), Request{Params: params, Loader: textLoader(anaRecord)})
	require.NoError(t, err)
	assertCapFree(t, m, 2)

	_, err = failing.Run(context.Background(), Request{Params: params, Loader: textLoader(anaRecord)})
	require.Error(t, err)
	assertCapFree(t, m, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = ok.Run(ctx, Request{Params: params, Loader: textLoader(anaRecord)})
	require.ErrorIs(t, err, context.Canceled)
	assertCapFree(t, m, 2)
}

func assertCapFree(t *testing.T, m *pool.Manager, width int) {
	t.Helper()
	assert.Equal(t, 0, m.Workers())
	p, err := m.Acquire(width)
	require.NoError(t, err)
	m.Release(p)
}

// TestRunElapsedExcludesSink slows every notification far beyond the
// decode time and checks the timer does not see it.
func TestRunElapsedExcludesSink(t *testing.T) {
	const sinkDelay = 300 * time.Millisecond
	r := newRunner(t, pool.NewManager())

	result, err := r.Run(context.Background(), Request{
		Params:  domain.NewJobParameters(2, 3, domain.StrategyBoundedPool, domain.CodecStd),
		Loader:  textLoader(anaRecord),
		OnPhase: func(domain.JobStatus) { time.Sleep(sinkDelay) },
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, result.ElapsedMillis, int64(0))
	assert.Less(t, result.ElapsedMillis, sinkDelay.Milliseconds())
}

// TestRunPhasesOnSuccess checks the notification sequence.
func TestRunPhasesOnSuccess(t *testing.T) {
	r := newRunner(t, pool.NewManager())
	phases := &phaseLog{}

	_, err := r.Run(context.Background(), Request{
		Params:  domain.NewJobParameters(2, 2, domain.StrategySystemDefault, domain.CodecStd),
		Loader:  textLoader(anaRecord),
		OnPhase: phases.record,
	})
	require.NoError(t, err)
	assert.Equal(t, []domain.JobStatus{
		domain.JobStatusLoading,
		domain.JobStatusScheduling,
		domain.JobStatusAwaiting,
		domain.JobStatusCompleted,
	}, phases.list())
}

// TestRunSourceLoadFailure fails before scheduling and calls the loader once.
func TestRunSourceLoadFailure(t *testing.T) {
	dec := &trackingDecoder{}
	r := newRunner(t, pool.NewManager(), schedule.WithDecoder(dec))
	phases := &phaseLog{}
	var loads atomic.Int32

	result, err := r.Run(context.Background(), Request{
		Params: domain.NewJobParameters(2, 5, domain.StrategyBoundedPool, domain.CodecStd),
		Loader: source.Func(func(context.Context) (string, error) {
			loads.Add(1)
			return "", errors.New("disk on fire")
		}),
		OnPhase: phases.record,
	})

	var loadErr *SourceLoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "disk on fire")
	assert.Equal(t, KindSourceLoad, result.Error.Kind)
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, int64(0), dec.calls.Load())
	assert.Equal(t, []domain.JobStatus{domain.JobStatusLoading, domain.JobStatusFailed}, phases.list())
}

// TestRunMissingLoader is a source load error, not a panic.
func TestRunMissingLoader(t *testing.T) {
	r := newRunner(t, pool.NewManager())
	_, err := r.Run(context.Background(), Request{Params: domain.NewJobParameters(1, 1, domain.StrategySequential, domain.CodecStd)})
	assert.Equal(t, KindSourceLoad, Kind(err))
}

// TestRunPoolCreationFailure fails before any unit runs.
func TestRunPoolCreationFailure(t *testing.T) {
	dec := &trackingDecoder{}
	r := newRunner(t, pool.NewManager(pool.WithMaxWorkers(1)), schedule.WithDecoder(dec))
	phases := &phaseLog{}

	result, err := r.Run(context.Background(), Request{
		Params:  domain.NewJobParameters(3, 5, domain.StrategyBoundedPool, domain.CodecStd),
		Loader:  textLoader(anaRecord),
		OnPhase: phases.record,
	})

	var createErr *pool.CreationError
	require.ErrorAs(t, err, &createErr)
	assert.Equal(t, KindPoolCreation, result.Error.Kind)
	assert.Equal(t, int64(0), dec.calls.Load())
	assert.Equal(t, []domain.JobStatus{
		domain.JobStatusLoading,
		domain.JobStatusScheduling,
		domain.JobStatusFailed,
	}, phases.list())
}

// TestRunRejectsConcurrentJob keeps the first job untouched.
func TestRunRejectsConcurrentJob(t *testing.T) {
	r := newRunner(t, pool.NewManager())
	release := make(chan struct{})
	started := make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background(), Request{
			Params: domain.NewJobParameters(1, 2, domain.StrategySequential, domain.CodecStd),
			Loader: source.Func(func(context.Context) (string, error) {
				close(started)
				<-release
				return anaRecord, nil
			}),
		})
		done <- err
	}()

	<-started
	result, err := r.Run(context.Background(), Request{
		Params: domain.NewJobParameters(1, 2, domain.StrategySequential, domain.CodecStd),
		Loader: textLoader(anaRecord),
	})
	assert.ErrorIs(t, err, jobs.ErrJobAlreadyRunning)
	assert.Equal(t, KindAlreadyRunning, result.Error.Kind)

	close(release)
	require.NoError(t, <-done)
}

// TestRunCancelDuringAwaiting cancels mid-flight and releases the pool.
func TestRunCancelDuringAwaiting(t *testing.T) {
	m := pool.NewManager()
	dec := &trackingDecoder{delay: 10 * time.Millisecond}
	r := newRunner(t, m, schedule.WithDecoder(dec))
	ctx, cancel := context.WithCancel(context.Background())

	result, err := r.Run(ctx, Request{
		Params: domain.NewJobParameters(1, 200, domain.StrategyBoundedPool, domain.CodecStd),
		Loader: textLoader(anaRecord),
		OnPhase: func(status domain.JobStatus) {
			if status == domain.JobStatusAwaiting {
				cancel()
			}
		},
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, KindCancelled, result.Error.Kind)
	assert.Equal(t, 0, result.TotalItemCount)
	assert.Less(t, dec.calls.Load(), int64(200))
	assert.Equal(t, 0, m.Workers())
}

// TestKindClassifiesWrappedErrors checks error mapping through wrapping.
func TestKindClassifiesWrappedErrors(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, KindDecode, Kind(errors.Join(errors.New("ctx"), &decode.Error{Index: -1, Message: "x"})))
	assert.Equal(t, KindSourceLoad, Kind(&SourceLoadError{Source: "a", Err: errors.New("b")}))
	assert.Equal(t, KindPoolCreation, Kind(&pool.CreationError{Width: 2, Message: "m"}))
	assert.Equal(t, KindCancelled, Kind(context.DeadlineExceeded))
	assert.Equal(t, KindInternal, Kind(errors.New("other")))
}
