// Package metrics records benchmark activity with OpenTelemetry.
//
// Without a configured MeterProvider the global noop provider is used and
// every method is effectively free.
//
// Instruments:
//   - jsonbench.job.duration (Float64Histogram, ms): decode+aggregate span,
//     attributes strategy, codec, status
//   - jsonbench.job.items (Int64Counter): decoded records of completed jobs
//   - jsonbench.unit.executions (Int64Counter): work units, attributes
//     strategy, status ("ok" or "error")
//   - jsonbench.pool.active_workers (Int64UpDownCounter): workers currently
//     running a unit
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"json-decode-bench/internal/domain"
)

const meterName = "json-decode-bench"

// Recorder holds the benchmark instruments. A nil Recorder records nothing.
type Recorder struct {
	jobDuration   metric.Float64Histogram
	jobItems      metric.Int64Counter
	units         metric.Int64Counter
	activeWorkers metric.Int64UpDownCounter
}

// New returns a recorder using the global MeterProvider.
func New() *Recorder {
	return NewWithMeter(otel.Meter(meterName))
}

// NewWithMeter returns a recorder using the provided meter.
func NewWithMeter(meter metric.Meter) *Recorder {
	// The metric API hands back noop instruments alongside any error.
	jobDuration, _ := meter.Float64Histogram(
		"jsonbench.job.duration",
		metric.WithDescription("Wall-clock time of the decode and aggregate phase"),
		metric.WithUnit("ms"),
	)
	jobItems, _ := meter.Int64Counter(
		"jsonbench.job.items",
		metric.WithDescription("Records decoded by completed jobs"),
		metric.WithUnit("{record}"),
	)
	units, _ := meter.Int64Counter(
		"jsonbench.unit.executions",
		metric.WithDescription("Decode work units executed"),
		metric.WithUnit("{unit}"),
	)
	activeWorkers, _ := meter.Int64UpDownCounter(
		"jsonbench.pool.active_workers",
		metric.WithDescription("Pool workers currently decoding"),
		metric.WithUnit("{worker}"),
	)

	return &Recorder{
		jobDuration:   jobDuration,
		jobItems:      jobItems,
		units:         units,
		activeWorkers: activeWorkers,
	}
}

// RecordJob records the terminal state of one job.
func (r *Recorder) RecordJob(ctx context.Context, params domain.JobParameters, status domain.JobStatus, result domain.JobResult) {
	if r == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("strategy", string(params.Strategy)),
		attribute.String("codec", string(params.Codec)),
		attribute.String("status", string(status)),
	)
	r.jobDuration.Record(ctx, float64(result.ElapsedMillis), attrs)
	if status == domain.JobStatusCompleted {
		r.jobItems.Add(ctx, int64(result.TotalItemCount), attrs)
	}
}

// RecordUnit counts one resolved work unit.
func (r *Recorder) RecordUnit(strategy domain.Strategy, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	r.units.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("strategy", string(strategy)),
		attribute.String("status", status),
	))
}

// PoolActive adjusts the active worker gauge.
func (r *Recorder) PoolActive(delta int64) {
	if r == nil {
		return
	}
	r.activeWorkers.Add(context.Background(), delta)
}
