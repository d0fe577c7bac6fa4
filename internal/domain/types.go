package domain

import (
	"fmt"
	"runtime"
	"strings"
)

// JobStatus tracks the lifecycle phase of a single decode job.
type JobStatus string

const (
	JobStatusIdle       JobStatus = "idle"
	JobStatusLoading    JobStatus = "loading"
	JobStatusScheduling JobStatus = "scheduling"
	JobStatusAwaiting   JobStatus = "awaiting"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Strategy selects how work units are executed.
type Strategy string

const (
	// StrategySequential decodes every unit on the calling goroutine, in order.
	StrategySequential Strategy = "sequential"
	// StrategyBoundedPool decodes on a pool of exactly ConcurrencyWidth workers.
	StrategyBoundedPool Strategy = "bounded"
	// StrategySystemDefault hands every unit to the Go runtime scheduler.
	StrategySystemDefault Strategy = "system"
	// StrategyAuto is a settings-only value: width 1 runs sequentially,
	// anything wider uses the bounded pool.
	StrategyAuto Strategy = "auto"
)

// ParseStrategy maps user input to a known strategy.
func ParseStrategy(raw string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(raw))); s {
	case StrategySequential, StrategyBoundedPool, StrategySystemDefault, StrategyAuto:
		return s, nil
	case "":
		return StrategyAuto, nil
	default:
		return "", fmt.Errorf("unknown strategy: %q", raw)
	}
}

// Codec selects the decoder implementation.
type Codec string

const (
	CodecStd    Codec = "std"
	CodecStream Codec = "stream"
)

// ParseCodec maps user input to a known codec.
func ParseCodec(raw string) (Codec, error) {
	switch c := Codec(strings.ToLower(strings.TrimSpace(raw))); c {
	case CodecStd, CodecStream:
		return c, nil
	case "":
		return CodecStd, nil
	default:
		return "", fmt.Errorf("unknown codec: %q", raw)
	}
}

// DefaultReplicationFactor is the number of decodes per job when unset.
const DefaultReplicationFactor = 30

// AvailableParallelism is the upper bound for pool width.
func AvailableParallelism() int {
	return runtime.NumCPU()
}

// Settings contains user-selectable configuration persisted between runs.
type Settings struct {
	SourcePath string   `json:"sourcePath"`
	Threads    int      `json:"threads"`
	Files      int      `json:"files"`
	Strategy   Strategy `json:"strategy"`
	Codec      Codec    `json:"codec"`
}

// Normalize trims paths, fills defaults, and clamps numeric fields.
func (s Settings) Normalize() Settings {
	s.SourcePath = strings.TrimSpace(s.SourcePath)
	if s.Threads < 1 {
		s.Threads = 1
	}
	if s.Files < 1 {
		s.Files = DefaultReplicationFactor
	}
	if strategy, err := ParseStrategy(string(s.Strategy)); err == nil {
		s.Strategy = strategy
	} else {
		s.Strategy = StrategyAuto
	}
	if codec, err := ParseCodec(string(s.Codec)); err == nil {
		s.Codec = codec
	} else {
		s.Codec = CodecStd
	}
	return s
}

// Parameters builds the immutable per-run parameters from settings.
func (s Settings) Parameters() JobParameters {
	s = s.Normalize()
	return NewJobParameters(s.Threads, s.Files, s.Strategy, s.Codec)
}

// JobParameters is the immutable input of one job.
type JobParameters struct {
	ConcurrencyWidth  int      `json:"concurrencyWidth"`
	ReplicationFactor int      `json:"replicationFactor"`
	Strategy          Strategy `json:"strategy"`
	Codec             Codec    `json:"codec"`
}

// NewJobParameters clamps width and replication to at least one and
// resolves StrategyAuto into a concrete strategy.
func NewJobParameters(width, replication int, strategy Strategy, codec Codec) JobParameters {
	if width < 1 {
		width = 1
	}
	if replication < 1 {
		replication = 1
	}
	if strategy == StrategyAuto || strategy == "" {
		strategy = StrategyBoundedPool
		if width == 1 {
			strategy = StrategySequential
		}
	}
	if codec == "" {
		codec = CodecStd
	}
	return JobParameters{
		ConcurrencyWidth:  width,
		ReplicationFactor: replication,
		Strategy:          strategy,
		Codec:             codec,
	}
}

// WeatherRecord is one decoded element of the source document.
type WeatherRecord struct {
	FirstName string  `json:"name"`
	Language  string  `json:"language"`
	ID        string  `json:"id"`
	Bio       string  `json:"bio"`
	Version   float64 `json:"version"`
}

// ErrorInfo is the presentation-friendly form of a job failure.
type ErrorInfo struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// JobResult is produced exactly once per job.
type JobResult struct {
	TotalItemCount int        `json:"totalItemCount"`
	ElapsedMillis  int64      `json:"elapsedMillis"`
	Error          *ErrorInfo `json:"error,omitempty"`
}

// Job stores the current job identity and lifecycle status.
type Job struct {
	ID     string        `json:"id"`
	Status JobStatus     `json:"status"`
	Params JobParameters `json:"params"`
}

// Limits describes the bounds the UI offers for run parameters.
type Limits struct {
	MaxThreads   int `json:"maxThreads"`
	DefaultFiles int `json:"defaultFiles"`
}
