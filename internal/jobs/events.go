package jobs

import (
	"sort"
	"sync"
	"time"

	"json-decode-bench/internal/domain"
)

// EventType classifies messages emitted during job execution.
type EventType string

const (
	// EventTypeStatus announces a phase change; Status holds the new phase.
	EventTypeStatus EventType = "status"
	// EventTypeResult carries the JobResult of a completed job.
	EventTypeResult EventType = "result"
	// EventTypeError carries the failure message and the failed JobResult.
	EventTypeError EventType = "error"
)

// Event is one notification for the presentation sink. Seq increases by
// one per published event and never repeats within a bus.
type Event struct {
	Seq       int64            `json:"seq"`
	Timestamp time.Time        `json:"timestamp"`
	JobID     string           `json:"jobId"`
	Type      EventType        `json:"type"`
	Status    domain.JobStatus `json:"status,omitempty"`
	Message   string           `json:"message,omitempty"`
	// Params is set on the first event of a job and on its outcome so a
	// sink can label a result without tracking the start request.
	Params *domain.JobParameters `json:"params,omitempty"`
	// Result is set on result and error events only. Its ElapsedMillis
	// covers decode and aggregation, not source loading.
	Result *domain.JobResult `json:"result,omitempty"`
}

// EventBus keeps the most recent events of all jobs, ordered by Seq, so a
// polling UI can catch up after missing pushed notifications.
type EventBus struct {
	mu      sync.RWMutex
	lastSeq int64
	limit   int
	events  []Event
}

// NewEventBus creates a bus retaining at most limit events.
func NewEventBus(limit int) *EventBus {
	if limit <= 0 {
		limit = 500
	}
	return &EventBus{
		limit:  limit,
		events: make([]Event, 0, limit),
	}
}

// Publish stamps event with the next sequence number and, when unset, the
// current time, then returns the stored copy.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastSeq++
	event.Seq = b.lastSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if len(b.events) == b.limit {
		copy(b.events, b.events[1:])
		b.events[len(b.events)-1] = event
	} else {
		b.events = append(b.events, event)
	}
	return event
}

// Since returns retained events with Seq greater than seq, oldest first.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := sort.Search(len(b.events), func(i int) bool {
		return b.events[i].Seq > seq
	})
	if start == len(b.events) {
		return nil
	}
	out := make([]Event, len(b.events)-start)
	copy(out, b.events[start:])
	return out
}

// LastSeq returns the sequence number of the newest event, or zero.
func (b *EventBus) LastSeq() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastSeq
}
