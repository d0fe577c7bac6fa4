package jobs

import (
	"sync"
	"time"

	"json-decode-bench/internal/domain"
)

// RunRecord is one finished job as shown in the result list.
type RunRecord struct {
	JobID      string               `json:"jobId"`
	Source     string               `json:"source"`
	Params     domain.JobParameters `json:"params"`
	Status     domain.JobStatus     `json:"status"`
	Result     domain.JobResult     `json:"result"`
	FinishedAt time.Time            `json:"finishedAt"`
}

// History keeps the most recent finished runs, newest first.
type History struct {
	mu      sync.RWMutex
	limit   int
	records []RunRecord
}

// NewHistory creates a history holding at most limit records.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 50
	}
	return &History{limit: limit}
}

// Add prepends a record, dropping the oldest beyond the limit.
func (h *History) Add(record RunRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if record.FinishedAt.IsZero() {
		record.FinishedAt = time.Now().UTC()
	}
	h.records = append([]RunRecord{record}, h.records...)
	if len(h.records) > h.limit {
		h.records = h.records[:h.limit]
	}
}

// List returns a copy of the records, newest first.
func (h *History) List() []RunRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]RunRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Clear drops every record.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}
