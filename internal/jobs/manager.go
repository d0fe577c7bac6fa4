package jobs

import (
	"errors"
	"fmt"
	"sync"

	"json-decode-bench/internal/domain"
)

// ErrJobAlreadyRunning is returned when starting a second active job.
var ErrJobAlreadyRunning = errors.New("job already running")

// ErrNoRunningJob is returned when cancel is requested for idle state.
var ErrNoRunningJob = errors.New("no running job")

// Manager tracks the single allowed active job and its transitions.
type Manager struct {
	mu      sync.RWMutex
	current domain.Job
	cancel  bool
}

// NewManager creates a manager in idle state.
func NewManager() *Manager {
	return &Manager{
		current: domain.Job{
			Status: domain.JobStatusIdle,
		},
	}
}

// Start claims the manager for a new job and moves it to loading state.
func (m *Manager) Start(jobID string, params domain.JobParameters) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if isRunning(m.current.Status) {
		return ErrJobAlreadyRunning
	}

	m.current = domain.Job{
		ID:     jobID,
		Status: domain.JobStatusLoading,
		Params: params,
	}
	m.cancel = false
	return nil
}

// Transition validates and applies state transitions for current job.
func (m *Manager) Transition(status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current.ID == "" && status != domain.JobStatusIdle {
		return fmt.Errorf("cannot transition without an active job")
	}
	if status == m.current.Status {
		return nil
	}
	if !isValidTransition(m.current.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", m.current.Status, status)
	}

	m.current.Status = status
	return nil
}

// Current returns a snapshot of the current job.
func (m *Manager) Current() domain.Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Reset clears job metadata and returns manager to idle.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = domain.Job{Status: domain.JobStatusIdle}
	m.cancel = false
}

// IsRunning reports whether the current state is an active phase.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return isRunning(m.current.Status)
}

// RequestCancel records a cancellation request for the active job. The job
// keeps its phase until the runner has released its pool and reports the
// cancelled outcome, so a new job cannot start in the meantime.
func (m *Manager) RequestCancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !isRunning(m.current.Status) {
		return ErrNoRunningJob
	}
	m.cancel = true
	return nil
}

// CancelRequested reports whether the active job was asked to stop.
func (m *Manager) CancelRequested() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cancel
}

// isRunning checks if a status represents an in-flight job.
func isRunning(status domain.JobStatus) bool {
	switch status {
	case domain.JobStatusLoading, domain.JobStatusScheduling, domain.JobStatusAwaiting:
		return true
	default:
		return false
	}
}

// isValidTransition enforces the allowed job state machine edges.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusIdle:
		return to == domain.JobStatusLoading
	case domain.JobStatusLoading:
		return to == domain.JobStatusScheduling || to == domain.JobStatusFailed || to == domain.JobStatusCancelled
	case domain.JobStatusScheduling:
		return to == domain.JobStatusAwaiting || to == domain.JobStatusFailed || to == domain.JobStatusCancelled
	case domain.JobStatusAwaiting:
		return to == domain.JobStatusCompleted || to == domain.JobStatusFailed || to == domain.JobStatusCancelled
	case domain.JobStatusCompleted, domain.JobStatusFailed, domain.JobStatusCancelled:
		return to == domain.JobStatusLoading || to == domain.JobStatusIdle
	default:
		return false
	}
}
