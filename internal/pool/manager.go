package pool

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrResourceExhausted is the cause of a CreationError when the worker cap
// cannot accommodate the requested width.
var ErrResourceExhausted = errors.New("worker capacity exhausted")

// ErrManagerClosed is the cause of a CreationError after Close.
var ErrManagerClosed = errors.New("pool manager is closed")

// CreationError reports that a pool of the requested width could not be
// created. No work has been scheduled when it is returned.
type CreationError struct {
	Width   int    `json:"width"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error formats pool creation failures for logs and UI.
func (e *CreationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("create pool of width %d: %s", e.Width, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *CreationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Manager creates, leases and tears down pools. A leased pool belongs to
// exactly one caller until it is released.
type Manager struct {
	logger     *slog.Logger
	onActive   func(delta int64)
	maxWorkers int64
	reuse      bool
	capacity   *semaphore.Weighted

	mu     sync.Mutex
	idle   map[int][]*Pool
	leased map[*Pool]struct{}
	closed bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxWorkers caps the total number of live workers across all pools,
// idle ones included. Zero means unlimited.
func WithMaxWorkers(n int) Option {
	return func(m *Manager) { m.maxWorkers = int64(n) }
}

// WithReuse parks released pools for the next lease of the same width
// instead of tearing them down.
func WithReuse(enabled bool) Option {
	return func(m *Manager) { m.reuse = enabled }
}

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithActiveHook registers a callback invoked with +1/-1 whenever a worker
// starts or finishes a task.
func WithActiveHook(fn func(delta int64)) Option {
	return func(m *Manager) { m.onActive = fn }
}

// NewManager creates a pool manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		idle:   make(map[int][]*Pool),
		leased: make(map[*Pool]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.maxWorkers > 0 {
		m.capacity = semaphore.NewWeighted(m.maxWorkers)
	}
	return m
}

// Acquire leases a pool with exactly width workers.
func (m *Manager) Acquire(width int) (*Pool, error) {
	if width < 1 {
		return nil, &CreationError{Width: width, Message: "width must be at least 1"}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, &CreationError{Width: width, Message: ErrManagerClosed.Error(), Err: ErrManagerClosed}
	}

	if parked := m.idle[width]; len(parked) > 0 {
		p := parked[len(parked)-1]
		m.idle[width] = parked[:len(parked)-1]
		p.resetCounters()
		m.leased[p] = struct{}{}
		m.logger.Debug("pool reused", slog.Int("width", width))
		return p, nil
	}

	if m.capacity != nil && !m.capacity.TryAcquire(int64(width)) {
		m.evictIdleLocked()
		if !m.capacity.TryAcquire(int64(width)) {
			return nil, &CreationError{
				Width:   width,
				Message: fmt.Sprintf("%s (cap %d workers)", ErrResourceExhausted, m.maxWorkers),
				Err:     ErrResourceExhausted,
			}
		}
	}

	p := newPool(width, m.logger, m.onActive)
	m.leased[p] = struct{}{}
	m.logger.Debug("pool created", slog.Int("width", width))
	return p, nil
}

// Release ends the lease on p. Releasing a pool twice is a no-op.
func (m *Manager) Release(p *Pool) {
	if p == nil {
		return
	}

	m.mu.Lock()
	if _, ok := m.leased[p]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.leased, p)

	if m.reuse && !m.closed {
		m.mu.Unlock()
		p.waitIdle()

		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.closed {
			m.idle[p.width] = append(m.idle[p.width], p)
			m.logger.Debug("pool parked", slog.Int("width", p.width))
			return
		}
		m.teardown(p)
		return
	}
	m.mu.Unlock()

	m.teardown(p)
}

// Workers returns the number of live workers, leased and idle.
func (m *Manager) Workers() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := 0
	for p := range m.leased {
		total += p.width
	}
	for _, parked := range m.idle {
		for _, p := range parked {
			total += p.width
		}
	}
	return total
}

// Close tears down idle pools and refuses new leases. Pools still leased
// are torn down when released.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.evictIdleLocked()
}

func (m *Manager) evictIdleLocked() {
	for width, parked := range m.idle {
		for _, p := range parked {
			m.teardown(p)
		}
		delete(m.idle, width)
	}
}

func (m *Manager) teardown(p *Pool) {
	p.shutdown()
	if m.capacity != nil {
		m.capacity.Release(int64(p.width))
	}
	m.logger.Debug("pool released", slog.Int("width", p.width))
}
