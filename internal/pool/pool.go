// Package pool provides fixed-width worker pools and the manager that
// leases them to one job at a time.
package pool

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when submitting to a pool that was shut down.
var ErrClosed = errors.New("pool is closed")

// Task is one unit of work executed by a pool worker.
type Task func()

// Stats is a point-in-time view of pool activity.
type Stats struct {
	Width     int   `json:"width"`
	Queued    int   `json:"queued"`
	Active    int64 `json:"active"`
	Peak      int64 `json:"peak"`
	Completed int64 `json:"completed"`
}

// Pool runs submitted tasks on exactly width worker goroutines. Tasks are
// admitted to workers in submission order.
type Pool struct {
	width    int
	logger   *slog.Logger
	onActive func(delta int64)

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Task
	running int
	closed  bool
	wg      sync.WaitGroup

	active    atomic.Int64
	peak      atomic.Int64
	completed atomic.Int64
}

func newPool(width int, logger *slog.Logger, onActive func(delta int64)) *Pool {
	p := &Pool{
		width:    width,
		logger:   logger,
		onActive: onActive,
	}
	p.cond = sync.NewCond(&p.mu)

	for range width {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Width returns the number of workers.
func (p *Pool) Width() int { return p.width }

// Submit enqueues a task without blocking.
func (p *Pool) Submit(task Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.queue = append(p.queue, task)
	p.cond.Signal()
	return nil
}

// Stats returns current counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	queued := len(p.queue)
	p.mu.Unlock()

	return Stats{
		Width:     p.width,
		Queued:    queued,
		Active:    p.active.Load(),
		Peak:      p.peak.Load(),
		Completed: p.completed.Load(),
	}
}

// resetCounters clears per-lease statistics before a pool is handed out again.
func (p *Pool) resetCounters() {
	p.peak.Store(0)
	p.completed.Store(0)
}

// waitIdle blocks until the queue is empty and no task is running.
func (p *Pool) waitIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) > 0 || p.running > 0 {
		p.cond.Wait()
	}
}

// shutdown stops accepting tasks, lets workers drain the queue and waits
// for them to exit.
func (p *Pool) shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	p.wg.Wait()
}

// worker pulls tasks until the pool is closed and the queue is empty.
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.running++
		p.mu.Unlock()

		p.run(task)

		p.mu.Lock()
		p.running--
		if len(p.queue) == 0 && p.running == 0 {
			p.cond.Broadcast()
		}
		p.mu.Unlock()
	}
}

func (p *Pool) run(task Task) {
	n := p.active.Add(1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if p.onActive != nil {
		p.onActive(1)
	}

	defer func() {
		p.active.Add(-1)
		p.completed.Add(1)
		if p.onActive != nil {
			p.onActive(-1)
		}
		if r := recover(); r != nil {
			p.logger.Error("pool task panicked", slog.Any("panic", r), slog.Int("width", p.width))
		}
	}()

	task()
}
