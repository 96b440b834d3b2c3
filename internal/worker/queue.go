// Package worker runs tasks one at a time, in submission order, on a
// single background goroutine.
package worker

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Task is a unit of work. The context is canceled if Shutdown gives up
// waiting.
type Task func(ctx context.Context) error

// Queue is an unbounded FIFO with exactly one consumer. Submit never
// blocks; Shutdown stops intake and drains what was already accepted.
type Queue struct {
	log    *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	pending []Task
	closed  bool
}

// New starts the worker goroutine.
func New(log *slog.Logger) *Queue {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

// Submit appends a task. It returns false once Shutdown has been called.
func (q *Queue) Submit(task Task) bool {
	if task == nil {
		return false
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.pending = append(q.pending, task)
	q.mu.Unlock()

	q.signal()
	return true
}

// Pending returns the number of tasks waiting to run, excluding the one
// currently running.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Shutdown rejects further submissions and waits until every accepted task
// has run. If ctx ends first, the running task's context is canceled and
// ctx.Err() is returned; remaining tasks are still run in the background.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()

	select {
	case <-q.done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

func (q *Queue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			closed := q.closed
			q.mu.Unlock()
			if closed {
				return
			}
			<-q.wake
			continue
		}
		task := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.exec(task)
	}
}

// exec runs one task and recovers a panic so the worker survives. Task
// errors are expected to have been logged by the task itself.
func (q *Queue) exec(task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("worker task panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	if err := task(q.ctx); err != nil {
		q.log.Debug("worker task failed", "error", err)
	}
}
