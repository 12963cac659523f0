package cma

import (
	"context"
	"sync"
)

// Limiter runs at most limit tasks at a time. Tasks beyond the limit wait in
// FIFO order and the next one is admitted as soon as a running task
// finishes. Dispatched tasks are never canceled by the limiter; tasks observe
// their ctx themselves.
type Limiter struct {
	mu      sync.Mutex
	limit   int
	running int
	queue   []func()
}

// NewLimiter creates a limiter admitting limit concurrent tasks. A limit
// below one is treated as one.
func NewLimiter(limit int) *Limiter {
	if limit < 1 {
		limit = 1
	}

	return &Limiter{limit: limit}
}

// Enqueue schedules task on l and returns a future settled with its outcome.
func Enqueue[T any](ctx context.Context, l *Limiter, task func(ctx context.Context) (T, error)) *Future[T] {
	future := NewFuture[T]()

	start := func() {
		limiterInFlight.Inc()

		go func() {
			defer l.release()
			defer limiterInFlight.Dec()

			value, err := task(ctx)
			if err != nil {
				future.Reject(err)

				return
			}

			future.Resolve(value)
		}()
	}

	l.mu.Lock()

	if l.running < l.limit {
		l.running++
		l.mu.Unlock()
		start()

		return future
	}

	l.queue = append(l.queue, start)
	l.mu.Unlock()

	return future
}

// InFlight returns the number of running tasks.
func (l *Limiter) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.running
}

// Pending returns the number of queued tasks.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.queue)
}

// release hands the finished task's slot to the oldest queued task.
func (l *Limiter) release() {
	l.mu.Lock()

	if len(l.queue) == 0 {
		l.running--
		l.mu.Unlock()

		return
	}

	next := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	l.mu.Unlock()

	next()
}
