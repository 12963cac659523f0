package cma

import (
	"context"
	"sync"
)

// Future is a one-shot result. It settles exactly once: the first Resolve,
// Reject or Cancel wins and later calls report false.
type Future[T any] struct {
	done     chan struct{}
	once     sync.Once
	value    T
	err      error
	teardown func()
}

// NewFuture creates an unsettled future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// NewCancelableFuture creates a future whose Cancel runs teardown before
// failing with ErrCanceled. teardown aborts whatever would have settled it.
func NewCancelableFuture[T any](teardown func()) *Future[T] {
	future := NewFuture[T]()
	future.teardown = teardown

	return future
}

// Resolve settles the future with value.
func (f *Future[T]) Resolve(value T) bool {
	return f.settle(value, nil)
}

// Reject settles the future with err.
func (f *Future[T]) Reject(err error) bool {
	var zero T

	return f.settle(zero, err)
}

// Cancel runs the teardown callback and fails the future with ErrCanceled.
// It does nothing if the future already settled.
func (f *Future[T]) Cancel() bool {
	settled := false

	f.once.Do(func() {
		if f.teardown != nil {
			f.teardown()
		}

		f.err = ErrCanceled
		settled = true

		close(f.done)
	})

	return settled
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future settles or ctx is done. A done ctx does not
// cancel the future.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// Settled reports whether the future has settled.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future[T]) settle(value T, err error) bool {
	settled := false

	f.once.Do(func() {
		f.value = value
		f.err = err
		settled = true

		close(f.done)
	})

	return settled
}
