package cma_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/cma-client/pkg/cma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuture_Resolve(t *testing.T) {
	t.Parallel()

	future := cma.NewFuture[string]()
	assert.False(t, future.Settled())

	assert.True(t, future.Resolve("done"))
	assert.False(t, future.Resolve("again"))
	assert.False(t, future.Reject(errors.New("late")))
	assert.True(t, future.Settled())

	value, err := future.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "done", value)
}

func TestFuture_Reject(t *testing.T) {
	t.Parallel()

	cause := errors.New("join rejected")
	future := cma.NewFuture[int]()

	go future.Reject(cause)

	value, err := future.Wait(context.Background())
	require.ErrorIs(t, err, cause)
	assert.Zero(t, value)
}

func TestFuture_Cancel(t *testing.T) {
	t.Parallel()

	t.Run("runs teardown once", func(t *testing.T) {
		t.Parallel()

		var teardowns atomic.Int32

		future := cma.NewCancelableFuture[string](func() { teardowns.Add(1) })

		assert.True(t, future.Cancel())
		assert.False(t, future.Cancel())
		assert.False(t, future.Resolve("late"))

		_, err := future.Wait(context.Background())
		require.ErrorIs(t, err, cma.ErrCanceled)
		assert.Equal(t, int32(1), teardowns.Load())
	})

	t.Run("settled future ignores cancel", func(t *testing.T) {
		t.Parallel()

		called := false
		future := cma.NewCancelableFuture[string](func() { called = true })
		future.Resolve("ok")

		assert.False(t, future.Cancel())
		assert.False(t, called)

		value, err := future.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "ok", value)
	})
}

func TestFuture_WaitContext(t *testing.T) {
	t.Parallel()

	future := cma.NewFuture[string]()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := future.Wait(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The future itself is still pending.
	assert.False(t, future.Settled())
	assert.True(t, future.Resolve("after"))
}

func TestFuture_ConcurrentSettle(t *testing.T) {
	t.Parallel()

	future := cma.NewFuture[int]()

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)

	for i := range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			if future.Resolve(i) {
				wins.Add(1)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	select {
	case <-future.Done():
	default:
		t.Fatal("future not settled")
	}
}
