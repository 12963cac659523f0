package events_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/cma-client/internal/events"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errJoinRejected = errors.New("join rejected")

type fakeSubscription struct {
	mu           sync.Mutex
	handlers     map[string]events.Handler
	bindErr      error
	unsubscribed atomic.Bool
}

func newFakeSubscription() *fakeSubscription {
	return &fakeSubscription{handlers: make(map[string]events.Handler)}
}

func (s *fakeSubscription) Bind(event string, handler events.Handler) error {
	if s.bindErr != nil {
		return s.bindErr
	}

	s.mu.Lock()
	s.handlers[event] = handler
	s.mu.Unlock()

	return nil
}

func (s *fakeSubscription) Unsubscribe() error {
	s.unsubscribed.Store(true)

	return nil
}

func (s *fakeSubscription) emit(t *testing.T, event, payload string) {
	t.Helper()

	s.mu.Lock()
	handler, ok := s.handlers[event]
	s.mu.Unlock()

	require.True(t, ok, "no handler bound for %s", event)
	handler([]byte(payload))
}

type fakeTransport struct {
	joins atomic.Int32
	gate  chan struct{}
	err   error
	sub   *fakeSubscription
}

func (f *fakeTransport) Join(ctx context.Context, key events.SubscriptionKey) (events.Subscription, error) {
	f.joins.Add(1)

	if f.gate != nil {
		<-f.gate
	}

	if f.err != nil {
		return nil, f.err
	}

	return f.sub, nil
}

func testKey() events.SubscriptionKey {
	return events.SubscriptionKey{
		Endpoint:   "nats://realtime.example.com:4222",
		Channel:    "private-site-42",
		Credential: "token",
	}
}

func waitChannel(t *testing.T, future *cma.Future[*events.Channel]) *events.Channel {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	channel, err := future.Wait(ctx)
	require.NoError(t, err)

	return channel
}

func subscribe(t *testing.T) (*events.Registry, *fakeSubscription, *events.Channel) {
	t.Helper()

	registry := events.NewRegistry(nil)
	transport := &fakeTransport{sub: newFakeSubscription()}

	channel := waitChannel(t, registry.Subscribe(context.Background(), testKey(), transport))

	return registry, transport.sub, channel
}

func TestRegistry_Subscribe(t *testing.T) {
	t.Parallel()

	t.Run("identical keys share one join", func(t *testing.T) {
		t.Parallel()

		registry := events.NewRegistry(nil)
		transport := &fakeTransport{gate: make(chan struct{}), sub: newFakeSubscription()}

		futures := make([]*cma.Future[*events.Channel], 5)

		var wg sync.WaitGroup

		for i := range futures {
			wg.Add(1)

			go func() {
				defer wg.Done()

				futures[i] = registry.Subscribe(context.Background(), testKey(), transport)
			}()
		}

		wg.Wait()
		close(transport.gate)

		for _, future := range futures[1:] {
			assert.Same(t, futures[0], future)
		}

		channel := waitChannel(t, futures[0])
		assert.Equal(t, testKey(), channel.Key())
		assert.Equal(t, int32(1), transport.joins.Load())

		// Still deduplicated once established.
		assert.Same(t, futures[0], registry.Subscribe(context.Background(), testKey(), transport))
		assert.Equal(t, int32(1), transport.joins.Load())
	})

	t.Run("different credentials join separately", func(t *testing.T) {
		t.Parallel()

		registry := events.NewRegistry(nil)
		transport := &fakeTransport{sub: newFakeSubscription()}

		other := testKey()
		other.Credential = "other-token"

		first := registry.Subscribe(context.Background(), testKey(), transport)
		second := registry.Subscribe(context.Background(), other, transport)

		assert.NotSame(t, first, second)
		waitChannel(t, first)
		waitChannel(t, second)
		assert.Equal(t, int32(2), transport.joins.Load())
		assert.Equal(t, 2, registry.Len())
	})

	t.Run("canceled caller context does not abort the join", func(t *testing.T) {
		t.Parallel()

		registry := events.NewRegistry(nil)
		transport := &fakeTransport{gate: make(chan struct{}), sub: newFakeSubscription()}

		ctx, cancel := context.WithCancel(context.Background())
		future := registry.Subscribe(ctx, testKey(), transport)
		cancel()
		close(transport.gate)

		waitChannel(t, future)
	})
}

func TestRegistry_SubscribeFailure(t *testing.T) {
	t.Parallel()

	t.Run("join rejected", func(t *testing.T) {
		t.Parallel()

		registry := events.NewRegistry(nil)
		failing := &fakeTransport{err: errJoinRejected}

		_, err := registry.Subscribe(context.Background(), testKey(), failing).Wait(context.Background())
		require.Error(t, err)

		subErr := &cma.SubscriptionError{}
		require.ErrorAs(t, err, &subErr)
		assert.Equal(t, "private-site-42", subErr.Channel)
		require.ErrorIs(t, err, errJoinRejected)
		assert.Equal(t, 0, registry.Len())

		// A new subscribe starts from scratch.
		working := &fakeTransport{sub: newFakeSubscription()}
		waitChannel(t, registry.Subscribe(context.Background(), testKey(), working))
		assert.Equal(t, int32(1), working.joins.Load())
	})

	t.Run("bind rejected", func(t *testing.T) {
		t.Parallel()

		registry := events.NewRegistry(nil)
		sub := newFakeSubscription()
		sub.bindErr = errJoinRejected

		_, err := registry.Subscribe(context.Background(), testKey(), &fakeTransport{sub: sub}).Wait(context.Background())
		require.ErrorIs(t, err, errJoinRejected)
		assert.True(t, sub.unsubscribed.Load())
		assert.Equal(t, 0, registry.Len())
	})
}

func TestRegistry_Unsubscribe(t *testing.T) {
	t.Parallel()

	t.Run("leaves the channel and forgets the key", func(t *testing.T) {
		t.Parallel()

		registry, sub, channel := subscribe(t)
		waiter := channel.WaitJobResult("job-1")

		require.NoError(t, registry.Unsubscribe(testKey()))
		assert.True(t, sub.unsubscribed.Load())
		assert.Equal(t, 0, registry.Len())
		assert.False(t, waiter.Settled())
	})

	t.Run("unknown key", func(t *testing.T) {
		t.Parallel()

		registry := events.NewRegistry(nil)
		require.NoError(t, registry.Unsubscribe(testKey()))
	})

	t.Run("join in flight", func(t *testing.T) {
		t.Parallel()

		registry := events.NewRegistry(nil)
		transport := &fakeTransport{gate: make(chan struct{}), sub: newFakeSubscription()}

		future := registry.Subscribe(context.Background(), testKey(), transport)
		require.NoError(t, registry.Unsubscribe(testKey()))

		_, err := future.Wait(context.Background())
		require.ErrorIs(t, err, cma.ErrCanceled)

		close(transport.gate)

		assert.Eventually(t, transport.sub.unsubscribed.Load, time.Second, 5*time.Millisecond)
	})
}

func TestChannel_WaitJobResult(t *testing.T) {
	t.Parallel()

	t.Run("result arrives before wait", func(t *testing.T) {
		t.Parallel()

		_, sub, channel := subscribe(t)

		sub.emit(t, "job-result", `{"jobId":"J1","status":200,"payload":{"data":{"id":"1"}}}`)

		_, buffered := channel.Pending()
		assert.Equal(t, 1, buffered)

		future := channel.WaitJobResult("J1")
		require.True(t, future.Settled())

		result, err := future.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "J1", result.ID)
		assert.Equal(t, "job_result", result.Type)
		assert.Equal(t, 200, result.Status)
		assert.JSONEq(t, `{"data":{"id":"1"}}`, string(result.Payload))

		waiters, buffered := channel.Pending()
		assert.Equal(t, 0, waiters)
		assert.Equal(t, 0, buffered)
	})

	t.Run("wait before result arrives", func(t *testing.T) {
		t.Parallel()

		_, sub, channel := subscribe(t)

		future := channel.WaitJobResult("J1")
		assert.False(t, future.Settled())

		waiters, _ := channel.Pending()
		assert.Equal(t, 1, waiters)

		sub.emit(t, "job-result", `{"jobId":"J1","status":200,"payload":null}`)

		result, err := future.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "J1", result.ID)

		waiters, buffered := channel.Pending()
		assert.Equal(t, 0, waiters)
		assert.Equal(t, 0, buffered)
	})

	t.Run("unrelated results stay buffered", func(t *testing.T) {
		t.Parallel()

		_, sub, channel := subscribe(t)

		future := channel.WaitJobResult("J1")
		sub.emit(t, "job-result", `{"jobId":"J2","status":200}`)

		assert.False(t, future.Settled())

		waiters, buffered := channel.Pending()
		assert.Equal(t, 1, waiters)
		assert.Equal(t, 1, buffered)
	})

	t.Run("canceled waiter is withdrawn", func(t *testing.T) {
		t.Parallel()

		_, sub, channel := subscribe(t)

		future := channel.WaitJobResult("J1")
		require.True(t, future.Cancel())

		_, err := future.Wait(context.Background())
		require.ErrorIs(t, err, cma.ErrCanceled)

		sub.emit(t, "job-result", `{"jobId":"J1","status":200}`)

		waiters, buffered := channel.Pending()
		assert.Equal(t, 0, waiters)
		assert.Equal(t, 1, buffered)

		result, err := channel.WaitJobResult("J1").Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "J1", result.ID)
	})

	t.Run("second waiter for the same job", func(t *testing.T) {
		t.Parallel()

		_, _, channel := subscribe(t)

		channel.WaitJobResult("J1")

		_, err := channel.WaitJobResult("J1").Wait(context.Background())
		require.ErrorIs(t, err, cma.ErrUsage)
		require.ErrorIs(t, err, events.ErrAlreadyWaiting)
	})

	t.Run("malformed events are dropped", func(t *testing.T) {
		t.Parallel()

		_, sub, channel := subscribe(t)

		sub.emit(t, "job-result", `not json`)
		sub.emit(t, "job-result", `{"status":200}`)

		waiters, buffered := channel.Pending()
		assert.Equal(t, 0, waiters)
		assert.Equal(t, 0, buffered)
	})
}

func TestChannel_ConcurrentDelivery(t *testing.T) {
	t.Parallel()

	_, sub, channel := subscribe(t)

	const jobs = 50

	var wg sync.WaitGroup

	results := make([]*cma.Future[cma.JobResult], jobs)

	for i := range jobs {
		wg.Add(2)

		id := "job-" + string(rune('A'+i%26)) + string(rune('a'+i/26))

		go func() {
			defer wg.Done()

			results[i] = channel.WaitJobResult(id)
		}()

		go func() {
			defer wg.Done()

			sub.emit(t, "job-result", `{"jobId":"`+id+`","status":200}`)
		}()
	}

	wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, future := range results {
		_, err := future.Wait(ctx)
		require.NoError(t, err)
	}

	waiters, buffered := channel.Pending()
	assert.Equal(t, 0, waiters)
	assert.Equal(t, 0, buffered)
}
