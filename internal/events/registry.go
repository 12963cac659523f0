// Package events turns the realtime job-result feed into per-job futures.
//
// A Registry owns at most one live Channel per SubscriptionKey. Subscribing
// twice with the same key while a join is in flight or established returns
// the same future and joins the transport once.
package events

import (
	"context"
	"errors"
	"sync"

	"github.com/fivetwenty-io/cma-client/internal/constants"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
)

// Static errors for err113 compliance.
var (
	ErrAlreadyWaiting = errors.New("already waiting for this job")
)

// SubscriptionKey identifies one deduplicated live channel.
type SubscriptionKey struct {
	Endpoint   string
	Channel    string
	Credential string
}

// Handler receives the raw payload of an event.
type Handler func(payload []byte)

// Subscription is a joined channel.
type Subscription interface {
	// Bind delivers every event named event to handler.
	Bind(event string, handler Handler) error

	// Unsubscribe leaves the channel.
	Unsubscribe() error
}

// Transport joins channels of a publish/subscribe service.
type Transport interface {
	Join(ctx context.Context, key SubscriptionKey) (Subscription, error)
}

// Registry tracks the channels of a process.
type Registry struct {
	mu      sync.Mutex
	entries map[SubscriptionKey]*cma.Future[*Channel]
	logger  cma.Logger
}

// DefaultRegistry is shared by clients that are not given their own registry.
var DefaultRegistry = NewRegistry(nil)

// NewRegistry creates an empty registry.
func NewRegistry(logger cma.Logger) *Registry {
	return &Registry{
		entries: make(map[SubscriptionKey]*cma.Future[*Channel]),
		logger:  cma.LoggerOrNop(logger),
	}
}

// Subscribe returns the channel future for key, joining through transport
// when no join for key is in flight or established. The join outlives ctx
// cancellation since the returned future is shared. A failed join rejects
// the future with a *cma.SubscriptionError and forgets key, so the next
// Subscribe starts over. Nothing is retried.
func (r *Registry) Subscribe(ctx context.Context, key SubscriptionKey, transport Transport) *cma.Future[*Channel] {
	r.mu.Lock()

	if future, ok := r.entries[key]; ok {
		r.mu.Unlock()

		return future
	}

	future := cma.NewFuture[*Channel]()
	r.entries[key] = future
	r.mu.Unlock()

	joinCtx := context.WithoutCancel(ctx)

	go r.join(joinCtx, key, transport, future)

	return future
}

func (r *Registry) join(ctx context.Context, key SubscriptionKey, transport Transport, future *cma.Future[*Channel]) {
	r.logger.Debug("Joining realtime channel", map[string]interface{}{
		"channel":  key.Channel,
		"endpoint": key.Endpoint,
	})

	sub, err := transport.Join(ctx, key)
	if err != nil {
		r.fail(key, future, err)

		return
	}

	channel := newChannel(key, sub, r.logger)

	err = sub.Bind(constants.JobResultEvent, channel.dispatch)
	if err != nil {
		_ = sub.Unsubscribe()

		r.fail(key, future, err)

		return
	}

	channelsActive.Inc()

	if !future.Resolve(channel) {
		// Unsubscribed while joining.
		_ = channel.close()
	}
}

func (r *Registry) fail(key SubscriptionKey, future *cma.Future[*Channel], err error) {
	r.forget(key, future)

	r.logger.Warn("Realtime channel subscription failed", map[string]interface{}{
		"channel": key.Channel,
		"error":   err.Error(),
	})

	future.Reject(&cma.SubscriptionError{Channel: key.Channel, Err: err})
}

// forget removes key if it still maps to future.
func (r *Registry) forget(key SubscriptionKey, future *cma.Future[*Channel]) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries[key] == future {
		delete(r.entries, key)
	}
}

// Unsubscribe forgets key and leaves its channel. A join still in flight is
// canceled. Waiters of the channel are left unresolved.
func (r *Registry) Unsubscribe(key SubscriptionKey) error {
	r.mu.Lock()
	future, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	if future.Cancel() {
		return nil
	}

	channel, err := future.Wait(context.Background())
	if err != nil {
		return nil //nolint:nilerr // failed joins hold no connection
	}

	return channel.close()
}

// Len returns the number of tracked keys.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}
