package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fivetwenty-io/cma-client/internal/constants"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
)

// jobResultMessage is the payload of a job-result event.
type jobResultMessage struct {
	JobID   string          `json:"jobId"`
	Status  int             `json:"status"`
	Payload json.RawMessage `json:"payload"`
}

// Channel rendezvous job-result events with the callers waiting for them.
// For any job id it holds either a buffered result or a waiter, never both.
type Channel struct {
	key    SubscriptionKey
	sub    Subscription
	logger cma.Logger

	mu        sync.Mutex
	waiters   map[string]*cma.Future[cma.JobResult]
	emissions map[string]cma.JobResult
	closeOnce sync.Once
	closeErr  error
}

func newChannel(key SubscriptionKey, sub Subscription, logger cma.Logger) *Channel {
	return &Channel{
		key:       key,
		sub:       sub,
		logger:    logger,
		waiters:   make(map[string]*cma.Future[cma.JobResult]),
		emissions: make(map[string]cma.JobResult),
	}
}

// Key returns the subscription key of the channel.
func (c *Channel) Key() SubscriptionKey {
	return c.key
}

// WaitJobResult returns a future for the result of jobID. A result that
// already arrived is consumed and resolves the future immediately. Canceling
// the future withdraws the waiter.
func (c *Channel) WaitJobResult(jobID string) *cma.Future[cma.JobResult] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if result, ok := c.emissions[jobID]; ok {
		delete(c.emissions, jobID)
		jobResultsBuffered.Dec()

		future := cma.NewFuture[cma.JobResult]()
		future.Resolve(result)

		return future
	}

	if _, waiting := c.waiters[jobID]; waiting {
		future := cma.NewFuture[cma.JobResult]()
		future.Reject(fmt.Errorf("%w: %w %s", cma.ErrUsage, ErrAlreadyWaiting, jobID))

		return future
	}

	var future *cma.Future[cma.JobResult]

	future = cma.NewCancelableFuture[cma.JobResult](func() {
		c.mu.Lock()
		defer c.mu.Unlock()

		if c.waiters[jobID] == future {
			delete(c.waiters, jobID)
		}
	})

	c.waiters[jobID] = future

	return future
}

// Pending returns the number of registered waiters and buffered results.
func (c *Channel) Pending() (waiters, buffered int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.waiters), len(c.emissions)
}

// dispatch handles one job-result event.
func (c *Channel) dispatch(payload []byte) {
	var message jobResultMessage

	err := json.Unmarshal(payload, &message)
	if err != nil || message.JobID == "" {
		jobResultMessagesTotal.WithLabelValues(constants.JobResultEvent, "invalid").Inc()

		c.logger.Warn("Dropping malformed job-result event", map[string]interface{}{
			"channel": c.key.Channel,
			"payload": string(payload),
		})

		return
	}

	jobResultMessagesTotal.WithLabelValues(constants.JobResultEvent, "received").Inc()

	result := cma.JobResult{
		ID:      message.JobID,
		Type:    cma.TypeJobResult,
		Status:  message.Status,
		Payload: message.Payload,
	}

	c.deliver(result)
}

func (c *Channel) deliver(result cma.JobResult) {
	c.mu.Lock()

	waiter, ok := c.waiters[result.ID]
	if !ok {
		if _, buffered := c.emissions[result.ID]; !buffered {
			jobResultsBuffered.Inc()
		}

		c.emissions[result.ID] = result
		c.mu.Unlock()

		return
	}

	delete(c.waiters, result.ID)
	c.mu.Unlock()

	if !waiter.Resolve(result) {
		// The waiter was canceled after it was taken out of the map; keep the
		// result for the next caller.
		c.deliver(result)
	}
}

// close leaves the channel.
func (c *Channel) close() error {
	c.closeOnce.Do(func() {
		channelsActive.Dec()

		c.mu.Lock()
		jobResultsBuffered.Sub(float64(len(c.emissions)))
		c.emissions = make(map[string]cma.JobResult)
		c.mu.Unlock()

		err := c.sub.Unsubscribe()
		if err != nil {
			c.closeErr = fmt.Errorf("leaving channel %s: %w", c.key.Channel, err)
		}
	})

	return c.closeErr
}
