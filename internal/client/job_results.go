package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fivetwenty-io/cma-client/internal/constants"
	"github.com/fivetwenty-io/cma-client/internal/events"
	"github.com/fivetwenty-io/cma-client/internal/http"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
)

// Static errors for err113 compliance.
var (
	ErrUnexpectedResponse = errors.New("unexpected response shape")
)

// JobResultsOptions configures a JobResultsClient.
type JobResultsOptions struct {
	// Key is the realtime channel job results are pushed to. Its Credential
	// authorizes the subscription.
	Key events.SubscriptionKey

	// Registry defaults to events.DefaultRegistry.
	Registry *events.Registry

	// Transport joins the channel. Without one, SubscribeToEvents fails.
	Transport events.Transport

	Cache  *cma.JobResultCache
	Logger cma.Logger
}

// JobResultsClient implements cma.JobResultsClient.
type JobResultsClient struct {
	httpClient   *http.Client
	key          events.SubscriptionKey
	registry     *events.Registry
	transport    events.Transport
	cache        *cma.JobResultCache
	logger       cma.Logger
	pollInterval time.Duration
	pollTimeout  time.Duration

	mu      sync.Mutex
	channel *events.Channel
}

// NewJobResultsClient creates a new job results client.
func NewJobResultsClient(httpClient *http.Client, opts JobResultsOptions) *JobResultsClient {
	registry := opts.Registry
	if registry == nil {
		registry = events.DefaultRegistry
	}

	cache := opts.Cache
	if cache == nil {
		cache = cma.NewJobResultCache(nil, 0)
	}

	return &JobResultsClient{
		httpClient:   httpClient,
		key:          opts.Key,
		registry:     registry,
		transport:    opts.Transport,
		cache:        cache,
		logger:       cma.LoggerOrNop(opts.Logger),
		pollInterval: constants.DefaultPollInterval,
		pollTimeout:  constants.DefaultJobPollTimeout,
	}
}

// Find implements cma.JobResultsClient.Find.
func (c *JobResultsClient) Find(ctx context.Context, id string) (*cma.JobResult, error) {
	if cached, ok := c.cache.Get(ctx, id); ok {
		return cached, nil
	}

	resp, err := c.httpClient.Get(ctx, resourcePath(constants.APIPathJobResults, id), nil)
	if err != nil {
		return nil, fmt.Errorf("getting job result %s: %w", id, err)
	}

	var body interface{}

	err = json.Unmarshal(resp.Body, &body)
	if err != nil {
		return nil, fmt.Errorf("parsing job result: %w", err)
	}

	var result cma.JobResult

	err = cma.DecodeInto(cma.DeserializeResponseBody(body), &result)
	if err != nil {
		return nil, fmt.Errorf("parsing job result: %w", err)
	}

	if result.ID == "" {
		return nil, fmt.Errorf("parsing job result: %w", ErrUnexpectedResponse)
	}

	c.store(ctx, &result)

	return &result, nil
}

// SubscribeToEvents implements cma.JobResultsClient.SubscribeToEvents.
func (c *JobResultsClient) SubscribeToEvents(ctx context.Context) error {
	if c.key.Credential == "" {
		return fmt.Errorf("%w: %w", cma.ErrUsage, cma.ErrAPITokenRequired)
	}

	if c.transport == nil || c.key.Endpoint == "" {
		return fmt.Errorf("%w: %w", cma.ErrUsage, constants.ErrNoRealtimeCluster)
	}

	if c.key.Channel == "" {
		return fmt.Errorf("%w: %w", cma.ErrUsage, constants.ErrNoRealtimeChannel)
	}

	if c.subscribed() != nil {
		return nil
	}

	channel, err := c.registry.Subscribe(ctx, c.key, c.transport).Wait(ctx)
	if err != nil {
		return fmt.Errorf("subscribing to job result events: %w", err)
	}

	c.mu.Lock()
	c.channel = channel
	c.mu.Unlock()

	c.logger.Debug("Subscribed to job result events", map[string]interface{}{
		"channel": c.key.Channel,
	})

	return nil
}

// Fetch implements cma.JobResultsClient.Fetch. When ctx is done first the
// wait is withdrawn and the error wraps cma.ErrCanceled.
func (c *JobResultsClient) Fetch(ctx context.Context, jobID string) (*cma.JobResult, error) {
	channel := c.subscribed()
	if channel == nil {
		return nil, fmt.Errorf("%w: %w", cma.ErrUsage, cma.ErrNotSubscribed)
	}

	future := channel.WaitJobResult(jobID)

	result, err := future.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		if future.Cancel() {
			return nil, fmt.Errorf("waiting for job result %s: %w: %w", jobID, cma.ErrCanceled, ctx.Err())
		}

		// Settled concurrently with ctx; keep the outcome.
		result, err = future.Wait(context.Background())
	}

	if err != nil {
		return nil, fmt.Errorf("waiting for job result %s: %w", jobID, err)
	}

	if result.Status == constants.StatusPayloadTooLarge {
		c.logger.Debug("Job result too large for push, looking it up", map[string]interface{}{
			"job_id": jobID,
		})

		return c.Find(ctx, jobID)
	}

	c.store(ctx, &result)

	return &result, nil
}

// UnsubscribeToEvents implements cma.JobResultsClient.UnsubscribeToEvents.
func (c *JobResultsClient) UnsubscribeToEvents() error {
	c.mu.Lock()
	channel := c.channel
	c.channel = nil
	c.mu.Unlock()

	if channel == nil {
		return nil
	}

	err := c.registry.Unsubscribe(channel.Key())
	if err != nil {
		return fmt.Errorf("unsubscribing from job result events: %w", err)
	}

	return nil
}

// PollUntilComplete implements cma.JobResultsClient.PollUntilComplete.
// A 404 means the job has not finished yet.
func (c *JobResultsClient) PollUntilComplete(ctx context.Context, id string) (*cma.JobResult, error) {
	pollCtx, cancel := context.WithTimeout(ctx, c.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	// First check immediately
	result, err := c.Find(pollCtx, id)
	if !cma.IsNotFound(err) {
		return result, err
	}

	for {
		select {
		case <-pollCtx.Done():
			return nil, fmt.Errorf("timeout waiting for job result %s: %w", id, pollCtx.Err())
		case <-ticker.C:
			result, err = c.Find(pollCtx, id)
			if !cma.IsNotFound(err) {
				return result, err
			}
		}
	}
}

// Await implements cma.JobResultsClient.Await.
func (c *JobResultsClient) Await(ctx context.Context, job *cma.Job) (*cma.JobResult, error) {
	if c.subscribed() != nil {
		return c.Fetch(ctx, job.ID)
	}

	return c.PollUntilComplete(ctx, job.ID)
}

func (c *JobResultsClient) subscribed() *events.Channel {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.channel
}

func (c *JobResultsClient) store(ctx context.Context, result *cma.JobResult) {
	err := c.cache.Put(ctx, result)
	if err != nil {
		c.logger.Warn("Failed to cache job result", map[string]interface{}{
			"job_id": result.ID,
			"error":  err.Error(),
		})
	}
}
