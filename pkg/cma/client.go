package cma

import (
	"context"
	"iter"
	"time"
)

// ItemsClient manages records of the content model.
type ItemsClient interface {
	List(ctx context.Context, params QueryParams) (*Page[Item], error)
	ListPagedIterator(ctx context.Context, params QueryParams, opts PaginationOptions) (iter.Seq2[Item, error], error)
	Find(ctx context.Context, id string) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id string, item Item) (Item, error)
	Destroy(ctx context.Context, id string) (Item, error)
	BulkDestroy(ctx context.Context, ids []string) (*JobResult, error)
}

// JobResultsClient retrieves the outcome of asynchronous operations, either
// pushed over the realtime channel or looked up by id.
type JobResultsClient interface {
	// Find looks a job result up by id.
	Find(ctx context.Context, id string) (*JobResult, error)

	// SubscribeToEvents joins the realtime channel. Calling it again while
	// subscribed does nothing.
	SubscribeToEvents(ctx context.Context) error

	// Fetch waits for the pushed result of jobID. SubscribeToEvents must have
	// succeeded first.
	Fetch(ctx context.Context, jobID string) (*JobResult, error)

	// UnsubscribeToEvents leaves the realtime channel. It is safe to call
	// without a subscription.
	UnsubscribeToEvents() error

	// PollUntilComplete looks the result up repeatedly until it exists.
	PollUntilComplete(ctx context.Context, id string) (*JobResult, error)

	// Await uses Fetch when subscribed and PollUntilComplete otherwise.
	Await(ctx context.Context, job *Job) (*JobResult, error)
}

// Client provides access to the resource clients.
type Client interface {
	Items() ItemsClient
	JobResults() JobResultsClient

	// Close leaves the realtime channel, if any.
	Close() error
}

// RealtimeConfig locates the publish/subscribe channel job results are
// pushed to.
type RealtimeConfig struct {
	// Cluster is the pub/sub cluster URL, e.g. "nats://realtime.example.com:4222".
	Cluster string

	// AppKey namespaces the channel on the cluster.
	AppKey string

	// AuthEndpoint issues channel tokens in exchange for the API token.
	// Defaults to the API endpoint's realtime authorization path.
	AuthEndpoint string

	// Channel is the name of the channel job results are published on.
	Channel string
}

// Config represents client configuration for building a Client.
//
// APIToken is sent as a Bearer token on every request and is also the
// credential the realtime channel is authorized with; without it
// JobResults().SubscribeToEvents fails.
type Config struct {
	APIEndpoint string
	APIToken    string

	// Environment selects a sandbox environment; empty means primary.
	Environment string

	// HTTP client options
	UserAgent    string
	HTTPTimeout  time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Logging
	Logger Logger
	Debug  bool

	Realtime RealtimeConfig

	// Cache stores completed job results. Nil disables caching.
	Cache *CacheConfig
}
