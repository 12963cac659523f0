package client

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/fivetwenty-io/cma-client/internal/auth"
	"github.com/fivetwenty-io/cma-client/internal/constants"
	"github.com/fivetwenty-io/cma-client/internal/events"
	"github.com/fivetwenty-io/cma-client/internal/http"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
)

// Client implements the cma.Client interface.
type Client struct {
	httpClient   *http.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       cma.Logger

	registry  *events.Registry
	transport events.Transport
	cache     cma.Cache

	// Resource clients
	items      *ItemsClient
	jobResults *JobResultsClient
}

// Option customizes a Client beyond cma.Config.
type Option func(*Client)

// WithEventRegistry uses registry instead of events.DefaultRegistry.
func WithEventRegistry(registry *events.Registry) Option {
	return func(c *Client) {
		c.registry = registry
	}
}

// WithEventTransport replaces the NATS transport built from the realtime
// configuration.
func WithEventTransport(transport events.Transport) Option {
	return func(c *Client) {
		c.transport = transport
	}
}

// WithCache stores job results in cache instead of the configured backend.
func WithCache(cache cma.Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *cma.Config) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.Environment != "" {
		httpOpts = append(httpOpts, http.WithEnvironment(config.Environment))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// New creates a new API client.
func New(config *cma.Config, opts ...Option) (*Client, error) {
	if config == nil {
		return nil, cma.ErrConfigRequired
	}

	if config.APIEndpoint == "" {
		return nil, cma.ErrAPIEndpointRequired
	}

	var tokenManager auth.TokenManager
	if config.APIToken != "" {
		tokenManager = auth.NewStaticTokenManager(config.APIToken)
	}

	client := &Client{
		httpClient:   http.NewClient(config.APIEndpoint, tokenManager, createHTTPClientOptions(config)...),
		tokenManager: tokenManager,
		baseURL:      config.APIEndpoint,
		logger:       cma.LoggerOrNop(config.Logger),
		registry:     events.DefaultRegistry,
	}

	if config.Realtime.Cluster != "" {
		client.transport = events.NewNATSTransport(config.Realtime.AppKey, config.Realtime.AuthEndpoint, config.Logger)
	}

	if config.Cache != nil {
		cache, err := cma.NewCacheFromConfig(config.Cache)
		if err != nil {
			return nil, fmt.Errorf("creating job result cache: %w", err)
		}

		client.cache = cache
	}

	for _, opt := range opts {
		opt(client)
	}

	client.initializeResourceClients(config)

	return client, nil
}

// initializeResourceClients initializes all resource-specific clients.
func (c *Client) initializeResourceClients(config *cma.Config) {
	ttl := constants.DefaultJobResultCacheTTL
	if config.Cache != nil && config.Cache.TTL > 0 {
		ttl = config.Cache.TTL
	}

	c.jobResults = NewJobResultsClient(c.httpClient, JobResultsOptions{
		Key: events.SubscriptionKey{
			Endpoint:   config.Realtime.Cluster,
			Channel:    config.Realtime.Channel,
			Credential: config.APIToken,
		},
		Registry:  c.registry,
		Transport: c.transport,
		Cache:     cma.NewJobResultCache(c.cache, ttl),
		Logger:    c.logger,
	})
	c.items = NewItemsClient(c.httpClient, c.jobResults, c.logger)
}

// Items implements cma.Client.Items.
func (c *Client) Items() cma.ItemsClient {
	return c.items
}

// JobResults implements cma.Client.JobResults.
func (c *Client) JobResults() cma.JobResultsClient {
	return c.jobResults
}

// Close leaves the realtime channel of the client.
func (c *Client) Close() error {
	return c.jobResults.UnsubscribeToEvents()
}

// toValues converts query parameters to url.Values.
func toValues(params cma.QueryParams) url.Values {
	if len(params) == 0 {
		return nil
	}

	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}

	return values
}

// resourcePath joins a collection path and an id.
func resourcePath(collection, id string) string {
	return collection + "/" + url.PathEscape(strings.TrimSpace(id))
}
