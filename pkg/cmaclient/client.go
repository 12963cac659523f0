package cmaclient

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/cma-client/internal/client"
	"github.com/fivetwenty-io/cma-client/internal/constants"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
)

// New creates a new content management API client.
func New(config *cma.Config) (cma.Client, error) {
	if config == nil {
		return nil, cma.ErrConfigRequired
	}

	if config.APIEndpoint == "" {
		return nil, cma.ErrAPIEndpointRequired
	}

	// Normalize API endpoint
	apiEndpoint := normalizeEndpoint(config.APIEndpoint)

	resolved := *config
	resolved.APIEndpoint = apiEndpoint

	if resolved.Realtime.Cluster != "" && resolved.Realtime.AuthEndpoint == "" {
		resolved.Realtime.AuthEndpoint = apiEndpoint + constants.APIPathRealtimeAuth
	}

	// Use the internal client implementation
	c, err := client.New(&resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to create new client: %w", err)
	}

	return c, nil
}

// NewWithToken creates a new client with an API endpoint and API token.
func NewWithToken(endpoint, token string) (cma.Client, error) {
	return New(&cma.Config{
		APIEndpoint: endpoint,
		APIToken:    token,
	})
}

// NewWithRealtime creates a client that can receive job results over the
// realtime channel.
func NewWithRealtime(endpoint, token string, realtime cma.RealtimeConfig) (cma.Client, error) {
	return New(&cma.Config{
		APIEndpoint: endpoint,
		APIToken:    token,
		Realtime:    realtime,
	})
}

func normalizeEndpoint(endpoint string) string {
	normalized := strings.TrimSuffix(endpoint, "/")
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}

	return normalized
}
