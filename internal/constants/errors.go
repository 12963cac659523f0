package constants

import "errors"

// Configuration errors.
var (
	ErrNoAPIEndpoint       = errors.New("no API endpoint configured, use --api or set CMA_API")
	ErrNoAPIToken          = errors.New("no API token configured, use --token or set CMA_TOKEN")
	ErrNoRealtimeCluster   = errors.New("no realtime cluster configured")
	ErrNoRealtimeChannel   = errors.New("no realtime channel configured")
	ErrUnknownOutputFormat = errors.New("unknown output format")
)

// Realtime errors.
var (
	ErrChannelAuthFailed = errors.New("channel authorization failed")
	ErrNoChannelToken    = errors.New("channel authorization returned no token")
)
