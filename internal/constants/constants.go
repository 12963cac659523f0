package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations such as channel authorization.
	ShortHTTPTimeout = 10 * time.Second

	// RealtimeConnectTimeout bounds the initial pub/sub connection.
	RealtimeConnectTimeout = 10 * time.Second
)

// Retry limits of the HTTP transport. Retries are off unless RetryMax is set.
const (
	// DefaultRetryWaitMin is the minimum wait time between retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Concurrency limits.
const (
	// DefaultConcurrencyLimit is the default number of pages fetched in parallel.
	DefaultConcurrencyLimit = 3

	// MaxPaginationConcurrency is the highest accepted pagination concurrency.
	MaxPaginationConcurrency = 10
)

// Pagination limits of the items endpoint.
const (
	// ItemsDefaultPageSize is the page size used when none is requested.
	ItemsDefaultPageSize = 30

	// ItemsMaxPageSize is the largest page the items endpoint serves.
	ItemsMaxPageSize = 500
)

// Time intervals and delays.
const (
	// DefaultPollInterval is used for job result polling.
	DefaultPollInterval = 2 * time.Second

	// QuickPollInterval is used for fast polling.
	QuickPollInterval = 10 * time.Millisecond

	// DefaultJobPollTimeout bounds job result polling.
	DefaultJobPollTimeout = 5 * time.Minute
)

// Cache limits.
const (
	// DefaultCacheSize is the default number of cached job results.
	DefaultCacheSize = 1000

	// DefaultJobResultCacheTTL is how long job results stay cached.
	DefaultJobResultCacheTTL = 1 * time.Hour
)

// API protocol constants.
const (
	// APIVersion is sent in the X-Api-Version header.
	APIVersion = "3"

	// ContentTypeJSONAPI is the media type of request bodies.
	ContentTypeJSONAPI = "application/vnd.api+json"

	// JobResultEvent is the realtime event carrying job results.
	JobResultEvent = "job-result"

	// StatusPayloadTooLarge is the job result status for payloads too large
	// to be pushed; the full result must be looked up.
	StatusPayloadTooLarge = 413
)

// API path constants.
const (
	// APIPathItems for the items endpoint.
	APIPathItems = "/items"

	// APIPathJobResults for the job results endpoint.
	APIPathJobResults = "/job-results"

	// APIPathRealtimeAuth issues realtime channel tokens.
	APIPathRealtimeAuth = "/realtime/authorize"
)

// Format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)
