package cma

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// Static errors for err113 compliance.
var (
	// ErrConfig is returned for invalid client or pagination configuration.
	// It is always raised before any network call is made.
	ErrConfig = errors.New("invalid configuration")

	// ErrUsage marks a programmer error, e.g. fetching job results before subscribing.
	ErrUsage = errors.New("invalid usage")

	// ErrCanceled is the error a Future fails with after Cancel.
	ErrCanceled = errors.New("operation canceled")

	// ErrTimeout is matched by errors.Is for every *TimeoutError.
	ErrTimeout = errors.New("request timed out")

	ErrConfigRequired      = errors.New("config is required")
	ErrAPIEndpointRequired = errors.New("API endpoint is required")
	ErrAPITokenRequired    = errors.New("API token is required")
	ErrNotSubscribed       = errors.New("not subscribed to events, call SubscribeToEvents first")
	ErrInvalidSpec         = errors.New("attributes and relationships cannot both be wildcards")
	ErrNoPage              = errors.New("page fetcher returned neither a page nor an error")
)

// Common error codes.
const (
	ErrorCodeNotFound          = "NOT_FOUND"
	ErrorCodeInvalidField      = "INVALID_FIELD"
	ErrorCodeInvalidFormat     = "INVALID_FORMAT"
	ErrorCodeStaleItemVersion  = "STALE_ITEM_VERSION"
	ErrorCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrorCodeUnauthorized      = "INVALID_AUTHORIZATION_HEADER"
)

// ErrorAttributes holds the body of a single JSON:API error entity.
type ErrorAttributes struct {
	Code      string                 `json:"code"                yaml:"code"`
	Transient bool                   `json:"transient,omitempty" yaml:"transient,omitempty"`
	DocURL    string                 `json:"doc_url"             yaml:"doc_url"`
	Details   map[string]interface{} `json:"details"             yaml:"details"`
}

// ErrorEntity is one element of a JSON:API error document.
type ErrorEntity struct {
	ID         string          `json:"id"         yaml:"id"`
	Type       string          `json:"type"       yaml:"type"`
	Attributes ErrorAttributes `json:"attributes" yaml:"attributes"`
}

// RequestInfo is the request that produced an error.
type RequestInfo struct {
	URL     string
	Method  string
	Headers http.Header
	Body    []byte
}

// ResponseInfo is the response received for a failed request.
type ResponseInfo struct {
	Status     int
	StatusText string
	Headers    http.Header
	Body       []byte
}

// APIError is returned for every non-2xx response.
type APIError struct {
	Request  RequestInfo
	Response ResponseInfo

	callSite error

	parseOnce sync.Once
	errors    []ErrorEntity
}

// NewAPIError creates an APIError. callSite should be captured with NewCallSite
// before the request was issued so the stack points at the caller.
func NewAPIError(req RequestInfo, resp ResponseInfo, callSite error) *APIError {
	return &APIError{Request: req, Response: resp, callSite: callSite}
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %d %s", e.Request.Method, e.Request.URL, e.Response.Status, e.Response.StatusText)

	entities := e.Errors()
	switch len(entities) {
	case 0:
		return msg
	case 1:
		return fmt.Sprintf("%s (%s)", msg, entities[0].Attributes.Code)
	default:
		codes := make([]string, 0, len(entities))
		for _, entity := range entities {
			codes = append(codes, entity.Attributes.Code)
		}

		return fmt.Sprintf("%s (multiple errors: %v)", msg, codes)
	}
}

// StackTrace returns the call-site stack captured before the request was sent.
func (e *APIError) StackTrace() string {
	return formatCallSite(e.callSite)
}

// Errors returns the structured errors of the response body. The body is only
// parsed the first time; bodies that are not a non-empty array of error
// entities yield no errors.
func (e *APIError) Errors() []ErrorEntity {
	e.parseOnce.Do(func() {
		e.errors = parseErrorDocument(e.Response.Body)
	})

	return e.errors
}

// FindError returns the first error entity with the given code that satisfies
// every filter, or nil.
func (e *APIError) FindError(code string, filters ...ErrorFilter) *ErrorEntity {
	return e.FindAnyError([]string{code}, filters...)
}

// FindAnyError returns the first error entity whose code is one of codes and
// that satisfies every filter, or nil.
func (e *APIError) FindAnyError(codes []string, filters ...ErrorFilter) *ErrorEntity {
	entities := e.Errors()

	for i := range entities {
		entity := &entities[i]
		if !containsString(codes, entity.Attributes.Code) {
			continue
		}

		if matchesAll(*entity, filters) {
			return entity
		}
	}

	return nil
}

// ErrorFilter narrows FindError results.
type ErrorFilter func(entity ErrorEntity) bool

// MatchDetails matches entities whose details contain every key of expected
// with an equal value. Values are compared after JSON normalization, so
// MatchDetails(map[string]interface{}{"max": 5}) matches a decoded 5.0.
func MatchDetails(expected map[string]interface{}) ErrorFilter {
	normalized := normalizeJSON(expected)

	return func(entity ErrorEntity) bool {
		want, ok := normalized.(map[string]interface{})
		if !ok {
			return false
		}

		for key, value := range want {
			got, present := entity.Attributes.Details[key]
			if !present || !reflect.DeepEqual(got, value) {
				return false
			}
		}

		return true
	}
}

// MatchFunc adapts an arbitrary predicate.
func MatchFunc(predicate func(entity ErrorEntity) bool) ErrorFilter {
	return predicate
}

// TimeoutError is returned when no response was received in time.
type TimeoutError struct {
	Request RequestInfo

	callSite error
	cause    error
}

// NewTimeoutError creates a TimeoutError for req.
func NewTimeoutError(req RequestInfo, callSite, cause error) *TimeoutError {
	return &TimeoutError{Request: req, callSite: callSite, cause: cause}
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Request.Method, e.Request.URL, ErrTimeout.Error())
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Unwrap returns the transport error that caused the timeout.
func (e *TimeoutError) Unwrap() error {
	return e.cause
}

// StackTrace returns the call-site stack captured before the request was sent.
func (e *TimeoutError) StackTrace() string {
	return formatCallSite(e.callSite)
}

// SubscriptionError is returned when a realtime channel join is rejected. It
// fails the whole subscription, not a single job.
type SubscriptionError struct {
	Channel string
	Err     error
}

// Error implements the error interface.
func (e *SubscriptionError) Error() string {
	return fmt.Sprintf("subscribing to channel %q: %v", e.Channel, e.Err)
}

// Unwrap returns the underlying join error.
func (e *SubscriptionError) Unwrap() error {
	return e.Err
}

// NewCallSite records the current stack. Transports call it before suspending
// on the network so that errors keep the caller's stack.
func NewCallSite() error {
	return pkgerrors.New("request issued")
}

// IsNotFound checks if the error is a 404 API error.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized checks if the error is a 401 API error.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsTimeout checks if the error is a TimeoutError.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsTransient reports whether any structured error of err is flagged transient.
func IsTransient(err error) bool {
	apiErr := &APIError{}
	if !errors.As(err, &apiErr) {
		return false
	}

	for _, entity := range apiErr.Errors() {
		if entity.Attributes.Transient {
			return true
		}
	}

	return false
}

func hasStatus(err error, status int) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Response.Status == status
	}

	return false
}

func parseErrorDocument(body []byte) []ErrorEntity {
	if len(body) == 0 {
		return nil
	}

	var document struct {
		Data []json.RawMessage `json:"data"`
	}

	err := json.Unmarshal(body, &document)
	if err != nil || len(document.Data) == 0 {
		return nil
	}

	entities := make([]ErrorEntity, 0, len(document.Data))

	for _, raw := range document.Data {
		var entity ErrorEntity

		err := json.Unmarshal(raw, &entity)
		if err != nil || entity.Type != "api_error" {
			return nil
		}

		entities = append(entities, entity)
	}

	return entities
}

func formatCallSite(callSite error) string {
	if callSite == nil {
		return ""
	}

	return fmt.Sprintf("%+v", callSite)
}

func matchesAll(entity ErrorEntity, filters []ErrorFilter) bool {
	for _, filter := range filters {
		if filter != nil && !filter(entity) {
			return false
		}
	}

	return true
}

func containsString(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}

	return false
}

func normalizeJSON(value interface{}) interface{} {
	data, err := json.Marshal(value)
	if err != nil {
		return value
	}

	var normalized interface{}

	err = json.Unmarshal(data, &normalized)
	if err != nil {
		return value
	}

	return normalized
}
