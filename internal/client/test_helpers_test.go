package client

import (
	"context"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fivetwenty-io/cma-client/internal/events"
	internalhttp "github.com/fivetwenty-io/cma-client/internal/http"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
	"github.com/stretchr/testify/require"
)

// fakeSubscription records bound handlers so tests can push events.
type fakeSubscription struct {
	mu           sync.Mutex
	handlers     map[string]events.Handler
	unsubscribed atomic.Int32
}

func (s *fakeSubscription) Bind(event string, handler events.Handler) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handlers == nil {
		s.handlers = make(map[string]events.Handler)
	}

	s.handlers[event] = handler

	return nil
}

func (s *fakeSubscription) Unsubscribe() error {
	s.unsubscribed.Add(1)

	return nil
}

// push delivers payload as a job-result event.
func (s *fakeSubscription) push(t *testing.T, payload string) {
	t.Helper()

	s.mu.Lock()
	handler := s.handlers["job-result"]
	s.mu.Unlock()

	require.NotNil(t, handler)
	handler([]byte(payload))
}

// fakeTransport hands out a single fakeSubscription.
type fakeTransport struct {
	joins atomic.Int32
	sub   fakeSubscription
}

func (f *fakeTransport) Join(ctx context.Context, key events.SubscriptionKey) (events.Subscription, error) {
	f.joins.Add(1)

	return &f.sub, nil
}

// testKey is the realtime channel used by tests.
func testKey() events.SubscriptionKey {
	return events.SubscriptionKey{
		Endpoint:   "nats://realtime.test:4222",
		Channel:    "private-site-1",
		Credential: "test-token",
	}
}

// NewTestJobResultsClient creates a job results client against server with
// its own registry and a fake transport.
func NewTestJobResultsClient(server *httptest.Server, transport events.Transport) *JobResultsClient {
	return NewJobResultsClient(internalhttp.NewClient(server.URL, nil), JobResultsOptions{
		Key:       testKey(),
		Registry:  events.NewRegistry(nil),
		Transport: transport,
		Cache:     cma.NewJobResultCache(cma.NewMemoryCache(10), 0),
	})
}

// recordingLogger collects log entries.
type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) add(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, level+": "+msg)
}

func (l *recordingLogger) Debug(msg string, _ map[string]interface{}) { l.add("debug", msg) }
func (l *recordingLogger) Info(msg string, _ map[string]interface{})  { l.add("info", msg) }
func (l *recordingLogger) Warn(msg string, _ map[string]interface{})  { l.add("warn", msg) }
func (l *recordingLogger) Error(msg string, _ map[string]interface{}) { l.add("error", msg) }
