package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/fivetwenty-io/cma-client/internal/constants"
	cmahttp "github.com/fivetwenty-io/cma-client/internal/http"
	"github.com/fivetwenty-io/cma-client/pkg/cma"
	"github.com/nats-io/nats.go"
)

// NATSTransport joins channels on a NATS cluster. The connection is
// authorized with a channel token issued by AuthEndpoint in exchange for the
// subscription credential. Events of a channel are published on the subject
// "<appKey>.<channel>.<event>".
type NATSTransport struct {
	appKey       string
	authEndpoint string
	httpClient   *cmahttp.Client
	logger       cma.Logger
}

// NewNATSTransport creates a NATS transport.
func NewNATSTransport(appKey, authEndpoint string, logger cma.Logger) *NATSTransport {
	return &NATSTransport{
		appKey:       appKey,
		authEndpoint: authEndpoint,
		httpClient:   cmahttp.NewClient("", nil, cmahttp.WithTimeout(constants.ShortHTTPTimeout)),
		logger:       cma.LoggerOrNop(logger),
	}
}

// Join connects to key.Endpoint, the cluster URL.
func (t *NATSTransport) Join(ctx context.Context, key SubscriptionKey) (Subscription, error) {
	token, err := t.authorize(ctx, key)
	if err != nil {
		return nil, err
	}

	conn, err := nats.Connect(key.Endpoint,
		nats.Name("cma-client"),
		nats.Token(token),
		nats.Timeout(constants.RealtimeConnectTimeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				t.logger.Warn("Realtime connection lost", map[string]interface{}{
					"channel": key.Channel,
					"error":   err.Error(),
				})
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", key.Endpoint, err)
	}

	return &natsSubscription{
		conn:    conn,
		subject: t.appKey + "." + key.Channel,
	}, nil
}

// authorize exchanges the credential for a channel token.
func (t *NATSTransport) authorize(ctx context.Context, key SubscriptionKey) (string, error) {
	resp, err := t.httpClient.Do(ctx, &cmahttp.Request{
		Method: "POST",
		Path:   t.authEndpoint,
		Body:   map[string]string{"channel_name": key.Channel},
		Headers: map[string]string{
			"Authorization": "Bearer " + key.Credential,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", constants.ErrChannelAuthFailed, err)
	}

	var grant struct {
		Auth string `json:"auth"`
	}

	err = json.Unmarshal(resp.Body, &grant)
	if err != nil {
		return "", fmt.Errorf("parsing channel authorization: %w", err)
	}

	if grant.Auth == "" {
		return "", constants.ErrNoChannelToken
	}

	return grant.Auth, nil
}

type natsSubscription struct {
	conn    *nats.Conn
	subject string

	mu   sync.Mutex
	subs []*nats.Subscription
}

func (s *natsSubscription) Bind(event string, handler Handler) error {
	sub, err := s.conn.Subscribe(s.subject+"."+event, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s.%s: %w", s.subject, event, err)
	}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return nil
}

func (s *natsSubscription) Unsubscribe() error {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	var firstErr error

	for _, sub := range subs {
		err := sub.Unsubscribe()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.conn.Close()

	return firstErr
}
