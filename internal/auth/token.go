package auth

import (
	"context"
	"errors"
	"sync"
)

// Static errors for err113 compliance.
var (
	ErrNoToken = errors.New("no API token available")
)

// TokenManager supplies the credential sent with every request.
type TokenManager interface {
	GetToken(ctx context.Context) (string, error)
}

// StaticTokenManager hands out a fixed API token. API tokens of the content
// management API do not expire, so there is nothing to refresh.
type StaticTokenManager struct {
	mutex sync.RWMutex
	token string
}

// NewStaticTokenManager creates a token manager for token.
func NewStaticTokenManager(token string) *StaticTokenManager {
	return &StaticTokenManager{token: token}
}

// GetToken returns the token, or ErrNoToken when it is empty.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.token == "" {
		return "", ErrNoToken
	}

	return m.token, nil
}

// SetToken replaces the token.
func (m *StaticTokenManager) SetToken(token string) {
	m.mutex.Lock()
	m.token = token
	m.mutex.Unlock()
}
