package kite

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"stock-lot-tracker/internal/apperrors"
	"stock-lot-tracker/internal/repository"
)

// SessionManager owns the broker session for the process. It holds the
// single mutable access-token slot, persists new tokens through the
// credential store so they survive restarts, and answers whether the
// session is currently usable. Handlers receive it by injection; there is
// no package-level shared session.
type SessionManager struct {
	client Client
	creds  *repository.CredentialRepository

	mu       sync.RWMutex
	token    string
	userName string
}

// NewSessionManager creates a SessionManager over the given broker client
// and credential store.
func NewSessionManager(client Client, creds *repository.CredentialRepository) *SessionManager {
	return &SessionManager{
		client: client,
		creds:  creds,
	}
}

// Restore loads a previously persisted access token and reattaches it to
// the broker client. An empty slot is not an error: the service starts
// disconnected and the user logs in again.
func (m *SessionManager) Restore(ctx context.Context) error {
	token, err := m.creds.Get(ctx, repository.AccessTokenName)
	if errors.Is(err, apperrors.ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore broker session: %w", err)
	}

	m.client.SetAccessToken(token)

	m.mu.Lock()
	m.token = token
	m.mu.Unlock()
	return nil
}

// Login exchanges the request token from the broker's redirect for an
// access token, overwrites the persisted credential slot, and attaches the
// token to the client.
func (m *SessionManager) Login(ctx context.Context, requestToken string) (Session, error) {
	session, err := m.client.GenerateSession(ctx, requestToken)
	if err != nil {
		return Session{}, err
	}

	if err := m.creds.Store(ctx, repository.AccessTokenName, session.AccessToken); err != nil {
		return Session{}, err
	}

	m.client.SetAccessToken(session.AccessToken)

	m.mu.Lock()
	m.token = session.AccessToken
	m.userName = session.UserName
	m.mu.Unlock()
	return session, nil
}

// Connected reports whether an access token is loaded. It says nothing
// about whether the broker still accepts the token; use Valid for that.
func (m *SessionManager) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != ""
}

// Valid probes the broker with a profile request to check that the loaded
// token is still accepted. Kite tokens expire daily, so a stale restored
// token shows up here rather than on first quote fetch.
func (m *SessionManager) Valid(ctx context.Context) bool {
	if !m.Connected() {
		return false
	}
	_, err := m.client.Profile(ctx)
	return err == nil
}

// UserName returns the display name captured at login, if any.
func (m *SessionManager) UserName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.userName
}
