// Package token owns the refresh-or-reuse decision for stored
// FreeAgent credentials.
package token

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flairlondon/freeagent-bridge/freeagent"
	"github.com/flairlondon/freeagent-bridge/internal/config"
	"github.com/flairlondon/freeagent-bridge/internal/errors"
	"github.com/flairlondon/freeagent-bridge/secrets"
	"github.com/flairlondon/freeagent-bridge/tokenstore"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ExpirySkew is the safety buffer subtracted from the declared token
// validity so a refresh happens before actual expiry. One uniform
// value for every caller, including the admin listing.
const ExpirySkew = 60 * time.Second

// Refresher performs the refresh grant against the upstream token
// endpoint. Satisfied by *freeagent.Client.
type Refresher interface {
	Refresh(ctx context.Context, clientID, clientSecret, refreshToken string) (*freeagent.TokenResponse, error)
}

// Manager hands out valid access tokens, refreshing stale ones through
// the upstream token endpoint. A per-user mutex serializes the whole
// check-then-refresh so at most one refresh per user runs at a time;
// within the validity window concurrent callers share the stored token
// with no network call.
type Manager struct {
	repo     tokenstore.Repo
	secrets  secrets.Store
	upstream Refresher
	names    config.SecretNames

	userLocks map[string]*sync.Mutex
	lock      sync.Mutex
}

func NewManager(repo tokenstore.Repo, secretStore secrets.Store, upstream Refresher, names config.SecretNames) *Manager {
	return &Manager{
		repo:      repo,
		secrets:   secretStore,
		upstream:  upstream,
		names:     names,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// EnsureValidAccessToken returns an access token that is valid for at
// least ExpirySkew. The stored token is reused while inside its
// validity window; otherwise a refresh exchange runs and the record is
// rewritten in one write. A failed refresh leaves the record untouched
// and is fatal for the current request.
func (m *Manager) EnsureValidAccessToken(ctx context.Context, userID string) (string, error) {
	userLock := m.userLock(userID)
	userLock.Lock()
	defer userLock.Unlock()

	record, err := m.repo.Get(ctx, userID)
	if err != nil {
		return "", err
	}

	elapsed := NowTimeFunc().Sub(record.Timestamp)
	if elapsed < time.Duration(record.ExpiresIn)*time.Second-ExpirySkew {
		log.Info().
			Str("event", "token_reused").
			Str("user_id", userID).
			Msg("stored access token still valid, skipping refresh")
		return record.AccessToken, nil
	}

	clientID, err := m.secrets.Get(ctx, m.names.GetClientIDSecretName())
	if err != nil {
		return "", err
	}
	clientSecret, err := m.secrets.Get(ctx, m.names.GetClientSecretSecretName())
	if err != nil {
		return "", err
	}

	refreshed, err := m.upstream.Refresh(ctx, clientID, clientSecret, record.RefreshToken)
	if err != nil {
		log.Error().
			Str("event", "token_refresh_failed").
			Str("user_id", userID).
			Err(err).
			Msg("refresh exchange failed")
		return "", err
	}

	// FreeAgent does not always rotate the refresh token: keep the
	// previous one when the response omits it.
	refreshToken := refreshed.RefreshToken
	if refreshToken == "" {
		refreshToken = record.RefreshToken
	}

	updated := &tokenstore.TokenRecord{
		UserID:       userID,
		AccessToken:  refreshed.AccessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    refreshed.ExpiresIn,
		Timestamp:    NowTimeFunc(),
	}
	if err := m.repo.Upsert(ctx, updated); err != nil {
		return "", errors.Wrapf(err, "token.Manager persist refreshed record for %q", userID)
	}

	log.Info().
		Str("event", "token_refreshed").
		Str("user_id", userID).
		Int("expires_in", updated.ExpiresIn).
		Msg("access token refreshed")

	return updated.AccessToken, nil
}

// IsValid reports whether the record's access token is still inside its
// validity window at the given instant, using the uniform skew.
func IsValid(record *tokenstore.TokenRecord, now time.Time) bool {
	return now.Sub(record.Timestamp) < time.Duration(record.ExpiresIn)*time.Second-ExpirySkew
}

func (m *Manager) userLock(userID string) *sync.Mutex {
	m.lock.Lock()
	defer m.lock.Unlock()
	userLock, ok := m.userLocks[userID]
	if !ok {
		userLock = &sync.Mutex{}
		m.userLocks[userID] = userLock
	}
	return userLock
}
