package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"evohome_gateway/internal/evohome"
	"evohome_gateway/internal/logger"
	"evohome_gateway/internal/models"
)

// Authenticator performs a single OAuth grant against the cloud API.
type Authenticator interface {
	Authenticate(ctx context.Context, g evohome.Grant) (evohome.TokenResponse, error)
}

// SessionManager owns the current session and is its only writer.
type SessionManager struct {
	auth  Authenticator
	creds models.Credentials
	log   *logger.Logger
	now   func() time.Time

	mu      sync.Mutex // serializes renewals; readers go through current
	current atomic.Pointer[models.Session]
}

func NewSessionManager(auth Authenticator, creds models.Credentials, log *logger.Logger) *SessionManager {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionManager{
		auth:  auth,
		creds: creds,
		log:   log.Named("session"),
		now:   time.Now,
	}
}

// AuthenticateWithPassword runs a password grant. The held session is not touched.
func (m *SessionManager) AuthenticateWithPassword(ctx context.Context) (models.Session, error) {
	return m.grant(ctx, evohome.PasswordGrant(m.creds.Username, m.creds.Password))
}

// AuthenticateWithRefreshToken runs a refresh grant. The held session is not touched.
func (m *SessionManager) AuthenticateWithRefreshToken(ctx context.Context, refreshToken string) (models.Session, error) {
	return m.grant(ctx, evohome.RefreshTokenGrant(refreshToken))
}

func (m *SessionManager) grant(ctx context.Context, g evohome.Grant) (models.Session, error) {
	issued := m.now()
	tok, err := m.auth.Authenticate(ctx, g)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %s grant: %w", ErrAuthentication, g.Type(), err)
	}
	return models.Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IssuedAt:     issued,
		ExpiresIn:    tok.ExpiresIn,
	}, nil
}

// EnsureValidSession returns a session that is usable for the next poll interval.
// A fresh session is returned as is without any network call. A stale one is
// refreshed, falling back to a single password grant if the refresh fails.
// A refresh token the server rejected is dropped with the session, so a failed
// fallback leaves nothing to refresh and the next call starts from a password
// grant. Transport failures keep the held session for another refresh attempt.
func (m *SessionManager) EnsureValidSession(ctx context.Context, pollInterval time.Duration) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	held := m.current.Load()
	if held != nil && !held.Stale(m.now(), pollInterval) {
		return *held, nil
	}

	var (
		next models.Session
		err  error
	)
	if held == nil {
		next, err = m.AuthenticateWithPassword(ctx)
	} else {
		next, err = m.AuthenticateWithRefreshToken(ctx, held.RefreshToken)
		switch {
		case errors.Is(err, evohome.ErrUnauthorized):
			// A revoked refresh token is never retried.
			m.log.Warnw("session_refresh_rejected", "err", err)
			m.current.Store(nil)
			next, err = m.AuthenticateWithPassword(ctx)
		case err != nil:
			m.log.Warnw("session_refresh_failed", "err", err)
			next, err = m.AuthenticateWithPassword(ctx)
		}
	}
	if err != nil {
		m.log.Errorw("session_authentication_failed", "err", err)
		return models.Session{}, err
	}

	m.current.Store(&next)
	m.log.Debugw("session_renewed", "expires_in", next.ExpiresIn)
	return next, nil
}

// Current returns the held session, if any.
func (m *SessionManager) Current() (models.Session, bool) {
	s := m.current.Load()
	if s == nil {
		return models.Session{}, false
	}
	return *s, true
}

// Invalidate drops the held session. Safe to call repeatedly.
func (m *SessionManager) Invalidate() {
	m.current.Store(nil)
}
