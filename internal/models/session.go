package models

import (
	"strings"
	"time"
)

// Credentials identify the account used against the cloud API.
type Credentials struct {
	Username      string
	Password      string
	ApplicationID string
}

// MissingField returns the name of the first empty credential field, or "" when all are set.
func (c Credentials) MissingField() string {
	switch {
	case strings.TrimSpace(c.Username) == "":
		return "username"
	case strings.TrimSpace(c.Password) == "":
		return "password"
	case strings.TrimSpace(c.ApplicationID) == "":
		return "application id"
	}
	return ""
}

// staleMarginIntervals is how many poll intervals before the literal expiry a session is refreshed.
const staleMarginIntervals = 4

// Session is an issued access/refresh token pair. It is replaced as a whole, never edited.
type Session struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresIn    int       `json:"expires_in"` // seconds
}

// Stale reports whether the session must be renewed before the next request.
// A session goes stale four poll intervals ahead of its literal expiry.
func (s Session) Stale(now time.Time, pollInterval time.Duration) bool {
	margin := s.IssuedAt.Unix() + int64(s.ExpiresIn) - staleMarginIntervals*int64(pollInterval/time.Second)
	return now.Unix() > margin
}
