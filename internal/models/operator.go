package models

import "time"

// TokenTypeBearer is the scheme operators send tokens with.
const TokenTypeBearer = "Bearer"

// Operator is a local user allowed to read and control the gateway through the HTTP API.
type Operator struct {
	ID           int    `json:"id"`
	Username     string `json:"username"`
	PasswordHash string `json:"-"` // never serialized
}

// OperatorToken is a signed access token handed out on sign-in.
type OperatorToken struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}
