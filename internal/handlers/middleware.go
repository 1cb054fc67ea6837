package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// operatorIdCtx is the gin context key holding the authenticated operator id.
	operatorIdCtx = "operatorId"
	// accessTokenParam carries the token on /ws, where browsers cannot set headers.
	accessTokenParam = "access_token"
)

var (
	errMissingAuthHeader = errors.New("missing Authorization header")
	errBadAuthHeader     = errors.New("invalid Authorization header format")
)

const errTokenRejected = "invalid or expired token"

// tokenSource extracts the raw bearer token from a request.
type tokenSource func(c *gin.Context) (string, error)

func tokenFromHeader(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", errMissingAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" || token == "" {
		return "", errBadAuthHeader
	}
	return token, nil
}

// tokenFromHeaderOrQuery prefers the Authorization header and falls back to ?access_token=.
func tokenFromHeaderOrQuery(c *gin.Context) (string, error) {
	if c.GetHeader("Authorization") == "" {
		if token := c.Query(accessTokenParam); token != "" {
			return token, nil
		}
	}
	return tokenFromHeader(c)
}

// operatorIdMiddleware guards the /api/v1 routes.
func (h *Handler) operatorIdMiddleware(c *gin.Context) {
	h.authenticate(c, tokenFromHeader)
}

// streamAuthMiddleware guards the websocket stream.
func (h *Handler) streamAuthMiddleware(c *gin.Context) {
	h.authenticate(c, tokenFromHeaderOrQuery)
}

func (h *Handler) authenticate(c *gin.Context, source tokenSource) {
	token, err := source(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	operatorId, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Infow("operator_token_rejected", "path", c.FullPath(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errTokenRejected})
		return
	}

	c.Set(operatorIdCtx, operatorId)
	c.Next()
}

// operatorID returns the id stored by the auth middleware.
func operatorID(c *gin.Context) (int, bool) {
	v, ok := c.Get(operatorIdCtx)
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}
