package handlers

import (
	"errors"
	"net/http"

	"evohome_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

const errInvalidCredentials = "invalid username or password"

// signUpRequest registers a new operator of the gateway API.
type signUpRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64" example:"installer"`
	Password string `json:"password" binding:"required,min=8,max=72" example:"s3cret-pass"`
}

// signInRequest exchanges operator credentials for a bearer token.
type signInRequest struct {
	Username string `json:"username" binding:"required" example:"installer"`
	Password string `json:"password" binding:"required" example:"s3cret-pass"`
}

// @Summary      Register operator
// @Description  Creates an operator allowed to read and control the gateway. Passwords are 8 to 72 bytes (bcrypt limit).
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  signUpRequest  true  "Operator credentials"
// @Success      201  {object}  map[string]int  "id"
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /auth/sign-up [post]
func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	id, err := h.services.SignUp(req.Username, req.Password)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to register operator", "operator_sign_up_failed", err,
			"username", req.Username)
		return
	}
	if h.log != nil {
		h.log.Infow("operator_registered", "operator_id", id, "username", req.Username)
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// @Summary      Sign in
// @Description  Returns a bearer token for the /api/v1 routes and the /ws stream. Tokens expire after auth.token_ttl.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  signInRequest  true  "Operator credentials"
// @Success      200  {object}  models.OperatorToken
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /auth/sign-in [post]
func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	tok, err := h.services.GenerateToken(req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrOperatorNotFound), errors.Is(err, service.ErrInvalidPassword):
		if h.log != nil {
			h.log.Infow("operator_sign_in_rejected", "username", req.Username, "err", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": errInvalidCredentials})
		return
	case err != nil:
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to sign in", "operator_sign_in_failed", err,
			"username", req.Username)
		return
	}
	c.JSON(http.StatusOK, tok)
}
