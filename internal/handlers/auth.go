package handlers

import (
	"errors"
	"net/http"

	"github.com/astrasemi/assistant/internal/constants"
	apierrors "github.com/astrasemi/assistant/internal/errors"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/middleware"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/astrasemi/assistant/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService  *services.AuthService
	codec        *session.Codec
	secureCookie bool
}

// NewAuthHandler creates a new AuthHandler. secureCookie marks the session
// cookie Secure and should be set behind TLS.
func NewAuthHandler(authService *services.AuthService, codec *session.Codec, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		codec:        codec,
		secureCookie: secureCookie,
	}
}

// Login authenticates a user and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	result, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		respondAuthError(c, err)
		return
	}

	h.setSessionCookie(c, result.Token, int(h.codec.TTL().Seconds()))

	response := gin.H{
		"id":         result.User.ID,
		"username":   result.User.Username,
		"role":       result.User.Role,
		"reputation": result.User.Reputation,
	}
	if redirectTo := middleware.PopReturnTo(c); redirectTo != "" {
		response["redirectTo"] = redirectTo
	}
	c.JSON(http.StatusOK, response)
}

// Logout revokes every session of the cookie's user and clears the cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	if payload := middleware.ReadSession(c, h.codec); payload != nil {
		if err := h.authService.Logout(payload); err != nil {
			applog.Log.Error("Failed to revoke sessions on logout",
				zap.String("username", payload.Username),
				zap.Error(err),
			)
		}
	}

	h.setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// Me is the authoritative session check used by the SPA on load.
func (h *AuthHandler) Me(c *gin.Context) {
	payload := middleware.ReadSession(c, h.codec)
	if payload == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	user, err := h.authService.Authenticate(payload)
	if err != nil {
		if !errors.Is(err, services.ErrSessionInvalid) {
			applog.Log.Error("Failed to authenticate session", zap.String("username", payload.Username), zap.Error(err))
			apierrors.InternalError(c, "")
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"id":            user.ID,
		"username":      user.Username,
		"role":          user.Role,
		"reputation":    user.Reputation,
	})
}

// Session decodes the cookie without touching the database.
func (h *AuthHandler) Session(c *gin.Context) {
	payload := middleware.ReadSession(c, h.codec)
	if payload == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"authenticated": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"username":      payload.Username,
		"role":          payload.Role,
	})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(constants.SessionCookieName, value, maxAge, "/", "", h.secureCookie, true)
}

func respondAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCredentialsRequired):
		apierrors.BadRequest(c, "Username and password are required")
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.InvalidCredentials(c)
	default:
		applog.Log.Error("Login failed", zap.Error(err))
		apierrors.InternalError(c, "Internal server error")
	}
}
