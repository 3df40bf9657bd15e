package middleware

import (
	"errors"

	"github.com/astrasemi/assistant/internal/constants"
	apierrors "github.com/astrasemi/assistant/internal/errors"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/astrasemi/assistant/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Authenticator resolves a decoded session payload to an active user.
type Authenticator interface {
	Authenticate(payload *session.Payload) (*models.User, error)
}

// ReadSession decodes the session cookie. It returns nil when the cookie is
// missing, forged or expired.
func ReadSession(c *gin.Context, codec *session.Codec) *session.Payload {
	token, err := c.Cookie(constants.SessionCookieName)
	if err != nil || token == "" {
		return nil
	}

	payload, err := codec.Decode(token)
	if err != nil {
		return nil
	}
	return payload
}

// RequireAuth checks the session cookie signature and expiry only. It does
// not touch the database.
func RequireAuth(codec *session.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload := ReadSession(c, codec)
		if payload == nil {
			apierrors.Unauthorized(c, "")
			return
		}

		c.Set(constants.ContextKeySession, payload)
		c.Next()
	}
}

// RequireActiveUser is the authoritative check: the cookie's user must exist
// and be active and its server-side session must still be valid. It must run
// after RequireAuth.
func RequireActiveUser(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, ok := GetPayload(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		user, err := auth.Authenticate(payload)
		if err != nil {
			if !errors.Is(err, services.ErrSessionInvalid) {
				applog.Log.Error("Failed to authenticate session",
					zap.String("username", payload.Username),
					zap.Error(err),
				)
				apierrors.InternalError(c, "")
				return
			}
			apierrors.Unauthorized(c, "Session expired or revoked")
			return
		}

		c.Set(constants.ContextKeyUser, user)
		c.Set(constants.ContextKeyUserID, user.ID)
		c.Next()
	}
}

// RequireAdmin rejects non-admin users. It must run after RequireActiveUser.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}
		if user.Role != models.UserRoleAdmin {
			apierrors.Forbidden(c, "Admin access required")
			return
		}
		c.Next()
	}
}

// GetPayload returns the decoded session set by RequireAuth
func GetPayload(c *gin.Context) (*session.Payload, bool) {
	value, exists := c.Get(constants.ContextKeySession)
	if !exists {
		return nil, false
	}
	payload, ok := value.(*session.Payload)
	return payload, ok
}

// GetUser returns the user set by RequireActiveUser
func GetUser(c *gin.Context) (*models.User, bool) {
	value, exists := c.Get(constants.ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*models.User)
	return user, ok
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}

	switch v := userID.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
