package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/astrasemi/assistant/internal/constants"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/session"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const loginPath = "/login"

// RequirePageSession guards browser routes. Anonymous visitors are sent to
// the login page and the requested path is kept in the flash session so the
// login response can send them back. Non-admins never reach /admin pages.
func RequirePageSession(codec *session.Codec) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		payload := ReadSession(c, codec)

		if payload == nil {
			flash := sessions.Default(c)
			flash.Set(constants.FlashKeyReturnTo, c.Request.URL.RequestURI())
			if err := flash.Save(); err != nil {
				applog.Log.Warn("Failed to save return path", zap.String("path", path), zap.Error(err))
			}
			c.Redirect(http.StatusFound, loginPath+"?from="+url.QueryEscape(path))
			c.Abort()
			return
		}

		if isAdminPath(path) && !payload.IsAdmin() {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}

		c.Set(constants.ContextKeySession, payload)
		c.Next()
	}
}

// PopReturnTo removes and returns the path stored by RequirePageSession.
// Only same-site absolute paths are returned.
func PopReturnTo(c *gin.Context) string {
	flash := sessions.Default(c)
	value, _ := flash.Get(constants.FlashKeyReturnTo).(string)
	if value == "" {
		return ""
	}

	flash.Delete(constants.FlashKeyReturnTo)
	if err := flash.Save(); err != nil {
		applog.Log.Warn("Failed to clear return path", zap.Error(err))
	}

	if !strings.HasPrefix(value, "/") || strings.HasPrefix(value, "//") {
		return ""
	}
	return value
}

func isAdminPath(path string) bool {
	return path == "/admin" || strings.HasPrefix(path, "/admin/")
}
