package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/astrasemi/assistant/internal/constants"
	"github.com/astrasemi/assistant/internal/middleware"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/repository"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/astrasemi/assistant/internal/session"
	"github.com/astrasemi/assistant/internal/testutil"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type authTestEnv struct {
	db     *gorm.DB
	router *gin.Engine
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	codec := session.NewCodec("test-secret", time.Hour)
	authService := services.NewAuthService(
		repository.NewUserRepository(db),
		repository.NewSessionRepository(db),
		codec,
	)
	handler := NewAuthHandler(authService, codec, false)

	r := gin.New()
	r.Use(sessions.Sessions(constants.FlashSessionName, cookie.NewStore([]byte("flash-secret"))))
	r.GET("/community", middleware.RequirePageSession(codec), func(c *gin.Context) {
		c.String(http.StatusOK, "page")
	})
	r.POST("/api/auth/login", handler.Login)
	r.POST("/api/auth/logout", handler.Logout)
	r.GET("/api/auth/me", handler.Me)
	r.GET("/api/session", handler.Session)

	return authTestEnv{db: db, router: r}
}

func sessionCookie(t *testing.T, cookies []*http.Cookie) *http.Cookie {
	t.Helper()
	for _, c := range cookies {
		if c.Name == constants.SessionCookieName {
			return c
		}
	}
	t.Fatalf("session cookie not set")
	return nil
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAuthTestEnv(t)
	testutil.CreateUser(t, env.db, "operator", models.UserRoleAdmin)

	w := performRequest(env.router, http.MethodPost, "/api/auth/login", map[string]string{
		"username": " Operator ",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decodeBody(t, w)
	assert.Equal(t, "operator", body["username"])
	assert.Equal(t, "ADMIN", body["role"])
	assert.NotContains(t, body, "redirectTo")

	c := sessionCookie(t, w.Result().Cookies())
	assert.True(t, c.HttpOnly)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 3600, c.MaxAge)
}

func TestAuthHandler_LoginReturnsRedirect(t *testing.T) {
	env := setupAuthTestEnv(t)
	testutil.CreateUser(t, env.db, "operator", models.UserRoleUser)

	w := performRequest(env.router, http.MethodGet, "/community", nil)
	require.Equal(t, http.StatusFound, w.Code)
	flash := w.Result().Cookies()

	w = performRequest(env.router, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "operator",
		"password": "password",
	}, flash...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/community", decodeBody(t, w)["redirectTo"])
}

func TestAuthHandler_LoginFailures(t *testing.T) {
	env := setupAuthTestEnv(t)
	inactive := testutil.CreateUser(t, env.db, "inactive", models.UserRoleUser)
	testutil.Deactivate(t, env.db, inactive)

	w := performRequest(env.router, http.MethodPost, "/api/auth/login", map[string]string{"username": "operator"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username and password are required", decodeBody(t, w)["error"])

	for _, username := range []string{"ghost", "inactive"} {
		w = performRequest(env.router, http.MethodPost, "/api/auth/login", map[string]string{
			"username": username,
			"password": "password",
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, "Invalid credentials", body["error"])
		assert.Equal(t, "INVALID_CREDENTIALS", body["code"])
	}
}

func TestAuthHandler_MeAndLogout(t *testing.T) {
	env := setupAuthTestEnv(t)
	testutil.CreateUser(t, env.db, "operator", models.UserRoleUser)

	w := performRequest(env.router, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, decodeBody(t, w)["authenticated"])

	w = performRequest(env.router, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "operator",
		"password": "password",
	})
	require.Equal(t, http.StatusOK, w.Code)
	c := sessionCookie(t, w.Result().Cookies())

	w = performRequest(env.router, http.MethodGet, "/api/auth/me", nil, c)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "operator", body["username"])
	assert.EqualValues(t, 0, body["reputation"])

	w = performRequest(env.router, http.MethodGet, "/api/session", nil, c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user", decodeBody(t, w)["role"])

	w = performRequest(env.router, http.MethodPost, "/api/auth/logout", nil, c)
	require.Equal(t, http.StatusOK, w.Code)
	cleared := sessionCookie(t, w.Result().Cookies())
	assert.Empty(t, cleared.Value)
	assert.Less(t, cleared.MaxAge, 0)

	// the old cookie still decodes but its server-side session is gone
	w = performRequest(env.router, http.MethodGet, "/api/auth/me", nil, c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = performRequest(env.router, http.MethodGet, "/api/session", nil, c)
	assert.Equal(t, http.StatusOK, w.Code)
}
