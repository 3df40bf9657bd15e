package handlers

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/astrasemi/assistant/internal/middleware"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/notify"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/astrasemi/assistant/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *capturePublisher) Publish(_ context.Context, event notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func setupPasswordRouter(t *testing.T) (*gorm.DB, *capturePublisher, *gin.Engine, *gin.Engine) {
	t.Helper()

	db := testutil.NewTestDB(t)
	publisher := &capturePublisher{}
	handler := NewPasswordHandler(services.NewResetService(db, publisher))
	admin := testutil.CreateUser(t, db, "admin", models.UserRoleAdmin)
	user := testutil.CreateUser(t, db, "operator", models.UserRoleUser)

	routes := func(actor *models.User) *gin.Engine {
		r := gin.New()
		r.POST("/api/password/request", handler.RequestReset)
		group := r.Group("/api/password", asUser(actor), middleware.RequireAdmin())
		group.GET("/requests", handler.ListRequests)
		group.POST("/approve", handler.Approve)
		group.POST("/deny", handler.Deny)
		group.POST("/clear", handler.Clear)
		return r
	}

	return db, publisher, routes(admin), routes(user)
}

func TestPasswordHandler_RequestReset(t *testing.T) {
	_, publisher, r, _ := setupPasswordRouter(t)

	known := performRequest(r, http.MethodPost, "/api/password/request", map[string]string{"username": "Operator", "hint": "locked out"})
	unknown := performRequest(r, http.MethodPost, "/api/password/request", map[string]string{"username": "nobody"})

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, services.ResetRequestedMessage, decodeBody(t, known)["message"])
	assert.Equal(t, decodeBody(t, known), decodeBody(t, unknown))
	require.Len(t, publisher.events, 1)
	assert.Equal(t, notify.EventResetRequested, publisher.events[0].Type)

	w := performRequest(r, http.MethodPost, "/api/password/request", map[string]string{"username": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Username is required", decodeBody(t, w)["error"])
}

func TestPasswordHandler_ApproveFlow(t *testing.T) {
	db, _, r, _ := setupPasswordRouter(t)

	performRequest(r, http.MethodPost, "/api/password/request", map[string]string{"username": "operator"})

	w := performRequest(r, http.MethodGet, "/api/password/requests", nil)
	require.Equal(t, http.StatusOK, w.Code)
	requests := decodeBody(t, w)["requests"].([]interface{})
	require.Len(t, requests, 1)
	ticket := requests[0].(map[string]interface{})
	assert.Equal(t, "pending", ticket["status"])
	ticketID := ticket["id"].(string)

	w = performRequest(r, http.MethodPost, "/api/password/approve", map[string]string{"id": ticketID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "New password is required", decodeBody(t, w)["error"])

	w = performRequest(r, http.MethodPost, "/api/password/approve", map[string]string{"id": ticketID, "password": "n3w-pass"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "operator", body["username"])
	assert.Equal(t, "n3w-pass", body["password"])
	assert.Equal(t, "resolved", body["status"])

	var user models.User
	require.NoError(t, db.Where("username = ?", "operator").First(&user).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("n3w-pass")))

	// a resolved ticket cannot be resolved again
	w = performRequest(r, http.MethodPost, "/api/password/deny", map[string]string{"id": ticketID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Ticket not found or already resolved", decodeBody(t, w)["error"])
}

func TestPasswordHandler_DenyAndClear(t *testing.T) {
	_, _, r, _ := setupPasswordRouter(t)

	performRequest(r, http.MethodPost, "/api/password/request", map[string]string{"username": "operator"})
	performRequest(r, http.MethodPost, "/api/password/request", map[string]string{"username": "admin"})

	w := performRequest(r, http.MethodGet, "/api/password/requests", nil)
	requests := decodeBody(t, w)["requests"].([]interface{})
	require.Len(t, requests, 2)
	ticketID := requests[0].(map[string]interface{})["id"].(string)

	w = performRequest(r, http.MethodPost, "/api/password/deny", map[string]string{"id": ticketID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "denied", decodeBody(t, w)["status"])

	w = performRequest(r, http.MethodPost, "/api/password/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.EqualValues(t, 1, body["removed"])
	assert.EqualValues(t, 1, body["remaining"])
}

func TestPasswordHandler_RequiresAdmin(t *testing.T) {
	_, _, _, asOperator := setupPasswordRouter(t)

	w := performRequest(asOperator, http.MethodGet, "/api/password/requests", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
