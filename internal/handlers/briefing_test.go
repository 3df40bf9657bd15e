package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/astrasemi/assistant/internal/llm"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/repository"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/astrasemi/assistant/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func briefingRouter(t *testing.T, client llm.Client) (*gorm.DB, *gin.Engine) {
	t.Helper()

	db := testutil.NewTestDB(t)
	tasks := services.NewTaskService(repository.NewRoleRepository(db), repository.NewTaskRepository(db))
	handler := NewBriefingHandler(services.NewBriefingService(tasks, repository.NewBriefingRepository(db), client, time.Second))

	r := gin.New()
	r.POST("/api/briefing", handler.Generate)
	r.GET("/api/briefing/history", handler.History)
	return db, r
}

func TestBriefingHandler_Generate(t *testing.T) {
	client := &stubClient{err: errors.New("model unavailable")}
	db, r := briefingRouter(t, client)
	role := testutil.CreateRole(t, db, "Shift Lead")
	testutil.CreateTask(t, db, role.ID, "Restart CVD-02", models.PriorityCritical, models.TaskStatusInProgress, nil)
	testutil.CreateTask(t, db, role.ID, "Wait for spare parts", models.PriorityLow, models.TaskStatusBlocked, nil)

	w := performRequest(r, http.MethodPost, "/api/briefing", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "roleId is required", decodeBody(t, w)["error"])

	w = performRequest(r, http.MethodPost, "/api/briefing", map[string]interface{}{"roleId": 9999})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Role not found", decodeBody(t, w)["error"])

	w = performRequest(r, http.MethodPost, "/api/briefing", map[string]interface{}{"roleId": role.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "fallback", body["source"])
	assert.Equal(t, []interface{}{"Restart CVD-02"}, body["top3"])
	assert.Equal(t, []interface{}{"Restart CVD-02"}, body["alerts"])
	assert.Equal(t, []interface{}{"Wait for spare parts"}, body["blockers"])
	assert.GreaterOrEqual(t, client.calls, 1)
}

func TestBriefingHandler_History(t *testing.T) {
	db, r := briefingRouter(t, nil)
	role := testutil.CreateRole(t, db, "Shift Lead")

	w := performRequest(r, http.MethodGet, "/api/briefing/history", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodPost, "/api/briefing", map[string]interface{}{"roleId": role.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "empty", decodeBody(t, w)["source"])

	w = performRequest(r, http.MethodGet, fmt.Sprintf("/api/briefing/history?roleId=%d", role.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	briefings := decodeBody(t, w)["briefings"].([]interface{})
	require.Len(t, briefings, 1)
	assert.Equal(t, "empty", briefings[0].(map[string]interface{})["source"])
}
