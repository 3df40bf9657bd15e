package handlers

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/astrasemi/assistant/internal/middleware"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/repository"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/astrasemi/assistant/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type TaskHandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	role   *models.Role
}

func (s *TaskHandlerTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	taskService := services.NewTaskService(
		repository.NewRoleRepository(s.db),
		repository.NewTaskRepository(s.db),
	)
	handler := NewTaskHandler(taskService)
	user := testutil.CreateUser(s.T(), s.db, "operator", models.UserRoleUser)
	s.role = testutil.CreateRole(s.T(), s.db, "Process Engineer")

	r := gin.New()
	api := r.Group("/api", asUser(user))
	api.GET("/roles", handler.ListRoles)
	api.GET("/tasks", handler.ListTasks)
	api.POST("/tasks", handler.CreateTask)
	api.GET("/tasks/:id", middleware.RequireTask(taskService), handler.GetTask)
	api.PATCH("/tasks/:id", middleware.RequireTask(taskService), handler.UpdateTask)
	s.router = r
}

func (s *TaskHandlerTestSuite) TestListRoles() {
	testutil.CreateRole(s.T(), s.db, "Equipment Technician")

	w := performRequest(s.router, http.MethodGet, "/api/roles", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	roles := decodeBody(s.T(), w)["roles"].([]interface{})
	s.Require().Len(roles, 2)
	s.Equal("Equipment Technician", roles[0].(map[string]interface{})["name"])
}

func (s *TaskHandlerTestSuite) TestListTasks() {
	testutil.CreateTask(s.T(), s.db, s.role.ID, "Calibrate", models.PriorityLow, models.TaskStatusTodo, nil)
	testutil.CreateTask(s.T(), s.db, s.role.ID, "Review SPC", models.PriorityCritical, models.TaskStatusInProgress, nil)

	w := performRequest(s.router, http.MethodGet, "/api/tasks", nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("roleId is required", decodeBody(s.T(), w)["error"])

	w = performRequest(s.router, http.MethodGet, fmt.Sprintf("/api/tasks?roleId=%d", s.role.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	tasks := decodeBody(s.T(), w)["tasks"].([]interface{})
	s.Require().Len(tasks, 2)
	s.Equal("Review SPC", tasks[0].(map[string]interface{})["title"])

	w = performRequest(s.router, http.MethodGet, fmt.Sprintf("/api/tasks?roleId=%d&priority=low", s.role.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Len(decodeBody(s.T(), w)["tasks"], 1)

	w = performRequest(s.router, http.MethodGet, fmt.Sprintf("/api/tasks?roleId=%d&status=someday", s.role.ID), nil)
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid status", decodeBody(s.T(), w)["error"])
}

func (s *TaskHandlerTestSuite) TestCreateTask() {
	w := performRequest(s.router, http.MethodPost, "/api/tasks", map[string]interface{}{
		"roleId":   s.role.ID,
		"title":    "Swap filter",
		"priority": "high",
		"status":   "todo",
		"dueDate":  "2025-06-10",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(s.T(), w)
	s.Equal("HIGH", body["priority"])
	s.Equal("TODO", body["status"])
	s.Equal("2025-06-10T00:00:00Z", body["dueDate"])
}

func (s *TaskHandlerTestSuite) TestCreateTaskValidation() {
	w := performRequest(s.router, http.MethodPost, "/api/tasks", map[string]interface{}{
		"roleId": s.role.ID,
		"title":  "No priority",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Missing required fields", decodeBody(s.T(), w)["error"])

	w = performRequest(s.router, http.MethodPost, "/api/tasks", map[string]interface{}{
		"roleId":   9999,
		"title":    "Orphan",
		"priority": "LOW",
		"status":   "TODO",
	})
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Role not found", decodeBody(s.T(), w)["error"])

	w = performRequest(s.router, http.MethodPost, "/api/tasks", map[string]interface{}{
		"roleId":   s.role.ID,
		"title":    "Bad priority",
		"priority": "URGENT",
		"status":   "TODO",
	})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Invalid priority", decodeBody(s.T(), w)["error"])
}

func (s *TaskHandlerTestSuite) TestGetTask() {
	task := testutil.CreateTask(s.T(), s.db, s.role.ID, "Calibrate", models.PriorityLow, models.TaskStatusTodo, nil)

	w := performRequest(s.router, http.MethodGet, fmt.Sprintf("/api/tasks/%d", task.ID), nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal("Calibrate", decodeBody(s.T(), w)["title"])

	w = performRequest(s.router, http.MethodGet, "/api/tasks/9999", nil)
	s.Equal(http.StatusNotFound, w.Code)
	s.Equal("Task not found", decodeBody(s.T(), w)["error"])

	w = performRequest(s.router, http.MethodGet, "/api/tasks/abc", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *TaskHandlerTestSuite) TestUpdateTask() {
	due := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	task := testutil.CreateTask(s.T(), s.db, s.role.ID, "Calibrate", models.PriorityLow, models.TaskStatusTodo, &due)
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	w := performRequest(s.router, http.MethodPatch, path, map[string]interface{}{"status": "done"})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(s.T(), w)
	s.Equal("DONE", body["status"])
	s.NotNil(body["dueDate"])

	w = performRequest(s.router, http.MethodPatch, path, map[string]interface{}{"dueDate": nil})
	s.Require().Equal(http.StatusOK, w.Code)
	s.Nil(decodeBody(s.T(), w)["dueDate"])

	w = performRequest(s.router, http.MethodPatch, path, map[string]interface{}{"title": "   "})
	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("Title cannot be empty", decodeBody(s.T(), w)["error"])

	w = performRequest(s.router, http.MethodPatch, path, map[string]interface{}{"dueDate": "next week"})
	s.Equal(http.StatusBadRequest, w.Code)
}

func TestTaskHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(TaskHandlerTestSuite))
}
