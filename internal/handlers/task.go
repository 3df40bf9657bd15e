package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/astrasemi/assistant/internal/dto"
	apierrors "github.com/astrasemi/assistant/internal/errors"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/middleware"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListRoles returns every organizational role ordered by name
func (h *TaskHandler) ListRoles(c *gin.Context) {
	roles, err := h.taskService.ListRoles()
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"roles": dto.ToRoleDTOs(roles)})
}

// ListTasks returns a role's tasks, most urgent first.
// Can filter by status and priority.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	roleID, ok := queryUint(c.Query("roleId"))
	if !ok {
		apierrors.BadRequest(c, "roleId is required")
		return
	}

	input := services.ListTasksInput{RoleID: roleID}
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := models.TaskStatus(strings.ToUpper(raw))
		input.Status = &status
	}
	if raw := strings.TrimSpace(c.Query("priority")); raw != "" {
		priority := models.TaskPriority(strings.ToUpper(raw))
		input.Priority = &priority
	}

	tasks, err := h.taskService.ListTasks(input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": dto.ToTaskDTOs(tasks)})
}

// GetTask returns a specific task by ID
// Task is already loaded by the RequireTask middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task for a role
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateTaskRequest struct {
		RoleID      uint64              `json:"roleId" binding:"required"`
		Title       string              `json:"title" binding:"required"`
		Description *string             `json:"description"`
		Priority    models.TaskPriority `json:"priority" binding:"required"`
		Status      models.TaskStatus   `json:"status" binding:"required"`
		DueDate     nullableDate        `json:"dueDate"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Missing required fields")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		RoleID:      req.RoleID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    models.TaskPriority(strings.ToUpper(string(req.Priority))),
		Status:      models.TaskStatus(strings.ToUpper(string(req.Status))),
		DueDate:     req.DueDate.Value,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update. "dueDate": null clears the due date.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type UpdateTaskRequest struct {
		Title       *string              `json:"title"`
		Description *string              `json:"description"`
		Priority    *models.TaskPriority `json:"priority"`
		Status      *models.TaskStatus   `json:"status"`
		DueDate     nullableDate         `json:"dueDate"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	}
	if req.Priority != nil {
		priority := models.TaskPriority(strings.ToUpper(string(*req.Priority)))
		input.Priority = &priority
	}
	if req.Status != nil {
		status := models.TaskStatus(strings.ToUpper(string(*req.Status)))
		input.Status = &status
	}
	if req.DueDate.Set {
		input.DueDate = req.DueDate.Value
		input.ClearDueDate = req.DueDate.Value == nil
	}

	updated, err := h.taskService.UpdateTask(task.ID, input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrRoleNotFound):
		apierrors.NotFound(c, "Role not found")
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrTitleRequired):
		apierrors.BadRequest(c, "Title is required")
	case errors.Is(err, services.ErrTitleEmpty):
		apierrors.BadRequest(c, "Title cannot be empty")
	case errors.Is(err, services.ErrInvalidStatus):
		apierrors.BadRequest(c, "Invalid status")
	case errors.Is(err, services.ErrInvalidPriority):
		apierrors.BadRequest(c, "Invalid priority")
	default:
		applog.Log.Error("Task request failed", zap.Error(err))
		apierrors.InternalError(c, "Failed to process task")
	}
}
