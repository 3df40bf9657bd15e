package middleware

import (
	"errors"
	"strconv"

	"github.com/astrasemi/assistant/internal/constants"
	apierrors "github.com/astrasemi/assistant/internal/errors"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/gin-gonic/gin"
)

// TaskLoader finds a task by id
type TaskLoader interface {
	GetTask(taskID uint64) (*models.Task, error)
}

// RequireTask loads the task named by the :id parameter into the context
func RequireTask(tasks TaskLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, ok := ParseIDParam(c, "id")
		if !ok {
			apierrors.BadRequest(c, "Invalid task ID")
			return
		}

		task, err := tasks.GetTask(taskID)
		if err != nil {
			if errors.Is(err, services.ErrTaskNotFound) {
				apierrors.NotFound(c, "Task not found")
				return
			}
			apierrors.InternalError(c, "Failed to fetch task")
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask returns the task loaded by RequireTask
func GetTask(c *gin.Context) (*models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := value.(*models.Task)
	return task, ok
}

// ParseIDParam reads a positive integer path parameter
func ParseIDParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
