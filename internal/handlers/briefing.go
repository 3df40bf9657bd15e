package handlers

import (
	"errors"
	"net/http"

	"github.com/astrasemi/assistant/internal/dto"
	apierrors "github.com/astrasemi/assistant/internal/errors"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type BriefingHandler struct {
	briefingService *services.BriefingService
}

func NewBriefingHandler(briefingService *services.BriefingService) *BriefingHandler {
	return &BriefingHandler{
		briefingService: briefingService,
	}
}

// Generate builds and records today's briefing for a role
func (h *BriefingHandler) Generate(c *gin.Context) {
	type GenerateRequest struct {
		RoleID uint64 `json:"roleId"`
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}
	if req.RoleID == 0 {
		apierrors.BadRequest(c, "roleId is required")
		return
	}

	result, err := h.briefingService.Generate(c.Request.Context(), req.RoleID)
	if err != nil {
		respondBriefingError(c, err, "Failed to generate briefing")
		return
	}

	c.JSON(http.StatusOK, dto.ToBriefingDTO(*result))
}

// History returns the most recent briefings of a role, newest first
func (h *BriefingHandler) History(c *gin.Context) {
	roleID, ok := queryUint(c.Query("roleId"))
	if !ok {
		apierrors.BadRequest(c, "roleId is required")
		return
	}

	history, err := h.briefingService.History(roleID)
	if err != nil {
		respondBriefingError(c, err, "Failed to fetch briefing history")
		return
	}

	c.JSON(http.StatusOK, gin.H{"briefings": dto.ToBriefingDTOs(history)})
}

func respondBriefingError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrRoleNotFound):
		apierrors.NotFound(c, "Role not found")
	default:
		applog.Log.Error(fallback, zap.Error(err))
		apierrors.InternalError(c, fallback)
	}
}
