package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/astrasemi/assistant/internal/constants"
	"github.com/astrasemi/assistant/internal/dto"
	apierrors "github.com/astrasemi/assistant/internal/errors"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PasswordHandler serves password-reset requests and their admin review.
type PasswordHandler struct {
	resetService *services.ResetService
}

func NewPasswordHandler(resetService *services.ResetService) *PasswordHandler {
	return &PasswordHandler{
		resetService: resetService,
	}
}

// RequestReset files a reset request. The response never reveals whether
// the account exists.
func (h *PasswordHandler) RequestReset(c *gin.Context) {
	type ResetRequest struct {
		Username string `json:"username"`
		Hint     string `json:"hint"`
	}

	var req ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	message, err := h.resetService.RequestReset(c.Request.Context(), req.Username, req.Hint)
	if err != nil {
		respondPasswordError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": message})
}

// ListRequests returns every ticket, newest first (admin)
func (h *PasswordHandler) ListRequests(c *gin.Context) {
	tickets, err := h.resetService.List()
	if err != nil {
		respondPasswordError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"requests": dto.ToTicketDTOs(tickets)})
}

// Approve sets the new password chosen by the admin and resolves the ticket
func (h *PasswordHandler) Approve(c *gin.Context) {
	type ApproveRequest struct {
		ID       string `json:"id"`
		Password string `json:"password"`
	}

	var req ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	result, err := h.resetService.Approve(c.Request.Context(), req.ID, req.Password)
	if err != nil {
		respondPasswordError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       result.ID,
		"username": result.Username,
		"password": result.Password,
		"status":   result.Status,
	})
}

// Deny closes a pending ticket without changing the password
func (h *PasswordHandler) Deny(c *gin.Context) {
	type DenyRequest struct {
		ID string `json:"id"`
	}

	var req DenyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	ticket, err := h.resetService.Deny(c.Request.Context(), req.ID)
	if err != nil {
		respondPasswordError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     ticket.PublicID,
		"status": ticket.Status,
	})
}

// Clear deletes resolved and denied tickets
func (h *PasswordHandler) Clear(c *gin.Context) {
	removed, remaining, err := h.resetService.Clear()
	if err != nil {
		respondPasswordError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"removed":   removed,
		"remaining": remaining,
	})
}

func respondPasswordError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrUsernameRequired):
		apierrors.BadRequest(c, "Username is required")
	case errors.Is(err, services.ErrHintTooLong):
		apierrors.BadRequest(c, fmt.Sprintf("Hint is too long. Maximum %d characters.", constants.MaxResetHintLength))
	case errors.Is(err, services.ErrTicketIDRequired):
		apierrors.BadRequest(c, "Ticket id is required")
	case errors.Is(err, services.ErrNewPasswordRequired):
		apierrors.BadRequest(c, "New password is required")
	case errors.Is(err, services.ErrTicketNotFound):
		apierrors.NotFound(c, "Ticket not found or already resolved")
	case errors.Is(err, services.ErrTicketUserGone):
		apierrors.BadRequest(c, "User no longer exists")
	default:
		applog.Log.Error("Password reset request failed", zap.Error(err))
		apierrors.InternalError(c, "Internal server error")
	}
}
