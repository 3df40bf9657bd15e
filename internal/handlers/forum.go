package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/astrasemi/assistant/internal/dto"
	apierrors "github.com/astrasemi/assistant/internal/errors"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/middleware"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/repository"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/astrasemi/assistant/internal/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ForumHandler serves the community Q&A endpoints.
type ForumHandler struct {
	forumService *services.ForumService
}

func NewForumHandler(forumService *services.ForumService) *ForumHandler {
	return &ForumHandler{
		forumService: forumService,
	}
}

// ListPosts searches, filters, sorts and pages posts. Pinned posts come first.
func (h *ForumHandler) ListPosts(c *gin.Context) {
	params := utils.GetPaginationParams(c)
	filter := repository.PostFilter{
		Search: c.Query("search"),
		Sort:   repository.PostSort(strings.TrimSpace(c.Query("sort"))),
		Page:   params,
	}

	if raw := strings.TrimSpace(c.Query("category")); raw != "" {
		category := models.PostCategory(strings.ToUpper(raw))
		filter.Category = &category
	}
	if raw := strings.TrimSpace(c.Query("startDate")); raw != "" {
		start, err := parseDate(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid startDate")
			return
		}
		filter.StartDate = &start
	}
	if raw := strings.TrimSpace(c.Query("endDate")); raw != "" {
		end, err := parseDate(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid endDate")
			return
		}
		// a bare date covers the whole day
		if _, err := time.Parse(dateLayout, raw); err == nil {
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		filter.EndDate = &end
	}

	posts, total, err := h.forumService.ListPosts(filter)
	if err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPostListResponse(posts, params, total))
}

// CreatePost opens a new question
func (h *ForumHandler) CreatePost(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreatePostRequest struct {
		Title    string `json:"title"`
		Content  string `json:"content"`
		Category string `json:"category"`
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	post, err := h.forumService.CreatePost(userID, services.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPostWithStatsDTO(*post))
}

// GetPost returns a post with its answers and the caller's vote
func (h *ForumHandler) GetPost(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	postID, ok := middleware.ParseIDParam(c, "id")
	if !ok {
		apierrors.NotFound(c, "Post not found")
		return
	}

	detail, err := h.forumService.GetPostDetail(postID, userID)
	if err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPostDetailDTO(*detail))
}

// CreateAnswer answers an unlocked post
func (h *ForumHandler) CreateAnswer(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	postID, ok := middleware.ParseIDParam(c, "id")
	if !ok {
		apierrors.NotFound(c, "Post not found")
		return
	}

	type CreateAnswerRequest struct {
		Content string `json:"content"`
	}

	var req CreateAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	answer, err := h.forumService.CreateAnswer(userID, postID, req.Content)
	if err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToAnswerDTO(*answer, nil))
}

// DeleteAnswer soft deletes an answer. Authors and admins only.
func (h *ForumHandler) DeleteAnswer(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	postID, ok := middleware.ParseIDParam(c, "id")
	if !ok {
		apierrors.NotFound(c, "Post not found")
		return
	}
	answerID, ok := middleware.ParseIDParam(c, "answerId")
	if !ok {
		apierrors.NotFound(c, "Answer not found")
		return
	}

	if err := h.forumService.DeleteAnswer(user, postID, answerID); err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Answer deleted"})
}

// Vote casts, flips or retracts the caller's vote
func (h *ForumHandler) Vote(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	postID, ok := middleware.ParseIDParam(c, "id")
	if !ok {
		apierrors.NotFound(c, "Post not found")
		return
	}

	type VoteRequest struct {
		Value int `json:"value"`
	}

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Vote value must be 1 or -1")
		return
	}

	result, err := h.forumService.Vote(userID, postID, req.Value)
	if err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToVoteDTO(*result))
}

// AcceptAnswer sets or clears the accepted answer. {"answerId": null} un-accepts.
func (h *ForumHandler) AcceptAnswer(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	postID, ok := middleware.ParseIDParam(c, "id")
	if !ok {
		apierrors.NotFound(c, "Post not found")
		return
	}

	type AcceptRequest struct {
		AnswerID *uint64 `json:"answerId"`
	}

	var req AcceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid answer")
		return
	}

	detail, err := h.forumService.SetAcceptedAnswer(userID, postID, req.AnswerID)
	if err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPostDetailDTO(*detail))
}

// Contributors returns the reputation leaderboard
func (h *ForumHandler) Contributors(c *gin.Context) {
	users, err := h.forumService.TopContributors()
	if err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"contributors": dto.ToContributorDTOs(users)})
}

// ReputationHistory returns the caller's reputation and its recent changes
func (h *ForumHandler) ReputationHistory(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	user, entries, err := h.forumService.ReputationHistory(userID)
	if err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToReputationHistoryResponse(*user, entries))
}

// UpdatePost pins, unpins, locks or unlocks a post (admin)
func (h *ForumHandler) UpdatePost(c *gin.Context) {
	postID, ok := middleware.ParseIDParam(c, "id")
	if !ok {
		apierrors.NotFound(c, "Post not found")
		return
	}

	type UpdatePostRequest struct {
		IsPinned *bool `json:"isPinned"`
		IsLocked *bool `json:"isLocked"`
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ValidationFailed(c, err, "Invalid request body")
		return
	}

	post, err := h.forumService.UpdatePostFlags(postID, req.IsPinned, req.IsLocked)
	if err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":       post.ID,
		"isPinned": post.IsPinned,
		"isLocked": post.IsLocked,
	})
}

// DeletePost removes a post with its answers and votes (admin)
func (h *ForumHandler) DeletePost(c *gin.Context) {
	postID, ok := middleware.ParseIDParam(c, "id")
	if !ok {
		apierrors.NotFound(c, "Post not found")
		return
	}

	if err := h.forumService.DeletePost(postID); err != nil {
		respondForumError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func respondForumError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrPostNotFound):
		apierrors.NotFound(c, "Post not found")
	case errors.Is(err, services.ErrAnswerNotFound):
		apierrors.NotFound(c, "Answer not found")
	case errors.Is(err, services.ErrPostFieldsRequired):
		apierrors.BadRequest(c, "Title, content, and category are required")
	case errors.Is(err, services.ErrInvalidCategory):
		apierrors.BadRequest(c, "Invalid category")
	case errors.Is(err, services.ErrInvalidSort):
		apierrors.BadRequest(c, "Invalid sort")
	case errors.Is(err, services.ErrContentRequired):
		apierrors.BadRequest(c, "Content is required")
	case errors.Is(err, services.ErrPostLocked):
		apierrors.Forbidden(c, "Post is locked")
	case errors.Is(err, services.ErrInvalidVoteValue):
		apierrors.BadRequest(c, "Vote value must be 1 or -1")
	case errors.Is(err, services.ErrSelfVote):
		apierrors.BadRequest(c, "Cannot vote on your own post")
	case errors.Is(err, services.ErrVoteConflict):
		apierrors.Conflict(c, "Vote changed concurrently, please retry")
	case errors.Is(err, services.ErrNotPostAuthor):
		apierrors.Forbidden(c, "Only post author can accept answers")
	case errors.Is(err, services.ErrInvalidAnswer):
		apierrors.BadRequest(c, "Invalid answer")
	case errors.Is(err, services.ErrNotAnswerAuthor):
		apierrors.Forbidden(c, "Only the answer author or an admin can delete it")
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, "User not found")
	case errors.Is(err, services.ErrNoFieldsToUpdate):
		apierrors.BadRequest(c, "No valid fields to update")
	default:
		applog.Log.Error("Forum request failed", zap.Error(err))
		apierrors.InternalError(c, "Internal server error")
	}
}
