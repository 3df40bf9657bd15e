package dto

import (
	"time"

	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/services"
	"github.com/astrasemi/assistant/internal/utils"
)

// PostDTO represents a forum post in API responses
type PostDTO struct {
	ID               uint64              `json:"id"`
	Title            string              `json:"title"`
	Content          string              `json:"content"`
	ContentHTML      string              `json:"contentHtml"`
	Category         models.PostCategory `json:"category"`
	Author           AuthorDTO           `json:"author"`
	IsPinned         bool                `json:"isPinned"`
	IsLocked         bool                `json:"isLocked"`
	AcceptedAnswerID *uint64             `json:"acceptedAnswerId"`
	VoteScore        int64               `json:"voteScore"`
	AnswerCount      int64               `json:"answerCount"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`
}

// AnswerDTO represents an answer in API responses
type AnswerDTO struct {
	ID          uint64    `json:"id"`
	PostID      uint64    `json:"postId"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"contentHtml"`
	Author      AuthorDTO `json:"author"`
	IsAccepted  bool      `json:"isAccepted"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PostDetailDTO is a post with the viewer's vote and its answers
type PostDetailDTO struct {
	PostDTO
	UserVote *int        `json:"userVote"`
	Answers  []AnswerDTO `json:"answers"`
}

// PostListResponse represents a paginated list of posts
type PostListResponse struct {
	Posts      []PostDTO                `json:"posts"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

type VoteDTO struct {
	VoteScore int64 `json:"voteScore"`
	UserVote  *int  `json:"userVote"`
}

// ToPostDTO converts a post and its aggregates
func ToPostDTO(post models.Post, voteScore, answerCount int64) PostDTO {
	return PostDTO{
		ID:               post.ID,
		Title:            post.Title,
		Content:          post.Content,
		ContentHTML:      utils.RenderMarkdown(post.Content),
		Category:         post.Category,
		Author:           ToAuthorDTO(post.Author),
		IsPinned:         post.IsPinned,
		IsLocked:         post.IsLocked,
		AcceptedAnswerID: post.AcceptedAnswerID,
		VoteScore:        voteScore,
		AnswerCount:      answerCount,
		CreatedAt:        post.CreatedAt,
		UpdatedAt:        post.UpdatedAt,
	}
}

func ToPostWithStatsDTO(post models.PostWithStats) PostDTO {
	return ToPostDTO(post.Post, post.VoteScore, post.AnswerCount)
}

// ToAnswerDTO converts an answer. acceptedID is the post's accepted answer, if any.
func ToAnswerDTO(answer models.Answer, acceptedID *uint64) AnswerDTO {
	return AnswerDTO{
		ID:          answer.ID,
		PostID:      answer.PostID,
		Content:     answer.Content,
		ContentHTML: utils.RenderMarkdown(answer.Content),
		Author:      ToAuthorDTO(answer.Author),
		IsAccepted:  acceptedID != nil && *acceptedID == answer.ID,
		CreatedAt:   answer.CreatedAt,
	}
}

func ToPostDetailDTO(detail services.PostDetail) PostDetailDTO {
	answers := make([]AnswerDTO, len(detail.Answers))
	for i, answer := range detail.Answers {
		answers[i] = ToAnswerDTO(answer, detail.Post.AcceptedAnswerID)
	}

	return PostDetailDTO{
		PostDTO:  ToPostDTO(detail.Post, detail.VoteScore, detail.AnswerCount),
		UserVote: detail.UserVote,
		Answers:  answers,
	}
}

// ToPostListResponse converts one page of posts
func ToPostListResponse(posts []models.PostWithStats, params utils.PaginationParams, total int64) PostListResponse {
	items := make([]PostDTO, len(posts))
	for i, post := range posts {
		items[i] = ToPostWithStatsDTO(post)
	}

	return PostListResponse{
		Posts: items,
		Pagination: params.Describe(total),
	}
}

func ToVoteDTO(result services.VoteResult) VoteDTO {
	return VoteDTO{VoteScore: result.VoteScore, UserVote: result.UserVote}
}

func ToContributorDTOs(users []models.User) []AuthorDTO {
	items := make([]AuthorDTO, len(users))
	for i, user := range users {
		items[i] = ToAuthorDTO(user)
	}
	return items
}

// ReputationEntryDTO is one reputation change
type ReputationEntryDTO struct {
	Delta     int                     `json:"delta"`
	Reason    models.ReputationReason `json:"reason"`
	PostID    uint64                  `json:"postId"`
	CreatedAt time.Time               `json:"createdAt"`
}

type ReputationHistoryResponse struct {
	Reputation int                  `json:"reputation"`
	History    []ReputationEntryDTO `json:"history"`
}

func ToReputationHistoryResponse(user models.User, entries []models.ReputationLog) ReputationHistoryResponse {
	history := make([]ReputationEntryDTO, len(entries))
	for i, entry := range entries {
		history[i] = ReputationEntryDTO{
			Delta:     entry.Delta,
			Reason:    entry.Reason,
			PostID:    entry.PostID,
			CreatedAt: entry.CreatedAt,
		}
	}
	return ReputationHistoryResponse{Reputation: user.Reputation, History: history}
}
