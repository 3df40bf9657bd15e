package dto

import (
	"time"

	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/utils"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID         uint64          `json:"id"`
	Username   string          `json:"username"`
	Role       models.UserRole `json:"role"`
	Reputation int             `json:"reputation"`
	IsActive   bool            `json:"isActive"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// AuthorDTO is the public view of a post or answer author
type AuthorDTO struct {
	ID         uint64 `json:"id"`
	Username   string `json:"username"`
	Reputation int    `json:"reputation"`
}

// UserListResponse represents a paginated list of users
type UserListResponse struct {
	Users      []UserDTO                `json:"users"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:         user.ID,
		Username:   user.Username,
		Role:       user.Role,
		Reputation: user.Reputation,
		IsActive:   user.IsActive,
		CreatedAt:  user.CreatedAt,
	}
}

func ToAuthorDTO(user models.User) AuthorDTO {
	return AuthorDTO{
		ID:         user.ID,
		Username:   user.Username,
		Reputation: user.Reputation,
	}
}

// ToUserListResponse converts one page of users
func ToUserListResponse(users []models.User, params utils.PaginationParams, total int64) UserListResponse {
	items := make([]UserDTO, len(users))
	for i, user := range users {
		items[i] = ToUserDTO(user)
	}

	return UserListResponse{
		Users: items,
		Pagination: params.Describe(total),
	}
}
