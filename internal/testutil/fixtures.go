package testutil

import (
	"testing"
	"time"

	"github.com/astrasemi/assistant/internal/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateUser inserts an active user whose password equals "password".
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// Deactivate flips IsActive to false. Create cannot do it because the
// column has a database default.
func Deactivate(t *testing.T, db *gorm.DB, user *models.User) {
	t.Helper()
	require.NoError(t, db.Model(user).Update("is_active", false).Error)
	user.IsActive = false
}

func CreateRole(t *testing.T, db *gorm.DB, name string) *models.Role {
	t.Helper()
	role := &models.Role{Name: name}
	require.NoError(t, db.Create(role).Error)
	return role
}

func CreateTask(t *testing.T, db *gorm.DB, roleID uint64, title string, priority models.TaskPriority, status models.TaskStatus, due *time.Time) *models.Task {
	t.Helper()
	task := &models.Task{
		RoleID:   roleID,
		Title:    title,
		Priority: priority,
		Status:   status,
		DueDate:  due,
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

func CreatePost(t *testing.T, db *gorm.DB, authorID uint64, title, content string) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:    title,
		Content:  content,
		Category: models.CategoryGeneral,
		AuthorID: authorID,
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func CreateAnswer(t *testing.T, db *gorm.DB, postID, authorID uint64, content string) *models.Answer {
	t.Helper()
	answer := &models.Answer{
		PostID:   postID,
		AuthorID: authorID,
		Content:  content,
	}
	require.NoError(t, db.Create(answer).Error)
	return answer
}

// Reputation reloads a user's reputation counter.
func Reputation(t *testing.T, db *gorm.DB, userID uint64) int {
	t.Helper()
	var user models.User
	require.NoError(t, db.Select("reputation").First(&user, userID).Error)
	return user.Reputation
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}
