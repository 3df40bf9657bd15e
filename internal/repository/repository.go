package repository

import (
	"time"

	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by its normalized username
	FindByUsername(username string) (*models.User, error)

	// List returns users newest first
	List(params utils.PaginationParams) ([]models.User, int64, error)

	// UpdateFields applies a partial update
	UpdateFields(id uint64, fields map[string]interface{}) error

	// AdjustReputation adds delta to the user's reputation in a single UPDATE
	AdjustReputation(id uint64, delta int) error

	// TopContributors returns active users ordered by reputation
	TopContributors(limit int) ([]models.User, error)
}

// SessionRepository stores server-side session records
type SessionRepository interface {
	Create(session *models.UserSession) error
	FindByToken(token string) (*models.UserSession, error)
	DeleteByUserID(userID uint64) (int64, error)
	DeleteExpired(now time.Time) (int64, error)
}

// RoleRepository reads organizational roles
type RoleRepository interface {
	List() ([]models.Role, error)
	FindByID(id uint64) (*models.Role, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID
	FindByID(id uint64) (*models.Task, error)

	// List retrieves a role's tasks, most urgent first
	List(filter TaskFilter) ([]models.Task, error)

	// UpdateFields applies a partial update
	UpdateFields(id uint64, fields map[string]interface{}) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	RoleID   uint64
	Status   *models.TaskStatus
	Priority *models.TaskPriority
}

// PostSort is the secondary ordering applied after the pinned partition.
type PostSort string

const (
	SortNewest        PostSort = "newest"
	SortTop           PostSort = "top"
	SortMostCommented PostSort = "most-commented"
)

func (s PostSort) Valid() bool {
	return s == SortNewest || s == SortTop || s == SortMostCommented
}

// PostFilter holds filtering options for listing posts. All filters combine with AND.
type PostFilter struct {
	Search    string
	Category  *models.PostCategory
	StartDate *time.Time
	EndDate   *time.Time
	Sort      PostSort
	Page      utils.PaginationParams
}

// PostRepository defines the interface for posts and their answers
type PostRepository interface {
	Create(post *models.Post) error
	FindByID(id uint64, preload ...string) (*models.Post, error)
	List(filter PostFilter) ([]models.PostWithStats, int64, error)
	UpdateFields(id uint64, fields map[string]interface{}) error
	Delete(id uint64) error

	// VoteScore returns SUM(value) over the post's votes
	VoteScore(postID uint64) (int64, error)

	CreateAnswer(answer *models.Answer) error
	FindAnswer(id uint64) (*models.Answer, error)
	ListAnswers(postID uint64) ([]models.Answer, error)
	SoftDeleteAnswer(id uint64) error
}

// VoteRepository stores one vote per (post, user)
type VoteRepository interface {
	Find(postID, userID uint64) (*models.Vote, error)
	Create(vote *models.Vote) error
	UpdateValue(id uint64, from, to int) (bool, error)
	Delete(id uint64, value int) (bool, error)
}

// ReputationRepository records reputation audit entries
type ReputationRepository interface {
	Log(entry *models.ReputationLog) error
	ListByUser(userID uint64, limit int) ([]models.ReputationLog, error)
}

// TicketRepository stores password-reset tickets
type TicketRepository interface {
	Create(ticket *models.ResetTicket) error
	List() ([]models.ResetTicket, error)
	FindByPublicID(publicID string) (*models.ResetTicket, error)

	// Resolve moves a pending ticket to status. It reports false when the
	// ticket is missing or no longer pending.
	Resolve(publicID string, status models.TicketStatus, message string, at time.Time) (bool, error)

	// ClearResolved deletes every non-pending ticket
	ClearResolved() (removed int64, remaining int64, err error)
}

// BriefingRepository stores the append-only briefing log
type BriefingRepository interface {
	Create(log *models.BriefingLog) error
	ListRecent(roleID uint64, limit int) ([]models.BriefingLog, error)
}
