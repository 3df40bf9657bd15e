package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/astrasemi/assistant/internal/constants"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/repository"
	"github.com/astrasemi/assistant/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrUsernameTaken        = errors.New("username already exists")
	ErrUsernameTooLong      = errors.New("username too long")
	ErrInvalidRole          = errors.New("invalid role")
	ErrNoFieldsToUpdate     = errors.New("no valid fields to update")
	ErrCannotModifySelf     = errors.New("admins cannot deactivate or demote themselves")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// UserService implements admin user management.
type UserService struct {
	db       *gorm.DB
	userRepo repository.UserRepository
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{
		db:       db,
		userRepo: repository.NewUserRepository(db),
	}
}

// CreateUserInput represents input for creating a user
type CreateUserInput struct {
	Username string
	Password string
	Role     string
}

// UpdateUserInput is a partial update; nil fields are left unchanged
type UpdateUserInput struct {
	IsActive *bool
	Role     *string
}

func (s *UserService) ListUsers(params utils.PaginationParams) ([]models.User, int64, error) {
	users, total, err := s.userRepo.List(params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// CreateUser creates an active account. Role defaults to USER.
func (s *UserService) CreateUser(input CreateUserInput) (*models.User, error) {
	username := models.NormalizeUsername(input.Username)
	if username == "" || input.Password == "" {
		return nil, ErrCredentialsRequired
	}
	if utf8.RuneCountInString(username) > constants.MaxUsernameLength {
		return nil, ErrUsernameTooLong
	}

	role := models.UserRoleUser
	if strings.TrimSpace(input.Role) != "" {
		parsed, ok := models.ParseUserRole(input.Role)
		if !ok {
			return nil, ErrInvalidRole
		}
		role = parsed
	}

	if _, err := s.userRepo.FindByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashedPassword),
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	applog.Log.Info("User created",
		zap.Uint64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

// UpdateUser changes the active flag and/or role. Deactivation revokes all
// sessions of the target in the same transaction.
func (s *UserService) UpdateUser(actorID, userID uint64, input UpdateUserInput) (*models.User, error) {
	fields := map[string]interface{}{}

	if input.IsActive != nil {
		if !*input.IsActive && actorID == userID {
			return nil, ErrCannotModifySelf
		}
		fields["is_active"] = *input.IsActive
	}
	if input.Role != nil {
		role, ok := models.ParseUserRole(*input.Role)
		if !ok {
			return nil, ErrInvalidRole
		}
		if role != models.UserRoleAdmin && actorID == userID {
			return nil, ErrCannotModifySelf
		}
		fields["role"] = role
	}
	if len(fields) == 0 {
		return nil, ErrNoFieldsToUpdate
	}

	var updated *models.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		userRepo := repository.NewUserRepository(tx)
		if _, err := userRepo.FindByID(userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		if err := userRepo.UpdateFields(userID, fields); err != nil {
			return err
		}

		if input.IsActive != nil && !*input.IsActive {
			removed, err := repository.NewSessionRepository(tx).DeleteByUserID(userID)
			if err != nil {
				return err
			}
			applog.Log.Info("User deactivated", zap.Uint64("user_id", userID), zap.Int64("sessions_removed", removed))
		}

		user, err := userRepo.FindByID(userID)
		if err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return updated, nil
}
