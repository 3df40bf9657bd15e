package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/astrasemi/assistant/internal/constants"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/repository"
	"github.com/astrasemi/assistant/internal/session"
	"github.com/astrasemi/assistant/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrCredentialsRequired = errors.New("username and password are required")
	ErrInvalidCredentials  = errors.New("invalid username or password")
	ErrSessionInvalid      = errors.New("session is no longer valid")
	ErrUserNotFound        = errors.New("user not found")
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	codec       *session.Codec
	now         func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, sessionRepo repository.SessionRepository, codec *session.Codec) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		codec:       codec,
		now:         time.Now,
	}
}

// LoginResult is a successful login: the user and the signed cookie value.
type LoginResult struct {
	User      *models.User
	Token     string
	ExpiresAt time.Time
}

// Login verifies credentials, records a server-side session and returns the
// signed cookie value. Unknown users, inactive users and wrong passwords all
// yield ErrInvalidCredentials.
func (s *AuthService) Login(username, password string) (*LoginResult, error) {
	username = models.NormalizeUsername(username)
	if username == "" || password == "" {
		return nil, ErrCredentialsRequired
	}

	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Log.Info("Login rejected", zap.String("username", username), zap.String("reason", "unknown user"))
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !user.IsActive {
		applog.Log.Info("Login rejected", zap.String("username", username), zap.String("reason", "inactive"))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		applog.Log.Info("Login rejected", zap.String("username", username), zap.String("reason", "password mismatch"))
		return nil, ErrInvalidCredentials
	}

	sid, err := utils.GenerateToken(constants.SessionTokenBytes)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.codec.TTL())
	if err := s.sessionRepo.Create(&models.UserSession{
		UserID:    user.ID,
		Token:     sid,
		ExpiresAt: expiresAt,
	}); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.codec.Encode(session.Payload{
		Username:  user.Username,
		Role:      user.Role.SessionRole(),
		SessionID: sid,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout deletes every server-side session of the cookie's user.
func (s *AuthService) Logout(payload *session.Payload) error {
	if payload == nil {
		return nil
	}

	user, err := s.userRepo.FindByUsername(payload.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	removed, err := s.sessionRepo.DeleteByUserID(user.ID)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	applog.Log.Info("User logged out", zap.Uint64("user_id", user.ID), zap.Int64("sessions_removed", removed))
	return nil
}

// Authenticate is the authoritative session check: the user must still exist
// and be active, and the session record named in the cookie must exist,
// belong to that user and not be expired.
func (s *AuthService) Authenticate(payload *session.Payload) (*models.User, error) {
	if payload == nil || payload.Username == "" || payload.SessionID == "" {
		return nil, ErrSessionInvalid
	}

	user, err := s.userRepo.FindByUsername(payload.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrSessionInvalid
	}

	record, err := s.sessionRepo.FindByToken(payload.SessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionInvalid
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if record.UserID != user.ID || record.Expired(s.now()) {
		return nil, ErrSessionInvalid
	}

	return user, nil
}

// PurgeExpiredSessions removes expired session records.
func (s *AuthService) PurgeExpiredSessions() (int64, error) {
	removed, err := s.sessionRepo.DeleteExpired(s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return removed, nil
}

