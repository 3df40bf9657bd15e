package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/astrasemi/assistant/internal/constants"
	applog "github.com/astrasemi/assistant/internal/logger"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/notify"
	"github.com/astrasemi/assistant/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ResetRequestedMessage is returned for every reset request so that callers
// cannot tell whether the account exists.
const ResetRequestedMessage = "If this account exists, a reset request has been sent to admin."

const (
	ticketMessageApproved = "Password set manually by admin"
	ticketMessageDenied   = "Denied by admin"
	ticketMessageUserGone = "User no longer exists"
)

var (
	ErrUsernameRequired    = errors.New("username is required")
	ErrHintTooLong         = errors.New("hint is too long")
	ErrTicketIDRequired    = errors.New("ticket id is required")
	ErrNewPasswordRequired = errors.New("new password is required")
	ErrTicketNotFound      = errors.New("ticket not found or already resolved")
	ErrTicketUserGone      = errors.New("user no longer exists")
)

// ResetService manages password-reset tickets.
type ResetService struct {
	db         *gorm.DB
	ticketRepo repository.TicketRepository
	users      repository.UserRepository
	publisher  notify.Publisher
	now        func() time.Time
}

func NewResetService(db *gorm.DB, publisher notify.Publisher) *ResetService {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &ResetService{
		db:         db,
		ticketRepo: repository.NewTicketRepository(db),
		users:      repository.NewUserRepository(db),
		publisher:  publisher,
		now:        time.Now,
	}
}

// ApproveResult echoes the new password to the approving admin. It is not stored.
type ApproveResult struct {
	ID       string
	Username string
	Password string
	Status   models.TicketStatus
}

// RequestReset opens a pending ticket when the username exists. The caller
// receives the same message either way.
func (s *ResetService) RequestReset(ctx context.Context, username, hint string) (string, error) {
	username = models.NormalizeUsername(username)
	hint = strings.TrimSpace(hint)
	if username == "" {
		return "", ErrUsernameRequired
	}
	if utf8.RuneCountInString(hint) > constants.MaxResetHintLength {
		return "", ErrHintTooLong
	}

	if _, err := s.users.FindByUsername(username); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			applog.Log.Info("Reset requested for unknown user", zap.String("username", username))
			return ResetRequestedMessage, nil
		}
		return "", fmt.Errorf("failed to find user: %w", err)
	}

	ticket := &models.ResetTicket{
		PublicID: uuid.NewString(),
		Username: username,
		Hint:     hint,
		Status:   models.TicketPending,
	}
	if err := s.ticketRepo.Create(ticket); err != nil {
		return "", fmt.Errorf("failed to create ticket: %w", err)
	}

	applog.Log.Info("Reset ticket created", zap.String("ticket_id", ticket.PublicID), zap.String("username", username))
	s.publish(ctx, notify.EventResetRequested, map[string]string{
		"ticketId": ticket.PublicID,
		"username": username,
		"hint":     hint,
	})

	return ResetRequestedMessage, nil
}

// List returns every ticket, newest first
func (s *ResetService) List() ([]models.ResetTicket, error) {
	tickets, err := s.ticketRepo.List()
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// Approve sets the user's password, revokes their sessions and resolves the
// ticket. A ticket whose user has disappeared is denied instead and
// ErrTicketUserGone is returned.
func (s *ResetService) Approve(ctx context.Context, publicID, password string) (*ApproveResult, error) {
	if strings.TrimSpace(publicID) == "" {
		return nil, ErrTicketIDRequired
	}
	if password == "" {
		return nil, ErrNewPasswordRequired
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	var ticket *models.ResetTicket
	userGone := false

	err = s.db.Transaction(func(tx *gorm.DB) error {
		tickets := repository.NewTicketRepository(tx)

		found, err := tickets.FindByPublicID(publicID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTicketNotFound
			}
			return err
		}
		if found.Status != models.TicketPending {
			return ErrTicketNotFound
		}
		ticket = found

		user, err := repository.NewUserRepository(tx).FindByUsername(found.Username)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			userGone = true
			return s.resolve(tickets, publicID, models.TicketDenied, ticketMessageUserGone)
		}

		if err := repository.NewUserRepository(tx).UpdateFields(user.ID, map[string]interface{}{
			"password_hash": string(hashedPassword),
		}); err != nil {
			return err
		}
		if _, err := repository.NewSessionRepository(tx).DeleteByUserID(user.ID); err != nil {
			return err
		}
		return s.resolve(tickets, publicID, models.TicketResolved, ticketMessageApproved)
	})
	if err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to approve ticket: %w", err)
	}

	if userGone {
		applog.Log.Warn("Reset ticket denied, user missing", zap.String("ticket_id", publicID), zap.String("username", ticket.Username))
		s.publishResolved(ctx, ticket, models.TicketDenied, ticketMessageUserGone)
		return nil, ErrTicketUserGone
	}

	applog.Log.Info("Reset ticket approved", zap.String("ticket_id", publicID), zap.String("username", ticket.Username))
	s.publishResolved(ctx, ticket, models.TicketResolved, ticketMessageApproved)

	return &ApproveResult{
		ID:       ticket.PublicID,
		Username: ticket.Username,
		Password: password,
		Status:   models.TicketResolved,
	}, nil
}

// Deny moves a pending ticket to denied
func (s *ResetService) Deny(ctx context.Context, publicID string) (*models.ResetTicket, error) {
	if strings.TrimSpace(publicID) == "" {
		return nil, ErrTicketIDRequired
	}

	if err := s.resolve(s.ticketRepo, publicID, models.TicketDenied, ticketMessageDenied); err != nil {
		if errors.Is(err, ErrTicketNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to deny ticket: %w", err)
	}

	ticket, err := s.ticketRepo.FindByPublicID(publicID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ticket: %w", err)
	}

	applog.Log.Info("Reset ticket denied", zap.String("ticket_id", publicID))
	s.publishResolved(ctx, ticket, models.TicketDenied, ticketMessageDenied)
	return ticket, nil
}

// Clear deletes every resolved and denied ticket
func (s *ResetService) Clear() (removed int64, remaining int64, err error) {
	removed, remaining, err = s.ticketRepo.ClearResolved()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to clear tickets: %w", err)
	}

	applog.Log.Info("Reset tickets cleared", zap.Int64("removed", removed), zap.Int64("remaining", remaining))
	return removed, remaining, nil
}

func (s *ResetService) resolve(tickets repository.TicketRepository, publicID string, status models.TicketStatus, message string) error {
	ok, err := tickets.Resolve(publicID, status, message, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrTicketNotFound
	}
	return nil
}

func (s *ResetService) publishResolved(ctx context.Context, ticket *models.ResetTicket, status models.TicketStatus, message string) {
	s.publish(ctx, notify.EventResetResolved, map[string]string{
		"ticketId": ticket.PublicID,
		"username": ticket.Username,
		"status":   string(status),
		"message":  message,
	})
}

// publish is best-effort: a broker failure never fails the request.
func (s *ResetService) publish(ctx context.Context, eventType string, data map[string]string) {
	if err := s.publisher.Publish(ctx, notify.Event{Type: eventType, Data: data}); err != nil {
		applog.Log.Warn("Failed to publish notification",
			zap.String("event", eventType),
			zap.String("ticket_id", data["ticketId"]),
			zap.Error(err),
		)
	}
}
