package repository

import (
	"time"

	"github.com/astrasemi/assistant/internal/models"
	"gorm.io/gorm"
)

type GormTicketRepository struct {
	db *gorm.DB
}

func NewTicketRepository(db *gorm.DB) TicketRepository {
	return &GormTicketRepository{db: db}
}

func (r *GormTicketRepository) Create(ticket *models.ResetTicket) error {
	return r.db.Create(ticket).Error
}

// List returns every ticket, newest first
func (r *GormTicketRepository) List() ([]models.ResetTicket, error) {
	var tickets []models.ResetTicket
	err := r.db.Order("created_at DESC, id DESC").Find(&tickets).Error
	return tickets, err
}

func (r *GormTicketRepository) FindByPublicID(publicID string) (*models.ResetTicket, error) {
	var ticket models.ResetTicket
	if err := r.db.Where("public_id = ?", publicID).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

// Resolve performs a compare-and-set on the ticket status so that a ticket
// leaves the pending state at most once.
func (r *GormTicketRepository) Resolve(publicID string, status models.TicketStatus, message string, at time.Time) (bool, error) {
	result := r.db.Model(&models.ResetTicket{}).
		Where("public_id = ? AND status = ?", publicID, models.TicketPending).
		Updates(map[string]interface{}{
			"status":      status,
			"message":     message,
			"resolved_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ClearResolved removes resolved and denied tickets and reports how many
// pending tickets remain.
func (r *GormTicketRepository) ClearResolved() (int64, int64, error) {
	var removed, remaining int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("status <> ?", models.TicketPending).Delete(&models.ResetTicket{})
		if result.Error != nil {
			return result.Error
		}
		removed = result.RowsAffected

		return tx.Model(&models.ResetTicket{}).Where("status = ?", models.TicketPending).Count(&remaining).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return removed, remaining, nil
}
