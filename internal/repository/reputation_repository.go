package repository

import (
	"github.com/astrasemi/assistant/internal/models"
	"gorm.io/gorm"
)

type GormReputationRepository struct {
	db *gorm.DB
}

func NewReputationRepository(db *gorm.DB) ReputationRepository {
	return &GormReputationRepository{db: db}
}

func (r *GormReputationRepository) Log(entry *models.ReputationLog) error {
	return r.db.Create(entry).Error
}

// ListByUser returns the most recent reputation changes for a user
func (r *GormReputationRepository) ListByUser(userID uint64, limit int) ([]models.ReputationLog, error) {
	var entries []models.ReputationLog
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
