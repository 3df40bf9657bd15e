package repository

import (
	"github.com/astrasemi/assistant/internal/models"
	"gorm.io/gorm"
)

type GormBriefingRepository struct {
	db *gorm.DB
}

func NewBriefingRepository(db *gorm.DB) BriefingRepository {
	return &GormBriefingRepository{db: db}
}

func (r *GormBriefingRepository) Create(log *models.BriefingLog) error {
	return r.db.Create(log).Error
}

// ListRecent returns the latest briefings for a role, newest first
func (r *GormBriefingRepository) ListRecent(roleID uint64, limit int) ([]models.BriefingLog, error) {
	var logs []models.BriefingLog
	err := r.db.Where("role_id = ?", roleID).
		Order("generated_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
