package repository

import (
	"time"

	"github.com/astrasemi/assistant/internal/models"
	"gorm.io/gorm"
)

type GormSessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) SessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(session *models.UserSession) error {
	return r.db.Create(session).Error
}

// FindByToken loads a session record together with its user
func (r *GormSessionRepository) FindByToken(token string) (*models.UserSession, error) {
	var session models.UserSession
	if err := r.db.Preload("User").Where("token = ?", token).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteByUserID revokes every session belonging to a user
func (r *GormSessionRepository) DeleteByUserID(userID uint64) (int64, error) {
	result := r.db.Where("user_id = ?", userID).Delete(&models.UserSession{})
	return result.RowsAffected, result.Error
}

func (r *GormSessionRepository) DeleteExpired(now time.Time) (int64, error) {
	result := r.db.Where("expires_at <= ?", now).Delete(&models.UserSession{})
	return result.RowsAffected, result.Error
}
