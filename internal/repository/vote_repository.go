package repository

import (
	"github.com/astrasemi/assistant/internal/models"
	"gorm.io/gorm"
)

type GormVoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &GormVoteRepository{db: db}
}

// Find returns the user's vote on a post, or gorm.ErrRecordNotFound
func (r *GormVoteRepository) Find(postID, userID uint64) (*models.Vote, error) {
	var vote models.Vote
	if err := r.db.Where("post_id = ? AND user_id = ?", postID, userID).First(&vote).Error; err != nil {
		return nil, err
	}
	return &vote, nil
}

// Create inserts a vote. A concurrent duplicate fails on idx_votes_post_user.
func (r *GormVoteRepository) Create(vote *models.Vote) error {
	return r.db.Create(vote).Error
}

// UpdateValue moves a vote from one value to another. It reports false when
// the row no longer holds from, i.e. a concurrent request changed it first.
func (r *GormVoteRepository) UpdateValue(id uint64, from, to int) (bool, error) {
	result := r.db.Model(&models.Vote{}).Where("id = ? AND value = ?", id, from).Update("value", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Delete removes a vote still holding value and reports whether it did
func (r *GormVoteRepository) Delete(id uint64, value int) (bool, error) {
	result := r.db.Where("value = ?", value).Delete(&models.Vote{}, id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
