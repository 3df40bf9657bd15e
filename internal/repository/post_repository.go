package repository

import (
	"github.com/astrasemi/assistant/internal/models"
	"gorm.io/gorm"
)

const (
	voteScoreExpr   = "COALESCE((SELECT SUM(votes.value) FROM votes WHERE votes.post_id = posts.id), 0)"
	answerCountExpr = "(SELECT COUNT(*) FROM answers WHERE answers.post_id = posts.id AND answers.is_deleted = ?)"
)

// GormPostRepository is a GORM implementation of PostRepository
type GormPostRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new PostRepository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &GormPostRepository{db: db}
}

func (r *GormPostRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

// FindByID finds a post by ID with optional preloading
func (r *GormPostRepository) FindByID(id uint64, preload ...string) (*models.Post, error) {
	var post models.Post
	query := r.db

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

type postStatsRow struct {
	ID          uint64
	VoteScore   int64
	AnswerCount int64
}

// List returns one page of posts with live vote and answer aggregates.
// Pinned posts always come first; within each partition the requested sort
// applies, ties broken by recency.
func (r *GormPostRepository) List(filter PostFilter) ([]models.PostWithStats, int64, error) {
	query := r.db.Model(&models.Post{})

	query = query.Scopes(
		containsFold(filter.Search, "posts.title", "posts.content"),
		createdBetween("posts.created_at", filter.StartDate, filter.EndDate),
	)
	if filter.Category != nil {
		query = query.Where("posts.category = ?", *filter.Category)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.
		Select("posts.id, "+voteScoreExpr+" AS vote_score, "+answerCountExpr+" AS answer_count", false).
		Order("posts.is_pinned DESC")

	switch filter.Sort {
	case SortTop:
		listQuery = listQuery.Order("vote_score DESC")
	case SortMostCommented:
		listQuery = listQuery.Order("answer_count DESC")
	}
	listQuery = listQuery.Order("posts.created_at DESC").Order("posts.id DESC").
		Scopes(paginate(filter.Page))

	var rows []postStatsRow
	if err := listQuery.Scan(&rows).Error; err != nil {
		return nil, 0, err
	}
	if len(rows) == 0 {
		return []models.PostWithStats{}, total, nil
	}

	ids := make([]uint64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}

	var posts []models.Post
	if err := r.db.Preload("Author").Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, 0, err
	}

	byID := make(map[uint64]models.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	result := make([]models.PostWithStats, 0, len(rows))
	for _, row := range rows {
		post, ok := byID[row.ID]
		if !ok {
			continue
		}
		result = append(result, models.PostWithStats{
			Post:        post,
			VoteScore:   row.VoteScore,
			AnswerCount: row.AnswerCount,
		})
	}

	return result, total, nil
}

// UpdateFields applies a partial update to a post
func (r *GormPostRepository) UpdateFields(id uint64, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	return r.db.Model(&models.Post{}).Where("id = ?", id).Updates(fields).Error
}

// Delete hard deletes a post together with its votes and answers.
// Reputation already granted through the post is kept.
func (r *GormPostRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Post{}).Where("id = ?", id).Update("accepted_answer_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Answer{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Post{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// VoteScore sums the values of all votes on a post
func (r *GormPostRepository) VoteScore(postID uint64) (int64, error) {
	var score int64
	err := r.db.Model(&models.Vote{}).
		Select("COALESCE(SUM(value), 0)").
		Where("post_id = ?", postID).
		Scan(&score).Error
	return score, err
}

func (r *GormPostRepository) CreateAnswer(answer *models.Answer) error {
	return r.db.Create(answer).Error
}

// FindAnswer finds an answer by ID, including soft-deleted ones
func (r *GormPostRepository) FindAnswer(id uint64) (*models.Answer, error) {
	var answer models.Answer
	if err := r.db.First(&answer, id).Error; err != nil {
		return nil, err
	}
	return &answer, nil
}

// ListAnswers returns the visible answers of a post, oldest first
func (r *GormPostRepository) ListAnswers(postID uint64) ([]models.Answer, error) {
	var answers []models.Answer
	err := r.db.Preload("Author").
		Scopes(visibleAnswers(postID)).
		Order("created_at ASC, id ASC").
		Find(&answers).Error
	return answers, err
}

func (r *GormPostRepository) SoftDeleteAnswer(id uint64) error {
	return r.db.Model(&models.Answer{}).Where("id = ?", id).Update("is_deleted", true).Error
}
