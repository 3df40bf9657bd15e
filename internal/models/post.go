package models

import "time"

type PostCategory string

const (
	CategoryOnboarding PostCategory = "ONBOARDING"
	CategoryEquipment  PostCategory = "EQUIPMENT"
	CategoryProcess    PostCategory = "PROCESS"
	CategoryQuality    PostCategory = "QUALITY"
	CategoryLogistics  PostCategory = "LOGISTICS"
	CategorySafety     PostCategory = "SAFETY"
	CategoryGeneral    PostCategory = "GENERAL"
)

func (c PostCategory) Valid() bool {
	switch c {
	case CategoryOnboarding, CategoryEquipment, CategoryProcess, CategoryQuality,
		CategoryLogistics, CategorySafety, CategoryGeneral:
		return true
	}
	return false
}

type Post struct {
	ID               uint64       `gorm:"primarykey" json:"id"`
	Title            string       `gorm:"type:varchar(255);not null" json:"title"`
	Content          string       `gorm:"type:text;not null" json:"content"`
	Category         PostCategory `gorm:"type:varchar(20);not null;default:'GENERAL';index" json:"category"`
	AuthorID         uint64       `gorm:"not null;index" json:"author_id"`
	IsPinned         bool         `gorm:"not null;default:false" json:"is_pinned"`
	IsLocked         bool         `gorm:"not null;default:false" json:"is_locked"`
	AcceptedAnswerID *uint64      `json:"accepted_answer_id"`
	CreatedAt        time.Time    `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`

	// Relations
	Author  User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Answers []Answer `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"answers,omitempty"`
	Votes   []Vote   `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// PostWithStats is a post row with the live aggregates computed by the listing query.
type PostWithStats struct {
	Post
	VoteScore   int64 `json:"vote_score"`
	AnswerCount int64 `json:"answer_count"`
}
