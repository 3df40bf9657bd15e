package models

import "time"

type Vote struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	PostID    uint64    `gorm:"not null;uniqueIndex:idx_votes_post_user" json:"post_id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_votes_post_user;index" json:"user_id"`
	Value     int       `gorm:"not null" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
