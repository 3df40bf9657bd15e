package models

import "time"

type ReputationReason string

const (
	ReasonUpvoteReceived   ReputationReason = "upvote_received"
	ReasonDownvoteReceived ReputationReason = "downvote_received"
	ReasonVoteRetracted    ReputationReason = "vote_retracted"
	ReasonVoteFlipped      ReputationReason = "vote_flipped"
	ReasonAnswerAccepted   ReputationReason = "answer_accepted"
	ReasonAnswerUnaccepted ReputationReason = "answer_unaccepted"
)

// ReputationLog records every change applied to User.Reputation.
type ReputationLog struct {
	ID        uint64           `gorm:"primarykey" json:"id"`
	UserID    uint64           `gorm:"not null;index" json:"user_id"`
	ActorID   uint64           `gorm:"not null" json:"actor_id"`
	PostID    uint64           `gorm:"not null;index" json:"post_id"`
	Delta     int              `gorm:"not null" json:"delta"`
	Reason    ReputationReason `gorm:"type:varchar(30);not null" json:"reason"`
	CreatedAt time.Time        `json:"created_at"`
}
