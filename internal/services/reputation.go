package services

import (
	"fmt"

	"github.com/astrasemi/assistant/internal/constants"
	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/repository"
	"gorm.io/gorm"
)

// reputationChange is one delta applied to a user's reputation.
type reputationChange struct {
	userID  uint64
	actorID uint64
	postID  uint64
	delta   int
	reason  models.ReputationReason
}

// voteEffect is the reputation a single vote of value grants the post author.
func voteEffect(value int) int {
	if value > 0 {
		return constants.ReputationUpvote
	}
	return constants.ReputationDownvote
}

// castReason names the log reason for a newly cast vote.
func castReason(value int) models.ReputationReason {
	if value > 0 {
		return models.ReasonUpvoteReceived
	}
	return models.ReasonDownvoteReceived
}

// applyReputation increments each user's counter in place and records an
// audit row. It must run inside the caller's transaction.
func applyReputation(tx *gorm.DB, changes ...reputationChange) error {
	users := repository.NewUserRepository(tx)
	logs := repository.NewReputationRepository(tx)

	for _, ch := range changes {
		if ch.delta == 0 {
			continue
		}
		if err := users.AdjustReputation(ch.userID, ch.delta); err != nil {
			return fmt.Errorf("failed to adjust reputation: %w", err)
		}
		if err := logs.Log(&models.ReputationLog{
			UserID:  ch.userID,
			ActorID: ch.actorID,
			PostID:  ch.postID,
			Delta:   ch.delta,
			Reason:  ch.reason,
		}); err != nil {
			return fmt.Errorf("failed to log reputation: %w", err)
		}
	}
	return nil
}
