package dto

import (
	"time"

	"github.com/astrasemi/assistant/internal/models"
	"github.com/astrasemi/assistant/internal/services"
)

// BriefingDTO represents a persisted briefing in API responses
type BriefingDTO struct {
	ID          uint64                `json:"id"`
	RoleID      uint64                `json:"roleId"`
	Top3        []string              `json:"top3"`
	Alerts      []string              `json:"alerts"`
	Blockers    []string              `json:"blockers"`
	DueOverdue  []string              `json:"dueOverdue"`
	Source      models.BriefingSource `json:"source"`
	GeneratedAt time.Time             `json:"generatedAt"`
}

func ToBriefingDTO(result services.BriefingResult) BriefingDTO {
	return BriefingDTO{
		ID:          result.ID,
		RoleID:      result.RoleID,
		Top3:        result.Briefing.Top3,
		Alerts:      result.Briefing.Alerts,
		Blockers:    result.Briefing.Blockers,
		DueOverdue:  result.Briefing.DueOverdue,
		Source:      result.Source,
		GeneratedAt: result.GeneratedAt,
	}
}

func ToBriefingDTOs(results []services.BriefingResult) []BriefingDTO {
	items := make([]BriefingDTO, len(results))
	for i, result := range results {
		items[i] = ToBriefingDTO(result)
	}
	return items
}
