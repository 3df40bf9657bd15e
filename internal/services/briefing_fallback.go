package services

import (
	"fmt"
	"sort"
	"time"

	"github.com/astrasemi/assistant/internal/constants"
	"github.com/astrasemi/assistant/internal/models"
)

const dateLayout = "2006-01-02"

// Placeholders used when a briefing list would otherwise be empty.
const (
	PlaceholderNoTop3       = "No urgent actions identified"
	PlaceholderNoAlerts     = "No critical alerts"
	PlaceholderNoBlockers   = "No blocking dependencies"
	PlaceholderNoDueOverdue = "No overdue items"
	PlaceholderTop3Padding  = "No additional actions"

	PlaceholderNoTasks      = "No tasks assigned"
	PlaceholderEmptyAlerts  = "No alerts"
	PlaceholderEmptyBlocker = "No blockers"
	PlaceholderEmptyDue     = "No due items"
)

// Briefing is the four-list daily summary for a role.
type Briefing struct {
	Top3       []string `json:"top3"`
	Alerts     []string `json:"alerts"`
	Blockers   []string `json:"blockers"`
	DueOverdue []string `json:"dueOverdue"`
}

// EmptyBriefing is returned for a role without tasks.
func EmptyBriefing() Briefing {
	return Briefing{
		Top3:       []string{PlaceholderNoTasks},
		Alerts:     []string{PlaceholderEmptyAlerts},
		Blockers:   []string{PlaceholderEmptyBlocker},
		DueOverdue: []string{PlaceholderEmptyDue},
	}
}

// BuildFallbackBriefing derives a briefing from task fields alone. now fixes
// "today" in now's location.
func BuildFallbackBriefing(tasks []models.Task, now time.Time) Briefing {
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)

	active := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status.Active() {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		switch {
		case a.DueDate != nil && b.DueDate != nil:
			return a.DueDate.Before(*b.DueDate)
		case a.DueDate != nil:
			return true
		default:
			return false
		}
	})

	top3 := make([]string, 0, constants.BriefingTop3Size)
	for i := 0; i < len(active) && i < constants.BriefingTop3Size; i++ {
		top3 = append(top3, active[i].Title)
	}

	seen := make(map[string]bool)
	var alerts []string
	addAlert := func(title string) {
		if !seen[title] {
			seen[title] = true
			alerts = append(alerts, title)
		}
	}
	for _, t := range tasks {
		if t.Priority == models.PriorityCritical && t.Status != models.TaskStatusDone {
			addAlert(t.Title)
		}
	}
	for _, t := range tasks {
		if t.DueDate != nil && t.DueDate.Before(startOfToday) && t.Status != models.TaskStatusDone {
			addAlert(t.Title)
		}
	}

	var blockers []string
	for _, t := range tasks {
		if t.Status == models.TaskStatusBlocked {
			blockers = append(blockers, t.Title)
		}
	}

	var dueOverdue []string
	for _, t := range tasks {
		if t.DueDate != nil && t.DueDate.Before(startOfTomorrow) && t.Status != models.TaskStatusDone {
			due := t.DueDate.In(now.Location()).Format(dateLayout)
			dueOverdue = append(dueOverdue, fmt.Sprintf("%s (due: %s)", t.Title, due))
		}
	}

	return Briefing{
		Top3:       orPlaceholder(top3, PlaceholderNoTop3),
		Alerts:     orPlaceholder(alerts, PlaceholderNoAlerts),
		Blockers:   orPlaceholder(blockers, PlaceholderNoBlockers),
		DueOverdue: orPlaceholder(dueOverdue, PlaceholderNoDueOverdue),
	}
}

func orPlaceholder(items []string, placeholder string) []string {
	if len(items) == 0 {
		return []string{placeholder}
	}
	return items
}
