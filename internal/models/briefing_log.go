package models

import "time"

type BriefingSource string

const (
	BriefingSourceLLM      BriefingSource = "llm"
	BriefingSourceFallback BriefingSource = "fallback"
	BriefingSourceEmpty    BriefingSource = "empty"
)

// BriefingLog is an append-only record of a generated briefing. The four
// list columns hold JSON-encoded string arrays.
type BriefingLog struct {
	ID              uint64         `gorm:"primarykey" json:"id"`
	RoleID          uint64         `gorm:"not null;index" json:"role_id"`
	Top3            string         `gorm:"type:text;not null" json:"-"`
	Alerts          string         `gorm:"type:text;not null" json:"-"`
	Blockers        string         `gorm:"type:text;not null" json:"-"`
	DueOverdue      string         `gorm:"type:text;not null" json:"-"`
	RawInputSummary *string        `gorm:"type:text" json:"-"`
	Source          BriefingSource `gorm:"type:varchar(10);not null" json:"source"`
	GeneratedAt     time.Time      `gorm:"not null;index" json:"generated_at"`
}
