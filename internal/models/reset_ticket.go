package models

import "time"

type TicketStatus string

const (
	TicketPending  TicketStatus = "pending"
	TicketResolved TicketStatus = "resolved"
	TicketDenied   TicketStatus = "denied"
)

// ResetTicket is a user-initiated password reset request awaiting an admin decision.
type ResetTicket struct {
	ID         uint64       `gorm:"primarykey" json:"-"`
	PublicID   string       `gorm:"type:varchar(36);uniqueIndex;not null" json:"id"`
	Username   string       `gorm:"type:varchar(50);not null;index" json:"username"`
	Hint       string       `gorm:"type:text" json:"hint"`
	Status     TicketStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	Message    string       `gorm:"type:varchar(255)" json:"message,omitempty"`
	ResolvedAt *time.Time   `json:"resolvedAt,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"-"`
}
