package dto

import (
	"time"

	"github.com/astrasemi/assistant/internal/models"
)

// TicketDTO represents a password-reset ticket in admin responses
type TicketDTO struct {
	ID         string              `json:"id"`
	Username   string              `json:"username"`
	Hint       string              `json:"hint"`
	Status     models.TicketStatus `json:"status"`
	Message    string              `json:"message,omitempty"`
	CreatedAt  time.Time           `json:"createdAt"`
	ResolvedAt *time.Time          `json:"resolvedAt,omitempty"`
}

func ToTicketDTO(ticket models.ResetTicket) TicketDTO {
	return TicketDTO{
		ID:         ticket.PublicID,
		Username:   ticket.Username,
		Hint:       ticket.Hint,
		Status:     ticket.Status,
		Message:    ticket.Message,
		CreatedAt:  ticket.CreatedAt,
		ResolvedAt: ticket.ResolvedAt,
	}
}

func ToTicketDTOs(tickets []models.ResetTicket) []TicketDTO {
	items := make([]TicketDTO, len(tickets))
	for i, ticket := range tickets {
		items[i] = ToTicketDTO(ticket)
	}
	return items
}
