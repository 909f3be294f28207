package dto

import (
	"time"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

// SubmitTicketRequest payload.
type SubmitTicketRequest struct {
	Amount      *float64          `json:"amount" validate:"required"`
	Description string            `json:"description"`
	Type        domain.TicketType `json:"type"`
	ReceiptRefs []string          `json:"receipt_refs"`
}

// ProcessTicketRequest payload for approving or denying a ticket.
type ProcessTicketRequest struct {
	Action domain.TicketStatus `json:"action" validate:"required"`
}

// TicketResponse is the client view of a ticket. Receipts are retrieval URLs.
type TicketResponse struct {
	ID          string              `json:"id"`
	OwnerID     string              `json:"owner_id"`
	Amount      float64             `json:"amount"`
	Description string              `json:"description"`
	Type        domain.TicketType   `json:"type"`
	Status      domain.TicketStatus `json:"status"`
	Receipts    []string            `json:"receipts"`
	ProcessedBy *string             `json:"processed_by,omitempty"`
	ProcessedAt *time.Time          `json:"processed_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// NewTicketResponse maps a ticket for output.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	receipts := t.ReceiptRefs
	if receipts == nil {
		receipts = []string{}
	}
	return TicketResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Amount:      t.Amount,
		Description: t.Description,
		Type:        t.Type,
		Status:      t.Status,
		Receipts:    receipts,
		ProcessedBy: t.ProcessedBy,
		ProcessedAt: t.ProcessedAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTicketResponses maps a list of tickets.
func NewTicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		out = append(out, NewTicketResponse(&tickets[i]))
	}
	return out
}
