package events

import (
	"time"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketSubmitted EventType = "ticket_submitted"
	EventTicketProcessed EventType = "ticket_processed"
	EventReceiptAttached EventType = "receipt_attached"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketSubmittedPayload payload.
type TicketSubmittedPayload struct {
	Amount float64           `json:"amount"`
	Type   domain.TicketType `json:"type"`
}

// TicketProcessedPayload payload.
type TicketProcessedPayload struct {
	OwnerID   string              `json:"owner_id"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// ReceiptAttachedPayload payload.
type ReceiptAttachedPayload struct {
	ReceiptRef   string `json:"receipt_ref"`
	ReceiptCount int    `json:"receipt_count"`
}
