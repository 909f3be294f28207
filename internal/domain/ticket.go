package domain

import "time"

// TicketStatus enumerates lifecycle states for reimbursement tickets.
type TicketStatus string

const (
	TicketStatusPending  TicketStatus = "Pending"
	TicketStatusApproved TicketStatus = "Approved"
	TicketStatusDenied   TicketStatus = "Denied"
)

// Terminal reports whether no further transition is allowed from s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusApproved || s == TicketStatusDenied
}

// TicketType classifies the expense being reimbursed.
type TicketType string

const (
	TicketTypeTravel  TicketType = "Travel"
	TicketTypeLodging TicketType = "Lodging"
	TicketTypeFood    TicketType = "Food"
	TicketTypeOther   TicketType = "Other"
)

// Valid reports whether t is one of the known expense types.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeTravel, TicketTypeLodging, TicketTypeFood, TicketTypeOther:
		return true
	}
	return false
}

// Ticket is the aggregate for a reimbursement request.
//
// ReceiptRefs holds blob references while stored; the service layer
// replaces them with signed retrieval URLs before a ticket leaves it.
type Ticket struct {
	ID          string
	OwnerID     string
	Amount      float64
	Description string
	Type        TicketType
	Status      TicketStatus
	ReceiptRefs []string
	ProcessedBy *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
