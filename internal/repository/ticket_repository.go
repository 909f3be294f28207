package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/reimbursement-service/internal/domain"
)

// TicketQuery selects tickets by any combination of status, owner and type.
type TicketQuery struct {
	Status      *domain.TicketStatus
	OwnerID     *string
	Type        *domain.TicketType
	NewestFirst bool
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, q TicketQuery) ([]domain.Ticket, error)
	// TransitionStatus moves a ticket from one status to another only if it
	// is still in the expected status. ErrNotFound covers both a missing
	// ticket and a lost race.
	TransitionStatus(ctx context.Context, id string, from, to domain.TicketStatus, actorID string, at time.Time) (*domain.Ticket, error)
	// AppendReceipt atomically appends ref to the ticket's receipt list.
	AppendReceipt(ctx context.Context, id, ref string) (*domain.Ticket, error)
}

const ticketsTable = "tickets"

var ticketColumns = []string{
	"id", "owner_id", "amount", "description", "type", "status", "receipt_refs",
	"processed_by", "processed_at", "created_at", "updated_at",
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, owner_id, amount, description, type, status, receipt_refs, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`

	refs := ticket.ReceiptRefs
	if refs == nil {
		refs = []string{}
	}
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.OwnerID,
		ticket.Amount,
		ticket.Description,
		ticket.Type,
		ticket.Status,
		refs,
		ticket.CreatedAt,
	)
	if err != nil {
		return translate(err)
	}
	ticket.UpdatedAt = ticket.CreatedAt
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query, args := newSelect(ticketsTable, ticketColumns...).Where("id", id).Build()
	return scanTicket(r.pool.QueryRow(ctx, query, args...))
}

func (r *ticketRepository) List(ctx context.Context, q TicketQuery) ([]domain.Ticket, error) {
	sel := newSelect(ticketsTable, ticketColumns...)
	if q.Status != nil {
		sel.Where("status", *q.Status)
	}
	if q.OwnerID != nil {
		sel.Where("owner_id", *q.OwnerID)
	}
	if q.Type != nil {
		sel.Where("type", *q.Type)
	}
	query, args := sel.OrderBy("created_at", q.NewestFirst).Build()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, translate(rows.Err())
}

func (r *ticketRepository) TransitionStatus(ctx context.Context, id string, from, to domain.TicketStatus, actorID string, at time.Time) (*domain.Ticket, error) {
	query, args := newUpdate(ticketsTable).
		Set("status", to).
		Set("processed_by", actorID).
		Set("processed_at", at).
		Set("updated_at", at).
		Where("id", id).
		Where("status", from).
		Returning(ticketColumns...).
		Build()
	return scanTicket(r.pool.QueryRow(ctx, query, args...))
}

func (r *ticketRepository) AppendReceipt(ctx context.Context, id, ref string) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets SET receipt_refs = array_append(receipt_refs, $1), updated_at = NOW()
        WHERE id = $2
        RETURNING id, owner_id, amount, description, type, status, receipt_refs,
                  processed_by, processed_at, created_at, updated_at`
	return scanTicket(r.pool.QueryRow(ctx, query, ref, id))
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.OwnerID,
		&ticket.Amount,
		&ticket.Description,
		&ticket.Type,
		&ticket.Status,
		&ticket.ReceiptRefs,
		&ticket.ProcessedBy,
		&ticket.ProcessedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}
