package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/events"
	"github.com/spec-kit/reimbursement-service/internal/repository"
	"github.com/spec-kit/reimbursement-service/internal/storage"
	apperrors "github.com/spec-kit/reimbursement-service/pkg/util/errorutil"
)

const (
	defaultURLTTL         = 15 * time.Minute
	defaultUploadMaxBytes = 5 << 20
	maxConcurrentSigning  = 16
)

// TicketService coordinates the reimbursement ticket lifecycle.
type TicketService struct {
	tickets        repository.TicketRepository
	users          repository.UserRepository
	blobs          storage.BlobStore
	dispatcher     events.Dispatcher
	logger         *zap.Logger
	now            func() time.Time
	urlTTL         time.Duration
	uploadMaxBytes int64
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo     repository.TicketRepository
	UserRepo       repository.UserRepository
	Blobs          storage.BlobStore
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Clock          func() time.Time
	URLTTL         time.Duration
	UploadMaxBytes int64
}

// TicketDraft describes a ticket submission.
type TicketDraft struct {
	Amount      float64           `json:"amount" validate:"gte=0"`
	Description string            `json:"description" validate:"required,min=5"`
	Type        domain.TicketType `json:"type" validate:"required,oneof=Travel Lodging Food Other"`
	ReceiptRefs []string          `json:"receiptRefs" validate:"max=0"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:        deps.TicketRepo,
		users:          deps.UserRepo,
		blobs:          deps.Blobs,
		dispatcher:     deps.Dispatcher,
		logger:         deps.Logger,
		now:            deps.Clock,
		urlTTL:         deps.URLTTL,
		uploadMaxBytes: deps.UploadMaxBytes,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.urlTTL <= 0 {
		s.urlTTL = defaultURLTTL
	}
	if s.uploadMaxBytes <= 0 {
		s.uploadMaxBytes = defaultUploadMaxBytes
	}
	return s
}

// Submit records a new pending ticket for ownerID.
func (s *TicketService) Submit(ctx context.Context, draft TicketDraft, ownerID string) (*domain.Ticket, error) {
	draft.Description = strings.TrimSpace(draft.Description)
	if err := apperrors.ValidateStruct(draft); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": ownerID})
		}
		return nil, s.storageFailure("load ticket owner failed", err, zap.String("user_id", ownerID))
	}

	now := s.now()
	ticket := &domain.Ticket{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Amount:      draft.Amount,
		Description: draft.Description,
		Type:        draft.Type,
		Status:      domain.TicketStatusPending,
		ReceiptRefs: []string{},
		CreatedAt:   now,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, s.storageFailure("persist ticket failed", err, zap.String("user_id", ownerID))
	}

	s.logger.Info("ticket submitted", zap.String("ticket_id", ticket.ID), zap.String("user_id", ownerID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketSubmitted,
		TicketID: ticket.ID,
		ActorID:  ownerID,
		Payload:  events.TicketSubmittedPayload{Amount: ticket.Amount, Type: ticket.Type},
	})
	return ticket, nil
}

// ListPending returns every pending ticket, oldest first, with receipt
// URLs resolved.
func (s *TicketService) ListPending(ctx context.Context) ([]domain.Ticket, error) {
	pending := domain.TicketStatusPending
	tickets, err := s.tickets.List(ctx, repository.TicketQuery{Status: &pending})
	if err != nil {
		return nil, s.storageFailure("list pending tickets failed", err)
	}
	if len(tickets) == 0 {
		return nil, apperrors.NewDomainError(apperrors.CodeNotFound,
			"no pending tickets available for processing", http.StatusNotFound, nil)
	}
	if err := s.resolveReceipts(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// Process approves or denies a pending ticket on behalf of actorID.
func (s *TicketService) Process(ctx context.Context, ticketID, actorID string, action domain.TicketStatus) (*domain.Ticket, error) {
	if !action.Terminal() {
		return nil, apperrors.NewInvalidArgument("action must be Approved or Denied",
			map[string]any{"action": string(action)})
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.alreadyProcessed(ticketID)
		}
		return nil, s.storageFailure("load ticket failed", err, zap.String("ticket_id", ticketID))
	}
	if ticket.Status != domain.TicketStatusPending {
		return nil, s.alreadyProcessed(ticketID)
	}
	if ticket.OwnerID == actorID {
		s.logger.Warn("self approval rejected", zap.String("ticket_id", ticketID), zap.String("user_id", actorID))
		return nil, apperrors.NewForbidden("managers cannot process their own tickets")
	}

	updated, err := s.tickets.TransitionStatus(ctx, ticketID, domain.TicketStatusPending, action, actorID, s.now())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.alreadyProcessed(ticketID)
		}
		return nil, s.storageFailure("update ticket status failed", err, zap.String("ticket_id", ticketID))
	}

	s.logger.Info("ticket processed",
		zap.String("ticket_id", ticketID),
		zap.String("user_id", actorID),
		zap.String("status", string(updated.Status)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketProcessed,
		TicketID: ticketID,
		ActorID:  actorID,
		Payload:  events.TicketProcessedPayload{OwnerID: updated.OwnerID, NewStatus: updated.Status},
	})

	// the transition is committed; a signing failure only drops the URLs
	resolved := []domain.Ticket{*updated}
	if err := s.resolveReceipts(ctx, resolved); err != nil {
		s.logger.Warn("receipt urls omitted from processed ticket", zap.String("ticket_id", ticketID), zap.Error(err))
		updated.ReceiptRefs = []string{}
		return updated, nil
	}
	return &resolved[0], nil
}

// ListForOwner returns ownerID's tickets, newest first, optionally
// restricted to one expense type.
func (s *TicketService) ListForOwner(ctx context.Context, ownerID string, ticketType *domain.TicketType) ([]domain.Ticket, error) {
	if ticketType != nil && !ticketType.Valid() {
		return nil, apperrors.NewValidationError("type must be one of: Travel Lodging Food Other",
			map[string]any{"type": string(*ticketType)})
	}

	if _, err := s.users.GetByID(ctx, ownerID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": ownerID})
		}
		return nil, s.storageFailure("load ticket owner failed", err, zap.String("user_id", ownerID))
	}

	tickets, err := s.tickets.List(ctx, repository.TicketQuery{OwnerID: &ownerID, Type: ticketType, NewestFirst: true})
	if err != nil {
		return nil, s.storageFailure("list owner tickets failed", err, zap.String("user_id", ownerID))
	}
	if len(tickets) == 0 {
		return nil, apperrors.NewDomainError(apperrors.CodeNotFound, "no tickets found", http.StatusNotFound,
			map[string]any{"user_id": ownerID})
	}
	if err := s.resolveReceipts(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetTicket returns a single ticket to its owner or to any manager.
func (s *TicketService) GetTicket(ctx context.Context, caller domain.Identity, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, s.storageFailure("load ticket failed", err, zap.String("ticket_id", ticketID))
	}
	if caller.Role != domain.RoleManager && ticket.OwnerID != caller.UserID {
		return nil, apperrors.NewForbidden("ticket belongs to another user")
	}
	resolved := []domain.Ticket{*ticket}
	if err := s.resolveReceipts(ctx, resolved); err != nil {
		return nil, err
	}
	return &resolved[0], nil
}

// AttachReceipt uploads file and appends its reference to the owner's ticket.
func (s *TicketService) AttachReceipt(ctx context.Context, ownerID, ticketID string, file storage.File) (*domain.Ticket, error) {
	if err := validateUpload(file, s.uploadMaxBytes, true); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, s.storageFailure("load ticket failed", err, zap.String("ticket_id", ticketID))
	}
	if ticket == nil || ticket.OwnerID != ownerID {
		s.logger.Warn("receipt upload rejected", zap.String("ticket_id", ticketID), zap.String("user_id", ownerID))
		return nil, apperrors.NewForbidden("receipts can only be attached to your own tickets")
	}

	key := storage.ReceiptKey(ownerID, ticketID, file.Name, s.now())
	ref, err := s.blobs.Upload(ctx, key, file.Content, file.Size, file.ContentType)
	if err != nil {
		s.logger.Error("receipt upload failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, apperrors.NewUploadFailure(err)
	}

	updated, err := s.tickets.AppendReceipt(ctx, ticketID, ref)
	if err != nil {
		return nil, s.storageFailure("append receipt failed", err, zap.String("ticket_id", ticketID))
	}

	s.logger.Info("receipt attached", zap.String("ticket_id", ticketID), zap.String("user_id", ownerID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventReceiptAttached,
		TicketID: ticketID,
		ActorID:  ownerID,
		Payload:  events.ReceiptAttachedPayload{ReceiptRef: ref, ReceiptCount: len(updated.ReceiptRefs)},
	})

	resolved := []domain.Ticket{*updated}
	if err := s.resolveReceipts(ctx, resolved); err != nil {
		return nil, err
	}
	return &resolved[0], nil
}

// resolveReceipts replaces every receipt reference with a signed URL in
// place. Any signing failure fails the whole batch.
func (s *TicketService) resolveReceipts(ctx context.Context, tickets []domain.Ticket) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSigning)
	for i := range tickets {
		refs := make([]string, len(tickets[i].ReceiptRefs))
		copy(refs, tickets[i].ReceiptRefs)
		tickets[i].ReceiptRefs = refs
		for j, ref := range refs {
			j, ref := j, ref
			g.Go(func() error {
				url, err := s.blobs.SignURL(gctx, ref, s.urlTTL)
				if err != nil {
					return err
				}
				refs[j] = url
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		s.logger.Error("resolve receipt urls failed", zap.Error(err))
		return apperrors.NewUploadFailure(err)
	}
	return nil
}

func (s *TicketService) alreadyProcessed(ticketID string) error {
	s.logger.Warn("ticket not pending", zap.String("ticket_id", ticketID))
	return apperrors.NewConflict("ticket has already been processed or does not exist",
		map[string]any{"ticket_id": ticketID})
}

func (s *TicketService) storageFailure(msg string, err error, fields ...zap.Field) error {
	s.logger.Error(msg, append(fields, zap.Error(err))...)
	return apperrors.NewStorageFailure(err)
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
