package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/reimbursement-service/internal/config"
	"github.com/spec-kit/reimbursement-service/internal/events"
)

// AuditLogService renders ticket lifecycle events as structured log lines.
type AuditLogService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.AuditConfig
}

// NewAuditLogService creates the service.
func NewAuditLogService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.AuditConfig) *AuditLogService {
	return &AuditLogService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditLogService) RegisterHandlers() {
	if a.dispatcher == nil || !a.cfg.Enabled {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketSubmitted, a.handleTicketSubmitted)
	a.dispatcher.Subscribe(events.EventTicketProcessed, a.handleTicketProcessed)
	a.dispatcher.Subscribe(events.EventReceiptAttached, a.handleReceiptAttached)
}

func (a *AuditLogService) handleTicketSubmitted(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.TicketSubmittedPayload); ok {
		fields = append(fields, zap.Float64("amount", p.Amount), zap.String("type", string(p.Type)))
	}
	a.logger.Info("TicketSubmitted", fields...)
	return nil
}

func (a *AuditLogService) handleTicketProcessed(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.TicketProcessedPayload); ok {
		fields = append(fields, zap.String("owner_id", p.OwnerID), zap.String("new_status", string(p.NewStatus)))
	}
	a.logger.Info("TicketProcessed", fields...)
	return nil
}

func (a *AuditLogService) handleReceiptAttached(_ context.Context, event events.Event) error {
	fields := a.baseFields(event)
	if p, ok := event.Payload.(events.ReceiptAttachedPayload); ok {
		fields = append(fields, zap.String("receipt_ref", p.ReceiptRef), zap.Int("receipt_count", p.ReceiptCount))
	}
	a.logger.Info("ReceiptAttached", fields...)
	return nil
}

func (a *AuditLogService) baseFields(event events.Event) []zap.Field {
	return []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.String("actor_id", event.ActorID),
		zap.Time("at", event.Timestamp),
	}
}
