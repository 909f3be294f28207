package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/reimbursement-service/internal/config"
	"github.com/spec-kit/reimbursement-service/internal/domain"
	"github.com/spec-kit/reimbursement-service/internal/events"
)

func TestAuditLogService_WritesOneLinePerEvent(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	NewAuditLogService(dispatcher, zap.New(core), config.AuditConfig{Enabled: true}).RegisterHandlers()

	ctx := context.Background()
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		ID: "e-1", Type: events.EventTicketProcessed, TicketID: "t-1", ActorID: "M1", Timestamp: at,
		Payload: events.TicketProcessedPayload{OwnerID: "U1", NewStatus: domain.TicketStatusApproved},
	}))

	entries := logs.FilterMessage("TicketProcessed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "t-1", fields["ticket_id"])
	assert.Equal(t, "M1", fields["actor_id"])
	assert.Equal(t, "Approved", fields["new_status"])
	assert.Equal(t, "audit", entries[0].LoggerName)
}

func TestAuditLogService_Disabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	NewAuditLogService(dispatcher, zap.New(core), config.AuditConfig{Enabled: false}).RegisterHandlers()

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketSubmitted, TicketID: "t-1"}))
	assert.Zero(t, logs.Len())
}
