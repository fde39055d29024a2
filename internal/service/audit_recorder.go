package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
)

// TicketEntityType is the audit entity type of ticket mutations.
const TicketEntityType = "Ticket"

// AuditRecorder appends an audit row for every committed ticket mutation.
type AuditRecorder struct {
	dispatcher events.Dispatcher
	logs       repository.AuditLogRepository
	logger     *zap.Logger
}

// NewAuditRecorder creates the recorder.
func NewAuditRecorder(dispatcher events.Dispatcher, logs repository.AuditLogRepository, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{dispatcher: dispatcher, logs: logs, logger: orNopLogger(logger)}
}

// RegisterHandlers subscribes to ticket events.
func (r *AuditRecorder) RegisterHandlers() {
	if r.dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventTicketAssigned,
		events.EventTicketTransferred,
		events.EventTicketStatusChanged,
		events.EventTicketReplyAdded,
	} {
		r.dispatcher.Subscribe(eventType, r.record)
	}
}

func (r *AuditRecorder) record(ctx context.Context, event events.Event) error {
	before, err := snapshotJSON(event.Before)
	if err != nil {
		return err
	}
	after, err := snapshotJSON(event.After)
	if err != nil {
		return err
	}
	entry := &domain.AuditLog{
		OccurredAt:     event.Timestamp,
		ActorID:        event.Actor.UserID,
		ActorEmail:     event.Actor.Email,
		ActorRole:      string(event.Actor.Role),
		SessionID:      event.Actor.SessionID,
		IPAddress:      event.Actor.IPAddress,
		Action:         event.Action,
		EntityType:     TicketEntityType,
		EntityID:       event.TicketID,
		BeforeDataJSON: before,
		AfterDataJSON:  after,
	}
	if err := r.logs.Create(context.WithoutCancel(ctx), entry); err != nil {
		return fmt.Errorf("record audit for %s: %w", event.Type, err)
	}
	r.logger.Debug("audit recorded",
		zap.Int64("audit_id", entry.ID),
		zap.String("action", entry.Action),
		zap.String("ticket_id", event.TicketID))
	return nil
}

func snapshotJSON(snap *events.TicketSnapshot) (*string, error) {
	if snap == nil {
		return nil, nil
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode ticket snapshot: %w", err)
	}
	out := string(raw)
	return &out, nil
}
