package service

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketWorkflowService moves tickets through their status and assignment lifecycle.
type TicketWorkflowService struct {
	tickets repository.TicketRepository
	tx      TxRunner
	events  eventPublisher
	clock   clockwork.Clock
	sla     domain.SLAPolicy
	logger  *zap.Logger
}

// WorkflowDependencies bundles collaborators.
type WorkflowDependencies struct {
	TicketRepo repository.TicketRepository
	Tx         TxRunner
	Dispatcher events.Dispatcher
	Clock      clockwork.Clock
	SLA        domain.SLAPolicy
	Logger     *zap.Logger
}

// NewTicketWorkflowService creates the service.
func NewTicketWorkflowService(deps WorkflowDependencies) *TicketWorkflowService {
	clock := orDefaultClock(deps.Clock)
	return &TicketWorkflowService{
		tickets: deps.TicketRepo,
		tx:      deps.Tx,
		events:  eventPublisher{dispatcher: deps.Dispatcher, clock: clock},
		clock:   clock,
		sla:     deps.SLA,
		logger:  orNopLogger(deps.Logger),
	}
}

// Assign takes the ticket on behalf of the calling staff member.
func (s *TicketWorkflowService) Assign(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, "Assign", events.EventTicketAssigned,
		func(t *domain.Ticket) error { return t.Assign(actor.UserID, s.clock.Now()) },
		func(_, after *domain.Ticket) any {
			return events.TicketAssignedPayload{AssigneeID: after.AssigneeID, AssignmentState: after.AssignmentState}
		})
}

// TransferToTechnical escalates an assigned ticket.
func (s *TicketWorkflowService) TransferToTechnical(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, "TransferToTechnical", events.EventTicketTransferred,
		func(t *domain.Ticket) error { return t.TransferToTechnical(s.clock.Now()) },
		func(_, after *domain.Ticket) any {
			return events.TicketAssignedPayload{AssigneeID: after.AssigneeID, AssignmentState: after.AssignmentState}
		})
}

// Complete finishes an in-progress ticket.
func (s *TicketWorkflowService) Complete(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, "Complete", events.EventTicketStatusChanged,
		func(t *domain.Ticket) error { return t.Complete(s.clock.Now()) },
		statusPayload)
}

// Close dismisses a ticket that is still new.
func (s *TicketWorkflowService) Close(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, "Close", events.EventTicketStatusChanged,
		func(t *domain.Ticket) error { return t.Close(s.clock.Now()) },
		statusPayload)
}

func statusPayload(before, after *domain.Ticket) any {
	return events.TicketStatusChangedPayload{OldStatus: before.Status, NewStatus: after.Status}
}

// transition locks the row, re-checks preconditions against it and persists
// the result in one transaction. The event is published after commit.
func (s *TicketWorkflowService) transition(
	ctx context.Context,
	actor domain.Actor,
	ticketID string,
	action string,
	eventType events.EventType,
	mutate func(*domain.Ticket) error,
	payload func(before, after *domain.Ticket) any,
) (*domain.Ticket, error) {
	var before, ticket *domain.Ticket
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		snapshot := *current
		before = &snapshot

		if err := mutate(current); err != nil {
			if errors.Is(err, domain.ErrIllegalTransition) {
				return apperrors.NewIllegalTransition(err, map[string]any{
					"ticket_id": ticketID,
					"action":    action,
					"status":    before.Status,
				})
			}
			return err
		}
		current.RecomputeSLA(s.sla, current.UpdatedAt)
		if err := s.tickets.Update(ctx, current); err != nil {
			return apperrors.MapError(err)
		}
		ticket = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ticket transition applied",
		zap.String("ticket_id", ticket.ID),
		zap.String("action", action),
		zap.String("actor_id", actor.UserID),
		zap.String("status", string(ticket.Status)),
		zap.String("assignment_state", string(ticket.AssignmentState)),
	)
	s.events.publish(ctx, events.Event{
		Type:     eventType,
		Action:   action,
		TicketID: ticket.ID,
		Actor:    actor,
		Before:   events.SnapshotTicket(before),
		After:    events.SnapshotTicket(ticket),
		Payload:  payload(before, ticket),
	})
	return ticket, nil
}
