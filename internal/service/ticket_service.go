package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/realtime"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// TicketService serves ticket reads and reply ingestion.
type TicketService struct {
	tickets   repository.TicketRepository
	replies   repository.TicketReplyRepository
	users     repository.UserRepository
	tx        TxRunner
	events    eventPublisher
	publisher realtime.Publisher
	clock     clockwork.Clock
	sla       domain.SLAPolicy
	logger    *zap.Logger
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	ReplyRepo  repository.TicketReplyRepository
	UserRepo   repository.UserRepository
	Tx         TxRunner
	Dispatcher events.Dispatcher
	Publisher  realtime.Publisher
	Clock      clockwork.Clock
	SLA        domain.SLAPolicy
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Subject  string
	Severity string
}

// TicketListFilter describes queue listing filters. Customers are always
// scoped to their own tickets.
type TicketListFilter struct {
	Statuses         []domain.TicketStatus
	Severities       []domain.TicketSeverity
	AssignmentStates []domain.AssignmentState
	SLAStatuses      []domain.SLAStatus
	AssigneeID       *string
	Keyword          string
	Page             int
	PageSize         int
}

// TicketDetail is a ticket with its thread ordered by SentAt.
type TicketDetail struct {
	Ticket  *domain.Ticket
	Replies []domain.TicketReply
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	clock := orDefaultClock(deps.Clock)
	return &TicketService{
		tickets:   deps.TicketRepo,
		replies:   deps.ReplyRepo,
		users:     deps.UserRepo,
		tx:        deps.Tx,
		events:    eventPublisher{dispatcher: deps.Dispatcher, clock: clock},
		publisher: deps.Publisher,
		clock:     clock,
		sla:       deps.SLA,
		logger:    orNopLogger(deps.Logger),
	}
}

// CreateTicket opens a ticket owned by the calling customer.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		return nil, apperrors.NewValidationError("subject is required", map[string]any{"field": "subject"})
	}
	severity := domain.TicketSeverityMedium
	if strings.TrimSpace(input.Severity) != "" {
		parsed, ok := domain.ParseTicketSeverity(input.Severity)
		if !ok {
			return nil, apperrors.NewValidationError("unknown severity", map[string]any{"severity": input.Severity})
		}
		severity = parsed
	}

	now := s.clock.Now()
	ticket := &domain.Ticket{
		Code:            generateTicketCode(),
		Subject:         subject,
		CustomerID:      actor.UserID,
		Status:          domain.TicketStatusNew,
		Severity:        severity,
		AssignmentState: domain.AssignmentUnassigned,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	ticket.RecomputeSLA(s.sla, now)

	var err error
	for attempt := 0; attempt < ticketCodeAttempts; attempt++ {
		if attempt > 0 {
			ticket.Code = generateTicketCode()
		}
		if err = s.tickets.Create(ctx, ticket); !errors.Is(err, domain.ErrAlreadyExists) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, apperrors.NewConflict("ticket code collision", map[string]any{"code": ticket.Code})
		}
		return nil, apperrors.MapError(err)
	}
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		Action:   "Create",
		TicketID: ticket.ID,
		Actor:    actor,
		After:    events.SnapshotTicket(ticket),
	})
	return ticket, nil
}

// GetTicket returns the ticket with its replies. Customers may only read their own tickets.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*TicketDetail, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if actor.Role == domain.RoleCustomer && ticket.CustomerID != actor.UserID {
		return nil, apperrors.NewForbidden("access denied")
	}
	replies, err := s.replies.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetail{Ticket: ticket, Replies: replies}, nil
}

// CanWatch reports whether actor may follow the ticket's live channel. The
// rule matches GetTicket.
func (s *TicketService) CanWatch(ctx context.Context, actor domain.Actor, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
	}
	if actor.Role == domain.RoleCustomer && ticket.CustomerID != actor.UserID {
		return apperrors.NewForbidden("access denied")
	}
	return nil
}

// ListTickets returns one page of the ticket queue, most recently updated first.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filter TicketListFilter) (*Page[domain.Ticket], error) {
	paging := NewPagination(filter.Page, filter.PageSize)
	repoFilter := repository.TicketFilter{
		AssigneeID:       filter.AssigneeID,
		Statuses:         filter.Statuses,
		Severities:       filter.Severities,
		AssignmentStates: filter.AssignmentStates,
		SLAStatuses:      filter.SLAStatuses,
		Limit:            paging.PageSize,
		Offset:           paging.Offset(),
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		repoFilter.SearchTerm = &kw
	}
	if actor.Role == domain.RoleCustomer {
		customerID := actor.UserID
		repoFilter.CustomerID = &customerID
	}

	tickets, total, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &Page[domain.Ticket]{
		Page:       paging.Page,
		PageSize:   paging.PageSize,
		TotalItems: total,
		Items:      tickets,
	}, nil
}

// AddReply stores a reply and applies its effects on the ticket atomically,
// then pushes it to live viewers. A failed push is logged and never undoes the reply.
func (s *TicketService) AddReply(ctx context.Context, actor domain.Actor, ticketID, message string) (*domain.TicketReply, error) {
	body := strings.TrimSpace(message)
	if body == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}

	var (
		reply  *domain.TicketReply
		before *domain.Ticket
		ticket *domain.Ticket
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.tickets.GetByIDForUpdate(ctx, ticketID)
		if err != nil {
			return notFoundOr(err, "ticket", map[string]any{"ticket_id": ticketID})
		}
		snapshot := *current
		before = &snapshot

		sender, err := s.resolveSender(ctx, actor)
		if err != nil {
			return err
		}
		if !current.AllowsReplyFrom(sender.ID, []domain.Role{sender.Role}) {
			return apperrors.NewForbidden("caller may not reply to this ticket")
		}

		isStaffReply := current.IsStaffReply(sender.ID)
		now := s.clock.Now()
		created := &domain.TicketReply{
			ID:           uuid.NewString(),
			TicketID:     current.ID,
			SenderID:     sender.ID,
			SenderName:   sender.FullName,
			Message:      body,
			IsStaffReply: isStaffReply,
			SentAt:       now,
		}
		if err := s.replies.Create(ctx, created); err != nil {
			return apperrors.MapError(err)
		}

		current.ApplyReply(isStaffReply, now)
		current.RecomputeSLA(s.sla, now)
		if err := s.tickets.Update(ctx, current); err != nil {
			return apperrors.MapError(err)
		}
		reply = created
		ticket = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcastReply(ctx, reply)
	s.events.publish(ctx, events.Event{
		Type:     events.EventTicketReplyAdded,
		Action:   "AddReply",
		TicketID: ticket.ID,
		Actor:    actor,
		Before:   events.SnapshotTicket(before),
		After:    events.SnapshotTicket(ticket),
		Payload: events.TicketReplyAddedPayload{
			ReplyID:      reply.ID,
			SenderID:     reply.SenderID,
			IsStaffReply: reply.IsStaffReply,
			BodyPreview:  stringPreview(reply.Message, 120),
		},
	})
	return reply, nil
}

func (s *TicketService) resolveSender(ctx context.Context, actor domain.Actor) (*domain.User, error) {
	if strings.TrimSpace(actor.UserID) == "" {
		return nil, apperrors.NewSenderUnresolved(actor.UserID)
	}
	sender, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewSenderUnresolved(actor.UserID)
		}
		return nil, apperrors.MapError(err)
	}
	return sender, nil
}

func (s *TicketService) broadcastReply(ctx context.Context, reply *domain.TicketReply) {
	if s.publisher == nil {
		return
	}
	topic := realtime.TicketTopic(reply.TicketID)
	msg, err := realtime.NewMessage(topic, realtime.EventReceiveReply, realtime.ReplyPayload{
		TicketID:     reply.TicketID,
		ReplyID:      reply.ID,
		SenderID:     reply.SenderID,
		SenderName:   reply.SenderName,
		Message:      reply.Message,
		IsStaffReply: reply.IsStaffReply,
		SentAt:       reply.SentAt,
	})
	if err == nil {
		err = s.publisher.Publish(context.WithoutCancel(ctx), msg)
	}
	if err != nil {
		s.logger.Warn("reply broadcast failed",
			zap.String("ticket_id", reply.TicketID),
			zap.String("reply_id", reply.ID),
			zap.String("topic", topic),
			zap.Error(err))
	}
}

const ticketCodeAttempts = 3

func generateTicketCode() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
