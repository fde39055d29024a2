package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/realtime"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

var (
	customer = domain.User{ID: "c-1", FullName: "Casey Customer", Email: "casey@example.com", Role: domain.RoleCustomer, Status: domain.UserStatusActive}
	agent    = domain.User{ID: "s-1", FullName: "Alex Agent", Email: "agent@example.com", Role: domain.RoleStaff, Status: domain.UserStatusActive}
	admin    = domain.User{ID: "a-1", FullName: "Ada Admin", Email: "admin@example.com", Role: domain.RoleAdmin, Status: domain.UserStatusActive}
	outsider = domain.User{ID: "s-9", FullName: "Other Agent", Email: "other@example.com", Role: domain.RoleStaff, Status: domain.UserStatusActive}
)

func actorOf(u domain.User) domain.Actor {
	return domain.Actor{UserID: u.ID, Email: u.Email, Role: u.Role}
}

type ticketFixture struct {
	svc       *TicketService
	workflow  *TicketWorkflowService
	tickets   *fakeTicketRepo
	replies   *fakeReplyRepo
	publisher *fakePublisher
	clock     *clockwork.FakeClock
	logs      *observer.ObservedLogs
}

func newTicketFixture(tickets ...domain.Ticket) *ticketFixture {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	f := &ticketFixture{
		tickets:   newFakeTicketRepo(tickets...),
		replies:   &fakeReplyRepo{},
		publisher: &fakePublisher{},
		clock:     clockwork.NewFakeClockAt(t0),
		logs:      logs,
	}
	dispatcher := events.NewInMemoryDispatcher(logger)
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo: f.tickets,
		ReplyRepo:  f.replies,
		UserRepo:   newFakeUserRepo(customer, agent, admin, outsider),
		Tx:         &fakeTx{},
		Dispatcher: dispatcher,
		Publisher:  f.publisher,
		Clock:      f.clock,
		SLA:        domain.DefaultSLAPolicy(),
		Logger:     logger,
	})
	f.workflow = NewTicketWorkflowService(WorkflowDependencies{
		TicketRepo: f.tickets,
		Tx:         &fakeTx{},
		Dispatcher: dispatcher,
		Clock:      f.clock,
		SLA:        domain.DefaultSLAPolicy(),
		Logger:     logger,
	})
	return f
}

func assignedTicket() domain.Ticket {
	ticket := newTicket("t-1", domain.TicketStatusNew, domain.AssignmentUnassigned)
	assignee := agent.ID
	ticket.AssigneeID = &assignee
	return ticket
}

func TestReplyLifecycleScenario(t *testing.T) {
	f := newTicketFixture(assignedTicket())
	ctx := context.Background()

	f.clock.Advance(10 * time.Minute)
	_, err := f.svc.AddReply(ctx, actorOf(customer), "t-1", "Still broken")
	require.NoError(t, err)
	stored := f.tickets.get("t-1")
	assert.Nil(t, stored.FirstRespondedAt)
	assert.Equal(t, domain.TicketStatusNew, stored.Status)

	f.clock.Advance(20 * time.Minute)
	t2 := f.clock.Now()
	reply, err := f.svc.AddReply(ctx, actorOf(agent), "t-1", "  Looking into it  ")
	require.NoError(t, err)
	assert.True(t, reply.IsStaffReply)
	assert.Equal(t, "Looking into it", reply.Message)
	stored = f.tickets.get("t-1")
	require.NotNil(t, stored.FirstRespondedAt)
	assert.Equal(t, t2, *stored.FirstRespondedAt)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
	assert.Equal(t, t2, stored.UpdatedAt)

	_, err = f.workflow.Close(ctx, actorOf(admin), "t-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeIllegalTransition))

	_, err = f.workflow.Complete(ctx, actorOf(admin), "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, f.tickets.get("t-1").Status)

	_, err = f.workflow.Assign(ctx, actorOf(admin), "t-1")
	assert.True(t, errors.Is(err, domain.ErrTicketLocked))
}

func TestAddReply_FirstResponseSetOnce(t *testing.T) {
	f := newTicketFixture(assignedTicket())
	ctx := context.Background()

	_, err := f.svc.AddReply(ctx, actorOf(agent), "t-1", "first")
	require.NoError(t, err)
	first := *f.tickets.get("t-1").FirstRespondedAt

	f.clock.Advance(time.Hour)
	_, err = f.svc.AddReply(ctx, actorOf(admin), "t-1", "second")
	require.NoError(t, err)

	stored := f.tickets.get("t-1")
	assert.Equal(t, first, *stored.FirstRespondedAt)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
}

func TestAddReply_ForbiddenCallerPersistsNothing(t *testing.T) {
	f := newTicketFixture(assignedTicket())

	_, err := f.svc.AddReply(context.Background(), actorOf(outsider), "t-1", "let me in")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))
	assert.Empty(t, f.replies.replies)
	assert.Empty(t, f.publisher.messages)
	assert.Equal(t, t0, f.tickets.get("t-1").UpdatedAt)
}

func TestAddReply_Validation(t *testing.T) {
	f := newTicketFixture(assignedTicket())
	ctx := context.Background()

	_, err := f.svc.AddReply(ctx, actorOf(customer), "t-1", "   \n\t")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.svc.AddReply(ctx, actorOf(customer), "missing", "hello")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound))

	_, err = f.svc.AddReply(ctx, domain.Actor{UserID: "ghost", Role: domain.RoleAdmin}, "t-1", "hello")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeSenderUnresolved))
	assert.Equal(t, 400, apperrors.ToDomainError(err).HTTPStatus)
}

func TestAddReply_BroadcastsAfterCommit(t *testing.T) {
	f := newTicketFixture(assignedTicket())

	reply, err := f.svc.AddReply(context.Background(), actorOf(agent), "t-1", "on it")
	require.NoError(t, err)

	require.Len(t, f.publisher.messages, 1)
	msg := f.publisher.messages[0]
	assert.Equal(t, "ticket:t-1", msg.Topic)
	assert.Equal(t, realtime.EventReceiveReply, msg.Event)

	var payload realtime.ReplyPayload
	require.NoError(t, json.Unmarshal(msg.Payload, &payload))
	assert.Equal(t, reply.ID, payload.ReplyID)
	assert.Equal(t, "Alex Agent", payload.SenderName)
	assert.True(t, payload.IsStaffReply)
}

func TestAddReply_BroadcastFailureKeepsReply(t *testing.T) {
	f := newTicketFixture(assignedTicket())
	f.publisher.err = errors.New("redis unavailable")

	reply, err := f.svc.AddReply(context.Background(), actorOf(customer), "t-1", "hello?")
	require.NoError(t, err)
	assert.NotEmpty(t, reply.ID)
	assert.Len(t, f.replies.replies, 1)
	assert.Equal(t, 1, f.logs.FilterMessage("reply broadcast failed").Len())
}

func TestGetTicket_CustomerScope(t *testing.T) {
	other := newTicket("t-2", domain.TicketStatusNew, domain.AssignmentUnassigned)
	other.CustomerID = "c-2"
	f := newTicketFixture(assignedTicket(), other)
	ctx := context.Background()

	_, err := f.svc.AddReply(ctx, actorOf(customer), "t-1", "one")
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	_, err = f.svc.AddReply(ctx, actorOf(agent), "t-1", "two")
	require.NoError(t, err)

	detail, err := f.svc.GetTicket(ctx, actorOf(customer), "t-1")
	require.NoError(t, err)
	require.Len(t, detail.Replies, 2)
	assert.Equal(t, "one", detail.Replies[0].Message)
	assert.Equal(t, "two", detail.Replies[1].Message)

	_, err = f.svc.GetTicket(ctx, actorOf(customer), "t-2")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	_, err = f.svc.GetTicket(ctx, actorOf(agent), "t-2")
	assert.NoError(t, err)
}

func TestListTickets_ScopesCustomersAndClampsPaging(t *testing.T) {
	other := newTicket("t-2", domain.TicketStatusNew, domain.AssignmentUnassigned)
	other.CustomerID = "c-2"
	f := newTicketFixture(assignedTicket(), other)

	page, err := f.svc.ListTickets(context.Background(), actorOf(customer), TicketListFilter{Page: -1, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 1, page.TotalItems)
	require.NotNil(t, f.tickets.last.CustomerID)
	assert.Equal(t, "c-1", *f.tickets.last.CustomerID)

	page, err = f.svc.ListTickets(context.Background(), actorOf(agent), TicketListFilter{Keyword: "  vpn "})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalItems)
	assert.Nil(t, f.tickets.last.CustomerID)
	require.NotNil(t, f.tickets.last.SearchTerm)
	assert.Equal(t, "vpn", *f.tickets.last.SearchTerm)
}

func TestCreateTicket(t *testing.T) {
	f := newTicketFixture()

	ticket, err := f.svc.CreateTicket(context.Background(), actorOf(customer), TicketCreateInput{Subject: " Printer ", Severity: "high"})
	require.NoError(t, err)
	assert.Equal(t, "Printer", ticket.Subject)
	assert.Equal(t, domain.TicketSeverityHigh, ticket.Severity)
	assert.Equal(t, domain.TicketStatusNew, ticket.Status)
	assert.Equal(t, domain.AssignmentUnassigned, ticket.AssignmentState)
	assert.Equal(t, "c-1", ticket.CustomerID)
	assert.Regexp(t, `^TCK-[0-9A-F]{8}$`, ticket.Code)

	_, err = f.svc.CreateTicket(context.Background(), actorOf(customer), TicketCreateInput{Subject: "x", Severity: "urgent"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestCreateTicket_RetriesCodeCollision(t *testing.T) {
	f := newTicketFixture()
	f.tickets.createErrs = []error{fmt.Errorf("tickets_code_key: %w", domain.ErrAlreadyExists)}

	ticket, err := f.svc.CreateTicket(context.Background(), actorOf(customer), TicketCreateInput{Subject: "Printer"})
	require.NoError(t, err)
	require.Len(t, f.tickets.codes, 2)
	assert.NotEqual(t, f.tickets.codes[0], f.tickets.codes[1])
	assert.Equal(t, f.tickets.codes[1], ticket.Code)

	f.tickets.createErrs = []error{domain.ErrAlreadyExists, domain.ErrAlreadyExists, domain.ErrAlreadyExists}
	_, err = f.svc.CreateTicket(context.Background(), actorOf(customer), TicketCreateInput{Subject: "Printer"})
	assert.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestCanWatch(t *testing.T) {
	other := newTicket("t-2", domain.TicketStatusNew, domain.AssignmentUnassigned)
	other.CustomerID = "c-2"
	f := newTicketFixture(assignedTicket(), other)
	ctx := context.Background()

	assert.NoError(t, f.svc.CanWatch(ctx, actorOf(customer), "t-1"))
	assert.True(t, apperrors.IsCode(f.svc.CanWatch(ctx, actorOf(customer), "t-2"), apperrors.CodeForbidden))
	assert.NoError(t, f.svc.CanWatch(ctx, actorOf(outsider), "t-2"))
	assert.True(t, apperrors.IsCode(f.svc.CanWatch(ctx, actorOf(agent), "nope"), apperrors.CodeNotFound))
}
