package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/support-desk/internal/domain"
)

func TestDispatcher_FailingHandlerDoesNotStopOthers(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	d := NewInMemoryDispatcher(zap.New(core))

	var calls []string
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("smtp down")
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventTicketReplyAdded, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketAssigned, TicketID: "t-1"}))

	assert.Equal(t, []string{"first", "second"}, calls)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "event handler failed", logs.All()[0].Message)
}

func TestSnapshotTicket_CopiesPointers(t *testing.T) {
	assignee := "s-1"
	ticket := &domain.Ticket{Code: "TCK-1", AssigneeID: &assignee, Status: domain.TicketStatusNew}

	snap := SnapshotTicket(ticket)
	assignee = "s-2"

	require.NotNil(t, snap.AssigneeID)
	assert.Equal(t, "s-1", *snap.AssigneeID)
	assert.Nil(t, SnapshotTicket(nil))
}
