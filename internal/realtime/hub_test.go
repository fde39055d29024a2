package realtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversToTopicSubscribersOnly(t *testing.T) {
	hub := NewHub(4, nil)
	watching := hub.Subscribe(TicketTopic("t-1"))
	other := hub.Subscribe(TicketTopic("t-2"))
	defer watching.Close()
	defer other.Close()

	msg, err := NewMessage(TicketTopic("t-1"), EventReceiveReply, ReplyPayload{TicketID: "t-1", ReplyID: "r-1"})
	require.NoError(t, err)
	require.NoError(t, hub.Publish(context.Background(), msg))

	select {
	case got := <-watching.C():
		assert.Equal(t, EventReceiveReply, got.Event)
		assert.JSONEq(t, `{"ticketId":"t-1","replyId":"r-1","senderId":"","senderName":"","message":"","isStaffReply":false,"sentAt":"0001-01-01T00:00:00Z"}`, string(got.Payload))
	case <-time.After(time.Second):
		t.Fatal("expected frame")
	}
	assert.Empty(t, other.C())
}

func TestHub_SlowSubscriberMissesFrames(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe("ticket:t-1")
	defer sub.Close()

	for i := 0; i < 3; i++ {
		require.NoError(t, hub.Publish(context.Background(), Message{Topic: "ticket:t-1", Event: EventReceiveReply}))
	}
	assert.Len(t, sub.C(), 1)
	assert.Equal(t, int64(2), hub.Dropped())
}

func TestSubscription_CloseUnregisters(t *testing.T) {
	hub := NewHub(1, nil)
	sub := hub.Subscribe("ticket:t-1")
	assert.Equal(t, 1, hub.Subscribers("ticket:t-1"))

	sub.Close()
	sub.Close()

	assert.Equal(t, 0, hub.Subscribers("ticket:t-1"))
	_, open := <-sub.C()
	assert.False(t, open)
	require.NoError(t, hub.Publish(context.Background(), Message{Topic: "ticket:t-1"}))
}
