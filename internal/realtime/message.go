package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EventReceiveReply is pushed to everyone watching a ticket when a reply is stored.
const EventReceiveReply = "ReceiveReply"

// Message is one frame delivered to topic subscribers.
type Message struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewMessage encodes payload into a Message for topic.
func NewMessage(topic, event string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return Message{Topic: topic, Event: event, Payload: raw}, nil
}

// ReplyPayload is the body of a ReceiveReply frame. Clients de-duplicate on
// ReplyID and order on SentAt.
type ReplyPayload struct {
	TicketID     string    `json:"ticketId"`
	ReplyID      string    `json:"replyId"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	Message      string    `json:"message"`
	IsStaffReply bool      `json:"isStaffReply"`
	SentAt       time.Time `json:"sentAt"`
}

// Publisher fans a message out to every subscriber of its topic.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// TicketTopic names the live channel of a single ticket.
func TicketTopic(ticketID string) string {
	return "ticket:" + ticketID
}
