package domain

import "time"

// TicketReply is one immutable message in a ticket thread.
type TicketReply struct {
	ID           string
	TicketID     string
	SenderID     string
	SenderName   string
	Message      string
	IsStaffReply bool
	SentAt       time.Time
}
