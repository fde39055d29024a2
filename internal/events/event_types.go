package events

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketTransferred   EventType = "ticket_transferred"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketReplyAdded    EventType = "ticket_reply_added"
)

// Event represents a committed ticket mutation. Before is nil for creations.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Action    string          `json:"action"`
	TicketID  string          `json:"ticket_id"`
	Actor     domain.Actor    `json:"actor"`
	Timestamp time.Time       `json:"timestamp"`
	Before    *TicketSnapshot `json:"before,omitempty"`
	After     *TicketSnapshot `json:"after,omitempty"`
	Payload   interface{}     `json:"payload,omitempty"`
}

// TicketSnapshot is the audited shape of a ticket.
type TicketSnapshot struct {
	Code             string                 `json:"Code"`
	Subject          string                 `json:"Subject"`
	CustomerID       string                 `json:"CustomerId"`
	AssigneeID       *string                `json:"AssigneeId"`
	Status           domain.TicketStatus    `json:"Status"`
	Severity         domain.TicketSeverity  `json:"Severity"`
	AssignmentState  domain.AssignmentState `json:"AssignmentState"`
	SLAStatus        domain.SLAStatus       `json:"SlaStatus"`
	FirstRespondedAt *time.Time             `json:"FirstRespondedAt"`
}

// SnapshotTicket copies the audited fields of ticket.
func SnapshotTicket(ticket *domain.Ticket) *TicketSnapshot {
	if ticket == nil {
		return nil
	}
	snap := &TicketSnapshot{
		Code:            ticket.Code,
		Subject:         ticket.Subject,
		CustomerID:      ticket.CustomerID,
		Status:          ticket.Status,
		Severity:        ticket.Severity,
		AssignmentState: ticket.AssignmentState,
		SLAStatus:       ticket.SLAStatus,
	}
	if ticket.AssigneeID != nil {
		id := *ticket.AssigneeID
		snap.AssigneeID = &id
	}
	if ticket.FirstRespondedAt != nil {
		at := *ticket.FirstRespondedAt
		snap.FirstRespondedAt = &at
	}
	return snap
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID      *string                `json:"assignee_id,omitempty"`
	AssignmentState domain.AssignmentState `json:"assignment_state"`
}

// TicketReplyAddedPayload payload.
type TicketReplyAddedPayload struct {
	ReplyID      string `json:"reply_id"`
	SenderID     string `json:"sender_id"`
	IsStaffReply bool   `json:"is_staff_reply"`
	BodyPreview  string `json:"body_preview"`
}
