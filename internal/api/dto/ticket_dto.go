package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject  string `json:"subject"`
	Severity string `json:"severity"`
}

// ReplyRequest payload.
type ReplyRequest struct {
	Message string `json:"message"`
}

// TicketResponse is the list representation of a ticket.
type TicketResponse struct {
	ID               string                 `json:"id"`
	Code             string                 `json:"code"`
	Subject          string                 `json:"subject"`
	CustomerID       string                 `json:"customerId"`
	AssigneeID       *string                `json:"assigneeId"`
	Status           domain.TicketStatus    `json:"status"`
	Severity         domain.TicketSeverity  `json:"severity"`
	AssignmentState  domain.AssignmentState `json:"assignmentState"`
	SLAStatus        domain.SLAStatus       `json:"slaStatus"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
	FirstRespondedAt *time.Time             `json:"firstRespondedAt"`
}

// TicketDetailResponse is a ticket with its thread, oldest reply first.
type TicketDetailResponse struct {
	TicketResponse
	Replies []ReplyResponse `json:"replies"`
}

// ReplyResponse represents one thread reply.
type ReplyResponse struct {
	ID           string    `json:"id"`
	TicketID     string    `json:"ticketId"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName"`
	Message      string    `json:"message"`
	IsStaffReply bool      `json:"isStaffReply"`
	SentAt       time.Time `json:"sentAt"`
}

// PagedResponse wraps one page of a listing.
type PagedResponse[T any] struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	Items      []T `json:"items"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:               t.ID,
		Code:             t.Code,
		Subject:          t.Subject,
		CustomerID:       t.CustomerID,
		AssigneeID:       t.AssigneeID,
		Status:           domain.NormalizeTicketStatus(t.Status),
		Severity:         t.Severity,
		AssignmentState:  t.AssignmentState,
		SLAStatus:        t.SLAStatus,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
		FirstRespondedAt: t.FirstRespondedAt,
	}
}

// NewReplyResponse maps a reply.
func NewReplyResponse(r *domain.TicketReply) ReplyResponse {
	return ReplyResponse{
		ID:           r.ID,
		TicketID:     r.TicketID,
		SenderID:     r.SenderID,
		SenderName:   r.SenderName,
		Message:      r.Message,
		IsStaffReply: r.IsStaffReply,
		SentAt:       r.SentAt,
	}
}

// NewTicketDetailResponse maps a ticket and its replies.
func NewTicketDetailResponse(t *domain.Ticket, replies []domain.TicketReply) TicketDetailResponse {
	out := TicketDetailResponse{TicketResponse: NewTicketResponse(t), Replies: make([]ReplyResponse, 0, len(replies))}
	for i := range replies {
		out.Replies = append(out.Replies, NewReplyResponse(&replies[i]))
	}
	return out
}
