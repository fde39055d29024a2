package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusCompleted  TicketStatus = "COMPLETED"
	TicketStatusClosed     TicketStatus = "CLOSED"

	// TicketStatusLegacyOpen still exists in older rows and always reads as NEW.
	TicketStatusLegacyOpen TicketStatus = "OPEN"
)

// TicketSeverity enumerates how urgent a ticket is; it selects the SLA target.
type TicketSeverity string

const (
	TicketSeverityLow      TicketSeverity = "LOW"
	TicketSeverityMedium   TicketSeverity = "MEDIUM"
	TicketSeverityHigh     TicketSeverity = "HIGH"
	TicketSeverityCritical TicketSeverity = "CRITICAL"
)

// AssignmentState tracks the hand-off of a ticket between staff tiers.
// It only moves forward: UNASSIGNED -> ASSIGNED -> TECHNICAL.
type AssignmentState string

const (
	AssignmentUnassigned AssignmentState = "UNASSIGNED"
	AssignmentAssigned   AssignmentState = "ASSIGNED"
	AssignmentTechnical  AssignmentState = "TECHNICAL"
)

// SLAStatus is the derived response-time health of a ticket.
type SLAStatus string

const (
	SLAStatusOK       SLAStatus = "OK"
	SLAStatusAtRisk   SLAStatus = "AT_RISK"
	SLAStatusBreached SLAStatus = "BREACHED"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID               string
	Code             string
	Subject          string
	CustomerID       string
	AssigneeID       *string
	Status           TicketStatus
	Severity         TicketSeverity
	AssignmentState  AssignmentState
	SLAStatus        SLAStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	FirstRespondedAt *time.Time
}

// NormalizeTicketStatus maps the legacy OPEN value onto NEW.
func NormalizeTicketStatus(status TicketStatus) TicketStatus {
	if strings.EqualFold(string(status), string(TicketStatusLegacyOpen)) {
		return TicketStatusNew
	}
	return status
}

// ParseTicketStatus accepts NEW, in_progress, InProgress and similar spellings.
// OPEN is accepted and normalized to NEW.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	status, ok := parseEnum(raw,
		TicketStatusNew, TicketStatusInProgress, TicketStatusCompleted, TicketStatusClosed, TicketStatusLegacyOpen)
	return NormalizeTicketStatus(status), ok
}

// ParseTicketSeverity parses a severity filter value.
func ParseTicketSeverity(raw string) (TicketSeverity, bool) {
	return parseEnum(raw, TicketSeverityLow, TicketSeverityMedium, TicketSeverityHigh, TicketSeverityCritical)
}

// ParseAssignmentState parses an assignment state filter value.
func ParseAssignmentState(raw string) (AssignmentState, bool) {
	return parseEnum(raw, AssignmentUnassigned, AssignmentAssigned, AssignmentTechnical)
}

// ParseSLAStatus parses an SLA status filter value.
func ParseSLAStatus(raw string) (SLAStatus, bool) {
	return parseEnum(raw, SLAStatusOK, SLAStatusAtRisk, SLAStatusBreached)
}

func parseEnum[T ~string](raw string, values ...T) (T, bool) {
	var zero T
	key := enumKey(raw)
	if key == "" {
		return zero, false
	}
	for _, v := range values {
		if enumKey(string(v)) == key {
			return v, true
		}
	}
	return zero, false
}

func enumKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// IsLocked reports whether the ticket reached a terminal status.
func (t *Ticket) IsLocked() bool {
	status := NormalizeTicketStatus(t.Status)
	return status == TicketStatusCompleted || status == TicketStatusClosed
}

// Assign takes the ticket into the staff queue. When assigneeID is empty the
// current assignee is kept.
func (t *Ticket) Assign(assigneeID string, now time.Time) error {
	if err := t.beginTransition(); err != nil {
		return err
	}
	if t.AssignmentState == AssignmentUnassigned || t.AssignmentState == "" {
		t.AssignmentState = AssignmentAssigned
	}
	t.startIfNew()
	if assigneeID != "" {
		id := assigneeID
		t.AssigneeID = &id
	}
	t.UpdatedAt = now
	return nil
}

// TransferToTechnical escalates an assigned ticket to the technical tier.
func (t *Ticket) TransferToTechnical(now time.Time) error {
	if err := t.beginTransition(); err != nil {
		return err
	}
	if t.AssignmentState == AssignmentUnassigned || t.AssignmentState == "" {
		return ErrMustAssignFirst
	}
	t.AssignmentState = AssignmentTechnical
	t.startIfNew()
	t.UpdatedAt = now
	return nil
}

// Complete finishes a ticket that is being worked.
func (t *Ticket) Complete(now time.Time) error {
	if err := t.beginTransition(); err != nil {
		return err
	}
	if t.Status != TicketStatusInProgress {
		return ErrCompleteNotInProgress
	}
	t.Status = TicketStatusCompleted
	t.UpdatedAt = now
	return nil
}

// Close dismisses a ticket nobody started working on.
func (t *Ticket) Close(now time.Time) error {
	if err := t.beginTransition(); err != nil {
		return err
	}
	if t.Status != TicketStatusNew {
		return ErrCloseNotNew
	}
	t.Status = TicketStatusClosed
	t.UpdatedAt = now
	return nil
}

// ApplyReply records the effect of a reply sent at sentAt. Only staff replies
// move the first-response anchor and the status.
func (t *Ticket) ApplyReply(isStaffReply bool, sentAt time.Time) {
	t.Status = NormalizeTicketStatus(t.Status)
	if isStaffReply {
		if t.FirstRespondedAt == nil {
			at := sentAt
			t.FirstRespondedAt = &at
		}
		t.startIfNew()
	}
	t.UpdatedAt = sentAt
}

// RecomputeSLA derives SLAStatus from the policy at the given instant.
func (t *Ticket) RecomputeSLA(policy SLAPolicy, now time.Time) {
	t.SLAStatus = policy.Evaluate(now, t.CreatedAt, t.FirstRespondedAt, t.Severity)
}

// AllowsReplyFrom reports whether userID may post to the ticket: the owning
// customer, the current assignee, or any administrator.
func (t *Ticket) AllowsReplyFrom(userID string, roles []Role) bool {
	if userID != "" && userID == t.CustomerID {
		return true
	}
	if userID != "" && t.AssigneeID != nil && *t.AssigneeID == userID {
		return true
	}
	for _, role := range roles {
		if role == RoleAdmin {
			return true
		}
	}
	return false
}

// IsStaffReply reports whether a reply from senderID counts as a staff response.
func (t *Ticket) IsStaffReply(senderID string) bool {
	return senderID != t.CustomerID
}

func (t *Ticket) beginTransition() error {
	t.Status = NormalizeTicketStatus(t.Status)
	if t.IsLocked() {
		return ErrTicketLocked
	}
	return nil
}

func (t *Ticket) startIfNew() {
	if t.Status == TicketStatusNew {
		t.Status = TicketStatusInProgress
	}
}
