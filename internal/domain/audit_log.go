package domain

import (
	"strings"
	"time"
)

// AuditLog is an append-only record of a mutating action somewhere in the back office.
type AuditLog struct {
	ID             int64
	OccurredAt     time.Time
	ActorID        string
	ActorEmail     string
	ActorRole      string
	SessionID      string
	IPAddress      string
	Action         string
	EntityType     string
	EntityID       string
	BeforeDataJSON *string
	AfterDataJSON  *string
}

// AuditSortKey is the closed set of columns an audit listing can be ordered by.
type AuditSortKey int

const (
	AuditSortOccurredAt AuditSortKey = iota
	AuditSortActorEmail
	AuditSortActorRole
	AuditSortAction
	AuditSortEntityType
	AuditSortEntityID
)

// ParseAuditSortKey maps the public sortBy parameter onto a sort key.
// Unknown or empty values sort by occurrence time.
func ParseAuditSortKey(raw string) AuditSortKey {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "actoremail":
		return AuditSortActorEmail
	case "actorrole":
		return AuditSortActorRole
	case "action":
		return AuditSortAction
	case "entitytype":
		return AuditSortEntityType
	case "entityid":
		return AuditSortEntityID
	default:
		return AuditSortOccurredAt
	}
}

// String returns the public name of the sort key.
func (k AuditSortKey) String() string {
	switch k {
	case AuditSortActorEmail:
		return "actorEmail"
	case AuditSortActorRole:
		return "actorRole"
	case AuditSortAction:
		return "action"
	case AuditSortEntityType:
		return "entityType"
	case AuditSortEntityID:
		return "entityId"
	default:
		return "occurredAt"
	}
}

// SortDirection orders a listing.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ParseSortDirection returns ascending only for "asc"; anything else is descending.
func ParseSortDirection(raw string) SortDirection {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}
