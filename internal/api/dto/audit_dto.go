package dto

import (
	"time"

	"github.com/spec-kit/support-desk/internal/auditdiff"
	"github.com/spec-kit/support-desk/internal/service"
)

// AuditLogItem is one row of the audit listing.
type AuditLogItem struct {
	ID              int64                   `json:"id"`
	OccurredAt      time.Time               `json:"occurredAt"`
	ActorID         string                  `json:"actorId"`
	ActorEmail      string                  `json:"actorEmail"`
	ActorRole       string                  `json:"actorRole"`
	SessionID       string                  `json:"sessionId"`
	IPAddress       string                  `json:"ipAddress"`
	Action          string                  `json:"action"`
	EntityType      string                  `json:"entityType"`
	EntityID        string                  `json:"entityId"`
	Changes         []auditdiff.FieldChange `json:"changes"`
	DiffUnavailable bool                    `json:"diffUnavailable,omitempty"`
}

// AuditLogDetail adds the raw snapshots to an item.
type AuditLogDetail struct {
	AuditLogItem
	BeforeDataJSON *string `json:"beforeDataJson"`
	AfterDataJSON  *string `json:"afterDataJson"`
}

// AuditFilterOptionsResponse feeds the filter dropdowns.
type AuditFilterOptionsResponse struct {
	Actions     []string `json:"actions"`
	EntityTypes []string `json:"entityTypes"`
	ActorRoles  []string `json:"actorRoles"`
}

// NewAuditLogItem maps a service entry.
func NewAuditLogItem(e *service.AuditLogEntry) AuditLogItem {
	changes := e.Changes
	if changes == nil {
		changes = []auditdiff.FieldChange{}
	}
	return AuditLogItem{
		ID:              e.ID,
		OccurredAt:      e.OccurredAt,
		ActorID:         e.ActorID,
		ActorEmail:      e.ActorEmail,
		ActorRole:       e.ActorRole,
		SessionID:       e.SessionID,
		IPAddress:       e.IPAddress,
		Action:          e.Action,
		EntityType:      e.EntityType,
		EntityID:        e.EntityID,
		Changes:         changes,
		DiffUnavailable: e.DiffUnavailable,
	}
}

// NewAuditLogDetail maps a service entry with its snapshots.
func NewAuditLogDetail(e *service.AuditLogEntry) AuditLogDetail {
	return AuditLogDetail{
		AuditLogItem:   NewAuditLogItem(e),
		BeforeDataJSON: e.BeforeDataJSON,
		AfterDataJSON:  e.AfterDataJSON,
	}
}

// NewAuditFilterOptionsResponse maps the options, rendering absent lists as empty arrays.
func NewAuditFilterOptionsResponse(o *service.AuditFilterOptions) AuditFilterOptionsResponse {
	return AuditFilterOptionsResponse{
		Actions:     nonNil(o.Actions),
		EntityTypes: nonNil(o.EntityTypes),
		ActorRoles:  nonNil(o.ActorRoles),
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
