package config

import (
	"time"

	"github.com/spec-kit/support-desk/internal/domain"
)

// Policy converts the configured targets into a domain SLA policy.
func (c SLAConfig) Policy() domain.SLAPolicy {
	return domain.SLAPolicy{
		ResponseTargets: map[domain.TicketSeverity]time.Duration{
			domain.TicketSeverityLow:      c.LowTarget,
			domain.TicketSeverityMedium:   c.MediumTarget,
			domain.TicketSeverityHigh:     c.HighTarget,
			domain.TicketSeverityCritical: c.CriticalTarget,
		},
		AtRiskRatio: c.AtRiskRatio,
	}
}
