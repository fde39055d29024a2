package domain

import "time"

const defaultAtRiskRatio = 0.75

// SLAPolicy holds first-response targets per severity.
type SLAPolicy struct {
	ResponseTargets map[TicketSeverity]time.Duration
	// AtRiskRatio is the share of the target after which an unanswered ticket is AT_RISK.
	AtRiskRatio float64
}

// DefaultSLAPolicy returns the targets used when nothing is configured.
func DefaultSLAPolicy() SLAPolicy {
	return SLAPolicy{
		ResponseTargets: map[TicketSeverity]time.Duration{
			TicketSeverityLow:      48 * time.Hour,
			TicketSeverityMedium:   24 * time.Hour,
			TicketSeverityHigh:     8 * time.Hour,
			TicketSeverityCritical: 2 * time.Hour,
		},
		AtRiskRatio: defaultAtRiskRatio,
	}
}

// Target returns the first-response target for severity. Unknown severities
// fall back to the MEDIUM target.
func (p SLAPolicy) Target(severity TicketSeverity) time.Duration {
	if d, ok := p.ResponseTargets[severity]; ok && d > 0 {
		return d
	}
	if d, ok := p.ResponseTargets[TicketSeverityMedium]; ok && d > 0 {
		return d
	}
	return DefaultSLAPolicy().ResponseTargets[TicketSeverityMedium]
}

// Evaluate derives the SLA status. Once a first response exists the outcome is
// fixed by how long that response took; before that it depends on elapsed time.
func (p SLAPolicy) Evaluate(now, createdAt time.Time, firstRespondedAt *time.Time, severity TicketSeverity) SLAStatus {
	target := p.Target(severity)
	if firstRespondedAt != nil {
		if firstRespondedAt.Sub(createdAt) > target {
			return SLAStatusBreached
		}
		return SLAStatusOK
	}

	ratio := p.AtRiskRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = defaultAtRiskRatio
	}
	elapsed := now.Sub(createdAt)
	switch {
	case elapsed > target:
		return SLAStatusBreached
	case float64(elapsed) >= ratio*float64(target):
		return SLAStatusAtRisk
	default:
		return SLAStatusOK
	}
}
