package domain

import (
	"time"

	"github.com/google/uuid"
)

// HealthStatus buckets a client health score.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "Healthy"
	HealthAtRisk   HealthStatus = "AtRisk"
	HealthCritical HealthStatus = "Critical"
)

// healthRank orders statuses from worst to best for crossing detection.
var healthRank = map[HealthStatus]int{
	HealthCritical: 0,
	HealthAtRisk:   1,
	HealthHealthy:  2,
}

// HealthRank returns the severity rank of a status (lower is worse).
// Unknown statuses rank worst.
func HealthRank(s HealthStatus) int {
	if r, ok := healthRank[s]; ok {
		return r
	}
	return -1
}

// Confidence annotates a health score with the completeness of its inputs.
type Confidence string

const (
	ConfidenceFull    Confidence = "full"
	ConfidencePartial Confidence = "partial"
)

// EngagementSignals is the collaborator-supplied input bundle for a health
// recompute. Every field is optional; a nil signal contributes its
// documented neutral default and downgrades confidence to partial.
type EngagementSignals struct {
	// SessionAttendanceRate is the fraction of scheduled coaching sessions
	// attended, 0..1. Neutral default: 0.5.
	SessionAttendanceRate *float64 `json:"sessionAttendanceRate,omitempty"`
	// DaysSinceLastLogin counts days since the client last signed in.
	// Neutral default: 14.
	DaysSinceLastLogin *int `json:"daysSinceLastLogin,omitempty"`
	// ToolCompletionRate is the fraction of assigned tools/exercises
	// completed, 0..1. Neutral default: 0.5.
	ToolCompletionRate *float64 `json:"toolCompletionRate,omitempty"`
	// NPS is the client's latest net promoter response, 0..10.
	// Neutral default: 7.
	NPS *int `json:"nps,omitempty"`
}

// Complete reports whether every signal is present.
func (s EngagementSignals) Complete() bool {
	return s.SessionAttendanceRate != nil &&
		s.DaysSinceLastLogin != nil &&
		s.ToolCompletionRate != nil &&
		s.NPS != nil
}

// ClientHealthScore is the derived engagement/retention indicator for one
// client. Score is clamped to 0-100; Status is a deterministic bucket of
// Score with inclusive lower bounds.
type ClientHealthScore struct {
	ClientID       uuid.UUID          `json:"clientId"`
	TenantID       uuid.UUID          `json:"tenantId"`
	Score          int                `json:"score"`
	Status         HealthStatus       `json:"status"`
	Factors        map[string]float64 `json:"factors,omitempty"`
	Confidence     Confidence         `json:"confidence"`
	LastComputedAt time.Time          `json:"lastComputedAt"`
}

// HealthAlertType identifies why an alert fired.
type HealthAlertType string

const (
	AlertDroppedToAtRisk   HealthAlertType = "dropped_to_at_risk"
	AlertDroppedToCritical HealthAlertType = "dropped_to_critical"
)

// HealthAlert is raised on a downward threshold crossing. Alerts are never
// cleared automatically; an explicit acknowledgement is required so a later
// recovery cannot hide a regression from the history.
type HealthAlert struct {
	ID             uuid.UUID       `json:"id"`
	ClientID       uuid.UUID       `json:"clientId"`
	TenantID       uuid.UUID       `json:"tenantId"`
	Type           HealthAlertType `json:"type"`
	FromStatus     HealthStatus    `json:"fromStatus"`
	ToStatus       HealthStatus    `json:"toStatus"`
	Score          int             `json:"score"`
	RaisedAt       time.Time       `json:"raisedAt"`
	Acknowledged   bool            `json:"acknowledged"`
	AcknowledgedBy *uuid.UUID      `json:"acknowledgedBy,omitempty"`
	AcknowledgedAt *time.Time      `json:"acknowledgedAt,omitempty"`
}
