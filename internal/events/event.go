// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
var NewInMemoryBus = events.NewInMemoryBus

// =============================================================================
// Lead Pipeline Events
// =============================================================================

// LeadCreated is published when a new lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	TenantID  uuid.UUID  `json:"tenantId"`
	OwnerID   uuid.UUID  `json:"ownerId"`
	Source    string     `json:"source,omitempty"`
	InquiryID *uuid.UUID `json:"inquiryId,omitempty"`
}

func (e LeadCreated) EventName() string { return "crm.lead.created" }

// LeadStageChanged is published after a successful pipeline transition.
type LeadStageChanged struct {
	BaseEvent
	LeadID      uuid.UUID    `json:"leadId"`
	TenantID    uuid.UUID    `json:"tenantId"`
	From        domain.Stage `json:"from"`
	To          domain.Stage `json:"to"`
	Probability float64      `json:"probability"`
	ActorID     uuid.UUID    `json:"actorId"`
}

func (e LeadStageChanged) EventName() string { return "crm.lead.stage_changed" }

// LeadWon is published when a lead closes Won.
type LeadWon struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	TenantID   uuid.UUID `json:"tenantId"`
	ValueCents int64     `json:"valueCents"`
}

func (e LeadWon) EventName() string { return "crm.lead.won" }

// LeadLost is published when a lead closes Lost.
type LeadLost struct {
	BaseEvent
	LeadID   uuid.UUID    `json:"leadId"`
	TenantID uuid.UUID    `json:"tenantId"`
	From     domain.Stage `json:"from"`
}

func (e LeadLost) EventName() string { return "crm.lead.lost" }

// =============================================================================
// Customer Success Events
// =============================================================================

// HealthAlertRaised is published when a health recompute crosses a threshold
// downward. The email notifier subscribes to this event.
type HealthAlertRaised struct {
	BaseEvent
	AlertID    uuid.UUID              `json:"alertId"`
	ClientID   uuid.UUID              `json:"clientId"`
	TenantID   uuid.UUID              `json:"tenantId"`
	Type       domain.HealthAlertType `json:"type"`
	FromStatus domain.HealthStatus    `json:"fromStatus"`
	ToStatus   domain.HealthStatus    `json:"toStatus"`
	Score      int                    `json:"score"`
}

func (e HealthAlertRaised) EventName() string { return "crm.health.alert_raised" }

// TaskCompleted is published when a follow-up task is marked done.
type TaskCompleted struct {
	BaseEvent
	TaskID   uuid.UUID `json:"taskId"`
	LeadID   uuid.UUID `json:"leadId"`
	TenantID uuid.UUID `json:"tenantId"`
	ActorID  uuid.UUID `json:"actorId"`
}

func (e TaskCompleted) EventName() string { return "crm.task.completed" }

// InquiryConverted is published when a directory inquiry becomes a customer
// record after a Won transition.
type InquiryConverted struct {
	BaseEvent
	InquiryID uuid.UUID `json:"inquiryId"`
	ClientID  uuid.UUID `json:"clientId"`
	TenantID  uuid.UUID `json:"tenantId"`
	LeadID    uuid.UUID `json:"leadId"`
}

func (e InquiryConverted) EventName() string { return "crm.inquiry.converted" }

// StaleLeadsDetected is published by the stale sweep with the leads needing
// follow-up.
type StaleLeadsDetected struct {
	BaseEvent
	TenantID uuid.UUID   `json:"tenantId"`
	LeadIDs  []uuid.UUID `json:"leadIds"`
}

func (e StaleLeadsDetected) EventName() string { return "crm.leads.stale_detected" }
