package repository

import (
	"context"

	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/platform/docstore"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// Committer applies a set of write operations atomically.
type Committer interface {
	Commit(ctx context.Context, ops ...docstore.WriteOp) error
}

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetLead(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error)
	ListLeads(ctx context.Context, tenantID uuid.UUID, params ListLeadsParams) ([]domain.Lead, error)
}

// LeadWriter provides write operations for leads. Mutations are expressed as
// docstore ops so callers can combine them into one atomic batch.
type LeadWriter interface {
	Committer
	PutLeadOp(lead domain.Lead) (docstore.WriteOp, error)
}

// ActivityLedger provides the append-only activity log.
type ActivityLedger interface {
	Committer
	PutActivityOp(activity domain.Activity) (docstore.WriteOp, error)
	ListActivities(ctx context.Context, tenantID, leadID uuid.UUID) ([]domain.Activity, error)
}

// TaskStore manages follow-up tasks.
type TaskStore interface {
	Committer
	GetTask(ctx context.Context, tenantID, id uuid.UUID) (domain.Task, error)
	PutTaskOp(task domain.Task) (docstore.WriteOp, error)
	ListOpenTasks(ctx context.Context, tenantID, leadID uuid.UUID) ([]domain.Task, error)
}

// HealthStore manages client health scores and alerts.
type HealthStore interface {
	Committer
	GetHealthScore(ctx context.Context, tenantID, clientID uuid.UUID) (domain.ClientHealthScore, error)
	PutHealthScoreOp(score domain.ClientHealthScore) (docstore.WriteOp, error)
	GetAlert(ctx context.Context, tenantID, id uuid.UUID) (domain.HealthAlert, error)
	PutAlertOp(alert domain.HealthAlert) (docstore.WriteOp, error)
	ListAlerts(ctx context.Context, tenantID uuid.UUID, params ListAlertsParams) ([]domain.HealthAlert, error)
}
