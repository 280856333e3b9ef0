// Package repository provides typed access to CRM entities through the
// document store adapter. The store is the system of record; every method
// reading an entity decodes a fresh projection.
package repository

import (
	"context"
	"errors"

	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/platform/docstore"

	"github.com/google/uuid"
)

// Collection names within the document store.
const (
	CollectionLeads        = "leads"
	CollectionActivities   = "lead_activities"
	CollectionTasks        = "lead_tasks"
	CollectionHealthScores = "client_health_scores"
	CollectionHealthAlerts = "health_alerts"
)

var ErrNotFound = errors.New("record not found")

type Repository struct {
	store docstore.Store
}

func New(store docstore.Store) *Repository {
	return &Repository{store: store}
}

// Commit applies the given write operations in one atomic batch.
func (r *Repository) Commit(ctx context.Context, ops ...docstore.WriteOp) error {
	return r.store.BatchWrite(ctx, ops)
}

// =====================================
// Leads
// =====================================

// ListLeadsParams filters the lead listing.
type ListLeadsParams struct {
	Stage    *domain.Stage
	Archived *bool
	Limit    int
}

func (r *Repository) GetLead(ctx context.Context, tenantID, id uuid.UUID) (domain.Lead, error) {
	doc, err := r.store.Get(ctx, CollectionLeads, tenantID, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.Lead{}, ErrNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	var lead domain.Lead
	if err := doc.Decode(&lead); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

func (r *Repository) ListLeads(ctx context.Context, tenantID uuid.UUID, params ListLeadsParams) ([]domain.Lead, error) {
	q := docstore.Query{
		OrderBy: []docstore.Ordering{{Field: "createdAt", Desc: true}},
		Limit:   params.Limit,
	}
	if params.Stage != nil {
		q.Filters = append(q.Filters, docstore.Filter{Field: "stage", Op: docstore.OpEq, Value: string(*params.Stage)})
	}
	if params.Archived != nil {
		q.Filters = append(q.Filters, docstore.Filter{Field: "archived", Op: docstore.OpEq, Value: *params.Archived})
	}

	docs, err := r.store.Query(ctx, CollectionLeads, tenantID, q)
	if err != nil {
		return nil, err
	}

	leads := make([]domain.Lead, 0, len(docs))
	for _, doc := range docs {
		var lead domain.Lead
		if err := doc.Decode(&lead); err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

func (r *Repository) PutLeadOp(lead domain.Lead) (docstore.WriteOp, error) {
	return docstore.Put(CollectionLeads, lead.TenantID, lead.ID, lead)
}

// LeadTenants lists the tenants holding leads, for background sweeps.
func (r *Repository) LeadTenants(ctx context.Context) ([]uuid.UUID, error) {
	return r.store.Tenants(ctx, CollectionLeads)
}

// =====================================
// Activities (append-only ledger)
// =====================================

func (r *Repository) PutActivityOp(activity domain.Activity) (docstore.WriteOp, error) {
	return docstore.Put(CollectionActivities, activity.TenantID, activity.ID, activity)
}

func (r *Repository) ListActivities(ctx context.Context, tenantID, leadID uuid.UUID) ([]domain.Activity, error) {
	docs, err := r.store.Query(ctx, CollectionActivities, tenantID, docstore.Query{
		Filters: []docstore.Filter{{Field: "leadId", Op: docstore.OpEq, Value: leadID}},
		OrderBy: []docstore.Ordering{{Field: "occurredAt", Desc: false}},
	})
	if err != nil {
		return nil, err
	}

	activities := make([]domain.Activity, 0, len(docs))
	for _, doc := range docs {
		var activity domain.Activity
		if err := doc.Decode(&activity); err != nil {
			return nil, err
		}
		activities = append(activities, activity)
	}
	return activities, nil
}

// =====================================
// Tasks
// =====================================

func (r *Repository) GetTask(ctx context.Context, tenantID, id uuid.UUID) (domain.Task, error) {
	doc, err := r.store.Get(ctx, CollectionTasks, tenantID, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.Task{}, ErrNotFound
	}
	if err != nil {
		return domain.Task{}, err
	}

	var task domain.Task
	if err := doc.Decode(&task); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

func (r *Repository) PutTaskOp(task domain.Task) (docstore.WriteOp, error) {
	return docstore.Put(CollectionTasks, task.TenantID, task.ID, task)
}

// ListOpenTasks returns non-Done tasks for a lead sorted by dueAt ascending.
// Overdue derivation happens in the ledger service, not here.
func (r *Repository) ListOpenTasks(ctx context.Context, tenantID, leadID uuid.UUID) ([]domain.Task, error) {
	docs, err := r.store.Query(ctx, CollectionTasks, tenantID, docstore.Query{
		Filters: []docstore.Filter{
			{Field: "leadId", Op: docstore.OpEq, Value: leadID},
			{Field: "status", Op: docstore.OpNeq, Value: string(domain.TaskDone)},
		},
		OrderBy: []docstore.Ordering{{Field: "dueAt", Desc: false}},
	})
	if err != nil {
		return nil, err
	}

	tasks := make([]domain.Task, 0, len(docs))
	for _, doc := range docs {
		var task domain.Task
		if err := doc.Decode(&task); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// =====================================
// Health scores and alerts
// =====================================

func (r *Repository) GetHealthScore(ctx context.Context, tenantID, clientID uuid.UUID) (domain.ClientHealthScore, error) {
	doc, err := r.store.Get(ctx, CollectionHealthScores, tenantID, clientID)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.ClientHealthScore{}, ErrNotFound
	}
	if err != nil {
		return domain.ClientHealthScore{}, err
	}

	var score domain.ClientHealthScore
	if err := doc.Decode(&score); err != nil {
		return domain.ClientHealthScore{}, err
	}
	return score, nil
}

// PutHealthScoreOp stores the score keyed by client ID: one current score per
// client, history lives in the alerts.
func (r *Repository) PutHealthScoreOp(score domain.ClientHealthScore) (docstore.WriteOp, error) {
	return docstore.Put(CollectionHealthScores, score.TenantID, score.ClientID, score)
}

func (r *Repository) GetAlert(ctx context.Context, tenantID, id uuid.UUID) (domain.HealthAlert, error) {
	doc, err := r.store.Get(ctx, CollectionHealthAlerts, tenantID, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.HealthAlert{}, ErrNotFound
	}
	if err != nil {
		return domain.HealthAlert{}, err
	}

	var alert domain.HealthAlert
	if err := doc.Decode(&alert); err != nil {
		return domain.HealthAlert{}, err
	}
	return alert, nil
}

func (r *Repository) PutAlertOp(alert domain.HealthAlert) (docstore.WriteOp, error) {
	return docstore.Put(CollectionHealthAlerts, alert.TenantID, alert.ID, alert)
}

// ListAlertsParams filters the alert listing.
type ListAlertsParams struct {
	ClientID     *uuid.UUID
	Acknowledged *bool
	Limit        int
}

func (r *Repository) ListAlerts(ctx context.Context, tenantID uuid.UUID, params ListAlertsParams) ([]domain.HealthAlert, error) {
	q := docstore.Query{
		OrderBy: []docstore.Ordering{{Field: "raisedAt", Desc: true}},
		Limit:   params.Limit,
	}
	if params.ClientID != nil {
		q.Filters = append(q.Filters, docstore.Filter{Field: "clientId", Op: docstore.OpEq, Value: *params.ClientID})
	}
	if params.Acknowledged != nil {
		q.Filters = append(q.Filters, docstore.Filter{Field: "acknowledged", Op: docstore.OpEq, Value: *params.Acknowledged})
	}

	docs, err := r.store.Query(ctx, CollectionHealthAlerts, tenantID, q)
	if err != nil {
		return nil, err
	}

	alerts := make([]domain.HealthAlert, 0, len(docs))
	for _, doc := range docs {
		var alert domain.HealthAlert
		if err := doc.Decode(&alert); err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, nil
}
