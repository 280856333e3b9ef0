// Package ledger is the append-only activity log and follow-up task tracker
// for leads. Activities are immutable once recorded; tasks carry a stored
// Open/Done status while Overdue is derived at read time.
package ledger

import (
	"context"
	"errors"
	"time"

	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/internal/events"
	"coachdesk_backend/platform/apperr"
	"coachdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Repo is the repository surface the ledger service needs.
type Repo interface {
	repository.LeadReader
	repository.ActivityLedger
	repository.TaskStore
}

// Service records activities and manages follow-up tasks.
type Service struct {
	repo Repo
	bus  events.Bus
	log  *logger.Logger

	now func() time.Time
}

// New creates a new ledger service.
func New(repo Repo, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		bus:  bus,
		log:  log,
		now:  time.Now,
	}
}

// Record appends an activity to a lead's timeline. Only required fields are
// validated; the payload itself is taken as-is. The record is never mutated
// after this call.
func (s *Service) Record(ctx context.Context, tenantID, leadID uuid.UUID, payload domain.ActivityPayload, actor domain.Actor) (domain.Activity, error) {
	if payload == nil {
		return domain.Activity{}, apperr.BadRequest("activity payload is required")
	}
	if _, err := s.repo.GetLead(ctx, tenantID, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Activity{}, apperr.NotFound("lead not found")
		}
		return domain.Activity{}, err
	}

	activity := domain.Activity{
		ID:         uuid.New(),
		LeadID:     leadID,
		TenantID:   tenantID,
		Type:       payload.ActivityType(),
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		OccurredAt: s.now().UTC(),
		Payload:    payload,
	}

	op, err := s.repo.PutActivityOp(activity)
	if err != nil {
		return domain.Activity{}, err
	}
	if err := s.repo.Commit(ctx, op); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}

// Timeline returns all activities of a lead, oldest first.
func (s *Service) Timeline(ctx context.Context, tenantID, leadID uuid.UUID) ([]domain.Activity, error) {
	return s.repo.ListActivities(ctx, tenantID, leadID)
}

// CreateTask opens a follow-up task on a lead.
func (s *Service) CreateTask(ctx context.Context, tenantID, leadID uuid.UUID, description string, dueAt time.Time) (domain.Task, error) {
	if description == "" {
		return domain.Task{}, apperr.BadRequest("task description is required")
	}
	if _, err := s.repo.GetLead(ctx, tenantID, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Task{}, apperr.NotFound("lead not found")
		}
		return domain.Task{}, err
	}

	task := domain.Task{
		ID:          uuid.New(),
		LeadID:      leadID,
		TenantID:    tenantID,
		Description: description,
		DueAt:       dueAt.UTC(),
		Status:      domain.TaskOpen,
		CreatedAt:   s.now().UTC(),
	}

	op, err := s.repo.PutTaskOp(task)
	if err != nil {
		return domain.Task{}, err
	}
	if err := s.repo.Commit(ctx, op); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// Complete marks a task done and appends a task-completed activity to the
// lead's timeline in the same batch. Completing an already-done task is a
// no-op returning the stored task.
func (s *Service) Complete(ctx context.Context, tenantID, taskID uuid.UUID, actor domain.Actor) (domain.Task, error) {
	task, err := s.repo.GetTask(ctx, tenantID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Task{}, apperr.NotFound("task not found")
		}
		return domain.Task{}, err
	}
	if task.Status == domain.TaskDone {
		return task, nil
	}

	now := s.now().UTC()
	task.Status = domain.TaskDone
	task.CompletedAt = &now

	taskOp, err := s.repo.PutTaskOp(task)
	if err != nil {
		return domain.Task{}, err
	}
	activityOp, err := s.repo.PutActivityOp(domain.Activity{
		ID:         uuid.New(),
		LeadID:     task.LeadID,
		TenantID:   tenantID,
		Type:       domain.ActivityTaskCompleted,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		OccurredAt: now,
		Payload: domain.TaskCompletedPayload{
			TaskID:      task.ID,
			Description: task.Description,
		},
	})
	if err != nil {
		return domain.Task{}, err
	}

	if err := s.repo.Commit(ctx, taskOp, activityOp); err != nil {
		return domain.Task{}, err
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.TaskCompleted{
			BaseEvent: events.NewBaseEvent(),
			TaskID:    task.ID,
			LeadID:    task.LeadID,
			TenantID:  tenantID,
			ActorID:   actor.ID,
		})
	}

	return task, nil
}

// ListActive returns the non-Done tasks of a lead sorted by dueAt ascending,
// with Overdue derived against the current clock.
func (s *Service) ListActive(ctx context.Context, tenantID, leadID uuid.UUID) ([]domain.Task, error) {
	tasks, err := s.repo.ListOpenTasks(ctx, tenantID, leadID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	for i := range tasks {
		tasks[i].Status = domain.DeriveTaskStatus(tasks[i], now)
	}
	return tasks, nil
}
