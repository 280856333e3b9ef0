package domain

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the lifecycle state of a follow-up task. Only Open and Done
// are persisted; Overdue is derived at read time from dueAt.
type TaskStatus string

const (
	TaskOpen    TaskStatus = "Open"
	TaskDone    TaskStatus = "Done"
	TaskOverdue TaskStatus = "Overdue"
)

// Task is a follow-up action tied to a lead.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	TenantID    uuid.UUID  `json:"tenantId"`
	Description string     `json:"description"`
	DueAt       time.Time  `json:"dueAt"`
	Status      TaskStatus `json:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// DeriveTaskStatus is the single source of truth for presenting task status.
// A task that is not Done and whose dueAt lies strictly before now is
// Overdue; a task due exactly at now is still Open. The persisted status is
// never changed by this derivation.
func DeriveTaskStatus(task Task, now time.Time) TaskStatus {
	if task.Status == TaskDone {
		return TaskDone
	}
	if task.DueAt.Before(now) {
		return TaskOverdue
	}
	return TaskOpen
}
