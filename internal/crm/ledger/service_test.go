package ledger

import (
	"context"
	"testing"
	"time"

	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/platform/docstore"

	"github.com/google/uuid"
)

func newTestService(t *testing.T) (*Service, *repository.Repository, uuid.UUID, uuid.UUID) {
	t.Helper()
	repo := repository.New(docstore.NewMemoryStore())
	svc := New(repo, nil, nil)

	tenantID := uuid.New()
	leadID := uuid.New()
	op, err := repo.PutLeadOp(domain.Lead{ID: leadID, TenantID: tenantID, Name: "Iris Holm", Stage: domain.StageContacted})
	if err != nil {
		t.Fatalf("put lead: %v", err)
	}
	if err := repo.Commit(context.Background(), op); err != nil {
		t.Fatalf("commit lead: %v", err)
	}
	return svc, repo, tenantID, leadID
}

func TestDeriveTaskStatus_DueExactlyNowIsStillOpen(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	open := domain.Task{Status: domain.TaskOpen, DueAt: now}
	if got := domain.DeriveTaskStatus(open, now); got != domain.TaskOpen {
		t.Fatalf("task due exactly now should be Open, got %s", got)
	}

	overdue := domain.Task{Status: domain.TaskOpen, DueAt: now.Add(-time.Second)}
	if got := domain.DeriveTaskStatus(overdue, now); got != domain.TaskOverdue {
		t.Fatalf("task past due should be Overdue, got %s", got)
	}

	done := domain.Task{Status: domain.TaskDone, DueAt: now.Add(-time.Hour)}
	if got := domain.DeriveTaskStatus(done, now); got != domain.TaskDone {
		t.Fatalf("done task stays Done, got %s", got)
	}
}

func TestRecord_AppendsActivityForKnownLead(t *testing.T) {
	svc, repo, tenantID, leadID := newTestService(t)

	activity, err := svc.Record(context.Background(), tenantID, leadID,
		domain.NoteAddedPayload{Note: "left a voicemail"}, domain.Actor{ID: uuid.New()})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if activity.Type != domain.ActivityNoteAdded {
		t.Fatalf("expected note_added, got %s", activity.Type)
	}

	timeline, err := repo.ListActivities(context.Background(), tenantID, leadID)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(timeline) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(timeline))
	}
	payload, ok := timeline[0].Payload.(domain.NoteAddedPayload)
	if !ok {
		t.Fatalf("expected note payload, got %T", timeline[0].Payload)
	}
	if payload.Note != "left a voicemail" {
		t.Fatalf("unexpected note %q", payload.Note)
	}
}

func TestRecord_UnknownLeadFails(t *testing.T) {
	svc, _, tenantID, _ := newTestService(t)

	_, err := svc.Record(context.Background(), tenantID, uuid.New(),
		domain.NoteAddedPayload{Note: "x"}, domain.Actor{})
	if err == nil {
		t.Fatal("expected error for unknown lead")
	}
}

func TestComplete_MarksDoneAndLogsActivity(t *testing.T) {
	svc, repo, tenantID, leadID := newTestService(t)

	task, err := svc.CreateTask(context.Background(), tenantID, leadID, "send proposal", time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}

	completed, err := svc.Complete(context.Background(), tenantID, task.ID, domain.Actor{ID: uuid.New()})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != domain.TaskDone {
		t.Fatalf("expected Done, got %s", completed.Status)
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completedAt to be set")
	}

	timeline, err := repo.ListActivities(context.Background(), tenantID, leadID)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(timeline) != 1 || timeline[0].Type != domain.ActivityTaskCompleted {
		t.Fatalf("expected a task_completed activity, got %+v", timeline)
	}

	// Completing again is a no-op and adds nothing to the timeline.
	if _, err := svc.Complete(context.Background(), tenantID, task.ID, domain.Actor{}); err != nil {
		t.Fatalf("second complete: %v", err)
	}
	timeline, _ = repo.ListActivities(context.Background(), tenantID, leadID)
	if len(timeline) != 1 {
		t.Fatalf("idempotent complete must not append, got %d activities", len(timeline))
	}
}

func TestListActive_SortsByDueDateAndDerivesOverdue(t *testing.T) {
	svc, _, tenantID, leadID := newTestService(t)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	later, err := svc.CreateTask(context.Background(), tenantID, leadID, "follow up call", now.Add(48*time.Hour))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	missed, err := svc.CreateTask(context.Background(), tenantID, leadID, "send deck", now.Add(-2*time.Hour))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	done, err := svc.CreateTask(context.Background(), tenantID, leadID, "done already", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	if _, err := svc.Complete(context.Background(), tenantID, done.ID, domain.Actor{}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	tasks, err := svc.ListActive(context.Background(), tenantID, leadID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 active tasks, got %d", len(tasks))
	}
	if tasks[0].ID != missed.ID || tasks[1].ID != later.ID {
		t.Fatalf("tasks not sorted by due date: %v then %v", tasks[0].Description, tasks[1].Description)
	}
	if tasks[0].Status != domain.TaskOverdue {
		t.Fatalf("expected Overdue, got %s", tasks[0].Status)
	}
	if tasks[1].Status != domain.TaskOpen {
		t.Fatalf("expected Open, got %s", tasks[1].Status)
	}
}
