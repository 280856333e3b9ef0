package health

import (
	"context"
	"testing"
	"time"

	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/platform/docstore"

	"github.com/google/uuid"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	repo := repository.New(docstore.NewMemoryStore())
	svc := New(config.DefaultCRMConfig().Health, repo, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func strongSignals() domain.EngagementSignals {
	full := 1.0
	today := 0
	promoter := 10
	return domain.EngagementSignals{
		SessionAttendanceRate: &full,
		DaysSinceLastLogin:    &today,
		ToolCompletionRate:    &full,
		NPS:                   &promoter,
	}
}

func weakSignals() domain.EngagementSignals {
	none := 0.0
	month := 31
	detractor := 0
	return domain.EngagementSignals{
		SessionAttendanceRate: &none,
		DaysSinceLastLogin:    &month,
		ToolCompletionRate:    &none,
		NPS:                   &detractor,
	}
}

func listAlerts(t *testing.T, svc *Service, tenantID uuid.UUID) []domain.HealthAlert {
	t.Helper()
	alerts, err := svc.ListAlerts(context.Background(), tenantID, repository.ListAlertsParams{})
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	return alerts
}

func TestCompute_AbsentSignalsUseNeutralDefaults(t *testing.T) {
	cfg := config.DefaultCRMConfig().Health
	tenantID, clientID := uuid.New(), uuid.New()
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	score := Compute(cfg, tenantID, clientID, domain.EngagementSignals{}, now)

	if score.Score != 54 {
		t.Fatalf("expected neutral default score 54, got %d", score.Score)
	}
	if score.Status != domain.HealthAtRisk {
		t.Fatalf("expected AtRisk, got %s", score.Status)
	}
	if score.Confidence != domain.ConfidencePartial {
		t.Fatalf("expected partial confidence, got %s", score.Confidence)
	}

	again := Compute(cfg, tenantID, clientID, domain.EngagementSignals{}, now)
	if again.Score != score.Score || again.Status != score.Status {
		t.Fatal("compute is not deterministic")
	}
}

func TestCompute_FullSignalsAreFullConfidence(t *testing.T) {
	cfg := config.DefaultCRMConfig().Health
	now := time.Now()

	score := Compute(cfg, uuid.New(), uuid.New(), strongSignals(), now)
	if score.Score != 100 {
		t.Fatalf("expected 100, got %d", score.Score)
	}
	if score.Status != domain.HealthHealthy {
		t.Fatalf("expected Healthy, got %s", score.Status)
	}
	if score.Confidence != domain.ConfidenceFull {
		t.Fatalf("expected full confidence, got %s", score.Confidence)
	}

	floor := Compute(cfg, uuid.New(), uuid.New(), weakSignals(), now)
	if floor.Score != 0 || floor.Status != domain.HealthCritical {
		t.Fatalf("expected 0/Critical, got %d/%s", floor.Score, floor.Status)
	}
}

func TestStatusFor_EmptyCutoffsYieldZeroStatus(t *testing.T) {
	if status := StatusFor(nil, 80); status != "" {
		t.Fatalf("expected zero status for empty cutoffs, got %q", status)
	}
}

func TestLoginRecencyScore_DecaysLinearly(t *testing.T) {
	cases := []struct {
		days int
		want float64
	}{
		{-1, 100},
		{0, 100},
		{15, 50},
		{30, 0},
		{90, 0},
	}
	for _, tc := range cases {
		if got := loginRecencyScore(tc.days); got != tc.want {
			t.Fatalf("loginRecencyScore(%d) = %v, want %v", tc.days, got, tc.want)
		}
	}
}

func TestRecompute_FirstComputationRaisesNoAlert(t *testing.T) {
	svc := newTestService(t)
	tenantID, clientID := uuid.New(), uuid.New()

	if _, err := svc.Recompute(context.Background(), tenantID, clientID, weakSignals()); err != nil {
		t.Fatalf("recompute: %v", err)
	}

	if alerts := listAlerts(t, svc, tenantID); len(alerts) != 0 {
		t.Fatalf("first computation must not alert, got %d alerts", len(alerts))
	}
}

func TestRecompute_DownwardCrossingRaisesSingleAlert(t *testing.T) {
	svc := newTestService(t)
	tenantID, clientID := uuid.New(), uuid.New()

	if _, err := svc.Recompute(context.Background(), tenantID, clientID, strongSignals()); err != nil {
		t.Fatalf("seed healthy: %v", err)
	}
	score, err := svc.Recompute(context.Background(), tenantID, clientID, weakSignals())
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if score.Status != domain.HealthCritical {
		t.Fatalf("expected Critical, got %s", score.Status)
	}

	alerts := listAlerts(t, svc, tenantID)
	if len(alerts) != 1 {
		t.Fatalf("expected exactly 1 alert, got %d", len(alerts))
	}
	alert := alerts[0]
	if alert.Type != domain.AlertDroppedToCritical {
		t.Fatalf("expected dropped_to_critical, got %s", alert.Type)
	}
	if alert.FromStatus != domain.HealthHealthy || alert.ToStatus != domain.HealthCritical {
		t.Fatalf("unexpected transition %s -> %s", alert.FromStatus, alert.ToStatus)
	}
	if alert.Score != 0 {
		t.Fatalf("expected score 0 on alert, got %d", alert.Score)
	}
}

func TestRecompute_RecoveryDoesNotClearAlert(t *testing.T) {
	svc := newTestService(t)
	tenantID, clientID := uuid.New(), uuid.New()

	if _, err := svc.Recompute(context.Background(), tenantID, clientID, strongSignals()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Recompute(context.Background(), tenantID, clientID, weakSignals()); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := svc.Recompute(context.Background(), tenantID, clientID, strongSignals()); err != nil {
		t.Fatalf("recover: %v", err)
	}

	alerts := listAlerts(t, svc, tenantID)
	if len(alerts) != 1 {
		t.Fatalf("recovery must not clear the alert, got %d alerts", len(alerts))
	}
	if alerts[0].Acknowledged {
		t.Fatal("alert must stay unacknowledged until someone acks it")
	}
}

func TestRecompute_StayingLowRaisesNoSecondAlert(t *testing.T) {
	svc := newTestService(t)
	tenantID, clientID := uuid.New(), uuid.New()

	if _, err := svc.Recompute(context.Background(), tenantID, clientID, strongSignals()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Recompute(context.Background(), tenantID, clientID, weakSignals()); err != nil {
		t.Fatalf("drop: %v", err)
	}
	if _, err := svc.Recompute(context.Background(), tenantID, clientID, weakSignals()); err != nil {
		t.Fatalf("stay low: %v", err)
	}

	if alerts := listAlerts(t, svc, tenantID); len(alerts) != 1 {
		t.Fatalf("repeating a low status must not re-alert, got %d", len(alerts))
	}
}

func TestRecomputeFromProvider_ProviderFailureDegradesToDefaults(t *testing.T) {
	repo := repository.New(docstore.NewMemoryStore())
	svc := New(config.DefaultCRMConfig().Health, repo, failingProvider{}, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }

	score, err := svc.RecomputeFromProvider(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("recompute must not fail on provider error: %v", err)
	}
	if score.Score != 54 || score.Confidence != domain.ConfidencePartial {
		t.Fatalf("expected default 54/partial, got %d/%s", score.Score, score.Confidence)
	}
}

type failingProvider struct{}

func (failingProvider) Signals(ctx context.Context, tenantID, clientID uuid.UUID) (domain.EngagementSignals, error) {
	return domain.EngagementSignals{}, context.DeadlineExceeded
}

func TestAcknowledge_SetsFieldsAndIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	tenantID, clientID := uuid.New(), uuid.New()

	if _, err := svc.Recompute(context.Background(), tenantID, clientID, strongSignals()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := svc.Recompute(context.Background(), tenantID, clientID, weakSignals()); err != nil {
		t.Fatalf("drop: %v", err)
	}
	alerts := listAlerts(t, svc, tenantID)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	actor := domain.Actor{ID: uuid.New(), Name: "Coach Admin"}
	acked, err := svc.Acknowledge(context.Background(), tenantID, alerts[0].ID, actor)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if !acked.Acknowledged || acked.AcknowledgedBy == nil || *acked.AcknowledgedBy != actor.ID {
		t.Fatalf("acknowledgement not recorded: %+v", acked)
	}
	if acked.AcknowledgedAt == nil {
		t.Fatal("expected acknowledgedAt to be set")
	}

	again, err := svc.Acknowledge(context.Background(), tenantID, alerts[0].ID, domain.Actor{ID: uuid.New()})
	if err != nil {
		t.Fatalf("second acknowledge: %v", err)
	}
	if again.AcknowledgedBy == nil || *again.AcknowledgedBy != actor.ID {
		t.Fatal("second acknowledge must not overwrite the original actor")
	}

	open := false
	unacked, err := svc.ListAlerts(context.Background(), tenantID, repository.ListAlertsParams{Acknowledged: &open})
	if err != nil {
		t.Fatalf("list unacked: %v", err)
	}
	if len(unacked) != 0 {
		t.Fatalf("expected no unacknowledged alerts, got %d", len(unacked))
	}
}
