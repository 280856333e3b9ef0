package metrics

import (
	"testing"
	"time"

	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/domain"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func activeLead(stage domain.Stage, valueCents int64, probability float64, age time.Duration) domain.Lead {
	return domain.Lead{
		ID:          uuid.New(),
		Stage:       stage,
		ValueCents:  valueCents,
		Probability: probability,
		CreatedAt:   testNow.Add(-age),
		UpdatedAt:   testNow.Add(-time.Hour),
	}
}

func closedLead(stage domain.Stage, closedAt time.Time) domain.Lead {
	return domain.Lead{
		ID:        uuid.New(),
		Stage:     stage,
		CreatedAt: closedAt.Add(-30 * 24 * time.Hour),
		UpdatedAt: closedAt,
	}
}

func stageMetric(t *testing.T, m PipelineMetrics, stage domain.Stage) StageMetrics {
	t.Helper()
	for _, s := range m.Stages {
		if s.Stage == stage {
			return s
		}
	}
	t.Fatalf("stage %s missing from metrics", stage)
	return StageMetrics{}
}

func TestAggregate_EmptyPipeline(t *testing.T) {
	cfg := config.DefaultCRMConfig().Pipeline

	m := Aggregate(cfg, nil, Window{}, testNow)

	if len(m.Stages) != len(domain.ActiveStages) {
		t.Fatalf("expected a row per active stage, got %d", len(m.Stages))
	}
	for _, s := range m.Stages {
		if s.Count != 0 || s.WeightedValueCents != 0 || s.AverageAge != 0 {
			t.Fatalf("expected zero row for %s, got %+v", s.Stage, s)
		}
	}
	if m.Conversion.Defined {
		t.Fatal("conversion rate must be undefined with no closed leads")
	}
	if len(m.StaleLeadIDs) != 0 {
		t.Fatalf("expected no stale leads, got %d", len(m.StaleLeadIDs))
	}
}

func TestAggregate_StageCountsAndWeightedValue(t *testing.T) {
	cfg := config.DefaultCRMConfig().Pipeline

	leads := []domain.Lead{
		activeLead(domain.StageProposal, 100_000, 0.5, 10*24*time.Hour),
		activeLead(domain.StageProposal, 200_000, 0.5, 20*24*time.Hour),
		activeLead(domain.StageNew, 50_000, 0.1, 24*time.Hour),
	}

	m := Aggregate(cfg, leads, Window{}, testNow)

	proposal := stageMetric(t, m, domain.StageProposal)
	if proposal.Count != 2 {
		t.Fatalf("expected 2 proposal leads, got %d", proposal.Count)
	}
	if proposal.WeightedValueCents != 150_000 {
		t.Fatalf("expected weighted value 150000, got %d", proposal.WeightedValueCents)
	}
	if proposal.AverageAge != 15*24*time.Hour {
		t.Fatalf("expected average age 15 days, got %s", proposal.AverageAge)
	}

	fresh := stageMetric(t, m, domain.StageNew)
	if fresh.Count != 1 || fresh.WeightedValueCents != 5_000 {
		t.Fatalf("unexpected New row: %+v", fresh)
	}
}

func TestAggregate_ConversionRespectsWindow(t *testing.T) {
	cfg := config.DefaultCRMConfig().Pipeline
	window := Window{
		From: testNow.Add(-7 * 24 * time.Hour),
		To:   testNow,
	}

	leads := []domain.Lead{
		closedLead(domain.StageWon, testNow.Add(-2*24*time.Hour)),
		closedLead(domain.StageLost, testNow.Add(-3*24*time.Hour)),
		closedLead(domain.StageLost, testNow.Add(-4*24*time.Hour)),
		// closed before the window opens, must not count
		closedLead(domain.StageWon, testNow.Add(-30*24*time.Hour)),
	}

	m := Aggregate(cfg, leads, window, testNow)

	if !m.Conversion.Defined {
		t.Fatal("expected a defined conversion rate")
	}
	if m.Conversion.Won != 1 || m.Conversion.Lost != 2 {
		t.Fatalf("expected 1 won / 2 lost, got %d/%d", m.Conversion.Won, m.Conversion.Lost)
	}
	if want := 1.0 / 3.0; m.Conversion.Rate != want {
		t.Fatalf("expected rate %v, got %v", want, m.Conversion.Rate)
	}
}

func TestAggregate_OnlyLostIsZeroRateButDefined(t *testing.T) {
	cfg := config.DefaultCRMConfig().Pipeline

	m := Aggregate(cfg, []domain.Lead{closedLead(domain.StageLost, testNow.Add(-time.Hour))}, Window{}, testNow)

	if !m.Conversion.Defined {
		t.Fatal("a real 0% rate must still be defined")
	}
	if m.Conversion.Rate != 0 {
		t.Fatalf("expected rate 0, got %v", m.Conversion.Rate)
	}
}

func TestAggregate_FlagsStaleActiveLeads(t *testing.T) {
	cfg := config.DefaultCRMConfig().Pipeline

	stale := activeLead(domain.StageContacted, 0, 0.25, 40*24*time.Hour)
	stale.UpdatedAt = testNow.Add(-15 * 24 * time.Hour)

	fresh := activeLead(domain.StageContacted, 0, 0.25, 40*24*time.Hour)
	fresh.UpdatedAt = testNow.Add(-13 * 24 * time.Hour)

	// exactly at the threshold is not yet stale
	boundary := activeLead(domain.StageContacted, 0, 0.25, 40*24*time.Hour)
	boundary.UpdatedAt = testNow.Add(-cfg.StaleThreshold())

	won := closedLead(domain.StageWon, testNow.Add(-60*24*time.Hour))

	m := Aggregate(cfg, []domain.Lead{stale, fresh, boundary, won}, Window{}, testNow)

	if len(m.StaleLeadIDs) != 1 {
		t.Fatalf("expected 1 stale lead, got %d", len(m.StaleLeadIDs))
	}
	if m.StaleLeadIDs[0] != stale.ID {
		t.Fatal("wrong lead flagged stale")
	}
}
