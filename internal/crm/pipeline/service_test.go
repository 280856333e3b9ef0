package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/platform/docstore"

	"github.com/google/uuid"
)

type stubConverter struct {
	clientID uuid.UUID
	err      error
	calls    int
}

func (s *stubConverter) MarkConverted(_ context.Context, _, _, _ uuid.UUID) (uuid.UUID, error) {
	s.calls++
	return s.clientID, s.err
}

func newTestService(t *testing.T, converter InquiryConverter) (*Service, *repository.Repository) {
	t.Helper()
	repo := repository.New(docstore.NewMemoryStore())
	svc := New(config.DefaultCRMConfig(), repo, converter, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC) }
	return svc, repo
}

func seedLead(t *testing.T, repo *repository.Repository, lead domain.Lead) domain.Lead {
	t.Helper()
	op, err := repo.PutLeadOp(lead)
	if err != nil {
		t.Fatalf("put lead: %v", err)
	}
	if err := repo.Commit(context.Background(), op); err != nil {
		t.Fatalf("commit lead: %v", err)
	}
	return lead
}

func TestTransition_QualifiedToProposalUpdatesProbability(t *testing.T) {
	svc, repo := newTestService(t, nil)
	tenantID := uuid.New()
	lead := seedLead(t, repo, domain.Lead{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     "Mara Lind",
		Stage:    domain.StageQualified,
		BANT:     domain.BANT{Budget: 3, Authority: 3, Need: 3, Timeline: 3},
	})

	updated, err := svc.Transition(context.Background(), tenantID, lead.ID, domain.StageProposal, domain.Actor{ID: uuid.New()})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Stage != domain.StageProposal {
		t.Fatalf("expected stage Proposal, got %s", updated.Stage)
	}
	if updated.Probability != 0.50 {
		t.Fatalf("expected probability 0.50, got %f", updated.Probability)
	}

	activities, err := repo.ListActivities(context.Background(), tenantID, lead.ID)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(activities))
	}
	payload, ok := activities[0].Payload.(domain.StageChangedPayload)
	if !ok {
		t.Fatalf("expected stage-changed payload, got %T", activities[0].Payload)
	}
	if payload.From != domain.StageQualified || payload.To != domain.StageProposal {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestTransition_NewDirectlyToWonIsRejected(t *testing.T) {
	svc, repo := newTestService(t, nil)
	tenantID := uuid.New()
	lead := seedLead(t, repo, domain.Lead{
		ID:       uuid.New(),
		TenantID: tenantID,
		Stage:    domain.StageNew,
		BANT:     domain.BANT{Budget: 5, Authority: 5, Need: 5, Timeline: 5},
	})

	// A fully qualified lead still may not jump the funnel: Won is plain
	// progression from Negotiation, not a universal escape like Lost.
	_, err := svc.Transition(context.Background(), tenantID, lead.ID, domain.StageWon, domain.Actor{})
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if invalid.From != domain.StageNew || invalid.To != domain.StageWon {
		t.Fatalf("unexpected error detail %+v", invalid)
	}
	for _, target := range invalid.ValidTargets {
		if target == domain.StageWon {
			t.Fatalf("Won listed as a valid target from New: %v", invalid.ValidTargets)
		}
	}

	stored, err := repo.GetLead(context.Background(), tenantID, lead.ID)
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if stored.Stage != domain.StageNew {
		t.Fatalf("lead should not have moved, got %s", stored.Stage)
	}
}

func TestValidTargets_WonOnlyFromNegotiationOrConfiguredSkip(t *testing.T) {
	svc, _ := newTestService(t, nil)

	for _, from := range []domain.Stage{domain.StageNew, domain.StageContacted, domain.StageQualified, domain.StageProposal} {
		for _, target := range svc.ValidTargets(from) {
			if target == domain.StageWon {
				t.Fatalf("Won reachable from %s under the default config", from)
			}
		}
	}

	targets := svc.ValidTargets(domain.StageNegotiation)
	if !containsStage(targets, domain.StageWon) || !containsStage(targets, domain.StageLost) {
		t.Fatalf("expected Won and Lost from Negotiation, got %v", targets)
	}

	cfg := config.DefaultCRMConfig()
	cfg.Pipeline.AllowedSkips = map[domain.Stage][]domain.Stage{
		domain.StageProposal: {domain.StageWon},
	}
	skipping := New(cfg, repository.New(docstore.NewMemoryStore()), nil, nil, nil)
	if !containsStage(skipping.ValidTargets(domain.StageProposal), domain.StageWon) {
		t.Fatal("configured skip to Won not honored")
	}
}

func TestTransition_ConfiguredSkipIsAllowed(t *testing.T) {
	cfg := config.DefaultCRMConfig()
	cfg.Pipeline.AllowedSkips = map[domain.Stage][]domain.Stage{
		domain.StageNew: {domain.StageQualified},
	}
	repo := repository.New(docstore.NewMemoryStore())
	svc := New(cfg, repo, nil, nil, nil)

	tenantID := uuid.New()
	lead := seedLead(t, repo, domain.Lead{
		ID:       uuid.New(),
		TenantID: tenantID,
		Stage:    domain.StageNew,
		BANT:     domain.BANT{Budget: 3, Authority: 3, Need: 3, Timeline: 3},
	})

	updated, err := svc.Transition(context.Background(), tenantID, lead.ID, domain.StageQualified, domain.Actor{})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Stage != domain.StageQualified {
		t.Fatalf("expected stage Qualified, got %s", updated.Stage)
	}
}

func TestTransition_PreconditionNotMetListsMissing(t *testing.T) {
	svc, repo := newTestService(t, nil)
	tenantID := uuid.New()
	lead := seedLead(t, repo, domain.Lead{
		ID:       uuid.New(),
		TenantID: tenantID,
		Stage:    domain.StageQualified,
		BANT:     domain.BANT{Budget: 1, Authority: 1, Need: 3, Timeline: 3},
	})

	_, err := svc.Transition(context.Background(), tenantID, lead.ID, domain.StageProposal, domain.Actor{})
	var precondition *domain.PreconditionNotMetError
	if !errors.As(err, &precondition) {
		t.Fatalf("expected PreconditionNotMetError, got %v", err)
	}
	if precondition.Target != domain.StageProposal {
		t.Fatalf("unexpected target %s", precondition.Target)
	}
	if len(precondition.Missing) != 2 {
		t.Fatalf("expected 2 missing requirements, got %v", precondition.Missing)
	}
}

func TestTransition_LostIsUniversalAndArchives(t *testing.T) {
	svc, repo := newTestService(t, nil)
	tenantID := uuid.New()
	lead := seedLead(t, repo, domain.Lead{
		ID:       uuid.New(),
		TenantID: tenantID,
		Stage:    domain.StageNew,
	})

	updated, err := svc.Transition(context.Background(), tenantID, lead.ID, domain.StageLost, domain.Actor{})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Stage != domain.StageLost {
		t.Fatalf("expected stage Lost, got %s", updated.Stage)
	}
	if !updated.Archived {
		t.Fatal("terminal lead should be archived")
	}
	if updated.Probability != 0 {
		t.Fatalf("expected probability 0, got %f", updated.Probability)
	}
}

func TestTransition_WonConvertsInquiry(t *testing.T) {
	converter := &stubConverter{clientID: uuid.New()}
	svc, repo := newTestService(t, converter)
	tenantID := uuid.New()
	inquiryID := uuid.New()
	lead := seedLead(t, repo, domain.Lead{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Stage:     domain.StageNegotiation,
		BANT:      domain.BANT{Budget: 3, Authority: 3, Need: 3, Timeline: 3},
		InquiryID: &inquiryID,
	})

	updated, err := svc.Transition(context.Background(), tenantID, lead.ID, domain.StageWon, domain.Actor{})
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Stage != domain.StageWon || !updated.Archived {
		t.Fatalf("unexpected lead state %+v", updated)
	}
	if converter.calls != 1 {
		t.Fatalf("expected 1 conversion call, got %d", converter.calls)
	}

	activities, err := repo.ListActivities(context.Background(), tenantID, lead.ID)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(activities) != 2 {
		t.Fatalf("expected stage change and conversion activities, got %d", len(activities))
	}
	types := map[domain.ActivityType]int{}
	for _, a := range activities {
		types[a.Type]++
	}
	if types[domain.ActivityStageChanged] != 1 || types[domain.ActivityInquiryConverted] != 1 {
		t.Fatalf("unexpected activity mix %v", types)
	}
}

func TestTransition_WonSurvivesConversionFailure(t *testing.T) {
	converter := &stubConverter{err: fmt.Errorf("directory unavailable")}
	svc, repo := newTestService(t, converter)
	tenantID := uuid.New()
	inquiryID := uuid.New()
	lead := seedLead(t, repo, domain.Lead{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Stage:     domain.StageNegotiation,
		BANT:      domain.BANT{Budget: 3, Authority: 3, Need: 3, Timeline: 3},
		InquiryID: &inquiryID,
	})

	updated, err := svc.Transition(context.Background(), tenantID, lead.ID, domain.StageWon, domain.Actor{})
	var postErr *domain.PostTransitionError
	if !errors.As(err, &postErr) {
		t.Fatalf("expected PostTransitionError, got %v", err)
	}
	if updated.Stage != domain.StageWon {
		t.Fatalf("returned lead should be Won, got %s", updated.Stage)
	}

	stored, err := repo.GetLead(context.Background(), tenantID, lead.ID)
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if stored.Stage != domain.StageWon {
		t.Fatalf("transition must stay committed, got %s", stored.Stage)
	}
}

func TestCreate_StartsInNewWithInitialScore(t *testing.T) {
	svc, _ := newTestService(t, nil)
	tenantID := uuid.New()

	lead, err := svc.Create(context.Background(), tenantID, CreateParams{
		Name:       "Jonas Beck",
		Phone:      "(212) 555-0187",
		BANT:       domain.BANT{Budget: 3, Authority: 3, Need: 3, Timeline: 3},
		ValueCents: 250_000,
		OwnerID:    uuid.New(),
	}, domain.Actor{ID: uuid.New()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if lead.Stage != domain.StageNew {
		t.Fatalf("expected stage New, got %s", lead.Stage)
	}
	if lead.Probability != 0.10 {
		t.Fatalf("expected probability 0.10, got %f", lead.Probability)
	}
	if lead.Score.Composite != 60 || lead.Score.Tier != domain.TierWarm {
		t.Fatalf("unexpected initial score %d/%s", lead.Score.Composite, lead.Score.Tier)
	}
	if lead.Phone != "+12125550187" {
		t.Fatalf("expected normalized phone, got %q", lead.Phone)
	}
}

func TestCreate_RejectsOutOfRangeQualification(t *testing.T) {
	svc, _ := newTestService(t, nil)

	_, err := svc.Create(context.Background(), uuid.New(), CreateParams{
		Name: "x",
		BANT: domain.BANT{Budget: 6},
	}, domain.Actor{})
	if err == nil {
		t.Fatal("expected error for out-of-range BANT value")
	}
}
