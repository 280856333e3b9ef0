package scoring

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

func TestScore_BalancedQualificationLandsWarm(t *testing.T) {
	cfg := config.DefaultCRMConfig().Scoring
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	score := Score(cfg, domain.BANT{Budget: 3, Authority: 3, Need: 3, Timeline: 3}, now)

	if score.Composite != 60 {
		t.Fatalf("expected composite 60, got %d", score.Composite)
	}
	if score.Tier != domain.TierWarm {
		t.Fatalf("expected tier Warm, got %s", score.Tier)
	}
	if !score.ComputedAt.Equal(now) {
		t.Fatalf("expected computedAt %v, got %v", now, score.ComputedAt)
	}
}

func TestScore_IsDeterministic(t *testing.T) {
	cfg := config.DefaultCRMConfig().Scoring
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bant := domain.BANT{Budget: 2, Authority: 5, Need: 1, Timeline: 4}

	first := Score(cfg, bant, now)
	second := Score(cfg, bant, now)

	if first.Composite != second.Composite || first.Tier != second.Tier {
		t.Fatalf("same input produced different scores: %+v vs %+v", first, second)
	}
	for name, v := range first.Factors {
		if second.Factors[name] != v {
			t.Fatalf("factor %s differs: %f vs %f", name, v, second.Factors[name])
		}
	}
}

func TestScore_BoundaryResolvesToHigherTier(t *testing.T) {
	cfg := config.DefaultCRMConfig().Scoring
	now := time.Now().UTC()

	// 2+2+2+2 at weight 5 lands exactly on the Warm cutoff of 40.
	atWarm := Score(cfg, domain.BANT{Budget: 2, Authority: 2, Need: 2, Timeline: 2}, now)
	if atWarm.Composite != 40 {
		t.Fatalf("expected composite 40, got %d", atWarm.Composite)
	}
	if atWarm.Tier != domain.TierWarm {
		t.Fatalf("composite at cutoff should take the higher tier, got %s", atWarm.Tier)
	}

	// 3+3+4+4 lands exactly on the Hot cutoff of 70.
	atHot := Score(cfg, domain.BANT{Budget: 3, Authority: 3, Need: 4, Timeline: 4}, now)
	if atHot.Composite != 70 {
		t.Fatalf("expected composite 70, got %d", atHot.Composite)
	}
	if atHot.Tier != domain.TierHot {
		t.Fatalf("composite at cutoff should take the higher tier, got %s", atHot.Tier)
	}
}

func TestTierFor_EmptyCutoffsYieldZeroTier(t *testing.T) {
	if tier := TierFor(nil, 80); tier != "" {
		t.Fatalf("expected zero tier for empty cutoffs, got %q", tier)
	}
}

func TestScore_ClampsToConfiguredMaximum(t *testing.T) {
	cfg := config.DefaultCRMConfig().Scoring
	cfg.Weights = config.BANTWeights{Budget: 50, Authority: 50, Need: 50, Timeline: 50}

	score := Score(cfg, domain.BANT{Budget: 5, Authority: 5, Need: 5, Timeline: 5}, time.Now().UTC())

	if score.Composite != cfg.MaxComposite {
		t.Fatalf("expected composite clamped to %d, got %d", cfg.MaxComposite, score.Composite)
	}
}

func TestApply_PersistsScoreAndActivityTogether(t *testing.T) {
	store := docstore.NewMemoryStore()
	repo := repository.New(store)
	svc := New(config.DefaultCRMConfig().Scoring, repo, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }

	tenantID := uuid.New()
	lead := domain.Lead{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     "Dana Voss",
		Stage:    domain.StageQualified,
		BANT:     domain.BANT{Budget: 4, Authority: 4, Need: 4, Timeline: 4},
	}
	op, err := repo.PutLeadOp(lead)
	if err != nil {
		t.Fatalf("put lead: %v", err)
	}
	if err := repo.Commit(context.Background(), op); err != nil {
		t.Fatalf("commit lead: %v", err)
	}

	updated, err := svc.Apply(context.Background(), tenantID, lead.ID, domain.Actor{ID: uuid.New()})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if updated.Score.Composite != 80 || updated.Score.Tier != domain.TierHot {
		t.Fatalf("unexpected score %d/%s", updated.Score.Composite, updated.Score.Tier)
	}

	stored, err := repo.GetLead(context.Background(), tenantID, lead.ID)
	if err != nil {
		t.Fatalf("get lead: %v", err)
	}
	if stored.Score.Composite != 80 {
		t.Fatalf("score not persisted, got %d", stored.Score.Composite)
	}

	activities, err := repo.ListActivities(context.Background(), tenantID, lead.ID)
	if err != nil {
		t.Fatalf("list activities: %v", err)
	}
	if len(activities) != 1 {
		t.Fatalf("expected 1 activity, got %d", len(activities))
	}
	if activities[0].Type != domain.ActivityScoreRecomputed {
		t.Fatalf("expected score_recomputed activity, got %s", activities[0].Type)
	}
}

func TestApply_UnknownLeadReturnsNotFound(t *testing.T) {
	repo := repository.New(docstore.NewMemoryStore())
	svc := New(config.DefaultCRMConfig().Scoring, repo, nil)

	_, err := svc.Apply(context.Background(), uuid.New(), uuid.New(), domain.Actor{})
	if err == nil {
		t.Fatal("expected error for unknown lead")
	}
}
