// Package scoring computes BANT lead scores. Score is a pure function so the
// UI can call it speculatively for what-if previews; Apply is the persistence
// path that stores the result on the lead.
package scoring

import (
	"context"
	"errors"
	"time"

	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/platform/apperr"
	"coachdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// scoreVersion tracks the scoring model for debugging and analysis.
// Bump this when changing scoring logic significantly.
const scoreVersion = "2026-v1"

// Repo is the repository surface the scoring service needs.
type Repo interface {
	repository.LeadReader
	repository.LeadWriter
	repository.ActivityLedger
}

// Service computes and persists lead scores.
type Service struct {
	cfg  config.ScoringConfig
	repo Repo
	log  *logger.Logger

	// now is replaceable so tests can pin timestamps.
	now func() time.Time
}

// New creates a new scoring service.
func New(cfg config.ScoringConfig, repo Repo, log *logger.Logger) *Service {
	return &Service{
		cfg:  cfg,
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// Score computes the composite lead score for a BANT qualification.
// Deterministic and side-effect free: identical input always yields an
// identical result (modulo the ComputedAt stamp, set by the caller's clock).
func Score(cfg config.ScoringConfig, bant domain.BANT, now time.Time) domain.LeadScore {
	factors := map[string]float64{
		"budget":    float64(bant.Budget) * cfg.Weights.Budget,
		"authority": float64(bant.Authority) * cfg.Weights.Authority,
		"need":      float64(bant.Need) * cfg.Weights.Need,
		"timeline":  float64(bant.Timeline) * cfg.Weights.Timeline,
	}

	composite := 0.0
	for _, v := range factors {
		composite += v
	}
	if composite < 0 {
		composite = 0
	}
	if composite > float64(cfg.MaxComposite) {
		composite = float64(cfg.MaxComposite)
	}

	rounded := int(composite + 0.5)
	return domain.LeadScore{
		Composite:  rounded,
		Tier:       TierFor(cfg.Thresholds, rounded),
		Factors:    factors,
		ComputedAt: now,
	}
}

// TierFor buckets a composite via ascending cutoffs. A composite exactly at a
// cutoff belongs to the higher tier (inclusive lower bound). Empty cutoffs
// yield the zero tier.
func TierFor(thresholds []config.TierCutoff, composite int) domain.ScoreTier {
	var tier domain.ScoreTier
	if len(thresholds) > 0 {
		tier = thresholds[0].Tier
	}
	for _, cutoff := range thresholds {
		if composite >= cutoff.Min {
			tier = cutoff.Tier
		}
	}
	return tier
}

// Preview scores a BANT qualification without touching any lead.
func (s *Service) Preview(bant domain.BANT) domain.LeadScore {
	return Score(s.cfg, bant, s.now().UTC())
}

// Apply recomputes the score of a lead from its stored BANT qualification and
// persists lead and score-recomputed activity in one batch.
func (s *Service) Apply(ctx context.Context, tenantID, leadID uuid.UUID, actor domain.Actor) (domain.Lead, error) {
	lead, err := s.repo.GetLead(ctx, tenantID, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Lead{}, apperr.NotFound("lead not found")
		}
		return domain.Lead{}, err
	}

	now := s.now().UTC()
	lead.Score = Score(s.cfg, lead.BANT, now)
	lead.UpdatedAt = now

	leadOp, err := s.repo.PutLeadOp(lead)
	if err != nil {
		return domain.Lead{}, err
	}

	activityOp, err := s.repo.PutActivityOp(domain.Activity{
		ID:         uuid.New(),
		LeadID:     lead.ID,
		TenantID:   lead.TenantID,
		Type:       domain.ActivityScoreRecomputed,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		OccurredAt: now,
		Payload: domain.ScoreRecomputedPayload{
			Composite: lead.Score.Composite,
			Tier:      lead.Score.Tier,
		},
	})
	if err != nil {
		return domain.Lead{}, err
	}

	if err := s.repo.Commit(ctx, leadOp, activityOp); err != nil {
		return domain.Lead{}, err
	}

	if s.log != nil {
		s.log.Info("lead score recomputed",
			"lead_id", lead.ID, "composite", lead.Score.Composite,
			"tier", lead.Score.Tier, "version", scoreVersion)
	}

	return lead, nil
}
