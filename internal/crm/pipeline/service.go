// Package pipeline moves leads through the sales funnel. Transitions are
// validated against the configured stage order, entry requirements and
// allowed skips; every stage change lands in the activity ledger in the same
// batch as the lead itself.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/internal/crm/scoring"
	"coachdesk_backend/internal/events"
	"coachdesk_backend/platform/apperr"
	"coachdesk_backend/platform/logger"
	"coachdesk_backend/platform/phone"

	"github.com/google/uuid"
)

// Repo is the repository surface the pipeline service needs.
type Repo interface {
	repository.LeadReader
	repository.LeadWriter
	repository.ActivityLedger
}

// InquiryConverter finalizes the Won side of an inquiry-originated lead:
// it writes the client record and flips the inquiry to converted. Implemented
// by the inquiries module.
type InquiryConverter interface {
	MarkConverted(ctx context.Context, tenantID, inquiryID, leadID uuid.UUID) (clientID uuid.UUID, err error)
}

// Service is the pipeline engine.
type Service struct {
	cfg       config.CRMConfig
	repo      Repo
	converter InquiryConverter
	bus       events.Bus
	log       *logger.Logger

	now func() time.Time
}

// New creates a new pipeline service. converter may be nil when the
// deployment has no inquiry directory; Won transitions then skip conversion.
func New(cfg config.CRMConfig, repo Repo, converter InquiryConverter, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		cfg:       cfg,
		repo:      repo,
		converter: converter,
		bus:       bus,
		log:       log,
		now:       time.Now,
	}
}

// CreateParams carries the caller-supplied fields of a new lead.
type CreateParams struct {
	Name       string
	Email      string
	Phone      string
	Source     string
	BANT       domain.BANT
	ValueCents int64
	OwnerID    uuid.UUID
	InquiryID  *uuid.UUID
}

// Create opens a new lead in the New stage, scored from its initial BANT
// qualification.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, params CreateParams, actor domain.Actor) (domain.Lead, error) {
	if err := validateBANT(params.BANT); err != nil {
		return domain.Lead{}, err
	}

	now := s.now().UTC()
	lead := domain.Lead{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        params.Name,
		Email:       params.Email,
		Phone:       phone.NormalizeE164(params.Phone),
		Source:      params.Source,
		Stage:       domain.StageNew,
		BANT:        params.BANT,
		Score:       scoring.Score(s.cfg.Scoring, params.BANT, now),
		ValueCents:  params.ValueCents,
		Probability: s.cfg.Pipeline.Probabilities[domain.StageNew],
		OwnerID:     params.OwnerID,
		InquiryID:   params.InquiryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	op, err := s.repo.PutLeadOp(lead)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := s.repo.Commit(ctx, op); err != nil {
		return domain.Lead{}, err
	}

	s.publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		TenantID:  tenantID,
		OwnerID:   lead.OwnerID,
		Source:    lead.Source,
		InquiryID: lead.InquiryID,
	})

	return lead, nil
}

// Get returns a single lead.
func (s *Service) Get(ctx context.Context, tenantID, leadID uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetLead(ctx, tenantID, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Lead{}, apperr.NotFound("lead not found")
		}
		return domain.Lead{}, err
	}
	return lead, nil
}

// List returns leads for a tenant, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, params repository.ListLeadsParams) ([]domain.Lead, error) {
	return s.repo.ListLeads(ctx, tenantID, params)
}

// UpdateQualification replaces the BANT values of a lead and recomputes its
// score in the same write.
func (s *Service) UpdateQualification(ctx context.Context, tenantID, leadID uuid.UUID, bant domain.BANT) (domain.Lead, error) {
	if err := validateBANT(bant); err != nil {
		return domain.Lead{}, err
	}

	lead, err := s.Get(ctx, tenantID, leadID)
	if err != nil {
		return domain.Lead{}, err
	}

	now := s.now().UTC()
	lead.BANT = bant
	lead.Score = scoring.Score(s.cfg.Scoring, bant, now)
	lead.UpdatedAt = now

	op, err := s.repo.PutLeadOp(lead)
	if err != nil {
		return domain.Lead{}, err
	}
	if err := s.repo.Commit(ctx, op); err != nil {
		return domain.Lead{}, err
	}
	return lead, nil
}

// ValidTargets lists the stages a lead may move to from its current stage:
// the immediate next funnel stage, any configured skips, and the universal
// Lost escape. Won is ordinary funnel progression, reachable only from
// Negotiation or through a configured skip. Terminal stages have no targets.
func (s *Service) ValidTargets(from domain.Stage) []domain.Stage {
	return validTargets(s.cfg.Pipeline, from)
}

func validTargets(cfg config.PipelineConfig, from domain.Stage) []domain.Stage {
	if from.IsTerminal() {
		return nil
	}

	var targets []domain.Stage
	if next := domain.NextStage(from); next != "" {
		targets = append(targets, next)
	}
	for _, skip := range cfg.AllowedSkips[from] {
		if !containsStage(targets, skip) {
			targets = append(targets, skip)
		}
	}
	targets = append(targets, domain.StageLost)
	return targets
}

// Transition moves a lead to the target stage. The lead and its stage-change
// activity are committed in one batch. A Won transition of an
// inquiry-originated lead additionally converts the inquiry in a second,
// independent batch; when that second step fails the lead STAYS Won and the
// caller receives a PostTransitionError for manual remediation.
func (s *Service) Transition(ctx context.Context, tenantID, leadID uuid.UUID, target domain.Stage, actor domain.Actor) (domain.Lead, error) {
	if !domain.IsKnownStage(target) {
		return domain.Lead{}, apperr.BadRequest(fmt.Sprintf("unknown stage %q", target))
	}

	lead, err := s.Get(ctx, tenantID, leadID)
	if err != nil {
		return domain.Lead{}, err
	}

	targets := validTargets(s.cfg.Pipeline, lead.Stage)
	if !containsStage(targets, target) {
		return domain.Lead{}, &domain.InvalidTransitionError{
			From:         lead.Stage,
			To:           target,
			ValidTargets: targets,
		}
	}

	if req, ok := s.cfg.Pipeline.Requirements[target]; ok {
		if missing := req.Missing(lead.BANT); len(missing) > 0 {
			return domain.Lead{}, &domain.PreconditionNotMetError{
				Target:  target,
				Missing: missing,
			}
		}
	}

	now := s.now().UTC()
	from := lead.Stage
	lead.Stage = target
	lead.Probability = s.cfg.Pipeline.Probabilities[target]
	lead.UpdatedAt = now
	if target.IsTerminal() {
		lead.Archived = true
	}

	leadOp, err := s.repo.PutLeadOp(lead)
	if err != nil {
		return domain.Lead{}, err
	}
	activityOp, err := s.repo.PutActivityOp(domain.Activity{
		ID:         uuid.New(),
		LeadID:     lead.ID,
		TenantID:   tenantID,
		Type:       domain.ActivityStageChanged,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		OccurredAt: now,
		Payload: domain.StageChangedPayload{
			From:        from,
			To:          target,
			Probability: lead.Probability,
		},
	})
	if err != nil {
		return domain.Lead{}, err
	}

	if err := s.repo.Commit(ctx, leadOp, activityOp); err != nil {
		return domain.Lead{}, err
	}

	if s.log != nil {
		s.log.StageTransition(lead.ID.String(), string(from), string(target), lead.Probability)
	}

	s.publish(ctx, events.LeadStageChanged{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      lead.ID,
		TenantID:    tenantID,
		From:        from,
		To:          target,
		Probability: lead.Probability,
		ActorID:     actor.ID,
	})

	switch target {
	case domain.StageWon:
		s.publish(ctx, events.LeadWon{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			TenantID:   tenantID,
			ValueCents: lead.ValueCents,
		})
		if err := s.convertInquiry(ctx, lead, actor, now); err != nil {
			return lead, &domain.PostTransitionError{LeadID: lead.ID, Stage: target, Err: err}
		}
	case domain.StageLost:
		s.publish(ctx, events.LeadLost{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    lead.ID,
			TenantID:  tenantID,
			From:      from,
		})
	}

	return lead, nil
}

// convertInquiry runs the Won side effect for inquiry-originated leads. It is
// deliberately a separate batch from the transition itself: the transition
// has already committed and is never rolled back here.
func (s *Service) convertInquiry(ctx context.Context, lead domain.Lead, actor domain.Actor, now time.Time) error {
	if lead.InquiryID == nil || s.converter == nil {
		return nil
	}

	clientID, err := s.converter.MarkConverted(ctx, lead.TenantID, *lead.InquiryID, lead.ID)
	if err != nil {
		return fmt.Errorf("convert inquiry %s: %w", *lead.InquiryID, err)
	}

	activityOp, err := s.repo.PutActivityOp(domain.Activity{
		ID:         uuid.New(),
		LeadID:     lead.ID,
		TenantID:   lead.TenantID,
		Type:       domain.ActivityInquiryConverted,
		ActorID:    actor.ID,
		ActorName:  actor.Name,
		OccurredAt: now,
		Payload: domain.InquiryConvertedPayload{
			InquiryID: *lead.InquiryID,
			ClientID:  clientID,
		},
	})
	if err != nil {
		return err
	}
	if err := s.repo.Commit(ctx, activityOp); err != nil {
		return err
	}

	s.publish(ctx, events.InquiryConverted{
		BaseEvent: events.NewBaseEvent(),
		InquiryID: *lead.InquiryID,
		ClientID:  clientID,
		TenantID:  lead.TenantID,
		LeadID:    lead.ID,
	})
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus != nil {
		s.bus.Publish(ctx, event)
	}
}

func validateBANT(bant domain.BANT) error {
	for _, name := range []string{"budget", "authority", "need", "timeline"} {
		v := bant.Dimension(name)
		if v < 0 || v > 5 {
			return apperr.BadRequest(fmt.Sprintf("%s must be between 0 and 5", name))
		}
	}
	return nil
}

func containsStage(stages []domain.Stage, stage domain.Stage) bool {
	for _, s := range stages {
		if s == stage {
			return true
		}
	}
	return false
}
