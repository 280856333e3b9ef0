// Package health scores client engagement and raises retention alerts.
// Signals come from an injected provider; a recompute never fails on missing
// data, it degrades to neutral defaults and a partial confidence flag.
package health

import (
	"context"
	"errors"
	"time"

	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/domain"
	"coachdesk_backend/internal/crm/repository"
	"coachdesk_backend/internal/events"
	"coachdesk_backend/platform/apperr"
	"coachdesk_backend/platform/docstore"
	"coachdesk_backend/platform/logger"

	"github.com/google/uuid"
)

// Neutral defaults per absent signal. Chosen to land mid-range so a client
// with no data at all scores AtRisk rather than Critical or Healthy.
const (
	defaultAttendanceRate = 0.5
	defaultDaysSinceLogin = 14
	defaultToolCompletion = 0.5
	defaultNPS            = 7
)

// loginDecayDays is the recency horizon: a login today scores 100, one
// loginDecayDays ago or older scores 0, linear in between.
const loginDecayDays = 30

// SignalsProvider supplies the engagement input bundle for one client.
type SignalsProvider interface {
	Signals(ctx context.Context, tenantID, clientID uuid.UUID) (domain.EngagementSignals, error)
}

// Repo is the repository surface the health service needs.
type Repo interface {
	repository.HealthStore
}

// Service recomputes client health and manages alerts.
type Service struct {
	cfg      config.HealthConfig
	repo     Repo
	provider SignalsProvider
	bus      events.Bus
	log      *logger.Logger

	now func() time.Time
}

// New creates a new health service.
func New(cfg config.HealthConfig, repo Repo, provider SignalsProvider, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		cfg:      cfg,
		repo:     repo,
		provider: provider,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// Compute derives a health score from the given signals. Pure: absent
// signals contribute their neutral default and downgrade confidence to
// partial, and the weighted sum is clamped to 0-100 before bucketing.
func Compute(cfg config.HealthConfig, tenantID, clientID uuid.UUID, signals domain.EngagementSignals, now time.Time) domain.ClientHealthScore {
	attendance := defaultAttendanceRate
	if signals.SessionAttendanceRate != nil {
		attendance = *signals.SessionAttendanceRate
	}
	daysSinceLogin := defaultDaysSinceLogin
	if signals.DaysSinceLastLogin != nil {
		daysSinceLogin = *signals.DaysSinceLastLogin
	}
	toolCompletion := defaultToolCompletion
	if signals.ToolCompletionRate != nil {
		toolCompletion = *signals.ToolCompletionRate
	}
	nps := defaultNPS
	if signals.NPS != nil {
		nps = *signals.NPS
	}

	factors := map[string]float64{
		"attendance":     clamp01(attendance) * 100 * cfg.Weights.Attendance,
		"loginRecency":   loginRecencyScore(daysSinceLogin) * cfg.Weights.LoginRecency,
		"toolCompletion": clamp01(toolCompletion) * 100 * cfg.Weights.ToolCompletion,
		"nps":            npsScore(nps) * cfg.Weights.NPS,
	}

	total := 0.0
	for _, v := range factors {
		total += v
	}
	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	score := int(total + 0.5)

	confidence := domain.ConfidenceFull
	if !signals.Complete() {
		confidence = domain.ConfidencePartial
	}

	return domain.ClientHealthScore{
		ClientID:       clientID,
		TenantID:       tenantID,
		Score:          score,
		Status:         StatusFor(cfg.Thresholds, score),
		Factors:        factors,
		Confidence:     confidence,
		LastComputedAt: now,
	}
}

// StatusFor buckets a score via ascending cutoffs. A score exactly at a
// cutoff belongs to the better status (inclusive lower bound). Empty cutoffs
// yield the zero status.
func StatusFor(thresholds []config.HealthCutoff, score int) domain.HealthStatus {
	var status domain.HealthStatus
	if len(thresholds) > 0 {
		status = thresholds[0].Status
	}
	for _, cutoff := range thresholds {
		if score >= cutoff.Min {
			status = cutoff.Status
		}
	}
	return status
}

// Recompute scores a client from the given signals and persists the result.
// A downward status crossing into an alerting status raises exactly one
// HealthAlert, stored in the same batch as the score; an upward crossing
// never touches existing alerts.
func (s *Service) Recompute(ctx context.Context, tenantID, clientID uuid.UUID, signals domain.EngagementSignals) (domain.ClientHealthScore, error) {
	var previous *domain.ClientHealthScore
	stored, err := s.repo.GetHealthScore(ctx, tenantID, clientID)
	switch {
	case err == nil:
		previous = &stored
	case errors.Is(err, repository.ErrNotFound):
		// first computation for this client
	default:
		return domain.ClientHealthScore{}, err
	}

	now := s.now().UTC()
	score := Compute(s.cfg, tenantID, clientID, signals, now)

	scoreOp, err := s.repo.PutHealthScoreOp(score)
	if err != nil {
		return domain.ClientHealthScore{}, err
	}
	ops := []docstore.WriteOp{scoreOp}

	var alert *domain.HealthAlert
	if previous != nil && crossedDown(s.cfg.AlertOn, previous.Status, score.Status) {
		a := domain.HealthAlert{
			ID:         uuid.New(),
			ClientID:   clientID,
			TenantID:   tenantID,
			Type:       alertType(score.Status),
			FromStatus: previous.Status,
			ToStatus:   score.Status,
			Score:      score.Score,
			RaisedAt:   now,
		}
		alertOp, err := s.repo.PutAlertOp(a)
		if err != nil {
			return domain.ClientHealthScore{}, err
		}
		ops = append(ops, alertOp)
		alert = &a
	}

	if err := s.repo.Commit(ctx, ops...); err != nil {
		return domain.ClientHealthScore{}, err
	}

	if alert != nil {
		if s.log != nil {
			s.log.HealthAlert(clientID.String(), string(alert.Type),
				string(alert.FromStatus), string(alert.ToStatus), alert.Score)
		}
		if s.bus != nil {
			s.bus.Publish(ctx, events.HealthAlertRaised{
				BaseEvent:  events.NewBaseEvent(),
				AlertID:    alert.ID,
				ClientID:   clientID,
				TenantID:   tenantID,
				Type:       alert.Type,
				FromStatus: alert.FromStatus,
				ToStatus:   alert.ToStatus,
				Score:      alert.Score,
			})
		}
	}

	return score, nil
}

// RecomputeFromProvider pulls signals from the injected provider and
// recomputes. A provider failure degrades to empty signals rather than
// failing the recompute.
func (s *Service) RecomputeFromProvider(ctx context.Context, tenantID, clientID uuid.UUID) (domain.ClientHealthScore, error) {
	var signals domain.EngagementSignals
	if s.provider != nil {
		got, err := s.provider.Signals(ctx, tenantID, clientID)
		if err != nil {
			if s.log != nil {
				s.log.Warn("signals provider failed, using defaults",
					"client_id", clientID, "error", err)
			}
		} else {
			signals = got
		}
	}
	return s.Recompute(ctx, tenantID, clientID, signals)
}

// GetScore returns the stored health score of a client.
func (s *Service) GetScore(ctx context.Context, tenantID, clientID uuid.UUID) (domain.ClientHealthScore, error) {
	score, err := s.repo.GetHealthScore(ctx, tenantID, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ClientHealthScore{}, apperr.NotFound("health score not found")
		}
		return domain.ClientHealthScore{}, err
	}
	return score, nil
}

// Acknowledge marks an alert as handled. Acknowledging an already-handled
// alert is a no-op returning the stored alert.
func (s *Service) Acknowledge(ctx context.Context, tenantID, alertID uuid.UUID, actor domain.Actor) (domain.HealthAlert, error) {
	alert, err := s.repo.GetAlert(ctx, tenantID, alertID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.HealthAlert{}, apperr.NotFound("alert not found")
		}
		return domain.HealthAlert{}, err
	}
	if alert.Acknowledged {
		return alert, nil
	}

	now := s.now().UTC()
	alert.Acknowledged = true
	alert.AcknowledgedBy = &actor.ID
	alert.AcknowledgedAt = &now

	op, err := s.repo.PutAlertOp(alert)
	if err != nil {
		return domain.HealthAlert{}, err
	}
	if err := s.repo.Commit(ctx, op); err != nil {
		return domain.HealthAlert{}, err
	}
	return alert, nil
}

// ListAlerts returns alerts for a tenant, newest first.
func (s *Service) ListAlerts(ctx context.Context, tenantID uuid.UUID, params repository.ListAlertsParams) ([]domain.HealthAlert, error) {
	return s.repo.ListAlerts(ctx, tenantID, params)
}

// crossedDown reports whether moving from prev to next drops the status into
// one of the alerting statuses.
func crossedDown(alertOn []domain.HealthStatus, prev, next domain.HealthStatus) bool {
	if domain.HealthRank(next) >= domain.HealthRank(prev) {
		return false
	}
	for _, s := range alertOn {
		if s == next {
			return true
		}
	}
	return false
}

func alertType(status domain.HealthStatus) domain.HealthAlertType {
	if status == domain.HealthCritical {
		return domain.AlertDroppedToCritical
	}
	return domain.AlertDroppedToAtRisk
}

// loginRecencyScore maps days since last login to 0-100: a login today is
// 100, loginDecayDays or more ago is 0, linear in between.
func loginRecencyScore(days int) float64 {
	if days <= 0 {
		return 100
	}
	if days >= loginDecayDays {
		return 0
	}
	return 100 * (1 - float64(days)/loginDecayDays)
}

func npsScore(nps int) float64 {
	if nps < 0 {
		nps = 0
	}
	if nps > 10 {
		nps = 10
	}
	return float64(nps) * 10
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
