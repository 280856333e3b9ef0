// Package metrics derives pipeline reporting views from a lead slice. The
// aggregation is pure and never persisted; the HTTP layer loads leads through
// the repository and aggregates on demand.
package metrics

import (
	"time"

	"coachdesk_backend/internal/config"
	"coachdesk_backend/internal/crm/domain"

	"github.com/google/uuid"
)

// StageMetrics summarizes the in-flight leads of one active stage.
type StageMetrics struct {
	Stage domain.Stage `json:"stage"`
	Count int          `json:"count"`
	// WeightedValueCents is the sum of value x probability over the stage.
	WeightedValueCents int64 `json:"weightedValueCents"`
	// AverageAge is the mean of now - createdAt over the stage's leads.
	AverageAge time.Duration `json:"averageAge"`
}

// ConversionRate is Won/(Won+Lost) over the aggregation window. Defined is
// false when the window holds no closed leads at all; Rate is then zero and
// meaningless. Callers must distinguish that from an actual 0% rate.
type ConversionRate struct {
	Defined bool    `json:"defined"`
	Rate    float64 `json:"rate"`
	Won     int     `json:"won"`
	Lost    int     `json:"lost"`
}

// PipelineMetrics is the derived reporting view over a set of leads.
type PipelineMetrics struct {
	Stages       []StageMetrics `json:"stages"`
	Conversion   ConversionRate `json:"conversion"`
	StaleLeadIDs []uuid.UUID    `json:"staleLeadIds"`
	GeneratedAt  time.Time      `json:"generatedAt"`
}

// Window bounds the conversion-rate calculation by lead update time. A zero
// From or To leaves that side unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

// Aggregate computes pipeline metrics over the given leads. Per-stage counts,
// weighted value and average age cover active stages only; closed leads feed
// the conversion rate when their close time falls inside the window; active
// leads not updated within the staleness threshold are flagged stale.
func Aggregate(cfg config.PipelineConfig, leads []domain.Lead, window Window, now time.Time) PipelineMetrics {
	type accum struct {
		count    int
		weighted float64
		ages     time.Duration
	}
	byStage := make(map[domain.Stage]*accum, len(domain.ActiveStages))
	for _, stage := range domain.ActiveStages {
		byStage[stage] = &accum{}
	}

	conversion := ConversionRate{}
	staleThreshold := cfg.StaleThreshold()
	var staleIDs []uuid.UUID

	for _, lead := range leads {
		switch lead.Stage {
		case domain.StageWon:
			if window.Contains(lead.UpdatedAt) {
				conversion.Won++
			}
			continue
		case domain.StageLost:
			if window.Contains(lead.UpdatedAt) {
				conversion.Lost++
			}
			continue
		}

		acc, ok := byStage[lead.Stage]
		if !ok {
			continue
		}
		acc.count++
		acc.weighted += float64(lead.ValueCents) * lead.Probability
		acc.ages += lead.Age(now)

		if lead.StaleSince(now, staleThreshold) {
			staleIDs = append(staleIDs, lead.ID)
		}
	}

	closed := conversion.Won + conversion.Lost
	if closed > 0 {
		conversion.Defined = true
		conversion.Rate = float64(conversion.Won) / float64(closed)
	}

	stages := make([]StageMetrics, 0, len(domain.ActiveStages))
	for _, stage := range domain.ActiveStages {
		acc := byStage[stage]
		m := StageMetrics{
			Stage:              stage,
			Count:              acc.count,
			WeightedValueCents: int64(acc.weighted + 0.5),
		}
		if acc.count > 0 {
			m.AverageAge = acc.ages / time.Duration(acc.count)
		}
		stages = append(stages, m)
	}

	return PipelineMetrics{
		Stages:       stages,
		Conversion:   conversion,
		StaleLeadIDs: staleIDs,
		GeneratedAt:  now,
	}
}
