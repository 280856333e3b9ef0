package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"coachdesk_backend/internal/crm/domain"

	"gopkg.in/yaml.v3"
)

// CRMConfig holds the replaceable CRM tables: stage probabilities and entry
// requirements, stage skips, BANT scoring weights and tier thresholds, and
// health scoring weights and status thresholds. All values have working
// defaults; a YAML file may override any section wholesale.
type CRMConfig struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Scoring  ScoringConfig  `yaml:"scoring"`
	Health   HealthConfig   `yaml:"health"`
}

// PipelineConfig drives the pipeline engine.
type PipelineConfig struct {
	// Probabilities maps each stage to its probability of close.
	Probabilities map[domain.Stage]float64 `yaml:"probabilities"`
	// Requirements lists the minimum BANT values required to ENTER a stage.
	Requirements map[domain.Stage]StageRequirement `yaml:"requirements"`
	// AllowedSkips lists non-adjacent forward targets explicitly permitted
	// per source stage. Empty by default: only adjacent moves and the
	// universal Lost escape are legal.
	AllowedSkips map[domain.Stage][]domain.Stage `yaml:"allowedSkips"`
	// StaleThresholdDays flags active leads with no update for this long.
	StaleThresholdDays int `yaml:"staleThresholdDays"`
}

// StaleThreshold returns the staleness cutoff as a duration.
func (p PipelineConfig) StaleThreshold() time.Duration {
	return time.Duration(p.StaleThresholdDays) * 24 * time.Hour
}

// StageRequirement is the minimum BANT qualification to enter a stage.
// Zero values impose no requirement on that dimension.
type StageRequirement struct {
	MinBudget    int `yaml:"minBudget"`
	MinAuthority int `yaml:"minAuthority"`
	MinNeed      int `yaml:"minNeed"`
	MinTimeline  int `yaml:"minTimeline"`
}

// Missing returns human-readable names of the dimensions below their minimum.
func (r StageRequirement) Missing(bant domain.BANT) []string {
	var missing []string
	if bant.Budget < r.MinBudget {
		missing = append(missing, fmt.Sprintf("budget >= %d", r.MinBudget))
	}
	if bant.Authority < r.MinAuthority {
		missing = append(missing, fmt.Sprintf("authority >= %d", r.MinAuthority))
	}
	if bant.Need < r.MinNeed {
		missing = append(missing, fmt.Sprintf("need >= %d", r.MinNeed))
	}
	if bant.Timeline < r.MinTimeline {
		missing = append(missing, fmt.Sprintf("timeline >= %d", r.MinTimeline))
	}
	return missing
}

// ScoringConfig drives the BANT lead scoring engine.
type ScoringConfig struct {
	Weights      BANTWeights `yaml:"weights"`
	MaxComposite int         `yaml:"maxComposite"`
	// Thresholds are ascending inclusive lower bounds per tier.
	Thresholds []TierCutoff `yaml:"thresholds"`
}

// BANTWeights are the per-point weights per BANT dimension.
type BANTWeights struct {
	Budget    float64 `yaml:"budget"`
	Authority float64 `yaml:"authority"`
	Need      float64 `yaml:"need"`
	Timeline  float64 `yaml:"timeline"`
}

// TierCutoff assigns a tier to composites at or above Min.
type TierCutoff struct {
	Tier domain.ScoreTier `yaml:"tier"`
	Min  int              `yaml:"min"`
}

// HealthConfig drives the client health scoring engine.
type HealthConfig struct {
	Weights HealthWeights `yaml:"weights"`
	// Thresholds are ascending inclusive lower bounds per status.
	Thresholds []HealthCutoff `yaml:"thresholds"`
	// AlertOn lists the statuses that raise an alert when entered from a
	// better status during recompute.
	AlertOn []domain.HealthStatus `yaml:"alertOn"`
}

// HealthWeights weight each engagement signal's 0-100 contribution.
// They should sum to 1.
type HealthWeights struct {
	Attendance     float64 `yaml:"attendance"`
	LoginRecency   float64 `yaml:"loginRecency"`
	ToolCompletion float64 `yaml:"toolCompletion"`
	NPS            float64 `yaml:"nps"`
}

// HealthCutoff assigns a status to scores at or above Min.
type HealthCutoff struct {
	Status domain.HealthStatus `yaml:"status"`
	Min    int                 `yaml:"min"`
}

// DefaultCRMConfig returns the built-in tables.
func DefaultCRMConfig() CRMConfig {
	return CRMConfig{
		Pipeline: PipelineConfig{
			Probabilities: map[domain.Stage]float64{
				domain.StageNew:         0.10,
				domain.StageContacted:   0.20,
				domain.StageQualified:   0.35,
				domain.StageProposal:    0.50,
				domain.StageNegotiation: 0.75,
				domain.StageWon:         1.00,
				domain.StageLost:        0.00,
			},
			Requirements: map[domain.Stage]StageRequirement{
				domain.StageQualified:   {MinNeed: 1},
				domain.StageProposal:    {MinBudget: 2, MinAuthority: 2},
				domain.StageNegotiation: {MinBudget: 2, MinAuthority: 2, MinNeed: 2},
				domain.StageWon:         {MinBudget: 1, MinAuthority: 1, MinNeed: 1, MinTimeline: 1},
			},
			AllowedSkips:       map[domain.Stage][]domain.Stage{},
			StaleThresholdDays: 14,
		},
		Scoring: ScoringConfig{
			Weights: BANTWeights{
				Budget:    5,
				Authority: 5,
				Need:      5,
				Timeline:  5,
			},
			MaxComposite: 100,
			Thresholds: []TierCutoff{
				{Tier: domain.TierCold, Min: 0},
				{Tier: domain.TierWarm, Min: 40},
				{Tier: domain.TierHot, Min: 70},
			},
		},
		Health: HealthConfig{
			Weights: HealthWeights{
				Attendance:     0.35,
				LoginRecency:   0.25,
				ToolCompletion: 0.25,
				NPS:            0.15,
			},
			Thresholds: []HealthCutoff{
				{Status: domain.HealthCritical, Min: 0},
				{Status: domain.HealthAtRisk, Min: 40},
				{Status: domain.HealthHealthy, Min: 70},
			},
			AlertOn: []domain.HealthStatus{domain.HealthAtRisk, domain.HealthCritical},
		},
	}
}

// LoadCRMConfig returns the defaults, overridden by the YAML file at path
// when one is given. Overrides replace whole sections: a file that sets any
// scoring threshold must list all of them.
func LoadCRMConfig(path string) (CRMConfig, error) {
	cfg := DefaultCRMConfig()

	if strings.TrimSpace(path) != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return CRMConfig{}, fmt.Errorf("read crm config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return CRMConfig{}, fmt.Errorf("parse crm config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return CRMConfig{}, err
	}
	return cfg, nil
}

func (c CRMConfig) validate() error {
	for _, stage := range domain.StageOrder {
		if _, ok := c.Pipeline.Probabilities[stage]; !ok {
			return fmt.Errorf("crm config: missing probability for stage %s", stage)
		}
	}
	if len(c.Scoring.Thresholds) == 0 {
		return fmt.Errorf("crm config: scoring thresholds are empty")
	}
	if err := ascending(cutoffMins(c.Scoring.Thresholds)); err != nil {
		return fmt.Errorf("crm config: scoring thresholds: %w", err)
	}
	if len(c.Health.Thresholds) == 0 {
		return fmt.Errorf("crm config: health thresholds are empty")
	}
	if err := ascending(healthCutoffMins(c.Health.Thresholds)); err != nil {
		return fmt.Errorf("crm config: health thresholds: %w", err)
	}
	if c.Scoring.MaxComposite <= 0 {
		return fmt.Errorf("crm config: maxComposite must be positive")
	}
	if c.Pipeline.StaleThresholdDays <= 0 {
		return fmt.Errorf("crm config: staleThresholdDays must be positive")
	}
	return nil
}

func cutoffMins(cutoffs []TierCutoff) []int {
	mins := make([]int, 0, len(cutoffs))
	for _, c := range cutoffs {
		mins = append(mins, c.Min)
	}
	return mins
}

func healthCutoffMins(cutoffs []HealthCutoff) []int {
	mins := make([]int, 0, len(cutoffs))
	for _, c := range cutoffs {
		mins = append(mins, c.Min)
	}
	return mins
}

func ascending(values []int) error {
	for i := 1; i < len(values); i++ {
		if values[i] <= values[i-1] {
			return fmt.Errorf("cutoffs must be strictly ascending")
		}
	}
	return nil
}
