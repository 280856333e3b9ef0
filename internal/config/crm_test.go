package config

import (
	"os"
	"path/filepath"
	"testing"

	"coachdesk_backend/internal/crm/domain"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crm.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadCRMConfig_EmptyPathReturnsValidDefaults(t *testing.T) {
	cfg, err := LoadCRMConfig("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Pipeline.Probabilities[domain.StageNew] != 0.10 {
		t.Fatalf("unexpected default probability %v", cfg.Pipeline.Probabilities[domain.StageNew])
	}
	if cfg.Scoring.MaxComposite != 100 {
		t.Fatalf("unexpected maxComposite %d", cfg.Scoring.MaxComposite)
	}
	if cfg.Pipeline.StaleThresholdDays != 14 {
		t.Fatalf("unexpected stale threshold %d", cfg.Pipeline.StaleThresholdDays)
	}
	if len(cfg.Health.AlertOn) != 2 {
		t.Fatalf("expected 2 alerting statuses, got %d", len(cfg.Health.AlertOn))
	}
}

func TestLoadCRMConfig_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  staleThresholdDays: 30
  allowedSkips:
    New: [Qualified]
scoring:
  weights:
    budget: 10
    authority: 5
    need: 5
    timeline: 5
`)

	cfg, err := LoadCRMConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.StaleThresholdDays != 30 {
		t.Fatalf("expected override 30, got %d", cfg.Pipeline.StaleThresholdDays)
	}
	skips := cfg.Pipeline.AllowedSkips[domain.StageNew]
	if len(skips) != 1 || skips[0] != domain.StageQualified {
		t.Fatalf("unexpected skips %v", skips)
	}
	if cfg.Scoring.Weights.Budget != 10 {
		t.Fatalf("expected budget weight 10, got %v", cfg.Scoring.Weights.Budget)
	}
	// untouched sections keep their defaults
	if cfg.Pipeline.Probabilities[domain.StageProposal] != 0.50 {
		t.Fatalf("defaults lost: %v", cfg.Pipeline.Probabilities[domain.StageProposal])
	}
	if cfg.Scoring.MaxComposite != 100 {
		t.Fatalf("defaults lost: %d", cfg.Scoring.MaxComposite)
	}
}

func TestLoadCRMConfig_RejectsNonAscendingCutoffs(t *testing.T) {
	path := writeConfig(t, `
scoring:
  thresholds:
    - tier: Cold
      min: 0
    - tier: Hot
      min: 70
    - tier: Warm
      min: 40
`)

	if _, err := LoadCRMConfig(path); err == nil {
		t.Fatal("expected error for out-of-order cutoffs")
	}
}

func TestValidate_RejectsMissingStageProbability(t *testing.T) {
	cfg := DefaultCRMConfig()
	cfg.Pipeline.Probabilities = map[domain.Stage]float64{domain.StageNew: 0.1}
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for missing stage probabilities")
	}
}

func TestValidate_RejectsNonPositiveStaleThreshold(t *testing.T) {
	cfg := DefaultCRMConfig()
	cfg.Pipeline.StaleThresholdDays = 0
	if err := cfg.validate(); err == nil {
		t.Fatal("expected error for zero stale threshold")
	}
}

func TestLoadCRMConfig_MissingFileFails(t *testing.T) {
	if _, err := LoadCRMConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
