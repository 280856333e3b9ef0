package domain

import (
	"testing"
	"time"
)

func TestStaleSince(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	threshold := 14 * 24 * time.Hour

	tests := []struct {
		name    string
		stage   Stage
		updated time.Time
		want    bool
	}{
		{"active over threshold", StageContacted, now.Add(-threshold - time.Second), true},
		{"active exactly at threshold", StageContacted, now.Add(-threshold), false},
		{"active under threshold", StageContacted, now.Add(-time.Hour), false},
		{"won never stale", StageWon, now.Add(-90 * 24 * time.Hour), false},
		{"lost never stale", StageLost, now.Add(-90 * 24 * time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := Lead{Stage: tt.stage, UpdatedAt: tt.updated}
			if got := l.StaleSince(now, threshold); got != tt.want {
				t.Fatalf("StaleSince = %v, want %v", got, tt.want)
			}
		})
	}
}
