package domain

import (
	"time"

	"github.com/google/uuid"
)

// ScoreTier buckets a composite lead score.
type ScoreTier string

const (
	TierCold ScoreTier = "Cold"
	TierWarm ScoreTier = "Warm"
	TierHot  ScoreTier = "Hot"
)

// BANT is the Budget/Authority/Need/Timeline qualification of a lead.
// Each dimension is scored 0-5 by the coach working the lead.
type BANT struct {
	Budget    int `json:"budget"`
	Authority int `json:"authority"`
	Need      int `json:"need"`
	Timeline  int `json:"timeline"`
}

// Dimension returns the named BANT dimension value. Unknown names return 0.
func (b BANT) Dimension(name string) int {
	switch name {
	case "budget":
		return b.Budget
	case "authority":
		return b.Authority
	case "need":
		return b.Need
	case "timeline":
		return b.Timeline
	default:
		return 0
	}
}

// LeadScore is the derived composite score of a lead.
type LeadScore struct {
	Composite  int                `json:"composite"`
	Tier       ScoreTier          `json:"tier"`
	Factors    map[string]float64 `json:"factors,omitempty"`
	ComputedAt time.Time          `json:"computedAt"`
}

// Lead is a sales opportunity owned by a coach organization (tenant).
// The document store is the system of record; this struct is a transient
// projection, referencing other entities by ID only.
type Lead struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Source    string    `json:"source,omitempty"`
	Stage     Stage     `json:"stage"`
	BANT      BANT      `json:"bant"`
	Score     LeadScore `json:"score"`
	// ValueCents is the estimated deal value in cents.
	ValueCents int64 `json:"valueCents"`
	// Probability of close, derived from the current stage.
	Probability float64    `json:"probability"`
	OwnerID     uuid.UUID  `json:"ownerId"`
	InquiryID   *uuid.UUID `json:"inquiryId,omitempty"`
	// Archived marks Won/Lost leads; leads are never deleted.
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Age returns how long the lead has existed at the given instant.
func (l Lead) Age(now time.Time) time.Duration {
	return now.Sub(l.CreatedAt)
}

// StaleSince reports whether the lead has seen no update for longer than the
// threshold. Terminal leads are never stale.
func (l Lead) StaleSince(now time.Time, threshold time.Duration) bool {
	if !l.Stage.IsActive() {
		return false
	}
	return now.Sub(l.UpdatedAt) > threshold
}
