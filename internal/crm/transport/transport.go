// Package transport defines the HTTP request and response shapes of the CRM
// module. Request structs carry validation tags; responses reuse the domain
// projections directly where those already serialize cleanly.
package transport

import (
	"time"

	"coachdesk_backend/internal/crm/domain"

	"github.com/google/uuid"
)

// BANTRequest carries a full BANT qualification. Dimensions are 0-5.
type BANTRequest struct {
	Budget    int `json:"budget" validate:"min=0,max=5"`
	Authority int `json:"authority" validate:"min=0,max=5"`
	Need      int `json:"need" validate:"min=0,max=5"`
	Timeline  int `json:"timeline" validate:"min=0,max=5"`
}

// Domain converts the request to the domain type.
func (r BANTRequest) Domain() domain.BANT {
	return domain.BANT{
		Budget:    r.Budget,
		Authority: r.Authority,
		Need:      r.Need,
		Timeline:  r.Timeline,
	}
}

// CreateLeadRequest opens a new lead.
type CreateLeadRequest struct {
	Name       string      `json:"name" validate:"required,max=200"`
	Email      string      `json:"email" validate:"omitempty,email"`
	Phone      string      `json:"phone" validate:"omitempty,max=32"`
	Source     string      `json:"source" validate:"omitempty,max=100"`
	BANT       BANTRequest `json:"bant"`
	ValueCents int64       `json:"valueCents" validate:"min=0"`
	OwnerID    *uuid.UUID  `json:"ownerId"`
}

// UpdateQualificationRequest replaces a lead's BANT values.
type UpdateQualificationRequest struct {
	BANT BANTRequest `json:"bant" validate:"required"`
}

// TransitionRequest moves a lead to a new stage.
type TransitionRequest struct {
	Target string `json:"target" validate:"required"`
}

// ScorePreviewRequest scores a hypothetical qualification.
type ScorePreviewRequest struct {
	BANT BANTRequest `json:"bant" validate:"required"`
}

// RecordActivityRequest appends a manual activity to a lead's timeline.
// Exactly the fields matching Type are read; the rest are ignored.
type RecordActivityRequest struct {
	Type string `json:"type" validate:"required,oneof=note_added call_logged email_sent meeting_held"`

	// note_added
	Note string `json:"note" validate:"omitempty,max=4000"`
	// call_logged
	DurationSeconds int    `json:"durationSeconds" validate:"omitempty,min=0"`
	Outcome         string `json:"outcome" validate:"omitempty,max=200"`
	// email_sent
	Subject string `json:"subject" validate:"omitempty,max=500"`
	// meeting_held
	DurationMinutes int    `json:"durationMinutes" validate:"omitempty,min=0"`
	Location        string `json:"location" validate:"omitempty,max=200"`
}

// Payload maps the request onto the typed payload for its activity type.
func (r RecordActivityRequest) Payload() domain.ActivityPayload {
	switch domain.ActivityType(r.Type) {
	case domain.ActivityNoteAdded:
		return domain.NoteAddedPayload{Note: r.Note}
	case domain.ActivityCallLogged:
		return domain.CallLoggedPayload{DurationSeconds: r.DurationSeconds, Outcome: r.Outcome}
	case domain.ActivityEmailSent:
		return domain.EmailSentPayload{Subject: r.Subject}
	case domain.ActivityMeetingHeld:
		return domain.MeetingHeldPayload{DurationMinutes: r.DurationMinutes, Location: r.Location}
	default:
		return nil
	}
}

// CreateTaskRequest opens a follow-up task on a lead.
type CreateTaskRequest struct {
	Description string    `json:"description" validate:"required,max=500"`
	DueAt       time.Time `json:"dueAt" validate:"required"`
}

// RecomputeHealthRequest recomputes a client's health score. Signals are
// optional; absent ones fall back to the injected provider, or to neutral
// defaults when no provider data exists either.
type RecomputeHealthRequest struct {
	Signals *SignalsRequest `json:"signals"`
}

// SignalsRequest mirrors domain.EngagementSignals for explicit submissions.
type SignalsRequest struct {
	SessionAttendanceRate *float64 `json:"sessionAttendanceRate" validate:"omitempty,min=0,max=1"`
	DaysSinceLastLogin    *int     `json:"daysSinceLastLogin" validate:"omitempty,min=0"`
	ToolCompletionRate    *float64 `json:"toolCompletionRate" validate:"omitempty,min=0,max=1"`
	NPS                   *int     `json:"nps" validate:"omitempty,min=0,max=10"`
}

// Domain converts the request to the domain type.
func (r SignalsRequest) Domain() domain.EngagementSignals {
	return domain.EngagementSignals{
		SessionAttendanceRate: r.SessionAttendanceRate,
		DaysSinceLastLogin:    r.DaysSinceLastLogin,
		ToolCompletionRate:    r.ToolCompletionRate,
		NPS:                   r.NPS,
	}
}

// CreateInquiryRequest records a new directory inquiry.
type CreateInquiryRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,max=32"`
	Message string `json:"message" validate:"omitempty,max=4000"`
	Source  string `json:"source" validate:"omitempty,max=100"`
}

// ConvertInquiryRequest opens a lead from an inquiry.
type ConvertInquiryRequest struct {
	BANT       BANTRequest `json:"bant"`
	ValueCents int64       `json:"valueCents" validate:"min=0"`
	OwnerID    *uuid.UUID  `json:"ownerId"`
}

// TransitionResponse returns the updated lead plus a conversion warning when
// the Won side effect failed after the transition committed.
type TransitionResponse struct {
	Lead    domain.Lead `json:"lead"`
	Warning string      `json:"warning,omitempty"`
}

// ValidTargetsResponse lists the stages a lead may move to.
type ValidTargetsResponse struct {
	From    domain.Stage   `json:"from"`
	Targets []domain.Stage `json:"targets"`
}
