package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ActivityType identifies the kind of interaction recorded on a lead.
type ActivityType string

const (
	ActivityStageChanged     ActivityType = "stage_changed"
	ActivityNoteAdded        ActivityType = "note_added"
	ActivityCallLogged       ActivityType = "call_logged"
	ActivityEmailSent        ActivityType = "email_sent"
	ActivityMeetingHeld      ActivityType = "meeting_held"
	ActivityScoreRecomputed  ActivityType = "score_recomputed"
	ActivityTaskCompleted    ActivityType = "task_completed"
	ActivityInquiryConverted ActivityType = "inquiry_converted"
)

// ActivityPayload is the closed set of per-type activity payloads. Each
// variant carries its own strongly typed fields; there is no free-form
// metadata map.
type ActivityPayload interface {
	ActivityType() ActivityType
}

// StageChangedPayload records a pipeline transition.
type StageChangedPayload struct {
	From        Stage   `json:"from"`
	To          Stage   `json:"to"`
	Probability float64 `json:"probability"`
}

func (StageChangedPayload) ActivityType() ActivityType { return ActivityStageChanged }

// NoteAddedPayload records a free-text note.
type NoteAddedPayload struct {
	Note string `json:"note"`
}

func (NoteAddedPayload) ActivityType() ActivityType { return ActivityNoteAdded }

// CallLoggedPayload records an outbound or inbound call.
type CallLoggedPayload struct {
	DurationSeconds int    `json:"durationSeconds"`
	Outcome         string `json:"outcome,omitempty"`
}

func (CallLoggedPayload) ActivityType() ActivityType { return ActivityCallLogged }

// EmailSentPayload records an email touchpoint.
type EmailSentPayload struct {
	Subject string `json:"subject"`
}

func (EmailSentPayload) ActivityType() ActivityType { return ActivityEmailSent }

// MeetingHeldPayload records a discovery or coaching session.
type MeetingHeldPayload struct {
	DurationMinutes int    `json:"durationMinutes"`
	Location        string `json:"location,omitempty"`
}

func (MeetingHeldPayload) ActivityType() ActivityType { return ActivityMeetingHeld }

// ScoreRecomputedPayload records a scoring run.
type ScoreRecomputedPayload struct {
	Composite int       `json:"composite"`
	Tier      ScoreTier `json:"tier"`
}

func (ScoreRecomputedPayload) ActivityType() ActivityType { return ActivityScoreRecomputed }

// TaskCompletedPayload records the completion of a follow-up task.
type TaskCompletedPayload struct {
	TaskID      uuid.UUID `json:"taskId"`
	Description string    `json:"description,omitempty"`
}

func (TaskCompletedPayload) ActivityType() ActivityType { return ActivityTaskCompleted }

// InquiryConvertedPayload records the Won-side conversion of the originating
// directory inquiry.
type InquiryConvertedPayload struct {
	InquiryID uuid.UUID `json:"inquiryId"`
	ClientID  uuid.UUID `json:"clientId"`
}

func (InquiryConvertedPayload) ActivityType() ActivityType { return ActivityInquiryConverted }

// Activity is an immutable ledger record tied to a lead. Records are append
// only: they are never mutated or deleted by this service.
type Activity struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	TenantID   uuid.UUID
	Type       ActivityType
	ActorID    uuid.UUID
	ActorName  string
	OccurredAt time.Time
	Payload    ActivityPayload
}

// activityEnvelope is the stored JSON shape: a tagged union keyed by type.
type activityEnvelope struct {
	ID         uuid.UUID       `json:"id"`
	LeadID     uuid.UUID       `json:"leadId"`
	TenantID   uuid.UUID       `json:"tenantId"`
	Type       ActivityType    `json:"type"`
	ActorID    uuid.UUID       `json:"actorId"`
	ActorName  string          `json:"actorName,omitempty"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the activity as a type-tagged envelope.
func (a Activity) MarshalJSON() ([]byte, error) {
	payload, err := json.Marshal(a.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(activityEnvelope{
		ID:         a.ID,
		LeadID:     a.LeadID,
		TenantID:   a.TenantID,
		Type:       a.Type,
		ActorID:    a.ActorID,
		ActorName:  a.ActorName,
		OccurredAt: a.OccurredAt,
		Payload:    payload,
	})
}

// UnmarshalJSON decodes the envelope and dispatches on the type tag.
func (a *Activity) UnmarshalJSON(data []byte) error {
	var env activityEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	payload, err := decodeActivityPayload(env.Type, env.Payload)
	if err != nil {
		return err
	}

	a.ID = env.ID
	a.LeadID = env.LeadID
	a.TenantID = env.TenantID
	a.Type = env.Type
	a.ActorID = env.ActorID
	a.ActorName = env.ActorName
	a.OccurredAt = env.OccurredAt
	a.Payload = payload
	return nil
}

func decodeActivityPayload(t ActivityType, raw json.RawMessage) (ActivityPayload, error) {
	var (
		payload ActivityPayload
		err     error
	)

	switch t {
	case ActivityStageChanged:
		var p StageChangedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActivityNoteAdded:
		var p NoteAddedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActivityCallLogged:
		var p CallLoggedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActivityEmailSent:
		var p EmailSentPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActivityMeetingHeld:
		var p MeetingHeldPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActivityScoreRecomputed:
		var p ScoreRecomputedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActivityTaskCompleted:
		var p TaskCompletedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	case ActivityInquiryConverted:
		var p InquiryConvertedPayload
		err = json.Unmarshal(raw, &p)
		payload = p
	default:
		return nil, fmt.Errorf("unknown activity type %q", t)
	}

	if err != nil {
		return nil, err
	}
	return payload, nil
}
