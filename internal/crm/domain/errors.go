package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// InvalidTransitionError rejects a stage jump that is neither the immediate
// next stage, a configured skip, nor the universal Lost escape.
type InvalidTransitionError struct {
	From         Stage
	To           Stage
	ValidTargets []Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}

// PreconditionNotMetError rejects stage entry while its configured
// requirements are unmet. Missing lists the unmet requirements in a form
// the caller can present to the user.
type PreconditionNotMetError struct {
	Target  Stage
	Missing []string
}

func (e *PreconditionNotMetError) Error() string {
	return fmt.Sprintf("preconditions not met for stage %s", e.Target)
}

// PostTransitionError signals that the pipeline transition committed but a
// dependent side effect (inquiry conversion on Won) failed afterwards. The
// lead remains in its new stage; remediation is manual, not automatic.
type PostTransitionError struct {
	LeadID uuid.UUID
	Stage  Stage
	Err    error
}

func (e *PostTransitionError) Error() string {
	return fmt.Sprintf("lead %s reached %s but post-transition side effect failed: %v", e.LeadID, e.Stage, e.Err)
}

func (e *PostTransitionError) Unwrap() error {
	return e.Err
}
