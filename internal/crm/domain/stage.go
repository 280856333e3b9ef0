// Package domain holds the CRM entity model: leads, pipeline stages, BANT
// qualification, activities, tasks and client health. It has no dependencies
// on persistence or transport.
package domain

// Stage is a discrete position in the sales pipeline funnel.
type Stage string

const (
	StageNew         Stage = "New"
	StageContacted   Stage = "Contacted"
	StageQualified   Stage = "Qualified"
	StageProposal    Stage = "Proposal"
	StageNegotiation Stage = "Negotiation"
	StageWon         Stage = "Won"
	StageLost        Stage = "Lost"
)

// StageOrder is the monotonic funnel order. Lost is absent: it is a universal
// terminal target reachable from any non-terminal stage.
var StageOrder = []Stage{
	StageNew,
	StageContacted,
	StageQualified,
	StageProposal,
	StageNegotiation,
	StageWon,
}

// ActiveStages are the stages counted as in-flight by the metrics aggregator.
var ActiveStages = []Stage{
	StageNew,
	StageContacted,
	StageQualified,
	StageProposal,
	StageNegotiation,
}

var knownStages = map[Stage]struct{}{
	StageNew:         {},
	StageContacted:   {},
	StageQualified:   {},
	StageProposal:    {},
	StageNegotiation: {},
	StageWon:         {},
	StageLost:        {},
}

// IsKnownStage reports whether stage is a member of the pipeline.
func IsKnownStage(stage Stage) bool {
	_, ok := knownStages[stage]
	return ok
}

// IsTerminal reports whether the stage closes a lead.
func (s Stage) IsTerminal() bool {
	return s == StageWon || s == StageLost
}

// IsActive reports whether the stage counts as in-flight.
func (s Stage) IsActive() bool {
	return IsKnownStage(s) && !s.IsTerminal()
}

// StageIndex returns the position of stage within StageOrder, or -1 for Lost
// and unknown stages.
func StageIndex(stage Stage) int {
	for i, s := range StageOrder {
		if s == stage {
			return i
		}
	}
	return -1
}

// NextStage returns the immediate next funnel stage, or "" when the stage has
// no successor.
func NextStage(stage Stage) Stage {
	idx := StageIndex(stage)
	if idx < 0 || idx+1 >= len(StageOrder) {
		return ""
	}
	return StageOrder[idx+1]
}
