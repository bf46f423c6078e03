package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutcomeState is the InterpretationOutcome state machine: one of
// eight terminal or resumable states an event's interpretation can reach.
type OutcomeState string

const (
	OutcomePosted OutcomeState = "POSTED"
	OutcomeBlocked OutcomeState = "BLOCKED"
	OutcomeRejected OutcomeState = "REJECTED"
	OutcomeProvisional OutcomeState = "PROVISIONAL"
	OutcomeNonPosting OutcomeState = "NON_POSTING"
	OutcomeFailed OutcomeState = "FAILED"
	OutcomeRetrying OutcomeState = "RETRYING"
	OutcomeAbandoned OutcomeState = "ABANDONED"
)

// terminal states cannot transition further; resumable states (BLOCKED,
// PROVISIONAL, FAILED, RETRYING) may still reach a terminal state on retry or on
// an external resolving signal.
var terminal = map[OutcomeState]bool{
	OutcomePosted: true,
	OutcomeRejected: true,
	OutcomeNonPosting: true,
	OutcomeAbandoned: true,
}

// IsTerminal reports whether a state has no further transitions.
func (s OutcomeState) IsTerminal() bool { return terminal[s] }

// InterpretationOutcome is the per-event record of how interpretation
// resolved, carrying enough to explain and replay the decision.
type InterpretationOutcome struct {
	EventID uuid.UUID
	State OutcomeState
	ReasonCode string
	Detail string
	PolicyName string
	PolicyHash string
	JournalIDs []uuid.UUID
	RecordedAt time.Time
}
