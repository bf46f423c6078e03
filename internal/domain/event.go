// Package domain holds the kernel's shared value types: Event,
// EconomicEvent, AccountingIntent, JournalEntry, InterpretationOutcome,
// and the import staging types (ImportBatch, ImportRecord). These are plain structs passed between the pure
// core packages (policy, guard, valuation, meaning, intent, ledger) and
// the impure shell (storage, journal writer, audit emitter).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is the immutable input to interpretation: created by ingestion,
// never mutated or deleted.
type Event struct {
	EventID uuid.UUID
	EventType string
	SchemaVersion int
	OccurredAt time.Time
	EffectiveDate time.Time
	ActorID uuid.UUID
	Producer string
	Payload map[string]any
	PayloadHash string
	IngestedAt time.Time
}
