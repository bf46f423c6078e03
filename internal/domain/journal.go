package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/money"
)

// JournalEntryStatus is the draft->posted->reversed lifecycle.
type JournalEntryStatus string

const (
	JournalDraft JournalEntryStatus = "draft"
	JournalPosted JournalEntryStatus = "posted"
	JournalReversed JournalEntryStatus = "reversed"
)

// JournalLine is one posted debit or credit against a resolved account_code.
type JournalLine struct {
	LineNumber int
	AccountCode string
	Side string // "debit" | "credit"
	Amount money.Amount
	Dimensions map[string]string
	IsRounding bool
}

// JournalEntry is the append-only unit of ledger truth.
type JournalEntry struct {
	JournalEntryID uuid.UUID
	LedgerID string
	EventID uuid.UUID
	Seq int64
	IdempotencyKey string
	Status JournalEntryStatus
	Lines []JournalLine
	PostedAt *time.Time
	ReversedAt *time.Time
	ReversalOfID *uuid.UUID
}

// IdempotencyKeyFor builds the journal writer's idempotency key:
// "{event_id}:{ledger_id}:{version}".
func IdempotencyKeyFor(eventID uuid.UUID, ledgerID string, version int) string {
	return eventID.String() + ":" + ledgerID + ":" + strconv.Itoa(version)
}
