package domain

import (
	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/money"
)

// IntentLine is one line of an AccountingIntent: a role, side, and amount
// bound to a ledger, before role resolution to an account_code.
type IntentLine struct {
	Role   string
	Side   string // "debit" | "credit"
	Amount money.Amount
	Ledger string
}

// AccountingIntent is the ledger-agnostic expansion of an EconomicEvent's
// ledger effects into balanced debit/credit lines, grouped by ledger,
// before the journal writer resolves roles to account codes and assigns
// sequence numbers.
type AccountingIntent struct {
	EventID    uuid.UUID
	PolicyName string
	PolicyHash string
	LinesByLedger map[string][]IntentLine
}
