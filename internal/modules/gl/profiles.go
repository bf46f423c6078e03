// Package gl registers the general-ledger module's own profile family:
// period-end and cross-currency events that don't belong to any one
// subledger (year-end close and FX revaluation), plus the profile that
// imported historical journals post through.
package gl

import (
	"time"

	"github.com/ledgerforge/kernel/internal/policy"
)

const ModuleName = "gl"

// Profiles returns this module's compiled-at-init policy set: year-end
// close of revenue/expense into retained earnings, unrealized FX
// revaluation of a foreign-currency balance, and the journal-import
// profile for promoted journal records. A representative subset of
// the eighteen original GL profiles (YearEndClose, DividendDeclared,
// FXRevaluation, IntercompanyTransfer, DeferredRevenueRecognition,
// DeferredExpenseRecognition, FXUnrealizedGain/Loss, FXRealizedGain/Loss);
// the rest follow the same shape.
func Profiles() []*policy.AccountingPolicy {
	return []*policy.AccountingPolicy{
		yearEndClose(),
		fxUnrealizedGain(),
		journalImported(),
	}
}

// journalImported is the entry point for a promoted "journal" staging
// record: each record already carries its own balanced set of lines
// (account_key + debit/credit), so it builds its intent from payload.lines
// rather than expanding a ledger effect's debit_role/credit_role against
// one event-level amount.
func journalImported() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "gl.journal.imported",
		Version: 1,
		Trigger: policy.Trigger{EventType: "journal.imported", SchemaVersion: 1},
		Meaning: policy.Meaning{EconomicType: "JournalImport"},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL"},
		},
		EffectiveFrom:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:            "*",
		Precedence:       policy.Precedence{Mode: policy.Normal, Priority: 0},
		UsesPayloadLines: true,
	}
}

func yearEndClose() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "gl.period_closed.year_end",
		Version: 1,
		Trigger: policy.Trigger{EventType: "gl.period_closed", SchemaVersion: 1, Where: map[string]string{"payload.period_type": "FISCAL_YEAR"}},
		Meaning: policy.Meaning{EconomicType: "PeriodClose", QuantityField: "net_income"},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL", DebitRole: "RevenueSummary", CreditRole: "RetainedEarnings"},
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:         "*",
		Precedence:    policy.Precedence{Mode: policy.Normal, Priority: 0},
		LineMappings: []policy.LineMapping{
			{Role: "RevenueSummary", Side: "debit", Ledger: "GL"},
			{Role: "RetainedEarnings", Side: "credit", Ledger: "GL"},
		},
	}
}

func fxUnrealizedGain() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "gl.fx_revaluation.unrealized_gain",
		Version: 1,
		Trigger: policy.Trigger{EventType: "gl.fx_revaluation", SchemaVersion: 1, Where: map[string]string{"payload.direction": "GAIN"}},
		Meaning: policy.Meaning{EconomicType: "FXRevaluation", QuantityField: "revaluation_amount", Dimensions: []string{"currency_pair"}},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL", DebitRole: "ForeignCurrencyBalance", CreditRole: "UnrealizedFXGain"},
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:         "*",
		Precedence:    policy.Precedence{Mode: policy.Normal, Priority: 0},
		LineMappings: []policy.LineMapping{
			{Role: "ForeignCurrencyBalance", Side: "debit", Ledger: "GL"},
			{Role: "UnrealizedFXGain", Side: "credit", Ledger: "GL"},
		},
	}
}
