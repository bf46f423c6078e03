// Package ap registers the accounts-payable module's profile family.
package ap

import (
	"time"

	"github.com/ledgerforge/kernel/internal/policy"
)

const ModuleName = "ap"

// Profiles returns this module's compiled-at-init policy set: a direct
// expense invoice (no PO match) and the standard supplier payment. A
// representative subset of the ten original AP profiles (APInvoiceExpense,
// APInvoicePOMatched, APInvoiceInventory, APPayment,
// APPaymentWithDiscount, APInvoiceCancelled, APAccrualRecorded/Reversed,
// APPrepaymentRecorded/Applied); the rest follow the same shape.
func Profiles() []*policy.AccountingPolicy {
	return []*policy.AccountingPolicy{
		invoiceExpense(),
		payment(),
	}
}

// invoiceExpense reuses the kernel's default Expense economic type
// (ledger.DefaultRegistry: Expense -> debit Expense, credit
// AccountsPayable) rather than inventing a parallel set of roles.
func invoiceExpense() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "ap.invoice_received.direct_expense",
		Version: 1,
		Trigger: policy.Trigger{EventType: "ap.invoice_received", SchemaVersion: 1, Where: map[string]string{"payload.match_type": "NONE"}},
		Meaning: policy.Meaning{EconomicType: "Expense", QuantityField: "amount", Dimensions: []string{"cost_center"}},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL", DebitRole: "Expense", CreditRole: "AccountsPayable"},
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:         "*",
		Precedence:    policy.Precedence{Mode: policy.Normal, Priority: 0},
		LineMappings: []policy.LineMapping{
			{Role: "Expense", Side: "debit", Ledger: "GL"},
			{Role: "AccountsPayable", Side: "credit", Ledger: "GL"},
		},
	}
}

func payment() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "ap.payment_issued.standard",
		Version: 1,
		Trigger: policy.Trigger{EventType: "ap.payment_issued", SchemaVersion: 1},
		Meaning: policy.Meaning{EconomicType: "Payment", QuantityField: "amount", Dimensions: []string{"cost_center"}},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL", DebitRole: "Cash", CreditRole: "AccountsPayable"},
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:         "*",
		Precedence:    policy.Precedence{Mode: policy.Normal, Priority: 0},
		LineMappings: []policy.LineMapping{
			{Role: "Cash", Side: "debit", Ledger: "GL"},
			{Role: "AccountsPayable", Side: "credit", Ledger: "GL"},
		},
	}
}
