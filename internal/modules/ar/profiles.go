// Package ar registers the accounts-receivable module's profile family.
package ar

import (
	"time"

	"github.com/ledgerforge/kernel/internal/policy"
)

const ModuleName = "ar"

// Profiles returns this module's compiled-at-init policy set: invoice
// issuance and direct payment receipt. A representative subset of the
// fourteen original AR profiles (ARInvoice, ARPaymentReceived,
// ARReceiptReceived, ARReceiptApplied, ARReceiptAppliedDiscount,
// ARCreditMemoReturn/PriceAdj/Service/Error, ARWriteOff,
// ARBadDebtProvision, ARDeferredRevenueRecorded/Recognized,
// ARRefundIssued); the rest follow the same shape.
func Profiles() []*policy.AccountingPolicy {
	return []*policy.AccountingPolicy{
		invoice(),
		paymentReceived(),
	}
}

// invoice reuses the kernel's default Revenue economic type
// (ledger.DefaultRegistry: Revenue -> debit AccountsReceivable, credit
// Revenue).
func invoice() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "ar.invoice_issued.standard",
		Version: 1,
		Trigger: policy.Trigger{EventType: "ar.invoice_issued", SchemaVersion: 1},
		Meaning: policy.Meaning{EconomicType: "Revenue", QuantityField: "amount", Dimensions: []string{"cost_center"}},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL", DebitRole: "AccountsReceivable", CreditRole: "Revenue"},
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:         "*",
		Precedence:    policy.Precedence{Mode: policy.Normal, Priority: 0},
		LineMappings: []policy.LineMapping{
			{Role: "AccountsReceivable", Side: "debit", Ledger: "GL"},
			{Role: "Revenue", Side: "credit", Ledger: "GL"},
		},
	}
}

func paymentReceived() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "ar.payment_received.direct",
		Version: 1,
		Trigger: policy.Trigger{EventType: "ar.payment_received", SchemaVersion: 1, Where: map[string]string{"payload.application": "DIRECT"}},
		Meaning: policy.Meaning{EconomicType: "Receipt", QuantityField: "amount", Dimensions: []string{"cost_center"}},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL", DebitRole: "Cash", CreditRole: "AccountsReceivable"},
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:         "*",
		Precedence:    policy.Precedence{Mode: policy.Normal, Priority: 0},
		LineMappings: []policy.LineMapping{
			{Role: "Cash", Side: "debit", Ledger: "GL"},
			{Role: "AccountsReceivable", Side: "credit", Ledger: "GL"},
		},
	}
}
