// Package cash registers the cash management module's profile family.
package cash

import (
	"time"

	"github.com/ledgerforge/kernel/internal/policy"
)

const ModuleName = "cash"

// Profiles returns this module's compiled-at-init policy set: a bank
// deposit and a bank service fee. A representative subset of the twelve
// original cash profiles (CashDeposit, CashWithdrawalExpense/Supplier/
// Payroll, CashBankFee, CashInterestEarned, CashTransfer,
// CashWireTransferOut/Cleared, CashReconciliation, CashAutoReconciled,
// CashNSFReturn); the rest follow the same shape.
func Profiles() []*policy.AccountingPolicy {
	return []*policy.AccountingPolicy{
		deposit(),
		bankFee(),
	}
}

// deposit uses its own CashDeposit economic type with Bank and
// UndepositedFunds roles rather than the kernel's default Receipt type
// (ledger.DefaultRegistry: Receipt -> debit Cash, credit
// AccountsReceivable), since a bank deposit clears undeposited funds
// rather than AR directly.
func deposit() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "cash.bank_deposit.standard",
		Version: 1,
		Trigger: policy.Trigger{EventType: "cash.bank_deposit", SchemaVersion: 1},
		Meaning: policy.Meaning{EconomicType: "CashDeposit", QuantityField: "amount", Dimensions: []string{"cost_center", "bank_account"}},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL", DebitRole: "Bank", CreditRole: "UndepositedFunds"},
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:         "*",
		Precedence:    policy.Precedence{Mode: policy.Normal, Priority: 0},
		LineMappings: []policy.LineMapping{
			{Role: "Bank", Side: "debit", Ledger: "GL"},
			{Role: "UndepositedFunds", Side: "credit", Ledger: "GL"},
		},
	}
}

func bankFee() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "cash.bank_fee.standard",
		Version: 1,
		Trigger: policy.Trigger{EventType: "cash.bank_fee", SchemaVersion: 1},
		Meaning: policy.Meaning{EconomicType: "CashBankFee", QuantityField: "amount", Dimensions: []string{"cost_center", "bank_account"}},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL", DebitRole: "BankFeeExpense", CreditRole: "Cash"},
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:         "*",
		Precedence:    policy.Precedence{Mode: policy.Normal, Priority: 0},
		LineMappings: []policy.LineMapping{
			{Role: "BankFeeExpense", Side: "debit", Ledger: "GL"},
			{Role: "Cash", Side: "credit", Ledger: "GL"},
		},
	}
}
