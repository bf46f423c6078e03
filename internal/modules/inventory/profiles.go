// Package inventory registers the inventory module's profile family.
package inventory

import (
	"time"

	"github.com/ledgerforge/kernel/internal/policy"
)

const ModuleName = "inventory"

// Profiles returns this module's compiled-at-init policy set: a PO
// receipt and a sale issue. A representative subset of the sixteen
// original inventory profiles (InventoryReceipt,
// InventoryReceiptWithVariance, InventoryIssueSale/Production/Scrap/
// Transfer, InventoryTransferIn, InventoryReceiptFromProduction,
// InventoryAdjustmentPositive/Negative, InventoryRevaluation,
// InventoryCycleCountPositive/Negative, InventoryWarehouseTransferOut/In,
// InventoryExpiredWriteOff); the rest follow the same shape.
func Profiles() []*policy.AccountingPolicy {
	return []*policy.AccountingPolicy{
		receipt(),
		issueSale(),
	}
}

// receipt reuses the kernel's default InventoryIncrease economic type
// (ledger.DefaultRegistry: InventoryIncrease -> debit InventoryAsset,
// credit GRNI).
func receipt() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "inventory.po_receipt.standard",
		Version: 1,
		Trigger: policy.Trigger{EventType: "inventory.po_receipt", SchemaVersion: 1},
		Meaning: policy.Meaning{EconomicType: "InventoryIncrease", QuantityField: "quantity", Dimensions: []string{"cost_center", "warehouse"}},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL", DebitRole: "InventoryAsset", CreditRole: "GRNI"},
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:         "*",
		Precedence:    policy.Precedence{Mode: policy.Normal, Priority: 0},
		LineMappings: []policy.LineMapping{
			{Role: "InventoryAsset", Side: "debit", Ledger: "GL"},
			{Role: "GRNI", Side: "credit", Ledger: "GL"},
		},
	}
}

func issueSale() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "inventory.issue.sale",
		Version: 1,
		Trigger: policy.Trigger{EventType: "inventory.issue", SchemaVersion: 1, Where: map[string]string{"payload.issue_reason": "SALE"}},
		Meaning: policy.Meaning{EconomicType: "InventoryDecrease", QuantityField: "quantity", Dimensions: []string{"cost_center", "warehouse"}},
		LedgerEffects: []policy.LedgerEffect{
			{LedgerID: "GL", DebitRole: "COGS", CreditRole: "InventoryAsset"},
		},
		EffectiveFrom: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Scope:         "*",
		Precedence:    policy.Precedence{Mode: policy.Normal, Priority: 0},
		LineMappings: []policy.LineMapping{
			{Role: "COGS", Side: "debit", Ledger: "GL"},
			{Role: "InventoryAsset", Side: "credit", Ledger: "GL"},
		},
	}
}
