package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/config"
	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/storage/memory"
)

func TestAssembleRegistersBuiltinModulesAndPostsAnEvent(t *testing.T) {
	store := memory.New()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	regs, coord, err := Assemble(nil, store, now)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	for _, name := range []string{"gl", "ap", "ar", "inventory", "cash"} {
		if got := len(regs.Modules.ListByModule(name)); got != 2 {
			t.Errorf("module %s: expected 2 registered profiles, got %d", name, got)
		}
	}

	event := domain.Event{
		EventID:       uuid.New(),
		EventType:     "ap.invoice_received",
		SchemaVersion: 1,
		EffectiveDate: now,
		ActorID:       uuid.New(),
		Producer:      "test",
		Payload: map[string]any{
			"amount":      "100.00",
			"currency":    "USD",
			"vendor_code": "V1",
			"match_type":  "NONE",
			"cost_center": "CC1",
		},
		PayloadHash: "deadbeef",
		IngestedAt:  now,
	}

	outcome, err := coord.Interpret(context.Background(), event, "*")
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if outcome.State != domain.OutcomePosted {
		t.Fatalf("expected POSTED, got %s (%s/%s)", outcome.State, outcome.ReasonCode, outcome.Detail)
	}
	if outcome.PolicyName != "ap.invoice_received.direct_expense" {
		t.Errorf("expected the direct-expense profile to match, got %s", outcome.PolicyName)
	}
}

func TestAssembleWithPackPolicyRegistersAndSelects(t *testing.T) {
	pack := &config.Pack{
		Policies: []config.PackPolicy{
			{
				Name:      "custom.widget_sold.standard",
				Module:    "custom",
				EventType: "custom.widget_sold",
				Priority:  0,
				Mode:      "NORMAL",
				LedgerEffect: config.PackLedgerEffect{
					DebitRole:  "AccountsReceivable",
					CreditRole: "Revenue",
				},
			},
		},
	}

	store := memory.New()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	regs, coord, err := Assemble(pack, store, now)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if owner, ok := regs.Modules.OwnerOf("custom.widget_sold.standard"); !ok || owner != "custom" {
		t.Fatalf("expected custom.widget_sold.standard owned by module custom, got %q (ok=%v)", owner, ok)
	}

	// The pack policy's economic type (its own name) has no registered
	// ledger.Requirements, so journal posting falls back to the ledger
	// effect's own debit/credit roles with no dimension requirements —
	// the same no-op path internal/modules/gl exercises deliberately.
	event := domain.Event{
		EventID:       uuid.New(),
		EventType:     "custom.widget_sold",
		SchemaVersion: 1,
		EffectiveDate: now,
		ActorID:       uuid.New(),
		Producer:      "test",
		Payload:       map[string]any{"amount": "50.00", "currency": "USD"},
		PayloadHash:   "deadbeef",
		IngestedAt:    now,
	}

	outcome, err := coord.Interpret(context.Background(), event, "*")
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if outcome.State != domain.OutcomePosted {
		t.Fatalf("expected POSTED, got %s (%s/%s)", outcome.State, outcome.ReasonCode, outcome.Detail)
	}
}

func TestImportMappingLookupFindsByName(t *testing.T) {
	pack := &config.Pack{
		ImportMappings: []config.PackImportMapping{
			{Name: "vendor_master_v1", EntityType: "party"},
		},
	}
	lookup := ImportMappingLookup(pack)

	m, ok := lookup("vendor_master_v1")
	if !ok || m.EntityType != "party" {
		t.Fatalf("expected to find vendor_master_v1 mapping, got %+v (ok=%v)", m, ok)
	}
	if _, ok := lookup("missing"); ok {
		t.Fatalf("expected missing mapping to not be found")
	}
}
