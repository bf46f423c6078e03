package trace

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/coordinator"
	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/ledger"
	"github.com/ledgerforge/kernel/internal/policy"
	"github.com/ledgerforge/kernel/internal/schema"
	"github.com/ledgerforge/kernel/internal/storage/memory"
	"github.com/ledgerforge/kernel/internal/valuation"
)

func revenuePolicy() *policy.AccountingPolicy {
	return &policy.AccountingPolicy{
		Name:    "sales.invoice_created.standard",
		Version: 1,
		Trigger: policy.Trigger{EventType: "sales.invoice_created", SchemaVersion: 1},
		Meaning: policy.Meaning{EconomicType: "Revenue"},
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

func postInvoice(t *testing.T, store *memory.Store) domain.Event {
	t.Helper()
	selector := policy.NewSelector()
	if err := selector.Register(revenuePolicy()); err != nil {
		t.Fatalf("register policy: %v", err)
	}
	c := coordinator.New(schema.NewRegistry(), selector, ledger.DefaultRegistry(), valuation.NewRegistry(), store)

	event := domain.Event{
		EventID:       uuid.New(),
		EventType:     "sales.invoice_created",
		SchemaVersion: 1,
		EffectiveDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		ActorID:       uuid.New(),
		Producer:      "test",
		Payload:       map[string]any{"amount": "100.00", "currency": "USD"},
		PayloadHash:   "deadbeef",
		IngestedAt:    time.Now(),
	}
	outcome, err := c.Interpret(context.Background(), event, "*")
	if err != nil {
		t.Fatalf("interpret: %v", err)
	}
	if outcome.State != domain.OutcomePosted {
		t.Fatalf("expected POSTED, got %s", outcome.State)
	}
	return event
}

func TestTraceByEventIDReconstructsPostedBundle(t *testing.T) {
	store := memory.New()
	event := postInvoice(t, store)

	selector := New(store)
	bundle, err := selector.TraceByEventID(context.Background(), event.EventID)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if bundle.Origin == nil || bundle.Origin.EventID != event.EventID {
		t.Fatalf("expected origin event, got %+v", bundle.Origin)
	}
	if len(bundle.JournalEntries) != 1 {
		t.Fatalf("expected 1 journal entry, got %d", len(bundle.JournalEntries))
	}
	if bundle.Outcome == nil || bundle.Outcome.State != domain.OutcomePosted {
		t.Fatalf("expected posted outcome, got %+v", bundle.Outcome)
	}
	if len(bundle.Timeline) == 0 {
		t.Fatalf("expected a non-empty audit timeline")
	}
	if len(bundle.MissingFacts) != 0 {
		t.Fatalf("expected no missing facts for a fully posted event, got %+v", bundle.MissingFacts)
	}
	if !bundle.Integrity.BalanceVerified || !bundle.Integrity.AuditChainSegmentValid || !bundle.Integrity.PayloadHashVerified {
		t.Fatalf("expected all integrity checks to pass, got %+v", bundle.Integrity)
	}
}

func TestTraceByJournalEntryIDMatchesTraceByEventID(t *testing.T) {
	store := memory.New()
	event := postInvoice(t, store)

	selector := New(store)
	byEvent, err := selector.TraceByEventID(context.Background(), event.EventID)
	if err != nil {
		t.Fatalf("trace by event: %v", err)
	}
	entryID := byEvent.JournalEntries[0].JournalEntryID

	byEntry, err := selector.TraceByJournalEntryID(context.Background(), entryID)
	if err != nil {
		t.Fatalf("trace by entry: %v", err)
	}
	if byEntry.Origin.EventID != event.EventID {
		t.Fatalf("expected same origin event, got %s", byEntry.Origin.EventID)
	}
}

func TestTraceByEventIDUnknownEventReportsMissingFacts(t *testing.T) {
	store := memory.New()
	selector := New(store)
	bundle, err := selector.TraceByEventID(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if bundle.Origin != nil {
		t.Fatalf("expected no origin event")
	}
	if len(bundle.MissingFacts) == 0 {
		t.Fatalf("expected missing facts for an unknown event")
	}
}

func TestRenderNarrativeIncludesAllSections(t *testing.T) {
	store := memory.New()
	event := postInvoice(t, store)

	selector := New(store)
	bundle, err := selector.TraceByEventID(context.Background(), event.EventID)
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	narrative := RenderNarrative(bundle)
	for _, want := range []string{"ORIGIN EVENT", "JOURNAL ENTRIES", "INTERPRETATION OUTCOME", "DECISION JOURNAL", "INTEGRITY", "ALL CHECKS PASSED"} {
		if !strings.Contains(narrative, want) {
			t.Fatalf("expected narrative to contain %q:\n%s", want, narrative)
		}
	}
}
