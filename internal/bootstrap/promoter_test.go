package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/config"
	"github.com/ledgerforge/kernel/internal/domain/ids"
	"github.com/ledgerforge/kernel/internal/storage/memory"
)

func journalRecord(effectiveDate, documentNumber, partyName string) map[string]any {
	return map[string]any{
		"effective_date":  effectiveDate,
		"document_number": documentNumber,
		"party_name":      partyName,
		"currency":        "USD",
		"lines": []any{
			map[string]any{"account_key": "1300", "debit": "100.00"},
			map[string]any{"account_key": "2100", "credit": "100.00"},
		},
	}
}

func TestCoordinatorPromoterPromotesJournalFromPayloadLines(t *testing.T) {
	store := memory.New()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, coord, err := Assemble(nil, store, now)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	promoter := &CoordinatorPromoter{Coordinator: coord, EventType: "journal.imported", Scope: "*"}

	result := promoter.Promote(context.Background(), journalRecord("2024-05-15", "DOC-1", "Acme"), uuid.New(), now)
	if !result.Success {
		t.Fatalf("expected promotion to succeed, got error: %s", result.Error)
	}
	if result.EntityID == nil {
		t.Fatalf("expected a posted journal entry id")
	}
}

func TestCoordinatorPromoterCarriesRecordsOwnEffectiveDate(t *testing.T) {
	store := memory.New()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, coord, err := Assemble(nil, store, now)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	promoter := &CoordinatorPromoter{Coordinator: coord, EventType: "journal.imported", Scope: "*"}

	result := promoter.Promote(context.Background(), journalRecord("2024-05-15", "DOC-1", "Acme"), uuid.New(), now)
	if !result.Success {
		t.Fatalf("expected promotion to succeed, got error: %s", result.Error)
	}

	expected := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	event, ok, err := store.GetEvent(context.Background(), idempotentEventID("journal.imported", "2024-05-15", "DOC-1", "Acme"))
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if !ok {
		t.Fatalf("expected the promoted event to be saved under its deterministic id")
	}
	if !event.EffectiveDate.Equal(expected) {
		t.Fatalf("expected effective_date %s carried from the record, got %s (occurred_at now was %s)", expected, event.EffectiveDate, now)
	}
}

func TestCoordinatorPromoterIsDeterministicAcrossRepeatedPromotion(t *testing.T) {
	store := memory.New()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, coord, err := Assemble(nil, store, now)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	promoter := &CoordinatorPromoter{Coordinator: coord, EventType: "journal.imported", Scope: "*"}
	record := journalRecord("2024-05-15", "DOC-1", "Acme")
	actor := uuid.New()

	first := promoter.Promote(context.Background(), record, actor, now)
	if !first.Success {
		t.Fatalf("first promotion failed: %s", first.Error)
	}

	later := now.Add(24 * time.Hour)
	second := promoter.Promote(context.Background(), record, actor, later)
	if !second.Success {
		t.Fatalf("second promotion failed: %s", second.Error)
	}
	if *first.EntityID != *second.EntityID {
		t.Fatalf("expected re-promoting the same record to be idempotent, got distinct entity ids %s and %s", first.EntityID, second.EntityID)
	}
}

func TestCoordinatorPromoterDistinctRecordsGetDistinctEventIDs(t *testing.T) {
	store := memory.New()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, coord, err := Assemble(nil, store, now)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	promoter := &CoordinatorPromoter{Coordinator: coord, EventType: "journal.imported", Scope: "*"}
	actor := uuid.New()

	first := promoter.Promote(context.Background(), journalRecord("2024-05-15", "DOC-1", "Acme"), actor, now)
	second := promoter.Promote(context.Background(), journalRecord("2024-05-15", "DOC-2", "Acme"), actor, now)
	if !first.Success || !second.Success {
		t.Fatalf("expected both promotions to succeed, got %s / %s", first.Error, second.Error)
	}
	if *first.EntityID == *second.EntityID {
		t.Fatalf("expected distinct document numbers to produce distinct entity ids")
	}
}

func TestBuildPromotersProducesOnePromoterPerEntityType(t *testing.T) {
	store := memory.New()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	_, coord, err := Assemble(nil, store, now)
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got := BuildPromoters(coord, nil, "*"); len(got) != 0 {
		t.Fatalf("expected no promoters for a nil pack, got %d", len(got))
	}

	pack := &config.Pack{ImportMappings: []config.PackImportMapping{
		{Name: "vendors_a", EntityType: "party"},
		{Name: "vendors_b", EntityType: "party"},
		{Name: "journals", EntityType: "journal"},
	}}
	got := BuildPromoters(coord, pack, "*")
	if len(got) != 2 {
		t.Fatalf("expected one promoter per distinct entity type (2), got %d", len(got))
	}
	if _, ok := got["party"]; !ok {
		t.Fatalf("expected a promoter for entity type party")
	}
	if _, ok := got["journal"]; !ok {
		t.Fatalf("expected a promoter for entity type journal")
	}
}

// idempotentEventID mirrors Promote's own id derivation so the test can
// look the saved event back up by its deterministic id.
func idempotentEventID(eventType, effectiveDate, documentNumber, partyName string) uuid.UUID {
	mapped := journalRecord(effectiveDate, documentNumber, partyName)
	return ids.Deterministic(eventType + ":" + canonicalizeRecord(mapped))
}
