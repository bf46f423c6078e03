package bootstrap

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/config"
	"github.com/ledgerforge/kernel/internal/coordinator"
	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/domain/ids"
	"github.com/ledgerforge/kernel/internal/ingestion/promotion"
)

// CoordinatorPromoter adapts the interpretation coordinator into a
// promotion.Promoter: one staged, mapped import record becomes one
// domain.Event dispatched through Coordinator.Interpret, so a promoted
// record and a directly-ingested event run through the identical
// guard/valuation/ledger pipeline rather than a separate
// promotion-only posting path.
type CoordinatorPromoter struct {
	Coordinator *coordinator.Coordinator
	// EventType is the synthetic event type mapped records of this entity
	// type are interpreted as — one AccountingPolicy's Trigger.EventType
	// must match it.
	EventType string
	Scope string
}

// CheckDuplicate always reports false: the mapped record carries no
// natural key this kernel slice can use to detect an equivalent
// already-posted entity (no cross-entity referential index exists yet —
// see PromotionService.ComputePreflightGraph's same v1 scope note).
func (p *CoordinatorPromoter) CheckDuplicate(ctx context.Context, mapped map[string]any) (bool, error) {
	return false, nil
}

// Promote turns mapped into an Event and runs it through Interpret,
// reporting failure for every outcome short of POSTED. The event_id is
// derived deterministically from the record's own content, so re-promoting
// the same staged record (retry, re-run batch) dispatches the identical
// event_id and the coordinator's duplicate-outcome check absorbs it rather
// than posting again.
func (p *CoordinatorPromoter) Promote(ctx context.Context, mapped map[string]any, actorID uuid.UUID, now time.Time) promotion.PromoteResult {
	event := domain.Event{
		EventID: ids.Deterministic(p.EventType + ":" + canonicalizeRecord(mapped)),
		EventType: p.EventType,
		SchemaVersion: 1,
		OccurredAt: now,
		EffectiveDate: effectiveDateOf(mapped, now),
		ActorID: actorID,
		Producer: "ingestion.promotion",
		Payload: mapped,
		IngestedAt: now,
	}

	outcome, err := p.Coordinator.Interpret(ctx, event, p.Scope)
	if err != nil {
		return promotion.PromoteResult{Success: false, Error: err.Error()}
	}
	if outcome.State != domain.OutcomePosted {
		detail := outcome.Detail
		if detail == "" {
			detail = string(outcome.State) + "/" + outcome.ReasonCode
		}
		return promotion.PromoteResult{Success: false, Error: detail}
	}

	var entityID *uuid.UUID
	if len(outcome.JournalIDs) > 0 {
		id := outcome.JournalIDs[0]
		entityID = &id
	}
	return promotion.PromoteResult{Success: true, EntityID: entityID}
}

// BuildPromoters maps each of the pack's import mappings' entity_type to
// a CoordinatorPromoter dispatching on "<entity_type>.imported", the
// event type a module's built-in or pack-declared profiles target for
// promoted records.
func BuildPromoters(coord *coordinator.Coordinator, pack *config.Pack, scope string) map[string]promotion.Promoter {
	promoters := make(map[string]promotion.Promoter)
	if pack == nil {
		return promoters
	}
	for _, m := range pack.ImportMappings {
		if _, exists := promoters[m.EntityType]; exists {
			continue
		}
		promoters[m.EntityType] = &CoordinatorPromoter{
			Coordinator: coord,
			EventType: m.EntityType + ".imported",
			Scope: scope,
		}
	}
	return promoters
}

// canonicalizeRecord builds a stable string from the fields a mapped import
// record's identity depends on — effective_date, document_number,
// party_name, lines — so the same record content always canonicalizes to
// the same string regardless of Go map key iteration order.
func canonicalizeRecord(mapped map[string]any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "effective_date=%s", canonicalScalar(mapped["effective_date"]))
	fmt.Fprintf(&b, ":document_number=%s", canonicalScalar(mapped["document_number"]))
	fmt.Fprintf(&b, ":party_name=%s", canonicalScalar(mapped["party_name"]))

	lines, _ := mapped["lines"].([]any)
	for i, item := range lines {
		fmt.Fprintf(&b, ":line[%d]=%s", i, canonicalLine(item))
	}
	return b.String()
}

// canonicalLine renders one payload.lines entry with its fields sorted by
// key so canonicalization doesn't depend on map iteration order.
func canonicalLine(item any) string {
	m, ok := item.(map[string]any)
	if !ok {
		return canonicalScalar(item)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteByte('(')
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s,", k, canonicalScalar(m[k]))
	}
	b.WriteByte(')')
	return b.String()
}

func canonicalScalar(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// effectiveDateOf reads the record's own effective_date, coercing from
// either a time.Time or a plain date/RFC3339 string (the mapping engine's
// output for a date/datetime field); fallback applies only when the field
// is absent or unparseable.
func effectiveDateOf(mapped map[string]any, fallback time.Time) time.Time {
	switch v := mapped["effective_date"].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
		if t, err := time.Parse("2006-01-02", v); err == nil {
			return t
		}
	}
	return fallback
}
