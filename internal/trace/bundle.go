// Package trace implements the trace selector: given a source
// event id or a journal entry id, reconstructs a read-only TraceBundle —
// the origin event, its journal entries, its InterpretationOutcome, the
// audit trail keyed to it, and integrity checks over the whole thing. A
// pure read-side query object over Store, no mutation.
package trace

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/audit"
	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/kernelerr"
	"github.com/ledgerforge/kernel/internal/storage"
)

// TimelineEntry is one audit-trail link rendered into the decision
// journal ("all structured log and audit entries keyed to this
// event"). This kernel slice persists only audit events, not a separate
// structured-log stream, so the timeline is the audit trail alone.
type TimelineEntry struct {
	Seq int64
	Source string // always "audit_event" in this slice
	Action audit.Action
	EntityID uuid.UUID
	RecordedAt time.Time
}

// IntegrityChecks reports three checks: payload hash verified, balance
// verified, and the audit chain segment valid.
type IntegrityChecks struct {
	PayloadHashVerified bool
	BalanceVerified bool
	AuditChainSegmentValid bool
}

// MissingFact names a bundle section the selector could not populate and
// why, so a reader can tell "absent" from "not asked for".
type MissingFact struct {
	Fact string
	ExpectedSource string
}

// Bundle is the full reconstructed trace for one event.
type Bundle struct {
	Origin *domain.Event
	JournalEntries []domain.JournalEntry
	Outcome *domain.InterpretationOutcome
	Timeline []TimelineEntry
	Integrity IntegrityChecks
	MissingFacts []MissingFact
}

// Selector is the pure read-side query object trace assembly runs
// through; it never writes.
type Selector struct {
	Store storage.Store
}

// New builds a Selector over store.
func New(store storage.Store) *Selector {
	return &Selector{Store: store}
}

// TraceByEventID reconstructs the full bundle for sourceEventID.
func (s *Selector) TraceByEventID(ctx context.Context, eventID uuid.UUID) (Bundle, error) {
	var bundle Bundle

	event, found, err := s.Store.GetEvent(ctx, eventID)
	if err != nil {
		return bundle, kernelerr.Wrap(kernelerr.StorageUnavailable, "trace: get event", err)
	}
	if !found {
		bundle.MissingFacts = append(bundle.MissingFacts, MissingFact{
			Fact: "origin_event", ExpectedSource: fmt.Sprintf("event %s was never ingested, or ingestion did not persist it", eventID),
		})
	}
	bundle.Origin = event

	entries, err := s.Store.ListJournalEntriesForEvent(ctx, eventID)
	if err != nil {
		return bundle, kernelerr.Wrap(kernelerr.StorageUnavailable, "trace: list journal entries", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	bundle.JournalEntries = entries
	if len(entries) == 0 {
		bundle.MissingFacts = append(bundle.MissingFacts, MissingFact{
			Fact: "journal_entries", ExpectedSource: "event did not post (NON_POSTING/BLOCKED/REJECTED/FAILED outcome, or no outcome recorded yet)",
		})
	}

	outcome, found, err := s.Store.GetOutcome(ctx, eventID)
	if err != nil {
		return bundle, kernelerr.Wrap(kernelerr.StorageUnavailable, "trace: get outcome", err)
	}
	if !found {
		bundle.MissingFacts = append(bundle.MissingFacts, MissingFact{
			Fact: "interpretation_outcome", ExpectedSource: "coordinator.Interpret has not run to completion for this event",
		})
	}
	bundle.Outcome = outcome

	auditEvents, err := s.Store.ListAuditEventsForEntity(ctx, eventID)
	if err != nil {
		return bundle, kernelerr.Wrap(kernelerr.StorageUnavailable, "trace: list audit events", err)
	}
	for i := range entries {
		linked, err := s.Store.ListAuditEventsForEntity(ctx, entries[i].JournalEntryID)
		if err != nil {
			return bundle, kernelerr.Wrap(kernelerr.StorageUnavailable, "trace: list audit events for journal entry", err)
		}
		auditEvents = append(auditEvents, linked...)
	}
	sort.Slice(auditEvents, func(i, j int) bool { return auditEvents[i].Seq < auditEvents[j].Seq })

	bundle.Timeline = make([]TimelineEntry, 0, len(auditEvents))
	for _, e := range auditEvents {
		bundle.Timeline = append(bundle.Timeline, TimelineEntry{
			Seq: e.Seq, Source: "audit_event", Action: e.Action,
			EntityID: e.EntityID, RecordedAt: e.RecordedAt,
		})
	}

	bundle.Integrity = s.checkIntegrity(event, entries, auditEvents)
	return bundle, nil
}

// TraceByJournalEntryID resolves entryID to its source event and defers
// to TraceByEventID — the same reconstruction either way, since every
// journal entry's EventID field is exactly the bundle key.
func (s *Selector) TraceByJournalEntryID(ctx context.Context, entryID uuid.UUID) (Bundle, error) {
	entry, found, err := s.Store.GetJournalEntry(ctx, entryID)
	if err != nil {
		return Bundle{}, kernelerr.Wrap(kernelerr.StorageUnavailable, "trace: get journal entry", err)
	}
	if !found {
		return Bundle{}, kernelerr.New(kernelerr.RecordNotFound, fmt.Sprintf("trace: no journal entry %s", entryID))
	}
	return s.TraceByEventID(ctx, entry.EventID)
}

// checkIntegrity recomputes the payload hash, the per-entry debit/credit
// balance, and each audit link's own hash ('s three integrity
// checks). Audit-chain verification here is per-link self-consistency,
// not a full contiguous-seq walk: ListAuditEventsForEntity returns a
// filtered slice interleaved with other entities' events, so adjacent
// entries in the slice are not necessarily adjacent in the real chain.
func (s *Selector) checkIntegrity(event *domain.Event, entries []domain.JournalEntry, auditEvents []audit.Event) IntegrityChecks {
	checks := IntegrityChecks{
		PayloadHashVerified: true,
		BalanceVerified: true,
		AuditChainSegmentValid: true,
	}
	// No canonical payload encoder exists in this kernel slice to
	// recompute event.PayloadHash from the raw Payload tree, so
	// "verified" here means: the hash the immutable audit trail recorded
	// at ingestion time still matches the hash on the live Event row —
	// catching tampering with either without needing a second encoder.
	if event == nil || event.PayloadHash == "" {
		checks.PayloadHashVerified = false
	} else {
		found := false
		for _, e := range auditEvents {
			if e.Action == audit.EventIngested && e.EntityID == event.EventID {
				found = true
				if e.PayloadHash != event.PayloadHash {
					checks.PayloadHashVerified = false
				}
				break
			}
		}
		if !found {
			checks.PayloadHashVerified = false
		}
	}

	for _, entry := range entries {
		if !entryBalances(entry) {
			checks.BalanceVerified = false
		}
	}

	for _, e := range auditEvents {
		recomputed := audit.ComputeHash(e.Seq, e.Action, e.EntityID, e.PayloadHash, e.PrevHash)
		if recomputed != e.Hash {
			checks.AuditChainSegmentValid = false
		}
	}
	return checks
}

// entryBalances sums debit/credit amounts per currency within one entry
//.
func entryBalances(entry domain.JournalEntry) bool {
	type pair struct{ debit, credit decimal.Decimal }
	totals := map[string]pair{}
	for _, line := range entry.Lines {
		t := totals[line.Amount.Currency]
		switch strings.ToLower(line.Side) {
		case "debit":
			t.debit = t.debit.Add(line.Amount.Value)
		case "credit":
			t.credit = t.credit.Add(line.Amount.Value)
		}
		totals[line.Amount.Currency] = t
	}
	for _, t := range totals {
		if !t.debit.Equal(t.credit) {
			return false
		}
	}
	return true
}
