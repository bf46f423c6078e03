// Package memory is an in-process storage.Store used by tests and by
// local development without a Postgres instance. Grounded on the
// teacher's internal/app/storage/memory.go (mutex-guarded map-backed
// store satisfying the same interfaces as the Postgres store).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/audit"
	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/kernelerr"
	"github.com/ledgerforge/kernel/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is a mutex-guarded, map-backed storage.Store.
type Store struct {
	mu sync.Mutex

	journalEntries map[uuid.UUID]*domain.JournalEntry
	byIdempotency  map[string]uuid.UUID
	seqByLedger    map[string]int64

	outcomes map[uuid.UUID]domain.InterpretationOutcome

	auditEvents []audit.Event

	events map[uuid.UUID]domain.Event

	batches map[uuid.UUID]domain.ImportBatch
	records map[uuid.UUID]domain.ImportRecord
}

// New builds an empty in-memory store.
func New() *Store {
	return &Store{
		journalEntries: make(map[uuid.UUID]*domain.JournalEntry),
		byIdempotency:  make(map[string]uuid.UUID),
		seqByLedger:    make(map[string]int64),
		outcomes:       make(map[uuid.UUID]domain.InterpretationOutcome),
		events:         make(map[uuid.UUID]domain.Event),
		batches:        make(map[uuid.UUID]domain.ImportBatch),
		records:        make(map[uuid.UUID]domain.ImportRecord),
	}
}

// --- JournalStore ---

func (s *Store) FindByIdempotencyKey(_ context.Context, key string) (*domain.JournalEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byIdempotency[key]
	if !ok {
		return nil, false, nil
	}
	entry := *s.journalEntries[id]
	return &entry, true, nil
}

func (s *Store) InsertDraft(_ context.Context, entry *domain.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byIdempotency[entry.IdempotencyKey]; exists {
		return kernelerr.New(kernelerr.DuplicateIdempotency, "idempotency key already has a draft or posted entry")
	}
	cp := *entry
	s.journalEntries[entry.JournalEntryID] = &cp
	s.byIdempotency[entry.IdempotencyKey] = entry.JournalEntryID
	return nil
}

func (s *Store) NextSeq(_ context.Context, ledgerID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seqByLedger[ledgerID]++
	return s.seqByLedger[ledgerID], nil
}

func (s *Store) Post(_ context.Context, entryID uuid.UUID, seq int64, postedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.journalEntries[entryID]
	if !ok {
		return kernelerr.New(kernelerr.RecordNotFound, "journal entry not found")
	}
	entry.Seq = seq
	entry.Status = domain.JournalPosted
	t := postedAt
	entry.PostedAt = &t
	return nil
}

func (s *Store) GetJournalEntry(_ context.Context, id uuid.UUID) (*domain.JournalEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.journalEntries[id]
	if !ok {
		return nil, false, nil
	}
	cp := *entry
	return &cp, true, nil
}

func (s *Store) ListJournalEntriesForEvent(_ context.Context, eventID uuid.UUID) ([]domain.JournalEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.JournalEntry
	for _, e := range s.journalEntries {
		if e.EventID == eventID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LedgerID < out[j].LedgerID })
	return out, nil
}

// --- OutcomeStore ---

func (s *Store) RecordOutcome(_ context.Context, outcome domain.InterpretationOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes[outcome.EventID] = outcome
	return nil
}

func (s *Store) GetOutcome(_ context.Context, eventID uuid.UUID) (*domain.InterpretationOutcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.outcomes[eventID]
	if !ok {
		return nil, false, nil
	}
	return &o, true, nil
}

// --- AuditStore ---

func (s *Store) AppendAuditEvent(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditEvents = append(s.auditEvents, e)
	return nil
}

func (s *Store) TailHash(_ context.Context) (string, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.auditEvents) == 0 {
		return "", 0, nil
	}
	last := s.auditEvents[len(s.auditEvents)-1]
	return last.Hash, last.Seq, nil
}

func (s *Store) ListAuditEventsForEntity(_ context.Context, entityID uuid.UUID) ([]audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []audit.Event
	for _, e := range s.auditEvents {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) ListAllAuditEvents(_ context.Context) ([]audit.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.Event, len(s.auditEvents))
	copy(out, s.auditEvents)
	return out, nil
}

// --- EventStore ---

func (s *Store) SaveEvent(_ context.Context, e domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[e.EventID] = e
	return nil
}

func (s *Store) GetEvent(_ context.Context, eventID uuid.UUID) (*domain.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[eventID]
	if !ok {
		return nil, false, nil
	}
	return &e, true, nil
}

// --- ImportStore ---

func (s *Store) CreateBatch(_ context.Context, batch domain.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.BatchID] = batch
	return nil
}

func (s *Store) UpdateBatch(_ context.Context, batch domain.ImportBatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.batches[batch.BatchID]; !ok {
		return kernelerr.New(kernelerr.BatchNotFound, "import batch not found")
	}
	s.batches[batch.BatchID] = batch
	return nil
}

func (s *Store) GetBatch(_ context.Context, batchID uuid.UUID) (*domain.ImportBatch, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.batches[batchID]
	if !ok {
		return nil, false, nil
	}
	return &b, true, nil
}

func (s *Store) CreateRecord(_ context.Context, rec domain.ImportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.RecordID] = rec
	return nil
}

func (s *Store) UpdateRecord(_ context.Context, rec domain.ImportRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.RecordID]; !ok {
		return kernelerr.New(kernelerr.RecordNotFound, "import record not found")
	}
	s.records[rec.RecordID] = rec
	return nil
}

func (s *Store) GetRecord(_ context.Context, recordID uuid.UUID) (*domain.ImportRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (s *Store) ListRecordsForBatch(_ context.Context, batchID uuid.UUID) ([]domain.ImportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ImportRecord
	for _, r := range s.records {
		if r.BatchID == batchID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceRow < out[j].SourceRow })
	return out, nil
}
