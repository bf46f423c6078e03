// Package storage defines the kernel's persistence seams. Each interface
// groups the operations one part of the interpretation pipeline needs;
// internal/storage/postgres and internal/storage/memory each implement
// the full set.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/audit"
	"github.com/ledgerforge/kernel/internal/domain"
)

// JournalStore persists JournalEntry/JournalLine records and assigns
// per-ledger sequence numbers. It satisfies internal/journal.Store.
type JournalStore interface {
	FindByIdempotencyKey(ctx context.Context, key string) (*domain.JournalEntry, bool, error)
	InsertDraft(ctx context.Context, entry *domain.JournalEntry) error
	NextSeq(ctx context.Context, ledgerID string) (int64, error)
	Post(ctx context.Context, entryID uuid.UUID, seq int64, postedAt time.Time) error
	GetJournalEntry(ctx context.Context, id uuid.UUID) (*domain.JournalEntry, bool, error)
	ListJournalEntriesForEvent(ctx context.Context, eventID uuid.UUID) ([]domain.JournalEntry, error)
}

// OutcomeStore persists the InterpretationOutcome for each event.
type OutcomeStore interface {
	RecordOutcome(ctx context.Context, outcome domain.InterpretationOutcome) error
	GetOutcome(ctx context.Context, eventID uuid.UUID) (*domain.InterpretationOutcome, bool, error)
}

// AuditStore persists the append-only hash chain and answers the "what
// is the current tail hash" question the next write needs.
type AuditStore interface {
	AppendAuditEvent(ctx context.Context, e audit.Event) error
	TailHash(ctx context.Context) (string, int64, error) // hash, seq; ("", 0, nil) when empty
	ListAuditEventsForEntity(ctx context.Context, entityID uuid.UUID) ([]audit.Event, error)
	ListAllAuditEvents(ctx context.Context) ([]audit.Event, error)
}

// EventStore persists the raw ingested Event (used by the trace selector
// and for replay).
type EventStore interface {
	SaveEvent(ctx context.Context, e domain.Event) error
	GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, bool, error)
}

// ImportStore persists staging batches and records for the ingestion
// pipeline.
type ImportStore interface {
	CreateBatch(ctx context.Context, batch domain.ImportBatch) error
	UpdateBatch(ctx context.Context, batch domain.ImportBatch) error
	GetBatch(ctx context.Context, batchID uuid.UUID) (*domain.ImportBatch, bool, error)

	CreateRecord(ctx context.Context, rec domain.ImportRecord) error
	UpdateRecord(ctx context.Context, rec domain.ImportRecord) error
	GetRecord(ctx context.Context, recordID uuid.UUID) (*domain.ImportRecord, bool, error)
	ListRecordsForBatch(ctx context.Context, batchID uuid.UUID) ([]domain.ImportRecord, error)
}

// Store is the union every coordinator and ingestion-service caller
// depends on; postgres.Store and memory.Store each implement it whole.
type Store interface {
	JournalStore
	OutcomeStore
	AuditStore
	EventStore
	ImportStore
}
