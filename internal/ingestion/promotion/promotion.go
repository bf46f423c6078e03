// Package promotion moves valid staged records into their live domain
// tables: one SAVEPOINT per record so a single bad row can't roll back an
// entire batch, and a preflight dependency graph. ComputePreflightGraph
// reports every VALID record as ready and names no blockers, so the
// skip_blocked option never marks a record SKIPPED.
package promotion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/audit"
	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/metrics"
	"github.com/ledgerforge/kernel/internal/storage"
)

// PromoteResult is one promoter invocation's outcome.
type PromoteResult struct {
	Success bool
	EntityID *uuid.UUID
	Error string
}

// Promoter turns one mapped, valid import record into a live domain
// entity, one Promoter per entity_type. internal/bootstrap's
// CoordinatorPromoter is the kernel's implementation.
type Promoter interface {
	// CheckDuplicate reports whether an equivalent live entity already
	// exists, so promote_batch can skip it instead of erroring.
	CheckDuplicate(ctx context.Context, mapped map[string]any) (bool, error)
	Promote(ctx context.Context, mapped map[string]any, actorID uuid.UUID, now time.Time) PromoteResult
}

// PromotionError is one record's promotion failure, surfaced in
// PromotionResult.Errors.
type PromotionError struct {
	RecordID uuid.UUID
	SourceRow int
	ErrorCode string
	Message string
}

// PromotionResult is promote_batch's summary.
type PromotionResult struct {
	BatchID uuid.UUID
	TotalAttempted int
	Promoted int
	Failed int
	Skipped int
	Errors []PromotionError
}

// PreflightBlocker names one unresolved dependency blocking a set of
// records from promotion.
type PreflightBlocker struct {
	MissingEntityType string
	MissingKey string
	BlockedRecords []uuid.UUID
}

// PreflightGraph is the dependency graph computed before a batch is
// promoted: how many valid records are ready to go versus blocked behind
// an unresolved reference.
type PreflightGraph struct {
	BatchID uuid.UUID
	ReadyCount int
	BlockedCount int
	Blockers []PreflightBlocker
}

// PromotionService promotes VALID staged records to live tables.
type PromotionService struct {
	Store storage.Store
	Promoters map[string]Promoter
	Clock func() time.Time
	Auditor *Auditor

	// RunInTx wraps the whole batch promotion; defaults to pass-through.
	// A Postgres-backed caller sets this to (*postgres.Store).WithTx.
	RunInTx func(ctx context.Context, fn func(ctx context.Context) error) error
	// WithSavepoint wraps one record's promotion so a single failure
	// rolls back only that record; defaults to pass-through. A
	// Postgres-backed caller sets this to (*postgres.Store).WithSavepoint.
	WithSavepoint func(ctx context.Context, fn func(ctx context.Context) error) error
}

func passthrough(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// New wires a PromotionService with pass-through transaction seams,
// suitable for memory.Store; a Postgres caller overrides RunInTx and
// WithSavepoint after construction.
func New(store storage.Store, promoters map[string]Promoter) *PromotionService {
	return &PromotionService{
		Store: store,
		Promoters: promoters,
		Clock: time.Now,
		RunInTx: passthrough,
		WithSavepoint: passthrough,
	}
}

// ComputePreflightGraph reports every VALID record in the batch as ready;
// v1 carries no referential resolution (no FK-style existence checks
// across staged entity types yet).
func (p *PromotionService) ComputePreflightGraph(ctx context.Context, batchID uuid.UUID) (PreflightGraph, error) {
	records, err := p.Store.ListRecordsForBatch(ctx, batchID)
	if err != nil {
		return PreflightGraph{}, err
	}
	ready := 0
	for _, r := range records {
		if r.Status == domain.RecordValid {
			ready++
		}
	}
	return PreflightGraph{BatchID: batchID, ReadyCount: ready, BlockedCount: 0}, nil
}

// PromoteBatch promotes every VALID record in the batch, each inside its
// own savepoint: a duplicate is skipped, a promoter failure marks the
// record PROMOTION_FAILED and keeps going, and the batch's summary
// counters are updated once at the end.
func (p *PromotionService) PromoteBatch(ctx context.Context, batchID uuid.UUID, actorID uuid.UUID, dryRun, skipBlocked bool) (PromotionResult, error) {
	batch, ok, err := p.Store.GetBatch(ctx, batchID)
	if err != nil {
		return PromotionResult{}, err
	}
	if !ok {
		return PromotionResult{}, fmt.Errorf("ingestion: batch not found: %s", batchID)
	}

	records, err := p.Store.ListRecordsForBatch(ctx, batchID)
	if err != nil {
		return PromotionResult{}, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].SourceRow < records[j].SourceRow })

	var valid []domain.ImportRecord
	for _, r := range records {
		if r.Status == domain.RecordValid {
			valid = append(valid, r)
		}
	}

	graph, err := p.ComputePreflightGraph(ctx, batchID)
	if err != nil {
		return PromotionResult{}, err
	}
	ready := valid
	if graph.ReadyCount == 0 {
		ready = nil
	}
	// v1's graph never reports blockers (no referential resolution yet),
	// so skipBlocked is a documented no-op until that lands.
	_ = skipBlocked

	if dryRun {
		return PromotionResult{
			BatchID: batchID,
			TotalAttempted: len(ready),
			Skipped: len(valid) - len(ready),
		}, nil
	}

	result := PromotionResult{BatchID: batchID, TotalAttempted: len(ready)}
	now := p.Clock()

	runErr := p.RunInTx(ctx, func(txCtx context.Context) error {
		for i := range ready {
			rec := ready[i]
			promoted, err := p.promoteOne(txCtx, &rec, actorID, now)
			if err != nil {
				return err
			}
			switch {
			case promoted == outcomeSkippedDuplicate:
				result.Skipped++
				metrics.RecordPromotion(rec.EntityType, "skipped")
			case promoted == outcomePromoted:
				result.Promoted++
				metrics.RecordPromotion(rec.EntityType, "promoted")
			default:
				result.Failed++
				result.Errors = append(result.Errors, PromotionError{
					RecordID: rec.RecordID, SourceRow: rec.SourceRow,
					ErrorCode: "PROMOTION_FAILED", Message: rec.ValidationErrors[len(rec.ValidationErrors)-1].Message,
				})
				metrics.RecordPromotion(rec.EntityType, "failed")
			}
			if err := p.Store.UpdateRecord(txCtx, rec); err != nil {
				return err
			}
		}
		batch.PromotedRecords += result.Promoted
		batch.SkippedRecords += result.Skipped
		completedAt := now
		batch.CompletedAt = &completedAt
		batch.Status = domain.BatchCompleted
		return p.Store.UpdateBatch(txCtx, *batch)
	})
	if runErr != nil {
		return PromotionResult{}, runErr
	}

	if p.Auditor != nil {
		if err := p.Auditor.RecordBatchCompleted(ctx, batch.BatchID, actorID, result.Promoted, result.Failed, result.Skipped); err != nil {
			return result, err
		}
	}
	return result, nil
}

type promotionOutcome int

const (
	outcomeFailed promotionOutcome = iota
	outcomePromoted
	outcomeSkippedDuplicate
)

func (p *PromotionService) promoteOne(ctx context.Context, rec *domain.ImportRecord, actorID uuid.UUID, now time.Time) (promotionOutcome, error) {
	promoter, ok := p.Promoters[rec.EntityType]
	if !ok {
		rec.Status = domain.RecordPromotionFailed
		rec.ValidationErrors = append(rec.ValidationErrors, domain.ValidationError{
			Code: "PROMOTION_FAILED", Message: fmt.Sprintf("no promoter for entity_type %q", rec.EntityType),
		})
		return outcomeFailed, nil
	}

	var outcome promotionOutcome
	err := p.WithSavepoint(ctx, func(ctx context.Context) error {
		dup, err := promoter.CheckDuplicate(ctx, rec.MappedData)
		if err != nil {
			return err
		}
		if dup {
			rec.Status = domain.RecordSkipped
			outcome = outcomeSkippedDuplicate
			return nil
		}
		result := promoter.Promote(ctx, rec.MappedData, actorID, now)
		if result.Success && result.EntityID != nil {
			rec.Status = domain.RecordPromoted
			rec.PromotedEntityID = result.EntityID
			rec.PromotedAt = &now
			outcome = outcomePromoted
			if p.Auditor != nil {
				return p.Auditor.RecordPromoted(ctx, rec.RecordID, rec.BatchID, rec.SourceRow, rec.EntityType, *result.EntityID, actorID)
			}
			return nil
		}
		msg := result.Error
		if msg == "" {
			msg = "unknown promotion error"
		}
		rec.Status = domain.RecordPromotionFailed
		rec.ValidationErrors = append(rec.ValidationErrors, domain.ValidationError{Code: "PROMOTION_FAILED", Message: msg})
		outcome = outcomeFailed
		return nil
	})
	if err != nil {
		rec.Status = domain.RecordPromotionFailed
		rec.ValidationErrors = append(rec.ValidationErrors, domain.ValidationError{Code: "PROMOTION_FAILED", Message: err.Error()})
		return outcomeFailed, nil
	}
	return outcome, nil
}

// PromoteRecord promotes a single VALID record inside its own savepoint,
// for operator-driven retry of one promotion failure at a time.
func (p *PromotionService) PromoteRecord(ctx context.Context, recordID uuid.UUID, actorID uuid.UUID) (domain.ImportRecord, error) {
	rec, ok, err := p.Store.GetRecord(ctx, recordID)
	if err != nil {
		return domain.ImportRecord{}, err
	}
	if !ok {
		return domain.ImportRecord{}, fmt.Errorf("ingestion: record not found: %s", recordID)
	}
	if rec.Status != domain.RecordValid {
		return domain.ImportRecord{}, fmt.Errorf("ingestion: record %s is not VALID (status=%s)", recordID, rec.Status)
	}

	now := p.Clock()
	if _, err := p.promoteOne(ctx, rec, actorID, now); err != nil {
		return domain.ImportRecord{}, err
	}
	if err := p.Store.UpdateRecord(ctx, *rec); err != nil {
		return domain.ImportRecord{}, err
	}
	return *rec, nil
}

// Auditor emits the import-specific audit actions (IMPORT_RECORD_PROMOTED,
// IMPORT_BATCH_COMPLETED) onto the shared hash chain. Kept separate from
// internal/coordinator's chain bookkeeping since promotion runs as its
// own unit of work, outside event interpretation.
type Auditor struct {
	Store storage.Store
	Clock func() time.Time
}

func (a *Auditor) next(ctx context.Context) (prevHash string, seq int64, err error) {
	prevHash, seq, err = a.Store.TailHash(ctx)
	if err != nil {
		return "", 0, err
	}
	return prevHash, seq + 1, nil
}

// RecordPromoted appends an IMPORT_RECORD_PROMOTED audit event.
func (a *Auditor) RecordPromoted(ctx context.Context, recordID, batchID uuid.UUID, sourceRow int, entityType string, promotedEntityID, actorID uuid.UUID) error {
	prevHash, seq, err := a.next(ctx)
	if err != nil {
		return err
	}
	payloadHash := audit.HashPayload([]byte(fmt.Sprintf("%s:%s:%d:%s:%s", recordID, batchID, sourceRow, entityType, promotedEntityID)))
	e := audit.New(seq, audit.ImportRecordPromoted, recordID, payloadHash, prevHash, actorID, a.Clock())
	return a.Store.AppendAuditEvent(ctx, e)
}

// RecordBatchCompleted appends an IMPORT_BATCH_COMPLETED audit event.
func (a *Auditor) RecordBatchCompleted(ctx context.Context, batchID, actorID uuid.UUID, promoted, failed, skipped int) error {
	prevHash, seq, err := a.next(ctx)
	if err != nil {
		return err
	}
	payloadHash := audit.HashPayload([]byte(fmt.Sprintf("%s:%d:%d:%d", batchID, promoted, failed, skipped)))
	e := audit.New(seq, audit.ImportBatchCompleted, batchID, payloadHash, prevHash, actorID, a.Clock())
	return a.Store.AppendAuditEvent(ctx, e)
}
