// Package postgres implements storage.Store over PostgreSQL using sqlx
// for struct scanning and lib/pq as the driver: one *sql.DB-backed Store
// type, raw parameterized SQL, no ORM, with context-carried transaction
// helpers.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/audit"
	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/kernelerr"
	"github.com/ledgerforge/kernel/internal/money"
	"github.com/ledgerforge/kernel/internal/storage"
)

var _ storage.Store = (*Store)(nil)

// Store is the PostgreSQL-backed storage.Store.
type Store struct {
	db *sqlx.DB
}

// Open connects to Postgres and wraps the handle in a Store.
func Open(dsn string, maxConns int) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: connect", err)
	}
	db.SetMaxOpenConns(maxConns)
	return &Store{db: db}, nil
}

// New wraps an already-open sqlx handle (used by tests with go-sqlmock).
func New(db *sqlx.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

type txKey struct{}

// WithTx runs fn inside a single SQL transaction, committing on success
// and rolling back on error or panic; the transaction is carried on ctx
// for Querier to pick up.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: begin tx", err)
	}
	txCtx := context.WithValue(ctx, txKey{}, tx)
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// WithSavepoint runs fn under a nested SAVEPOINT inside the transaction
// already open on ctx (set by WithTx), rolling back only fn's own work on
// error while leaving the outer transaction intact — the per-record
// isolation IM-15 calls for during batch promotion.
func (s *Store) WithSavepoint(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	if !ok {
		return kernelerr.New(kernelerr.StorageUnavailable, "postgres: WithSavepoint called outside an active transaction")
	}
	name := "sp_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: savepoint", err)
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: rollback to savepoint", rbErr)
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: release savepoint", err)
	}
	return nil
}

// querier is satisfied by both *sqlx.DB and *sqlx.Tx.
type querier interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return s.db
}

// --- JournalStore ---

type journalLineRow struct {
	LineNumber int `db:"line_number"`
	AccountCode string `db:"account_code"`
	Side string `db:"side"`
	Amount decimal.Decimal `db:"amount"`
	Currency string `db:"currency"`
	Dimensions []byte `db:"dimensions"`
	IsRounding bool `db:"is_rounding"`
}

type journalEntryRow struct {
	JournalEntryID uuid.UUID `db:"journal_entry_id"`
	LedgerID string `db:"ledger_id"`
	EventID uuid.UUID `db:"event_id"`
	Seq int64 `db:"seq"`
	IdempotencyKey string `db:"idempotency_key"`
	Status string `db:"status"`
	PostedAt sql.NullTime `db:"posted_at"`
	ReversedAt sql.NullTime `db:"reversed_at"`
	ReversalOfID uuid.NullUUID `db:"reversal_of_id"`
}

func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*domain.JournalEntry, bool, error) {
	var row journalEntryRow
	err := s.q(ctx).GetContext(ctx, &row, `SELECT journal_entry_id, ledger_id, event_id, seq, idempotency_key, status, posted_at, reversed_at, reversal_of_id FROM journal_entries WHERE idempotency_key = $1`, key)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: find by idempotency key", err)
	}
	entry, err := s.hydrateEntry(ctx, row)
	return entry, true, err
}

func (s *Store) hydrateEntry(ctx context.Context, row journalEntryRow) (*domain.JournalEntry, error) {
	var lineRows []journalLineRow
	if err := s.q(ctx).SelectContext(ctx, &lineRows, `SELECT line_number, account_code, side, amount, currency, dimensions, is_rounding FROM journal_lines WHERE journal_entry_id = $1 ORDER BY line_number`, row.JournalEntryID); err != nil {
		return nil, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: load journal lines", err)
	}
	lines := make([]domain.JournalLine, 0, len(lineRows))
	for _, lr := range lineRows {
		dims := map[string]string{}
		if len(lr.Dimensions) > 0 {
			_ = json.Unmarshal(lr.Dimensions, &dims)
		}
		lines = append(lines, domain.JournalLine{
			LineNumber: lr.LineNumber,
			AccountCode: lr.AccountCode,
			Side: lr.Side,
			Amount: money.Amount{Value: lr.Amount, Currency: lr.Currency},
			Dimensions: dims,
			IsRounding: lr.IsRounding,
		})
	}
	entry := &domain.JournalEntry{
		JournalEntryID: row.JournalEntryID,
		LedgerID: row.LedgerID,
		EventID: row.EventID,
		Seq: row.Seq,
		IdempotencyKey: row.IdempotencyKey,
		Status: domain.JournalEntryStatus(row.Status),
		Lines: lines,
	}
	if row.PostedAt.Valid {
		entry.PostedAt = &row.PostedAt.Time
	}
	if row.ReversedAt.Valid {
		entry.ReversedAt = &row.ReversedAt.Time
	}
	if row.ReversalOfID.Valid {
		id := row.ReversalOfID.UUID
		entry.ReversalOfID = &id
	}
	return entry, nil
}

func (s *Store) InsertDraft(ctx context.Context, entry *domain.JournalEntry) error {
	q := s.q(ctx)
	_, err := q.ExecContext(ctx, `
		INSERT INTO journal_entries (journal_entry_id, ledger_id, event_id, seq, idempotency_key, status)
		VALUES ($1, $2, $3, 0, $4, $5)`,
		entry.JournalEntryID, entry.LedgerID, entry.EventID, entry.IdempotencyKey, string(domain.JournalDraft))
	if err != nil {
		return kernelerr.New(kernelerr.DuplicateIdempotency, "idempotency key already exists").WithDetails(map[string]any{"cause": err.Error()})
	}
	for _, l := range entry.Lines {
		dims, _ := json.Marshal(l.Dimensions)
		if _, err := q.ExecContext(ctx, `
			INSERT INTO journal_lines (journal_entry_id, line_number, account_code, side, amount, currency, dimensions, is_rounding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			entry.JournalEntryID, l.LineNumber, l.AccountCode, l.Side, l.Amount.Value, l.Amount.Currency, dims, l.IsRounding); err != nil {
			return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: insert journal line", err)
		}
	}
	return nil
}

// NextSeq assigns the next seq under a row-level lock on a per-ledger
// counter row, per "Journal seq: monotonic, gap-free per ledger".
func (s *Store) NextSeq(ctx context.Context, ledgerID string) (int64, error) {
	q := s.q(ctx)
	var seq int64
	err := q.GetContext(ctx, &seq, `
		INSERT INTO ledger_seq_counters (ledger_id, next_seq) VALUES ($1, 1)
		ON CONFLICT (ledger_id) DO UPDATE SET next_seq = ledger_seq_counters.next_seq + 1
		RETURNING next_seq`, ledgerID)
	if err != nil {
		return 0, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: next seq", err)
	}
	return seq, nil
}

func (s *Store) Post(ctx context.Context, entryID uuid.UUID, seq int64, postedAt time.Time) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE journal_entries SET seq = $2, status = $3, posted_at = $4
		WHERE journal_entry_id = $1 AND status = $5`,
		entryID, seq, string(domain.JournalPosted), postedAt, string(domain.JournalDraft))
	if err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: post entry", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return kernelerr.New(kernelerr.RecordNotFound, "journal entry not found in draft status")
	}
	return nil
}

func (s *Store) GetJournalEntry(ctx context.Context, id uuid.UUID) (*domain.JournalEntry, bool, error) {
	var row journalEntryRow
	err := s.q(ctx).GetContext(ctx, &row, `SELECT journal_entry_id, ledger_id, event_id, seq, idempotency_key, status, posted_at, reversed_at, reversal_of_id FROM journal_entries WHERE journal_entry_id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: get journal entry", err)
	}
	entry, err := s.hydrateEntry(ctx, row)
	return entry, true, err
}

func (s *Store) ListJournalEntriesForEvent(ctx context.Context, eventID uuid.UUID) ([]domain.JournalEntry, error) {
	var rows []journalEntryRow
	if err := s.q(ctx).SelectContext(ctx, &rows, `SELECT journal_entry_id, ledger_id, event_id, seq, idempotency_key, status, posted_at, reversed_at, reversal_of_id FROM journal_entries WHERE event_id = $1 ORDER BY ledger_id`, eventID); err != nil {
		return nil, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: list journal entries for event", err)
	}
	out := make([]domain.JournalEntry, 0, len(rows))
	for _, r := range rows {
		e, err := s.hydrateEntry(ctx, r)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

// --- OutcomeStore ---

func (s *Store) RecordOutcome(ctx context.Context, outcome domain.InterpretationOutcome) error {
	ids := make([]string, len(outcome.JournalIDs))
	for i, id := range outcome.JournalIDs {
		ids[i] = id.String()
	}
	idsJSON, _ := json.Marshal(ids)
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO interpretation_outcomes (event_id, state, reason_code, detail, policy_name, policy_hash, journal_ids, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO UPDATE SET state = $2, reason_code = $3, detail = $4, policy_name = $5, policy_hash = $6, journal_ids = $7, recorded_at = $8`,
		outcome.EventID, string(outcome.State), outcome.ReasonCode, outcome.Detail, outcome.PolicyName, outcome.PolicyHash, idsJSON, outcome.RecordedAt)
	if err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: record outcome", err)
	}
	return nil
}

func (s *Store) GetOutcome(ctx context.Context, eventID uuid.UUID) (*domain.InterpretationOutcome, bool, error) {
	var row struct {
		EventID uuid.UUID `db:"event_id"`
		State string `db:"state"`
		ReasonCode string `db:"reason_code"`
		Detail string `db:"detail"`
		PolicyName string `db:"policy_name"`
		PolicyHash string `db:"policy_hash"`
		JournalIDs []byte `db:"journal_ids"`
		RecordedAt time.Time `db:"recorded_at"`
	}
	err := s.q(ctx).GetContext(ctx, &row, `SELECT event_id, state, reason_code, detail, policy_name, policy_hash, journal_ids, recorded_at FROM interpretation_outcomes WHERE event_id = $1`, eventID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: get outcome", err)
	}
	var idStrs []string
	_ = json.Unmarshal(row.JournalIDs, &idStrs)
	ids := make([]uuid.UUID, 0, len(idStrs))
	for _, s := range idStrs {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return &domain.InterpretationOutcome{
		EventID: row.EventID, State: domain.OutcomeState(row.State), ReasonCode: row.ReasonCode,
		Detail: row.Detail, PolicyName: row.PolicyName, PolicyHash: row.PolicyHash,
		JournalIDs: ids, RecordedAt: row.RecordedAt,
	}, true, nil
}

// --- AuditStore ---

func (s *Store) AppendAuditEvent(ctx context.Context, e audit.Event) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (seq, action, entity_id, payload_hash, prev_hash, hash, actor_id, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.Seq, string(e.Action), e.EntityID, e.PayloadHash, e.PrevHash, e.Hash, e.ActorID, e.RecordedAt)
	if err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: append audit event", err)
	}
	return nil
}

func (s *Store) TailHash(ctx context.Context) (string, int64, error) {
	var row struct {
		Hash string `db:"hash"`
		Seq int64 `db:"seq"`
	}
	err := s.q(ctx).GetContext(ctx, &row, `SELECT hash, seq FROM audit_events ORDER BY seq DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: tail hash", err)
	}
	return row.Hash, row.Seq, nil
}

func (s *Store) ListAuditEventsForEntity(ctx context.Context, entityID uuid.UUID) ([]audit.Event, error) {
	return s.queryAuditEvents(ctx, `SELECT seq, action, entity_id, payload_hash, prev_hash, hash, actor_id, recorded_at FROM audit_events WHERE entity_id = $1 ORDER BY seq`, entityID)
}

func (s *Store) ListAllAuditEvents(ctx context.Context) ([]audit.Event, error) {
	return s.queryAuditEvents(ctx, `SELECT seq, action, entity_id, payload_hash, prev_hash, hash, actor_id, recorded_at FROM audit_events ORDER BY seq`)
}

func (s *Store) queryAuditEvents(ctx context.Context, query string, args ...any) ([]audit.Event, error) {
	var rows []struct {
		Seq int64 `db:"seq"`
		Action string `db:"action"`
		EntityID uuid.UUID `db:"entity_id"`
		PayloadHash string `db:"payload_hash"`
		PrevHash string `db:"prev_hash"`
		Hash string `db:"hash"`
		ActorID uuid.UUID `db:"actor_id"`
		RecordedAt time.Time `db:"recorded_at"`
	}
	if err := s.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: list audit events", err)
	}
	out := make([]audit.Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, audit.Event{
			Seq: r.Seq, Action: audit.Action(r.Action), EntityID: r.EntityID,
			PayloadHash: r.PayloadHash, PrevHash: r.PrevHash, Hash: r.Hash,
			ActorID: r.ActorID, RecordedAt: r.RecordedAt,
		})
	}
	return out, nil
}

// --- EventStore ---

func (s *Store) SaveEvent(ctx context.Context, e domain.Event) error {
	payload, _ := json.Marshal(e.Payload)
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO events (event_id, event_type, schema_version, occurred_at, effective_date, actor_id, producer, payload, payload_hash, ingested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (event_id) DO NOTHING`,
		e.EventID, e.EventType, e.SchemaVersion, e.OccurredAt, e.EffectiveDate, e.ActorID, e.Producer, payload, e.PayloadHash, e.IngestedAt)
	if err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: save event", err)
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, bool, error) {
	var row struct {
		EventID uuid.UUID `db:"event_id"`
		EventType string `db:"event_type"`
		SchemaVersion int `db:"schema_version"`
		OccurredAt time.Time `db:"occurred_at"`
		EffectiveDate time.Time `db:"effective_date"`
		ActorID uuid.UUID `db:"actor_id"`
		Producer string `db:"producer"`
		Payload []byte `db:"payload"`
		PayloadHash string `db:"payload_hash"`
		IngestedAt time.Time `db:"ingested_at"`
	}
	err := s.q(ctx).GetContext(ctx, &row, `SELECT event_id, event_type, schema_version, occurred_at, effective_date, actor_id, producer, payload, payload_hash, ingested_at FROM events WHERE event_id = $1`, eventID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: get event", err)
	}
	var payload map[string]any
	_ = json.Unmarshal(row.Payload, &payload)
	return &domain.Event{
		EventID: row.EventID, EventType: row.EventType, SchemaVersion: row.SchemaVersion,
		OccurredAt: row.OccurredAt, EffectiveDate: row.EffectiveDate, ActorID: row.ActorID,
		Producer: row.Producer, Payload: payload, PayloadHash: row.PayloadHash, IngestedAt: row.IngestedAt,
	}, true, nil
}

// --- ImportStore ---

func (s *Store) CreateBatch(ctx context.Context, batch domain.ImportBatch) error {
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO import_batches (batch_id, source_format, entity_type, mapping_name, mapping_hash, status, total_records, valid_records, invalid_records, promoted_records, skipped_records, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		batch.BatchID, batch.SourceFormat, batch.EntityType, batch.MappingName, batch.MappingHash, string(batch.Status),
		batch.TotalRecords, batch.ValidRecords, batch.InvalidRecords, batch.PromotedRecords, batch.SkippedRecords, batch.CreatedAt)
	if err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: create batch", err)
	}
	return nil
}

func (s *Store) UpdateBatch(ctx context.Context, batch domain.ImportBatch) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE import_batches SET status = $2, total_records = $3, valid_records = $4, invalid_records = $5, promoted_records = $6, skipped_records = $7, completed_at = $8
		WHERE batch_id = $1`,
		batch.BatchID, string(batch.Status), batch.TotalRecords, batch.ValidRecords, batch.InvalidRecords, batch.PromotedRecords, batch.SkippedRecords, batch.CompletedAt)
	if err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: update batch", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return kernelerr.New(kernelerr.BatchNotFound, "import batch not found")
	}
	return nil
}

func (s *Store) GetBatch(ctx context.Context, batchID uuid.UUID) (*domain.ImportBatch, bool, error) {
	var row struct {
		BatchID uuid.UUID `db:"batch_id"`
		SourceFormat string `db:"source_format"`
		EntityType string `db:"entity_type"`
		MappingName string `db:"mapping_name"`
		MappingHash string `db:"mapping_hash"`
		Status string `db:"status"`
		TotalRecords int `db:"total_records"`
		ValidRecords int `db:"valid_records"`
		InvalidRecords int `db:"invalid_records"`
		PromotedRecords int `db:"promoted_records"`
		SkippedRecords int `db:"skipped_records"`
		CreatedAt time.Time `db:"created_at"`
		CompletedAt sql.NullTime `db:"completed_at"`
	}
	err := s.q(ctx).GetContext(ctx, &row, `SELECT batch_id, source_format, entity_type, mapping_name, mapping_hash, status, total_records, valid_records, invalid_records, promoted_records, skipped_records, created_at, completed_at FROM import_batches WHERE batch_id = $1`, batchID)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: get batch", err)
	}
	b := &domain.ImportBatch{
		BatchID: row.BatchID, SourceFormat: row.SourceFormat, EntityType: row.EntityType,
		MappingName: row.MappingName, MappingHash: row.MappingHash, Status: domain.ImportBatchStatus(row.Status),
		TotalRecords: row.TotalRecords, ValidRecords: row.ValidRecords, InvalidRecords: row.InvalidRecords,
		PromotedRecords: row.PromotedRecords, SkippedRecords: row.SkippedRecords, CreatedAt: row.CreatedAt,
	}
	if row.CompletedAt.Valid {
		b.CompletedAt = &row.CompletedAt.Time
	}
	return b, true, nil
}

func (s *Store) CreateRecord(ctx context.Context, rec domain.ImportRecord) error {
	raw, _ := json.Marshal(rec.RawData)
	mapped, _ := json.Marshal(rec.MappedData)
	verrs, _ := json.Marshal(rec.ValidationErrors)
	_, err := s.q(ctx).ExecContext(ctx, `
		INSERT INTO import_records (record_id, batch_id, source_row, entity_type, raw_data, mapped_data, status, validation_errors, promoted_entity_id, promoted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.RecordID, rec.BatchID, rec.SourceRow, rec.EntityType, raw, mapped, string(rec.Status), verrs, rec.PromotedEntityID, rec.PromotedAt)
	if err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: create import record", err)
	}
	return nil
}

func (s *Store) UpdateRecord(ctx context.Context, rec domain.ImportRecord) error {
	mapped, _ := json.Marshal(rec.MappedData)
	verrs, _ := json.Marshal(rec.ValidationErrors)
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE import_records SET mapped_data = $2, status = $3, validation_errors = $4, promoted_entity_id = $5, promoted_at = $6
		WHERE record_id = $1`,
		rec.RecordID, mapped, string(rec.Status), verrs, rec.PromotedEntityID, rec.PromotedAt)
	if err != nil {
		return kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: update import record", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return kernelerr.New(kernelerr.RecordNotFound, "import record not found")
	}
	return nil
}

func (s *Store) GetRecord(ctx context.Context, recordID uuid.UUID) (*domain.ImportRecord, bool, error) {
	recs, err := s.queryRecords(ctx, `SELECT record_id, batch_id, source_row, entity_type, raw_data, mapped_data, status, validation_errors, promoted_entity_id, promoted_at FROM import_records WHERE record_id = $1`, recordID)
	if err != nil || len(recs) == 0 {
		return nil, false, err
	}
	return &recs[0], true, nil
}

func (s *Store) ListRecordsForBatch(ctx context.Context, batchID uuid.UUID) ([]domain.ImportRecord, error) {
	return s.queryRecords(ctx, `SELECT record_id, batch_id, source_row, entity_type, raw_data, mapped_data, status, validation_errors, promoted_entity_id, promoted_at FROM import_records WHERE batch_id = $1 ORDER BY source_row`, batchID)
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]domain.ImportRecord, error) {
	var rows []struct {
		RecordID uuid.UUID `db:"record_id"`
		BatchID uuid.UUID `db:"batch_id"`
		SourceRow int `db:"source_row"`
		EntityType string `db:"entity_type"`
		RawData []byte `db:"raw_data"`
		MappedData []byte `db:"mapped_data"`
		Status string `db:"status"`
		ValidationErrors []byte `db:"validation_errors"`
		PromotedEntityID uuid.NullUUID `db:"promoted_entity_id"`
		PromotedAt sql.NullTime `db:"promoted_at"`
	}
	if err := s.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, kernelerr.Wrap(kernelerr.StorageUnavailable, "postgres: query import records", err)
	}
	out := make([]domain.ImportRecord, 0, len(rows))
	for _, r := range rows {
		var raw, mapped map[string]any
		_ = json.Unmarshal(r.RawData, &raw)
		_ = json.Unmarshal(r.MappedData, &mapped)
		var verrs []domain.ValidationError
		_ = json.Unmarshal(r.ValidationErrors, &verrs)
		rec := domain.ImportRecord{
			RecordID: r.RecordID, BatchID: r.BatchID, SourceRow: r.SourceRow, EntityType: r.EntityType,
			RawData: raw, MappedData: mapped, Status: domain.ImportRecordStatus(r.Status), ValidationErrors: verrs,
		}
		if r.PromotedEntityID.Valid {
			id := r.PromotedEntityID.UUID
			rec.PromotedEntityID = &id
		}
		if r.PromotedAt.Valid {
			rec.PromotedAt = &r.PromotedAt.Time
		}
		out = append(out, rec)
	}
	return out, nil
}
