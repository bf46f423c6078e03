// Package service orchestrates the staging half of the ingestion
// pipeline: load a source file into staged records, validate every
// staged record, and let an operator retry one corrected record, built
// on the adapter/mapping/validators packages and the kernel's
// storage.Store seam.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/config"
	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/ingestion/adapter"
	"github.com/ledgerforge/kernel/internal/ingestion/mapping"
	"github.com/ledgerforge/kernel/internal/ingestion/validators"
	"github.com/ledgerforge/kernel/internal/metrics"
	"github.com/ledgerforge/kernel/internal/schema"
	"github.com/ledgerforge/kernel/internal/storage"
)

// MappingLookup resolves a registered import mapping by name.
type MappingLookup func(name string) (*config.PackImportMapping, bool)

// ImportService loads source files into staging and validates them.
type ImportService struct {
	Store storage.Store
	Adapters *adapter.Registry
	Mappings MappingLookup
	Clock func() time.Time
}

// New wires an ImportService with the default adapter registry and the
// system clock.
func New(store storage.Store, mappings MappingLookup) *ImportService {
	return &ImportService{
		Store: store,
		Adapters: adapter.DefaultRegistry(),
		Mappings: mappings,
		Clock: time.Now,
	}
}

func mappingHash(m *config.PackImportMapping) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d", m.Name, m.Version)))
	return hex.EncodeToString(sum[:])[:64]
}

// ProbeSource previews a source file against a mapping's source_format
// and source_options without staging it.
func (s *ImportService) ProbeSource(path string, m *config.PackImportMapping) (adapter.Probe, error) {
	a, err := s.Adapters.Get(m.SourceFormat)
	if err != nil {
		return adapter.Probe{}, err
	}
	return a.Probe(path, m.SourceOptions)
}

// LoadBatch reads source_path through the mapping's adapter, applies the
// field mapping to every row, and persists a staged ImportBatch plus one
// ImportRecord per row.
func (s *ImportService) LoadBatch(ctx context.Context, sourcePath string, m *config.PackImportMapping, actorID uuid.UUID) (domain.ImportBatch, error) {
	a, err := s.Adapters.Get(m.SourceFormat)
	if err != nil {
		return domain.ImportBatch{}, err
	}
	rows, err := a.Read(sourcePath, m.SourceOptions)
	if err != nil {
		return domain.ImportBatch{}, err
	}

	batch := domain.ImportBatch{
		BatchID: uuid.New(),
		SourceFormat: m.SourceFormat,
		EntityType: m.EntityType,
		MappingName: m.Name,
		MappingHash: mappingHash(m),
		Status: domain.BatchStaged,
		TotalRecords: len(rows),
		CreatedAt: s.Clock(),
	}
	if err := s.Store.CreateBatch(ctx, batch); err != nil {
		return domain.ImportBatch{}, err
	}

	for rowIndex, raw := range rows {
		result := mapping.ApplyMapping(raw, m.FieldMappings)
		rec := domain.ImportRecord{
			RecordID: uuid.New(),
			BatchID: batch.BatchID,
			SourceRow: rowIndex + 1,
			EntityType: m.EntityType,
			Status: domain.RecordStaged,
			RawData: map[string]any(raw),
		}
		if result.Success {
			rec.MappedData = result.MappedData
		}
		rec.ValidationErrors = toDomainErrors(result.Errors)
		if err := s.Store.CreateRecord(ctx, rec); err != nil {
			return domain.ImportBatch{}, err
		}
	}

	return batch, nil
}

// ValidateBatch runs every record-level and batch-level validator over a
// staged batch's records, then updates each record's status and the
// batch's summary counters.
func (s *ImportService) ValidateBatch(ctx context.Context, batchID uuid.UUID) (domain.ImportBatch, error) {
	batch, ok, err := s.Store.GetBatch(ctx, batchID)
	if err != nil {
		return domain.ImportBatch{}, err
	}
	if !ok {
		return domain.ImportBatch{}, fmt.Errorf("ingestion: batch not found: %s", batchID)
	}
	m, ok := s.Mappings(batch.MappingName)
	if !ok {
		return domain.ImportBatch{}, fmt.Errorf("ingestion: mapping not found: %s", batch.MappingName)
	}

	records, err := s.Store.ListRecordsForBatch(ctx, batchID)
	if err != nil {
		return domain.ImportBatch{}, err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].SourceRow < records[j].SourceRow })

	currencyFields, decimalFields, dateFields := fieldsByType(m.FieldMappings)
	batchUniqueFields := batchUniqueFields(m.Validations)

	var batchErrorsByIndex map[int][]schema.ValidationError
	if len(batchUniqueFields) > 0 {
		mappedRows := make([]map[string]any, len(records))
		for i, r := range records {
			mappedRows[i] = r.MappedData
		}
		batchErrorsByIndex = validators.ValidateBatchUniqueness(mappedRows, batchUniqueFields)
	}

	validCount, invalidCount := 0, 0
	for i := range records {
		rec := &records[i]
		errs := validateRecord(rec.MappedData, m, currencyFields, decimalFields, dateFields)
		errs = append(errs, batchErrorsByIndex[i]...)

		rec.ValidationErrors = toDomainErrors(errs)
		if len(errs) > 0 {
			rec.Status = domain.RecordInvalid
			invalidCount++
		} else {
			rec.Status = domain.RecordValid
			validCount++
		}
		if err := s.Store.UpdateRecord(ctx, *rec); err != nil {
			return domain.ImportBatch{}, err
		}
		metrics.RecordImportRecord(rec.EntityType, string(rec.Status))
	}

	batch.ValidRecords = validCount
	batch.InvalidRecords = invalidCount
	batch.Status = domain.BatchValidated
	if err := s.Store.UpdateBatch(ctx, *batch); err != nil {
		return domain.ImportBatch{}, err
	}
	return *batch, nil
}

func validateRecord(mapped map[string]any, m *config.PackImportMapping, currencyFields, decimalFields, dateFields []string) []schema.ValidationError {
	var errs []schema.ValidationError
	errs = append(errs, validators.ValidateRequiredFields(mapped, m.FieldMappings)...)
	errs = append(errs, validators.ValidateFieldTypes(mapped, m.FieldMappings)...)
	if len(currencyFields) > 0 {
		errs = append(errs, validators.ValidateCurrencyCodes(mapped, currencyFields)...)
	}
	if len(decimalFields) > 0 {
		errs = append(errs, validators.ValidateDecimalPrecision(mapped, decimalFields)...)
	}
	if len(dateFields) > 0 {
		errs = append(errs, validators.ValidateDateRanges(mapped, dateFields)...)
	}
	errs = append(errs, validators.RunEntityValidators(m.EntityType, mapped)...)
	return errs
}

func fieldsByType(fieldMappings []config.PackFieldMapping) (currency, decimal, date []string) {
	for _, fm := range fieldMappings {
		switch schema.FieldType(fm.FieldType) {
		case schema.FieldCurrency:
			currency = append(currency, fm.Target)
		case schema.FieldDecimal:
			decimal = append(decimal, fm.Target)
		case schema.FieldDate, schema.FieldDatetime:
			date = append(date, fm.Target)
		}
	}
	return
}

func batchUniqueFields(rules []config.PackImportValidation) []string {
	var fields []string
	for _, r := range rules {
		if r.RuleType == "unique" && r.Scope == "batch" {
			fields = append(fields, r.Fields...)
		}
	}
	return fields
}

// RetryRecord re-applies the mapping and validators to one record after an
// operator supplies corrected raw data, without re-running batch-wide
// uniqueness (a single record can't meaningfully re-check the whole
// batch in isolation).
func (s *ImportService) RetryRecord(ctx context.Context, recordID uuid.UUID, correctedRaw map[string]any) (domain.ImportRecord, error) {
	rec, ok, err := s.Store.GetRecord(ctx, recordID)
	if err != nil {
		return domain.ImportRecord{}, err
	}
	if !ok {
		return domain.ImportRecord{}, fmt.Errorf("ingestion: record not found: %s", recordID)
	}
	batch, ok, err := s.Store.GetBatch(ctx, rec.BatchID)
	if err != nil {
		return domain.ImportRecord{}, err
	}
	if !ok {
		return domain.ImportRecord{}, fmt.Errorf("ingestion: batch not found: %s", rec.BatchID)
	}
	m, ok := s.Mappings(batch.MappingName)
	if !ok {
		return domain.ImportRecord{}, fmt.Errorf("ingestion: mapping not found: %s", batch.MappingName)
	}

	rec.RawData = correctedRaw
	result := mapping.ApplyMapping(correctedRaw, m.FieldMappings)
	if !result.Success {
		rec.MappedData = nil
		rec.ValidationErrors = toDomainErrors(result.Errors)
		rec.Status = domain.RecordInvalid
		if err := s.Store.UpdateRecord(ctx, *rec); err != nil {
			return domain.ImportRecord{}, err
		}
		return *rec, nil
	}
	rec.MappedData = result.MappedData

	currencyFields, decimalFields, dateFields := fieldsByType(m.FieldMappings)
	errs := validateRecord(rec.MappedData, m, currencyFields, decimalFields, dateFields)
	rec.ValidationErrors = toDomainErrors(errs)
	if len(errs) > 0 {
		rec.Status = domain.RecordInvalid
	} else {
		rec.Status = domain.RecordValid
	}
	if err := s.Store.UpdateRecord(ctx, *rec); err != nil {
		return domain.ImportRecord{}, err
	}
	return *rec, nil
}

// GetRecordDetail returns one record's full raw data, mapped data, and
// validation errors.
func (s *ImportService) GetRecordDetail(ctx context.Context, recordID uuid.UUID) (domain.ImportRecord, error) {
	rec, ok, err := s.Store.GetRecord(ctx, recordID)
	if err != nil {
		return domain.ImportRecord{}, err
	}
	if !ok {
		return domain.ImportRecord{}, fmt.Errorf("ingestion: record not found: %s", recordID)
	}
	return *rec, nil
}

// GetBatchSummary returns a batch with its current summary counts.
func (s *ImportService) GetBatchSummary(ctx context.Context, batchID uuid.UUID) (domain.ImportBatch, error) {
	batch, ok, err := s.Store.GetBatch(ctx, batchID)
	if err != nil {
		return domain.ImportBatch{}, err
	}
	if !ok {
		return domain.ImportBatch{}, fmt.Errorf("ingestion: batch not found: %s", batchID)
	}
	return *batch, nil
}

// GetBatchErrors returns every invalid record in a batch, ordered by
// source row.
func (s *ImportService) GetBatchErrors(ctx context.Context, batchID uuid.UUID) ([]domain.ImportRecord, error) {
	records, err := s.Store.ListRecordsForBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	var invalid []domain.ImportRecord
	for _, r := range records {
		if r.Status == domain.RecordInvalid {
			invalid = append(invalid, r)
		}
	}
	sort.Slice(invalid, func(i, j int) bool { return invalid[i].SourceRow < invalid[j].SourceRow })
	return invalid, nil
}

func toDomainErrors(errs []schema.ValidationError) []domain.ValidationError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]domain.ValidationError, len(errs))
	for i, e := range errs {
		out[i] = domain.ValidationError{Code: e.Code, Message: e.Message, Field: e.Field, Details: e.Details}
	}
	return out
}
