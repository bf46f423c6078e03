package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/config"
	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/storage/memory"
)

func accountMapping() *config.PackImportMapping {
	return &config.PackImportMapping{
		Name:         "coa.standard",
		Version:      1,
		EntityType:   "account",
		SourceFormat: "csv",
		FieldMappings: []config.PackFieldMapping{
			{Source: "code", Target: "code", FieldType: "string", Required: true},
			{Source: "name", Target: "name", FieldType: "string", Required: true},
			{Source: "currency", Target: "currency", FieldType: "currency", Required: true},
		},
	}
}

func newTestService(t *testing.T, m *config.PackImportMapping) (*ImportService, *memory.Store) {
	t.Helper()
	store := memory.New()
	lookup := func(name string) (*config.PackImportMapping, bool) {
		if name == m.Name {
			return m, true
		}
		return nil, false
	}
	return New(store, lookup), store
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestLoadBatchStagesEveryRow(t *testing.T) {
	m := accountMapping()
	svc, store := newTestService(t, m)
	path := writeCSV(t, "code,name,currency\n1000,Cash,USD\n2000,AR,EU\n")

	batch, err := svc.LoadBatch(context.Background(), path, m, uuid.New())
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if batch.TotalRecords != 2 {
		t.Fatalf("expected 2 records, got %d", batch.TotalRecords)
	}
	records, err := store.ListRecordsForBatch(context.Background(), batch.BatchID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Status != domain.RecordStaged {
			t.Fatalf("expected staged, got %s", r.Status)
		}
	}
}

func TestValidateBatchFlagsInvalidCurrency(t *testing.T) {
	m := accountMapping()
	svc, store := newTestService(t, m)
	path := writeCSV(t, "code,name,currency\n1000,Cash,USD\n2000,AR,EU\n")

	batch, err := svc.LoadBatch(context.Background(), path, m, uuid.New())
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	validated, err := svc.ValidateBatch(context.Background(), batch.BatchID)
	if err != nil {
		t.Fatalf("validate batch: %v", err)
	}
	if validated.ValidRecords != 1 || validated.InvalidRecords != 1 {
		t.Fatalf("expected 1 valid, 1 invalid, got valid=%d invalid=%d", validated.ValidRecords, validated.InvalidRecords)
	}

	errored, err := svc.GetBatchErrors(context.Background(), batch.BatchID)
	if err != nil {
		t.Fatalf("get batch errors: %v", err)
	}
	if len(errored) != 1 || errored[0].SourceRow != 2 {
		t.Fatalf("expected row 2 invalid, got %+v", errored)
	}
}

func TestRetryRecordFixesInvalidRow(t *testing.T) {
	m := accountMapping()
	svc, store := newTestService(t, m)
	path := writeCSV(t, "code,name,currency\n2000,AR,EU\n")

	batch, err := svc.LoadBatch(context.Background(), path, m, uuid.New())
	if err != nil {
		t.Fatalf("load batch: %v", err)
	}
	if _, err := svc.ValidateBatch(context.Background(), batch.BatchID); err != nil {
		t.Fatalf("validate batch: %v", err)
	}
	records, err := store.ListRecordsForBatch(context.Background(), batch.BatchID)
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	recID := records[0].RecordID

	fixed, err := svc.RetryRecord(context.Background(), recID, map[string]any{
		"code": "2000", "name": "AR", "currency": "USD",
	})
	if err != nil {
		t.Fatalf("retry record: %v", err)
	}
	if fixed.Status != domain.RecordValid {
		t.Fatalf("expected valid after retry, got %s (%+v)", fixed.Status, fixed.ValidationErrors)
	}
}
