package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportBatchStatus is the staging batch's coarse lifecycle.
type ImportBatchStatus string

const (
	BatchStaged    ImportBatchStatus = "staged"
	BatchValidated ImportBatchStatus = "validated"
	BatchCompleted ImportBatchStatus = "completed"
)

// ImportBatch groups a set of staged records loaded from one source file.
type ImportBatch struct {
	BatchID         uuid.UUID
	SourceFormat    string // csv | json | xlsx
	EntityType      string
	MappingName     string
	MappingHash     string
	Status          ImportBatchStatus
	TotalRecords    int
	ValidRecords    int
	InvalidRecords  int
	PromotedRecords int
	SkippedRecords  int
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// ImportRecordStatus is one staged row's lifecycle: staged -> valid/invalid
// -> promoted/promotion_failed/skipped.
type ImportRecordStatus string

const (
	RecordStaged           ImportRecordStatus = "staged"
	RecordValid            ImportRecordStatus = "valid"
	RecordInvalid          ImportRecordStatus = "invalid"
	RecordPromoted         ImportRecordStatus = "promoted"
	RecordPromotionFailed  ImportRecordStatus = "promotion_failed"
	RecordSkipped          ImportRecordStatus = "skipped"
)

// ValidationError is one record-level or batch-level validation failure,
// carried in ImportRecord.ValidationErrors as a JSON-safe slice.
type ValidationError struct {
	Code    string
	Message string
	Field   string
	Details map[string]any
}

// ImportRecord is one staged row: raw source data, the result of applying
// the field mapping, and the validation/promotion outcome.
type ImportRecord struct {
	RecordID          uuid.UUID
	BatchID           uuid.UUID
	SourceRow         int
	EntityType        string
	RawData           map[string]any
	MappedData        map[string]any
	Status            ImportRecordStatus
	ValidationErrors  []ValidationError
	PromotedEntityID  *uuid.UUID
	PromotedAt        *time.Time
}
