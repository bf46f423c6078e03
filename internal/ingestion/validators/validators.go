// Package validators checks a mapped import record for structural and
// domain violations before promotion: required fields, declared types,
// currency codes, kernel decimal precision, date ranges, and batch-wide
// uniqueness. Each check is a pure function taking already-mapped data,
// never raw source rows — record-level checks run independently of the
// batch-wide uniqueness pass.
package validators

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/ingestion/mapping"
	"github.com/ledgerforge/kernel/internal/schema"
)

// Kernel amounts are Numeric(38, 9); see internal/money for the same
// precision limits.
const (
	maxDecimalDigits = 38
	maxDecimalPlaces = 9
)

// ValidateRequiredFields checks that every mapping marked required has a
// value present in the mapped record.
func ValidateRequiredFields(mapped map[string]any, mappings []mapping.FieldMapping) []schema.ValidationError {
	var errs []schema.ValidationError
	for _, fm := range mappings {
		if !fm.Required {
			continue
		}
		v, ok := mapped[fm.Target]
		if !ok || isBlank(v) {
			errs = append(errs, schema.ValidationError{
				Code:    "MISSING_REQUIRED_FIELD",
				Message: "required field is missing: " + fm.Target,
				Field:   fm.Target,
			})
		}
	}
	return errs
}

// ValidateFieldTypes re-checks each mapped field's runtime type against
// its declared field_type, catching drift between mapping and storage.
func ValidateFieldTypes(mapped map[string]any, mappings []mapping.FieldMapping) []schema.ValidationError {
	var errs []schema.ValidationError
	for _, fm := range mappings {
		v, ok := mapped[fm.Target]
		if !ok {
			continue
		}
		if verr := schema.ValidateFieldType(v, schema.FieldType(fm.FieldType), fm.Target); verr != nil {
			errs = append(errs, *verr)
		}
	}
	return errs
}

// ValidateCurrencyCodes checks the listed fields against the registered
// ISO 4217 currency set (schema.IsCurrencyValid).
func ValidateCurrencyCodes(mapped map[string]any, currencyFields []string) []schema.ValidationError {
	var errs []schema.ValidationError
	for _, field := range currencyFields {
		v, ok := mapped[field]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(toStr(v))
		if s != "" && !schema.IsCurrencyValid(s) {
			errs = append(errs, schema.ValidationError{
				Code:    "INVALID_CURRENCY",
				Message: "invalid ISO 4217 currency code at " + field + ": " + s,
				Field:   field,
			})
		}
	}
	return errs
}

// ValidateDecimalPrecision checks decimal-typed fields fit the kernel's
// Numeric(38, 9) column: at most 38 total digits, at most 9 of them
// after the decimal point.
func ValidateDecimalPrecision(mapped map[string]any, decimalFields []string) []schema.ValidationError {
	var errs []schema.ValidationError
	for _, field := range decimalFields {
		v, ok := mapped[field]
		if !ok || v == nil {
			continue
		}
		d, ok := asDecimal(v)
		if !ok {
			continue // type already validated elsewhere
		}
		scale := -d.Exponent()
		digits := len(d.Coefficient().String())
		if scale < 0 {
			scale = 0
		}
		if int(scale) > maxDecimalPlaces {
			errs = append(errs, schema.ValidationError{
				Code:    "DECIMAL_SCALE_EXCEEDED",
				Message: "value at " + field + " exceeds " + strconv.Itoa(maxDecimalPlaces) + " decimal places",
				Field:   field,
			})
		}
		if digits > maxDecimalDigits {
			errs = append(errs, schema.ValidationError{
				Code:    "DECIMAL_PRECISION_EXCEEDED",
				Message: "value at " + field + " exceeds " + strconv.Itoa(maxDecimalDigits) + " digits",
				Field:   field,
			})
		}
	}
	return errs
}

// ValidateDateRanges checks date/datetime fields fall within the sanity
// window [1900-01-01, 2100-12-31].
func ValidateDateRanges(mapped map[string]any, dateFields []string) []schema.ValidationError {
	minDate := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	maxDate := time.Date(2100, 12, 31, 0, 0, 0, 0, time.UTC)
	var errs []schema.ValidationError
	for _, field := range dateFields {
		v, ok := mapped[field]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			d, err = time.Parse(time.RFC3339, strings.ReplaceAll(s, "Z", "+00:00"))
			if err != nil {
				continue
			}
		}
		if d.Before(minDate) || d.After(maxDate) {
			errs = append(errs, schema.ValidationError{
				Code:    "DATE_OUT_OF_RANGE",
				Message: "date at " + field + " is outside the allowed range",
				Field:   field,
				Details: map[string]any{"value": s},
			})
		}
	}
	return errs
}

// ValidateBatchUniqueness checks that, for each named field, values are
// unique across the whole batch. Returns a map from record index to the
// errors raised against it, so callers can merge the result into each
// record's own error list.
func ValidateBatchUniqueness(records []map[string]any, fields []string) map[int][]schema.ValidationError {
	result := make(map[int][]schema.ValidationError)
	for _, field := range fields {
		indicesByValue := make(map[any][]int)
		for i, rec := range records {
			indicesByValue[rec[field]] = append(indicesByValue[rec[field]], i)
		}
		var values []any
		for v := range indicesByValue {
			values = append(values, v)
		}
		sort.Slice(values, func(a, b int) bool { return toStr(values[a]) < toStr(values[b]) })
		for _, v := range values {
			indices := indicesByValue[v]
			if len(indices) <= 1 {
				continue
			}
			for _, i := range indices {
				result[i] = append(result[i], schema.ValidationError{
					Code:    "DUPLICATE_VALUE_IN_BATCH",
					Message: "duplicate value for " + field + " in batch",
					Field:   field,
					Details: map[string]any{"value": v, "row_indices": indices},
				})
			}
		}
	}
	return result
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

func toStr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d, true
	case string:
		parsed, err := decimal.NewFromString(d)
		return parsed, err == nil
	}
	return decimal.Decimal{}, false
}

