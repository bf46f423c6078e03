// Package mapping turns one staged source row into the typed shape an
// entity promoter expects: apply each field's transform, coerce strings
// to their target type, and validate the result. Every function here is
// pure — zero I/O, zero logging — so the whole pipeline stays
// unit-testable without a database or filesystem.
package mapping

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/config"
	"github.com/ledgerforge/kernel/internal/schema"
)

// FieldMapping is the engine's working alias for a pack's field mapping
// rule; config.LoadPack decodes the YAML, this package applies it.
type FieldMapping = config.PackFieldMapping

// CoercionResult is the outcome of coercing one string value to its
// target schema.FieldType.
type CoercionResult struct {
	Success bool
	Value   any
	Error   *schema.ValidationError
}

// MappingResult is the outcome of applying every field mapping to one raw
// row: the typed record plus every accumulated validation error.
type MappingResult struct {
	Success    bool
	MappedData map[string]any
	Errors     []schema.ValidationError
}

// ApplyTransform runs a named transform over a raw value before typed
// coercion. Unknown or empty transform names, and values that don't fit
// the transform's expected shape, pass the value through unchanged —
// the caller's later coercion/validation step reports the real error.
func ApplyTransform(value any, transform string) any {
	if value == nil {
		return nil
	}
	t := strings.ToLower(strings.TrimSpace(transform))
	switch t {
	case "strip", "trim":
		if s, ok := value.(string); ok {
			return strings.TrimSpace(s)
		}
	case "upper":
		if s, ok := value.(string); ok {
			return strings.ToUpper(s)
		}
	case "lower":
		if s, ok := value.(string); ok {
			return strings.ToLower(s)
		}
	case "to_decimal":
		s, ok := value.(string)
		if !ok {
			return value
		}
		d, err := decimal.NewFromString(strings.TrimSpace(s))
		if err != nil {
			return value // caller's coercion/validation step reports INVALID_DECIMAL
		}
		return d
	case "normalize_date":
		s, ok := value.(string)
		if !ok {
			return value
		}
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return parsed.Format("2006-01-02")
			}
		}
		return value
	}
	return value
}

var dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006", "02/01/2006"}

// CoerceFromString converts a string value to the target field type with
// type-by-type rules. format overrides the primary date layout tried
// before the fallbacks.
func CoerceFromString(value, format string, fieldType schema.FieldType) CoercionResult {
	s := strings.TrimSpace(value)
	if s == "" && fieldType != schema.FieldString && fieldType != schema.FieldBoolean {
		return CoercionResult{Success: false, Error: &schema.ValidationError{
			Code: "MISSING_VALUE", Message: "empty value cannot be coerced to non-string type",
		}}
	}

	switch fieldType {
	case schema.FieldString:
		return CoercionResult{Success: true, Value: s}

	case schema.FieldInteger:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return CoercionResult{Success: false, Error: &schema.ValidationError{
				Code: "INVALID_INTEGER", Message: fmt.Sprintf("cannot coerce to integer: %q", s),
			}}
		}
		return CoercionResult{Success: true, Value: d.IntPart()}

	case schema.FieldDecimal:
		d, err := decimal.NewFromString(s)
		if err != nil {
			return CoercionResult{Success: false, Error: &schema.ValidationError{
				Code: "INVALID_DECIMAL", Message: fmt.Sprintf("cannot coerce to decimal: %q", s),
			}}
		}
		return CoercionResult{Success: true, Value: d}

	case schema.FieldBoolean:
		switch strings.ToLower(s) {
		case "true", "yes", "1", "on":
			return CoercionResult{Success: true, Value: true}
		case "false", "no", "0", "off", "":
			return CoercionResult{Success: true, Value: false}
		default:
			return CoercionResult{Success: false, Error: &schema.ValidationError{
				Code: "INVALID_BOOLEAN", Message: fmt.Sprintf("cannot coerce to boolean: %q", s),
			}}
		}

	case schema.FieldDate:
		layouts := append([]string{}, dateLayouts...)
		if format != "" {
			layouts = append([]string{format}, layouts...)
		}
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return CoercionResult{Success: true, Value: parsed.Format("2006-01-02")}
			}
		}
		return CoercionResult{Success: false, Error: &schema.ValidationError{
			Code: "INVALID_DATE_FORMAT", Message: fmt.Sprintf("cannot parse date: %q", s),
		}}

	case schema.FieldDatetime:
		parsed, err := time.Parse(time.RFC3339, strings.ReplaceAll(s, "Z", "+00:00"))
		if err != nil {
			return CoercionResult{Success: false, Error: &schema.ValidationError{
				Code: "INVALID_DATETIME_FORMAT", Message: fmt.Sprintf("cannot parse datetime: %q", s),
			}}
		}
		return CoercionResult{Success: true, Value: parsed.Format(time.RFC3339)}

	case schema.FieldUUID:
		if _, err := uuid.Parse(s); err != nil {
			return CoercionResult{Success: false, Error: &schema.ValidationError{
				Code: "INVALID_UUID_FORMAT", Message: fmt.Sprintf("invalid UUID: %q", s),
			}}
		}
		return CoercionResult{Success: true, Value: s}

	case schema.FieldCurrency:
		// Kept as string; schema.ValidateFieldType checks the currency registry.
		return CoercionResult{Success: true, Value: s}

	case schema.FieldObject:
		var m map[string]any
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return CoercionResult{Success: false, Error: &schema.ValidationError{
				Code: "INVALID_JSON", Message: fmt.Sprintf("cannot parse object from: %q", truncate(s, 50)),
			}}
		}
		return CoercionResult{Success: true, Value: m}

	case schema.FieldArray:
		var arr []any
		if err := json.Unmarshal([]byte(s), &arr); err != nil {
			return CoercionResult{Success: false, Error: &schema.ValidationError{
				Code: "INVALID_JSON_ARRAY", Message: fmt.Sprintf("cannot parse array from: %q", truncate(s, 50)),
			}}
		}
		return CoercionResult{Success: true, Value: arr}
	}

	return CoercionResult{Success: false, Error: &schema.ValidationError{
		Code: "UNSUPPORTED_TYPE", Message: fmt.Sprintf("unsupported field_type: %s", fieldType),
	}}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ApplyMapping runs every field mapping against one raw row: fetch the
// source value, check missing/required/default, transform, coerce
// strings to their target type, then validate the typed result. Collects
// every error instead of failing on the first.
func ApplyMapping(raw map[string]any, fieldMappings []FieldMapping) MappingResult {
	var errs []schema.ValidationError
	mapped := make(map[string]any, len(fieldMappings))

	for _, fm := range fieldMappings {
		rawValue, present := raw[fm.Source]
		if !present {
			rawValue = nil
		}

		if isBlank(rawValue) {
			if fm.Required {
				errs = append(errs, schema.ValidationError{
					Code:    "MISSING_REQUIRED_FIELD",
					Message: fmt.Sprintf("required field %q is missing", fm.Source),
					Field:   fm.Target,
				})
				continue
			}
			if fm.Default != nil {
				mapped[fm.Target] = fm.Default
			}
			continue
		}

		value := rawValue
		if fm.Transform != "" {
			value = ApplyTransform(rawValue, fm.Transform)
		}

		fieldType := schema.FieldType(fm.FieldType)

		// A STRING target accepts numeric source values (e.g. a QBO "num"
		// column read back as json.Number) and stringifies them.
		if fieldType == schema.FieldString {
			if n, ok := asNumberString(value); ok {
				value = n
			}
		}

		if s, ok := value.(string); ok && fieldType != schema.FieldString {
			coerced := CoerceFromString(s, fm.Format, fieldType)
			if !coerced.Success {
				err := *coerced.Error
				err.Field = fm.Target
				errs = append(errs, err)
				continue
			}
			value = coerced.Value
		}

		if verr := schema.ValidateFieldType(value, fieldType, fm.Target); verr != nil {
			errs = append(errs, *verr)
			continue
		}

		mapped[fm.Target] = value
	}

	return MappingResult{Success: len(errs) == 0, MappedData: mapped, Errors: errs}
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

func asNumberString(v any) (string, bool) {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64), true
	case json.Number:
		return n.String(), true
	}
	return "", false
}
