package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidationError is a single payload validation failure. Pure value type —
// never an error interface, so callers can accumulate and report every
// violation in one pass instead of failing fast.
type ValidationError struct {
	Code string
	Message string
	Field string
	Details map[string]any
}

func (v ValidationError) String() string {
	if v.Field != "" {
		return fmt.Sprintf("%s: %s (%s)", v.Code, v.Message, v.Field)
	}
	return fmt.Sprintf("%s: %s", v.Code, v.Message)
}

// SupportedSchemaVersions is the set of schema_version values the kernel
// currently accepts.
var SupportedSchemaVersions = map[int]struct{}{1: {}}

// IsCurrencyValid is set by the caller at startup (e.g. the ISO 4217
// registry) to avoid a hard import cycle between schema and currency. Never
// reassigned after startup.
var IsCurrencyValid = func(code string) bool { return len(code) == 3 }

// ValidateEventType checks the event_type is present and namespaced.
func ValidateEventType(eventType string) []ValidationError {
	if eventType == "" {
		return []ValidationError{{Code: "INVALID_EVENT_TYPE", Message: "Event type is required", Field: "event_type"}}
	}
	if !strings.Contains(eventType, ".") {
		return []ValidationError{{Code: "INVALID_EVENT_TYPE", Message: "Event type must be namespaced (e.g. 'module.action')", Field: "event_type"}}
	}
	return nil
}

// ValidateSchemaVersion checks the schema_version is among the supported set.
func ValidateSchemaVersion(version int, supported map[int]struct{}) []ValidationError {
	if _, ok := supported[version]; !ok {
		versions := make([]int, 0, len(supported))
		for v := range supported {
			versions = append(versions, v)
		}
		return []ValidationError{{
			Code: "UNSUPPORTED_SCHEMA", Message: fmt.Sprintf("Schema version %d not supported", version),
			Details: map[string]any{"supported": versions},
		}}
	}
	return nil
}

var currencyKeys = map[string]struct{}{
	"currency": {}, "from_currency": {}, "to_currency": {}, "currency_code": {},
}

// ValidateCurrenciesInPayload recursively validates any currency-tagged
// field anywhere in the payload tree, regardless of schema shape.
func ValidateCurrenciesInPayload(payload map[string]any, path string) []ValidationError {
	var errs []ValidationError
	for key, value := range payload {
		current := key
		if path != "" {
			current = path + "." + key
		}
		if _, isCurrencyKey := currencyKeys[strings.ToLower(key)]; isCurrencyKey {
			if s, ok := value.(string); ok {
				if !IsCurrencyValid(s) {
					errs = append(errs, ValidationError{Code: "INVALID_CURRENCY", Message: "Invalid ISO 4217 currency code: " + s, Field: current})
				}
			}
			continue
		}
		switch v := value.(type) {
		case map[string]any:
			errs = append(errs, ValidateCurrenciesInPayload(v, current)...)
		case []any:
			for i, item := range v {
				if m, ok := item.(map[string]any); ok {
					errs = append(errs, ValidateCurrenciesInPayload(m, fmt.Sprintf("%s[%d]", current, i))...)
				}
			}
		}
	}
	return errs
}

// ValidateEvent runs the three event-boundary checks: schema version,
// event-type shape, and currency-code validity anywhere in the payload.
func ValidateEvent(eventType string, payload map[string]any, schemaVersion int, supported map[int]struct{}) []ValidationError {
	if supported == nil {
		supported = SupportedSchemaVersions
	}
	var errs []ValidationError
	errs = append(errs, ValidateSchemaVersion(schemaVersion, supported)...)
	errs = append(errs, ValidateEventType(eventType)...)
	errs = append(errs, ValidateCurrenciesInPayload(payload, "")...)
	return errs
}

// ValidatePayloadAgainstSchema walks the payload tree against an EventSchema,
// producing every ValidationError found (never fails fast).
func ValidatePayloadAgainstSchema(payload map[string]any, s *EventSchema) []ValidationError {
	var errs []ValidationError
	for _, f := range s.Fields {
		value, _ := payload[f.Name]
		errs = append(errs, validateField(value, f, f.Name)...)
	}
	return errs
}

func validateField(value any, f FieldSchema, path string) []ValidationError {
	if value == nil {
		if f.Required && !f.Nullable {
			return []ValidationError{{Code: "MISSING_REQUIRED_FIELD", Message: "Required field missing: " + path, Field: path}}
		}
		return nil
	}

	if err := ValidateFieldType(value, f.Type, path); err != nil {
		return []ValidationError{*err}
	}

	errs := ValidateFieldConstraints(value, f, path)

	if f.Type == FieldObject && len(f.NestedFields) > 0 {
		if m, ok := value.(map[string]any); ok {
			for _, nf := range f.NestedFields {
				nv, _ := m[nf.Name]
				errs = append(errs, validateField(nv, nf, path+"."+nf.Name)...)
			}
		}
	}

	if f.Type == FieldArray {
		if arr, ok := value.([]any); ok {
			for i, item := range arr {
				itemPath := fmt.Sprintf("%s[%d]", path, i)
				if len(f.ItemSchema) > 0 {
					if m, ok := item.(map[string]any); ok {
						for _, itf := range f.ItemSchema {
							iv, _ := m[itf.Name]
							errs = append(errs, validateField(iv, itf, itemPath+"."+itf.Name)...)
						}
					} else {
						errs = append(errs, ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected object at %s", itemPath), Field: itemPath})
					}
				} else if f.ItemType != "" {
					if err := ValidateFieldType(item, f.ItemType, itemPath); err != nil {
						errs = append(errs, *err)
					}
				}
			}
		}
	}

	return errs
}

// ValidateFieldType checks value's Go runtime shape against the expected
// FieldType, returning nil when it matches.
func ValidateFieldType(value any, fieldType FieldType, path string) *ValidationError {
	switch fieldType {
	case FieldString:
		if _, ok := value.(string); !ok {
			return &ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected string at %s", path), Field: path}
		}
	case FieldInteger:
		switch value.(type) {
		case int, int32, int64:
		default:
			return &ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected integer at %s", path), Field: path}
		}
	case FieldDecimal:
		if !decimalParsable(value) {
			return &ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected decimal at %s", path), Field: path}
		}
	case FieldBoolean:
		if _, ok := value.(bool); !ok {
			return &ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected boolean at %s", path), Field: path}
		}
	case FieldDate:
		s, ok := value.(string)
		if !ok {
			return &ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected date at %s", path), Field: path}
		}
		if _, err := time.Parse("2006-01-02", s); err != nil {
			return &ValidationError{Code: "INVALID_DATE_FORMAT", Message: fmt.Sprintf("Invalid date format at %s: expected YYYY-MM-DD", path), Field: path}
		}
	case FieldDatetime:
		s, ok := value.(string)
		if !ok {
			return &ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected datetime at %s", path), Field: path}
		}
		if _, err := time.Parse(time.RFC3339, strings.ReplaceAll(s, "Z", "+00:00")); err != nil {
			return &ValidationError{Code: "INVALID_DATETIME_FORMAT", Message: fmt.Sprintf("Invalid datetime format at %s: expected ISO 8601", path), Field: path}
		}
	case FieldUUID:
		s, ok := value.(string)
		if !ok {
			return &ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected UUID at %s", path), Field: path}
		}
		if _, err := uuid.Parse(s); err != nil {
			return &ValidationError{Code: "INVALID_UUID_FORMAT", Message: fmt.Sprintf("Invalid UUID format at %s", path), Field: path}
		}
	case FieldCurrency:
		s, ok := value.(string)
		if !ok {
			return &ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected currency code (string) at %s", path), Field: path}
		}
		if !IsCurrencyValid(s) {
			return &ValidationError{Code: "INVALID_CURRENCY", Message: fmt.Sprintf("Invalid ISO 4217 currency code at %s: %s", path, s), Field: path}
		}
	case FieldObject:
		if _, ok := value.(map[string]any); !ok {
			return &ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected object at %s", path), Field: path}
		}
	case FieldArray:
		if _, ok := value.([]any); !ok {
			return &ValidationError{Code: "INVALID_TYPE", Message: fmt.Sprintf("Expected array at %s", path), Field: path}
		}
	}
	return nil
}

func decimalParsable(value any) bool {
	switch v := value.(type) {
	case string:
		_, err := decimal.NewFromString(v)
		return err == nil
	case int, int32, int64, float32, float64:
		return true
	case decimal.Decimal:
		return true
	default:
		return false
	}
}

func toDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case string:
		d, err := decimal.NewFromString(v)
		return d, err == nil
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	default:
		return decimal.Decimal{}, false
	}
}

// ValidateFieldConstraints checks min/max value, string length/pattern, and
// allowed-values constraints.
func ValidateFieldConstraints(value any, f FieldSchema, path string) []ValidationError {
	var errs []ValidationError

	if f.Type == FieldInteger || f.Type == FieldDecimal {
		if num, ok := toDecimal(value); ok {
			if f.MinValue != nil {
				if min, err := decimal.NewFromString(*f.MinValue); err == nil && num.LessThan(min) {
					errs = append(errs, ValidationError{Code: "VALUE_TOO_SMALL", Message: fmt.Sprintf("Value at %s is %v, minimum is %s", path, value, *f.MinValue), Field: path})
				}
			}
			if f.MaxValue != nil {
				if max, err := decimal.NewFromString(*f.MaxValue); err == nil && num.GreaterThan(max) {
					errs = append(errs, ValidationError{Code: "VALUE_TOO_LARGE", Message: fmt.Sprintf("Value at %s is %v, maximum is %s", path, value, *f.MaxValue), Field: path})
				}
			}
		}
	}

	if f.Type == FieldString {
		if s, ok := value.(string); ok {
			if f.MinLength != nil && len(s) < *f.MinLength {
				errs = append(errs, ValidationError{Code: "STRING_TOO_SHORT", Message: fmt.Sprintf("String at %s is %d chars, minimum is %d", path, len(s), *f.MinLength), Field: path})
			}
			if f.MaxLength != nil && len(s) > *f.MaxLength {
				errs = append(errs, ValidationError{Code: "STRING_TOO_LONG", Message: fmt.Sprintf("String at %s is %d chars, maximum is %d", path, len(s), *f.MaxLength), Field: path})
			}
			if f.Pattern != "" {
				if ok, _ := regexp.MatchString(f.Pattern, s); !ok {
					errs = append(errs, ValidationError{Code: "PATTERN_MISMATCH", Message: fmt.Sprintf("String at %s does not match pattern: %s", path, f.Pattern), Field: path})
				}
			}
		}
	}

	if f.AllowedValues != nil {
		key := fmt.Sprintf("%v", value)
		if _, ok := f.AllowedValues[key]; !ok {
			errs = append(errs, ValidationError{Code: "VALUE_NOT_ALLOWED", Message: fmt.Sprintf("Value '%v' at %s not in allowed values", value, path), Field: path})
		}
	}

	return errs
}

// ValidateFieldReferences checks that every field path a policy references
// exists in the schema, as a compile-time check rather than a runtime
// surprise when the policy actually fires.
func ValidateFieldReferences(paths []string, s *EventSchema) []ValidationError {
	var errs []ValidationError
	valid := make(map[string]struct{}, len(s.AllFieldPaths()))
	for _, p := range s.AllFieldPaths() {
		valid[p] = struct{}{}
	}
	for _, p := range paths {
		if _, ok := valid[p]; !ok {
			errs = append(errs, ValidationError{
				Code: "INVALID_FIELD_REFERENCE", Message: fmt.Sprintf("Field '%s' does not exist in schema for %s", p, s.EventType),
				Field: p, Details: map[string]any{"event_type": s.EventType, "version": s.Version},
			})
		}
	}
	return errs
}

// ValidateAmount checks an amount field for presence, decimal-parsability,
// zero, and sign.
func ValidateAmount(amount any, fieldName string, allowZero, allowNegative bool) []ValidationError {
	if fieldName == "" {
		fieldName = "amount"
	}
	if amount == nil {
		return []ValidationError{{Code: "MISSING_AMOUNT", Message: fieldName + " is required", Field: fieldName}}
	}
	d, ok := toDecimal(amount)
	if !ok {
		return []ValidationError{{Code: "INVALID_AMOUNT", Message: fieldName + " must be a valid decimal", Field: fieldName}}
	}
	var errs []ValidationError
	if !allowZero && d.IsZero() {
		errs = append(errs, ValidationError{Code: "ZERO_AMOUNT", Message: fieldName + " cannot be zero", Field: fieldName})
	}
	if !allowNegative && d.Sign() < 0 {
		errs = append(errs, ValidationError{Code: "NEGATIVE_AMOUNT", Message: fieldName + " cannot be negative", Field: fieldName})
	}
	return errs
}
