package validators

import (
	"sort"
	"strings"

	"github.com/ledgerforge/kernel/internal/schema"
)

// EntityValidator checks one mapped record against entity-specific rules
// that don't fit the generic field-shape checks above (e.g. an allowed
// value set). Referential checks (does this code already exist) need a
// store lookup and are left to the promotion service's duplicate-detection
// step (Promoter.CheckDuplicate).
type EntityValidator func(mapped map[string]any) []schema.ValidationError

var allowedPartyTypes = map[string]struct{}{
	"customer": {}, "supplier": {}, "employee": {}, "intercompany": {}, "vendor": {},
}

// ValidatePartyCode requires a non-empty "code" field.
func ValidatePartyCode(mapped map[string]any) []schema.ValidationError {
	if isBlank(mapped["code"]) {
		return []schema.ValidationError{{Code: "MISSING_REQUIRED_FIELD", Message: "party code is required", Field: "code"}}
	}
	return nil
}

// ValidatePartyType requires "party_type" (or "type") to be one of the
// recognized party categories, when present.
func ValidatePartyType(mapped map[string]any) []schema.ValidationError {
	v := mapped["party_type"]
	if v == nil {
		v = mapped["type"]
	}
	if v == nil {
		return nil
	}
	if _, ok := allowedPartyTypes[strings.ToLower(toStr(v))]; !ok {
		allowed := make([]string, 0, len(allowedPartyTypes))
		for t := range allowedPartyTypes {
			allowed = append(allowed, t)
		}
		sort.Strings(allowed)
		return []schema.ValidationError{{
			Code:    "INVALID_PARTY_TYPE",
			Message: "party type must be one of " + strings.Join(allowed, ", "),
			Field:   "party_type",
		}}
	}
	return nil
}

// ValidateAccountCodeFormat requires a non-empty "code" field.
func ValidateAccountCodeFormat(mapped map[string]any) []schema.ValidationError {
	if isBlank(mapped["code"]) {
		return []schema.ValidationError{{Code: "MISSING_REQUIRED_FIELD", Message: "account code is required", Field: "code"}}
	}
	return nil
}

// ValidateItemCode requires a non-empty "code" field.
func ValidateItemCode(mapped map[string]any) []schema.ValidationError {
	if isBlank(mapped["code"]) {
		return []schema.ValidationError{{Code: "MISSING_REQUIRED_FIELD", Message: "item code is required", Field: "code"}}
	}
	return nil
}

// EntityValidators is the pre-packaged validator profile per entity_type;
// referential checks (party/vendor already exists) are left to the
// promotion service's duplicate-detection step instead of living here.
var EntityValidators = map[string][]EntityValidator{
	"party":           {ValidatePartyCode, ValidatePartyType},
	"vendor":          {ValidatePartyCode, ValidatePartyType},
	"customer":        {ValidatePartyCode, ValidatePartyType},
	"employee":        {ValidatePartyCode, ValidatePartyType},
	"account":         {ValidateAccountCodeFormat},
	"item":            {ValidateItemCode},
	"ap_invoice":      {},
	"ar_invoice":      {},
	"opening_balance": {},
}

// RunEntityValidators applies every validator registered for entityType.
func RunEntityValidators(entityType string, mapped map[string]any) []schema.ValidationError {
	var errs []schema.ValidationError
	for _, v := range EntityValidators[entityType] {
		errs = append(errs, v(mapped)...)
	}
	return errs
}
