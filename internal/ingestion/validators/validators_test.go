package validators

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/ingestion/mapping"
)

func TestValidateRequiredFields(t *testing.T) {
	mappings := []mapping.FieldMapping{{Source: "amount", Target: "amount", Required: true}}
	errs := ValidateRequiredFields(map[string]any{}, mappings)
	if len(errs) != 1 || errs[0].Code != "MISSING_REQUIRED_FIELD" {
		t.Fatalf("got %+v", errs)
	}
	errs = ValidateRequiredFields(map[string]any{"amount": "100"}, mappings)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestValidateCurrencyCodes(t *testing.T) {
	errs := ValidateCurrencyCodes(map[string]any{"currency": "US"}, []string{"currency"})
	if len(errs) != 1 || errs[0].Code != "INVALID_CURRENCY" {
		t.Fatalf("got %+v", errs)
	}
	errs = ValidateCurrencyCodes(map[string]any{"currency": "USD"}, []string{"currency"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestValidateDecimalPrecision(t *testing.T) {
	tooManyPlaces := decimal.RequireFromString("1.1234567890")
	errs := ValidateDecimalPrecision(map[string]any{"amount": tooManyPlaces}, []string{"amount"})
	if len(errs) != 1 || errs[0].Code != "DECIMAL_SCALE_EXCEEDED" {
		t.Fatalf("got %+v", errs)
	}

	fine := decimal.RequireFromString("100.50")
	errs = ValidateDecimalPrecision(map[string]any{"amount": fine}, []string{"amount"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestValidateDateRanges(t *testing.T) {
	errs := ValidateDateRanges(map[string]any{"eff_date": "1850-01-01"}, []string{"eff_date"})
	if len(errs) != 1 || errs[0].Code != "DATE_OUT_OF_RANGE" {
		t.Fatalf("got %+v", errs)
	}
	errs = ValidateDateRanges(map[string]any{"eff_date": "2024-06-01"}, []string{"eff_date"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}

func TestValidateBatchUniqueness(t *testing.T) {
	records := []map[string]any{
		{"code": "A1"},
		{"code": "A2"},
		{"code": "A1"},
	}
	result := ValidateBatchUniqueness(records, []string{"code"})
	if len(result[0]) != 1 || len(result[2]) != 1 {
		t.Fatalf("expected duplicate errors at rows 0 and 2, got %+v", result)
	}
	if len(result[1]) != 0 {
		t.Fatalf("expected no error at row 1, got %+v", result[1])
	}
}

func TestEntityValidatorsParty(t *testing.T) {
	errs := RunEntityValidators("party", map[string]any{"code": "", "party_type": "customer"})
	if len(errs) != 1 || errs[0].Code != "MISSING_REQUIRED_FIELD" {
		t.Fatalf("got %+v", errs)
	}
	errs = RunEntityValidators("party", map[string]any{"code": "P1", "party_type": "martian"})
	if len(errs) != 1 || errs[0].Code != "INVALID_PARTY_TYPE" {
		t.Fatalf("got %+v", errs)
	}
	errs = RunEntityValidators("party", map[string]any{"code": "P1", "party_type": "customer"})
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %+v", errs)
	}
}
