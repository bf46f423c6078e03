package mapping

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/schema"
)

func TestApplyTransformStripAndCase(t *testing.T) {
	if got := ApplyTransform("  Hello  ", "strip"); got != "Hello" {
		t.Fatalf("strip: got %q", got)
	}
	if got := ApplyTransform("Hello", "upper"); got != "HELLO" {
		t.Fatalf("upper: got %q", got)
	}
	if got := ApplyTransform("HELLO", "lower"); got != "hello" {
		t.Fatalf("lower: got %q", got)
	}
}

func TestApplyTransformToDecimal(t *testing.T) {
	got := ApplyTransform(" 12.50 ", "to_decimal")
	d, ok := got.(decimal.Decimal)
	if !ok {
		t.Fatalf("expected decimal.Decimal, got %T", got)
	}
	if !d.Equal(decimal.RequireFromString("12.50")) {
		t.Fatalf("got %s", d)
	}
}

func TestApplyTransformNormalizeDate(t *testing.T) {
	got := ApplyTransform("06/01/2024", "normalize_date")
	if got != "2024-06-01" {
		t.Fatalf("got %v", got)
	}
}

func TestCoerceFromStringDecimal(t *testing.T) {
	res := CoerceFromString("100.00", "", schema.FieldDecimal)
	if !res.Success {
		t.Fatalf("expected success, got error %v", res.Error)
	}
	d, ok := res.Value.(decimal.Decimal)
	if !ok || !d.Equal(decimal.RequireFromString("100.00")) {
		t.Fatalf("got %v", res.Value)
	}
}

func TestCoerceFromStringInvalidDecimal(t *testing.T) {
	res := CoerceFromString("not-a-number", "", schema.FieldDecimal)
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Error.Code != "INVALID_DECIMAL" {
		t.Fatalf("got code %s", res.Error.Code)
	}
}

func TestCoerceFromStringBoolean(t *testing.T) {
	for in, want := range map[string]bool{"true": true, "yes": true, "1": true, "false": false, "no": false, "": false} {
		res := CoerceFromString(in, "", schema.FieldBoolean)
		if !res.Success || res.Value != want {
			t.Fatalf("input %q: got %+v", in, res)
		}
	}
}

func TestCoerceFromStringEmptyNonString(t *testing.T) {
	res := CoerceFromString("", "", schema.FieldDecimal)
	if res.Success {
		t.Fatal("expected failure on empty value")
	}
	if res.Error.Code != "MISSING_VALUE" {
		t.Fatalf("got code %s", res.Error.Code)
	}
}

func TestApplyMappingRequiredMissing(t *testing.T) {
	result := ApplyMapping(map[string]any{}, []FieldMapping{
		{Source: "amount", Target: "amount", FieldType: "decimal", Required: true},
	})
	if result.Success {
		t.Fatal("expected failure")
	}
	if len(result.Errors) != 1 || result.Errors[0].Code != "MISSING_REQUIRED_FIELD" {
		t.Fatalf("got %+v", result.Errors)
	}
}

func TestApplyMappingDefaultValue(t *testing.T) {
	result := ApplyMapping(map[string]any{}, []FieldMapping{
		{Source: "currency", Target: "currency", FieldType: "string", Default: "USD"},
	})
	if !result.Success {
		t.Fatalf("expected success, got %+v", result.Errors)
	}
	if result.MappedData["currency"] != "USD" {
		t.Fatalf("got %v", result.MappedData)
	}
}

func TestApplyMappingStringCoercionAndTransform(t *testing.T) {
	result := ApplyMapping(map[string]any{
		"Amount":   "  250.00  ",
		"Currency": "usd",
	}, []FieldMapping{
		{Source: "Amount", Target: "amount", FieldType: "decimal", Transform: "strip", Required: true},
		{Source: "Currency", Target: "currency", FieldType: "string", Transform: "upper", Required: true},
	})
	if !result.Success {
		t.Fatalf("expected success, got %+v", result.Errors)
	}
	amount, ok := result.MappedData["amount"].(decimal.Decimal)
	if !ok || !amount.Equal(decimal.RequireFromString("250.00")) {
		t.Fatalf("got %v", result.MappedData["amount"])
	}
	if result.MappedData["currency"] != "USD" {
		t.Fatalf("got %v", result.MappedData["currency"])
	}
}

func TestApplyMappingInvalidCoercionReported(t *testing.T) {
	result := ApplyMapping(map[string]any{"qty": "abc"}, []FieldMapping{
		{Source: "qty", Target: "quantity", FieldType: "integer", Required: true},
	})
	if result.Success {
		t.Fatal("expected failure")
	}
	if result.Errors[0].Code != "INVALID_INTEGER" {
		t.Fatalf("got %+v", result.Errors)
	}
}
