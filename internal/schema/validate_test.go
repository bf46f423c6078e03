package schema

import "testing"

func TestValidateEventType(t *testing.T) {
	if errs := ValidateEventType(""); len(errs) != 1 {
		t.Fatalf("expected one error for empty event_type, got %v", errs)
	}
	if errs := ValidateEventType("invoice_received"); len(errs) != 1 {
		t.Fatalf("expected one error for un-namespaced event_type, got %v", errs)
	}
	if errs := ValidateEventType("ap.invoice_received"); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateSchemaVersion(t *testing.T) {
	supported := map[int]struct{}{1: {}, 2: {}}
	if errs := ValidateSchemaVersion(1, supported); len(errs) != 0 {
		t.Fatalf("expected version 1 to be supported, got %v", errs)
	}
	if errs := ValidateSchemaVersion(3, supported); len(errs) != 1 {
		t.Fatalf("expected version 3 to be rejected, got %v", errs)
	}
}

func TestValidateCurrenciesInPayloadChecksNestedAndArrayFields(t *testing.T) {
	orig := IsCurrencyValid
	defer func() { IsCurrencyValid = orig }()
	IsCurrencyValid = func(code string) bool { return code == "USD" || code == "EUR" }

	payload := map[string]any{
		"currency": "USD",
		"vendor":   map[string]any{"currency_code": "ZZZ"},
		"line_items": []any{
			map[string]any{"from_currency": "EUR"},
			map[string]any{"to_currency": "QQQ"},
		},
	}
	errs := ValidateCurrenciesInPayload(payload, "")
	if len(errs) != 2 {
		t.Fatalf("expected exactly 2 invalid currency errors, got %v", errs)
	}
	fields := map[string]bool{}
	for _, e := range errs {
		fields[e.Field] = true
	}
	if !fields["vendor.currency_code"] || !fields["line_items[1].to_currency"] {
		t.Fatalf("unexpected error fields: %+v", errs)
	}
}

func TestValidateEventRunsAllThreeChecks(t *testing.T) {
	orig := IsCurrencyValid
	defer func() { IsCurrencyValid = orig }()
	IsCurrencyValid = func(code string) bool { return code == "USD" }

	errs := ValidateEvent("bad_event_type", map[string]any{"currency": "ZZZ"}, 99, nil)
	if len(errs) != 3 {
		t.Fatalf("expected 3 accumulated errors (version, event_type, currency), got %v", errs)
	}
}

func TestValidatePayloadAgainstSchemaRequiredField(t *testing.T) {
	s, err := New("ap.invoice_received", 1, []FieldSchema{
		{Name: "amount", Type: FieldDecimal, Required: true},
		{Name: "memo", Type: FieldString, Required: false},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	errs := ValidatePayloadAgainstSchema(map[string]any{}, s)
	if len(errs) != 1 || errs[0].Code != "MISSING_REQUIRED_FIELD" {
		t.Fatalf("expected one missing-required-field error, got %v", errs)
	}

	errs = ValidatePayloadAgainstSchema(map[string]any{"amount": "100.00"}, s)
	if len(errs) != 0 {
		t.Fatalf("expected no errors once the required field is present, got %v", errs)
	}
}

func TestValidatePayloadAgainstSchemaNestedObjectAndArray(t *testing.T) {
	s, err := New("ap.invoice_received", 1, []FieldSchema{
		{
			Name: "vendor", Type: FieldObject, Required: true,
			NestedFields: []FieldSchema{{Name: "tax_id", Type: FieldString, Required: true}},
		},
		{
			Name: "line_items", Type: FieldArray, Required: true,
			ItemSchema: []FieldSchema{{Name: "sku", Type: FieldString, Required: true}},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	payload := map[string]any{
		"vendor":     map[string]any{},
		"line_items": []any{map[string]any{}},
	}
	errs := ValidatePayloadAgainstSchema(payload, s)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors (missing vendor.tax_id, missing line_items[0].sku), got %v", errs)
	}
}

func TestValidateFieldTypeEachKind(t *testing.T) {
	cases := []struct {
		value any
		typ   FieldType
		ok    bool
	}{
		{"hello", FieldString, true},
		{42, FieldString, false},
		{int64(5), FieldInteger, true},
		{"5", FieldInteger, false},
		{"10.50", FieldDecimal, true},
		{"not-a-number", FieldDecimal, false},
		{true, FieldBoolean, true},
		{"2024-01-01", FieldDate, true},
		{"not-a-date", FieldDate, false},
		{"2024-01-01T00:00:00Z", FieldDatetime, true},
		{"garbage", FieldDatetime, false},
		{"11111111-1111-1111-1111-111111111111", FieldUUID, true},
		{"not-a-uuid", FieldUUID, false},
		{map[string]any{}, FieldObject, true},
		{[]any{}, FieldArray, true},
	}
	for _, c := range cases {
		err := ValidateFieldType(c.value, c.typ, "field")
		if c.ok && err != nil {
			t.Errorf("%v as %s: expected valid, got %v", c.value, c.typ, err)
		}
		if !c.ok && err == nil {
			t.Errorf("%v as %s: expected invalid, got nil", c.value, c.typ)
		}
	}
}

func TestValidateFieldTypeCurrency(t *testing.T) {
	orig := IsCurrencyValid
	defer func() { IsCurrencyValid = orig }()
	IsCurrencyValid = func(code string) bool { return code == "USD" }

	if err := ValidateFieldType("USD", FieldCurrency, "currency"); err != nil {
		t.Fatalf("expected USD to validate, got %v", err)
	}
	if err := ValidateFieldType("ZZZ", FieldCurrency, "currency"); err == nil {
		t.Fatalf("expected ZZZ to fail currency validation")
	}
}

func TestValidateFieldConstraintsMinMax(t *testing.T) {
	min := "10"
	max := "100"
	f := FieldSchema{Name: "amount", Type: FieldDecimal, MinValue: &min, MaxValue: &max}

	if errs := ValidateFieldConstraints("5", f, "amount"); len(errs) != 1 || errs[0].Code != "VALUE_TOO_SMALL" {
		t.Fatalf("expected VALUE_TOO_SMALL, got %v", errs)
	}
	if errs := ValidateFieldConstraints("500", f, "amount"); len(errs) != 1 || errs[0].Code != "VALUE_TOO_LARGE" {
		t.Fatalf("expected VALUE_TOO_LARGE, got %v", errs)
	}
	if errs := ValidateFieldConstraints("50", f, "amount"); len(errs) != 0 {
		t.Fatalf("expected no errors within bounds, got %v", errs)
	}
}

func TestValidateFieldConstraintsStringLengthAndPattern(t *testing.T) {
	minLen, maxLen := 3, 5
	f := FieldSchema{Name: "code", Type: FieldString, MinLength: &minLen, MaxLength: &maxLen, Pattern: "^[A-Z]+$"}

	if errs := ValidateFieldConstraints("ab", f, "code"); len(errs) != 2 {
		t.Fatalf("expected STRING_TOO_SHORT and PATTERN_MISMATCH, got %v", errs)
	}
	if errs := ValidateFieldConstraints("ABCDEFG", f, "code"); len(errs) != 1 || errs[0].Code != "STRING_TOO_LONG" {
		t.Fatalf("expected STRING_TOO_LONG, got %v", errs)
	}
	if errs := ValidateFieldConstraints("ABC", f, "code"); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateFieldConstraintsAllowedValues(t *testing.T) {
	f := FieldSchema{Name: "status", Type: FieldString, AllowedValues: map[string]struct{}{"OPEN": {}, "CLOSED": {}}}
	if errs := ValidateFieldConstraints("PENDING", f, "status"); len(errs) != 1 || errs[0].Code != "VALUE_NOT_ALLOWED" {
		t.Fatalf("expected VALUE_NOT_ALLOWED, got %v", errs)
	}
	if errs := ValidateFieldConstraints("OPEN", f, "status"); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateFieldReferences(t *testing.T) {
	s, err := New("ap.invoice_received", 1, []FieldSchema{{Name: "amount", Type: FieldDecimal}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	errs := ValidateFieldReferences([]string{"amount", "bogus_field"}, s)
	if len(errs) != 1 || errs[0].Code != "INVALID_FIELD_REFERENCE" || errs[0].Field != "bogus_field" {
		t.Fatalf("unexpected errors: %v", errs)
	}
}

func TestValidateAmount(t *testing.T) {
	if errs := ValidateAmount(nil, "", false, false); len(errs) != 1 || errs[0].Code != "MISSING_AMOUNT" {
		t.Fatalf("expected MISSING_AMOUNT, got %v", errs)
	}
	if errs := ValidateAmount("not-a-number", "", false, false); len(errs) != 1 || errs[0].Code != "INVALID_AMOUNT" {
		t.Fatalf("expected INVALID_AMOUNT, got %v", errs)
	}
	if errs := ValidateAmount("0", "", false, false); len(errs) != 1 || errs[0].Code != "ZERO_AMOUNT" {
		t.Fatalf("expected ZERO_AMOUNT, got %v", errs)
	}
	if errs := ValidateAmount("-5", "", false, false); len(errs) != 1 || errs[0].Code != "NEGATIVE_AMOUNT" {
		t.Fatalf("expected NEGATIVE_AMOUNT, got %v", errs)
	}
	if errs := ValidateAmount("0", "", true, false); len(errs) != 0 {
		t.Fatalf("expected zero to be allowed when allowZero is true, got %v", errs)
	}
	if errs := ValidateAmount("-5", "", false, true); len(errs) != 0 {
		t.Fatalf("expected negative to be allowed when allowNegative is true, got %v", errs)
	}
	if errs := ValidateAmount("100.00", "", false, false); len(errs) != 0 {
		t.Fatalf("expected a valid positive amount to pass, got %v", errs)
	}
}
