package schema

import "testing"

func TestFieldSchemaValidateRequiresNestedFieldsForObject(t *testing.T) {
	f := FieldSchema{Name: "line_item", Type: FieldObject}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected an object field with no nested fields to be rejected")
	}
	f.NestedFields = []FieldSchema{{Name: "sku", Type: FieldString}}
	if err := f.Validate(); err != nil {
		t.Fatalf("expected a populated object field to validate, got %v", err)
	}
}

func TestFieldSchemaValidateRequiresItemTypeOrSchemaForArray(t *testing.T) {
	f := FieldSchema{Name: "tags", Type: FieldArray}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected an array field with neither item_type nor item_schema to be rejected")
	}
	f.ItemType = FieldString
	if err := f.Validate(); err != nil {
		t.Fatalf("expected a scalar-item array to validate, got %v", err)
	}
}

func TestFieldSchemaValidateRequiresItemSchemaForObjectItems(t *testing.T) {
	f := FieldSchema{Name: "line_items", Type: FieldArray, ItemType: FieldObject}
	if err := f.Validate(); err == nil {
		t.Fatalf("expected an object-item array with no item_schema to be rejected")
	}
	f.ItemSchema = []FieldSchema{{Name: "sku", Type: FieldString}}
	if err := f.Validate(); err != nil {
		t.Fatalf("expected a populated object-item array to validate, got %v", err)
	}
}

func TestNewRejectsMissingEventTypeOrBadVersion(t *testing.T) {
	if _, err := New("", 1, nil); err == nil {
		t.Fatalf("expected an empty event_type to be rejected")
	}
	if _, err := New("ap.invoice_received", 0, nil); err == nil {
		t.Fatalf("expected version 0 to be rejected")
	}
	if _, err := New("invoice_received", 1, nil); err == nil {
		t.Fatalf("expected an un-namespaced event_type to be rejected")
	}
}

func TestNewPropagatesFieldValidationErrors(t *testing.T) {
	bad := []FieldSchema{{Name: "line_item", Type: FieldObject}}
	if _, err := New("ap.invoice_received", 1, bad); err == nil {
		t.Fatalf("expected a bad nested field to fail schema construction")
	}
}

func TestSchemaKey(t *testing.T) {
	s, err := New("ap.invoice_received", 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := s.SchemaKey(); got != "ap.invoice_received:v2" {
		t.Fatalf("unexpected schema key %q", got)
	}
}

func TestAllFieldPathsIncludesNestedAndArrayWildcardPaths(t *testing.T) {
	s, err := New("ap.invoice_received", 1, []FieldSchema{
		{Name: "amount", Type: FieldDecimal},
		{
			Name: "vendor", Type: FieldObject,
			NestedFields: []FieldSchema{{Name: "tax_id", Type: FieldString}},
		},
		{
			Name: "line_items", Type: FieldArray,
			ItemSchema: []FieldSchema{{Name: "sku", Type: FieldString}},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	paths := s.AllFieldPaths()
	want := map[string]bool{
		"amount": false, "vendor": false, "vendor.tax_id": false,
		"line_items": false, "line_items[*].sku": false,
	}
	for _, p := range paths {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for p, found := range want {
		if !found {
			t.Errorf("expected path %q among %v", p, paths)
		}
	}
}

func TestHasFieldAndGetField(t *testing.T) {
	s, err := New("ap.invoice_received", 1, []FieldSchema{{Name: "amount", Type: FieldDecimal}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s.HasField("amount") {
		t.Fatalf("expected amount to be present")
	}
	if s.HasField("nonexistent") {
		t.Fatalf("expected nonexistent field to be absent")
	}
	f, ok := s.GetField("amount")
	if !ok || f.Type != FieldDecimal {
		t.Fatalf("unexpected GetField result: %+v / %v", f, ok)
	}
}

func TestGetFieldsDict(t *testing.T) {
	s, err := New("ap.invoice_received", 1, []FieldSchema{
		{Name: "amount", Type: FieldDecimal},
		{Name: "currency", Type: FieldCurrency},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	dict := s.GetFieldsDict()
	if len(dict) != 2 || dict["amount"].Type != FieldDecimal || dict["currency"].Type != FieldCurrency {
		t.Fatalf("unexpected fields dict: %+v", dict)
	}
}

func TestRegistryRegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	v1, err := New("ap.invoice_received", 1, nil)
	if err != nil {
		t.Fatalf("New v1: %v", err)
	}
	if err := r.Register(v1); err != nil {
		t.Fatalf("register v1: %v", err)
	}
	if err := r.Register(v1); err == nil {
		t.Fatalf("expected a duplicate schema key to be rejected")
	}

	v2, err := New("ap.invoice_received", 2, nil)
	if err != nil {
		t.Fatalf("New v2: %v", err)
	}
	if err := r.Register(v2); err != nil {
		t.Fatalf("register v2: %v", err)
	}

	got, ok := r.Get("ap.invoice_received", 1)
	if !ok || got.Version != 1 {
		t.Fatalf("expected to find v1, got %+v/%v", got, ok)
	}
	latest, ok := r.Latest("ap.invoice_received")
	if !ok || latest.Version != 2 {
		t.Fatalf("expected latest to be v2, got %+v/%v", latest, ok)
	}
}

func TestRegistrySealRejectsFurtherRegistration(t *testing.T) {
	r := NewRegistry()
	s, err := New("ap.invoice_received", 1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.Seal()
	if err := r.Register(s); err == nil {
		t.Fatalf("expected registration against a sealed registry to fail")
	}
}
