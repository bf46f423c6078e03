package payload

import "testing"

func TestGetResolvesNestedField(t *testing.T) {
	tree := map[string]any{
		"vendor": map[string]any{
			"code": "V1",
		},
	}
	got, ok := Get(tree, "vendor.code")
	if !ok || got != "V1" {
		t.Fatalf("expected vendor.code=V1, got %v (ok=%v)", got, ok)
	}
}

func TestGetStripsPayloadPrefix(t *testing.T) {
	tree := map[string]any{"amount": "100.00"}
	got, ok := Get(tree, "payload.amount")
	if !ok || got != "100.00" {
		t.Fatalf("expected payload.amount=100.00, got %v (ok=%v)", got, ok)
	}
}

func TestGetResolvesArrayIndex(t *testing.T) {
	tree := map[string]any{
		"items": []any{
			map[string]any{"amount": "10.00"},
			map[string]any{"amount": "20.00"},
		},
	}
	got, ok := Get(tree, "items[1].amount")
	if !ok || got != "20.00" {
		t.Fatalf("expected items[1].amount=20.00, got %v (ok=%v)", got, ok)
	}
}

func TestGetMissingFieldReturnsFalse(t *testing.T) {
	tree := map[string]any{"amount": "10.00"}
	if _, ok := Get(tree, "missing_field"); ok {
		t.Fatalf("expected missing field to report not found")
	}
}

func TestGetMissingNestedParentReturnsFalse(t *testing.T) {
	tree := map[string]any{"amount": "10.00"}
	if _, ok := Get(tree, "amount.sub"); ok {
		t.Fatalf("expected indexing into a non-map to report not found")
	}
}

func TestGetCollectionResolvesArray(t *testing.T) {
	tree := map[string]any{"items": []any{"a", "b"}}
	got, ok := GetCollection(tree, "items")
	if !ok || len(got) != 2 {
		t.Fatalf("expected 2-element collection, got %v (ok=%v)", got, ok)
	}
}

func TestGetCollectionRejectsNonArray(t *testing.T) {
	tree := map[string]any{"amount": "10.00"}
	if _, ok := GetCollection(tree, "amount"); ok {
		t.Fatalf("expected non-array field to report not found")
	}
}

func TestLastSegment(t *testing.T) {
	cases := map[string]string{
		"payload.cost_center": "cost_center",
		"vendor.code":         "code",
		// LastSegment truncates at the first bracket, so anything after an
		// array index is dropped along with the index itself.
		"items[0]": "items",
	}
	for path, want := range cases {
		if got := LastSegment(path); got != want {
			t.Errorf("LastSegment(%q) = %q, want %q", path, got, want)
		}
	}
}
