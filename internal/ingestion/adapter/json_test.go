package adapter

import "testing"

func TestJSONAdapterArrayFormat(t *testing.T) {
	path := writeTemp(t, "data.json", `[{"Code":"A1","Amount":100.0},{"Code":"A2","Amount":200.0}]`)
	a := &JSONAdapter{}
	rows, err := a.Read(path, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["code"] != "A1" {
		t.Fatalf("expected lowercased key, got %+v", rows[0])
	}
}

func TestJSONAdapterJSONLFormat(t *testing.T) {
	path := writeTemp(t, "data.jsonl", "{\"code\":\"A1\"}\n{\"code\":\"A2\"}\n")
	a := &JSONAdapter{}
	rows, err := a.Read(path, map[string]any{"format": "jsonl"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestJSONAdapterJSONPathEnvelope(t *testing.T) {
	path := writeTemp(t, "envelope.json", `{"QueryResponse":{"Account":[{"Id":"1"},{"Id":"2"}]}}`)
	a := &JSONAdapter{}
	rows, err := a.Read(path, map[string]any{"json_path": "QueryResponse.Account"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 2 || rows[0]["id"] != "1" {
		t.Fatalf("got %+v", rows)
	}
}

func TestJSONAdapterRequiredKeysFilter(t *testing.T) {
	path := writeTemp(t, "partial.json", `[{"code":"A1","amount":100},{"code":"A2"}]`)
	a := &JSONAdapter{}
	rows, err := a.Read(path, map[string]any{"required_keys": []any{"amount"}})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 1 || rows[0]["code"] != "A1" {
		t.Fatalf("got %+v", rows)
	}
}
