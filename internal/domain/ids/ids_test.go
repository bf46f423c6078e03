package ids

import "testing"

func TestNewGeneratesDistinctIDs(t *testing.T) {
	a := New()
	b := New()
	if a == b {
		t.Fatalf("expected two calls to New to produce distinct ids")
	}
}

func TestDeterministicIsStableForSameInput(t *testing.T) {
	a := Deterministic("batch-1:record-2")
	b := Deterministic("batch-1:record-2")
	if a != b {
		t.Fatalf("expected identical input to derive identical ids, got %s and %s", a, b)
	}
}

func TestDeterministicDiffersForDifferentInput(t *testing.T) {
	a := Deterministic("batch-1:record-2")
	b := Deterministic("batch-1:record-3")
	if a == b {
		t.Fatalf("expected different input to derive different ids")
	}
}
