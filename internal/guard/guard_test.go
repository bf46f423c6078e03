package guard

import "testing"

func TestParseBareTruthinessCheck(t *testing.T) {
	e, err := Parse("po_number")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.FieldPath != "po_number" || e.Op != "" {
		t.Fatalf("expected bare field check, got %+v", e)
	}
}

func TestParseComparison(t *testing.T) {
	e, err := Parse("match_type == NONE")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.FieldPath != "match_type" || e.Op != OpEQ || e.Literal != "NONE" {
		t.Fatalf("expected match_type == NONE, got %+v", e)
	}
}

func TestParseDisambiguatesLessEqualFromLessThan(t *testing.T) {
	e, err := Parse("amount <= 100")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.Op != OpLE || e.FieldPath != "amount" || e.Literal != "100" {
		t.Fatalf("expected amount <= 100, got %+v", e)
	}
}

func TestParseNotEqualIsNotMisreadAsEqual(t *testing.T) {
	e, err := Parse("status != CLOSED")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.Op != OpNE || e.FieldPath != "status" || e.Literal != "CLOSED" {
		t.Fatalf("expected status != CLOSED, got %+v", e)
	}
}

func TestParseRejectsEmptyExpression(t *testing.T) {
	if _, err := Parse("   "); err == nil {
		t.Fatalf("expected error for empty expression")
	}
}

func TestParseUnquotesLiteral(t *testing.T) {
	e, err := Parse(`currency == "USD"`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if e.Literal != "USD" {
		t.Fatalf("expected unquoted literal USD, got %q", e.Literal)
	}
}

func TestEvaluateBareTruthiness(t *testing.T) {
	e, _ := Parse("po_number")
	present := map[string]any{"po_number": "PO-1"}
	if r := Evaluate(e, present); !r.Matched {
		t.Errorf("expected present non-empty field to match")
	}
	absent := map[string]any{}
	if r := Evaluate(e, absent); r.Matched {
		t.Errorf("expected absent field to not match")
	}
	empty := map[string]any{"po_number": ""}
	if r := Evaluate(e, empty); r.Matched {
		t.Errorf("expected empty string field to not match")
	}
}

func TestEvaluateMissingFieldWithComparisonDoesNotMatch(t *testing.T) {
	e, _ := Parse("match_type == NONE")
	r := Evaluate(e, map[string]any{})
	if r.Matched {
		t.Errorf("expected missing field comparison to not match")
	}
	if r.Error != nil {
		t.Errorf("expected no error for a missing field, got %v", r.Error)
	}
}

func TestEvaluateStringComparison(t *testing.T) {
	e, _ := Parse("match_type == NONE")
	r := Evaluate(e, map[string]any{"match_type": "NONE"})
	if !r.Matched {
		t.Errorf("expected match_type == NONE to match")
	}
	r = Evaluate(e, map[string]any{"match_type": "FULL"})
	if r.Matched {
		t.Errorf("expected match_type == NONE to not match FULL")
	}
}

func TestEvaluateDecimalComparison(t *testing.T) {
	e, _ := Parse("amount > 100")
	if r := Evaluate(e, map[string]any{"amount": "150.00"}); !r.Matched {
		t.Errorf("expected 150.00 > 100 to match")
	}
	if r := Evaluate(e, map[string]any{"amount": "50.00"}); r.Matched {
		t.Errorf("expected 50.00 > 100 to not match")
	}
}

func TestEvaluateBooleanComparison(t *testing.T) {
	e, _ := Parse("is_reversal == true")
	if r := Evaluate(e, map[string]any{"is_reversal": true}); !r.Matched {
		t.Errorf("expected is_reversal == true to match")
	}
	if r := Evaluate(e, map[string]any{"is_reversal": false}); r.Matched {
		t.Errorf("expected is_reversal == true to not match false")
	}
}

func TestEvaluateBooleanOperatorMismatchErrors(t *testing.T) {
	e, _ := Parse("is_reversal < true")
	r := Evaluate(e, map[string]any{"is_reversal": true})
	if r.Error == nil {
		t.Fatalf("expected an error for a non-equality boolean comparison")
	}
}
