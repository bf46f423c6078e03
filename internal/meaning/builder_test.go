package meaning

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/policy"
)

func sampleEvent(eventType string, payload map[string]any) *domain.Event {
	return &domain.Event{
		EventID:   uuid.New(),
		EventType: eventType,
		Payload:   payload,
	}
}

func TestBuildRejectsPolicyEventTypeMismatch(t *testing.T) {
	event := sampleEvent("ap.invoice_received", map[string]any{})
	p := &policy.AccountingPolicy{Trigger: policy.Trigger{EventType: "ar.invoice_issued"}}

	res := Build(event, p, "hash1", "trace1", time.Now())
	if res.Success {
		t.Fatalf("expected mismatch to fail")
	}
	if len(res.ValidationErrors) != 1 {
		t.Fatalf("expected one validation error, got %v", res.ValidationErrors)
	}
}

func TestBuildRejectsInvalidGuardExpression(t *testing.T) {
	event := sampleEvent("ap.invoice_received", map[string]any{})
	p := &policy.AccountingPolicy{
		Trigger: policy.Trigger{EventType: "ap.invoice_received"},
		Guards:  []policy.Guard{{Action: policy.Reject, Expression: "   "}},
	}

	res := Build(event, p, "hash1", "trace1", time.Now())
	if res.Success {
		t.Fatalf("expected invalid guard expression to fail meaning building")
	}
}

func TestBuildReturnsRejectedGuardOutcome(t *testing.T) {
	event := sampleEvent("ap.invoice_received", map[string]any{"match_type": "NONE"})
	p := &policy.AccountingPolicy{
		Trigger: policy.Trigger{EventType: "ap.invoice_received"},
		Guards: []policy.Guard{
			{Action: policy.Reject, Expression: "match_type == NONE", ReasonCode: "NO_PO_MATCH", Message: "no matching PO"},
		},
	}

	res := Build(event, p, "hash1", "trace1", time.Now())
	if res.Success {
		t.Fatalf("expected a firing REJECT guard to short-circuit meaning building")
	}
	if res.Guard.Outcome != GuardRejected || res.Guard.ReasonCode != "NO_PO_MATCH" {
		t.Fatalf("unexpected guard result: %+v", res.Guard)
	}
}

func TestBuildReturnsBlockedGuardOutcome(t *testing.T) {
	event := sampleEvent("ap.invoice_received", map[string]any{"amount": "20000.00"})
	p := &policy.AccountingPolicy{
		Trigger: policy.Trigger{EventType: "ap.invoice_received"},
		Guards: []policy.Guard{
			{Action: policy.Block, Expression: "amount > 10000", ReasonCode: "NEEDS_APPROVAL", Message: "over threshold"},
		},
	}

	res := Build(event, p, "hash1", "trace1", time.Now())
	if res.Guard.Outcome != GuardBlocked {
		t.Fatalf("expected a firing BLOCK guard to report BLOCKED, got %+v", res.Guard)
	}
}

func TestBuildExtractsQuantityAndDimensionsWhenNoGuardFires(t *testing.T) {
	event := sampleEvent("ap.invoice_received", map[string]any{
		"amount":      "100.00",
		"match_type":  "FULL",
		"cost_center": "CC1",
	})
	p := &policy.AccountingPolicy{
		Name:    "ap.invoice_received.direct_expense",
		Trigger: policy.Trigger{EventType: "ap.invoice_received"},
		Meaning: policy.Meaning{
			EconomicType:  "Expense",
			QuantityField: "amount",
			Dimensions:    []string{"cost_center"},
		},
		Guards: []policy.Guard{
			{Action: policy.Reject, Expression: "match_type == NONE"},
		},
	}

	res := Build(event, p, "hash1", "trace1", time.Now())
	if !res.Success {
		t.Fatalf("expected success, got validation errors %v / guard %+v", res.ValidationErrors, res.Guard)
	}
	ee := res.EconomicEvent
	if ee.EconomicType != "Expense" {
		t.Errorf("expected economic type Expense, got %s", ee.EconomicType)
	}
	if ee.Quantity == nil || *ee.Quantity != "100.00" {
		t.Errorf("expected quantity 100.00, got %v", ee.Quantity)
	}
	if ee.Dimensions["cost_center"] != "CC1" {
		t.Errorf("expected cost_center dimension CC1, got %v", ee.Dimensions)
	}
	if ee.PolicyName != "ap.invoice_received.direct_expense" || ee.PolicyHash != "hash1" || ee.TraceID != "trace1" {
		t.Errorf("unexpected provenance fields: %+v", ee)
	}
}

func TestBuildWithNoQuantityFieldLeavesQuantityNil(t *testing.T) {
	event := sampleEvent("ap.invoice_received", map[string]any{})
	p := &policy.AccountingPolicy{
		Trigger: policy.Trigger{EventType: "ap.invoice_received"},
		Meaning: policy.Meaning{EconomicType: "Expense"},
	}

	res := Build(event, p, "hash1", "trace1", time.Now())
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.EconomicEvent.Quantity != nil {
		t.Fatalf("expected nil quantity when QuantityField is empty, got %v", *res.EconomicEvent.Quantity)
	}
}
