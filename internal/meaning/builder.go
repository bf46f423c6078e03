// Package meaning implements the meaning builder: given an event
// and a matched policy, evaluates guards in order and, if none fire,
// extracts quantity and dimensions into an EconomicEvent.
package meaning

import (
	"fmt"
	"time"

	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/guard"
	"github.com/ledgerforge/kernel/internal/payload"
	"github.com/ledgerforge/kernel/internal/policy"
)

// GuardOutcome is REJECT (terminal) or BLOCK (resumable), or empty when no
// guard fired.
type GuardOutcome string

const (
	NoGuard GuardOutcome = ""
	GuardRejected GuardOutcome = "REJECTED"
	GuardBlocked GuardOutcome = "BLOCKED"
)

// GuardResult is the outcome of evaluating a policy's guards against an
// event payload.
type GuardResult struct {
	Outcome GuardOutcome
	ReasonCode string
	Detail string
}

// Result is the meaning builder's output.
type Result struct {
	Success bool
	EconomicEvent *domain.EconomicEvent
	Guard GuardResult
	ValidationErrors []string
}

// Build runs the meaning builder sequence: policy-event
// consistency, guard evaluation in declaration order, quantity/dimension
// extraction, and EconomicEvent assembly.
func Build(event *domain.Event, p *policy.AccountingPolicy, profileHash, traceID string, now time.Time) Result {
	if p.Trigger.EventType != event.EventType {
		return Result{ValidationErrors: []string{"policy-event mismatch: trigger.event_type != event.event_type"}}
	}

	for _, g := range p.Guards {
		expr, err := guard.Parse(g.Expression)
		if err != nil {
			return Result{ValidationErrors: []string{"invalid guard expression: " + err.Error()}}
		}
		res := guard.Evaluate(expr, event.Payload)
		if res.Matched {
			outcome := GuardRejected
			if g.Action == policy.Block {
				outcome = GuardBlocked
			}
			return Result{Guard: GuardResult{Outcome: outcome, ReasonCode: g.ReasonCode, Detail: g.Message}}
		}
	}

	var quantity *string
	if p.Meaning.QuantityField != "" {
		if v, ok := payload.Get(event.Payload, p.Meaning.QuantityField); ok {
			s := toStringValue(v)
			quantity = &s
		}
	}

	dimensions := make(map[string]string)
	for _, dimPath := range p.Meaning.Dimensions {
		if v, ok := payload.Get(event.Payload, dimPath); ok {
			dimensions[payload.LastSegment(dimPath)] = toStringValue(v)
		}
	}

	ee := &domain.EconomicEvent{
		EconomicType: p.Meaning.EconomicType,
		Quantity: quantity,
		Dimensions: dimensions,
		PolicyName: p.Name,
		PolicyHash: profileHash,
		Snapshot: event.Payload,
		TraceID: traceID,
		CreatedAt: now,
	}
	return Result{Success: true, EconomicEvent: ee}
}

func toStringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}
