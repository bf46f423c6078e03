// Package policy models the declarative AccountingPolicy: the trigger,
// meaning, ledger effects, guards, and precedence rules that the selector
// resolves against an incoming event. Pure domain package — no I/O.
package policy

import (
	"fmt"
	"time"
)

// PrecedenceMode ranks policies when more than one could match the same
// event: among candidates still tied after scope specificity and
// priority, OVERRIDE beats NORMAL.
type PrecedenceMode string

const (
	Normal   PrecedenceMode = "NORMAL"
	Override PrecedenceMode = "OVERRIDE"
)

// GuardAction is the terminal classification a guard assigns on match.
type GuardAction string

const (
	Reject GuardAction = "REJECT" // terminal, not resumable
	Block  GuardAction = "BLOCK"  // resumable
)

// Trigger identifies which events a policy is a candidate for.
type Trigger struct {
	EventType     string
	SchemaVersion int
	// Where holds (path, expected-value) pairs; all must match the payload
	// for the trigger to fire.
	Where map[string]string
}

// Meaning is the economic interpretation a matched policy assigns.
type Meaning struct {
	EconomicType  string
	QuantityField string
	Dimensions    []string
}

// LedgerEffect names one ledger a policy posts into and the roles it uses.
type LedgerEffect struct {
	LedgerID   string
	DebitRole  string
	CreditRole string
}

// Guard is one ordered condition evaluated against the event payload.
type Guard struct {
	Action     GuardAction
	Expression string
	ReasonCode string
	Message    string
}

// Precedence carries the selector's tie-break configuration for one policy.
type Precedence struct {
	Mode             PrecedenceMode
	Priority         int
	ExplicitOverride []string // names of policies this one explicitly overrides
}

// LineMapping describes how one role expands into journal lines.
// Exactly one of ForeachPath / FromContextPath is set, or neither (plain).
type LineMapping struct {
	Role            string
	Side            string // "debit" | "credit"
	Ledger          string
	ForeachPath     string
	FromContextPath string
}

// AccountingPolicy is the declarative interpretation law: trigger + meaning
// + ledger effects + guards + precedence + line mappings.
type AccountingPolicy struct {
	Name    string
	Version int

	Trigger Trigger
	Meaning Meaning

	LedgerEffects []LedgerEffect
	Guards        []Guard

	EffectiveFrom time.Time
	EffectiveTo   *time.Time

	// Scope is "*", "prefix:*", or an exact scope string.
	Scope string

	Precedence Precedence

	LineMappings []LineMapping

	// ValuationModel names a registered valuation.Model to derive the
	// event's (amount, currency) before intent expansion. Empty means the
	// coordinator falls back to reading "amount"/"currency" straight off
	// the payload (the fixed_amount_v1 shape without the registry lookup).
	ValuationModel        string
	ValuationModelVersion int

	// UsesPayloadLines routes intent expansion through
	// intent.BuildFromPayloadLines instead of the usual LedgerEffects/
	// LineMappings expansion: each payload.lines entry already carries its
	// own account_key and debit-or-credit amount (an imported historical
	// journal), rather than deriving lines from one event-level amount.
	// LedgerEffects[0].LedgerID still names which ledger the lines post to.
	UsesPayloadLines bool
}

// Validate enforces the policy's own structural invariants.
func (p *AccountingPolicy) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("policy name is required")
	}
	if p.Version < 1 {
		return fmt.Errorf("policy %s: version must be >= 1", p.Name)
	}
	if p.Trigger.EventType == "" {
		return fmt.Errorf("policy %s: trigger.event_type is required", p.Name)
	}
	if p.Meaning.EconomicType == "" {
		return fmt.Errorf("policy %s: meaning.economic_type is required", p.Name)
	}
	if len(p.LedgerEffects) == 0 {
		return fmt.Errorf("policy %s: at least one ledger_effect is required", p.Name)
	}
	if p.EffectiveTo != nil && !p.EffectiveTo.After(p.EffectiveFrom) {
		return fmt.Errorf("policy %s: effective_to must be after effective_from", p.Name)
	}
	if p.Scope == "" {
		return fmt.Errorf("policy %s: scope is required", p.Name)
	}
	for _, g := range p.Guards {
		if g.Action != Reject && g.Action != Block {
			return fmt.Errorf("policy %s: guard action must be REJECT or BLOCK, got %s", p.Name, g.Action)
		}
		if g.Expression == "" {
			return fmt.Errorf("policy %s: guard expression is required", p.Name)
		}
	}
	return nil
}

// ProfileKey is the unique (name, version) key used by AlreadyRegisteredError.
func (p *AccountingPolicy) ProfileKey() string {
	return fmt.Sprintf("%s:v%d", p.Name, p.Version)
}

// IsEffectiveOn reports whether date falls within [EffectiveFrom, EffectiveTo).
func (p *AccountingPolicy) IsEffectiveOn(date time.Time) bool {
	if date.Before(p.EffectiveFrom) {
		return false
	}
	if p.EffectiveTo != nil && !date.Before(*p.EffectiveTo) {
		return false
	}
	return true
}

// MatchesScope reports whether the policy's scope matches the candidate
// scope string: "*" matches everything, "prefix:*" matches by prefix
// (including the empty prefix, which also matches everything), anything
// else requires an exact match.
func (p *AccountingPolicy) MatchesScope(scope string) bool {
	if p.Scope == "*" {
		return true
	}
	const suffix = ":*"
	if len(p.Scope) >= len(suffix) && p.Scope[len(p.Scope)-len(suffix):] == suffix {
		prefix := p.Scope[:len(p.Scope)-len(suffix)]
		if prefix == "" {
			return true
		}
		return len(scope) >= len(prefix) && scope[:len(prefix)] == prefix
	}
	return p.Scope == scope
}

// GetFieldReferences returns every payload field path this policy touches:
// trigger where-clauses, meaning quantity/dimension fields, and line mapping
// foreach/from_context paths. Used by the compiler's field-reference check.
func (p *AccountingPolicy) GetFieldReferences() []string {
	var refs []string
	for path := range p.Trigger.Where {
		refs = append(refs, path)
	}
	if p.Meaning.QuantityField != "" {
		refs = append(refs, p.Meaning.QuantityField)
	}
	refs = append(refs, p.Meaning.Dimensions...)
	for _, lm := range p.LineMappings {
		if lm.ForeachPath != "" {
			refs = append(refs, lm.ForeachPath)
		}
		if lm.FromContextPath != "" {
			refs = append(refs, lm.FromContextPath)
		}
	}
	return refs
}

// GetRejectGuards returns guards in REJECT order.
func (p *AccountingPolicy) GetRejectGuards() []Guard {
	var out []Guard
	for _, g := range p.Guards {
		if g.Action == Reject {
			out = append(out, g)
		}
	}
	return out
}

// GetBlockGuards returns guards in BLOCK order.
func (p *AccountingPolicy) GetBlockGuards() []Guard {
	var out []Guard
	for _, g := range p.Guards {
		if g.Action == Block {
			out = append(out, g)
		}
	}
	return out
}
