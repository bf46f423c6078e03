package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/ledgerforge/kernel/internal/ledger"
	"github.com/ledgerforge/kernel/internal/schema"
)

// CompilationResult is the compiler's output: success plus accumulated
// errors and warnings. Compilation success is a precondition to
// registration.
type CompilationResult struct {
	Success bool
	Errors []string
	// Warnings fire when a check can't be fully applied — e.g. no schema
	// registered for a policy's event_type.
	Warnings []string
	// ProfileHash is sha-256 of the policy's canonical serialization,
	// embedded in downstream outcomes for replay verification.
	ProfileHash string
}

// Compiler checks structure, overlap, field references, and ledger
// completeness before a policy may be registered.
type Compiler struct {
	Selector *Selector
	Schemas *schema.Registry
	LedgerReg *ledger.Registry
}

// NewCompiler builds a Compiler bound to the registries it checks against.
func NewCompiler(selector *Selector, schemas *schema.Registry, ledgerReg *ledger.Registry) *Compiler {
	return &Compiler{Selector: selector, Schemas: schemas, LedgerReg: ledgerReg}
}

// Compile runs every check in order and returns the accumulated result.
// It never stops at the first failure — every violation is reported.
func (c *Compiler) Compile(p *AccountingPolicy) CompilationResult {
	var merr *multierror.Error
	var warnings []string

	if err := c.validateStructure(p); err != nil {
		merr = multierror.Append(merr, err)
	}

	if err := c.validateNoOverlaps(p); err != nil {
		merr = multierror.Append(merr, err)
	}

	fieldWarnings, fieldErrs := c.validateFieldReferences(p)
	warnings = append(warnings, fieldWarnings...)
	for _, e := range fieldErrs {
		merr = multierror.Append(merr, e)
	}

	if err := c.validateLedgerRequirements(p); err != nil {
		merr = multierror.Append(merr, err)
	}

	result := CompilationResult{Warnings: warnings}
	if merr == nil || merr.Len() == 0 {
		result.Success = true
		result.ProfileHash = profileHash(p)
		return result
	}
	for _, e := range merr.Errors {
		result.Errors = append(result.Errors, e.Error())
	}
	return result
}

// CompileAndRegister compiles a policy and, on success, registers it with
// the selector.
func (c *Compiler) CompileAndRegister(p *AccountingPolicy) CompilationResult {
	result := c.Compile(p)
	if !result.Success {
		return result
	}
	if err := c.Selector.Register(p); err != nil {
		result.Success = false
		result.Errors = append(result.Errors, err.Error())
	}
	return result
}

func (c *Compiler) validateStructure(p *AccountingPolicy) error {
	return p.Validate()
}

func (c *Compiler) validateNoOverlaps(p *AccountingPolicy) error {
	if c.Selector == nil {
		return nil
	}
	c.Selector.mu.RLock()
	existing := append([]*AccountingPolicy(nil), c.Selector.byEvent[p.Trigger.EventType]...)
	c.Selector.mu.RUnlock()

	for _, other := range existing {
		if other.ProfileKey() == p.ProfileKey() {
			continue
		}
		if overlaps(p, other) {
			if _, resolved := resolvePrecedence([]*AccountingPolicy{p, other}); !resolved {
				return fmt.Errorf("policy %q overlaps %q with unresolvable precedence", p.Name, other.Name)
			}
		}
	}
	return nil
}

func (c *Compiler) validateFieldReferences(p *AccountingPolicy) (warnings []string, errs []error) {
	if c.Schemas == nil {
		warnings = append(warnings, fmt.Sprintf("no schema registry configured; cannot verify field references for %s", p.Name))
		return warnings, nil
	}
	s, ok := c.Schemas.Latest(p.Trigger.EventType)
	if !ok {
		warnings = append(warnings, fmt.Sprintf("no schema registered for event_type %q; field references for %s unverified", p.Trigger.EventType, p.Name))
		return warnings, nil
	}
	refs := p.GetFieldReferences()
	for _, ve := range schema.ValidateFieldReferences(refs, s) {
		errs = append(errs, fmt.Errorf("field reference check failed: %s", ve.String()))
	}
	return warnings, errs
}

func (c *Compiler) validateLedgerRequirements(p *AccountingPolicy) error {
	if c.LedgerReg == nil {
		return nil
	}
	rolesByLedger := make(map[string]map[string]struct{})
	for _, effect := range p.LedgerEffects {
		set := rolesByLedger[effect.LedgerID]
		if set == nil {
			set = make(map[string]struct{})
			rolesByLedger[effect.LedgerID] = set
		}
		set[effect.DebitRole] = struct{}{}
		set[effect.CreditRole] = struct{}{}
	}
	var merr *multierror.Error
	for ledgerID, roles := range rolesByLedger {
		req, ok := c.LedgerReg.GetRequiredRoles(ledgerID, p.Meaning.EconomicType)
		if !ok {
			continue // no requirement registered; nothing to enforce
		}
		for _, required := range []string{req.DebitRole, req.CreditRole} {
			if _, present := roles[required]; !present {
				merr = multierror.Append(merr, fmt.Errorf("ledger %q requires role %q for economic_type %q, missing from policy %q", ledgerID, required, p.Meaning.EconomicType, p.Name))
			}
		}
	}
	if merr != nil {
		return merr.ErrorOrNil()
	}
	return nil
}

// ProfileHash recomputes a policy's canonical profile_hash outside of
// compilation, for callers (the interpretation coordinator) that only hold
// a reference to an already-registered policy.
func ProfileHash(p *AccountingPolicy) string {
	return profileHash(p)
}

func profileHash(p *AccountingPolicy) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s:v%d:%s:%s:%s", p.Name, p.Version, p.Trigger.EventType, p.Meaning.EconomicType, p.Scope)

	keys := make([]string, 0, len(p.Trigger.Where))
	for k := range p.Trigger.Where {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(h, ":%s=%s", k, p.Trigger.Where[k])
	}

	for _, effect := range p.LedgerEffects {
		fmt.Fprintf(h, ":effect(%s,%s,%s)", effect.LedgerID, effect.DebitRole, effect.CreditRole)
	}
	for _, g := range p.Guards {
		fmt.Fprintf(h, ":guard(%s,%s,%s)", g.Action, g.Expression, g.ReasonCode)
	}
	for _, lm := range p.LineMappings {
		fmt.Fprintf(h, ":line(%s,%s,%s,%s,%s)", lm.Role, lm.Side, lm.Ledger, lm.ForeachPath, lm.FromContextPath)
	}
	return hex.EncodeToString(h.Sum(nil))
}
