// Package bootstrap assembles the kernel's registries and coordinator from
// a loaded config.Config/config.Pack pair. It is the one place allowed to
// import both internal/config (a leaf package) and the domain packages
// (policy, ledger, schema, valuation, coordinator) it wires together, so
// internal/config itself stays dependency-light.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/ledgerforge/kernel/internal/config"
	"github.com/ledgerforge/kernel/internal/coordinator"
	"github.com/ledgerforge/kernel/internal/ledger"
	"github.com/ledgerforge/kernel/internal/modules/ap"
	"github.com/ledgerforge/kernel/internal/modules/ar"
	"github.com/ledgerforge/kernel/internal/modules/cash"
	"github.com/ledgerforge/kernel/internal/modules/gl"
	"github.com/ledgerforge/kernel/internal/modules/inventory"
	"github.com/ledgerforge/kernel/internal/policy"
	"github.com/ledgerforge/kernel/internal/schema"
	"github.com/ledgerforge/kernel/internal/schema/definitions"
	"github.com/ledgerforge/kernel/internal/storage"
	"github.com/ledgerforge/kernel/internal/valuation"
)

// Registries bundles every class-registry the coordinator reads from,
// populated once at startup and read-only thereafter.
type Registries struct {
	Schemas *schema.Registry
	Ledgers *ledger.Registry
	Valuations *valuation.Registry
	Selector *policy.Selector
	Modules *policy.ModuleRegistry
}

// builtinModules lists the module packages carried in this workspace,
// registered before any pack-supplied policies so a pack can't silently
// shadow a built-in profile name without RegisterModule's collision
// check firing.
var builtinModules = map[string]func() []*policy.AccountingPolicy{
	gl.ModuleName: gl.Profiles,
	ap.ModuleName: ap.Profiles,
	ar.ModuleName: ar.Profiles,
	inventory.ModuleName: inventory.Profiles,
	cash.ModuleName: cash.Profiles,
}

// BuildSchemaRegistry registers every known event schema and seals the
// registry (schemas are fixed before any policy compiles against
// them).
func BuildSchemaRegistry() (*schema.Registry, error) {
	reg := schema.NewRegistry()
	if err := definitions.RegisterAll(reg); err != nil {
		return nil, fmt.Errorf("bootstrap: register schemas: %w", err)
	}
	reg.Seal()
	return reg, nil
}

// BuildLedgerRegistry seeds the default GL role bindings and overlays any
// additional economic-type requirements a config pack declares. Pack
// entries don't carry account codes (the YAML shape has none — see
// DESIGN.md), so pack-introduced roles are registered without a bound
// account code until an operator binds one separately.
func BuildLedgerRegistry(pack *config.Pack) *ledger.Registry {
	reg := ledger.DefaultRegistry()
	if pack == nil {
		return reg
	}
	for _, role := range pack.LedgerRoles {
		_ = reg.Register(ledger.Requirements{
			Ledger: "GL",
			EconomicType: role.EconomicType,
			DebitRole: role.DebitRole,
			CreditRole: role.CreditRole,
			DimensionRequirements: role.DimensionRequirements,
		})
	}
	return reg
}

// BuildValuationRegistry registers the standard valuation models; a fresh
// deployment has no custom models to layer on top yet.
func BuildValuationRegistry() (*valuation.Registry, error) {
	reg := valuation.NewRegistry()
	for _, m := range valuation.StandardModels() {
		if err := reg.Register(m); err != nil {
			return nil, fmt.Errorf("bootstrap: register valuation model: %w", err)
		}
	}
	return reg, nil
}

// BuildPolicyRegistries compiles and registers the built-in module profile
// packs first, then any policies the config pack declares, grouped by
// module name so a single bad module's policies roll back together
// without disturbing the others (ModuleRegistry.RegisterModule's
// all-or-nothing contract).
func BuildPolicyRegistries(pack *config.Pack, schemas *schema.Registry, ledgers *ledger.Registry, now time.Time) (*policy.Selector, *policy.ModuleRegistry, error) {
	selector := policy.NewSelector()
	modules := policy.NewModuleRegistry(selector)
	compiler := policy.NewCompiler(selector, schemas, ledgers)

	for name, profileFn := range builtinModules {
		if err := registerCompiled(compiler, modules, name, profileFn()); err != nil {
			return nil, nil, err
		}
	}

	if pack != nil {
		byModule := make(map[string][]*policy.AccountingPolicy)
		order := make([]string, 0)
		for _, pp := range pack.Policies {
			converted, err := convertPackPolicy(pp, now)
			if err != nil {
				return nil, nil, fmt.Errorf("bootstrap: pack policy %s: %w", pp.Name, err)
			}
			if _, seen := byModule[pp.Module]; !seen {
				order = append(order, pp.Module)
			}
			byModule[pp.Module] = append(byModule[pp.Module], converted)
		}
		for _, moduleName := range order {
			if err := registerCompiled(compiler, modules, moduleName, byModule[moduleName]); err != nil {
				return nil, nil, err
			}
		}
	}

	return selector, modules, nil
}

// registerCompiled runs every profile through the compiler before handing
// the batch to ModuleRegistry, so a structurally-invalid policy never
// reaches the selector's lookup maps in the first place.
func registerCompiled(compiler *policy.Compiler, modules *policy.ModuleRegistry, moduleName string, profiles []*policy.AccountingPolicy) error {
	for _, p := range profiles {
		result := compiler.Compile(p)
		if len(result.Errors) > 0 {
			return fmt.Errorf("bootstrap: module %s: policy %s failed compilation: %v", moduleName, p.Name, result.Errors)
		}
	}
	if err := modules.RegisterModule(moduleName, profiles); err != nil {
		return fmt.Errorf("bootstrap: module %s: %w", moduleName, err)
	}
	return nil
}

// convertPackPolicy turns a YAML-decoded PackPolicy into the runtime
// AccountingPolicy shape. Two gaps the pack format doesn't carry directly:
//
// - Meaning.EconomicType: the pack has no separate economic-type field,
// since ledger-requirement lookups are keyed per (ledger, economic_type)
// and the compiler's "no requirement registered" path already no-ops
// cleanly when a type isn't in the ledger registry. Pack policies use
// their own Name as their EconomicType, keeping each one self-contained
// rather than sharing a type key across policies.
// - Scope: the pack's Scope is a map (matching Trigger.Where's shape),
// not AccountingPolicy's plain string. It supplies Trigger.Where;
// AccountingPolicy.Scope itself defaults to "*" for every pack-loaded
// policy, since v1 carries no scope-based precedence configuration in
// the YAML shape.
func convertPackPolicy(pp config.PackPolicy, now time.Time) (*policy.AccountingPolicy, error) {
	mode := policy.Normal
	if pp.Mode == string(policy.Override) {
		mode = policy.Override
	}

	guards := make([]policy.Guard, 0, len(pp.Guards))
	for _, g := range pp.Guards {
		action := policy.GuardAction(g.Action)
		if action != policy.Reject && action != policy.Block {
			return nil, fmt.Errorf("guard action must be REJECT or BLOCK, got %q", g.Action)
		}
		guards = append(guards, policy.Guard{
			Action: action,
			Expression: g.Expression,
			Message: g.Message,
		})
	}

	foreachPath, fromContextPath := parseMapping(pp.LedgerEffect.Mapping)

	p := &policy.AccountingPolicy{
		Name: pp.Name,
		Version: 1,
		Trigger: policy.Trigger{
			EventType: pp.EventType,
			Where: pp.Scope,
		},
		Meaning: policy.Meaning{
			EconomicType: pp.Name,
			QuantityField: "amount",
		},
		LedgerEffects: []policy.LedgerEffect{{
			LedgerID: "GL",
			DebitRole: pp.LedgerEffect.DebitRole,
			CreditRole: pp.LedgerEffect.CreditRole,
		}},
		Guards: guards,
		EffectiveFrom: now,
		Scope: "*",
		Precedence: policy.Precedence{
			Mode: mode,
			Priority: pp.Priority,
		},
		LineMappings: []policy.LineMapping{
			{Role: pp.LedgerEffect.DebitRole, Side: "debit", Ledger: "GL", ForeachPath: foreachPath, FromContextPath: fromContextPath},
			{Role: pp.LedgerEffect.CreditRole, Side: "credit", Ledger: "GL", ForeachPath: foreachPath, FromContextPath: fromContextPath},
		},
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseMapping splits a PackLedgerEffect.Mapping string ("" |
// "foreach:<path>" | "from_context:<path>") into the two LineMapping
// fields it feeds.
func parseMapping(mapping string) (foreachPath, fromContextPath string) {
	const foreachPrefix = "foreach:"
	const fromContextPrefix = "from_context:"
	switch {
	case len(mapping) > len(foreachPrefix) && mapping[:len(foreachPrefix)] == foreachPrefix:
		return mapping[len(foreachPrefix):], ""
	case len(mapping) > len(fromContextPrefix) && mapping[:len(fromContextPrefix)] == fromContextPrefix:
		return "", mapping[len(fromContextPrefix):]
	default:
		return "", ""
	}
}

// ImportMappingLookup adapts a loaded config.Pack into the
// ingestion/service.MappingLookup function the ImportService needs,
// searching by name across every mapping the pack declares.
func ImportMappingLookup(pack *config.Pack) func(name string) (*config.PackImportMapping, bool) {
	byName := make(map[string]*config.PackImportMapping)
	if pack != nil {
		for i := range pack.ImportMappings {
			m := pack.ImportMappings[i]
			byName[m.Name] = &m
		}
	}
	return func(name string) (*config.PackImportMapping, bool) {
		m, ok := byName[name]
		return m, ok
	}
}

// Assemble builds every registry and the coordinator they feed, wired
// against store. Callers layer storage-specific transaction seams
// (Coordinator.RunInTx, PromotionService.RunInTx/WithSavepoint) onto the
// result afterward — Assemble itself is storage-agnostic.
func Assemble(pack *config.Pack, store storage.Store, now time.Time) (*Registries, *coordinator.Coordinator, error) {
	schemas, err := BuildSchemaRegistry()
	if err != nil {
		return nil, nil, err
	}
	ledgers := BuildLedgerRegistry(pack)
	valuations, err := BuildValuationRegistry()
	if err != nil {
		return nil, nil, err
	}
	selector, modules, err := BuildPolicyRegistries(pack, schemas, ledgers, now)
	if err != nil {
		return nil, nil, err
	}

	regs := &Registries{
		Schemas: schemas,
		Ledgers: ledgers,
		Valuations: valuations,
		Selector: selector,
		Modules: modules,
	}
	coord := coordinator.New(schemas, selector, ledgers, valuations, store)
	return regs, coord, nil
}
