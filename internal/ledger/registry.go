// Package ledger is the role-resolution registry: for each (ledger,
// economic_type) pair it names the required debit/credit roles and any
// dimension requirements a posting line must carry.
package ledger

import "fmt"

// Requirements names the roles and dimensions a ledger requires for one
// economic type.
type Requirements struct {
	Ledger string
	EconomicType string
	DebitRole string
	CreditRole string
	DimensionRequirements []string
}

// Registry is the class-registry of ledger requirements, populated once at
// startup and read-only thereafter.
type Registry struct {
	byKey map[string]Requirements
	// accountCodes maps role -> account_code for the role resolver.
	accountCodes map[string]string
}

// NewRegistry builds an empty ledger registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Requirements), accountCodes: make(map[string]string)}
}

func key(ledger, economicType string) string { return ledger + "::" + economicType }

// Register adds one ledger's requirements for an economic type.
func (r *Registry) Register(req Requirements) error {
	if req.Ledger == "" || req.EconomicType == "" {
		return fmt.Errorf("ledger: Ledger and EconomicType are required")
	}
	if req.DebitRole == "" || req.CreditRole == "" {
		return fmt.Errorf("ledger: debit_role and credit_role are required for %s/%s", req.Ledger, req.EconomicType)
	}
	r.byKey[key(req.Ledger, req.EconomicType)] = req
	return nil
}

// BindAccountCode binds a role to the account code it resolves to. Roles
// not bound here are unresolvable.
func (r *Registry) BindAccountCode(role, accountCode string) {
	r.accountCodes[role] = accountCode
}

// ResolveAccountCode returns the account code a role resolves to.
func (r *Registry) ResolveAccountCode(role string) (string, bool) {
	code, ok := r.accountCodes[role]
	return code, ok
}

// RoleForAccountCode reverse-resolves an account code to the role bound to
// it: the caller-supplied lookup an imported historical journal line's
// account_key is resolved through before the journal writer resolves that
// role back to an account_code at posting time.
func (r *Registry) RoleForAccountCode(accountCode string) (string, bool) {
	for role, code := range r.accountCodes {
		if code == accountCode {
			return role, true
		}
	}
	return "", false
}

// GetRequiredRoles returns the debit/credit roles and dimension
// requirements for a (ledger, economic_type) pair.
func (r *Registry) GetRequiredRoles(ledger, economicType string) (Requirements, bool) {
	req, ok := r.byKey[key(ledger, economicType)]
	return req, ok
}

// DefaultRegistry seeds the registry with the default general-ledger role
// mappings — the concrete seed data a fresh deployment's config pack
// starts from.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	defaults := []Requirements{
		{Ledger: "GL", EconomicType: "InventoryIncrease", DebitRole: "InventoryAsset", CreditRole: "GRNI", DimensionRequirements: []string{"cost_center"}},
		{Ledger: "GL", EconomicType: "InventoryDecrease", DebitRole: "COGS", CreditRole: "InventoryAsset", DimensionRequirements: []string{"cost_center"}},
		{Ledger: "GL", EconomicType: "Revenue", DebitRole: "AccountsReceivable", CreditRole: "Revenue", DimensionRequirements: []string{"cost_center"}},
		{Ledger: "GL", EconomicType: "Expense", DebitRole: "Expense", CreditRole: "AccountsPayable", DimensionRequirements: []string{"cost_center"}},
		{Ledger: "GL", EconomicType: "Payment", DebitRole: "Cash", CreditRole: "AccountsPayable", DimensionRequirements: []string{"cost_center"}},
		{Ledger: "GL", EconomicType: "Receipt", DebitRole: "Cash", CreditRole: "AccountsReceivable", DimensionRequirements: []string{"cost_center"}},
	}
	for _, d := range defaults {
		_ = r.Register(d)
	}
	for role, code := range map[string]string{
		"InventoryAsset": "1300",
		"GRNI": "2100",
		"COGS": "5000",
		"AccountsReceivable": "1200",
		"Revenue": "4000",
		"Expense": "6000",
		"AccountsPayable": "2000",
		"Cash": "1000",
		"RoundingAccount": "9999",
	} {
		r.BindAccountCode(role, code)
	}
	return r
}
