package policy

import (
	"fmt"
	"sync"
)

// ModuleAlreadyRegisteredError is returned when a profile name has already
// been claimed by a different module — no shadowing or last-writer-wins.
type ModuleAlreadyRegisteredError struct {
	ProfileName    string
	ExistingModule string
}

func (e *ModuleAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("profile %q already registered by module %q", e.ProfileName, e.ExistingModule)
}

// ModuleRegistry binds module name -> the set of profile names that module
// registered, so a module's policies register and roll back together
// instead of landing in one flat, unattributed pool. A plain Selector has
// no notion of "which module owns this profile"; this is the layer that
// adds it.
type ModuleRegistry struct {
	mu       sync.RWMutex
	Selector *Selector
	byName   map[string]string   // profile name -> module name
	byModule map[string][]string // module name -> profile names
}

// NewModuleRegistry builds a ModuleRegistry bound to the given selector.
func NewModuleRegistry(selector *Selector) *ModuleRegistry {
	return &ModuleRegistry{
		Selector: selector,
		byName:   make(map[string]string),
		byModule: make(map[string][]string),
	}
}

// RegisterModule registers every policy in profiles against the selector,
// attributed to moduleName. If any policy fails validation, overlap
// checking, or a profile-name collision with a previously registered
// module, every policy already registered by this call is rolled back and
// the whole module's registration fails — partial registration never
// becomes visible to the selector.
func (r *ModuleRegistry) RegisterModule(moduleName string, profiles []*AccountingPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	registered := make([]*AccountingPolicy, 0, len(profiles))
	rollback := func() {
		for _, p := range registered {
			r.Selector.deregister(p)
			delete(r.byName, p.Name)
		}
	}

	for _, p := range profiles {
		if owner, exists := r.byName[p.Name]; exists && owner != moduleName {
			rollback()
			return &ModuleAlreadyRegisteredError{ProfileName: p.Name, ExistingModule: owner}
		}
		if err := r.Selector.Register(p); err != nil {
			rollback()
			return fmt.Errorf("module %s: %w", moduleName, err)
		}
		registered = append(registered, p)
		r.byName[p.Name] = moduleName
	}

	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	r.byModule[moduleName] = append(r.byModule[moduleName], names...)
	return nil
}

// ListByModule returns the profile names one module has registered.
func (r *ModuleRegistry) ListByModule(moduleName string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.byModule[moduleName]))
	copy(out, r.byModule[moduleName])
	return out
}

// OwnerOf reports which module registered a given profile name, if any.
func (r *ModuleRegistry) OwnerOf(profileName string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.byName[profileName]
	return owner, ok
}

// deregister removes a policy from the selector's lookup maps. Only
// reachable from ModuleRegistry's own rollback path — a Selector otherwise
// never un-registers a profile once live, matching the registries'
// "populated once, read-only thereafter" contract.
func (s *Selector) deregister(p *AccountingPolicy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byKey, p.ProfileKey())
	entries := s.byEvent[p.Trigger.EventType]
	for i, existing := range entries {
		if existing == p {
			s.byEvent[p.Trigger.EventType] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
}
