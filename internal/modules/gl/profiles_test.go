package gl

import (
	"testing"
	"time"

	"github.com/ledgerforge/kernel/internal/policy"
)

func TestProfilesRegisterCleanlyAndAreSelectable(t *testing.T) {
	selector := policy.NewSelector()
	registry := policy.NewModuleRegistry(selector)

	if err := registry.RegisterModule(ModuleName, Profiles()); err != nil {
		t.Fatalf("register gl profiles: %v", err)
	}

	asOf := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := selector.Select("gl.period_closed", map[string]any{"period_type": "FISCAL_YEAR"}, asOf, "*"); err != nil {
		t.Fatalf("expected year-end close to be selectable: %v", err)
	}
	if _, err := selector.Select("gl.fx_revaluation", map[string]any{"direction": "GAIN"}, asOf, "*"); err != nil {
		t.Fatalf("expected fx revaluation to be selectable: %v", err)
	}

	names := registry.ListByModule(ModuleName)
	if len(names) != len(Profiles()) {
		t.Fatalf("expected %d tracked profiles, got %d", len(Profiles()), len(names))
	}
}

func TestProfilesAreStructurallyValid(t *testing.T) {
	for _, p := range Profiles() {
		if err := p.Validate(); err != nil {
			t.Fatalf("profile %s failed validation: %v", p.Name, err)
		}
	}
}
