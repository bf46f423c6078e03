package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseEnvironmentAcceptsKnownValues(t *testing.T) {
	for _, s := range []string{"development", "testing", "production"} {
		env, ok := parseEnvironment(s)
		if !ok || string(env) != s {
			t.Errorf("expected %q to parse, got %q/%v", s, env, ok)
		}
	}
}

func TestParseEnvironmentRejectsUnknownValue(t *testing.T) {
	if _, ok := parseEnvironment("staging"); ok {
		t.Fatalf("expected an unrecognized environment to be rejected")
	}
}

func TestGetEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("KERNEL_TEST_UNSET_VAR", "")
	if got := getEnv("KERNEL_TEST_UNSET_VAR", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("KERNEL_TEST_SET_VAR", "explicit")
	if got := getEnv("KERNEL_TEST_SET_VAR", "fallback"); got != "explicit" {
		t.Fatalf("expected explicit value, got %q", got)
	}
}

func TestGetIntEnvFallsBackOnMissingOrInvalid(t *testing.T) {
	t.Setenv("KERNEL_TEST_INT", "")
	if got := getIntEnv("KERNEL_TEST_INT", 42); got != 42 {
		t.Fatalf("expected default 42, got %d", got)
	}
	t.Setenv("KERNEL_TEST_INT", "not-a-number")
	if got := getIntEnv("KERNEL_TEST_INT", 42); got != 42 {
		t.Fatalf("expected default 42 on invalid input, got %d", got)
	}
	t.Setenv("KERNEL_TEST_INT", "7")
	if got := getIntEnv("KERNEL_TEST_INT", 42); got != 7 {
		t.Fatalf("expected parsed value 7, got %d", got)
	}
}

func TestGetBoolEnvFallsBackOnMissingOrInvalid(t *testing.T) {
	t.Setenv("KERNEL_TEST_BOOL", "")
	if got := getBoolEnv("KERNEL_TEST_BOOL", true); got != true {
		t.Fatalf("expected default true, got %v", got)
	}
	t.Setenv("KERNEL_TEST_BOOL", "nonsense")
	if got := getBoolEnv("KERNEL_TEST_BOOL", true); got != true {
		t.Fatalf("expected default true on invalid input, got %v", got)
	}
	t.Setenv("KERNEL_TEST_BOOL", "false")
	if got := getBoolEnv("KERNEL_TEST_BOOL", true); got != false {
		t.Fatalf("expected parsed false, got %v", got)
	}
}

func TestValidateRejectsProductionWithTestModeOrNoDatabaseURL(t *testing.T) {
	cfg := &Config{Env: Production, TestMode: true, DatabaseURL: "postgres://x"}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected production + test_mode to be rejected")
	}
	cfg = &Config{Env: Production, TestMode: false, DatabaseURL: ""}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected production with no database_url to be rejected")
	}
	cfg = &Config{Env: Production, TestMode: false, DatabaseURL: "postgres://x"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a well-formed production config to validate, got %v", err)
	}
}

func TestValidateRejectsOutOfRangeTraceHTTPPort(t *testing.T) {
	cfg := &Config{Env: Development, TraceHTTPPort: 80}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected a privileged port below 1024 to be rejected")
	}
	cfg = &Config{Env: Development, TraceHTTPPort: 0}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected a zero (disabled) port to be allowed, got %v", err)
	}
}

func TestEnvironmentPredicates(t *testing.T) {
	dev := &Config{Env: Development}
	if !dev.IsDevelopment() || dev.IsTesting() || dev.IsProduction() {
		t.Fatalf("unexpected predicate results for development: %+v", dev)
	}
	prod := &Config{Env: Production}
	if !prod.IsProduction() || prod.IsDevelopment() {
		t.Fatalf("unexpected predicate results for production: %+v", prod)
	}
}

func TestLoadPackParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pack.yaml")
	yaml := `
policies:
  - name: ap.invoice_received.standard
    module: accounts_payable
    event_type: ap.invoice_received
    priority: 0
    mode: NORMAL
    ledger_effect:
      debit_role: Expense
      credit_role: AccountsPayable
ledger_roles:
  - economic_type: Expense
    debit_role: Expense
    credit_role: AccountsPayable
    dimension_requirements: [cost_center]
import_mappings:
  - name: ap_invoices_csv
    version: 1
    entity_type: ap_invoice
    source_format: csv
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	pack, err := LoadPack(path)
	if err != nil {
		t.Fatalf("LoadPack: %v", err)
	}
	if len(pack.Policies) != 1 || pack.Policies[0].Name != "ap.invoice_received.standard" {
		t.Fatalf("unexpected policies: %+v", pack.Policies)
	}
	if len(pack.LedgerRoles) != 1 || pack.LedgerRoles[0].DebitRole != "Expense" {
		t.Fatalf("unexpected ledger roles: %+v", pack.LedgerRoles)
	}
	if len(pack.ImportMappings) != 1 || pack.ImportMappings[0].SourceFormat != "csv" {
		t.Fatalf("unexpected import mappings: %+v", pack.ImportMappings)
	}
}

func TestLoadPackFailsOnMissingFile(t *testing.T) {
	if _, err := LoadPack(filepath.Join(t.TempDir(), "does-not-exist.yaml")); err == nil {
		t.Fatalf("expected an error for a missing pack file")
	}
}
