// Package config provides environment-aware configuration management,
// generalized from the env-var pattern to also load the compiled
// configuration pack (policy profiles, ledger requirements, import
// mapping definitions) from a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Testing Environment = "testing"
	Production Environment = "production"
)

func parseEnvironment(s string) (Environment, bool) {
	switch Environment(s) {
	case Development, Testing, Production:
		return Environment(s), true
	default:
		return "", false
	}
}

// Config holds all application configuration.
type Config struct {
	Env Environment

	// Storage
	DatabaseURL string
	DBMaxConnections int
	DBIdleTimeout time.Duration

	// Pack
	ConfigPackPath string

	// Logging
	LogLevel string
	LogFormat string
	LogOutput string

	// Trace HTTP surface
	TraceHTTPPort int

	// Metrics
	MetricsEnabled bool
	MetricsPort int

	// Balance check
	BalanceTolerance string // decimal string, per-currency default

	// Features
	TestMode bool
}

// Load loads configuration based on the KERNEL_ENV environment variable,
// an optional env-file, and (if set) a YAML configuration pack.
func Load() (*Config, error) {
	envStr := os.Getenv("KERNEL_ENV")
	if envStr == "" {
		envStr = string(Development)
	}
	env, ok := parseEnvironment(envStr)
	if !ok {
		return nil, fmt.Errorf("invalid KERNEL_ENV: %s (must be development, testing, or production)", envStr)
	}

	configFile := filepath.Join("config", fmt.Sprintf("%s.env", env))
	if err := godotenv.Load(configFile); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Warning: Could not load %s: %v\n", configFile, err)
		}
	}

	cfg := &Config{Env: env}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	c.DatabaseURL = getEnv("DATABASE_URL", "")
	c.DBMaxConnections = getIntEnv("DB_MAX_CONNECTIONS", 20)
	idle := getEnv("DB_IDLE_TIMEOUT", "5m")
	var err error
	c.DBIdleTimeout, err = time.ParseDuration(idle)
	if err != nil {
		return fmt.Errorf("invalid DB_IDLE_TIMEOUT: %w", err)
	}

	c.ConfigPackPath = getEnv("KERNEL_CONFIG_PACK", "")

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "text")
	c.LogOutput = getEnv("LOG_OUTPUT", "stdout")

	c.TraceHTTPPort = getIntEnv("TRACE_HTTP_PORT", 8090)

	c.MetricsEnabled = getBoolEnv("METRICS_ENABLED", c.Env == Production)
	c.MetricsPort = getIntEnv("METRICS_PORT", 9090)

	c.BalanceTolerance = getEnv("BALANCE_TOLERANCE", "0.01")

	c.TestMode = getBoolEnv("TEST_MODE", false)
	return nil
}

func (c *Config) IsDevelopment() bool { return c.Env == Development }
func (c *Config) IsTesting() bool { return c.Env == Testing }
func (c *Config) IsProduction() bool { return c.Env == Production }

// Validate applies production-safety checks.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.TestMode {
			return fmt.Errorf("TEST_MODE must be false in production")
		}
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required in production")
		}
	}
	if c.TraceHTTPPort != 0 && (c.TraceHTTPPort < 1024 || c.TraceHTTPPort > 65535) {
		return fmt.Errorf("invalid TRACE_HTTP_PORT: %d", c.TraceHTTPPort)
	}
	return nil
}

// Pack is the compiled configuration pack: policy profiles, ledger
// requirements, and import mapping definitions, all hand-authored YAML
// loaded once at startup and never mutated.
type Pack struct {
	Policies []PackPolicy `yaml:"policies"`
	LedgerRoles []PackLedgerRole `yaml:"ledger_roles"`
	ImportMappings []PackImportMapping `yaml:"import_mappings"`
}

// PackPolicy is the YAML-serializable shape of an AccountingPolicy,
// decoded by internal/policy into its runtime representation.
type PackPolicy struct {
	Name string `yaml:"name"`
	Module string `yaml:"module"`
	EventType string `yaml:"event_type"`
	Scope map[string]string `yaml:"scope"`
	Priority int `yaml:"priority"`
	Mode string `yaml:"mode"`
	Guards []PackGuard `yaml:"guards"`
	LedgerEffect PackLedgerEffect `yaml:"ledger_effect"`
}

// PackGuard is one guard condition in a policy's YAML definition.
type PackGuard struct {
	Expression string `yaml:"expression"`
	Action string `yaml:"action"` // REJECT | BLOCK
	Message string `yaml:"message"`
}

// PackLedgerEffect names the roles and line mapping strategy for a policy.
type PackLedgerEffect struct {
	DebitRole string `yaml:"debit_role"`
	CreditRole string `yaml:"credit_role"`
	Mapping string `yaml:"mapping"` // "" (plain) | "foreach:<path>" | "from_context:<path>"
}

// PackLedgerRole binds an economic type to its default debit/credit roles.
type PackLedgerRole struct {
	EconomicType string `yaml:"economic_type"`
	DebitRole string `yaml:"debit_role"`
	CreditRole string `yaml:"credit_role"`
	DimensionRequirements []string `yaml:"dimension_requirements"`
}

// PackImportMapping is one source-format field mapping definition.
type PackImportMapping struct {
	Name string `yaml:"name"`
	Version int `yaml:"version"`
	EntityType string `yaml:"entity_type"`
	SourceFormat string `yaml:"source_format"` // csv | json | xlsx
	SourceOptions map[string]any `yaml:"source_options"`
	FieldMappings []PackFieldMapping `yaml:"field_mappings"`
	Validations []PackImportValidation `yaml:"validations"`
	DependencyTier int `yaml:"dependency_tier"`
}

// PackImportValidation is one cross-field or cross-record validation rule
// attached to an import mapping (e.g. batch-scoped uniqueness).
type PackImportValidation struct {
	RuleType string `yaml:"rule_type"`
	Fields []string `yaml:"fields"`
	Scope string `yaml:"scope"` // "record" | "batch"
	ReferenceEntity string `yaml:"reference_entity"`
	Expression string `yaml:"expression"`
	Message string `yaml:"message"`
}

// PackFieldMapping is one field's mapping rule.
type PackFieldMapping struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	FieldType string `yaml:"field_type"`
	Required bool `yaml:"required"`
	Transform string `yaml:"transform"`
	Default any `yaml:"default"`
	Format string `yaml:"format"`
}

// LoadPack reads and parses a YAML configuration pack from path.
func LoadPack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read pack %s: %w", path, err)
	}
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("config: parse pack %s: %w", path, err)
	}
	return &pack, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
