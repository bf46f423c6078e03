// Package valuation is the registry of named, versioned, pre-registered
// pure valuation functions. No inline expressions: every valuation
// is a Go function registered at startup and looked up by model_id.
package valuation

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/payload"
)

// Compute derives a decimal value and its currency from a payload tree.
type Compute func(tree map[string]any) (value decimal.Decimal, currency string, err error)

// Model is one registered valuation model.
type Model struct {
	ModelID string
	Version int
	CurrencyField string
	UsesFields []string
	Compute Compute
}

func (m Model) key() string { return fmt.Sprintf("%s:v%d", m.ModelID, m.Version) }

// Result is the outcome of resolving a valuation.
type Result struct {
	Success bool
	Value decimal.Decimal
	Currency string
	ModelID string
	ModelVersion int
	Error string
}

// Registry holds valuation models, populated once at startup.
type Registry struct {
	mu sync.RWMutex
	models map[string]Model
	latest map[string]Model
}

// NewRegistry builds an empty valuation registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]Model), latest: make(map[string]Model)}
}

// Register adds a valuation model.
func (r *Registry) Register(m Model) error {
	if m.ModelID == "" {
		return fmt.Errorf("valuation: model_id is required")
	}
	if m.Version < 1 {
		return fmt.Errorf("valuation: model %s version must be >= 1", m.ModelID)
	}
	if m.Compute == nil {
		return fmt.Errorf("valuation: model %s missing compute function", m.ModelID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.models[m.key()]; exists {
		return fmt.Errorf("valuation: model %s already registered", m.key())
	}
	r.models[m.key()] = m
	if cur, ok := r.latest[m.ModelID]; !ok || m.Version > cur.Version {
		r.latest[m.ModelID] = m
	}
	return nil
}

// Resolve runs the named model (exact version, or latest if version is 0)
// against a payload tree.
func (r *Registry) Resolve(modelID string, tree map[string]any, version int) Result {
	r.mu.RLock()
	var m Model
	var ok bool
	if version > 0 {
		m, ok = r.models[fmt.Sprintf("%s:v%d", modelID, version)]
	} else {
		m, ok = r.latest[modelID]
		version = m.Version
	}
	r.mu.RUnlock()

	if !ok {
		return Result{Success: false, ModelID: modelID, ModelVersion: version, Error: fmt.Sprintf("unknown valuation model %s", modelID)}
	}

	if m.CurrencyField != "" {
		if _, found := payload.Get(tree, m.CurrencyField); !found {
			return Result{Success: false, ModelID: modelID, ModelVersion: m.Version, Error: "missing currency field: " + m.CurrencyField}
		}
	}

	value, currency, err := func() (d decimal.Decimal, c string, e error) {
		defer func() {
			if r := recover(); r != nil {
				e = fmt.Errorf("valuation model %s panicked: %v", modelID, r)
			}
		}()
		return m.Compute(tree)
	}()
	if err != nil {
		return Result{Success: false, ModelID: modelID, ModelVersion: m.Version, Error: err.Error()}
	}
	if currency == "" {
		return Result{Success: false, ModelID: modelID, ModelVersion: m.Version, Error: "valuation produced no currency"}
	}

	return Result{Success: true, Value: value, Currency: currency, ModelID: modelID, ModelVersion: m.Version}
}

// StandardModels returns the kernel's built-in valuation models:
// standard_receipt_v1 (quantity × unit_price) and fixed_amount_v1
// (payload.amount).
func StandardModels() []Model {
	return []Model{
		{
			ModelID: "standard_receipt_v1", Version: 1, CurrencyField: "currency",
			UsesFields: []string{"quantity", "unit_price", "currency"},
			Compute: func(tree map[string]any) (decimal.Decimal, string, error) {
				qty, ok := decimalField(tree, "quantity")
				if !ok {
					return decimal.Decimal{}, "", fmt.Errorf("missing or invalid quantity")
				}
				price, ok := decimalField(tree, "unit_price")
				if !ok {
					return decimal.Decimal{}, "", fmt.Errorf("missing or invalid unit_price")
				}
				currency, _ := payload.Get(tree, "currency")
				cur, _ := currency.(string)
				return qty.Mul(price), cur, nil
			},
		},
		{
			ModelID: "fixed_amount_v1", Version: 1, CurrencyField: "currency",
			UsesFields: []string{"amount", "currency"},
			Compute: func(tree map[string]any) (decimal.Decimal, string, error) {
				amount, ok := decimalField(tree, "amount")
				if !ok {
					return decimal.Decimal{}, "", fmt.Errorf("missing or invalid amount")
				}
				currency, _ := payload.Get(tree, "currency")
				cur, _ := currency.(string)
				return amount, cur, nil
			},
		},
	}
}

func decimalField(tree map[string]any, path string) (decimal.Decimal, bool) {
	v, found := payload.Get(tree, path)
	if !found {
		return decimal.Decimal{}, false
	}
	switch val := v.(type) {
	case decimal.Decimal:
		return val, true
	case string:
		d, err := decimal.NewFromString(val)
		return d, err == nil
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case float64:
		return decimal.NewFromFloat(val), true
	default:
		return decimal.Decimal{}, false
	}
}
