// Package intent expands a matched policy's line mappings into an
// AccountingIntent, grouped by ledger: one foreach/from_context expansion
// pass and one amount extraction per generated line. It does not check
// that a ledger's lines balance; the journal writer does.
package intent

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerforge/kernel/internal/domain"
	"github.com/ledgerforge/kernel/internal/money"
	"github.com/ledgerforge/kernel/internal/payload"
	"github.com/ledgerforge/kernel/internal/policy"
)

// amountKeys is the probing order used when a foreach item is an object:
// the first key present wins.
var amountKeys = []string{"amount", "total", "line_amount", "value", "extended_cost"}

// Build expands a policy's ledger effects against an event payload into an
// AccountingIntent, one ledger at a time: if LineMappings scoped to a
// ledger effect exist, they expand as usual; otherwise the effect's
// debit_role/credit_role auto-generate the two lines for the full amount.
// currency is the event-level currency every generated line carries.
func Build(eventID uuid.UUID, profileHash string, p *policy.AccountingPolicy, payloadTree map[string]any, defaultAmount decimal.Decimal, currency string) (*domain.AccountingIntent, error) {
	linesByLedger := make(map[string][]domain.IntentLine)

	mappingsByLedger := make(map[string][]policy.LineMapping)
	for _, lm := range p.LineMappings {
		mappingsByLedger[lm.Ledger] = append(mappingsByLedger[lm.Ledger], lm)
	}

	for _, effect := range p.LedgerEffects {
		mappings := mappingsByLedger[effect.LedgerID]
		if len(mappings) == 0 {
			linesByLedger[effect.LedgerID] = append(linesByLedger[effect.LedgerID],
				autoGenerateLines(effect, defaultAmount, currency)...)
			continue
		}
		for _, lm := range mappings {
			lines, err := buildLinesForMapping(lm, payloadTree, defaultAmount, currency)
			if err != nil {
				return nil, fmt.Errorf("intent: line mapping for role %q: %w", lm.Role, err)
			}
			linesByLedger[effect.LedgerID] = append(linesByLedger[effect.LedgerID], lines...)
		}
	}

	return &domain.AccountingIntent{
		EventID: eventID,
		PolicyName: p.Name,
		PolicyHash: profileHash,
		LinesByLedger: linesByLedger,
	}, nil
}

// autoGenerateLines builds the default two-line expansion of one ledger
// effect — debit_role for the full amount, credit_role for the full
// amount — used when a policy declares a ledger effect but no explicit
// line mapping for that ledger.
func autoGenerateLines(effect policy.LedgerEffect, amount decimal.Decimal, currency string) []domain.IntentLine {
	return []domain.IntentLine{
		{Role: effect.DebitRole, Side: "debit", Ledger: effect.LedgerID, Amount: newAmount(amount, currency)},
		{Role: effect.CreditRole, Side: "credit", Ledger: effect.LedgerID, Amount: newAmount(amount, currency)},
	}
}

// BuildFromPayloadLines builds an AccountingIntent directly from
// payload.lines, bypassing per-event line-mapping expansion entirely: used
// for imported historical journals where each line already carries its
// own account_key and debit-or-credit amount rather than being derived
// from a single event amount. resolveRole is the caller-supplied lookup
// (the ledger registry's role binding, reversed) from account_key to the
// role the journal writer resolves back to an account_code at posting
// time. Lines with both debit and credit non-zero, or neither, are
// rejected.
func BuildFromPayloadLines(eventID uuid.UUID, policyName string, payloadTree map[string]any, ledgerID, currency string, resolveRole func(accountKey string) (string, bool)) (*domain.AccountingIntent, error) {
	rawLines, ok := payload.GetCollection(payloadTree, "lines")
	if !ok || len(rawLines) == 0 {
		return nil, fmt.Errorf("intent: payload.lines is required and must be non-empty")
	}

	lines := make([]domain.IntentLine, 0, len(rawLines))
	for i, item := range rawLines {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("intent: payload.lines[%d] is not an object", i)
		}
		accountKey, _ := m["account_key"].(string)
		if accountKey == "" {
			return nil, fmt.Errorf("intent: payload.lines[%d] missing account_key", i)
		}
		debit, err := optionalDecimalField(m, "debit")
		if err != nil {
			return nil, fmt.Errorf("intent: payload.lines[%d] debit: %w", i, err)
		}
		credit, err := optionalDecimalField(m, "credit")
		if err != nil {
			return nil, fmt.Errorf("intent: payload.lines[%d] credit: %w", i, err)
		}
		if !debit.IsZero() && !credit.IsZero() {
			return nil, fmt.Errorf("intent: payload.lines[%d] has both debit and credit non-zero", i)
		}

		var side string
		var value decimal.Decimal
		switch {
		case !debit.IsZero():
			side, value = "debit", debit
		case !credit.IsZero():
			side, value = "credit", credit
		default:
			return nil, fmt.Errorf("intent: payload.lines[%d] has neither debit nor credit", i)
		}

		role, ok := resolveRole(accountKey)
		if !ok {
			return nil, fmt.Errorf("intent: payload.lines[%d] account_key %q has no resolvable role", i, accountKey)
		}
		lines = append(lines, domain.IntentLine{Role: role, Side: side, Ledger: ledgerID, Amount: newAmount(value, currency)})
	}

	return &domain.AccountingIntent{
		EventID: eventID,
		PolicyName: policyName,
		LinesByLedger: map[string][]domain.IntentLine{ledgerID: lines},
	}, nil
}

func optionalDecimalField(m map[string]any, key string) (decimal.Decimal, error) {
	v, present := m[key]
	if !present || v == nil {
		return decimal.Zero, nil
	}
	return toDecimal(v)
}

func buildLinesForMapping(lm policy.LineMapping, tree map[string]any, defaultAmount decimal.Decimal, currency string) ([]domain.IntentLine, error) {
	switch {
	case lm.ForeachPath != "":
		return buildForeachLines(lm, tree, defaultAmount, currency)
	case lm.FromContextPath != "":
		return buildFromContextLines(lm, tree, currency)
	default:
		return []domain.IntentLine{{
			Role: lm.Role, Side: lm.Side, Ledger: lm.Ledger,
			Amount: newAmount(defaultAmount, currency),
		}}, nil
	}
}

// buildForeachLines expands one line per item in the collection at
// ForeachPath. An empty (or missing) collection still produces ONE
// default-amount line — it is never zero lines.
func buildForeachLines(lm policy.LineMapping, tree map[string]any, defaultAmount decimal.Decimal, currency string) ([]domain.IntentLine, error) {
	items, ok := payload.GetCollection(tree, lm.ForeachPath)
	if !ok || len(items) == 0 {
		return []domain.IntentLine{{
			Role: lm.Role, Side: lm.Side, Ledger: lm.Ledger,
			Amount: newAmount(defaultAmount, currency),
		}}, nil
	}

	lines := make([]domain.IntentLine, 0, len(items))
	for _, item := range items {
		amount, err := extractAmount(item, defaultAmount)
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.IntentLine{
			Role: lm.Role, Side: lm.Side, Ledger: lm.Ledger,
			Amount: newAmount(amount, currency),
		})
	}
	return lines, nil
}

// buildFromContextLines reads a signed decimal at FromContextPath: positive
// posts to the declared side with that value; negative posts to the
// opposite side with the absolute value; zero produces no line at all.
func buildFromContextLines(lm policy.LineMapping, tree map[string]any, currency string) ([]domain.IntentLine, error) {
	v, ok := payload.Get(tree, lm.FromContextPath)
	if !ok {
		return nil, fmt.Errorf("from_context path %q not present in payload", lm.FromContextPath)
	}
	amount, err := toDecimal(v)
	if err != nil {
		return nil, err
	}
	if amount.IsZero() {
		return nil, nil
	}
	side := lm.Side
	value := amount
	if amount.Sign() < 0 {
		side = oppositeSide(lm.Side)
		value = amount.Abs()
	}
	return []domain.IntentLine{{
		Role: lm.Role, Side: side, Ledger: lm.Ledger,
		Amount: newAmount(value, currency),
	}}, nil
}

func oppositeSide(side string) string {
	if side == "debit" {
		return "credit"
	}
	return "debit"
}

// extractAmount probes a foreach item for one of amountKeys in order; if
// the item itself is numeric (not an object), that value is used; failing
// both, defaultAmount applies.
func extractAmount(item any, defaultAmount decimal.Decimal) (decimal.Decimal, error) {
	if m, ok := item.(map[string]any); ok {
		for _, key := range amountKeys {
			if v, present := m[key]; present {
				return toDecimal(v)
			}
		}
		return defaultAmount, nil
	}
	if d, err := toDecimal(item); err == nil {
		return d, nil
	}
	return defaultAmount, nil
}

func newAmount(value decimal.Decimal, currency string) money.Amount {
	return money.Amount{Value: value, Currency: currency}
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch val := v.(type) {
	case decimal.Decimal:
		return val, nil
	case string:
		return decimal.NewFromString(val)
	case int:
		return decimal.NewFromInt(int64(val)), nil
	case int64:
		return decimal.NewFromInt(val), nil
	case float64:
		return decimal.NewFromFloat(val), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("cannot coerce %T to decimal", v)
	}
}
