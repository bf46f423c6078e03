// Package money wraps shopspring/decimal with the currency and
// precision rules the kernel enforces on every amount it touches.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxTotalDigits and MaxFractionalDigits bound decimal precision accepted
// anywhere an amount crosses into the kernel (event payload, intent line,
// journal line).
const (
	MaxTotalDigits = 38
	MaxFractionalDigits = 9
)

// Amount is a currency-tagged decimal value. Two Amounts only compare or
// combine when their Currency matches; callers that need cross-currency
// arithmetic must go through a ValuationResolver first.
type Amount struct {
	Value decimal.Decimal
	Currency string
}

// Zero returns the zero amount in the given currency.
func Zero(currency string) Amount {
	return Amount{Value: decimal.Zero, Currency: currency}
}

// New builds an Amount from a decimal string, rejecting values that exceed
// the kernel's total/fractional digit limits.
func New(value, currency string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("money: invalid decimal %q: %w", value, err)
	}
	a := Amount{Value: d, Currency: currency}
	if err := a.CheckPrecision(); err != nil {
		return Amount{}, err
	}
	return a, nil
}

// CheckPrecision validates total and fractional digit counts.
func (a Amount) CheckPrecision() error {
	exp := -a.Value.Exponent()
	if exp > MaxFractionalDigits {
		return fmt.Errorf("money: %s has %d fractional digits, max %d", a.Value.String(), exp, MaxFractionalDigits)
	}
	digits := len(a.Value.Coefficient().String())
	if digits > MaxTotalDigits {
		return fmt.Errorf("money: %s has %d total digits, max %d", a.Value.String(), digits, MaxTotalDigits)
	}
	return nil
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.Value.IsZero() }

// Sign returns -1, 0, or 1.
func (a Amount) Sign() int { return a.Value.Sign() }

// Abs returns the absolute value, preserving currency.
func (a Amount) Abs() Amount { return Amount{Value: a.Value.Abs(), Currency: a.Currency} }

// Neg returns the negated value, preserving currency.
func (a Amount) Neg() Amount { return Amount{Value: a.Value.Neg(), Currency: a.Currency} }

// Add adds two same-currency amounts. Panics on currency mismatch — callers
// must check SameCurrency first; this is an invariant violation, not a
// business condition.
func (a Amount) Add(b Amount) Amount {
	if a.Currency != b.Currency {
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", a.Currency, b.Currency))
	}
	return Amount{Value: a.Value.Add(b.Value), Currency: a.Currency}
}

// Sub subtracts b from a. Same currency-mismatch rule as Add.
func (a Amount) Sub(b Amount) Amount {
	if a.Currency != b.Currency {
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", a.Currency, b.Currency))
	}
	return Amount{Value: a.Value.Sub(b.Value), Currency: a.Currency}
}

// SameCurrency reports whether a and b share a currency code.
func (a Amount) SameCurrency(b Amount) bool { return a.Currency == b.Currency }

// String renders "<value> <currency>".
func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Value.String(), a.Currency)
}

// WithinTolerance reports whether |a-b| <= tolerance, for same-currency
// amounts. Used by the journal writer's balance check.
func (a Amount) WithinTolerance(b Amount, tolerance decimal.Decimal) bool {
	if a.Currency != b.Currency {
		return false
	}
	diff := a.Value.Sub(b.Value).Abs()
	return diff.LessThanOrEqual(tolerance)
}
