package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewRejectsTooManyFractionalDigits(t *testing.T) {
	if _, err := New("1.1234567890", "USD"); err == nil {
		t.Fatalf("expected error for 10 fractional digits, got none")
	}
	if _, err := New("1.123456789", "USD"); err != nil {
		t.Fatalf("expected 9 fractional digits to be accepted, got %v", err)
	}
}

func TestNewRejectsInvalidDecimal(t *testing.T) {
	if _, err := New("not-a-number", "USD"); err == nil {
		t.Fatalf("expected error for invalid decimal string")
	}
}

func TestAddRequiresSameCurrency(t *testing.T) {
	a, _ := New("10.00", "USD")
	b, _ := New("5.00", "USD")
	got := a.Add(b)
	want, _ := New("15.00", "USD")
	if !got.Value.Equal(want.Value) || got.Currency != "USD" {
		t.Fatalf("expected 15.00 USD, got %s", got)
	}
}

func TestAddPanicsOnCurrencyMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on currency mismatch")
		}
	}()
	a, _ := New("10.00", "USD")
	b, _ := New("10.00", "EUR")
	a.Add(b)
}

func TestSubPanicsOnCurrencyMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on currency mismatch")
		}
	}()
	a, _ := New("10.00", "USD")
	b, _ := New("10.00", "EUR")
	a.Sub(b)
}

func TestSignAndAbsAndNeg(t *testing.T) {
	a, _ := New("-5.00", "USD")
	if a.Sign() != -1 {
		t.Errorf("expected sign -1, got %d", a.Sign())
	}
	if !a.Abs().Value.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("expected abs 5.00, got %s", a.Abs().Value)
	}
	if !a.Neg().Value.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("expected neg 5.00, got %s", a.Neg().Value)
	}
}

func TestIsZero(t *testing.T) {
	if !Zero("USD").IsZero() {
		t.Fatalf("expected Zero() to be zero")
	}
	a, _ := New("0.00", "USD")
	if !a.IsZero() {
		t.Fatalf("expected 0.00 to be zero")
	}
}

func TestSameCurrency(t *testing.T) {
	a, _ := New("1.00", "USD")
	b, _ := New("2.00", "USD")
	c, _ := New("2.00", "EUR")
	if !a.SameCurrency(b) {
		t.Errorf("expected same currency")
	}
	if a.SameCurrency(c) {
		t.Errorf("expected different currency")
	}
}

func TestWithinTolerance(t *testing.T) {
	a, _ := New("100.00", "USD")
	b, _ := New("100.001", "USD")
	if a.WithinTolerance(b, decimal.RequireFromString("0.0001")) {
		t.Fatalf("expected difference 0.001 to exceed tolerance 0.0001")
	}
	if !a.WithinTolerance(b, decimal.RequireFromString("0.01")) {
		t.Fatalf("expected difference 0.001 to be within tolerance 0.01")
	}
	c, _ := New("100.00", "EUR")
	if a.WithinTolerance(c, decimal.RequireFromString("1000")) {
		t.Fatalf("expected cross-currency amounts to never be within tolerance")
	}
}

func TestStringRendersValueAndCurrency(t *testing.T) {
	a, _ := New("42.50", "USD")
	if got, want := a.String(), "42.50 USD"; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
