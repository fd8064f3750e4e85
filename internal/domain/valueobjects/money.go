// Package valueobjects holds the immutable value types of the ledger domain.
package valueobjects

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// maxWholeDigits bounds amounts to what NUMERIC(19,4) can store.
const maxWholeDigits = 15

// maxScale is the number of fractional digits the ledger stores.
const maxScale = 4

var maxAbsAmount = decimal.New(1, maxWholeDigits)

// Money is an immutable amount in a single currency.
// Amounts travel as decimal strings on the wire and as NUMERIC(19,4) in the
// store; binary floats never touch them.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney parses a decimal string into Money.
// The value must fit NUMERIC(19,4): at most 4 fractional digits and an
// absolute value below 10^15.
func NewMoney(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	return NewMoneyFromDecimal(d, currency)
}

// NewMoneyFromDecimal wraps an already-parsed decimal, enforcing scale and
// range bounds.
func NewMoneyFromDecimal(d decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, fmt.Errorf("currency is required")
	}
	if d.Exponent() < -maxScale {
		// Reject rather than round: callers must not lose sub-cent precision silently.
		if !d.Equal(d.Truncate(maxScale)) {
			return Money{}, fmt.Errorf("amount %s has more than %d decimal places", d.String(), maxScale)
		}
		d = d.Truncate(maxScale)
	}
	if d.Abs().GreaterThanOrEqual(maxAbsAmount) {
		return Money{}, fmt.Errorf("amount %s exceeds the storable range", d.String())
	}
	return Money{amount: d, currency: currency}, nil
}

// Zero returns a zero amount in the given currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency     { return m.currency }

// String renders the canonical decimal form, e.g. "25.50" stays "25.5"
// normalized and "100" stays "100".
func (m Money) String() string {
	return m.amount.String()
}

// IsPositive reports amount > 0.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// IsZero reports amount == 0.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsNegative reports amount < 0.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// SameCurrency reports whether both amounts share a currency.
func (m Money) SameCurrency(other Money) bool {
	return m.currency == other.currency
}

// Add returns m + other. Currencies must match.
func (m Money) Add(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return NewMoneyFromDecimal(m.amount.Add(other.amount), m.currency)
}

// Sub returns m - other. Currencies must match. The result may be negative;
// callers decide whether that is legal.
func (m Money) Sub(other Money) (Money, error) {
	if !m.SameCurrency(other) {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	d := m.amount.Sub(other.amount)
	if d.Abs().GreaterThanOrEqual(maxAbsAmount) {
		return Money{}, fmt.Errorf("amount %s exceeds the storable range", d.String())
	}
	return Money{amount: d, currency: m.currency}, nil
}

// Cmp compares amounts: -1 if m < other, 0 if equal, +1 if m > other.
func (m Money) Cmp(other Money) (int, error) {
	if !m.SameCurrency(other) {
		return 0, fmt.Errorf("currency mismatch: %s vs %s", m.currency, other.currency)
	}
	return m.amount.Cmp(other.amount), nil
}

// GreaterThan reports m > other for same-currency amounts.
func (m Money) GreaterThan(other Money) bool {
	return m.currency == other.currency && m.amount.GreaterThan(other.amount)
}

// LessThan reports m < other for same-currency amounts.
func (m Money) LessThan(other Money) bool {
	return m.currency == other.currency && m.amount.LessThan(other.amount)
}

// Equal reports same currency and same numeric value.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}
