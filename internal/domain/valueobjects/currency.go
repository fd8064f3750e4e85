package valueobjects

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 style three-letter code.
// Every wallet and every ledger line carries one; amounts in different
// currencies never mix.
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

// DefaultCurrency is used when a request omits the currency field.
const DefaultCurrency = USD

// NewCurrency validates and normalizes a currency code.
func NewCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("invalid currency code %q: must be 3 letters", code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q: must be 3 letters", code)
		}
	}
	return Currency(code), nil
}

func (c Currency) String() string {
	return string(c)
}

// Equals reports whether two currencies are the same code.
func (c Currency) Equals(other Currency) bool {
	return c == other
}
