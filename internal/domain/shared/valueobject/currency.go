package valueobject

import (
	"strings"

	"golang.org/x/text/currency"
)

// Currency is an ISO 4217 currency code
type Currency string

const (
	USD Currency = "USD" // US Dollar, the reporting currency
	BRL Currency = "BRL" // Brazilian Real
	EUR Currency = "EUR" // Euro
	GBP Currency = "GBP" // British Pound
	CAD Currency = "CAD" // Canadian Dollar
)

// ReportingCurrency is the currency every ledger amount is normalized to
const ReportingCurrency = USD

// ParseCurrency normalizes and validates an ISO 4217 code
func ParseCurrency(code string) (Currency, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", err
	}
	return Currency(unit.String()), nil
}

// IsValidCurrency reports whether code is a recognized ISO 4217 code
func IsValidCurrency(code string) bool {
	_, err := ParseCurrency(code)
	return err == nil
}

// String returns the code
func (c Currency) String() string {
	return string(c)
}

// IsReporting reports whether c is the reporting currency
func (c Currency) IsReporting() bool {
	return c == ReportingCurrency
}
