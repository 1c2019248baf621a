// Package core provides money parsing and handling utilities.
//
// Amounts travel as decimal.Decimal and are persisted as integer cents so that
// sums computed by SQLite never go through floating point.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencySymbol prefixes rendered amounts.
const CurrencySymbol = "€"

// NormalizeDecimal accepts both dot (12.34) and comma (12,34) decimal
// separators and strips surrounding whitespace.
func NormalizeDecimal(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

// RoundCents rounds half away from zero to two decimal places.
//
// Examples:
//
//	RoundCents(12.345) -> 12.35
//	RoundCents(12.344) -> 12.34
func RoundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ToCents converts an amount to integer cents after rounding.
func ToCents(d decimal.Decimal) int64 {
	return RoundCents(d).Shift(2).IntPart()
}

// FromCents converts integer cents back into an amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// FormatAmount renders an amount for chat output, e.g. "€800.00".
func FormatAmount(d decimal.Decimal) string {
	return CurrencySymbol + d.StringFixed(2)
}
