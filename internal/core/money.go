// Package core provides money parsing and handling utilities.
//
// Amounts are kept as decimals so that whatever the user typed round-trips
// exactly through the store.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencyPrefixes are matched case-insensitively, longest first.
var currencyPrefixes = []string{"pkr", "rs"}

// trimCurrency removes a leading currency token together with an optional
// abbreviation dot ("Rs. 1,200", "rs.1,200", "PKR 500").
func trimCurrency(s string) string {
	for _, p := range currencyPrefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return strings.TrimSpace(strings.TrimPrefix(s[len(p):], "."))
		}
	}
	return s
}

// Desanitize strips thousands separators, currency prefixes and
// whitespace from a statement amount ("Rs. 1,200.50" -> "1200.50").
func Desanitize(s string) string {
	s = trimCurrency(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", "")
	return strings.Join(strings.Fields(s), "")
}

// ParseAmount parses a user or statement amount into a positive decimal.
// The decimal keeps the scale it was written with.
//
// Examples:
//
//	ParseAmount("1,200")     -> 1200, nil
//	ParseAmount("Rs. 1,200") -> 1200, nil
//	ParseAmount("12.50")     -> 12.50, nil
//	ParseAmount("0")         -> 0, ErrInvalidAmount
//	ParseAmount("-5")        -> 0, ErrInvalidAmount
//	ParseAmount(".5")        -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = Desanitize(s)
	if s == "" || strings.HasPrefix(s, ".") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatAmount renders d as a plain decimal string, keeping trailing
// fractional zeros ("12.50" stays "12.50").
func FormatAmount(d decimal.Decimal) string {
	if exp := d.Exponent(); exp < 0 {
		return d.StringFixed(-exp)
	}
	return d.String()
}

// FormatRupees renders an amount with thousands separators for display.
func FormatRupees(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().String()
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		return "-Rs " + out
	}
	return "Rs " + out
}
