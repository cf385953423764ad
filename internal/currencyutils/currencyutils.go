// Package currencyutils provides safe amount parsing and decimal helpers used by the
// statement normalizer and the validation engine.
package currencyutils

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	symbolPattern      = regexp.MustCompile(`[₹$€£¥,\s]`)
	codePattern        = regexp.MustCompile(`(?i)^(INR|RS\.?|USD|EUR|GBP|JPY|CHF)|(INR|USD|EUR|GBP|JPY|CHF)$`)
	parenNegative      = regexp.MustCompile(`^\(([\d.]+)\)$`)
	drCrSuffix         = regexp.MustCompile(`(?i)(dr|cr)\.?$`)
	placeholderStrings = map[string]bool{"": true, "none": true, "nan": true, "null": true, "-": true, "--": true}
)

// ParseAmount parses a spreadsheet cell into a decimal. It strips currency symbols,
// codes and thousands separators, accepts parenthesized negatives such as "(1,000)"
// and a trailing "Dr"/"Cr" marker. The boolean is false when the cell carries no number.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if placeholderStrings[strings.ToLower(s)] {
		return decimal.Zero, false
	}

	negate := false
	if m := drCrSuffix.FindStringSubmatch(s); m != nil && len(s) > len(m[0]) {
		negate = strings.EqualFold(m[1], "dr")
		s = strings.TrimSpace(s[:len(s)-len(m[0])])
	}

	s = codePattern.ReplaceAllString(s, "")
	s = symbolPattern.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "'", "")

	if m := parenNegative.FindStringSubmatch(s); m != nil {
		s = m[1]
		negate = !negate
	}
	if s == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if negate {
		amount = amount.Neg()
	}
	return amount, true
}

// ParseNullAmount is ParseAmount returning a NullDecimal.
func ParseNullAmount(raw string) decimal.NullDecimal {
	amount, ok := ParseAmount(raw)
	if !ok {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(amount)
}

// LeadingDigit returns the first significant digit of |amount|.
// Amounts below 1 have no leading digit for Benford purposes.
func LeadingDigit(amount decimal.Decimal) (int, bool) {
	abs := amount.Abs()
	if abs.LessThan(decimal.NewFromInt(1)) {
		return 0, false
	}
	s := abs.Truncate(0).String()
	return int(s[0] - '0'), true
}

// IsMultipleOf reports whether amount is an exact multiple of unit.
func IsMultipleOf(amount, unit decimal.Decimal) bool {
	if unit.IsZero() {
		return false
	}
	return amount.Mod(unit).IsZero()
}

// Ratio returns a/b rounded to places, or zero when b is zero.
func Ratio(a, b decimal.Decimal, places int32) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b).Round(places)
}

// FormatAmount formats a decimal with two decimal places and an optional currency code.
func FormatAmount(amount decimal.Decimal, currency string) string {
	formatted := amount.StringFixed(2)
	if currency == "" {
		return formatted
	}
	switch strings.ToUpper(currency) {
	case "INR":
		return "₹" + formatted
	case "EUR":
		return "€" + formatted
	case "USD":
		return "$" + formatted
	case "GBP":
		return "£" + formatted
	case "JPY":
		return "¥" + formatted
	default:
		return strings.ToUpper(currency) + " " + formatted
	}
}
