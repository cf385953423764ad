package models

import (
	"github.com/shopspring/decimal"
)

// Amount wraps a decimal into a valid NullDecimal.
func Amount(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NewNullDecimal(d)
}

// NoAmount is the absent value for nullable money fields.
var NoAmount = decimal.NullDecimal{}

// AmountFromFloat is a convenience for tests and fixtures.
// Note: float64 input can carry binary rounding noise; prefer decimal literals for money.
func AmountFromFloat(f float64) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.NewFromFloat(f))
}

// WithinTolerance reports whether |a-b| <= tol.
func WithinTolerance(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tol)
}

// SameAmount compares two nullable amounts within tol. Two absent values are not equal.
func SameAmount(a, b decimal.NullDecimal, tol decimal.Decimal) bool {
	if !a.Valid || !b.Valid {
		return false
	}
	return WithinTolerance(a.Decimal, b.Decimal, tol)
}

// Float returns the float64 form of a decimal for statistics.
// Money arithmetic must stay in decimal; this is only for ratios and percentiles.
func Float(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
