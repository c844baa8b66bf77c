// Package money centralizes currency arithmetic. All balances, taxes, and
// fees in the engine flow through these helpers so rounding behavior stays
// in one place.
package money

import (
	"github.com/shopspring/decimal"
)

// Round2 rounds to two decimal places, half away from zero. This is the
// currency rounding used everywhere in the ledger; never use decimal.Round
// directly in domain code.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Percent returns Round2(amount * pct / 100).
func Percent(amount decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(pct).Div(decimal.NewFromInt(100)))
}

// Rate returns Round2(amount * rate) for fractional rates such as 0.025.
func Rate(amount decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return Round2(amount.Mul(rate))
}

// IsPositive reports whether d > 0.
func IsPositive(d decimal.Decimal) bool {
	return d.Sign() > 0
}

// IsNegative reports whether d < 0.
func IsNegative(d decimal.Decimal) bool {
	return d.Sign() < 0
}

// Zero is the zero amount.
var Zero = decimal.Zero

// FromFloat converts a float to a currency amount, rounding to two places.
// Only for test fixtures and config defaults; wire input should arrive as
// strings and go through decimal.NewFromString.
func FromFloat(f float64) decimal.Decimal {
	return Round2(decimal.NewFromFloat(f))
}

// EqualWithinCent reports whether a and b differ by at most one cent. Used
// by round-trip checks where independent roundings may drift by a single
// cent.
func EqualWithinCent(a, b decimal.Decimal) bool {
	return !a.Sub(b).Abs().GreaterThan(decimal.NewFromFloat(0.01))
}
