// Package money holds the shared numeric conventions for currency amounts.
// Amounts cross service boundaries as decimals; any equality or summation
// check first converts to integer minor units to avoid floating-point drift.
package money

import "github.com/shopspring/decimal"

// minorUnitPlaces is the number of decimal places in a minor unit (cents).
const minorUnitPlaces = 2

// ToMinorUnits converts a decimal currency amount to integer minor units.
// Rounding is half away from zero, matching the behavior the ledger has always
// used, not bankers' rounding.
func ToMinorUnits(d decimal.Decimal) int64 {
	return d.Shift(minorUnitPlaces).Round(0).IntPart()
}

// FromMinorUnits converts integer minor units back to a decimal amount.
func FromMinorUnits(m int64) decimal.Decimal {
	return decimal.New(m, -minorUnitPlaces)
}

// RoundAmount normalizes a decimal amount to minor-unit precision.
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(minorUnitPlaces)
}
