/*
Package generic provides the domain-agnostic primitives of the rating engine.

PURPOSE:
  This package holds the pieces that know nothing about workers' compensation:
  decimal percentage helpers, the floor-match table used by every reference
  lookup, and the shared error taxonomy.

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Explicit policy: Table misses are governed by a declared MissPolicy
  3. Immutability: Tables are built once and only read afterwards

SEE ALSO:
  - floor.go: FloorTable and MissPolicy
  - errors.go: Sentinel and structured errors
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// PERCENT HELPERS
// =============================================================================

var (
	// Hundred is the percentage base.
	Hundred = decimal.NewFromInt(100)

	// One is the multiplicative identity.
	One = decimal.NewFromInt(1)
)

// Pct builds a decimal percentage from a float, e.g. Pct(16.8).
func Pct(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// MustParseDecimal parses s or panics. For literals and test fixtures only.
func MustParseDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// InRange reports whether lo <= v <= hi.
func InRange(v, lo, hi decimal.Decimal) bool {
	return v.GreaterThanOrEqual(lo) && v.LessThanOrEqual(hi)
}

// Fraction converts a percentage to a fraction: 25 -> 0.25.
func Fraction(pct decimal.Decimal) decimal.Decimal {
	return pct.Div(Hundred)
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}
