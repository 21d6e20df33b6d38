package rating

import (
	"github.com/shopspring/decimal"

	"github.com/warp/pd-rating/generic"
)

// =============================================================================
// APPORTIONMENT
// =============================================================================

// ApportionedWPI removes the non-compensable share pct from wpi. A pct of
// zero leaves wpi untouched.
func ApportionedWPI(wpi, pct decimal.Decimal) decimal.Decimal {
	if !pct.IsPositive() {
		return wpi
	}
	return wpi.Mul(generic.One.Sub(generic.Fraction(pct)))
}

// Apportion splits rated records into the values to combine.
//
// none uses every age-adjusted WPI and ignores apportionment. with uses the
// apportioned WPI where apportionment is positive and the age-adjusted WPI
// elsewhere; it is nil when no record is apportioned.
func Apportion(records []Record) (none, with []decimal.Decimal) {
	none = make([]decimal.Decimal, len(records))
	apportioned := false
	for i, r := range records {
		none[i] = r.AgeAdjustedWPI
		if r.Apportioned() {
			apportioned = true
		}
	}
	if !apportioned {
		return none, nil
	}

	with = make([]decimal.Decimal, len(records))
	for i, r := range records {
		if r.Apportioned() {
			with[i] = r.ApportionedWPI
		} else {
			with[i] = r.AgeAdjustedWPI
		}
	}
	return none, with
}
