/*
schedule.go - Statutory constants and the payout calculator

PURPOSE:
  A Schedule holds every number the engine does not read from the
  reference tables: the fixed 1.4 multiplier, the pain add-on cap, the
  weekly PD rate, the week-multiplier tiers and the life pension policy.
  It also carries the failure policy, so one schedule fully describes how
  a batch of impairments is rated.

PAYOUT:
  weeks  = percent x multiplier of the first tier with percent < Below
  payout = weeks x WeeklyRate

  Default tiers:
    <10     x4
    <24.75  x5
    <29.75  x6
    <49.75  x7
    <69.75  x8
    <99.75  x9
    else    x9

LIFE PENSION:
  Applies once the final percent reaches LifePension.Threshold (70). The
  weekly rate and earnings cap are fixed policy constants, not derived.

SEE ALSO:
  - engine.go: Applies the schedule to a batch
  - factory/schedule.go: JSON/YAML schedule files
*/
package rating

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/pd-rating/generic"
	"github.com/warp/pd-rating/lookup"
)

// =============================================================================
// FAILURE POLICY
// =============================================================================

// FailurePolicy decides what a lookup failure does to the rest of a batch.
type FailurePolicy string

const (
	// Strict aborts the whole batch on the first lookup failure.
	Strict FailurePolicy = "strict"
	// Lenient substitutes the default variant when none is found, skips
	// impairments whose adjustment lookups fail, and records both.
	Lenient FailurePolicy = "lenient"
)

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch p := FailurePolicy(s); p {
	case Strict, Lenient:
		return p, nil
	case "":
		return Strict, nil
	default:
		return "", &generic.InputError{Field: "failure_policy", Value: s, Reason: "must be strict or lenient"}
	}
}

// =============================================================================
// SCHEDULE
// =============================================================================

// Tier multiplies percentages strictly below Below.
type Tier struct {
	Below      decimal.Decimal
	Multiplier decimal.Decimal
}

// LifePensionPolicy holds the life pension constants.
type LifePensionPolicy struct {
	Threshold   decimal.Decimal
	WeeklyRate  decimal.Decimal
	MaxEarnings decimal.Decimal
}

// LifePension is present on an outcome whose percent reached the threshold.
type LifePension struct {
	WeeklyRate  decimal.Decimal
	MaxEarnings decimal.Decimal
}

// Schedule is one rating schedule.
type Schedule struct {
	Name string

	// Multiplier is applied after the pain add-on (1.4).
	Multiplier decimal.Decimal
	// MaxPainAddon caps the pain add-on (3).
	MaxPainAddon decimal.Decimal

	WeeklyRate    decimal.Decimal
	Tiers         []Tier // ascending by Below
	TopMultiplier decimal.Decimal

	LifePension LifePensionPolicy

	FailurePolicy  FailurePolicy
	DefaultVariant lookup.Variant

	// MissPolicies governs adjustment lookups below the first row of each
	// table when tables are loaded for this schedule.
	MissPolicies lookup.MissPolicies
}

// DefaultSchedule returns the built-in schedule.
func DefaultSchedule() Schedule {
	d := generic.MustParseDecimal
	return Schedule{
		Name:         "default",
		Multiplier:   d("1.4"),
		MaxPainAddon: d("3"),
		WeeklyRate:   d("290.00"),
		Tiers: []Tier{
			{Below: d("10"), Multiplier: d("4")},
			{Below: d("24.75"), Multiplier: d("5")},
			{Below: d("29.75"), Multiplier: d("6")},
			{Below: d("49.75"), Multiplier: d("7")},
			{Below: d("69.75"), Multiplier: d("8")},
			{Below: d("99.75"), Multiplier: d("9")},
		},
		TopMultiplier: d("9"),
		LifePension: LifePensionPolicy{
			Threshold:   d("70"),
			WeeklyRate:  d("85.00"),
			MaxEarnings: d("515.38"),
		},
		FailurePolicy:  Strict,
		DefaultVariant: "G",
		MissPolicies:   lookup.DefaultMissPolicies(),
	}
}

// Validate checks a schedule before use.
func (s Schedule) Validate() error {
	if !s.Multiplier.IsPositive() {
		return &generic.InputError{Field: "multiplier", Value: s.Multiplier.String(), Reason: "must be positive"}
	}
	if s.MaxPainAddon.IsNegative() {
		return &generic.InputError{Field: "max_pain_addon", Value: s.MaxPainAddon.String(), Reason: "must not be negative"}
	}
	if s.WeeklyRate.IsNegative() {
		return &generic.InputError{Field: "weekly_rate", Value: s.WeeklyRate.String(), Reason: "must not be negative"}
	}
	for i, t := range s.Tiers {
		if i > 0 && !t.Below.GreaterThan(s.Tiers[i-1].Below) {
			return &generic.InputError{
				Field:  "tiers",
				Value:  t.Below.String(),
				Reason: fmt.Sprintf("tier %d must be above %s", i, s.Tiers[i-1].Below),
			}
		}
		if t.Multiplier.IsNegative() {
			return &generic.InputError{Field: "tiers", Value: t.Multiplier.String(), Reason: "multiplier must not be negative"}
		}
	}
	if _, err := ParseFailurePolicy(string(s.FailurePolicy)); err != nil {
		return err
	}
	if s.FailurePolicy == Lenient && !s.DefaultVariant.Valid() {
		return &generic.InputError{Field: "default_variant", Value: string(s.DefaultVariant), Reason: "lenient schedules need a variant C..J"}
	}
	return nil
}

// =============================================================================
// PAYOUT CALCULATOR
// =============================================================================

// Weeks converts a final percent into weeks of PD.
func (s Schedule) Weeks(percent decimal.Decimal) decimal.Decimal {
	return percent.Mul(s.weekMultiplier(percent))
}

func (s Schedule) weekMultiplier(percent decimal.Decimal) decimal.Decimal {
	for _, t := range s.Tiers {
		if percent.LessThan(t.Below) {
			return t.Multiplier
		}
	}
	return s.TopMultiplier
}

// Payout is weeks at the weekly rate, rounded to cents.
func (s Schedule) Payout(weeks decimal.Decimal) decimal.Decimal {
	return generic.Round2(weeks.Mul(s.WeeklyRate))
}

// LifePensionFor returns the life pension for a final percent, or nil
// below the threshold.
func (s Schedule) LifePensionFor(percent decimal.Decimal) *LifePension {
	if percent.LessThan(s.LifePension.Threshold) {
		return nil
	}
	return &LifePension{
		WeeklyRate:  s.LifePension.WeeklyRate,
		MaxEarnings: s.LifePension.MaxEarnings,
	}
}
