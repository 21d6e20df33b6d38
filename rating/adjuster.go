package rating

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/pd-rating/generic"
	"github.com/warp/pd-rating/lookup"
)

// =============================================================================
// IMPAIRMENT ADJUSTER - The per-impairment adjustment chain
// =============================================================================

// Adjuster runs the adjustment chain for single impairments. It is safe for
// concurrent use.
type Adjuster struct {
	tables   *lookup.Tables
	schedule Schedule
}

func NewAdjuster(tables *lookup.Tables, schedule Schedule) *Adjuster {
	return &Adjuster{tables: tables, schedule: schedule}
}

// Normalize validates an impairment and clamps pain add-on and
// apportionment into range.
func (a *Adjuster) Normalize(imp Impairment) (Impairment, error) {
	if strings.TrimSpace(imp.BodyPart) == "" {
		return Impairment{}, &generic.InputError{Field: "body_part", Reason: "must not be empty"}
	}
	if !generic.InRange(imp.WPI, decimal.Zero, generic.Hundred) {
		return Impairment{}, &generic.InputError{Field: "wpi", Value: imp.WPI.String(), Reason: "must be between 0 and 100"}
	}
	imp.PainAddon = generic.Clamp(imp.PainAddon, decimal.Zero, a.schedule.MaxPainAddon)
	imp.ApportionmentPercent = generic.Clamp(imp.ApportionmentPercent, decimal.Zero, generic.Hundred)
	return imp, nil
}

// Adjust rates one impairment for a resolved group and age.
//
// A missing variant is an error under Strict. Under Lenient the schedule's
// default variant is used and the substitution is recorded on the record.
// Adjustment-table failures are always returned; the engine decides whether
// they abort the batch.
func (a *Adjuster) Adjust(imp Impairment, group, age int) (Record, error) {
	imp, err := a.Normalize(imp)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		Impairment:     imp,
		ImpairmentCode: CodeFor(imp.BodyPart),
		Group:          group,
		Multiplier:     a.schedule.Multiplier,
	}

	rec.BaseWPI = imp.WPI.Add(imp.PainAddon)
	rec.MultiplierAdjustedWPI = rec.BaseWPI.Mul(a.schedule.Multiplier)

	match, err := a.tables.ResolveVariant(group, rec.ImpairmentCode)
	switch {
	case err == nil:
		rec.Variant = match.Variant
		rec.VariantRow = match.BodyPart
	case errors.Is(err, generic.ErrVariantNotFound) && a.schedule.FailurePolicy == Lenient:
		rec.Variant = a.schedule.DefaultVariant
		rec.Substitutions = append(rec.Substitutions,
			fmt.Sprintf("default variant %s: %v", a.schedule.DefaultVariant, err))
	default:
		return rec, err
	}

	if rec.OccupationalAdjustedWPI, err = a.tables.AdjustOccupational(rec.MultiplierAdjustedWPI, rec.Variant); err != nil {
		return rec, err
	}
	if rec.AgeAdjustedWPI, err = a.tables.AdjustAge(age, rec.OccupationalAdjustedWPI); err != nil {
		return rec, err
	}
	rec.ApportionedWPI = ApportionedWPI(rec.AgeAdjustedWPI, imp.ApportionmentPercent)
	return rec, nil
}
