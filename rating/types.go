/*
Package rating computes permanent-disability ratings.

PURPOSE:
  Turns a claimant (occupation, age) and a list of impairments (WPI, pain
  add-on, apportionment) into a PD rating: an aggregate percent, weeks of
  PD, payout and a per-impairment audit string.

PIPELINE:
  For each impairment (Adjuster):
    1. clamp pain add-on to [0, 3]
    2. base          = wpi + pain
    3. multiplied    = base x 1.4
    4. variant       = lookup.ResolveVariant(group, CodeFor(body part))
    5. occupational  = lookup.AdjustOccupational(multiplied, variant)
    6. age adjusted  = lookup.AdjustAge(age, occupational)
    7. apportioned   = age adjusted x (1 - pct/100) when pct > 0

  Then for the batch (Engine):
    - Combine the age-adjusted values (no apportionment)
    - Combine the apportioned values when any impairment is apportioned
    - Weeks, payout and life pension for each

EXAMPLE:
  tables, _ := lookup.LoadCSV(lookup.SeedFS())
  engine, _ := rating.NewEngine(tables, rating.DefaultSchedule())

  res, err := engine.Compute(ctx, rating.Request{
      Claimant: rating.Claimant{Occupation: "380H", Age: 45},
      Impairments: []rating.Impairment{
          {BodyPart: "lumbar spine", WPI: generic.Pct(10), PainAddon: generic.Pct(2)},
      },
  })
  // res.NoApportionment.Percent == 19

SEE ALSO:
  - lookup: Reference tables
  - schedule.go: Statutory constants and payout
  - report.go: Text report
*/
package rating

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/pd-rating/generic"
	"github.com/warp/pd-rating/lookup"
)

// =============================================================================
// INPUT
// =============================================================================

// Impairment is one rated condition as supplied by the caller.
type Impairment struct {
	BodyPart             string
	WPI                  decimal.Decimal
	PainAddon            decimal.Decimal
	ApportionmentPercent decimal.Decimal
}

// DateLayout is the format of claimant dates.
const DateLayout = "2006-01-02"

// Claimant describes the injured worker.
type Claimant struct {
	Occupation string
	Age        int

	// When both dates are set they take precedence over Age.
	DateOfBirth  string
	DateOfInjury string
}

// AgeOnInjury returns the claimant's age at the date of injury.
func (c Claimant) AgeOnInjury() (int, error) {
	if c.DateOfBirth == "" && c.DateOfInjury == "" {
		if c.Age < 0 {
			return 0, &generic.InputError{Field: "age", Value: c.Age, Reason: "must not be negative"}
		}
		return c.Age, nil
	}
	dob, err := parseDate("date_of_birth", c.DateOfBirth)
	if err != nil {
		return 0, err
	}
	doi, err := parseDate("date_of_injury", c.DateOfInjury)
	if err != nil {
		return 0, err
	}
	if doi.Before(dob) {
		return 0, &generic.InputError{Field: "date_of_injury", Value: c.DateOfInjury, Reason: "is before date of birth"}
	}
	return YearsBetween(dob, doi), nil
}

func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &generic.InputError{Field: field, Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return t, nil
}

// YearsBetween counts whole years from from to to.
func YearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.Month() < from.Month() || (to.Month() == from.Month() && to.Day() < from.Day()) {
		years--
	}
	return years
}

// Request is one rating computation.
type Request struct {
	Claimant    Claimant
	Impairments []Impairment
}

// =============================================================================
// OUTPUT
// =============================================================================

// Record is an impairment with every derived value of the adjustment chain.
type Record struct {
	Impairment

	ImpairmentCode string
	Group          int
	Variant        lookup.Variant
	VariantRow     string // body-part row that supplied the variant
	Multiplier     decimal.Decimal

	BaseWPI                 decimal.Decimal
	MultiplierAdjustedWPI   decimal.Decimal
	OccupationalAdjustedWPI decimal.Decimal
	AgeAdjustedWPI          decimal.Decimal
	ApportionedWPI          decimal.Decimal

	// Substitutions lists defaults applied under the lenient policy.
	Substitutions []string
	// Skipped is the reason a lenient batch left this impairment out.
	Skipped string
}

// Apportioned reports whether the record carries apportionment.
func (r Record) Apportioned() bool {
	return r.ApportionmentPercent.IsPositive()
}

// Breakdown renders the audit string
//
//	<code> - <wpi> - [1.4]<adjusted> - <group><variant> - <age adjusted>%
//
// followed by any substitutions. Skipped records render their reason.
func (r Record) Breakdown() string {
	if r.Skipped != "" {
		return fmt.Sprintf("%s - %s - skipped: %s", r.ImpairmentCode, nearestEven(r.WPI), r.Skipped)
	}
	s := fmt.Sprintf("%s - %s - [%s]%s - %d%s - %s%%",
		r.ImpairmentCode,
		nearestEven(r.WPI),
		r.Multiplier.String(),
		nearestEven(r.MultiplierAdjustedWPI),
		r.Group, r.Variant,
		nearestEven(r.AgeAdjustedWPI),
	)
	if len(r.Substitutions) > 0 {
		s += " [" + strings.Join(r.Substitutions, "; ") + "]"
	}
	return s
}

// nearestEven rounds to a whole number, halves to even (4.5 -> 4).
func nearestEven(v decimal.Decimal) string {
	return v.RoundBank(0).StringFixed(0)
}

// Outcome is one rated variant of the batch.
type Outcome struct {
	Values      []decimal.Decimal // per rated impairment, in input order
	Percent     decimal.Decimal
	Weeks       decimal.Decimal
	WeeklyRate  decimal.Decimal
	Payout      decimal.Decimal
	LifePension *LifePension
}

// Result is the rating of one request.
type Result struct {
	ID         string
	Occupation string
	Group      int
	Age        int
	Policy     FailurePolicy
	Records    []Record

	NoApportionment Outcome
	// WithApportionment is nil unless some impairment is apportioned.
	WithApportionment *Outcome
}

// Breakdown returns the audit strings of every record, in input order.
func (r *Result) Breakdown() []string {
	out := make([]string, len(r.Records))
	for i, rec := range r.Records {
		out[i] = rec.Breakdown()
	}
	return out
}

// Rated returns the records that contributed to the outcomes.
func (r *Result) Rated() []Record {
	out := make([]Record, 0, len(r.Records))
	for _, rec := range r.Records {
		if rec.Skipped == "" {
			out = append(out, rec)
		}
	}
	return out
}

// TotalPainAddon sums the clamped pain add-ons of rated records.
func (r *Result) TotalPainAddon() decimal.Decimal {
	total := decimal.Zero
	for _, rec := range r.Rated() {
		total = total.Add(rec.PainAddon)
	}
	return total
}
