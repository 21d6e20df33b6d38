/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the decimal domain model from the external API contract: percentages,
  weeks and money travel as JSON numbers.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Rating:
    RatingRequest, ImpairmentDTO, RatingDTO, RecordDTO, OutcomeDTO

  Reference data:
    OccupationDTO, ResolveDTO, VariantDTO

  Scenarios:
    ScenarioDTO

VALIDATION:
  Validation is done by the rating engine, not in DTOs. DTOs are pure data
  carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/schedule.go: ScheduleJSON, returned as is
*/
package api

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/pd-rating/generic"
	"github.com/warp/pd-rating/rating"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ImpairmentDTO is one impairment in a rating request. WPI is required.
type ImpairmentDTO struct {
	BodyPart             string   `json:"body_part"`
	WPI                  *float64 `json:"wpi"`
	PainAddon            float64  `json:"pain_addon,omitempty"`
	ApportionmentPercent float64  `json:"apportionment_percent,omitempty"`
}

// RatingRequest is the body of POST /api/ratings. Either Age or both dates
// must be present.
type RatingRequest struct {
	Occupation   string          `json:"occupation"`
	Age          *int            `json:"age,omitempty"`
	DateOfBirth  string          `json:"date_of_birth,omitempty"`
	DateOfInjury string          `json:"date_of_injury,omitempty"`
	Impairments  []ImpairmentDTO `json:"impairments"`
}

// Ptr returns a pointer to v, for building requests in code.
func Ptr[T any](v T) *T { return &v }

// ToRequest converts the body to an engine request. Missing required
// fields are reported as generic.InputError.
func (r RatingRequest) ToRequest() (rating.Request, error) {
	if r.Age == nil && r.DateOfBirth == "" && r.DateOfInjury == "" {
		return rating.Request{}, &generic.InputError{
			Field:  "age",
			Reason: "is required unless date_of_birth and date_of_injury are given",
		}
	}

	imps := make([]rating.Impairment, len(r.Impairments))
	for i, d := range r.Impairments {
		if d.WPI == nil {
			return rating.Request{}, &generic.InputError{
				Field:  fmt.Sprintf("impairments[%d].wpi", i),
				Value:  d.BodyPart,
				Reason: "is required",
			}
		}
		imps[i] = rating.Impairment{
			BodyPart:             d.BodyPart,
			WPI:                  decimal.NewFromFloat(*d.WPI),
			PainAddon:            decimal.NewFromFloat(d.PainAddon),
			ApportionmentPercent: decimal.NewFromFloat(d.ApportionmentPercent),
		}
	}

	c := rating.Claimant{
		Occupation:   r.Occupation,
		DateOfBirth:  r.DateOfBirth,
		DateOfInjury: r.DateOfInjury,
	}
	if r.Age != nil {
		c.Age = *r.Age
	}
	return rating.Request{Claimant: c, Impairments: imps}, nil
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RecordDTO is one impairment with its adjustment chain.
type RecordDTO struct {
	BodyPart             string   `json:"body_part"`
	ImpairmentCode       string   `json:"impairment_code"`
	WPI                  float64  `json:"wpi"`
	PainAddon            float64  `json:"pain_addon"`
	ApportionmentPercent float64  `json:"apportionment_percent"`
	Variant              string   `json:"variant,omitempty"`
	VariantRow           string   `json:"variant_row,omitempty"`
	BaseWPI              float64  `json:"base_wpi"`
	MultiplierAdjusted   float64  `json:"multiplier_adjusted_wpi"`
	OccupationalAdjusted float64  `json:"occupational_adjusted_wpi"`
	AgeAdjusted          float64  `json:"age_adjusted_wpi"`
	ApportionedWPI       *float64 `json:"apportioned_wpi,omitempty"`
	Breakdown            string   `json:"breakdown"`
	Substitutions        []string `json:"substitutions,omitempty"`
	Skipped              string   `json:"skipped,omitempty"`
}

// LifePensionDTO is the life pension block of an outcome.
type LifePensionDTO struct {
	WeeklyRate  float64 `json:"weekly_rate"`
	MaxEarnings float64 `json:"max_earnings"`
}

// OutcomeDTO is one rated variant (with or without apportionment).
type OutcomeDTO struct {
	Values           []float64       `json:"values"`
	CombinationSteps []string        `json:"combination_steps"`
	Percent          float64         `json:"final_pd_percent"`
	Weeks            float64         `json:"weeks"`
	WeeklyRate       float64         `json:"pd_weekly_rate"`
	Payout           float64         `json:"total_pd_payout"`
	LifePension      *LifePensionDTO `json:"life_pension,omitempty"`
}

// RatingDTO is the response of POST /api/ratings.
type RatingDTO struct {
	ID                string      `json:"id"`
	Occupation        string      `json:"occupation"`
	Group             int         `json:"occupational_group"`
	Age               int         `json:"age"`
	FailurePolicy     string      `json:"failure_policy"`
	Impairments       []RecordDTO `json:"impairments"`
	Breakdown         []string    `json:"formatted_impairments"`
	TotalPainAddon    float64     `json:"total_pain_addon"`
	NoApportionment   OutcomeDTO  `json:"no_apportionment"`
	WithApportionment *OutcomeDTO `json:"with_apportionment,omitempty"`
	Report            string      `json:"report,omitempty"`
}

// OccupationDTO is one occupation directory entry.
type OccupationDTO struct {
	Group    int    `json:"group_number"`
	Title    string `json:"occupation_title"`
	Industry string `json:"industry,omitempty"`
}

// ResolveDTO is the response of GET /api/occupations/resolve.
type ResolveDTO struct {
	Occupation string `json:"occupation"`
	Group      int    `json:"group_number"`
}

// VariantDTO is the response of GET /api/variants.
type VariantDTO struct {
	Group          int    `json:"group_number"`
	BodyPart       string `json:"body_part,omitempty"`
	ImpairmentCode string `json:"impairment_code"`
	Variant        string `json:"variant"`
	Partition      string `json:"partition"`
	Row            string `json:"row"`
	Fallback       bool   `json:"fallback"`
}

// ScenarioDTO describes a canned claimant.
type ScenarioDTO struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Category    string        `json:"category"`
	Request     RatingRequest `json:"request"`
}

// HealthDTO is the response of GET /api/health.
type HealthDTO struct {
	Status        string         `json:"status"`
	Schedule      string         `json:"schedule"`
	FailurePolicy string         `json:"failure_policy"`
	Tables        any            `json:"tables"`
	Groups        int            `json:"groups"`
	Rows          map[string]int `json:"rows,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION
// =============================================================================

func f64(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func toRecordDTO(r rating.Record) RecordDTO {
	dto := RecordDTO{
		BodyPart:             r.BodyPart,
		ImpairmentCode:       r.ImpairmentCode,
		WPI:                  f64(r.WPI),
		PainAddon:            f64(r.PainAddon),
		ApportionmentPercent: f64(r.ApportionmentPercent),
		Variant:              string(r.Variant),
		VariantRow:           r.VariantRow,
		BaseWPI:              f64(r.BaseWPI),
		MultiplierAdjusted:   f64(r.MultiplierAdjustedWPI),
		OccupationalAdjusted: f64(r.OccupationalAdjustedWPI),
		AgeAdjusted:          f64(r.AgeAdjustedWPI),
		Breakdown:            r.Breakdown(),
		Substitutions:        r.Substitutions,
		Skipped:              r.Skipped,
	}
	if r.Apportioned() && r.Skipped == "" {
		v := f64(r.ApportionedWPI)
		dto.ApportionedWPI = &v
	}
	return dto
}

func toOutcomeDTO(o rating.Outcome) OutcomeDTO {
	dto := OutcomeDTO{
		Values:           make([]float64, len(o.Values)),
		CombinationSteps: rating.CombinationSteps(o.Values),
		Percent:          f64(o.Percent),
		Weeks:            f64(o.Weeks),
		WeeklyRate:       f64(o.WeeklyRate),
		Payout:           f64(o.Payout),
	}
	for i, v := range o.Values {
		dto.Values[i] = f64(v)
	}
	if dto.CombinationSteps == nil {
		dto.CombinationSteps = []string{}
	}
	if o.LifePension != nil {
		dto.LifePension = &LifePensionDTO{
			WeeklyRate:  f64(o.LifePension.WeeklyRate),
			MaxEarnings: f64(o.LifePension.MaxEarnings),
		}
	}
	return dto
}

// ToRatingDTO converts an engine result.
func ToRatingDTO(res *rating.Result) RatingDTO {
	dto := RatingDTO{
		ID:              res.ID,
		Occupation:      res.Occupation,
		Group:           res.Group,
		Age:             res.Age,
		FailurePolicy:   string(res.Policy),
		Impairments:     make([]RecordDTO, len(res.Records)),
		Breakdown:       res.Breakdown(),
		TotalPainAddon:  f64(res.TotalPainAddon()),
		NoApportionment: toOutcomeDTO(res.NoApportionment),
	}
	for i, r := range res.Records {
		dto.Impairments[i] = toRecordDTO(r)
	}
	if res.WithApportionment != nil {
		with := toOutcomeDTO(*res.WithApportionment)
		dto.WithApportionment = &with
	}
	return dto
}
