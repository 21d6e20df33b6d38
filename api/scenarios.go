/*
scenarios.go - Demo claimants for testing and demonstrations

PURPOSE:

	Provides canned rating requests that exercise specific features of the
	engine against the seed reference tables. Running a scenario rates it
	with the live engine; nothing is stored.

AVAILABLE SCENARIOS:

	single-impairment:  Carpenter, one lumbar impairment with pain add-on
	multi-impairment:   Nurse with three body parts combined
	apportionment:      Truck driver, dates instead of age, apportioned knee
	life-pension:       Steel erector rated above the life pension threshold
	extremity-fallback: Accountant shoulder rated through the ARM row

USAGE VIA API:

	GET  /api/scenarios
	POST /api/scenarios/life-pension/run
	POST /api/scenarios/life-pension/run?format=text

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description and request
 2. Use occupations and body parts present in the seed tables

SEE ALSO:
  - handlers.go: Rating handlers
  - lookup/seed: Reference tables the scenarios are written against
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/warp/pd-rating/rating"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-impairment",
		Name:        "Single Impairment",
		Description: "Carpenter, age 45, lumbar spine 10% WPI with 2% pain add-on",
		Category:    "basic",
		Request: RatingRequest{
			Occupation: "Carpenter",
			Age:        Ptr(45),
			Impairments: []ImpairmentDTO{
				{BodyPart: "Lumbar spine range of motion", WPI: Ptr(10.0), PainAddon: 2},
			},
		},
	},
	{
		ID:          "multi-impairment",
		Name:        "Multiple Impairments",
		Description: "Registered nurse, age 52, spine, shoulder and knee combined",
		Category:    "basic",
		Request: RatingRequest{
			Occupation: "Registered Nurse",
			Age:        Ptr(52),
			Impairments: []ImpairmentDTO{
				{BodyPart: "Lumbar spine", WPI: Ptr(8.0), PainAddon: 1},
				{BodyPart: "Right shoulder", WPI: Ptr(6.0)},
				{BodyPart: "Left knee", WPI: Ptr(4.0)},
			},
		},
	},
	{
		ID:          "apportionment",
		Name:        "Apportionment",
		Description: "Truck driver injured at 49, knee 25% apportioned to a prior injury",
		Category:    "apportionment",
		Request: RatingRequest{
			Occupation:   "Truck Driver",
			DateOfBirth:  "1975-03-10",
			DateOfInjury: "2024-06-01",
			Impairments: []ImpairmentDTO{
				{BodyPart: "Left knee", WPI: Ptr(20.0), PainAddon: 1, ApportionmentPercent: 25},
				{BodyPart: "Lumbar spine", WPI: Ptr(10.0)},
			},
		},
	},
	{
		ID:          "life-pension",
		Name:        "Life Pension",
		Description: "Structural steel erector, age 58, combined rating above 70%",
		Category:    "payout",
		Request: RatingRequest{
			Occupation: "Structural Steel Erector",
			Age:        Ptr(58),
			Impairments: []ImpairmentDTO{
				{BodyPart: "Lumbar spine", WPI: Ptr(40.0), PainAddon: 3},
				{BodyPart: "Right hip", WPI: Ptr(35.0)},
				{BodyPart: "Right shoulder", WPI: Ptr(30.0)},
			},
		},
	},
	{
		ID:          "extremity-fallback",
		Name:        "Extremity Fallback",
		Description: "Accountant shoulder with no variant of its own, rated through the ARM row",
		Category:    "lookup",
		Request: RatingRequest{
			Occupation: "Accountant",
			Age:        Ptr(35),
			Impairments: []ImpairmentDTO{
				{BodyPart: "Left shoulder", WPI: Ptr(7.0)},
			},
		},
	},
}

func findScenario(id string) (ScenarioDTO, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return ScenarioDTO{}, false
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// RunScenario rates a scenario. ?format=text returns the rating sheet.
func (h *Handler) RunScenario(w http.ResponseWriter, r *http.Request) {
	s, ok := findScenario(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Scenario not found", nil)
		return
	}

	req, err := s.Request.ToRequest()
	if err != nil {
		writeRatingError(w, err)
		return
	}
	res, err := h.Engine().Compute(r.Context(), req)
	if err != nil {
		writeRatingError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(rating.Report(res)))
		return
	}

	dto := ToRatingDTO(res)
	dto.Report = rating.Report(res)
	writeJSON(w, http.StatusOK, dto)
}
