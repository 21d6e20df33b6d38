package rating

import "strings"

// =============================================================================
// BODY PART -> IMPAIRMENT CODE
// =============================================================================

// UnknownCode is returned when no rule matches a body part.
const UnknownCode = "00.00.00.00"

// codeRule maps a body-part description to an impairment code when any of
// its terms appears. refine rules are checked first, in order.
type codeRule struct {
	any    []string
	refine []codeRefinement
	code   string
}

type codeRefinement struct {
	all  []string // every term must appear
	any  []string // and at least one of these, when set
	code string
}

var motionTerms = []string{"range", "motion", "rom"}

// codeRules is evaluated top to bottom; the first match wins, so
// "neck and arm" rates under the spine.
var codeRules = []codeRule{
	{
		any: []string{"spine", "back", "lumbar", "thoracic", "cervical", "neck"},
		refine: []codeRefinement{
			{all: []string{"lumbar"}, any: motionTerms, code: "15.03.02.05"},
			{all: []string{"cervical"}, any: motionTerms, code: "15.01.02.05"},
		},
		code: "15.03.02.05",
	},
	{any: []string{"shoulder"}, code: "16.02.01.00"},
	{any: []string{"elbow"}, code: "16.03.01.00"},
	{any: []string{"wrist"}, code: "16.04.01.00"},
	{any: []string{"hand", "finger", "thumb"}, code: "16.05.00.00"},
	{any: []string{"grip", "pinch"}, code: "16.01.04.00"},
	{
		any: []string{"knee"},
		refine: []codeRefinement{
			{any: []string{"muscle", "strength"}, code: "17.05.05.00"},
		},
		code: "17.05.00.00",
	},
	{any: []string{"ankle"}, code: "17.07.00.00"},
	{any: []string{"hip"}, code: "17.03.00.00"},
	{
		any: []string{"leg"},
		refine: []codeRefinement{
			{any: []string{"amput"}, code: "17.01.02.00"},
		},
	},
	{any: []string{"mastication", "jaw"}, code: "11.03.02.00"},
	{any: []string{"arm", "upper extremity", "bicep", "tricep"}, code: "16.00.00.00"},
	{any: []string{"leg", "lower extremity", "shin", "calf"}, code: "17.00.00.00"},
}

// CodeFor maps a free-text body part ("Lumbar spine ROM", "left knee") to
// an impairment code, or UnknownCode.
func CodeFor(bodyPart string) string {
	text := strings.ToLower(strings.TrimSpace(bodyPart))
	for _, rule := range codeRules {
		if !containsAny(text, rule.any) {
			continue
		}
		for _, r := range rule.refine {
			if containsAll(text, r.all) && (len(r.any) == 0 || containsAny(text, r.any)) {
				return r.code
			}
		}
		// A rule without its own code only applies through a refinement.
		if rule.code != "" {
			return rule.code
		}
	}
	return UnknownCode
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func containsAll(text string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(text, t) {
			return false
		}
	}
	return true
}
