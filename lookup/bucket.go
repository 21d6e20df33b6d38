package lookup

import "strings"

// =============================================================================
// BODY-PART BUCKETS - Fine-grained impairment codes collapse to table rows
// =============================================================================

// Canonical extremity buckets used by the ARM/LEG retry.
const (
	BucketArm = "ARM"
	BucketLeg = "LEG"
)

// namedCodeBuckets maps named impairment codes to body-part rows.
var namedCodeBuckets = map[string]string{
	"SPINE-DRE-ROM":  "SPINE",
	"PERIPH-SPINE":   "SPINE",
	"PERIPH-UE":      BucketArm,
	"PERIPH-LE":      BucketLeg,
	"ARM-AMPUT":      BucketArm,
	"ARM-GRIP/PINCH": BucketArm,
	"SHOULDER-ROM":   "SHOULDER",
	"ELBOW-ROM":      "ELBOW",
	"WRIST-ROM":      "WRIST",
	"LEG-AMPUT":      BucketLeg,
}

// numericCodeBuckets maps numeric code prefixes to rows. Order matters:
// longer prefixes precede their chapter.
var numericCodeBuckets = []struct {
	prefix string
	bucket string
}{
	{"13.12.01", "SPINE"},
	{"13.12.02", BucketArm},
	{"13.12.03", BucketLeg},
	{"15.", "SPINE"},
	{"16.02", "SHOULDER"},
	{"16.03", "ELBOW"},
	{"16.04", "WRIST"},
	{"16.05", "HAND"},
	{"16.", BucketArm},
	{"17.03", "HIP"},
	{"17.05", "KNEE"},
	{"17.07", "ANKLE"},
	{"17.", BucketLeg},
	{"11.03", "MASTICATION"},
	{"14.", "PSYCHIATRIC"},
}

var (
	armTerms = []string{"arm", "hand", "wrist", "elbow", "shoulder"}
	legTerms = []string{"leg", "knee", "ankle", "foot", "hip"}
)

// BucketFor returns the body-part row name for an impairment code.
// Unknown codes are their own bucket.
func BucketFor(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if b, ok := namedCodeBuckets[c]; ok {
		return b
	}
	for _, nb := range numericCodeBuckets {
		if strings.HasPrefix(c, nb.prefix) {
			return nb.bucket
		}
	}
	return c
}

// ExtremityFor returns BucketArm or BucketLeg when the code or its bucket
// implies an extremity, or "" otherwise.
func ExtremityFor(code, bucket string) string {
	c := strings.TrimSpace(code)
	switch {
	case strings.HasPrefix(c, "16."), strings.HasPrefix(c, "13.12.02"):
		return BucketArm
	case strings.HasPrefix(c, "17."), strings.HasPrefix(c, "13.12.03"):
		return BucketLeg
	}
	b := strings.ToLower(bucket)
	for _, term := range armTerms {
		if strings.Contains(b, term) {
			return BucketArm
		}
	}
	for _, term := range legTerms {
		if strings.Contains(b, term) {
			return BucketLeg
		}
	}
	return ""
}
