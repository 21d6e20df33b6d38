package rating

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/pd-rating/generic"
)

// =============================================================================
// COMBINED VALUES
// =============================================================================

// Combine aggregates percentages with the combined-values law
//
//	100 x (1 - prod(1 - v/100))
//
// which equals combining the two largest values with C(a,b) = a + b(1 - a/100)
// until one remains. The product is exact; only the result is rounded to
// two places. Combine(nil) is 0 and a single value is returned unchanged.
func Combine(values []decimal.Decimal) decimal.Decimal {
	switch len(values) {
	case 0:
		return decimal.Zero
	case 1:
		return values[0]
	}
	remaining := generic.One
	for _, v := range values {
		remaining = remaining.Mul(generic.One.Sub(generic.Fraction(v)))
	}
	return generic.Round2(generic.Hundred.Mul(generic.One.Sub(remaining)))
}

// CombinationSteps renders the combination for display, largest first:
// the first three values on one line, then the running result with the
// rest. Values are shown as whole percents. Fewer than two values render
// nothing.
//
//	30 C 20 C 10 = 49
//	49 C 5 C 3 = 53
func CombinationSteps(values []decimal.Decimal) []string {
	if len(values) < 2 {
		return nil
	}
	sorted := append([]decimal.Decimal(nil), values...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].GreaterThan(sorted[j]) })

	head := sorted
	if len(head) > 3 {
		head = sorted[:3]
	}
	first := Combine(head)
	lines := []string{fmt.Sprintf("%s = %s", joinC(head), whole(first))}

	if len(sorted) > 3 {
		rest := append([]decimal.Decimal{first}, sorted[3:]...)
		lines = append(lines, fmt.Sprintf("%s = %s", joinC(rest), whole(Combine(sorted))))
	}
	return lines
}

func joinC(values []decimal.Decimal) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = whole(v)
	}
	return strings.Join(parts, " C ")
}

func whole(v decimal.Decimal) string {
	return v.Truncate(0).String()
}
