package lookup

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"github.com/warp/pd-rating/generic"
)

// Table names, matching the SQL and CSV names.
const (
	TableOccupations  = "occupations"
	TableOccupational = "occupational_adjustments"
	TableAge          = "age_adjustment"
)

// WarehouseGroup is the packer group that stock and sort work rates under.
const WarehouseGroup = 360

// occupationAliases are checked, in order, before the directory.
var occupationAliases = []struct {
	term  string
	group int
}{
	{"stocker", WarehouseGroup},
	{"sorter", WarehouseGroup},
}

// groupCodePattern matches pre-encoded occupations such as "380H".
var groupCodePattern = regexp.MustCompile(`^(\d+)[A-Za-z]$`)

// =============================================================================
// TABLES
// =============================================================================

// Tables is the loaded reference data. Immutable; safe for concurrent use.
type Tables struct {
	occupations  []Occupation
	foldedTitles []string
	low          *partitionIndex
	high         *partitionIndex
	occupational *generic.FloorTable[map[Variant]decimal.Decimal]
	age          *generic.FloorTable[map[AgeBracket]decimal.Decimal]
}

type partitionIndex struct {
	name       string
	groups     []int
	byCode     map[string]*VariantRow
	byBodyPart map[string]*VariantRow
}

// MissPolicies selects the floor-lookup miss policy of each adjustment
// table.
type MissPolicies struct {
	Occupational generic.MissPolicy
	Age          generic.MissPolicy
}

// DefaultMissPolicies falls back to the smallest row in both tables.
func DefaultMissPolicies() MissPolicies {
	return MissPolicies{Occupational: generic.FallbackToNearest, Age: generic.FallbackToNearest}
}

// Build indexes a Dataset with DefaultMissPolicies.
func Build(ds Dataset) (*Tables, error) {
	return BuildWithPolicies(ds, DefaultMissPolicies())
}

// BuildWithPolicies indexes a Dataset, giving each adjustment table its own
// miss policy.
func BuildWithPolicies(ds Dataset, policies MissPolicies) (*Tables, error) {
	t := &Tables{
		occupations:  make([]Occupation, len(ds.Occupations)),
		foldedTitles: make([]string, len(ds.Occupations)),
	}
	copy(t.occupations, ds.Occupations)
	for i, o := range t.occupations {
		t.foldedTitles[i] = fold(o.Title)
	}

	var err error
	if t.low, err = indexPartition(PartitionLow, ds.Variants); err != nil {
		return nil, err
	}
	if t.high, err = indexPartition(PartitionHigh, ds.Variants2); err != nil {
		return nil, err
	}

	occRows := make([]generic.FloorRow[map[Variant]decimal.Decimal], len(ds.Occupational))
	for i, r := range ds.Occupational {
		occRows[i] = generic.FloorRow[map[Variant]decimal.Decimal]{Key: r.Rating, Value: r.Values}
	}
	if t.occupational, err = generic.NewFloorTable(TableOccupational, policies.Occupational, occRows); err != nil {
		return nil, err
	}

	ageRows := make([]generic.FloorRow[map[AgeBracket]decimal.Decimal], len(ds.Age))
	for i, r := range ds.Age {
		ageRows[i] = generic.FloorRow[map[AgeBracket]decimal.Decimal]{Key: r.WPI, Value: r.Values}
	}
	if t.age, err = generic.NewFloorTable(TableAge, policies.Age, ageRows); err != nil {
		return nil, err
	}
	return t, nil
}

func indexPartition(name string, p VariantPartition) (*partitionIndex, error) {
	idx := &partitionIndex{
		name:       name,
		groups:     append([]int(nil), p.Groups...),
		byCode:     make(map[string]*VariantRow, len(p.Rows)),
		byBodyPart: make(map[string]*VariantRow, len(p.Rows)),
	}
	for i := range p.Rows {
		row := &p.Rows[i]
		bp := strings.ToUpper(strings.TrimSpace(row.BodyPart))
		if bp == "" {
			return nil, &generic.SchemaError{Table: name, Detail: fmt.Sprintf("row %d has no body_part", i+1)}
		}
		// First row wins, as with a SELECT ... LIMIT 1.
		if _, ok := idx.byBodyPart[bp]; !ok {
			idx.byBodyPart[bp] = row
		}
		if code := strings.TrimSpace(row.ImpairmentCode); code != "" {
			if _, ok := idx.byCode[code]; !ok {
				idx.byCode[code] = row
			}
		}
	}
	return idx, nil
}

func fold(s string) string {
	// Casers carry state; one per call keeps Tables safe for concurrent use.
	return cases.Fold().String(strings.TrimSpace(s))
}

// =============================================================================
// OCCUPATION RESOLUTION
// =============================================================================

// ResolveGroup maps occupation text to a group number.
//
// Order: "<digits><letter>" codes, fixed aliases, case-insensitive substring
// of a directory title, then any word longer than two characters.
func (t *Tables) ResolveGroup(occupation string) (int, error) {
	text := strings.TrimSpace(occupation)
	if text == "" {
		return 0, &generic.InputError{Field: "occupation", Reason: "must not be empty"}
	}

	if m := groupCodePattern.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, &generic.InputError{Field: "occupation", Value: text, Reason: "group number out of range"}
		}
		return n, nil
	}

	folded := fold(text)
	for _, a := range occupationAliases {
		if strings.Contains(folded, a.term) {
			return a.group, nil
		}
	}

	if o, ok := t.firstTitleContaining(folded); ok {
		return o.Group, nil
	}

	for _, word := range strings.Fields(folded) {
		if utf8.RuneCountInString(word) <= 2 {
			continue
		}
		if o, ok := t.firstTitleContaining(word); ok {
			return o.Group, nil
		}
	}

	return 0, &generic.OccupationNotFoundError{Occupation: text}
}

func (t *Tables) firstTitleContaining(foldedNeedle string) (Occupation, bool) {
	for i, title := range t.foldedTitles {
		if strings.Contains(title, foldedNeedle) {
			return t.occupations[i], true
		}
	}
	return Occupation{}, false
}

// SearchOccupations returns up to limit directory entries whose title
// contains query, case-insensitively. An empty query lists the directory.
// limit <= 0 means no limit.
func (t *Tables) SearchOccupations(query string, limit int) []Occupation {
	q := fold(query)
	out := []Occupation{}
	for i, title := range t.foldedTitles {
		if q != "" && !strings.Contains(title, q) {
			continue
		}
		out = append(out, t.occupations[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// =============================================================================
// VARIANT RESOLUTION
// =============================================================================

// VariantMatch describes how a variant letter was found.
type VariantMatch struct {
	Variant   Variant
	Partition string
	BodyPart  string // the row that supplied the letter
	Fallback  bool   // true when the ARM/LEG retry supplied it
}

// ResolveVariant finds the variant letter for a group and impairment code.
func (t *Tables) ResolveVariant(group int, impairmentCode string) (VariantMatch, error) {
	p := t.low
	if group >= PartitionBoundary {
		p = t.high
	}
	code := strings.TrimSpace(impairmentCode)
	bucket := BucketFor(code)
	extremity := ExtremityFor(code, bucket)
	notFound := &generic.VariantNotFoundError{Group: group, ImpairmentCode: code, Partition: p.name}

	row, fallback := p.byCode[code], false
	if row == nil {
		row = p.byBodyPart[bucket]
	}
	if row == nil && extremity != "" {
		row, fallback = p.byBodyPart[extremity], true
	}
	if row == nil {
		return VariantMatch{}, notFound
	}

	v := row.Groups[group]
	if v == "" && extremity != "" {
		if ext := p.byBodyPart[extremity]; ext != nil {
			row, fallback = ext, true
			v = ext.Groups[group]
		}
	}
	if v == "" {
		return VariantMatch{}, notFound
	}

	return VariantMatch{
		Variant:   v,
		Partition: p.name,
		BodyPart:  row.BodyPart,
		Fallback:  fallback,
	}, nil
}

// =============================================================================
// ADJUSTMENTS
// =============================================================================

// AdjustOccupational returns the occupationally adjusted WPI. The cell value
// is the adjusted rating itself, not a multiplier.
func (t *Tables) AdjustOccupational(rating decimal.Decimal, v Variant) (decimal.Decimal, error) {
	if !v.Valid() {
		return decimal.Zero, &generic.AdjustmentNotFoundError{
			Table:  TableOccupational,
			Key:    rating.String(),
			Column: v.Column(),
			Reason: "invalid variant label",
		}
	}
	row, err := t.occupational.Lookup(rating)
	if err != nil {
		return decimal.Zero, err
	}
	val, ok := row.Value[v]
	if !ok {
		return decimal.Zero, &generic.AdjustmentNotFoundError{
			Table:  TableOccupational,
			Key:    row.Key.String(),
			Column: v.Column(),
			Reason: "column missing from row",
		}
	}
	return val, nil
}

// AdjustAge returns the age-adjusted WPI for a claimant age.
func (t *Tables) AdjustAge(age int, wpi decimal.Decimal) (decimal.Decimal, error) {
	bracket, err := BracketFor(age)
	if err != nil {
		return decimal.Zero, &generic.InputError{Field: "age", Value: age, Reason: err.Error()}
	}
	row, err := t.age.Lookup(wpi)
	if err != nil {
		return decimal.Zero, err
	}
	val, ok := row.Value[bracket]
	if !ok {
		return decimal.Zero, &generic.AdjustmentNotFoundError{
			Table:  TableAge,
			Key:    row.Key.String(),
			Column: string(bracket),
			Reason: "column missing from row",
		}
	}
	return val, nil
}

// =============================================================================
// INTROSPECTION
// =============================================================================

// Stats summarises table sizes.
type Stats struct {
	Occupations     int `json:"occupations"`
	VariantRows     int `json:"variant_rows"`
	Variant2Rows    int `json:"variant_2_rows"`
	OccupationalRow int `json:"occupational_rows"`
	AgeRows         int `json:"age_rows"`
}

// MissPolicies reports the policies the adjustment tables were built with.
func (t *Tables) MissPolicies() MissPolicies {
	return MissPolicies{Occupational: t.occupational.Policy(), Age: t.age.Policy()}
}

func (t *Tables) Stats() Stats {
	return Stats{
		Occupations:     len(t.occupations),
		VariantRows:     len(t.low.byBodyPart),
		Variant2Rows:    len(t.high.byBodyPart),
		OccupationalRow: t.occupational.Len(),
		AgeRows:         t.age.Len(),
	}
}

// Groups returns the group columns of both partitions, low then high.
func (t *Tables) Groups() []int {
	out := make([]int, 0, len(t.low.groups)+len(t.high.groups))
	out = append(out, t.low.groups...)
	return append(out, t.high.groups...)
}
