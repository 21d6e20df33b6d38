/*
Package lookup holds the read-only reference tables of the rating schedule.

PURPOSE:
  Four tables drive every rating:
  - Occupation directory: occupation title -> group number
  - Variant tables: (impairment, group) -> variant letter, split in two
    partitions at group 310 (variants / variants_2)
  - Occupational adjustment: (rating percent, variant) -> adjusted WPI
  - Age adjustment: (WPI percent, age bracket) -> adjusted WPI

  Tables are built once from a Dataset (CSV, SQLite, Postgres) and are safe
  for concurrent reads afterwards.

FLOOR MATCH:
  Both adjustment tables are generic.FloorTable values: the row with the
  largest key <= target wins, and a target below every key falls back to the
  smallest row (generic.FallbackToNearest).

SEE ALSO:
  - tables.go: Resolution and adjustment operations
  - bucket.go: Impairment code -> body-part bucket aliases
  - csv.go: Delimited-file loader
  - store/sqlite, store/postgres: Relational loaders
*/
package lookup

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// VARIANT - Occupational demand letter
// =============================================================================

// Variant is an uppercase letter C..J.
type Variant string

const variantLetters = "CDEFGHIJ"

// Variants lists every valid variant in column order.
var Variants = []Variant{"C", "D", "E", "F", "G", "H", "I", "J"}

// ParseVariant normalises s ("h", " H ") to a Variant.
func ParseVariant(s string) (Variant, error) {
	v := Variant(strings.ToUpper(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("invalid variant label %q", s)
	}
	return v, nil
}

func (v Variant) Valid() bool {
	return len(v) == 1 && strings.Contains(variantLetters, string(v))
}

// Column is the occupational-adjustment column name ("h").
func (v Variant) Column() string {
	return strings.ToLower(string(v))
}

// =============================================================================
// AGE BRACKET - Column labels of the age adjustment table
// =============================================================================

type AgeBracket string

const (
	Age21AndUnder AgeBracket = "21_and_under"
	Age22To26     AgeBracket = "22_to_26"
	Age27To31     AgeBracket = "27_to_31"
	Age32To36     AgeBracket = "32_to_36"
	Age37To41     AgeBracket = "37_to_41"
	Age42To46     AgeBracket = "42_to_46"
	Age47To51     AgeBracket = "47_to_51"
	Age52To56     AgeBracket = "52_to_56"
	Age57To61     AgeBracket = "57_to_61"
	Age62AndOver  AgeBracket = "62_and_over"
)

// AgeBrackets lists brackets in column order.
var AgeBrackets = []AgeBracket{
	Age21AndUnder, Age22To26, Age27To31, Age32To36, Age37To41,
	Age42To46, Age47To51, Age52To56, Age57To61, Age62AndOver,
}

// ageBracketUpper holds the inclusive upper age of each bracket except the last.
var ageBracketUpper = []int{21, 26, 31, 36, 41, 46, 51, 56, 61}

// BracketFor maps an age to its bracket. Ages must be non-negative.
func BracketFor(age int) (AgeBracket, error) {
	if age < 0 {
		return "", fmt.Errorf("age %d is negative", age)
	}
	for i, upper := range ageBracketUpper {
		if age <= upper {
			return AgeBrackets[i], nil
		}
	}
	return Age62AndOver, nil
}

// =============================================================================
// ROWS - Raw reference data as loaded from a source
// =============================================================================

// Occupation is one entry of the occupation directory.
type Occupation struct {
	Group    int    `json:"group_number"`
	Title    string `json:"occupation_title"`
	Industry string `json:"industry,omitempty"`
}

// VariantRow maps one body part / impairment code to a letter per group.
// A missing or empty group entry means the cell was blank.
type VariantRow struct {
	BodyPart       string
	ImpairmentCode string
	Groups         map[int]Variant
}

// VariantPartition is one variant table (variants or variants_2).
type VariantPartition struct {
	Name   string
	Groups []int // column order, as group_<n>
	Rows   []VariantRow
}

// OccupationalRow is one row of the occupational adjustment matrix.
type OccupationalRow struct {
	Rating decimal.Decimal
	Values map[Variant]decimal.Decimal
}

// AgeRow is one row of the age adjustment matrix.
type AgeRow struct {
	WPI    decimal.Decimal
	Values map[AgeBracket]decimal.Decimal
}

// Partition names, also used as SQL table names.
const (
	PartitionLow  = "variants"
	PartitionHigh = "variants_2"
)

// PartitionBoundary is the first group number served by variants_2.
const PartitionBoundary = 310

// PartitionFor names the variant table serving group.
func PartitionFor(group int) string {
	if group >= PartitionBoundary {
		return PartitionHigh
	}
	return PartitionLow
}

// Dataset is the complete raw reference data.
type Dataset struct {
	Occupations  []Occupation
	Variants     VariantPartition
	Variants2    VariantPartition
	Occupational []OccupationalRow
	Age          []AgeRow
}

// GroupColumn is the column label for group n.
func GroupColumn(n int) string {
	return fmt.Sprintf("group_%d", n)
}
