package lookup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/pd-rating/generic"
)

// =============================================================================
// RAW TABLES - Header plus string cells, the common shape of every source
// =============================================================================

// RawTable is one reference table as delimited text or SQL rows. Empty
// cells stand for blank or NULL values.
type RawTable struct {
	Name   string
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewRawTable indexes header names case-insensitively.
func NewRawTable(name string, header []string, rows [][]string) *RawTable {
	t := &RawTable{Name: name, Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		t.index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return t
}

// TableReader returns the raw contents of a named table.
type TableReader func(table string) (*RawTable, error)

// TableNames lists every reference table in load order.
var TableNames = []string{TableOccupations, PartitionLow, PartitionHigh, TableOccupational, TableAge}

func (t *RawTable) col(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, &generic.SchemaError{Table: t.Name, Detail: fmt.Sprintf("missing column %q", name)}
	}
	return i, nil
}

func (t *RawTable) cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *RawTable) decimalAt(row []string, i, line int) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(t.cell(row, i))
	if err != nil {
		return decimal.Zero, &generic.SchemaError{
			Table:  t.Name,
			Detail: fmt.Sprintf("line %d column %s: %q is not a number", line, t.Header[i], t.cell(row, i)),
		}
	}
	return d, nil
}

// =============================================================================
// DECODE
// =============================================================================

// DecodeDataset reads every table through read.
func DecodeDataset(read TableReader) (Dataset, error) {
	var ds Dataset

	t, err := read(TableOccupations)
	if err != nil {
		return Dataset{}, err
	}
	if ds.Occupations, err = decodeOccupations(t); err != nil {
		return Dataset{}, err
	}

	if t, err = read(PartitionLow); err != nil {
		return Dataset{}, err
	}
	if ds.Variants, err = decodeVariants(t); err != nil {
		return Dataset{}, err
	}

	if t, err = read(PartitionHigh); err != nil {
		return Dataset{}, err
	}
	if ds.Variants2, err = decodeVariants(t); err != nil {
		return Dataset{}, err
	}

	if t, err = read(TableOccupational); err != nil {
		return Dataset{}, err
	}
	if ds.Occupational, err = decodeOccupational(t); err != nil {
		return Dataset{}, err
	}

	if t, err = read(TableAge); err != nil {
		return Dataset{}, err
	}
	if ds.Age, err = decodeAge(t); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

func decodeOccupations(t *RawTable) ([]Occupation, error) {
	gi, err := t.col("group_number")
	if err != nil {
		return nil, err
	}
	ti, err := t.col("occupation_title")
	if err != nil {
		return nil, err
	}
	ii, hasIndustry := t.index["industry"]

	out := make([]Occupation, 0, len(t.Rows))
	for n, row := range t.Rows {
		g, err := strconv.Atoi(t.cell(row, gi))
		if err != nil {
			return nil, &generic.SchemaError{Table: t.Name, Detail: fmt.Sprintf("line %d: bad group_number %q", n+2, t.cell(row, gi))}
		}
		o := Occupation{Group: g, Title: t.cell(row, ti)}
		if hasIndustry {
			o.Industry = t.cell(row, ii)
		}
		out = append(out, o)
	}
	return out, nil
}

func decodeVariants(t *RawTable) (VariantPartition, error) {
	bi, err := t.col("body_part")
	if err != nil {
		return VariantPartition{}, err
	}
	ci, err := t.col("impairment_code")
	if err != nil {
		return VariantPartition{}, err
	}

	type groupCol struct{ group, index int }
	var cols []groupCol
	for i, h := range t.Header {
		if g, ok := ParseGroupColumn(h); ok {
			cols = append(cols, groupCol{g, i})
		}
	}
	if len(cols) == 0 {
		return VariantPartition{}, &generic.SchemaError{Table: t.Name, Detail: "no group_<n> columns"}
	}

	p := VariantPartition{Name: t.Name, Groups: make([]int, len(cols))}
	for i, c := range cols {
		p.Groups[i] = c.group
	}
	for n, row := range t.Rows {
		vr := VariantRow{
			BodyPart:       t.cell(row, bi),
			ImpairmentCode: t.cell(row, ci),
			Groups:         make(map[int]Variant, len(cols)),
		}
		for _, c := range cols {
			cell := t.cell(row, c.index)
			if cell == "" {
				continue
			}
			v, err := ParseVariant(cell)
			if err != nil {
				return VariantPartition{}, &generic.SchemaError{Table: t.Name, Detail: fmt.Sprintf("line %d: %v", n+2, err)}
			}
			vr.Groups[c.group] = v
		}
		p.Rows = append(p.Rows, vr)
	}
	return p, nil
}

// ParseGroupColumn parses "group_380" into 380.
func ParseGroupColumn(h string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(h)), "group_")
	if !ok {
		return 0, false
	}
	g, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return g, true
}

func decodeOccupational(t *RawTable) ([]OccupationalRow, error) {
	ki, err := t.col("rating_percent")
	if err != nil {
		return nil, err
	}
	cols := map[Variant]int{}
	for _, v := range Variants {
		if i, ok := t.index[v.Column()]; ok {
			cols[v] = i
		}
	}
	if len(cols) == 0 {
		return nil, &generic.SchemaError{Table: t.Name, Detail: "no variant columns c..j"}
	}

	out := make([]OccupationalRow, 0, len(t.Rows))
	for n, row := range t.Rows {
		key, err := t.decimalAt(row, ki, n+2)
		if err != nil {
			return nil, err
		}
		r := OccupationalRow{Rating: key, Values: make(map[Variant]decimal.Decimal, len(cols))}
		for v, i := range cols {
			if t.cell(row, i) == "" {
				continue
			}
			if r.Values[v], err = t.decimalAt(row, i, n+2); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, nil
}

func decodeAge(t *RawTable) ([]AgeRow, error) {
	ki, err := t.col("wpi_percent")
	if err != nil {
		return nil, err
	}
	cols := make(map[AgeBracket]int, len(AgeBrackets))
	for _, b := range AgeBrackets {
		i, err := t.col(string(b))
		if err != nil {
			return nil, err
		}
		cols[b] = i
	}

	out := make([]AgeRow, 0, len(t.Rows))
	for n, row := range t.Rows {
		key, err := t.decimalAt(row, ki, n+2)
		if err != nil {
			return nil, err
		}
		r := AgeRow{WPI: key, Values: make(map[AgeBracket]decimal.Decimal, len(cols))}
		for b, i := range cols {
			if r.Values[b], err = t.decimalAt(row, i, n+2); err != nil {
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// =============================================================================
// ENCODE
// =============================================================================

// EncodeDataset renders a dataset as raw tables in TableNames order. Blank
// variant and occupational cells encode as "".
func EncodeDataset(ds Dataset) []*RawTable {
	occ := NewRawTable(TableOccupations, []string{"group_number", "occupation_title", "industry"}, nil)
	for _, o := range ds.Occupations {
		occ.Rows = append(occ.Rows, []string{strconv.Itoa(o.Group), o.Title, o.Industry})
	}

	tables := []*RawTable{occ, encodeVariants(PartitionLow, ds.Variants), encodeVariants(PartitionHigh, ds.Variants2)}

	header := []string{"rating_percent"}
	for _, v := range Variants {
		header = append(header, v.Column())
	}
	adj := NewRawTable(TableOccupational, header, nil)
	for _, r := range ds.Occupational {
		row := []string{r.Rating.String()}
		for _, v := range Variants {
			if val, ok := r.Values[v]; ok {
				row = append(row, val.String())
			} else {
				row = append(row, "")
			}
		}
		adj.Rows = append(adj.Rows, row)
	}

	header = []string{"wpi_percent"}
	for _, b := range AgeBrackets {
		header = append(header, string(b))
	}
	age := NewRawTable(TableAge, header, nil)
	for _, r := range ds.Age {
		row := []string{r.WPI.String()}
		for _, b := range AgeBrackets {
			row = append(row, r.Values[b].String())
		}
		age.Rows = append(age.Rows, row)
	}

	return append(tables, adj, age)
}

func encodeVariants(name string, p VariantPartition) *RawTable {
	header := []string{"body_part", "impairment_code"}
	for _, g := range p.Groups {
		header = append(header, GroupColumn(g))
	}
	t := NewRawTable(name, header, nil)
	for _, r := range p.Rows {
		row := []string{r.BodyPart, r.ImpairmentCode}
		for _, g := range p.Groups {
			row = append(row, string(r.Groups[g]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
