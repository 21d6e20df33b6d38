/*
Package store holds the SQL schema shared by the relational reference stores.

PURPOSE:
  The five reference tables have the same columns in every database; only
  column types, the id column and bind placeholders differ. A Dialect
  captures those differences so store/sqlite and store/postgres generate
  identical schemas and statements.

TABLES:
  occupations               (id, group_number, occupation_title, industry)
  variants                  (id, body_part, impairment_code, group_110 ... group_290)
  variants_2                (id, body_part, impairment_code, group_310 ... group_590)
  occupational_adjustments  (id, rating_percent, c ... j)
  age_adjustment            (id, wpi_percent, "21_and_under" ... "62_and_over")

  Group columns are open-ended: importing a dataset with a new group adds
  its column.

SEE ALSO:
  - lookup/raw.go: RawTable, the row shape read from and written to SQL
  - store/db.go: DB, the database/sql implementation
  - store/sqlite, store/postgres: Drivers
*/
package store

import (
	"fmt"
	"strings"

	"github.com/warp/pd-rating/lookup"
)

// Default group columns of each variant partition.
var (
	DefaultLowGroups  = []int{110, 111, 112, 120, 210, 211, 212, 213, 214, 220, 221, 230, 240, 250, 251, 290}
	DefaultHighGroups = []int{310, 311, 320, 321, 322, 330, 331, 332, 340, 341, 350, 351, 360, 370, 380, 390, 420, 430, 460, 470, 480, 481, 482, 490, 491, 492, 493, 560, 590}
)

// =============================================================================
// DIALECT
// =============================================================================

// Dialect describes one SQL flavour.
type Dialect struct {
	Name     string
	IDColumn string // full id column definition
	Integer  string
	Numeric  string
	Text     string
	// TextCast, when set, wraps selected columns so every cell scans as text.
	TextCast string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

var SQLite = Dialect{
	Name:        "sqlite",
	IDColumn:    "id INTEGER PRIMARY KEY",
	Integer:     "INTEGER",
	Numeric:     "REAL",
	Text:        "TEXT",
	Placeholder: func(int) string { return "?" },
}

var Postgres = Dialect{
	Name:        "postgres",
	IDColumn:    "id BIGSERIAL PRIMARY KEY",
	Integer:     "INTEGER",
	Numeric:     "NUMERIC",
	Text:        "TEXT",
	TextCast:    "%s::text",
	Placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
}

// QuoteIdent double-quotes an identifier ("21_and_under" needs it).
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// ColumnType picks the SQL type for a reference column.
func (d Dialect) ColumnType(column string) string {
	c := strings.ToLower(column)
	switch {
	case c == "group_number":
		return d.Integer
	case c == "rating_percent", c == "wpi_percent":
		return d.Numeric
	case len(c) == 1 && lookup.Variant(strings.ToUpper(c)).Valid():
		return d.Numeric
	}
	for _, b := range lookup.AgeBrackets {
		if c == string(b) {
			return d.Numeric
		}
	}
	return d.Text
}

// DefaultColumns lists the data columns of a table, without id.
func DefaultColumns(table string) []string {
	switch table {
	case lookup.TableOccupations:
		return []string{"group_number", "occupation_title", "industry"}
	case lookup.PartitionLow:
		return variantColumns(DefaultLowGroups)
	case lookup.PartitionHigh:
		return variantColumns(DefaultHighGroups)
	case lookup.TableOccupational:
		cols := []string{"rating_percent"}
		for _, v := range lookup.Variants {
			cols = append(cols, v.Column())
		}
		return cols
	case lookup.TableAge:
		cols := []string{"wpi_percent"}
		for _, b := range lookup.AgeBrackets {
			cols = append(cols, string(b))
		}
		return cols
	}
	return nil
}

func variantColumns(groups []int) []string {
	cols := []string{"body_part", "impairment_code"}
	for _, g := range groups {
		cols = append(cols, lookup.GroupColumn(g))
	}
	return cols
}

// Schema returns the CREATE TABLE statements for every reference table.
func (d Dialect) Schema() []string {
	stmts := make([]string, 0, len(lookup.TableNames))
	for _, table := range lookup.TableNames {
		stmts = append(stmts, d.CreateTable(table, DefaultColumns(table)))
	}
	return stmts
}

// CreateTable renders CREATE TABLE IF NOT EXISTS for table.
func (d Dialect) CreateTable(table string, columns []string) string {
	defs := []string{d.IDColumn}
	for _, c := range columns {
		defs = append(defs, QuoteIdent(c)+" "+d.ColumnType(c))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", QuoteIdent(table), strings.Join(defs, ",\n\t"))
}

// AddColumn renders ALTER TABLE ... ADD COLUMN.
func (d Dialect) AddColumn(table, column string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", QuoteIdent(table), QuoteIdent(column), d.ColumnType(column))
}

// Insert renders a single-row INSERT for columns.
func (d Dialect) Insert(table string, columns []string) string {
	quoted := make([]string, len(columns))
	binds := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = QuoteIdent(c)
		binds[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		QuoteIdent(table), strings.Join(quoted, ", "), strings.Join(binds, ", "))
}

// Select renders a SELECT of columns ordered by id. cast, when set, wraps
// each column ("%s::text").
func (d Dialect) Select(table string, columns []string, cast string) string {
	exprs := make([]string, len(columns))
	for i, c := range columns {
		exprs[i] = QuoteIdent(c)
		if cast != "" {
			exprs[i] = fmt.Sprintf(cast, exprs[i])
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY id", strings.Join(exprs, ", "), QuoteIdent(table))
}

// MissingColumns returns the entries of want absent from have, compared
// case-insensitively.
func MissingColumns(have, want []string) []string {
	seen := make(map[string]bool, len(have))
	for _, h := range have {
		seen[strings.ToLower(h)] = true
	}
	var out []string
	for _, w := range want {
		if !seen[strings.ToLower(w)] {
			out = append(out, w)
		}
	}
	return out
}

// DataColumns drops the id column from a column list.
func DataColumns(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, c := range columns {
		if !strings.EqualFold(c, "id") {
			out = append(out, c)
		}
	}
	return out
}

// NullIfEmpty converts blank cells to NULL bind values.
func NullIfEmpty(row []string) []any {
	args := make([]any, len(row))
	for i, v := range row {
		if strings.TrimSpace(v) == "" {
			args[i] = nil
		} else {
			args[i] = v
		}
	}
	return args
}
