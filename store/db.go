package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/warp/pd-rating/lookup"
)

// =============================================================================
// DB - Reference tables over database/sql
// =============================================================================

// DB stores reference tables in any database/sql database described by a
// Dialect. It implements lookup.Source.
type DB struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.RWMutex
}

// Open wraps db and creates the schema when missing.
func Open(ctx context.Context, db *sql.DB, d Dialect) (*DB, error) {
	s := &DB{db: db, dialect: d}
	for _, stmt := range d.Schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to migrate %s schema: %w", d.Name, err)
		}
	}
	return s, nil
}

// Close closes the underlying database.
func (s *DB) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *DB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Dialect reports the SQL flavour.
func (s *DB) Dialect() Dialect { return s.dialect }

// =============================================================================
// IMPORT
// =============================================================================

// ImportDataset writes every table of ds that is currently empty and
// returns the number of rows written per table.
func (s *DB) ImportDataset(ctx context.Context, ds lookup.Dataset) (map[string]int, error) {
	return s.importDataset(ctx, ds, false)
}

// ReplaceDataset clears every reference table and writes ds.
func (s *DB) ReplaceDataset(ctx context.Context, ds lookup.Dataset) (map[string]int, error) {
	return s.importDataset(ctx, ds, true)
}

func (s *DB) importDataset(ctx context.Context, ds lookup.Dataset, replace bool) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	written := make(map[string]int)
	for _, raw := range lookup.EncodeDataset(ds) {
		table := QuoteIdent(raw.Name)
		if replace {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return nil, fmt.Errorf("failed to clear %s: %w", raw.Name, err)
			}
		} else {
			var n int
			if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
				return nil, fmt.Errorf("failed to count %s: %w", raw.Name, err)
			}
			if n > 0 {
				continue
			}
		}

		have, err := columns(ctx, tx, raw.Name)
		if err != nil {
			return nil, err
		}
		for _, c := range MissingColumns(have, raw.Header) {
			if _, err := tx.ExecContext(ctx, s.dialect.AddColumn(raw.Name, c)); err != nil {
				return nil, fmt.Errorf("failed to add column %s.%s: %w", raw.Name, c, err)
			}
		}

		if err := insertRows(ctx, tx, s.dialect.Insert(raw.Name, raw.Header), raw.Rows); err != nil {
			return nil, fmt.Errorf("failed to insert into %s: %w", raw.Name, err)
		}
		written[raw.Name] = len(raw.Rows)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import: %w", err)
	}
	return written, nil
}

func insertRows(ctx context.Context, tx *sql.Tx, query string, rows [][]string) error {
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, NullIfEmpty(row)...); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// LOAD
// =============================================================================

// ReadDataset reads every reference table.
func (s *DB) ReadDataset(ctx context.Context) (lookup.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return lookup.DecodeDataset(func(table string) (*lookup.RawTable, error) {
		return s.readTable(ctx, table)
	})
}

// LoadTables implements lookup.Source.
func (s *DB) LoadTables(ctx context.Context, policies lookup.MissPolicies) (*lookup.Tables, error) {
	ds, err := s.ReadDataset(ctx)
	if err != nil {
		return nil, err
	}
	return lookup.BuildWithPolicies(ds, policies)
}

// Counts returns the row count of every reference table.
func (s *DB) Counts(ctx context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(lookup.TableNames))
	for _, table := range lookup.TableNames {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		out[table] = n
	}
	return out, nil
}

func (s *DB) readTable(ctx context.Context, table string) (*lookup.RawTable, error) {
	cols, err := columns(ctx, s.db, table)
	if err != nil {
		return nil, err
	}
	cols = DataColumns(cols)

	rows, err := s.db.QueryContext(ctx, s.dialect.Select(table, cols, s.dialect.TextCast))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		cells := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		row := make([]string, len(cols))
		for i, c := range cells {
			row[i] = c.String
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lookup.NewRawTable(table, cols, out), nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// columns lists a table's columns in declaration order.
func columns(ctx context.Context, db queryer, table string) ([]string, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", QuoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	defer rows.Close()
	return rows.Columns()
}
