/*
Package sqlite provides a SQLite-backed reference data store.

PURPOSE:
  Persists the five reference tables (occupations, variants, variants_2,
  occupational_adjustments, age_adjustment) and materialises them as
  lookup.Tables at startup. Implements lookup.Source.

SEEDING:
  ImportDataset only fills tables that are empty, so seeding on every boot
  is idempotent. ReplaceDataset clears the tables first.

  Variant tables gain group_<n> columns on import when a dataset carries
  groups the schema does not have yet.

USAGE:
  store, err := sqlite.New("./data/reference.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ds, _ := lookup.ReadDataset(lookup.SeedFS())
  store.ImportDataset(ctx, ds)

  tables, err := store.LoadTables(ctx, lookup.DefaultMissPolicies())

SEE ALSO:
  - store/db.go: Import and load logic
  - store/postgres: Same contract on PostgreSQL
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/pd-rating/store"
)

// Store is a SQLite reference data store.
type Store struct {
	*store.DB
}

// New opens (or creates) a SQLite database at dbPath.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// ":memory:" databases are per connection.
	db.SetMaxOpenConns(1)

	s, err := store.Open(context.Background(), db, store.SQLite)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{DB: s}, nil
}
