/*
Package postgres provides a PostgreSQL-backed reference data store.

PURPOSE:
  Same contract as store/sqlite on a shared PostgreSQL database, for
  deployments where several rating servers read one set of tables.
  Uses the pgx database/sql driver.

USAGE:
  store, err := postgres.New(ctx, "postgres://localhost:5432/pdrating?sslmode=disable")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  tables, err := store.LoadTables(ctx, lookup.DefaultMissPolicies())

SEE ALSO:
  - store/db.go: Import and load logic
*/
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx

	"github.com/warp/pd-rating/store"
)

// Store is a PostgreSQL reference data store.
type Store struct {
	*store.DB
}

// New connects to dsn and creates the schema when missing.
func New(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres: empty DSN")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	s, err := store.Open(ctx, db, store.Postgres)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{DB: s}, nil
}
