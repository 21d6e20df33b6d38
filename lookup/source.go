package lookup

import (
	"context"
	"embed"
	"io/fs"
	"os"
)

// =============================================================================
// SOURCE - Where reference data is materialised from
// =============================================================================

// Source materialises Tables once at startup, building the adjustment
// tables with the given miss policies. Implementations:
//   - CSVSource / SeedSource (this package)
//   - sqlite.Store (store/sqlite)
//   - postgres.Store (store/postgres)
type Source interface {
	LoadTables(ctx context.Context, policies MissPolicies) (*Tables, error)
}

//go:embed seed/*.csv
var seedFS embed.FS

// SeedFS returns the built-in reference CSVs.
func SeedFS() fs.FS {
	sub, err := fs.Sub(seedFS, "seed")
	if err != nil {
		panic(err) // embedded path is fixed at compile time
	}
	return sub
}

// CSVSource loads tables from a directory or any fs.FS.
type CSVSource struct {
	FS fs.FS
}

// DirSource reads CSV files from a directory on disk.
func DirSource(dir string) CSVSource {
	return CSVSource{FS: os.DirFS(dir)}
}

// SeedSource reads the built-in reference CSVs.
func SeedSource() CSVSource {
	return CSVSource{FS: SeedFS()}
}

func (s CSVSource) LoadTables(_ context.Context, policies MissPolicies) (*Tables, error) {
	ds, err := ReadDataset(s.FS)
	if err != nil {
		return nil, err
	}
	return BuildWithPolicies(ds, policies)
}

// Static serves a fixed Dataset, mostly for tests.
type Static struct {
	Dataset Dataset
}

func (s Static) LoadTables(_ context.Context, policies MissPolicies) (*Tables, error) {
	return BuildWithPolicies(s.Dataset, policies)
}
