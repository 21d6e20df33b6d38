package config

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sort"

	"github.com/warp/pd-rating/factory"
	"github.com/warp/pd-rating/lookup"
	"github.com/warp/pd-rating/rating"
	"github.com/warp/pd-rating/store"
	"github.com/warp/pd-rating/store/postgres"
	"github.com/warp/pd-rating/store/sqlite"
)

// =============================================================================
// REFERENCE DATA
// =============================================================================

// SeedData returns the CSV tables used to fill a database or serve the csv
// source: DataDir when set, the embedded seed otherwise.
func (c Config) SeedData() fs.FS {
	if c.DataDir != "" {
		return os.DirFS(c.DataDir)
	}
	return lookup.SeedFS()
}

// OpenStore opens the configured database. Only valid for the sqlite and
// postgres sources.
func (c Config) OpenStore(ctx context.Context) (*store.DB, error) {
	switch c.Source {
	case SourceSQLite:
		s, err := sqlite.New(c.DBPath)
		if err != nil {
			return nil, err
		}
		return s.DB, nil
	case SourcePostgres:
		s, err := postgres.New(ctx, c.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s.DB, nil
	}
	return nil, fmt.Errorf("source %s is not a database", c.Source)
}

// ReadDataset reads the raw reference rows from the configured source
// without seeding.
func (c Config) ReadDataset(ctx context.Context) (lookup.Dataset, error) {
	switch c.Source {
	case SourceSeed:
		return lookup.ReadDataset(lookup.SeedFS())
	case SourceCSV:
		return lookup.ReadDataset(os.DirFS(c.DataDir))
	}
	db, err := c.OpenStore(ctx)
	if err != nil {
		return lookup.Dataset{}, err
	}
	defer db.Close()
	return db.ReadDataset(ctx)
}

// OpenSource returns the configured lookup.Source and a function releasing
// it. Database sources are seeded first when Seed is set.
func (c Config) OpenSource(ctx context.Context, logger *log.Logger) (lookup.Source, func() error, error) {
	noop := func() error { return nil }
	switch c.Source {
	case SourceSeed:
		return lookup.SeedSource(), noop, nil
	case SourceCSV:
		return lookup.DirSource(c.DataDir), noop, nil
	}

	db, err := c.OpenStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if c.Seed {
		ds, err := lookup.ReadDataset(c.SeedData())
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		written, err := db.ImportDataset(ctx, ds)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		logImport(logger, c.Source, written)
	}
	return db, db.Close, nil
}

func logImport(logger *log.Logger, source string, written map[string]int) {
	if logger == nil || len(written) == 0 {
		return
	}
	tables := make([]string, 0, len(written))
	for t := range written {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		logger.Printf("[Store] %s: seeded %s with %d rows", source, t, written[t])
	}
}

// =============================================================================
// RATING
// =============================================================================

// LoadSchedule resolves the rating schedule: ScheduleFile, else the named
// built-in, then the FailurePolicy override.
func (c Config) LoadSchedule() (rating.Schedule, error) {
	f := factory.NewScheduleFactory()

	var (
		s   rating.Schedule
		err error
	)
	if c.ScheduleFile != "" {
		s, err = f.LoadFile(c.ScheduleFile)
	} else {
		s, err = f.LoadBuiltin(c.Schedule)
	}
	if err != nil {
		return rating.Schedule{}, err
	}

	if c.FailurePolicy != "" {
		if s.FailurePolicy, err = rating.ParseFailurePolicy(c.FailurePolicy); err != nil {
			return rating.Schedule{}, err
		}
	}
	return s, nil
}

// EngineOptions returns the engine options the config implies.
func (c Config) EngineOptions(logger *log.Logger) []rating.Option {
	opts := []rating.Option{rating.WithWorkers(c.Workers)}
	if logger != nil {
		opts = append(opts, rating.WithLogger(logger))
	}
	return opts
}

// NewEngine loads the schedule and reference tables and builds an engine.
// The returned function releases the source.
func (c Config) NewEngine(ctx context.Context, logger *log.Logger) (*rating.Engine, func() error, error) {
	schedule, err := c.LoadSchedule()
	if err != nil {
		return nil, nil, err
	}
	src, closeFn, err := c.OpenSource(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	engine, err := rating.Load(ctx, src, schedule, c.EngineOptions(logger)...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return engine, closeFn, nil
}
