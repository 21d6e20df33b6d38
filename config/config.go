/*
Package config holds the runtime configuration shared by the server and CLI.

PURPOSE:
  One Config struct parsed from PDR_* environment variables, then
  overridden by command-line flags. It names where reference tables come
  from, which rating schedule applies and how the engine runs.

ENVIRONMENT:
  PDR_PORT              HTTP port (default 8080)
  PDR_SOURCE            seed | csv | sqlite | postgres (default seed)
  PDR_DATA_DIR          CSV directory for source=csv, or seed data for a db
  PDR_DB                SQLite path (default pdrating.db)
  PDR_POSTGRES_DSN      PostgreSQL DSN for source=postgres
  PDR_SEED              Import seed rows into empty db tables (default true)
  PDR_SCHEDULE          Built-in schedule name (default "default")
  PDR_SCHEDULE_FILE     JSON or YAML schedule file; wins over PDR_SCHEDULE
  PDR_FAILURE_POLICY    strict | lenient; overrides the schedule's policy
  PDR_WORKERS           Concurrent impairment adjustments (default 4)
  PDR_CORS_ORIGINS      Comma-separated allowed origins
  PDR_SHUTDOWN_TIMEOUT  Graceful shutdown window (default 30s)
  PDR_RELOAD_INTERVAL   Reference table reload period (default 0, off)

SEE ALSO:
  - config/open.go: Turns a Config into a source and schedule
  - cmd/server/main.go, cmd/pdrate: Callers
*/
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/warp/pd-rating/generic"
	"github.com/warp/pd-rating/rating"
)

// Source kinds.
const (
	SourceSeed     = "seed"
	SourceCSV      = "csv"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// Config holds runtime configuration.
type Config struct {
	Port            int           `env:"PDR_PORT"             envDefault:"8080"`
	Source          string        `env:"PDR_SOURCE"           envDefault:"seed"`
	DataDir         string        `env:"PDR_DATA_DIR"`
	DBPath          string        `env:"PDR_DB"               envDefault:"pdrating.db"`
	PostgresDSN     string        `env:"PDR_POSTGRES_DSN"`
	Seed            bool          `env:"PDR_SEED"             envDefault:"true"`
	Schedule        string        `env:"PDR_SCHEDULE"         envDefault:"default"`
	ScheduleFile    string        `env:"PDR_SCHEDULE_FILE"`
	FailurePolicy   string        `env:"PDR_FAILURE_POLICY"`
	Workers         int           `env:"PDR_WORKERS"          envDefault:"4"`
	AllowedOrigins  []string      `env:"PDR_CORS_ORIGINS"     envDefault:"http://localhost:5173,http://localhost:8080" envSeparator:","`
	ShutdownTimeout time.Duration `env:"PDR_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	ReloadInterval  time.Duration `env:"PDR_RELOAD_INTERVAL"  envDefault:"0s"`
}

// ParseEnv loads configuration from environment variables without
// validating it, so flags can still amend it.
func ParseEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Parse loads and validates configuration from environment variables.
func Parse() (Config, error) {
	cfg, err := ParseEnv()
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// ParseFlags loads the environment, then applies flags from args.
func ParseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg, err := ParseEnv()
	if err != nil {
		return Config{}, err
	}

	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.StringVar(&cfg.Source, "source", cfg.Source, "reference data source: seed, csv, sqlite or postgres")
	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "directory of reference CSV files")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite database path (\":memory:\" for in-memory)")
	fs.StringVar(&cfg.PostgresDSN, "postgres", cfg.PostgresDSN, "PostgreSQL DSN")
	fs.BoolVar(&cfg.Seed, "seed", cfg.Seed, "import reference rows into empty database tables")
	fs.StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "built-in rating schedule")
	fs.StringVar(&cfg.ScheduleFile, "schedule-file", cfg.ScheduleFile, "rating schedule file (JSON or YAML)")
	fs.StringVar(&cfg.FailurePolicy, "policy", cfg.FailurePolicy, "failure policy override: strict or lenient")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "concurrent impairment adjustments")
	fs.DurationVar(&cfg.ReloadInterval, "reload", cfg.ReloadInterval, "reference table reload interval (0 disables)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	switch c.Source {
	case SourceSeed, SourceCSV, SourceSQLite, SourcePostgres:
	default:
		return &generic.InputError{Field: "source", Value: c.Source, Reason: "must be seed, csv, sqlite or postgres"}
	}
	if c.Source == SourceCSV && c.DataDir == "" {
		return &generic.InputError{Field: "data_dir", Reason: "required for the csv source"}
	}
	if c.Source == SourceSQLite && c.DBPath == "" {
		return &generic.InputError{Field: "db_path", Reason: "required for the sqlite source"}
	}
	if c.Source == SourcePostgres && c.PostgresDSN == "" {
		return &generic.InputError{Field: "postgres_dsn", Reason: "required for the postgres source"}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return &generic.InputError{Field: "port", Value: c.Port, Reason: "must be 1-65535"}
	}
	if c.Workers < 1 {
		return &generic.InputError{Field: "workers", Value: c.Workers, Reason: "must be at least 1"}
	}
	if c.ReloadInterval < 0 {
		return &generic.InputError{Field: "reload_interval", Value: c.ReloadInterval, Reason: "must not be negative"}
	}
	if _, err := rating.ParseFailurePolicy(c.FailurePolicy); err != nil {
		return err
	}
	return nil
}
