/*
pdrate - Command-line permanent-disability rating

COMMANDS:
  rate          Rate a claimant from flags or a JSON request file
  import        Load reference CSV tables into SQLite or PostgreSQL
  export        Write the configured reference tables as CSV files
  occupations   Search the occupation directory
  resolve       Map occupation text to a group number
  variant       Look up the variant for a group and body part
  schedules     List built-in rating schedules

  Global flags select the reference source and schedule exactly like the
  server; each defaults to its PDR_* environment variable.

EXAMPLES:
  pdrate rate --occupation Carpenter --age 45 -i "lumbar spine=10,2"
  pdrate rate request.json --format json
  pdrate import --source sqlite --db ./reference.db --data ./export
  pdrate variant 380 "left knee"

SEE ALSO:
  - config/config.go: Shared configuration
*/
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/pd-rating/config"
)

var version = "0.1.0"

// exitErr carries a process exit code.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func exitError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

// app is the state shared by subcommands.
type app struct {
	cfg    config.Config
	envErr error
}

func (a *app) logger(cmd *cobra.Command) *log.Logger {
	return log.New(cmd.ErrOrStderr(), "", 0)
}

func newRootCmd() *cobra.Command {
	a := &app{}
	a.cfg, a.envErr = config.ParseEnv()

	root := &cobra.Command{
		Use:           "pdrate",
		Short:         "Rate permanent disability from whole-person impairments",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.envErr != nil {
				return exitError(3, "%v", a.envErr)
			}
			if err := a.cfg.Validate(); err != nil {
				return exitError(3, "invalid configuration: %v", err)
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfg.Source, "source", a.cfg.Source, "Reference source: seed, csv, sqlite or postgres")
	flags.StringVar(&a.cfg.DataDir, "data", a.cfg.DataDir, "Directory of reference CSV files")
	flags.StringVar(&a.cfg.DBPath, "db", a.cfg.DBPath, "SQLite database path")
	flags.StringVar(&a.cfg.PostgresDSN, "postgres", a.cfg.PostgresDSN, "PostgreSQL DSN")
	flags.BoolVar(&a.cfg.Seed, "seed", a.cfg.Seed, "Import reference rows into empty database tables")
	flags.StringVar(&a.cfg.Schedule, "schedule", a.cfg.Schedule, "Built-in rating schedule")
	flags.StringVar(&a.cfg.ScheduleFile, "schedule-file", a.cfg.ScheduleFile, "Rating schedule file (JSON or YAML)")
	flags.StringVar(&a.cfg.FailurePolicy, "policy", a.cfg.FailurePolicy, "Failure policy override: strict or lenient")
	flags.IntVar(&a.cfg.Workers, "workers", a.cfg.Workers, "Concurrent impairment adjustments")

	root.AddCommand(
		newRateCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newOccupationsCmd(a),
		newResolveCmd(a),
		newVariantCmd(a),
		newSchedulesCmd(a),
	)
	return root
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(stderr, ee.msg)
			return ee.code
		}
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
