package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/warp/pd-rating/config"
	"github.com/warp/pd-rating/factory"
	"github.com/warp/pd-rating/lookup"
	"github.com/warp/pd-rating/rating"
)

// =============================================================================
// IMPORT / EXPORT
// =============================================================================

func newImportCmd(a *app) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load reference CSV tables (--data, or the embedded seed) into a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Source != config.SourceSQLite && a.cfg.Source != config.SourcePostgres {
				return exitError(2, "import needs --source sqlite or postgres")
			}
			ctx := cmd.Context()

			ds, err := lookup.ReadDataset(a.cfg.SeedData())
			if err != nil {
				return exitError(3, "failed to read CSV tables: %v", err)
			}
			db, err := a.cfg.OpenStore(ctx)
			if err != nil {
				return exitError(3, "failed to open %s: %v", a.cfg.Source, err)
			}
			defer db.Close()

			var written map[string]int
			if replace {
				written, err = db.ReplaceDataset(ctx, ds)
			} else {
				written, err = db.ImportDataset(ctx, ds)
			}
			if err != nil {
				return exitError(1, "import failed: %v", err)
			}

			out := cmd.OutOrStdout()
			if len(written) == 0 {
				fmt.Fprintln(out, "All tables already populated; use --replace to overwrite.")
				return nil
			}
			for _, table := range lookup.TableNames {
				if n, ok := written[table]; ok {
					fmt.Fprintf(out, "%s: %d rows\n", table, n)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Clear tables before importing")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write the configured reference tables as CSV files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			ds, err := a.cfg.ReadDataset(cmd.Context())
			if err != nil {
				return exitError(3, "failed to read reference tables: %v", err)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return exitError(1, "%v", err)
			}

			for _, raw := range lookup.EncodeDataset(ds) {
				path := filepath.Join(dir, raw.Name+".csv")
				if err := writeTable(path, raw); err != nil {
					return exitError(1, "failed to write %s: %v", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d rows\n", path, len(raw.Rows))
			}
			return nil
		},
	}
}

func writeTable(path string, raw *lookup.RawTable) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := lookup.WriteCSV(f, raw); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// =============================================================================
// LOOKUPS
// =============================================================================

func (a *app) tables(cmd *cobra.Command) (*lookup.Tables, error) {
	schedule, err := a.cfg.LoadSchedule()
	if err != nil {
		return nil, exitError(3, "%v", err)
	}
	src, closeFn, err := a.cfg.OpenSource(cmd.Context(), a.logger(cmd))
	if err != nil {
		return nil, exitError(3, "failed to open reference source: %v", err)
	}
	defer closeFn()

	tables, err := src.LoadTables(cmd.Context(), schedule.MissPolicies)
	if err != nil {
		return nil, exitError(3, "failed to load reference tables: %v", err)
	}
	return tables, nil
}

func newOccupationsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "occupations [query]",
		Short: "Search the occupation directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := a.tables(cmd)
			if err != nil {
				return err
			}
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "GROUP\tOCCUPATION\tINDUSTRY")
			for _, o := range tables.SearchOccupations(query, limit) {
				fmt.Fprintf(tw, "%d\t%s\t%s\n", o.Group, o.Title, o.Industry)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum results (0 for all)")
	return cmd
}

func newResolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <occupation>",
		Short: "Map occupation text to a group number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := a.tables(cmd)
			if err != nil {
				return err
			}
			group, err := tables.ResolveGroup(args[0])
			if err != nil {
				return exitError(4, "%v", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), group)
			return nil
		},
	}
}

func newVariantCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "variant <group|occupation> <body part>",
		Short: "Look up the variant letter for a group and body part",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := a.tables(cmd)
			if err != nil {
				return err
			}

			group, err := strconv.Atoi(args[0])
			if err != nil {
				if group, err = tables.ResolveGroup(args[0]); err != nil {
					return exitError(4, "%v", err)
				}
			}
			code := rating.CodeFor(args[1])
			m, err := tables.ResolveVariant(group, code)
			if err != nil {
				return exitError(4, "%v", err)
			}

			via := ""
			if m.Fallback {
				via = ", extremity fallback"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d%s %s (%s row of %s%s)\n", group, m.Variant, code, m.BodyPart, m.Partition, via)
			return nil
		},
	}
}

// =============================================================================
// SCHEDULES
// =============================================================================

func newSchedulesCmd(a *app) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "schedules",
		Short: "List built-in rating schedules, or --show the active one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if show {
				s, err := a.cfg.LoadSchedule()
				if err != nil {
					return exitError(3, "%v", err)
				}
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(factory.ToJSON(s)); err != nil {
					return err
				}
				return enc.Close()
			}

			for _, name := range factory.Builtins() {
				marker := " "
				if a.cfg.ScheduleFile == "" && name == a.cfg.Schedule {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "Print the active schedule as YAML")
	return cmd
}
