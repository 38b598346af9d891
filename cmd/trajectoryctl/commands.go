package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archivo-trayectoria/trayectoria/config"
	"github.com/archivo-trayectoria/trayectoria/internal/application/command"
	"github.com/archivo-trayectoria/trayectoria/internal/application/query"
	"github.com/archivo-trayectoria/trayectoria/internal/bootstrap"
	"github.com/archivo-trayectoria/trayectoria/internal/domain/trajectory"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/export/xlsx"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/importer"
	"github.com/archivo-trayectoria/trayectoria/internal/infrastructure/persistence/postgres"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "trajectoryctl",
		Short:         "Operate the student trajectory archive",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().Bool("verbose", false, "Log to stderr")

	root.AddCommand(
		newListCmd(),
		newPendingCmd(),
		newImportCmd(),
		newReportCmd(),
		newInterpretCmd(),
		newMigrateCmd(),
	)
	return root
}

// openRuntime loads configuration and opens the archive. Logs go to stderr
// with --verbose and are discarded otherwise, so stdout stays parseable.
func openRuntime(cmd *cobra.Command) (*bootstrap.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var w io.Writer = io.Discard
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		w = cmd.ErrOrStderr()
	}
	return bootstrap.Open(cmd.Context(), cfg, bootstrap.NewLogger(cfg.Observability, w))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List students, optionally filtered by name, DNI or course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			search, _ := cmd.Flags().GetString("search")
			course, _ := cmd.Flags().GetString("course")
			list, err := query.NewListStudentsHandler(rt.Archive).Handle(cmd.Context(), query.ListStudentsQuery{
				Search: search,
				Course: course,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), list)
		},
	}
	cmd.Flags().StringP("search", "q", "", "Name or DNI fragment")
	cmd.Flags().String("course", "", "Exact course label")
	return cmd
}

func newPendingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Show the subjects a student still owes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString("id")
			dni, _ := cmd.Flags().GetString("dni")
			year, _ := cmd.Flags().GetInt("year")
			if id == "" && dni == "" {
				return errors.New("one of --id or --dni is required")
			}

			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			dto, err := query.NewGetPendingHandler(rt.Archive).Handle(cmd.Context(), query.GetPendingQuery{
				StudentID:   id,
				DNI:         dni,
				ThroughYear: trajectory.SchoolYear(year),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dto)
		},
	}
	cmd.Flags().String("id", "", "Student id")
	cmd.Flags().String("dni", "", "Student DNI, matched exactly")
	cmd.Flags().Int("year", 0, "Evaluate through this year (default: the course year)")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a roster, one \"DNI NAME\" per line (stdin when no file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				text []byte
				err  error
			)
			if len(args) == 1 && args[0] != "-" {
				text, err = os.ReadFile(args[0])
			} else {
				text, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("failed to read roster: %w", err)
			}

			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if !rt.Config.Features.IsEnabled(config.FeatureBulkImport) {
				return errors.New("roster import is disabled")
			}

			course, _ := cmd.Flags().GetString("course")
			res, err := command.NewImportStudentsHandler(rt.Archive, importer.NewRosterParser(), nil, rt.Logger).
				Handle(cmd.Context(), command.ImportStudentsCommand{Text: string(text), Course: course})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "imported %d students\n", len(res.Students))
			return printJSON(cmd.OutOrStdout(), res.Students)
		},
	}
	cmd.Flags().String("course", "", "Course for every imported student")
	return cmd
}

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the grade sheet of a course",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			course, _ := cmd.Flags().GetString("course")
			year, _ := cmd.Flags().GetInt("year")
			out, _ := cmd.Flags().GetString("xlsx")

			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := query.NewGetCourseReportHandler(rt.Archive).Handle(cmd.Context(), query.GetCourseReportQuery{
				Course: course,
				Year:   trajectory.SchoolYear(year),
			})
			if err != nil {
				return err
			}

			if out == "" {
				return printJSON(cmd.OutOrStdout(), report)
			}
			if !rt.Config.Features.IsEnabled(config.FeatureReportXLSX) {
				return errors.New("spreadsheet export is disabled")
			}
			return writeWorkbook(out, report)
		},
	}
	cmd.Flags().String("course", "", "Course label, e.g. \"1°2° - T.T.\"")
	cmd.Flags().Int("year", 0, "School year (default: first digit of the course)")
	cmd.Flags().String("xlsx", "", "Write an .xlsx file; a directory gets the default file name")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func writeWorkbook(out string, report *query.CourseReportDTO) error {
	exporter := xlsx.NewCourseReportExporter()
	if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, exporter.Filename(report))
	}

	f, err := os.Create(out)
	if err != nil {
		return err
	}
	if err := exporter.Write(f, report); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func newInterpretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interpret <instruction>",
		Short: "Apply a free-text instruction through the interpreter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openRuntime(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var interpreter command.Interpreter
			if rt.Interpreter != nil {
				interpreter = rt.Interpreter
			}

			studentID, _ := cmd.Flags().GetString("id")
			res, err := command.NewInterpretHandler(rt.Archive, interpreter, nil, rt.Logger).Handle(cmd.Context(), command.InterpretCommand{
				Instruction: strings.Join(args, " "),
				StudentID:   studentID,
			})
			if err != nil {
				return err
			}
			if !res.Applied {
				return fmt.Errorf("instruction not applied: %s", res.Reason)
			}
			return printJSON(cmd.OutOrStdout(), res.Student)
		},
	}
	cmd.Flags().String("id", "", "Id of the current student given as context")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, inspect or roll back the postgres schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.Database.URL == "" {
				return errors.New("DATABASE_URL is required")
			}

			conn, err := postgres.NewConnectionFromURL(cmd.Context(), cfg.Database.URL, postgres.DefaultPoolConfig())
			if err != nil {
				return err
			}
			defer conn.Close()

			migrator := postgres.NewMigrator(conn)
			rollback, _ := cmd.Flags().GetBool("rollback")
			statusOnly, _ := cmd.Flags().GetBool("status")

			switch {
			case rollback:
				err = migrator.Rollback(cmd.Context())
			case !statusOnly:
				err = migrator.Migrate(cmd.Context())
			}
			if err != nil {
				return err
			}
			return printMigrations(cmd.Context(), cmd.OutOrStdout(), migrator)
		},
	}
	cmd.Flags().Bool("status", false, "Only print the migration status")
	cmd.Flags().Bool("rollback", false, "Roll back the last applied migration")
	return cmd
}

func printMigrations(ctx context.Context, w io.Writer, m *postgres.Migrator) error {
	status, err := m.Status(ctx)
	if err != nil {
		return err
	}
	for _, mig := range status {
		state := "pending"
		if mig.IsApplied {
			state = "applied " + mig.AppliedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(w, "%03d  %-32s %s\n", mig.Version, mig.Name, state)
	}
	return nil
}
