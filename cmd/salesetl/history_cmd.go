package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	importapp "github.com/erp/salesetl/internal/application/import"
	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/erp/salesetl/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type historyOptions struct {
	limit     int
	format    string
	errorsCSV string
}

func newHistoryCmd(root *rootOptions) *cobra.Command {
	var opts historyOptions

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent load runs or show one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != "text" && opts.format != "json" {
				return bulk.NewConfigurationError("format", "unknown format %q (want text or json)", opts.format)
			}
			var id uuid.UUID
			if len(args) == 1 {
				parsed, err := uuid.Parse(args[0])
				if err != nil {
					return withCode(exitConfig, fmt.Errorf("invalid run id %q: %w", args[0], err))
				}
				id = parsed
			} else if opts.errorsCSV != "" {
				return withCode(exitConfig, errors.New("--errors-csv needs a run id"))
			}

			return withApp(cmd, root, func(a *app) error {
				if a.cfg.Database.DSN() == "" {
					return &bulk.ConfigurationError{Setting: "database.url", Err: persistence.ErrMissingDSN}
				}
				db, err := a.openDatabase()
				if err != nil {
					return err
				}
				svc := importapp.NewRunHistoryService(persistence.NewGormLoadRunRepository(db.DB))
				out := cmd.OutOrStdout()
				ctx := cmd.Context()

				if id == uuid.Nil {
					runs, err := svc.Recent(ctx, opts.limit)
					if err != nil {
						return err
					}
					return writeRuns(out, opts.format, runs)
				}

				if opts.errorsCSV != "" {
					content, name, err := svc.ErrorsCSV(ctx, id)
					if err != nil {
						return historyError(id, err)
					}
					return writeErrorsCSV(out, opts.errorsCSV, name, content)
				}

				run, err := svc.Get(ctx, id)
				if err != nil {
					return historyError(id, err)
				}
				return writeRun(out, opts.format, run)
			})
		},
	}

	cmd.Flags().IntVar(&opts.limit, "limit", importapp.DefaultHistoryLimit, "Number of runs to list")
	cmd.Flags().StringVar(&opts.format, "format", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.errorsCSV, "errors-csv", "", "Export the run's row errors as CSV to this path (- for stdout, a directory for the default name)")
	return cmd
}

func historyError(id uuid.UUID, err error) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("load run %s not found", id)
	}
	return err
}

func writeRuns(w io.Writer, format string, runs []*bulk.LoadRun) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSTATUS\tMODE\tERRORS\tINVOICE TOTAL\tSOURCE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			r.ID, formatTime(r.StartedAt), r.Status, r.ConflictMode, r.ErrorCount, r.InvoiceTotal.StringFixed(2), r.Source)
	}
	return tw.Flush()
}

func writeRun(w io.Writer, format string, r *bulk.LoadRun) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", r.ID)
	fmt.Fprintf(tw, "Source:\t%s\n", r.Source)
	fmt.Fprintf(tw, "Status:\t%s\n", r.Status)
	fmt.Fprintf(tw, "Conflict mode:\t%s\n", r.ConflictMode)
	fmt.Fprintf(tw, "Started:\t%s\n", formatTime(r.StartedAt))
	fmt.Fprintf(tw, "Completed:\t%s\n", formatTime(r.CompletedAt))
	fmt.Fprintf(tw, "Duration:\t%s\n", r.Duration().Round(time.Millisecond))
	fmt.Fprintf(tw, "Invoice total:\t%s\n", r.InvoiceTotal.StringFixed(2))
	fmt.Fprintf(tw, "Errors:\t%d\n", r.ErrorCount)
	if r.FailureReason != "" {
		fmt.Fprintf(tw, "Failure:\t%s\n", r.FailureReason)
	}

	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ENTITY\tLOADED\tUPDATED\tSKIPPED\tPLACEHOLDERS\tDISCREPANCIES\tFAILED")
	for _, e := range bulk.AllEntityTypes() {
		c := r.Counts[e]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%d\n",
			e, c.Loaded, c.Updated, c.Skipped, c.Placeholders, c.Discrepancies, c.Failed)
	}
	return tw.Flush()
}

// writeErrorsCSV writes to stdout for "-", into dest/name when dest is a
// directory, and to dest otherwise
func writeErrorsCSV(stdout io.Writer, dest, name, content string) error {
	if dest == "-" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		dest = dest + string(os.PathSeparator) + name
	}
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	fmt.Fprintln(stdout, dest)
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
