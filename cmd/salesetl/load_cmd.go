package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	importapp "github.com/erp/salesetl/internal/application/import"
	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/infrastructure/config"
	"github.com/erp/salesetl/internal/infrastructure/migration"
	"github.com/erp/salesetl/internal/infrastructure/persistence"
	"github.com/erp/salesetl/internal/infrastructure/storage"
	"github.com/erp/salesetl/internal/infrastructure/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type loadOptions struct {
	source         string
	conflictMode   string
	tolerance      string
	hardCeiling    string
	batchSize      int
	workers        int
	maxFailureRate float64
	maxErrors      int
	dryRun         bool
	format         string
	migrate        bool
	archive        bool
}

func newLoadCmd(root *rootOptions) *cobra.Command {
	var opts loadOptions

	cmd := &cobra.Command{
		Use:   "load [source]",
		Short: "Load a sales workbook (local path or s3://bucket/key)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if opts.source != "" && opts.source != args[0] {
					return &bulk.ConfigurationError{Setting: "source", Err: fmt.Errorf("both --source and an argument were given")}
				}
				opts.source = args[0]
			}
			return runLoad(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.source, "source", "", "Workbook to load (local path or s3://bucket/key)")
	f.StringVar(&opts.conflictMode, "conflict-mode", "", "Existing natural keys: skip, update or fail (default update)")
	f.StringVar(&opts.tolerance, "tolerance", "", "Financial tolerance, e.g. 0.01")
	f.StringVar(&opts.hardCeiling, "hard-ceiling", "", "Financial hard ceiling, e.g. 1.00")
	f.IntVar(&opts.batchSize, "batch-size", 0, "Records per insert batch (default 1000)")
	f.IntVar(&opts.workers, "workers", 0, "Parallel normalization workers (default 4)")
	f.Float64Var(&opts.maxFailureRate, "max-failure-rate", 0, "Share of unresolved records that rolls a phase back (default 0.05)")
	f.IntVar(&opts.maxErrors, "max-errors", 0, "Row errors kept in the summary (default 1000)")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Read, transform and validate without writing to the database")
	f.StringVar(&opts.format, "format", "text", "Summary format: text or json")
	f.BoolVar(&opts.migrate, "migrate", false, "Apply pending PostgreSQL migrations before loading")
	f.BoolVar(&opts.archive, "archive", false, "Upload the run summary to object storage")

	return cmd
}

// applyFlags copies the flags the user set over the loaded configuration
func (o loadOptions) applyFlags(cmd *cobra.Command) func(*config.Config) {
	return func(cfg *config.Config) {
		f := cmd.Flags()
		if f.Changed("conflict-mode") {
			cfg.Load.ConflictMode = strings.ToLower(strings.TrimSpace(o.conflictMode))
		}
		if f.Changed("tolerance") {
			cfg.Load.Tolerance = o.tolerance
		}
		if f.Changed("hard-ceiling") {
			cfg.Load.HardCeiling = o.hardCeiling
		}
		if f.Changed("batch-size") {
			cfg.Load.BatchSize = o.batchSize
		}
		if f.Changed("workers") {
			cfg.Load.Workers = o.workers
		}
		if f.Changed("max-failure-rate") {
			cfg.Load.MaxFailureRate = o.maxFailureRate
		}
		if f.Changed("max-errors") {
			cfg.Load.MaxErrors = o.maxErrors
		}
		if f.Changed("archive") {
			cfg.Storage.Archive = o.archive
		}
	}
}

func runLoad(cmd *cobra.Command, root *rootOptions, opts loadOptions) error {
	ctx := cmd.Context()
	if strings.TrimSpace(opts.source) == "" {
		return &bulk.ConfigurationError{Setting: "source", Err: fmt.Errorf("a workbook is required (--source)")}
	}
	if opts.format != "text" && opts.format != "json" {
		return bulk.NewConfigurationError("format", "unknown summary format %q (want text or json)", opts.format)
	}

	a, err := bootstrap(ctx, root, opts.applyFlags(cmd))
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	pipelineOpts, err := pipelineOptions(a.cfg.Load, opts.dryRun)
	if err != nil {
		return err
	}

	store, runs, err := a.destination(opts)
	if err != nil {
		return err
	}

	pipelineArgs := []importapp.PipelineOption{
		importapp.WithRunRepository(runs),
		importapp.WithLogger(a.log),
	}

	objects, err := a.objectStorage(opts.source)
	if err != nil {
		return err
	}
	pipelineArgs = append(pipelineArgs, importapp.WithOpener(storage.NewWorkbookOpener(objects)))
	if a.cfg.Storage.Archive && !opts.dryRun {
		if objects == nil {
			return bulk.NewConfigurationError("storage", "archiving needs storage.access_key and storage.secret_key")
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("prepare archive bucket: %w", err)
		}
		pipelineArgs = append(pipelineArgs,
			importapp.WithArchiver(storage.NewSummaryArchiver(objects, a.cfg.Storage.ArchivePrefix, a.log)))
	}

	metrics, err := telemetry.NewLoadMetrics(a.meter.Meter("salesetl"))
	if err != nil {
		return err
	}
	pipelineArgs = append(pipelineArgs, importapp.WithMetrics(metrics))

	a.log.Info("Starting load",
		zap.String("source", opts.source),
		zap.String("conflict_mode", a.cfg.Load.ConflictMode),
		zap.Bool("dry_run", opts.dryRun),
	)

	summary, runErr := importapp.NewPipeline(store, pipelineOpts, pipelineArgs...).Run(ctx, opts.source)
	if werr := writeSummary(cmd.OutOrStdout(), opts.format, summary); werr != nil {
		a.log.Error("Failed to write summary", zap.Error(werr))
	}
	if runErr != nil {
		return withCode(summary.ExitCode(), fmt.Errorf("load failed: %w", runErr))
	}
	return nil
}

// destination returns where records and run history go. Dry runs never
// touch the database.
func (a *app) destination(opts loadOptions) (bulk.Store, bulk.LoadRunRepository, error) {
	if opts.dryRun {
		return persistence.NewMemoryStore(), persistence.NewMemoryLoadRunRepository(), nil
	}
	if a.cfg.Database.DSN() == "" {
		return nil, nil, &bulk.ConfigurationError{Setting: "database.url", Err: persistence.ErrMissingDSN}
	}

	if opts.migrate {
		if err := a.migrateUp(); err != nil {
			return nil, nil, err
		}
	}

	db, err := a.openDatabase()
	if err != nil {
		return nil, nil, err
	}
	return persistence.NewGormSalesStore(db.DB, a.cfg.Load.BatchSize), persistence.NewGormLoadRunRepository(db.DB), nil
}

// migrateUp applies pending migrations. SQLite schemas come from the models.
func (a *app) migrateUp() error {
	if strings.HasPrefix(a.cfg.Database.DSN(), persistence.SQLitePrefix) {
		return nil
	}
	m, err := migration.Open(a.cfg.Database.DSN(), a.log)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

// objectStorage returns the S3 client when credentials are configured. An
// s3:// source without credentials is a configuration error.
func (a *app) objectStorage(source string) (*storage.S3Storage, error) {
	if a.cfg.Storage.AccessKey == "" || a.cfg.Storage.SecretKey == "" {
		if storage.IsObjectURI(source) {
			return nil, bulk.NewConfigurationError("storage", "%s needs storage.access_key and storage.secret_key", source)
		}
		return nil, nil
	}
	return storage.NewS3Storage(&a.cfg.Storage, storage.WithLogger(a.log))
}

func pipelineOptions(cfg config.LoadConfig, dryRun bool) (importapp.Options, error) {
	tolerance, err := cfg.ToleranceAmount()
	if err != nil {
		return importapp.Options{}, &bulk.ConfigurationError{Setting: "load.tolerance", Err: err}
	}
	ceiling, err := cfg.HardCeilingAmount()
	if err != nil {
		return importapp.Options{}, &bulk.ConfigurationError{Setting: "load.hard_ceiling", Err: err}
	}
	mode := bulk.ConflictMode(cfg.ConflictMode)
	if !mode.IsValid() {
		return importapp.Options{}, bulk.NewConfigurationError("load.conflict_mode", "unknown conflict mode %q", cfg.ConflictMode)
	}

	opts := importapp.DefaultOptions()
	opts.ConflictMode = mode
	opts.Tolerance = tolerance
	opts.HardCeiling = ceiling
	opts.BatchSize = cfg.BatchSize
	opts.Workers = cfg.Workers
	opts.MaxFailureRate = cfg.MaxFailureRate
	opts.MaxErrors = cfg.MaxErrors
	opts.DryRun = dryRun
	return opts, nil
}

func writeSummary(w io.Writer, format string, summary *importapp.RunSummary) error {
	if format == "json" {
		return summary.WriteJSON(w)
	}
	return summary.WriteText(w)
}
