package importapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/trade"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
	"github.com/erp/salesetl/internal/infrastructure/logger"
	"github.com/erp/salesetl/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Workbook is an opened source workbook
type Workbook interface {
	SheetSource
	ValidateContracts(contracts []sheetimport.SheetContract) error
	Close() error
}

// WorkbookOpener opens the workbook named by a source string
type WorkbookOpener func(ctx context.Context, source string) (Workbook, error)

// OpenLocalWorkbook opens a workbook from the local filesystem
func OpenLocalWorkbook(_ context.Context, source string) (Workbook, error) {
	wb, err := sheetimport.OpenWorkbook(source)
	if err != nil {
		return nil, err
	}
	return wb, nil
}

// SummaryArchiver stores a copy of the run summary and returns where
type SummaryArchiver interface {
	Archive(ctx context.Context, summary *RunSummary) (string, error)
}

// MetricsRecorder receives run, phase and entity outcomes
type MetricsRecorder interface {
	RecordPhase(ctx context.Context, phase string, status string, d time.Duration)
	RecordEntities(ctx context.Context, counts map[bulk.EntityType]bulk.EntityCounts)
	RecordRun(ctx context.Context, status bulk.RunStatus, d time.Duration)
}

// Options configures a pipeline run
type Options struct {
	ConflictMode   bulk.ConflictMode
	Tolerance      decimal.Decimal
	HardCeiling    decimal.Decimal
	BatchSize      int
	Workers        int
	MaxFailureRate float64
	MaxErrors      int
	DryRun         bool
}

// DefaultOptions returns the documented defaults
func DefaultOptions() Options {
	return Options{
		ConflictMode:   bulk.ConflictModeUpdate,
		Tolerance:      trade.DefaultTolerance,
		HardCeiling:    trade.DefaultHardCeiling,
		BatchSize:      DefaultBatchSize,
		Workers:        4,
		MaxFailureRate: DefaultMaxFailureRate,
		MaxErrors:      1000,
	}
}

// Pipeline drives the reference, master and transactional phases of a load
type Pipeline struct {
	store    bulk.Store
	runs     bulk.LoadRunRepository
	opener   WorkbookOpener
	archiver SummaryArchiver
	metrics  MetricsRecorder
	opts     Options
	logger   *zap.Logger
}

// PipelineOption configures optional collaborators
type PipelineOption func(*Pipeline)

// WithRunRepository persists a LoadRun per run
func WithRunRepository(runs bulk.LoadRunRepository) PipelineOption {
	return func(p *Pipeline) { p.runs = runs }
}

// WithOpener replaces how the source workbook is opened
func WithOpener(opener WorkbookOpener) PipelineOption {
	return func(p *Pipeline) { p.opener = opener }
}

// WithArchiver archives each run summary
func WithArchiver(a SummaryArchiver) PipelineOption {
	return func(p *Pipeline) { p.archiver = a }
}

// WithMetrics records run metrics
func WithMetrics(m MetricsRecorder) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline writing to store
func NewPipeline(store bulk.Store, opts Options, options ...PipelineOption) *Pipeline {
	p := &Pipeline{
		store:  store,
		opener: OpenLocalWorkbook,
		opts:   opts,
		logger: zap.NewNop(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Run loads the workbook named by source. The returned summary is never nil.
// The error is non-nil when the run failed; configuration problems are
// reported as *bulk.ConfigurationError before any phase starts.
func (p *Pipeline) Run(ctx context.Context, source string) (*RunSummary, error) {
	ctx, span := telemetry.StartRunSpan(ctx, source, p.opts.DryRun)
	defer span.End()

	run, err := bulk.NewLoadRun(source, p.opts.ConflictMode, p.opts.DryRun)
	if err != nil {
		cerr := bulk.NewConfigurationError("source", "%v", err)
		telemetry.RecordError(span, cerr)
		return failedSummary(source, p.opts, cerr), cerr
	}
	ctx = logger.WithRunID(logger.WithContext(ctx, p.logger), run.ID.String())
	telemetry.SetRunID(span, run.ID.String())
	_ = run.StartProcessing()

	report := NewReport(p.opts.MaxErrors, logger.L(ctx))
	summary := newRunSummary(run)

	runErr := p.execute(ctx, summary, report)
	p.finish(ctx, run, summary, report, runErr)
	telemetry.Finish(span, runErr)
	return summary, runErr
}

func (p *Pipeline) execute(ctx context.Context, summary *RunSummary, report *Report) error {
	financial, err := trade.NewFinancialValidator(p.opts.Tolerance, p.opts.HardCeiling)
	if err != nil {
		return bulk.NewConfigurationError("load.tolerance", "%v", err)
	}

	wb, err := p.opener(ctx, summary.Source)
	if err != nil {
		if errors.Is(err, sheetimport.ErrSourceNotFound) {
			return &bulk.ConfigurationError{Setting: "source", Err: err}
		}
		var cerr *bulk.ConfigurationError
		if errors.As(err, &cerr) {
			return err
		}
		return fmt.Errorf("open workbook: %w", err)
	}
	defer wb.Close()

	if err := wb.ValidateContracts(sheetimport.Contracts()); err != nil {
		return fmt.Errorf("workbook %s: %w", summary.Source, err)
	}

	resolver := NewResolver()
	loader := NewPhasedLoader(p.store, resolver, report, LoaderOptions{
		BatchSize:      p.opts.BatchSize,
		ConflictMode:   p.opts.ConflictMode,
		MaxFailureRate: p.opts.MaxFailureRate,
	})
	if err := loader.Prepare(ctx); err != nil {
		return err
	}
	transformer := NewTransformer(wb, resolver, report, financial, p.opts.Workers, logger.L(ctx))

	phases := bulk.Phases()
	for i, phase := range phases {
		rep, batches, err := p.runPhase(ctx, phase, transformer, loader)
		summary.Phases = append(summary.Phases, rep)
		if err != nil {
			for _, rest := range phases[i+1:] {
				summary.Phases = append(summary.Phases, PhaseReport{Phase: rest, Status: PhaseStatusNotRun})
			}
			return err
		}
		if phase == bulk.PhaseTransactional {
			summary.InvoiceTotal = invoiceTotal(batches)
		}
	}
	return nil
}

func (p *Pipeline) runPhase(ctx context.Context, phase bulk.Phase, transformer *Transformer, loader *PhasedLoader) (PhaseReport, []EntityBatch, error) {
	ctx, span := telemetry.StartPhaseSpan(ctx, string(phase))
	defer span.End()
	ctx = logger.WithPhase(ctx, string(phase))
	log := logger.L(ctx)
	log.Info("phase started")

	start := time.Now()
	batches, err := transformer.Transform(ctx, phase)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("phase transform failed", zap.Error(err))
		rep := PhaseReport{Phase: phase, Status: PhaseStatusNotRun, Duration: time.Since(start), Error: err.Error()}
		p.recordPhase(ctx, rep)
		return rep, nil, err
	}
	for _, b := range batches {
		telemetry.EntityTransformed(span, string(b.Entity), len(b.Records))
	}

	rep, err := loader.Load(ctx, phase, batches)
	rep.Duration = time.Since(start)
	p.recordPhase(ctx, rep)
	if err != nil {
		telemetry.RecordError(span, err)
		log.Error("phase rolled back", zap.Error(err), zap.Duration("duration", rep.Duration))
		return rep, nil, err
	}
	log.Info("phase committed", zap.Duration("duration", rep.Duration))
	return rep, batches, nil
}

func (p *Pipeline) recordPhase(ctx context.Context, rep PhaseReport) {
	if p.metrics != nil {
		p.metrics.RecordPhase(ctx, string(rep.Phase), string(rep.Status), rep.Duration)
	}
}

// finish settles the run status, persists the LoadRun and archives the
// summary. Persistence problems are logged and never change the outcome.
func (p *Pipeline) finish(ctx context.Context, run *bulk.LoadRun, summary *RunSummary, report *Report, runErr error) {
	log := logger.L(ctx)
	summary.fill(report)
	details := summary.errorDetails()

	if runErr != nil {
		summary.Status = bulk.RunStatusFailed
		summary.FailureReason = runErr.Error()
		_ = run.Fail(runErr.Error(), summary.Entities, details)
	} else {
		_ = run.Complete(summary.Entities, summary.InvoiceTotal, summary.Warnings(), details)
		summary.Status = run.Status
	}
	summary.Duration = run.Duration()

	if p.runs != nil {
		if err := p.runs.Save(ctx, run); err != nil {
			log.Error("failed to save load run", zap.Error(err))
		}
	}
	if p.archiver != nil {
		location, err := p.archiver.Archive(ctx, summary)
		if err != nil {
			log.Warn("failed to archive run summary", zap.Error(err))
		} else {
			summary.ArchiveLocation = location
		}
	}
	if p.metrics != nil {
		p.metrics.RecordEntities(ctx, summary.Entities)
		p.metrics.RecordRun(ctx, summary.Status, summary.Duration)
	}

	log.Info("run finished",
		zap.String("status", string(summary.Status)),
		zap.Int("warnings", summary.Warnings()),
		zap.Int("errors", summary.TotalErrors),
		zap.Duration("duration", summary.Duration))
}

func invoiceTotal(batches []EntityBatch) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		if b.Entity != bulk.EntityInvoice {
			continue
		}
		for _, rec := range b.Records {
			if inv, ok := rec.(*trade.Invoice); ok {
				total = total.Add(inv.TotalDue)
			}
		}
	}
	return total
}
