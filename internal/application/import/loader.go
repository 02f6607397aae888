package importapp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of records sent to the store per write
const DefaultBatchSize = 1000

// DefaultMaxFailureRate is the share of unresolved records a phase tolerates
const DefaultMaxFailureRate = 0.05

// LoaderOptions configures a PhasedLoader
type LoaderOptions struct {
	BatchSize      int
	ConflictMode   bulk.ConflictMode
	MaxFailureRate float64
}

// PhaseStatus is the outcome of one phase
type PhaseStatus string

const (
	PhaseStatusCommitted  PhaseStatus = "COMMITTED"
	PhaseStatusRolledBack PhaseStatus = "ROLLED_BACK"
	PhaseStatusNotRun     PhaseStatus = "NOT_RUN"
)

// PhaseReport describes what happened to one phase
type PhaseReport struct {
	Phase    bulk.Phase                            `json:"phase"`
	Status   PhaseStatus                           `json:"status"`
	Counts   map[bulk.EntityType]bulk.EntityCounts `json:"counts,omitempty"`
	Duration time.Duration                         `json:"duration"`
	Error    string                                `json:"error,omitempty"`
}

// PhasedLoader writes phase batches to a store, one transaction per phase
type PhasedLoader struct {
	store    bulk.Store
	resolver *Resolver
	report   *Report
	opts     LoaderOptions
}

// NewPhasedLoader creates a loader
func NewPhasedLoader(store bulk.Store, resolver *Resolver, report *Report, opts LoaderOptions) *PhasedLoader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if !opts.ConflictMode.IsValid() {
		opts.ConflictMode = bulk.ConflictModeUpdate
	}
	if opts.MaxFailureRate <= 0 {
		opts.MaxFailureRate = DefaultMaxFailureRate
	}
	return &PhasedLoader{store: store, resolver: resolver, report: report, opts: opts}
}

// Prepare seeds the resolver with the natural keys already stored. In fail
// mode a destination that already holds rows is a configuration error.
func (l *PhasedLoader) Prepare(ctx context.Context) error {
	for _, entity := range bulk.AllEntityTypes() {
		existing, err := l.store.ExistingKeys(ctx, entity)
		if err != nil {
			return &bulk.StorageError{Entity: entity, Err: fmt.Errorf("read existing keys: %w", err)}
		}
		if len(existing) == 0 {
			continue
		}
		if l.opts.ConflictMode == bulk.ConflictModeFail {
			return bulk.NewConfigurationError("load.conflict_mode",
				"destination is not empty: %d %s rows exist and conflict mode is fail", len(existing), entity)
		}
		l.resolver.Seed(entity, existing)
		logger.L(ctx).Info("seeded existing keys", zap.String("entity", string(entity)), zap.Int("count", len(existing)))
	}
	return nil
}

// Load writes the batches of a phase inside one transaction. The phase is
// rolled back when a write fails or when too many of its records were
// dropped for unresolved references.
func (l *PhasedLoader) Load(ctx context.Context, phase bulk.Phase, batches []EntityBatch) (PhaseReport, error) {
	start := time.Now()
	rep := PhaseReport{Phase: phase, Status: PhaseStatusRolledBack}
	counts := make(map[bulk.EntityType]bulk.EntityCounts)

	err := l.store.RunPhase(ctx, phase, func(ctx context.Context, w bulk.PhaseWriter) error {
		if err := l.checkFailureRate(phase); err != nil {
			return err
		}
		for _, b := range batches {
			c, err := l.write(ctx, w, phase, b)
			counts[b.Entity] = counts[b.Entity].Add(c)
			if err != nil {
				return err
			}
		}
		return nil
	})
	rep.Duration = time.Since(start)
	if err != nil {
		var rateErr *bulk.FailureRateError
		var storageErr *bulk.StorageError
		if !errors.As(err, &rateErr) && !errors.As(err, &storageErr) {
			err = &bulk.StorageError{Phase: phase, Err: err}
		}
		rep.Error = err.Error()
		return rep, err
	}

	l.report.Commit(counts)
	rep.Status = PhaseStatusCommitted
	rep.Counts = counts
	return rep, nil
}

func (l *PhasedLoader) checkFailureRate(phase bulk.Phase) error {
	failed, total := l.report.FailureRate(phase)
	if total == 0 {
		return nil
	}
	if float64(failed)/float64(total) > l.opts.MaxFailureRate {
		return &bulk.FailureRateError{Phase: phase, Failed: failed, Total: total, Ceiling: l.opts.MaxFailureRate}
	}
	return nil
}

// write sends one entity batch in chunks and returns its tally
func (l *PhasedLoader) write(ctx context.Context, w bulk.PhaseWriter, phase bulk.Phase, b EntityBatch) (bulk.EntityCounts, error) {
	var counts bulk.EntityCounts
	pending := make([]bulk.Record, 0, len(b.Records))
	for _, rec := range b.Records {
		existed := l.resolver.Existed(b.Entity, rec.NaturalKey())
		switch {
		case b.Placeholders:
			counts.Placeholders++
		case existed && l.opts.ConflictMode == bulk.ConflictModeSkip:
			counts.Skipped++
			continue
		case existed:
			counts.Updated++
		default:
			counts.Loaded++
		}
		pending = append(pending, rec)
	}

	log := logger.L(ctx).With(zap.String("entity", string(b.Entity)))
	for start := 0; start < len(pending); start += l.opts.BatchSize {
		end := min(start+l.opts.BatchSize, len(pending))
		if err := w.Write(ctx, b.Entity, pending[start:end]); err != nil {
			return counts, &bulk.StorageError{Phase: phase, Entity: b.Entity, Err: err}
		}
		log.Debug("batch written", zap.Int("from", start), zap.Int("to", end))
	}
	log.Info("entity written",
		zap.Int("loaded", counts.Loaded),
		zap.Int("updated", counts.Updated),
		zap.Int("skipped", counts.Skipped),
		zap.Int("placeholders", counts.Placeholders))
	return counts, nil
}
