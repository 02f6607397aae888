package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/salesetl/internal/domain/bulk"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// LoadMetrics records run, phase and per-entity outcomes of a load.
type LoadMetrics struct {
	runs          *Counter
	runDuration   *Histogram
	phases        *Counter
	phaseDuration *Histogram
	records       *Counter
	discrepancies *Counter
}

// NewLoadMetrics creates the load instruments on the given meter.
func NewLoadMetrics(meter metric.Meter) (*LoadMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	lm := &LoadMetrics{}
	var err error

	if lm.runs, err = NewCounter(meter, "salesetl_runs_total", "Load runs by final status", "{runs}"); err != nil {
		return nil, err
	}
	if lm.runDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "salesetl_run_duration_seconds",
		Description: "Wall time of a load run",
		Unit:        "s",
		Boundaries:  PhaseDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if lm.phases, err = NewCounter(meter, "salesetl_phases_total", "Load phases by outcome", "{phases}"); err != nil {
		return nil, err
	}
	if lm.phaseDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "salesetl_phase_duration_seconds",
		Description: "Wall time of a load phase",
		Unit:        "s",
		Boundaries:  PhaseDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if lm.records, err = NewCounter(meter, "salesetl_records_total", "Records by entity and outcome", "{records}"); err != nil {
		return nil, err
	}
	if lm.discrepancies, err = NewCounter(meter, "salesetl_discrepancies_total", "Financial discrepancies within tolerance", "{discrepancies}"); err != nil {
		return nil, err
	}
	return lm, nil
}

// RecordRun records the final status and duration of a run.
func (lm *LoadMetrics) RecordRun(ctx context.Context, status bulk.RunStatus, d time.Duration) {
	lm.runs.Inc(ctx, AttrStatus.String(string(status)))
	lm.runDuration.RecordDuration(ctx, d, AttrStatus.String(string(status)))
}

// RecordPhase records the outcome and duration of one phase.
func (lm *LoadMetrics) RecordPhase(ctx context.Context, phase string, status string, d time.Duration) {
	lm.phases.Inc(ctx, AttrPhase.String(phase), AttrStatus.String(status))
	lm.phaseDuration.RecordDuration(ctx, d, AttrPhase.String(phase), AttrStatus.String(status))
}

// RecordEntities adds the committed counts of each entity.
func (lm *LoadMetrics) RecordEntities(ctx context.Context, counts map[bulk.EntityType]bulk.EntityCounts) {
	for entity, c := range counts {
		attr := AttrEntity.String(string(entity))
		for outcome, n := range map[string]int{
			"loaded":      c.Loaded,
			"updated":     c.Updated,
			"skipped":     c.Skipped,
			"placeholder": c.Placeholders,
			"failed":      c.Failed,
		} {
			if n > 0 {
				lm.records.Add(ctx, int64(n), attr, AttrOutcome.String(outcome))
			}
		}
		if c.Discrepancies > 0 {
			lm.discrepancies.Add(ctx, int64(c.Discrepancies), attr)
		}
	}
}
