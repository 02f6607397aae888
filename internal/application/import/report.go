package importapp

import (
	"errors"
	"sync"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/erp/salesetl/internal/domain/trade"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
	"go.uber.org/zap"
)

// phaseTally counts the records a phase attempted and how many of them were
// dropped for an unresolved reference
type phaseTally struct {
	Attempted  int
	Unresolved int
}

// Report accumulates row and entity outcomes for one run. It is safe for
// concurrent use.
type Report struct {
	mu            sync.Mutex
	errors        *sheetimport.ErrorCollection
	counts        map[bulk.EntityType]*bulk.EntityCounts
	discrepancies []trade.Discrepancy
	phases        map[bulk.Phase]*phaseTally
	logger        *zap.Logger
}

// NewReport creates a report keeping at most maxErrors row errors
func NewReport(maxErrors int, logger *zap.Logger) *Report {
	if logger == nil {
		logger = zap.NewNop()
	}
	counts := make(map[bulk.EntityType]*bulk.EntityCounts)
	for _, e := range bulk.AllEntityTypes() {
		counts[e] = &bulk.EntityCounts{}
	}
	return &Report{
		errors: sheetimport.NewErrorCollection(maxErrors),
		counts: counts,
		phases: make(map[bulk.Phase]*phaseTally),
		logger: logger,
	}
}

// Notes records non-fatal anomalies
func (r *Report) Notes(notes []sheetimport.Note) {
	if len(notes) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range notes {
		r.logger.Debug("row note",
			zap.String("sheet", n.Sheet),
			zap.Int("row", n.Row),
			zap.String("column", n.Column),
			zap.String("code", n.Code),
			zap.String("message", n.Message))
	}
	r.errors.AddAll(notes)
}

// Attempt counts a record the phase tried to produce
func (r *Report) Attempt(phase bulk.Phase, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tally(phase).Attempted += n
}

// Fail records a dropped record and the row error explaining it
func (r *Report) Fail(phase bulk.Phase, entity bulk.EntityType, sheet string, row int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(phase, entity, 1, err)
	re := rowErrorFor(sheet, row, err)
	r.errors.Add(re)
	r.logger.Info("record dropped",
		zap.String("entity", string(entity)),
		zap.String("sheet", sheet),
		zap.Int("row", row),
		zap.String("code", re.Code),
		zap.Error(err))
}

// Drop counts records lost together with a failed record, e.g. the lines of
// an excluded invoice, without adding another row error
func (r *Report) Drop(phase bulk.Phase, entity bulk.EntityType, n int, err error) {
	if n == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dropLocked(phase, entity, n, err)
}

func (r *Report) dropLocked(phase bulk.Phase, entity bulk.EntityType, n int, err error) {
	r.counts[entity].Failed += n
	var uerr *bulk.UnresolvedReferenceError
	if errors.As(err, &uerr) {
		r.tally(phase).Unresolved += n
	}
}

// Skip counts records not written, with an optional note explaining why
func (r *Report) Skip(entity bulk.EntityType, n int, note *sheetimport.Note) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[entity].Skipped += n
	if note != nil {
		r.errors.Add(*note)
	}
}

// Discrepancies records financial discrepancies of a loaded invoice
func (r *Report) Discrepancies(ds []trade.Discrepancy) {
	if len(ds) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[bulk.EntityInvoice].Discrepancies++
	r.discrepancies = append(r.discrepancies, ds...)
	for _, d := range ds {
		r.logger.Warn("financial discrepancy",
			zap.Int("sales_order_id", d.SalesOrderID),
			zap.String("check", string(d.Check)),
			zap.String("expected", d.Expected.StringFixed(4)),
			zap.String("actual", d.Actual.StringFixed(4)),
			zap.String("delta", d.Delta.StringFixed(4)))
	}
}

// Commit merges the counts of a committed phase
func (r *Report) Commit(counts map[bulk.EntityType]bulk.EntityCounts) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for e, c := range counts {
		merged := r.counts[e].Add(c)
		r.counts[e] = &merged
	}
}

// FailureRate returns the share of attempted records of a phase that were
// dropped for an unresolved reference
func (r *Report) FailureRate(phase bulk.Phase) (failed, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.tally(phase)
	return t.Unresolved, t.Attempted
}

// Counts returns a copy of the per-entity counts
func (r *Report) Counts() map[bulk.EntityType]bulk.EntityCounts {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[bulk.EntityType]bulk.EntityCounts, len(r.counts))
	for e, c := range r.counts {
		out[e] = *c
	}
	return out
}

// DiscrepancyList returns the recorded discrepancies
func (r *Report) DiscrepancyList() []trade.Discrepancy {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]trade.Discrepancy(nil), r.discrepancies...)
}

// Errors returns the capped error collection
func (r *Report) Errors() *sheetimport.ErrorCollection {
	return r.errors
}

func (r *Report) tally(phase bulk.Phase) *phaseTally {
	t, ok := r.phases[phase]
	if !ok {
		t = &phaseTally{}
		r.phases[phase] = t
	}
	return t
}

// rowErrorFor maps an entity error onto a sheet row error
func rowErrorFor(sheet string, row int, err error) sheetimport.RowError {
	var (
		nerr   *bulk.NormalizationError
		uerr   *bulk.UnresolvedReferenceError
		ferr   *bulk.FinancialIntegrityError
		domErr *shared.DomainError
	)
	switch {
	case errors.As(err, &nerr):
		return sheetimport.NewRowError(nerr.Sheet, nerr.Row, nerr.Column, sheetimport.ErrCodeSheetRequiredField, nerr.Reason)
	case errors.As(err, &uerr):
		return sheetimport.NewRowErrorWithValue(sheet, row, "", sheetimport.ErrCodeSheetReference, err.Error(), uerr.Key)
	case errors.As(err, &ferr):
		return sheetimport.NewRowErrorWithValue(sheet, row, ferr.Check, sheetimport.ErrCodeSheetFinancial, err.Error(), ferr.Actual.StringFixed(4))
	case errors.As(err, &domErr):
		return sheetimport.NewRowError(sheet, row, "", sheetimport.ErrCodeSheetInvalidRecord, domErr.Message)
	}
	return sheetimport.NewRowError(sheet, row, "", sheetimport.ErrCodeSheetInvalidRecord, err.Error())
}
