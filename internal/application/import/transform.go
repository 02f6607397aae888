package importapp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/trade"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SheetSource provides the rows of the workbook sheets
type SheetSource interface {
	HasSheet(name string) bool
	ReadSheet(contract sheetimport.SheetContract) ([]*sheetimport.Row, error)
}

// EntityBatch is the ordered set of records of one entity type a phase writes
type EntityBatch struct {
	Entity  bulk.EntityType
	Records []bulk.Record
	// Placeholders marks records synthesized by the resolver
	Placeholders bool
}

// Transformer turns sheet rows into validated, reference-resolved records
// one phase at a time. Row normalization runs in parallel; resolution and
// registration run on the calling goroutine.
type Transformer struct {
	source    SheetSource
	resolver  *Resolver
	report    *Report
	financial *trade.FinancialValidator
	validate  *validator.Validate
	workers   int
	logger    *zap.Logger
}

// NewTransformer creates a transformer
func NewTransformer(
	source SheetSource,
	resolver *Resolver,
	report *Report,
	financial *trade.FinancialValidator,
	workers int,
	logger *zap.Logger,
) *Transformer {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transformer{
		source:    source,
		resolver:  resolver,
		report:    report,
		financial: financial,
		validate:  validator.New(),
		workers:   workers,
		logger:    logger,
	}
}

// Transform produces the batches of a phase in write order
func (t *Transformer) Transform(ctx context.Context, phase bulk.Phase) ([]EntityBatch, error) {
	switch phase {
	case bulk.PhaseReference:
		return t.reference(ctx)
	case bulk.PhaseMaster:
		return t.master(ctx)
	case bulk.PhaseTransactional:
		return t.transactional(ctx)
	}
	return nil, fmt.Errorf("unknown phase %q", phase)
}

func (t *Transformer) readSheet(name string) ([]*sheetimport.Row, error) {
	contract, ok := sheetimport.Contract(name)
	if !ok {
		return nil, fmt.Errorf("no contract for sheet %s", name)
	}
	if contract.OptionalSheet && !t.source.HasSheet(name) {
		return nil, nil
	}
	rows, err := t.source.ReadSheet(contract)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	t.logger.Debug("sheet read", zap.String("sheet", name), zap.Int("rows", len(rows)))
	return rows, nil
}

// rowResult is the outcome of normalizing one row
type rowResult[T any] struct {
	row   *sheetimport.Row
	value T
	notes []sheetimport.Note
	err   error
}

// normalizeRows applies fn to every row with at most workers goroutines and
// returns the results in row order
func normalizeRows[T any](
	ctx context.Context,
	workers int,
	rows []*sheetimport.Row,
	fn func(n *sheetimport.RowNormalizer) (T, error),
) ([]rowResult[T], error) {
	results := make([]rowResult[T], len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, row := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n := sheetimport.NewRowNormalizer(row)
			v, err := fn(n)
			if err == nil {
				err = n.Err()
			}
			results[i] = rowResult[T]{row: row, value: v, notes: n.Notes(), err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// assignable is a record whose identifier can be replaced by the one the
// resolver hands out
type assignable interface {
	bulk.Record
	AssignID(id uuid.UUID)
}

// collector gathers the accepted records of one entity type
type collector struct {
	t       *Transformer
	phase   bulk.Phase
	entity  bulk.EntityType
	sheet   string
	seen    map[string]int
	records []bulk.Record
}

func (t *Transformer) collect(phase bulk.Phase, entity bulk.EntityType, sheet string) *collector {
	return &collector{t: t, phase: phase, entity: entity, sheet: sheet, seen: make(map[string]int)}
}

// begin accounts for one source row and reports whether it normalized
func (c *collector) begin(row *sheetimport.Row, notes []sheetimport.Note, err error) bool {
	c.t.report.Attempt(c.phase, 1)
	c.t.report.Notes(notes)
	if err != nil {
		c.fail(row.LineNumber, err)
		return false
	}
	return true
}

func (c *collector) fail(row int, err error) {
	c.t.report.Fail(c.phase, c.entity, c.sheet, row, err)
}

// duplicate reports whether the key was already accepted and skips the row
func (c *collector) duplicate(row int, key string) bool {
	first, ok := c.seen[key]
	if !ok {
		c.seen[key] = row
		return false
	}
	note := sheetimport.NewRowErrorWithValue(c.sheet, row, "", sheetimport.ErrCodeSheetDuplicateKey,
		fmt.Sprintf("duplicate %s %s, first seen on row %d", c.entity, key, first), key)
	c.t.report.Skip(c.entity, 1, &note)
	return true
}

// add validates the record, registers its key and keeps it for the loader
func (c *collector) add(row int, rec assignable) bool {
	if !c.check(row, rec) {
		return false
	}
	c.accept(rec)
	return true
}

// check validates the record and fails its row when it is invalid
func (c *collector) check(row int, rec bulk.Record) bool {
	if err := c.t.validate.Struct(rec); err != nil {
		c.fail(row, invalidRecord(rec, err))
		return false
	}
	return true
}

// accept registers an already validated record and keeps it for the loader
func (c *collector) accept(rec assignable) {
	rec.AssignID(c.t.resolver.Register(c.entity, rec.NaturalKey(), rec.GetID()))
	c.records = append(c.records, rec)
}

func (c *collector) batch() EntityBatch {
	return EntityBatch{Entity: c.entity, Records: c.records}
}

func invalidRecord(rec bulk.Record, err error) error {
	return fmt.Errorf("invalid %s %s: %w", rec.EntityType(), rec.NaturalKey(), err)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}

func joinName(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
