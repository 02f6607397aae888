package persistence

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/infrastructure/logger"
	"github.com/erp/salesetl/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultInsertBatchSize bounds the rows per INSERT statement
const DefaultInsertBatchSize = 1000

// salesTable describes where records of one entity type are stored
type salesTable struct {
	name string
	key  string
	rows func(records []bulk.Record) (any, error)
}

var salesTables = map[bulk.EntityType]salesTable{
	bulk.EntitySalesTerritory: {
		name: "sales_territories", key: "territory_id",
		rows: func(r []bulk.Record) (any, error) { return modelRows(r, (*models.SalesTerritoryModel).FromDomain) },
	},
	bulk.EntityProductCategory: {
		name: "product_categories", key: "category_id",
		rows: func(r []bulk.Record) (any, error) { return modelRows(r, (*models.ProductCategoryModel).FromDomain) },
	},
	bulk.EntityProductSubCategory: {
		name: "product_subcategories", key: "subcategory_id",
		rows: func(r []bulk.Record) (any, error) { return modelRows(r, (*models.ProductSubCategoryModel).FromDomain) },
	},
	bulk.EntityProduct: {
		name: "products", key: "product_id",
		rows: func(r []bulk.Record) (any, error) { return modelRows(r, (*models.ProductModel).FromDomain) },
	},
	bulk.EntitySalesperson: {
		name: "salespersons", key: "salesperson_id",
		rows: func(r []bulk.Record) (any, error) { return modelRows(r, (*models.SalespersonModel).FromDomain) },
	},
	bulk.EntityCompany: {
		name: "companies", key: "customer_id",
		rows: func(r []bulk.Record) (any, error) { return modelRows(r, (*models.CompanyModel).FromDomain) },
	},
	bulk.EntityInvoice: {
		name: "invoices", key: "sales_order_id",
		rows: func(r []bulk.Record) (any, error) { return modelRows(r, (*models.InvoiceModel).FromDomain) },
	},
	bulk.EntityInvoiceLineItem: {
		name: "invoice_line_items", key: "sales_order_detail_id",
		rows: func(r []bulk.Record) (any, error) { return modelRows(r, (*models.InvoiceLineItemModel).FromDomain) },
	},
}

// modelRows maps domain records onto a slice of persistence models
func modelRows[R bulk.Record, M any](records []bulk.Record, from func(*M, R)) (*[]M, error) {
	rows := make([]M, len(records))
	for i, rec := range records {
		r, ok := rec.(R)
		if !ok {
			return nil, fmt.Errorf("unexpected record type %T for %s", rec, rec.EntityType())
		}
		from(&rows[i], r)
	}
	return &rows, nil
}

func lookupTable(entity bulk.EntityType) (salesTable, error) {
	t, ok := salesTables[entity]
	if !ok {
		return salesTable{}, fmt.Errorf("no table for entity %q", entity)
	}
	return t, nil
}

type naturalKeyRow struct {
	ID         uuid.UUID
	NaturalKey int
}

// GormSalesStore implements bulk.Store on a relational database. Every
// write is an upsert on the natural key so reruns converge on the same rows.
type GormSalesStore struct {
	db        *gorm.DB
	batchSize int
}

// NewGormSalesStore creates a store writing through db
func NewGormSalesStore(db *gorm.DB, batchSize int) *GormSalesStore {
	if batchSize <= 0 {
		batchSize = DefaultInsertBatchSize
	}
	return &GormSalesStore{db: db, batchSize: batchSize}
}

// ExistingKeys returns natural key → id for every stored row of entity
func (s *GormSalesStore) ExistingKeys(ctx context.Context, entity bulk.EntityType) (map[string]uuid.UUID, error) {
	t, err := lookupTable(entity)
	if err != nil {
		return nil, err
	}

	var rows []naturalKeyRow
	if err := s.db.WithContext(ctx).
		Table(t.name).
		Select(fmt.Sprintf("id, %s AS natural_key", t.key)).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("select %s keys: %w", t.name, err)
	}

	keys := make(map[string]uuid.UUID, len(rows))
	for _, r := range rows {
		keys[strconv.Itoa(r.NaturalKey)] = r.ID
	}
	return keys, nil
}

// RunPhase runs fn inside one database transaction
func (s *GormSalesStore) RunPhase(ctx context.Context, phase bulk.Phase, fn func(ctx context.Context, w bulk.PhaseWriter) error) error {
	log := logger.L(ctx)
	start := time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormPhaseWriter{tx: tx, batchSize: s.batchSize})
	})
	if err != nil {
		log.Warn("phase transaction rolled back",
			zap.String("phase", string(phase)),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}

	log.Debug("phase transaction committed", zap.Duration("elapsed", time.Since(start)))
	return nil
}

type gormPhaseWriter struct {
	tx        *gorm.DB
	batchSize int
}

// Write upserts records on the natural key of their table
func (w *gormPhaseWriter) Write(ctx context.Context, entity bulk.EntityType, records []bulk.Record) error {
	if len(records) == 0 {
		return nil
	}
	t, err := lookupTable(entity)
	if err != nil {
		return err
	}
	rows, err := t.rows(records)
	if err != nil {
		return err
	}

	err = w.tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: t.key}},
			UpdateAll: true,
		}).
		CreateInBatches(rows, w.batchSize).Error
	if err != nil {
		return fmt.Errorf("upsert %d rows into %s: %w", len(records), t.name, err)
	}
	return nil
}

// Ensure GormSalesStore implements Store
var _ bulk.Store = (*GormSalesStore)(nil)
