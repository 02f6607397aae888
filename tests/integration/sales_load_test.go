package integration

import (
	"os"
	"testing"
	"time"

	importapp "github.com/erp/salesetl/internal/application/import"
	"github.com/erp/salesetl/internal/domain/bulk"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
	"github.com/erp/salesetl/internal/infrastructure/persistence"
	"github.com/erp/salesetl/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestMain runs before any tests and handles cleanup
func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

func newPipeline(t *testing.T, tdb *TestDB, configure func(*importapp.Options)) *importapp.Pipeline {
	t.Helper()
	opts := importapp.DefaultOptions()
	if configure != nil {
		configure(&opts)
	}
	return importapp.NewPipeline(
		persistence.NewGormSalesStore(tdb.DB, opts.BatchSize),
		opts,
		importapp.WithRunRepository(persistence.NewGormLoadRunRepository(tdb.DB)),
		importapp.WithLogger(zaptest.NewLogger(t)),
	)
}

func TestSalesLoad_Postgres(t *testing.T) {
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	ctx := testutil.ContextWithTimeout(t, 2*time.Minute)

	wb := testutil.NewSalesWorkbook()
	wb.Sheet(sheetimport.SheetSalesOrderHeader).Set(1, "SalesPersonID", 282)
	path := wb.Save(t)

	summary, err := newPipeline(t, tdb, nil).Run(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, bulk.RunStatusSuccessWithWarnings, summary.Status)

	assert.Equal(t, int64(2), tdb.Count("sales_territories"))
	assert.Equal(t, int64(2), tdb.Count("products"))
	assert.Equal(t, int64(testutil.DefaultCompanies), tdb.Count("companies"))
	assert.Equal(t, int64(testutil.DefaultInvoices), tdb.Count("invoices"))
	assert.Equal(t, int64(testutil.DefaultLineItems), tdb.Count("invoice_line_items"))

	var placeholders int64
	require.NoError(t, tdb.DB.Table("salespersons").Where("is_placeholder").Count(&placeholders).Error)
	assert.Equal(t, int64(1), placeholders)

	var total decimal.Decimal
	require.NoError(t, tdb.DB.Table("invoices").Select("COALESCE(SUM(total_due), 0)").Row().Scan(&total))
	assert.Equal(t, testutil.DefaultInvoiceTotal, total.StringFixed(2))

	// a rerun converges on the same rows
	rerun, err := newPipeline(t, tdb, nil).Run(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, testutil.DefaultInvoices, rerun.Entities[bulk.EntityInvoice].Updated)
	assert.Equal(t, int64(testutil.DefaultInvoices), tdb.Count("invoices"))
	assert.Equal(t, int64(2), tdb.Count("salespersons"), "the placeholder is reused")

	history := importapp.NewRunHistoryService(persistence.NewGormLoadRunRepository(tdb.DB))
	runs, err := history.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, rerun.RunID, runs[0].ID)
	assert.Equal(t, 1, runs[1].Counts[bulk.EntitySalesperson].Placeholders)
}

func TestSalesLoad_Postgres_RollsBackFailedPhase(t *testing.T) {
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	ctx := testutil.ContextWithTimeout(t, 2*time.Minute)

	wb := testutil.NewSalesWorkbook()
	wb.Sheet(sheetimport.SheetSalesOrderDetail).Set(2, "ProductID", 999)

	summary, err := newPipeline(t, tdb, nil).Run(ctx, wb.Save(t))
	require.Error(t, err)
	assert.Equal(t, bulk.RunStatusFailed, summary.Status)

	// reference and master phases stay committed
	assert.Equal(t, int64(2), tdb.Count("products"))
	assert.Equal(t, int64(testutil.DefaultCompanies), tdb.Count("companies"))
	assert.Zero(t, tdb.Count("invoices"))
	assert.Zero(t, tdb.Count("invoice_line_items"))

	run, err := persistence.NewGormLoadRunRepository(tdb.DB).FindByID(ctx, summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, bulk.RunStatusFailed, run.Status)
	assert.NotEmpty(t, run.ErrorDetails)
}

func TestSalesLoad_Postgres_SkipMode(t *testing.T) {
	tdb := NewSharedTestDB(t)
	tdb.CleanTables()
	ctx := testutil.ContextWithTimeout(t, 2*time.Minute)
	path := testutil.NewSalesWorkbook().Save(t)

	_, err := newPipeline(t, tdb, nil).Run(ctx, path)
	require.NoError(t, err)

	summary, err := newPipeline(t, tdb, func(o *importapp.Options) {
		o.ConflictMode = bulk.ConflictModeSkip
	}).Run(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, testutil.DefaultInvoices, summary.Entities[bulk.EntityInvoice].Skipped)
	assert.Zero(t, summary.Entities[bulk.EntityInvoice].Loaded)
}

// TestSalesLoad_Workbook loads a real export named by SALESETL_TEST_WORKBOOK
func TestSalesLoad_Workbook(t *testing.T) {
	path := os.Getenv("SALESETL_TEST_WORKBOOK")
	if path == "" {
		t.Skip("SALESETL_TEST_WORKBOOK not set")
	}
	tdb := NewTestDB(t)
	ctx := testutil.ContextWithTimeout(t, 10*time.Minute)

	summary, err := newPipeline(t, tdb, nil).Run(ctx, path)
	require.NoError(t, err, summary.FailureReason)
	assert.NotEqual(t, bulk.RunStatusFailed, summary.Status)
	assert.Equal(t, int64(summary.Entities[bulk.EntityInvoice].Loaded), tdb.Count("invoices"))
}
