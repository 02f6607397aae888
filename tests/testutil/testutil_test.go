package testutil

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNewMockDB(t *testing.T) {
	mockDB := NewMockDB(t)

	assert.NotNil(t, mockDB.DB)
	assert.NotNil(t, mockDB.Mock)
	assert.NotNil(t, mockDB.SqlDB)

	// No expectations set, should pass
	mockDB.ExpectationsWereMet(t)
}

func TestNewTestUUID(t *testing.T) {
	uuid1 := NewTestUUID("test-seed")
	uuid2 := NewTestUUID("test-seed")
	uuid3 := NewTestUUID("different-seed")

	assert.Equal(t, uuid1, uuid2)
	assert.NotEqual(t, uuid1, uuid3)
}

func TestContextWithTimeout(t *testing.T) {
	ctx := ContextWithTimeout(t, 100*time.Millisecond)

	deadline, ok := ctx.Deadline()
	assert.True(t, ok)
	assert.True(t, deadline.After(time.Now()))
}

func TestSheet_AppendAndSet(t *testing.T) {
	s := &Sheet{Header: []string{"TerritoryID", "Name"}}
	s.Rows = [][]any{{1, "Northwest"}}

	s.Append(map[string]any{"TerritoryID": 2, "Group": "Europe"})
	s.Set(0, "Group", "North America")

	assert.Equal(t, []string{"TerritoryID", "Name", "Group"}, s.Header)
	assert.Equal(t, []any{1, "Northwest", "North America"}, s.Rows[0])
	assert.Equal(t, []any{2, nil, "Europe"}, s.Rows[1])

	s.DropColumn("Name")
	assert.Equal(t, []string{"TerritoryID", "Group"}, s.Header)
	assert.Equal(t, []any{2, "Europe"}, s.Rows[1])
}

func TestSalesWorkbook_Bytes(t *testing.T) {
	wb := NewSalesWorkbook()
	wb.RemoveSheet("SalesPerson")
	assert.Nil(t, wb.Sheet("SalesPerson"))

	f, err := excelize.OpenReader(bytes.NewReader(wb.Bytes(t)))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		"SalesTerritory", "ProductCategory", "ProductSubCategory", "Product", "Customers",
		"IndividualCustomers", "StoreCustomers", "SalesOrderHeader", "SalesOrderDetail",
	}, f.GetSheetList())

	rows, err := f.GetRows("SalesOrderDetail")
	require.NoError(t, err)
	require.Len(t, rows, DefaultLineItems+1)
	assert.Equal(t, "SalesOrderID", rows[0][0])
	assert.Equal(t, "6799.98", rows[1][8])
}

func TestSalesWorkbook_Save(t *testing.T) {
	path := NewSalesWorkbook().Save(t)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Customers")
	require.NoError(t, err)
	assert.Len(t, rows, DefaultCompanies+1)
}
