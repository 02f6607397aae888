package sheetimport

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, sheets map[string][][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	first := true
	for name, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", name))
			first = false
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestOpenWorkbook_MissingFile(t *testing.T) {
	_, err := OpenWorkbook(filepath.Join(t.TempDir(), "nope.xlsx"))

	assert.True(t, errors.Is(err, ErrSourceNotFound))
}

func TestSheetReader(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		SheetSalesTerritory: {
			{"TerritoryID", " Name ", "CountryRegionCode", "Group"},
			{1, "Northwest", "US", "North America"},
			{},
			{2, "Northeast", "US"},
		},
	})

	wb, err := OpenWorkbook(path)
	require.NoError(t, err)
	defer wb.Close()

	assert.True(t, wb.HasSheet("salesterritory"))

	contract, ok := Contract(SheetSalesTerritory)
	require.True(t, ok)

	reader, err := wb.Open(contract)
	require.NoError(t, err)
	defer reader.Close()

	assert.True(t, reader.HasHeader("name"))
	assert.True(t, reader.HasHeader("COUNTRYREGIONCODE"))
	assert.False(t, reader.HasHeader("SalesYTD"))

	row, err := reader.ReadRow()
	require.NoError(t, err)
	assert.Equal(t, 2, row.LineNumber)
	assert.Equal(t, "1", row.Get("TerritoryID"))
	assert.Equal(t, "Northwest", row.Get("name"))

	rest, err := reader.ReadAllRows()
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, 4, rest[0].LineNumber)
	assert.Equal(t, "", rest[0].Get("Group"))

	_, err = reader.ReadRow()
	assert.Equal(t, io.EOF, err)
}

func TestValidateContracts(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		SheetSalesTerritory:  {{"TerritoryID", "Name"}},
		SheetProductCategory: {{"ProductCategoryID"}},
	})

	wb, err := OpenWorkbook(path)
	require.NoError(t, err)
	defer wb.Close()

	err = wb.ValidateContracts(Contracts())
	require.Error(t, err)

	var cerr *ContractError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.MissingSheets, SheetProduct)
	assert.Contains(t, cerr.MissingSheets, SheetSalesOrderDetail)
	assert.NotContains(t, cerr.MissingSheets, SheetSalesTerritory)
	assert.NotContains(t, cerr.MissingSheets, SheetSalesPerson)
	assert.Equal(t, []string{"Name"}, cerr.MissingColumns[SheetProductCategory])
}

func TestOpen_MissingColumns(t *testing.T) {
	path := writeWorkbook(t, map[string][][]any{
		SheetProductCategory: {{"ProductCategoryID"}, {1}},
	})

	wb, err := OpenWorkbook(path)
	require.NoError(t, err)
	defer wb.Close()

	contract, _ := Contract(SheetProductCategory)
	_, err = wb.ReadSheet(contract)
	assert.True(t, errors.Is(err, ErrMissingColumns))
}
