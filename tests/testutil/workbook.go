package testutil

import (
	"bytes"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Totals of the default workbook
const (
	DefaultInvoiceTotal = "7710.84"
	DefaultInvoices     = 2
	DefaultLineItems    = 3
	DefaultCompanies    = 2
)

var addressColumns = []string{
	"AddressType", "AddressLine1", "AddressLine2", "City", "StateProvinceName", "PostalCode", "CountryRegionName",
}

// Sheet is one worksheet: a header row followed by data rows
type Sheet struct {
	Header []string
	Rows   [][]any
}

// Column returns the index of a header cell, or -1
func (s *Sheet) Column(name string) int {
	return slices.Index(s.Header, name)
}

// Append adds a data row given as column → value. Unknown columns are
// appended to the header.
func (s *Sheet) Append(values map[string]any) {
	for name := range values {
		if s.Column(name) < 0 {
			s.Header = append(s.Header, name)
		}
	}
	row := make([]any, len(s.Header))
	for name, v := range values {
		row[s.Column(name)] = v
	}
	s.Rows = append(s.Rows, row)
}

// Set replaces one cell of data row i (0-based)
func (s *Sheet) Set(i int, column string, value any) {
	idx := s.Column(column)
	if idx < 0 {
		s.Header = append(s.Header, column)
		idx = len(s.Header) - 1
	}
	for len(s.Rows[i]) <= idx {
		s.Rows[i] = append(s.Rows[i], nil)
	}
	s.Rows[i][idx] = value
}

// DropColumn removes a column from the header and every row
func (s *Sheet) DropColumn(name string) {
	idx := s.Column(name)
	if idx < 0 {
		return
	}
	s.Header = slices.Delete(s.Header, idx, idx+1)
	for i, row := range s.Rows {
		if idx < len(row) {
			s.Rows[i] = slices.Delete(row, idx, idx+1)
		}
	}
}

// SalesWorkbook builds a source workbook for tests. The zero value is
// empty; NewSalesWorkbook returns a consistent dataset that loads without
// warnings.
type SalesWorkbook struct {
	order  []string
	sheets map[string]*Sheet
}

// AddSheet adds an empty sheet with the given header, replacing any sheet
// of that name
func (w *SalesWorkbook) AddSheet(name string, header ...string) *Sheet {
	if w.sheets == nil {
		w.sheets = make(map[string]*Sheet)
	}
	if _, ok := w.sheets[name]; !ok {
		w.order = append(w.order, name)
	}
	s := &Sheet{Header: slices.Clone(header)}
	w.sheets[name] = s
	return s
}

// Sheet returns a sheet by name, nil when absent
func (w *SalesWorkbook) Sheet(name string) *Sheet {
	return w.sheets[name]
}

// RemoveSheet drops a sheet
func (w *SalesWorkbook) RemoveSheet(name string) {
	delete(w.sheets, name)
	w.order = slices.DeleteFunc(w.order, func(n string) bool { return n == name })
}

// NewSalesWorkbook returns two territories, two categories and
// subcategories, two products, one individual and one store customer, one
// salesperson and two invoices with three lines. Invoice 43659 is sold by
// salesperson 274; invoice 43660 has no salesperson.
func NewSalesWorkbook() *SalesWorkbook {
	w := &SalesWorkbook{}

	s := w.AddSheet("SalesTerritory", "TerritoryID", "Name", "CountryRegionCode", "Group")
	s.Rows = [][]any{
		{1, "Northwest", "US", "North America"},
		{2, "Southwest", "US", "North America"},
	}

	s = w.AddSheet("ProductCategory", "ProductCategoryID", "Name")
	s.Rows = [][]any{
		{1, "Bikes"},
		{2, "Components"},
	}

	s = w.AddSheet("ProductSubCategory", "ProductSubcategoryID", "ProductCategoryID", "Name")
	s.Rows = [][]any{
		{1, 1, "Mountain Bikes"},
		{4, 2, "Handlebars"},
	}

	s = w.AddSheet("Product", "ProductID", "Name", "ProductNumber", "Color", "Size", "ProductLine", "Class", "Style",
		"StandardCost", "ListPrice", "MakeFlag", "FinishedGoodsFlag", "ProductSubcategoryID", "ProductModelID")
	s.Rows = [][]any{
		{771, "Mountain-100 Silver, 38", "BK-M82S-38", "Silver", "38", "M", "H", "U", "1912.1544", "3399.99", 1, 1, 1, 19},
		{808, "LL Mountain Handlebars", "HB-M243", "", "", "M", "L", "", "19.7758", "44.54", 1, 1, 4, 52},
	}

	s = w.AddSheet("Customers", "CustomerID", "PersonID", "StoreID", "TerritoryID", "AccountNumber")
	s.Rows = [][]any{
		{11000, 101, nil, 1, "AW00011000"},
		{29485, nil, 201, 2, "AW00029485"},
	}

	s = w.AddSheet("IndividualCustomers", append([]string{"BusinessEntityID", "FirstName", "MiddleName", "LastName"}, addressColumns...)...)
	s.Rows = [][]any{
		{101, "Jon", "V", "Yang", "Home", "3761 N. 14th St", "", "Seattle", "Washington", "98104", "United States"},
	}

	s = w.AddSheet("StoreCustomers", append([]string{"BusinessEntityID", "Name"}, addressColumns...)...)
	s.Rows = [][]any{
		{201, "Bike World", "Main Office", "2251 Elliot Avenue", "", "Seattle", "Washington", "98104", "United States"},
	}

	s = w.AddSheet("SalesPerson", "BusinessEntityID", "FirstName", "LastName", "Name")
	s.Rows = [][]any{
		{274, "Stephen", "Jiang", ""},
	}

	s = w.AddSheet("SalesOrderHeader", "SalesOrderID", "RevisionNumber", "OrderDate", "DueDate", "ShipDate", "Status",
		"OnlineOrderFlag", "SalesOrderNumber", "PurchaseOrderNumber", "AccountNumber", "CustomerID", "SalesPersonID",
		"TerritoryID", "SubTotal", "TaxAmt", "Freight", "TotalDue")
	s.Rows = [][]any{
		{43659, 8, "2024-03-01", "2024-03-13", "2024-03-08", 5, 0, "SO43659", "PO522145787", "AW00029485", 29485, 274, 2,
			"6933.60", "554.69", "173.34", "7661.63"},
		{43660, 8, "2024-03-02", "2024-03-14", "2024-03-09", 5, 1, "SO43660", "", "AW00011000", 11000, nil, 1,
			"44.54", "3.56", "1.11", "49.21"},
	}

	s = w.AddSheet("SalesOrderDetail", "SalesOrderID", "SalesOrderDetailID", "CarrierTrackingNumber", "OrderQty",
		"ProductID", "SpecialOfferID", "UnitPrice", "UnitPriceDiscount", "LineTotal")
	s.Rows = [][]any{
		{43659, 1, "4911-403C-98", 2, 771, 1, "3399.99", "0", "6799.98"},
		{43659, 2, "4911-403C-98", 3, 808, 1, "44.54", "0", "133.62"},
		{43660, 3, "", 1, 808, 1, "44.54", "0", "44.54"},
	}

	return w
}

func (w *SalesWorkbook) file(t *testing.T) *excelize.File {
	t.Helper()
	require.NotEmpty(t, w.order, "workbook has no sheets")

	f := excelize.NewFile()
	for i, name := range w.order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		s := w.sheets[name]
		rows := append([][]any{toAny(s.Header)}, s.Rows...)
		for r, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}
	return f
}

// Bytes returns the workbook as .xlsx content
func (w *SalesWorkbook) Bytes(t *testing.T) []byte {
	t.Helper()
	f := w.file(t)
	defer f.Close()

	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// Save writes the workbook to a temporary directory and returns its path
func (w *SalesWorkbook) Save(t *testing.T) string {
	t.Helper()
	return w.SaveAs(t, filepath.Join(t.TempDir(), "sales.xlsx"))
}

// SaveAs writes the workbook to path
func (w *SalesWorkbook) SaveAs(t *testing.T, path string) string {
	t.Helper()
	f := w.file(t)
	defer f.Close()
	require.NoError(t, f.SaveAs(path))
	return path
}

func toAny(header []string) []any {
	out := make([]any, len(header))
	for i, h := range header {
		out[i] = h
	}
	return out
}
