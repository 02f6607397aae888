package sheetimport

// Sheet names of the source workbook
const (
	SheetSalesTerritory      = "SalesTerritory"
	SheetProductCategory     = "ProductCategory"
	SheetProductSubCategory  = "ProductSubCategory"
	SheetProduct             = "Product"
	SheetCustomers           = "Customers"
	SheetIndividualCustomers = "IndividualCustomers"
	SheetStoreCustomers      = "StoreCustomers"
	SheetSalesOrderHeader    = "SalesOrderHeader"
	SheetSalesOrderDetail    = "SalesOrderDetail"
	SheetSalesPerson         = "SalesPerson"
)

// SheetContract is the minimum a sheet must provide. Required columns must
// be present; optional columns are defaulted when absent.
type SheetContract struct {
	Name     string
	Required []string
	Optional []string
	// Absent sheets are tolerated when Optional is true
	OptionalSheet bool
}

var addressColumns = []string{
	"AddressType", "AddressLine1", "AddressLine2", "City",
	"StateProvinceName", "PostalCode", "CountryRegionName",
}

// Contracts returns the contracts of every sheet the pipeline reads
func Contracts() []SheetContract {
	return []SheetContract{
		{
			Name:     SheetSalesTerritory,
			Required: []string{"TerritoryID", "Name"},
			Optional: []string{"CountryRegionCode", "Group"},
		},
		{
			Name:     SheetProductCategory,
			Required: []string{"ProductCategoryID", "Name"},
		},
		{
			Name:     SheetProductSubCategory,
			Required: []string{"ProductSubcategoryID", "ProductCategoryID", "Name"},
		},
		{
			Name:     SheetProduct,
			Required: []string{"ProductID", "Name"},
			Optional: []string{
				"ProductNumber", "Color", "Size", "ProductLine", "Class", "Style",
				"StandardCost", "ListPrice", "MakeFlag", "FinishedGoodsFlag",
				"ProductSubcategoryID", "ProductModelID",
			},
		},
		{
			Name:     SheetCustomers,
			Required: []string{"CustomerID"},
			Optional: []string{"PersonID", "StoreID", "TerritoryID", "AccountNumber"},
		},
		{
			Name:     SheetIndividualCustomers,
			Required: []string{"BusinessEntityID"},
			Optional: append([]string{"FirstName", "MiddleName", "LastName"}, addressColumns...),
		},
		{
			Name:     SheetStoreCustomers,
			Required: []string{"BusinessEntityID", "Name"},
			Optional: addressColumns,
		},
		{
			Name:     SheetSalesOrderHeader,
			Required: []string{"SalesOrderID", "OrderDate", "CustomerID"},
			Optional: []string{
				"SalesOrderNumber", "RevisionNumber", "DueDate", "ShipDate", "Status",
				"OnlineOrderFlag", "PurchaseOrderNumber", "AccountNumber", "SalesPersonID",
				"TerritoryID", "SubTotal", "TaxAmt", "Freight", "TotalDue",
			},
		},
		{
			Name:     SheetSalesOrderDetail,
			Required: []string{"SalesOrderID", "SalesOrderDetailID", "ProductID", "OrderQty", "UnitPrice"},
			Optional: []string{"UnitPriceDiscount", "LineTotal", "CarrierTrackingNumber", "SpecialOfferID"},
		},
		{
			Name:          SheetSalesPerson,
			Required:      []string{"BusinessEntityID"},
			Optional:      []string{"FirstName", "LastName", "Name"},
			OptionalSheet: true,
		},
	}
}

// Contract returns the contract for a sheet name
func Contract(name string) (SheetContract, bool) {
	for _, c := range Contracts() {
		if c.Name == name {
			return c, true
		}
	}
	return SheetContract{}, false
}
