package importapp

import (
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
)

// Field specs per source sheet. Optional columns missing from a sheet read
// as blank and fall back to the defaults below.

var territoryFields = struct {
	ID, Name, CountryRegionCode, Group sheetimport.FieldSpec
}{
	ID:                sheetimport.Field("TerritoryID").Required().Int().Build(),
	Name:              sheetimport.Field("Name").Required().String().Build(),
	CountryRegionCode: sheetimport.Field("CountryRegionCode").Upper().Build(),
	Group:             sheetimport.Field("Group").String().Build(),
}

var categoryFields = struct {
	ID, Name sheetimport.FieldSpec
}{
	ID:   sheetimport.Field("ProductCategoryID").Required().Int().Build(),
	Name: sheetimport.Field("Name").Required().String().Build(),
}

var subcategoryFields = struct {
	ID, CategoryID, Name sheetimport.FieldSpec
}{
	ID:         sheetimport.Field("ProductSubcategoryID").Required().Int().Build(),
	CategoryID: sheetimport.Field("ProductCategoryID").Required().Int().Build(),
	Name:       sheetimport.Field("Name").Required().String().Build(),
}

var productFields = struct {
	ID, Name, Number, Color, Size, ProductLine, Class, Style sheetimport.FieldSpec
	StandardCost, ListPrice, MakeFlag, FinishedGoodsFlag     sheetimport.FieldSpec
	SubcategoryID, ModelID                                   sheetimport.FieldSpec
}{
	ID:                sheetimport.Field("ProductID").Required().Int().Build(),
	Name:              sheetimport.Field("Name").Required().String().Build(),
	Number:            sheetimport.Field("ProductNumber").Attribute().Build(),
	Color:             sheetimport.Field("Color").Attribute().Build(),
	Size:              sheetimport.Field("Size").Attribute().Build(),
	ProductLine:       sheetimport.Field("ProductLine").Attribute().Build(),
	Class:             sheetimport.Field("Class").Attribute().Build(),
	Style:             sheetimport.Field("Style").Attribute().Build(),
	StandardCost:      sheetimport.Field("StandardCost").Money().Build(),
	ListPrice:         sheetimport.Field("ListPrice").Money().Build(),
	MakeFlag:          sheetimport.Field("MakeFlag").Bool().Default("false").Build(),
	FinishedGoodsFlag: sheetimport.Field("FinishedGoodsFlag").Bool().Default("false").Build(),
	SubcategoryID:     sheetimport.Field("ProductSubcategoryID").Int().Build(),
	ModelID:           sheetimport.Field("ProductModelID").Int().Build(),
}

var customerFields = struct {
	ID, PersonID, StoreID, TerritoryID, AccountNumber sheetimport.FieldSpec
}{
	ID:            sheetimport.Field("CustomerID").Required().Int().Build(),
	PersonID:      sheetimport.Field("PersonID").Int().Build(),
	StoreID:       sheetimport.Field("StoreID").Int().Build(),
	TerritoryID:   sheetimport.Field("TerritoryID").Int().Build(),
	AccountNumber: sheetimport.Field("AccountNumber").Upper().Build(),
}

var addressFields = struct {
	Type, Line1, Line2, City, State, Postal, Country sheetimport.FieldSpec
}{
	Type:    sheetimport.Field("AddressType").String().Build(),
	Line1:   sheetimport.Field("AddressLine1").String().Build(),
	Line2:   sheetimport.Field("AddressLine2").String().Build(),
	City:    sheetimport.Field("City").String().Build(),
	State:   sheetimport.Field("StateProvinceName").String().Build(),
	Postal:  sheetimport.Field("PostalCode").String().Build(),
	Country: sheetimport.Field("CountryRegionName").String().Build(),
}

var individualFields = struct {
	ID, FirstName, MiddleName, LastName sheetimport.FieldSpec
}{
	ID:         sheetimport.Field("BusinessEntityID").Required().Int().Build(),
	FirstName:  sheetimport.Field("FirstName").String().Build(),
	MiddleName: sheetimport.Field("MiddleName").String().Build(),
	LastName:   sheetimport.Field("LastName").String().Build(),
}

var storeFields = struct {
	ID, Name sheetimport.FieldSpec
}{
	ID:   sheetimport.Field("BusinessEntityID").Required().Int().Build(),
	Name: sheetimport.Field("Name").Required().String().Build(),
}

var salespersonFields = struct {
	ID, FirstName, LastName, Name sheetimport.FieldSpec
}{
	ID:        sheetimport.Field("BusinessEntityID").Required().Int().Build(),
	FirstName: sheetimport.Field("FirstName").String().Build(),
	LastName:  sheetimport.Field("LastName").String().Build(),
	Name:      sheetimport.Field("Name").String().Build(),
}

var headerFields = struct {
	ID, OrderDate, CustomerID, Number, Revision, DueDate, ShipDate, Status sheetimport.FieldSpec
	Online, PurchaseOrder, AccountNumber, SalesPersonID, TerritoryID        sheetimport.FieldSpec
	SubTotal, TaxAmt, Freight, TotalDue                                     sheetimport.FieldSpec
}{
	ID:            sheetimport.Field("SalesOrderID").Required().Int().Build(),
	OrderDate:     sheetimport.Field("OrderDate").Required().Date().Build(),
	CustomerID:    sheetimport.Field("CustomerID").Required().Int().Build(),
	Number:        sheetimport.Field("SalesOrderNumber").String().Build(),
	Revision:      sheetimport.Field("RevisionNumber").Int().Default("0").Build(),
	DueDate:       sheetimport.Field("DueDate").Date().Build(),
	ShipDate:      sheetimport.Field("ShipDate").Date().Build(),
	Status:        sheetimport.Field("Status").Int().Default("5").Build(),
	Online:        sheetimport.Field("OnlineOrderFlag").Bool().Default("false").Build(),
	PurchaseOrder: sheetimport.Field("PurchaseOrderNumber").String().Build(),
	AccountNumber: sheetimport.Field("AccountNumber").Upper().Build(),
	SalesPersonID: sheetimport.Field("SalesPersonID").Int().Build(),
	TerritoryID:   sheetimport.Field("TerritoryID").Int().Build(),
	SubTotal:      sheetimport.Field("SubTotal").Money().Build(),
	TaxAmt:        sheetimport.Field("TaxAmt").Money().Default("0").Build(),
	Freight:       sheetimport.Field("Freight").Money().Default("0").Build(),
	TotalDue:      sheetimport.Field("TotalDue").Money().Build(),
}

var detailFields = struct {
	OrderID, DetailID, ProductID, Qty, UnitPrice, Discount sheetimport.FieldSpec
	LineTotal, Tracking, SpecialOfferID                    sheetimport.FieldSpec
}{
	OrderID:        sheetimport.Field("SalesOrderID").Required().Int().Build(),
	DetailID:       sheetimport.Field("SalesOrderDetailID").Required().Int().Build(),
	ProductID:      sheetimport.Field("ProductID").Required().Int().Build(),
	Qty:            sheetimport.Field("OrderQty").Required().Int().Build(),
	UnitPrice:      sheetimport.Field("UnitPrice").Required().Money().Build(),
	Discount:       sheetimport.Field("UnitPriceDiscount").Rate().Default("0").Build(),
	LineTotal:      sheetimport.Field("LineTotal").Money().Build(),
	Tracking:       sheetimport.Field("CarrierTrackingNumber").String().Build(),
	SpecialOfferID: sheetimport.Field("SpecialOfferID").Int().Build(),
}
