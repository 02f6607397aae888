package trade

import (
	"strconv"
	"time"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/erp/salesetl/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceLineItem is one product line within an invoice. UnitPriceDiscount
// is a fraction (0.02 = 2%). LineTotalStated is false when LineTotal was
// derived because the source cell was blank.
type InvoiceLineItem struct {
	shared.BaseEntity
	SalesOrderDetailID    int `validate:"gt=0"`
	SalesOrderID          int `validate:"gt=0"`
	InvoiceRef            uuid.UUID
	ProductID             int `validate:"gt=0"`
	ProductRef            uuid.UUID
	OrderQty              int `validate:"gt=0"`
	UnitPrice             decimal.Decimal
	UnitPriceDiscount     decimal.Decimal
	LineTotal             decimal.Decimal
	LineTotalStated       bool
	CarrierTrackingNumber string `validate:"max=25"`
	SpecialOfferID        *int
}

// NewInvoiceLineItem creates a line item for the given order
func NewInvoiceLineItem(salesOrderDetailID, salesOrderID, productID, orderQty int, unitPrice, discount decimal.Decimal) (*InvoiceLineItem, error) {
	if salesOrderDetailID <= 0 || salesOrderID <= 0 {
		return nil, shared.NewDomainError("INVALID_LINE_ID", "Sales order and detail IDs must be positive")
	}
	if productID <= 0 {
		return nil, shared.NewDomainError("INVALID_PRODUCT_ID", "Product ID must be positive")
	}
	if orderQty <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_UNIT_PRICE", "Unit price cannot be negative")
	}
	if discount.IsNegative() || discount.GreaterThan(decimal.NewFromInt(1)) {
		return nil, shared.NewDomainError("INVALID_DISCOUNT", "Discount must be between 0 and 1")
	}
	line := &InvoiceLineItem{
		BaseEntity:         shared.NewBaseEntity(),
		SalesOrderDetailID: salesOrderDetailID,
		SalesOrderID:       salesOrderID,
		ProductID:          productID,
		OrderQty:           orderQty,
		UnitPrice:          valueobject.NewMoney(unitPrice).Amount(),
		UnitPriceDiscount:  discount,
	}
	line.LineTotal = line.ComputedLineTotal()
	return line, nil
}

// ComputedLineTotal returns quantity × unit price × (1 − discount)
func (l *InvoiceLineItem) ComputedLineTotal() decimal.Decimal {
	gross := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.OrderQty)))
	return valueobject.NewMoney(gross.Mul(decimal.NewFromInt(1).Sub(l.UnitPriceDiscount))).Amount()
}

// SetStatedLineTotal records the line total as given in the source
func (l *InvoiceLineItem) SetStatedLineTotal(total decimal.Decimal) {
	l.LineTotal = valueobject.NewMoney(total).Amount()
	l.LineTotalStated = true
}

// ProductKey returns the natural key of the product
func (l *InvoiceLineItem) ProductKey() string {
	return strconv.Itoa(l.ProductID)
}

// EntityType implements bulk.Record
func (l *InvoiceLineItem) EntityType() bulk.EntityType {
	return bulk.EntityInvoiceLineItem
}

// NaturalKey implements bulk.Record
func (l *InvoiceLineItem) NaturalKey() string {
	return strconv.Itoa(l.SalesOrderDetailID)
}

// Invoice is a completed sales order with its line items
type Invoice struct {
	shared.BaseEntity
	SalesOrderID        int    `validate:"gt=0"`
	SalesOrderNumber    string `validate:"max=25"`
	RevisionNumber      int
	OrderDate           time.Time `validate:"required"`
	DueDate             *time.Time
	ShipDate            *time.Time
	Status              int
	OnlineOrderFlag     bool
	PurchaseOrderNumber string `validate:"max=25"`
	AccountNumber       string `validate:"max=15"`
	CustomerID          int    `validate:"gt=0"`
	CompanyRef          uuid.UUID
	SalespersonID       *int
	SalespersonRef      *uuid.UUID
	TerritoryID         *int
	TerritoryRef        *uuid.UUID
	SubTotal            decimal.Decimal
	TaxAmt              decimal.Decimal
	Freight             decimal.Decimal
	TotalDue            decimal.Decimal
	SubTotalStated      bool
	TotalDueStated      bool
	HasDiscrepancy      bool
	Lines               []*InvoiceLineItem `validate:"dive"`
}

// NewInvoice creates an invoice header
func NewInvoice(salesOrderID, customerID int, orderDate time.Time) (*Invoice, error) {
	if salesOrderID <= 0 {
		return nil, shared.NewDomainError("INVALID_SALES_ORDER_ID", "Sales order ID must be positive")
	}
	if customerID <= 0 {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_ID", "Customer ID must be positive")
	}
	if orderDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_ORDER_DATE", "Order date is required")
	}
	return &Invoice{
		BaseEntity:   shared.NewBaseEntity(),
		SalesOrderID: salesOrderID,
		CustomerID:   customerID,
		OrderDate:    orderDate,
	}, nil
}

// AddLine attaches a line item to the invoice
func (i *Invoice) AddLine(line *InvoiceLineItem) error {
	if line.SalesOrderID != i.SalesOrderID {
		return shared.NewDomainError("LINE_ORDER_MISMATCH", "Line item belongs to a different sales order")
	}
	line.InvoiceRef = i.ID
	i.Lines = append(i.Lines, line)
	return nil
}

// SumLineTotals returns Σ line_total over the invoice's lines
func (i *Invoice) SumLineTotals() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range i.Lines {
		sum = sum.Add(l.LineTotal)
	}
	return sum
}

// ComputedTotalDue returns subtotal + tax + freight
func (i *Invoice) ComputedTotalDue() decimal.Decimal {
	return valueobject.NewMoney(i.SubTotal.Add(i.TaxAmt).Add(i.Freight)).Amount()
}

// DeriveMissingTotals fills subtotal and total from the components when the
// source left them blank
func (i *Invoice) DeriveMissingTotals() {
	if !i.SubTotalStated {
		i.SubTotal = valueobject.NewMoney(i.SumLineTotals()).Amount()
	}
	if !i.TotalDueStated {
		i.TotalDue = i.ComputedTotalDue()
	}
}

// AssignID replaces the invoice identifier and re-points its lines
func (i *Invoice) AssignID(id uuid.UUID) {
	i.BaseEntity.AssignID(id)
	for _, l := range i.Lines {
		l.InvoiceRef = i.ID
	}
}

// SalespersonKey returns the natural key of the salesperson, empty when none
func (i *Invoice) SalespersonKey() string {
	if i.SalespersonID == nil {
		return ""
	}
	return strconv.Itoa(*i.SalespersonID)
}

// TerritoryKey returns the natural key of the territory, empty when none
func (i *Invoice) TerritoryKey() string {
	if i.TerritoryID == nil {
		return ""
	}
	return strconv.Itoa(*i.TerritoryID)
}

// CustomerKey returns the natural key of the customer
func (i *Invoice) CustomerKey() string {
	return strconv.Itoa(i.CustomerID)
}

// EntityType implements bulk.Record
func (i *Invoice) EntityType() bulk.EntityType {
	return bulk.EntityInvoice
}

// NaturalKey implements bulk.Record
func (i *Invoice) NaturalKey() string {
	return strconv.Itoa(i.SalesOrderID)
}
