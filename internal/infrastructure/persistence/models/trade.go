package models

import (
	"time"

	"github.com/erp/salesetl/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for a trade.Invoice header.
// Lines are stored separately in invoice_line_items.
type InvoiceModel struct {
	BaseModel
	SalesOrderID        int       `gorm:"not null;uniqueIndex:uq_invoices_sales_order_id"`
	SalesOrderNumber    string    `gorm:"type:varchar(25)"`
	RevisionNumber      int       `gorm:"not null;default:0"`
	OrderDate           time.Time `gorm:"not null"`
	DueDate             *time.Time
	ShipDate            *time.Time
	Status              int       `gorm:"not null;default:0"`
	OnlineOrderFlag     bool      `gorm:"not null;default:false"`
	PurchaseOrderNumber string    `gorm:"type:varchar(25)"`
	AccountNumber       string    `gorm:"type:varchar(15)"`
	CustomerID          int       `gorm:"not null"`
	CompanyRef          uuid.UUID `gorm:"type:uuid;not null;index"`
	SalespersonID       *int
	SalespersonRef      *uuid.UUID `gorm:"type:uuid;index"`
	TerritoryID         *int
	TerritoryRef        *uuid.UUID      `gorm:"type:uuid;index"`
	SubTotal            decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	TaxAmt              decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	Freight             decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	TotalDue            decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	SubTotalStated      bool            `gorm:"not null"`
	TotalDueStated      bool            `gorm:"not null"`
	HasDiscrepancy      bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice without lines
func (m *InvoiceModel) ToDomain() *trade.Invoice {
	return &trade.Invoice{
		BaseEntity:          m.BaseModel.Entity(),
		SalesOrderID:        m.SalesOrderID,
		SalesOrderNumber:    m.SalesOrderNumber,
		RevisionNumber:      m.RevisionNumber,
		OrderDate:           m.OrderDate,
		DueDate:             m.DueDate,
		ShipDate:            m.ShipDate,
		Status:              m.Status,
		OnlineOrderFlag:     m.OnlineOrderFlag,
		PurchaseOrderNumber: m.PurchaseOrderNumber,
		AccountNumber:       m.AccountNumber,
		CustomerID:          m.CustomerID,
		CompanyRef:          m.CompanyRef,
		SalespersonID:       m.SalespersonID,
		SalespersonRef:      m.SalespersonRef,
		TerritoryID:         m.TerritoryID,
		TerritoryRef:        m.TerritoryRef,
		SubTotal:            m.SubTotal,
		TaxAmt:              m.TaxAmt,
		Freight:             m.Freight,
		TotalDue:            m.TotalDue,
		SubTotalStated:      m.SubTotalStated,
		TotalDueStated:      m.TotalDueStated,
		HasDiscrepancy:      m.HasDiscrepancy,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(i *trade.Invoice) {
	m.SetEntity(i.BaseEntity)
	m.SalesOrderID = i.SalesOrderID
	m.SalesOrderNumber = i.SalesOrderNumber
	m.RevisionNumber = i.RevisionNumber
	m.OrderDate = i.OrderDate
	m.DueDate = i.DueDate
	m.ShipDate = i.ShipDate
	m.Status = i.Status
	m.OnlineOrderFlag = i.OnlineOrderFlag
	m.PurchaseOrderNumber = i.PurchaseOrderNumber
	m.AccountNumber = i.AccountNumber
	m.CustomerID = i.CustomerID
	m.CompanyRef = i.CompanyRef
	m.SalespersonID = i.SalespersonID
	m.SalespersonRef = i.SalespersonRef
	m.TerritoryID = i.TerritoryID
	m.TerritoryRef = i.TerritoryRef
	m.SubTotal = i.SubTotal
	m.TaxAmt = i.TaxAmt
	m.Freight = i.Freight
	m.TotalDue = i.TotalDue
	m.SubTotalStated = i.SubTotalStated
	m.TotalDueStated = i.TotalDueStated
	m.HasDiscrepancy = i.HasDiscrepancy
}

// InvoiceLineItemModel is the persistence model for trade.InvoiceLineItem
type InvoiceLineItemModel struct {
	BaseModel
	SalesOrderDetailID    int             `gorm:"not null;uniqueIndex:uq_invoice_line_items_sales_order_detail_id"`
	SalesOrderID          int             `gorm:"not null"`
	InvoiceRef            uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID             int             `gorm:"not null"`
	ProductRef            uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderQty              int             `gorm:"not null"`
	UnitPrice             decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	UnitPriceDiscount     decimal.Decimal `gorm:"type:numeric(19,4);not null;default:0"`
	LineTotal             decimal.Decimal `gorm:"type:numeric(19,4);not null"`
	LineTotalStated       bool            `gorm:"not null"`
	CarrierTrackingNumber string          `gorm:"type:varchar(25)"`
	SpecialOfferID        *int
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// ToDomain converts the persistence model to a domain InvoiceLineItem
func (m *InvoiceLineItemModel) ToDomain() *trade.InvoiceLineItem {
	return &trade.InvoiceLineItem{
		BaseEntity:            m.BaseModel.Entity(),
		SalesOrderDetailID:    m.SalesOrderDetailID,
		SalesOrderID:          m.SalesOrderID,
		InvoiceRef:            m.InvoiceRef,
		ProductID:             m.ProductID,
		ProductRef:            m.ProductRef,
		OrderQty:              m.OrderQty,
		UnitPrice:             m.UnitPrice,
		UnitPriceDiscount:     m.UnitPriceDiscount,
		LineTotal:             m.LineTotal,
		LineTotalStated:       m.LineTotalStated,
		CarrierTrackingNumber: m.CarrierTrackingNumber,
		SpecialOfferID:        m.SpecialOfferID,
	}
}

// FromDomain populates the persistence model from a domain InvoiceLineItem
func (m *InvoiceLineItemModel) FromDomain(l *trade.InvoiceLineItem) {
	m.SetEntity(l.BaseEntity)
	m.SalesOrderDetailID = l.SalesOrderDetailID
	m.SalesOrderID = l.SalesOrderID
	m.InvoiceRef = l.InvoiceRef
	m.ProductID = l.ProductID
	m.ProductRef = l.ProductRef
	m.OrderQty = l.OrderQty
	m.UnitPrice = l.UnitPrice
	m.UnitPriceDiscount = l.UnitPriceDiscount
	m.LineTotal = l.LineTotal
	m.LineTotalStated = l.LineTotalStated
	m.CarrierTrackingNumber = l.CarrierTrackingNumber
	m.SpecialOfferID = l.SpecialOfferID
}
