package models

import (
	"github.com/erp/salesetl/internal/domain/partner"
	"github.com/erp/salesetl/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// SalesTerritoryModel is the persistence model for partner.SalesTerritory
type SalesTerritoryModel struct {
	BaseModel
	TerritoryID       int    `gorm:"not null;uniqueIndex:uq_sales_territories_territory_id"`
	Name              string `gorm:"type:varchar(50);not null"`
	CountryRegionCode string `gorm:"type:varchar(3)"`
	TerritoryGroup    string `gorm:"type:varchar(50)"`
}

// TableName returns the table name for GORM
func (SalesTerritoryModel) TableName() string {
	return "sales_territories"
}

// ToDomain converts the persistence model to a domain SalesTerritory
func (m *SalesTerritoryModel) ToDomain() *partner.SalesTerritory {
	return &partner.SalesTerritory{
		BaseEntity:        m.BaseModel.Entity(),
		TerritoryID:       m.TerritoryID,
		Name:              m.Name,
		CountryRegionCode: m.CountryRegionCode,
		Group:             m.TerritoryGroup,
	}
}

// FromDomain populates the persistence model from a domain SalesTerritory
func (m *SalesTerritoryModel) FromDomain(t *partner.SalesTerritory) {
	m.SetEntity(t.BaseEntity)
	m.TerritoryID = t.TerritoryID
	m.Name = t.Name
	m.CountryRegionCode = t.CountryRegionCode
	m.TerritoryGroup = t.Group
}

// SalespersonModel is the persistence model for partner.Salesperson
type SalespersonModel struct {
	BaseModel
	SalespersonID int    `gorm:"not null;uniqueIndex:uq_salespersons_salesperson_id"`
	Name          string `gorm:"type:varchar(150);not null"`
	IsPlaceholder bool   `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (SalespersonModel) TableName() string {
	return "salespersons"
}

// ToDomain converts the persistence model to a domain Salesperson
func (m *SalespersonModel) ToDomain() *partner.Salesperson {
	return &partner.Salesperson{
		BaseEntity:    m.BaseModel.Entity(),
		SalespersonID: m.SalespersonID,
		Name:          m.Name,
		IsPlaceholder: m.IsPlaceholder,
	}
}

// FromDomain populates the persistence model from a domain Salesperson
func (m *SalespersonModel) FromDomain(s *partner.Salesperson) {
	m.SetEntity(s.BaseEntity)
	m.SalespersonID = s.SalespersonID
	m.Name = s.Name
	m.IsPlaceholder = s.IsPlaceholder
}

// CompanyModel is the persistence model for the consolidated partner.Company
type CompanyModel struct {
	BaseModel
	CustomerID        int    `gorm:"not null;uniqueIndex:uq_companies_customer_id"`
	AccountNumber     string `gorm:"type:varchar(20)"`
	DisplayName       string `gorm:"type:varchar(200);not null"`
	CompanyType       string `gorm:"type:varchar(20);not null"`
	AddressLine1      string `gorm:"type:varchar(120)"`
	AddressLine2      string `gorm:"type:varchar(120)"`
	City              string `gorm:"type:varchar(60)"`
	StateProvince     string `gorm:"type:varchar(60)"`
	PostalCode        string `gorm:"type:varchar(20)"`
	CountryCode       string `gorm:"type:varchar(3)"`
	CountryName       string `gorm:"type:varchar(60)"`
	TerritoryID       *int
	TerritoryRef      *uuid.UUID `gorm:"type:uuid;index"`
	NeedsReview       bool       `gorm:"not null;default:false"`
	MergedCustomerIDs []int      `gorm:"type:jsonb;serializer:json"`
}

// TableName returns the table name for GORM
func (CompanyModel) TableName() string {
	return "companies"
}

// ToDomain converts the persistence model to a domain Company
func (m *CompanyModel) ToDomain() *partner.Company {
	return &partner.Company{
		BaseEntity:    m.BaseModel.Entity(),
		CustomerID:    m.CustomerID,
		AccountNumber: m.AccountNumber,
		DisplayName:   m.DisplayName,
		CompanyType:   partner.CompanyType(m.CompanyType),
		Address: valueobject.RestoreAddress(
			m.AddressLine1, m.AddressLine2, m.City, m.StateProvince,
			m.PostalCode, m.CountryCode, m.CountryName, m.NeedsReview,
		),
		TerritoryID:       m.TerritoryID,
		TerritoryRef:      m.TerritoryRef,
		NeedsReview:       m.NeedsReview,
		MergedCustomerIDs: m.MergedCustomerIDs,
	}
}

// FromDomain populates the persistence model from a domain Company
func (m *CompanyModel) FromDomain(c *partner.Company) {
	m.SetEntity(c.BaseEntity)
	m.CustomerID = c.CustomerID
	m.AccountNumber = c.AccountNumber
	m.DisplayName = c.DisplayName
	m.CompanyType = string(c.CompanyType)
	m.AddressLine1 = c.Address.Line1()
	m.AddressLine2 = c.Address.Line2()
	m.City = c.Address.City()
	m.StateProvince = c.Address.StateProvince()
	m.PostalCode = c.Address.PostalCode()
	m.CountryCode = c.Address.CountryCode()
	m.CountryName = c.Address.CountryName()
	m.TerritoryID = c.TerritoryID
	m.TerritoryRef = c.TerritoryRef
	m.NeedsReview = c.NeedsReview
	m.MergedCustomerIDs = c.MergedCustomerIDs
}
