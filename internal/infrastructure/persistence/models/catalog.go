package models

import (
	"github.com/erp/salesetl/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductCategoryModel is the persistence model for catalog.ProductCategory
type ProductCategoryModel struct {
	BaseModel
	CategoryID int    `gorm:"not null;uniqueIndex:uq_product_categories_category_id"`
	Name       string `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (ProductCategoryModel) TableName() string {
	return "product_categories"
}

// ToDomain converts the persistence model to a domain ProductCategory
func (m *ProductCategoryModel) ToDomain() *catalog.ProductCategory {
	return &catalog.ProductCategory{
		BaseEntity: m.BaseModel.Entity(),
		CategoryID: m.CategoryID,
		Name:       m.Name,
	}
}

// FromDomain populates the persistence model from a domain ProductCategory
func (m *ProductCategoryModel) FromDomain(c *catalog.ProductCategory) {
	m.SetEntity(c.BaseEntity)
	m.CategoryID = c.CategoryID
	m.Name = c.Name
}

// ProductSubCategoryModel is the persistence model for catalog.ProductSubCategory
type ProductSubCategoryModel struct {
	BaseModel
	SubcategoryID int       `gorm:"not null;uniqueIndex:uq_product_subcategories_subcategory_id"`
	CategoryID    int       `gorm:"not null"`
	CategoryRef   uuid.UUID `gorm:"type:uuid;not null;index"`
	Name          string    `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (ProductSubCategoryModel) TableName() string {
	return "product_subcategories"
}

// ToDomain converts the persistence model to a domain ProductSubCategory
func (m *ProductSubCategoryModel) ToDomain() *catalog.ProductSubCategory {
	return &catalog.ProductSubCategory{
		BaseEntity:    m.BaseModel.Entity(),
		SubcategoryID: m.SubcategoryID,
		CategoryID:    m.CategoryID,
		CategoryRef:   m.CategoryRef,
		Name:          m.Name,
	}
}

// FromDomain populates the persistence model from a domain ProductSubCategory
func (m *ProductSubCategoryModel) FromDomain(s *catalog.ProductSubCategory) {
	m.SetEntity(s.BaseEntity)
	m.SubcategoryID = s.SubcategoryID
	m.CategoryID = s.CategoryID
	m.CategoryRef = s.CategoryRef
	m.Name = s.Name
}

// ProductModel is the persistence model for catalog.Product
type ProductModel struct {
	BaseModel
	ProductID         int    `gorm:"not null;uniqueIndex:uq_products_product_id"`
	ProductNumber     string `gorm:"type:varchar(25);not null"`
	Name              string `gorm:"type:varchar(100);not null"`
	SubcategoryID     *int
	SubcategoryRef    *uuid.UUID          `gorm:"type:uuid;index"`
	StandardCost      decimal.NullDecimal `gorm:"type:numeric(19,4)"`
	ListPrice         decimal.NullDecimal `gorm:"type:numeric(19,4)"`
	Color             string              `gorm:"type:varchar(50);not null"`
	Size              string              `gorm:"type:varchar(50);not null"`
	ProductLine       string              `gorm:"type:varchar(50);not null"`
	Class             string              `gorm:"type:varchar(50);not null"`
	Style             string              `gorm:"type:varchar(50);not null"`
	MakeFlag          bool                `gorm:"not null;default:false"`
	FinishedGoodsFlag bool                `gorm:"not null;default:false"`
	ProductModelID    *int
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseEntity:        m.BaseModel.Entity(),
		ProductID:         m.ProductID,
		ProductNumber:     m.ProductNumber,
		Name:              m.Name,
		SubcategoryID:     m.SubcategoryID,
		SubcategoryRef:    m.SubcategoryRef,
		StandardCost:      m.StandardCost,
		ListPrice:         m.ListPrice,
		Color:             m.Color,
		Size:              m.Size,
		ProductLine:       m.ProductLine,
		Class:             m.Class,
		Style:             m.Style,
		MakeFlag:          m.MakeFlag,
		FinishedGoodsFlag: m.FinishedGoodsFlag,
		ProductModelID:    m.ProductModelID,
	}
}

// FromDomain populates the persistence model from a domain Product
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.SetEntity(p.BaseEntity)
	m.ProductID = p.ProductID
	m.ProductNumber = p.ProductNumber
	m.Name = p.Name
	m.SubcategoryID = p.SubcategoryID
	m.SubcategoryRef = p.SubcategoryRef
	m.StandardCost = p.StandardCost
	m.ListPrice = p.ListPrice
	m.Color = p.Color
	m.Size = p.Size
	m.ProductLine = p.ProductLine
	m.Class = p.Class
	m.Style = p.Style
	m.MakeFlag = p.MakeFlag
	m.FinishedGoodsFlag = p.FinishedGoodsFlag
	m.ProductModelID = p.ProductModelID
}
