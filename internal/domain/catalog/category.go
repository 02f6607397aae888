package catalog

import (
	"strconv"
	"strings"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductCategory is the top-level product grouping
type ProductCategory struct {
	shared.BaseEntity
	CategoryID int    `validate:"gt=0"`
	Name       string `validate:"required,max=100"`
}

// NewProductCategory creates a product category from its source identifier
func NewProductCategory(categoryID int, name string) (*ProductCategory, error) {
	if categoryID <= 0 {
		return nil, shared.NewDomainError("INVALID_CATEGORY_ID", "Category ID must be positive")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &ProductCategory{
		BaseEntity: shared.NewBaseEntity(),
		CategoryID: categoryID,
		Name:       strings.TrimSpace(name),
	}, nil
}

// EntityType implements bulk.Record
func (c *ProductCategory) EntityType() bulk.EntityType {
	return bulk.EntityProductCategory
}

// NaturalKey implements bulk.Record
func (c *ProductCategory) NaturalKey() string {
	return strconv.Itoa(c.CategoryID)
}

// ProductSubCategory is the mid-level grouping below a category
type ProductSubCategory struct {
	shared.BaseEntity
	SubcategoryID int       `validate:"gt=0"`
	CategoryID    int       `validate:"gt=0"`
	CategoryRef   uuid.UUID `validate:"required"`
	Name          string    `validate:"required,max=100"`
}

// NewProductSubCategory creates a subcategory; the category reference is
// resolved later by ResolveCategory
func NewProductSubCategory(subcategoryID, categoryID int, name string) (*ProductSubCategory, error) {
	if subcategoryID <= 0 {
		return nil, shared.NewDomainError("INVALID_SUBCATEGORY_ID", "Subcategory ID must be positive")
	}
	if categoryID <= 0 {
		return nil, shared.NewDomainError("INVALID_CATEGORY_ID", "Category ID must be positive")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &ProductSubCategory{
		BaseEntity:    shared.NewBaseEntity(),
		SubcategoryID: subcategoryID,
		CategoryID:    categoryID,
		Name:          strings.TrimSpace(name),
	}, nil
}

// ResolveCategory sets the identifier of the parent category
func (s *ProductSubCategory) ResolveCategory(id uuid.UUID) {
	s.CategoryRef = id
}

// CategoryKey returns the natural key of the parent category
func (s *ProductSubCategory) CategoryKey() string {
	return strconv.Itoa(s.CategoryID)
}

// EntityType implements bulk.Record
func (s *ProductSubCategory) EntityType() bulk.EntityType {
	return bulk.EntityProductSubCategory
}

// NaturalKey implements bulk.Record
func (s *ProductSubCategory) NaturalKey() string {
	return strconv.Itoa(s.SubcategoryID)
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewDomainError("INVALID_NAME", "Name cannot exceed 100 characters")
	}
	return nil
}
