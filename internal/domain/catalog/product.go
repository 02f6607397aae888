package catalog

import (
	"strconv"
	"strings"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unknown marks a product attribute that is missing in the source. It is
// distinct from an empty string and never stands for a real value.
const Unknown = "unknown"

// Product represents a sellable item
type Product struct {
	shared.BaseEntity
	ProductID         int    `validate:"gt=0"`
	ProductNumber     string `validate:"required,max=25"`
	Name              string `validate:"required,max=100"`
	SubcategoryID     *int
	SubcategoryRef    *uuid.UUID
	StandardCost      decimal.NullDecimal
	ListPrice         decimal.NullDecimal
	Color             string `validate:"required"`
	Size              string `validate:"required"`
	ProductLine       string `validate:"required"`
	Class             string `validate:"required"`
	Style             string `validate:"required"`
	MakeFlag          bool
	FinishedGoodsFlag bool
	ProductModelID    *int
}

// NewProduct creates a product with every optional attribute set to Unknown
// and no price
func NewProduct(productID int, name string) (*Product, error) {
	if productID <= 0 {
		return nil, shared.NewDomainError("INVALID_PRODUCT_ID", "Product ID must be positive")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &Product{
		BaseEntity:    shared.NewBaseEntity(),
		ProductID:     productID,
		ProductNumber: Unknown,
		Name:          strings.TrimSpace(name),
		Color:         Unknown,
		Size:          Unknown,
		ProductLine:   Unknown,
		Class:         Unknown,
		Style:         Unknown,
	}, nil
}

// AttributeOrUnknown returns the trimmed value or Unknown when blank
func AttributeOrUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return Unknown
	}
	return v
}

// SetSubcategory records the natural key of the product's subcategory
func (p *Product) SetSubcategory(subcategoryID int) {
	p.SubcategoryID = &subcategoryID
}

// SubcategoryKey returns the natural key of the subcategory, empty when none
func (p *Product) SubcategoryKey() string {
	if p.SubcategoryID == nil {
		return ""
	}
	return strconv.Itoa(*p.SubcategoryID)
}

// ResolveSubcategory sets the identifier of the subcategory
func (p *Product) ResolveSubcategory(id uuid.UUID) {
	p.SubcategoryRef = &id
}

// PriceKnown reports whether a list price was present in the source
func (p *Product) PriceKnown() bool {
	return p.ListPrice.Valid
}

// UnknownAttributes returns the names of attributes left at Unknown
func (p *Product) UnknownAttributes() []string {
	var out []string
	for name, v := range map[string]string{
		"Color":       p.Color,
		"Size":        p.Size,
		"ProductLine": p.ProductLine,
		"Class":       p.Class,
		"Style":       p.Style,
	} {
		if v == Unknown {
			out = append(out, name)
		}
	}
	return out
}

// EntityType implements bulk.Record
func (p *Product) EntityType() bulk.EntityType {
	return bulk.EntityProduct
}

// NaturalKey implements bulk.Record
func (p *Product) NaturalKey() string {
	return strconv.Itoa(p.ProductID)
}
