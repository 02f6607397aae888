package partner

import (
	"strconv"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/erp/salesetl/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CompanyType is the origin of a consolidated customer
type CompanyType string

const (
	CompanyTypeIndividual CompanyType = "individual"
	CompanyTypeStore      CompanyType = "store"
)

// IsValid checks if the company type is valid
func (t CompanyType) IsValid() bool {
	return t == CompanyTypeIndividual || t == CompanyTypeStore
}

// Company is the unified customer record built from the individual and
// store customer sheets
type Company struct {
	shared.BaseEntity
	CustomerID        int         `validate:"gt=0"`
	AccountNumber     string      `validate:"max=20"`
	DisplayName       string      `validate:"required,max=200"`
	CompanyType       CompanyType `validate:"oneof=individual store"`
	Address           valueobject.Address
	TerritoryID       *int
	TerritoryRef      *uuid.UUID
	NeedsReview       bool
	MergedCustomerIDs []int
}

// CompanyVariant is one customer row tagged with the sheet it came from,
// before consolidation
type CompanyVariant struct {
	Origin        CompanyType
	CustomerID    int
	AccountNumber string
	DisplayName   string
	Address       valueobject.Address
	TerritoryID   *int
	NeedsReview   bool
	SourceSheet   string
	SourceRow     int
}

// TerritoryKey returns the natural key of the company's territory, empty when none
func (c *Company) TerritoryKey() string {
	if c.TerritoryID == nil {
		return ""
	}
	return strconv.Itoa(*c.TerritoryID)
}

// ResolveTerritory sets the identifier of the territory
func (c *Company) ResolveTerritory(id uuid.UUID) {
	c.TerritoryRef = &id
}

// EntityType implements bulk.Record
func (c *Company) EntityType() bulk.EntityType {
	return bulk.EntityCompany
}

// NaturalKey implements bulk.Record
func (c *Company) NaturalKey() string {
	return strconv.Itoa(c.CustomerID)
}
