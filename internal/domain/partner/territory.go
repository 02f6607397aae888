package partner

import (
	"strconv"
	"strings"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
)

// SalesTerritory is a geographic sales region
type SalesTerritory struct {
	shared.BaseEntity
	TerritoryID       int    `validate:"gt=0"`
	Name              string `validate:"required,max=50"`
	CountryRegionCode string `validate:"max=3"`
	Group             string `validate:"max=50"`
}

// NewSalesTerritory creates a sales territory
func NewSalesTerritory(territoryID int, name, countryRegionCode, group string) (*SalesTerritory, error) {
	if territoryID <= 0 {
		return nil, shared.NewDomainError("INVALID_TERRITORY_ID", "Territory ID must be positive")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Territory name cannot be empty")
	}
	return &SalesTerritory{
		BaseEntity:        shared.NewBaseEntity(),
		TerritoryID:       territoryID,
		Name:              name,
		CountryRegionCode: strings.ToUpper(strings.TrimSpace(countryRegionCode)),
		Group:             strings.TrimSpace(group),
	}, nil
}

// EntityType implements bulk.Record
func (t *SalesTerritory) EntityType() bulk.EntityType {
	return bulk.EntitySalesTerritory
}

// NaturalKey implements bulk.Record
func (t *SalesTerritory) NaturalKey() string {
	return strconv.Itoa(t.TerritoryID)
}
