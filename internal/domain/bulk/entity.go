package bulk

import "github.com/google/uuid"

// EntityType identifies one destination entity produced by a load
type EntityType string

const (
	EntitySalesTerritory     EntityType = "sales_territory"
	EntityProductCategory    EntityType = "product_category"
	EntityProductSubCategory EntityType = "product_subcategory"
	EntityProduct            EntityType = "product"
	EntityCompany            EntityType = "company"
	EntitySalesperson        EntityType = "salesperson"
	EntityInvoice            EntityType = "invoice"
	EntityInvoiceLineItem    EntityType = "invoice_line_item"
)

// AllEntityTypes returns every entity type in load order
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntitySalesTerritory,
		EntityProductCategory,
		EntityProductSubCategory,
		EntityProduct,
		EntityCompany,
		EntitySalesperson,
		EntityInvoice,
		EntityInvoiceLineItem,
	}
}

// IsValid checks if the entity type is valid
func (e EntityType) IsValid() bool {
	for _, t := range AllEntityTypes() {
		if t == e {
			return true
		}
	}
	return false
}

// Phase is one dependency-ordered stage of a load
type Phase string

const (
	PhaseReference     Phase = "reference"
	PhaseMaster        Phase = "master"
	PhaseTransactional Phase = "transactional"
)

// Phases returns the phases in execution order
func Phases() []Phase {
	return []Phase{PhaseReference, PhaseMaster, PhaseTransactional}
}

// Entities returns the entity types a phase writes, in write order.
// Placeholder salespersons are written at the start of the transactional
// phase, ahead of the invoices that reference them.
func (p Phase) Entities() []EntityType {
	switch p {
	case PhaseReference:
		return []EntityType{EntitySalesTerritory, EntityProductCategory, EntityProductSubCategory}
	case PhaseMaster:
		return []EntityType{EntityProduct, EntityCompany, EntitySalesperson}
	case PhaseTransactional:
		return []EntityType{EntitySalesperson, EntityInvoice, EntityInvoiceLineItem}
	}
	return nil
}

// Record is implemented by every entity the loader can write
type Record interface {
	GetID() uuid.UUID
	EntityType() EntityType
	NaturalKey() string
}
