package partner

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
)

// Salesperson is a sales agent orders are attributed to
type Salesperson struct {
	shared.BaseEntity
	SalespersonID int    `validate:"gt=0"`
	Name          string `validate:"required,max=150"`
	IsPlaceholder bool
}

// NewSalesperson creates a salesperson from a source row
func NewSalesperson(salespersonID int, name string) (*Salesperson, error) {
	if salespersonID <= 0 {
		return nil, shared.NewDomainError("INVALID_SALESPERSON_ID", "Salesperson ID must be positive")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = PlaceholderName(salespersonID)
	}
	return &Salesperson{
		BaseEntity:    shared.NewBaseEntity(),
		SalespersonID: salespersonID,
		Name:          name,
	}, nil
}

// NewPlaceholderSalesperson synthesizes a salesperson for a natural key that
// is referenced by an invoice but absent from the source
func NewPlaceholderSalesperson(naturalKey string) (*Salesperson, error) {
	id, err := strconv.Atoi(strings.TrimSpace(naturalKey))
	if err != nil {
		return nil, shared.NewDomainError("INVALID_SALESPERSON_ID", fmt.Sprintf("Salesperson key %q is not numeric", naturalKey))
	}
	sp, err := NewSalesperson(id, "")
	if err != nil {
		return nil, err
	}
	sp.IsPlaceholder = true
	return sp, nil
}

// PlaceholderName is the display name given to synthesized salespersons
func PlaceholderName(salespersonID int) string {
	return fmt.Sprintf("Salesperson %d", salespersonID)
}

// EntityType implements bulk.Record
func (s *Salesperson) EntityType() bulk.EntityType {
	return bulk.EntitySalesperson
}

// NaturalKey implements bulk.Record
func (s *Salesperson) NaturalKey() string {
	return strconv.Itoa(s.SalespersonID)
}
