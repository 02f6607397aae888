package models

import (
	"time"

	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel holds the surrogate key and timestamps of every sales table.
// Rows are matched on their natural key columns; ID only survives reloads
// because the loader assigns the stored one before writing.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// Entity returns the domain identity stored in m
func (m BaseModel) Entity() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
}

// SetEntity copies the domain identity into m
func (m *BaseModel) SetEntity(e shared.BaseEntity) {
	*m = BaseModel{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt}
}
