package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the surrogate identity and timestamps every loaded
// record shares
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// AssignID replaces the generated identifier with one that already exists
// in the destination, so reloaded records keep their original identity.
func (e *BaseEntity) AssignID(id uuid.UUID) {
	if id == uuid.Nil {
		return
	}
	e.ID = id
}

// Touch stamps the entity as modified at now
func (e *BaseEntity) Touch(now time.Time) {
	e.UpdatedAt = now
}

// NewBaseEntity creates a new base entity with generated ID
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
