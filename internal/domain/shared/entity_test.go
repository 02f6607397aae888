package shared

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBaseEntity_AssignID(t *testing.T) {
	t.Run("replaces generated id", func(t *testing.T) {
		e := NewBaseEntity()
		existing := uuid.New()
		e.AssignID(existing)
		assert.Equal(t, existing, e.GetID())
	})

	t.Run("ignores nil id", func(t *testing.T) {
		e := NewBaseEntity()
		original := e.ID
		e.AssignID(uuid.Nil)
		assert.Equal(t, original, e.GetID())
	})
}

func TestBaseEntity_Touch(t *testing.T) {
	e := NewBaseEntity()
	later := e.CreatedAt.Add(time.Minute)
	e.Touch(later)
	assert.Equal(t, later, e.UpdatedAt)
	assert.True(t, e.UpdatedAt.After(e.CreatedAt))
}

func TestDomainError(t *testing.T) {
	err := NewDomainError("INVALID_STATE", "cannot complete")
	assert.Equal(t, "cannot complete", err.Error())
	assert.Equal(t, "INVALID_STATE", err.Code)

	wrapped := fmt.Errorf("find run: %w", NewDomainError("NOT_FOUND", "load run 42 not found"))
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(err, ErrNotFound))
}
