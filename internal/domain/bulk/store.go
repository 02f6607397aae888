package bulk

import (
	"context"

	"github.com/google/uuid"
)

// PhaseWriter writes records inside the transaction of one phase.
// Records with a natural key already present are updated in place.
type PhaseWriter interface {
	Write(ctx context.Context, entity EntityType, records []Record) error
}

// Store is the destination of a load
type Store interface {
	// ExistingKeys returns natural key → identifier for rows already stored
	ExistingKeys(ctx context.Context, entity EntityType) (map[string]uuid.UUID, error)

	// RunPhase executes fn inside one transaction. Any error returned by fn
	// rolls the whole phase back.
	RunPhase(ctx context.Context, phase Phase, fn func(ctx context.Context, w PhaseWriter) error) error
}
