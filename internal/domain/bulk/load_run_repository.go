package bulk

import (
	"context"

	"github.com/google/uuid"
)

// LoadRunRepository defines the interface for load run persistence
type LoadRunRepository interface {
	// FindByID finds a load run by ID
	FindByID(ctx context.Context, id uuid.UUID) (*LoadRun, error)

	// FindRecent returns the most recent runs, newest first
	FindRecent(ctx context.Context, limit int) ([]*LoadRun, error)

	// Save saves a load run (create or update)
	Save(ctx context.Context, run *LoadRun) error
}
