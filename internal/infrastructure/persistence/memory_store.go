package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/google/uuid"
)

// MemoryStore is a bulk.Store kept in process memory. Dry runs load into it
// so the whole pipeline executes without touching the destination. Writes
// of a phase are staged and only become visible when the phase succeeds.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[bulk.EntityType]map[string]bulk.Record
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[bulk.EntityType]map[string]bulk.Record)}
}

// ExistingKeys returns natural key → id for every stored record of entity
func (s *MemoryStore) ExistingKeys(_ context.Context, entity bulk.EntityType) (map[string]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(map[string]uuid.UUID, len(s.tables[entity]))
	for key, rec := range s.tables[entity] {
		keys[key] = rec.GetID()
	}
	return keys, nil
}

// RunPhase stages the writes of fn and applies them only when fn succeeds
func (s *MemoryStore) RunPhase(ctx context.Context, _ bulk.Phase, fn func(ctx context.Context, w bulk.PhaseWriter) error) error {
	staged := &memoryPhaseWriter{pending: make(map[bulk.EntityType]map[string]bulk.Record)}
	if err := fn(ctx, staged); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for entity, records := range staged.pending {
		table, ok := s.tables[entity]
		if !ok {
			table = make(map[string]bulk.Record, len(records))
			s.tables[entity] = table
		}
		for key, rec := range records {
			table[key] = rec
		}
	}
	return nil
}

// Records returns the committed records of entity ordered by natural key
func (s *MemoryStore) Records(entity bulk.EntityType) []bulk.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.tables[entity]))
	for key := range s.tables[entity] {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]bulk.Record, len(keys))
	for i, key := range keys {
		out[i] = s.tables[entity][key]
	}
	return out
}

// Count returns the number of committed records of entity
func (s *MemoryStore) Count(entity bulk.EntityType) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[entity])
}

type memoryPhaseWriter struct {
	pending map[bulk.EntityType]map[string]bulk.Record
}

func (w *memoryPhaseWriter) Write(_ context.Context, entity bulk.EntityType, records []bulk.Record) error {
	table, ok := w.pending[entity]
	if !ok {
		table = make(map[string]bulk.Record, len(records))
		w.pending[entity] = table
	}
	for _, rec := range records {
		table[rec.NaturalKey()] = rec
	}
	return nil
}

// MemoryLoadRunRepository keeps load runs in process memory
type MemoryLoadRunRepository struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]bulk.LoadRun
}

// NewMemoryLoadRunRepository creates an empty repository
func NewMemoryLoadRunRepository() *MemoryLoadRunRepository {
	return &MemoryLoadRunRepository{runs: make(map[uuid.UUID]bulk.LoadRun)}
}

// FindByID finds a load run by ID
func (r *MemoryLoadRunRepository) FindByID(_ context.Context, id uuid.UUID) (*bulk.LoadRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &run, nil
}

// FindRecent returns the most recent runs, newest first
func (r *MemoryLoadRunRepository) FindRecent(_ context.Context, limit int) ([]*bulk.LoadRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs := make([]*bulk.LoadRun, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, &run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Save stores a copy of run
func (r *MemoryLoadRunRepository) Save(_ context.Context, run *bulk.LoadRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[run.ID] = *run
	return nil
}

var (
	_ bulk.Store             = (*MemoryStore)(nil)
	_ bulk.LoadRunRepository = (*MemoryLoadRunRepository)(nil)
)
