package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/partner"
	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_CommitAndRollback(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	t1 := newTerritory(t, 1, "Northwest")
	writePhase(t, store, bulk.EntitySalesTerritory, t1)

	err := store.RunPhase(ctx, bulk.PhaseMaster, func(ctx context.Context, w bulk.PhaseWriter) error {
		sp, err := partner.NewSalesperson(274, "Stephen Jiang")
		require.NoError(t, err)
		require.NoError(t, w.Write(ctx, bulk.EntitySalesperson, []bulk.Record{sp}))
		return errors.New("too many unresolved references")
	})
	require.Error(t, err)

	assert.Equal(t, 1, store.Count(bulk.EntitySalesTerritory))
	assert.Zero(t, store.Count(bulk.EntitySalesperson), "rolled back phase leaves nothing behind")

	keys, err := store.ExistingKeys(ctx, bulk.EntitySalesTerritory)
	require.NoError(t, err)
	assert.Equal(t, t1.ID, keys["1"])
}

func TestMemoryStore_UpsertAndOrder(t *testing.T) {
	store := NewMemoryStore()

	writePhase(t, store, bulk.EntitySalesTerritory,
		newTerritory(t, 3, "Central"), newTerritory(t, 1, "Northwest"))
	writePhase(t, store, bulk.EntitySalesTerritory, newTerritory(t, 3, "Central US"))

	records := store.Records(bulk.EntitySalesTerritory)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0].NaturalKey())
	assert.Equal(t, "Central US", records[1].(*partner.SalesTerritory).Name)
}

func TestMemoryLoadRunRepository(t *testing.T) {
	repo := NewMemoryLoadRunRepository()
	ctx := context.Background()

	_, err := repo.FindByID(ctx, newLoadRun(t, "a.xlsx", time.Now()).ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	older := newLoadRun(t, "older.xlsx", base)
	newer := newLoadRun(t, "newer.xlsx", base.Add(time.Hour))
	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))

	found, err := repo.FindByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "older.xlsx", found.Source)

	recent, err := repo.FindRecent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, newer.ID, recent[0].ID)

	found.Source = "mutated"
	again, err := repo.FindByID(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "older.xlsx", again.Source, "callers get copies")
}

func newLoadRun(t *testing.T, source string, created time.Time) *bulk.LoadRun {
	t.Helper()
	run, err := bulk.NewLoadRun(source, bulk.ConflictModeUpdate, false)
	require.NoError(t, err)
	run.CreatedAt = created
	run.UpdatedAt = created
	return run
}
