package importapp

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/partner"
	sheetimport "github.com/erp/salesetl/internal/infrastructure/import"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockStore is a mock implementation of bulk.Store. RunPhase hands the
// mock Writer to fn unless the expectation returns an error.
type MockStore struct {
	mock.Mock
	Writer *MockPhaseWriter
}

func (m *MockStore) ExistingKeys(ctx context.Context, entity bulk.EntityType) (map[string]uuid.UUID, error) {
	args := m.Called(ctx, entity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]uuid.UUID), args.Error(1)
}

func (m *MockStore) RunPhase(ctx context.Context, phase bulk.Phase, fn func(ctx context.Context, w bulk.PhaseWriter) error) error {
	args := m.Called(ctx, phase)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx, m.Writer)
}

// MockPhaseWriter is a mock implementation of bulk.PhaseWriter
type MockPhaseWriter struct {
	mock.Mock
}

func (m *MockPhaseWriter) Write(ctx context.Context, entity bulk.EntityType, records []bulk.Record) error {
	args := m.Called(ctx, entity, records)
	return args.Error(0)
}

func newMockStore(t *testing.T) *MockStore {
	s := &MockStore{Writer: &MockPhaseWriter{}}
	t.Cleanup(func() {
		s.AssertExpectations(t)
		s.Writer.AssertExpectations(t)
	})
	return s
}

func territories(t *testing.T, ids ...int) []bulk.Record {
	t.Helper()
	out := make([]bulk.Record, 0, len(ids))
	for _, id := range ids {
		territory, err := partner.NewSalesTerritory(id, "Territory "+itoa(id), "US", "North America")
		require.NoError(t, err)
		out = append(out, territory)
	}
	return out
}

func newTestLoader(t *testing.T, store bulk.Store, opts LoaderOptions) (*PhasedLoader, *Resolver, *Report) {
	resolver := NewResolver()
	report := NewReport(100, zaptest.NewLogger(t))
	return NewPhasedLoader(store, resolver, report, opts), resolver, report
}

func recordsLen(n int) any {
	return mock.MatchedBy(func(records []bulk.Record) bool { return len(records) == n })
}

func TestPhasedLoader_PrepareSeedsResolver(t *testing.T) {
	store := newMockStore(t)
	existing := uuid.New()
	for _, e := range bulk.AllEntityTypes() {
		keys := map[string]uuid.UUID{}
		if e == bulk.EntitySalesTerritory {
			keys["1"] = existing
		}
		store.On("ExistingKeys", mock.Anything, e).Return(keys, nil).Once()
	}
	loader, resolver, _ := newTestLoader(t, store, LoaderOptions{})

	require.NoError(t, loader.Prepare(context.Background()))

	assert.True(t, resolver.Existed(bulk.EntitySalesTerritory, "1"))
	id, ok := resolver.Lookup(bulk.EntitySalesTerritory, "1")
	assert.True(t, ok)
	assert.Equal(t, existing, id)
}

func TestPhasedLoader_PrepareFailModeRejectsPopulatedStore(t *testing.T) {
	store := newMockStore(t)
	store.On("ExistingKeys", mock.Anything, bulk.EntitySalesTerritory).
		Return(map[string]uuid.UUID{"1": uuid.New()}, nil).Once()
	loader, _, _ := newTestLoader(t, store, LoaderOptions{ConflictMode: bulk.ConflictModeFail})

	err := loader.Prepare(context.Background())

	var cerr *bulk.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "load.conflict_mode", cerr.Setting)
	assert.Contains(t, err.Error(), "sales_territory")
}

func TestPhasedLoader_PrepareStoreError(t *testing.T) {
	store := newMockStore(t)
	store.On("ExistingKeys", mock.Anything, bulk.EntitySalesTerritory).
		Return(nil, errors.New("relation does not exist")).Once()
	loader, _, _ := newTestLoader(t, store, LoaderOptions{})

	err := loader.Prepare(context.Background())

	var serr *bulk.StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, bulk.EntitySalesTerritory, serr.Entity)
}

func TestPhasedLoader_LoadWritesInBatches(t *testing.T) {
	store := newMockStore(t)
	store.On("RunPhase", mock.Anything, bulk.PhaseReference).Return(nil).Once()
	store.Writer.On("Write", mock.Anything, bulk.EntitySalesTerritory, recordsLen(2)).Return(nil).Twice()
	store.Writer.On("Write", mock.Anything, bulk.EntitySalesTerritory, recordsLen(1)).Return(nil).Once()
	loader, _, report := newTestLoader(t, store, LoaderOptions{BatchSize: 2})

	rep, err := loader.Load(context.Background(), bulk.PhaseReference, []EntityBatch{
		{Entity: bulk.EntitySalesTerritory, Records: territories(t, 1, 2, 3, 4, 5)},
	})
	require.NoError(t, err)

	assert.Equal(t, PhaseStatusCommitted, rep.Status)
	assert.Equal(t, 5, rep.Counts[bulk.EntitySalesTerritory].Loaded)
	assert.Equal(t, 5, report.Counts()[bulk.EntitySalesTerritory].Loaded)
}

func TestPhasedLoader_WriteErrorRollsBack(t *testing.T) {
	store := newMockStore(t)
	store.On("RunPhase", mock.Anything, bulk.PhaseReference).Return(nil).Once()
	store.Writer.On("Write", mock.Anything, bulk.EntitySalesTerritory, mock.Anything).Return(nil).Once()
	store.Writer.On("Write", mock.Anything, bulk.EntitySalesTerritory, mock.Anything).
		Return(errors.New("unique violation")).Once()
	loader, _, report := newTestLoader(t, store, LoaderOptions{BatchSize: 1})

	rep, err := loader.Load(context.Background(), bulk.PhaseReference, []EntityBatch{
		{Entity: bulk.EntitySalesTerritory, Records: territories(t, 1, 2, 3)},
	})

	var serr *bulk.StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, bulk.PhaseReference, serr.Phase)
	assert.Equal(t, bulk.EntitySalesTerritory, serr.Entity)
	assert.Equal(t, PhaseStatusRolledBack, rep.Status)
	assert.NotEmpty(t, rep.Error)
	// nothing of a rolled back phase is counted as written
	assert.Zero(t, report.Counts()[bulk.EntitySalesTerritory].Loaded)
}

func TestPhasedLoader_BeginErrorIsStorageError(t *testing.T) {
	store := newMockStore(t)
	store.On("RunPhase", mock.Anything, bulk.PhaseMaster).Return(errors.New("connection refused")).Once()
	loader, _, _ := newTestLoader(t, store, LoaderOptions{})

	rep, err := loader.Load(context.Background(), bulk.PhaseMaster, nil)

	var serr *bulk.StorageError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, bulk.PhaseMaster, serr.Phase)
	assert.Equal(t, PhaseStatusRolledBack, rep.Status)
}

func TestPhasedLoader_FailureRateRollsBack(t *testing.T) {
	store := newMockStore(t)
	store.On("RunPhase", mock.Anything, bulk.PhaseMaster).Return(nil).Once()
	loader, _, report := newTestLoader(t, store, LoaderOptions{MaxFailureRate: 0.1})

	report.Attempt(bulk.PhaseMaster, 10)
	for row := 2; row < 4; row++ {
		report.Fail(bulk.PhaseMaster, bulk.EntityProduct, sheetimport.SheetProduct, row,
			&bulk.UnresolvedReferenceError{Entity: bulk.EntityProductSubCategory, Key: "99"})
	}

	rep, err := loader.Load(context.Background(), bulk.PhaseMaster, []EntityBatch{
		{Entity: bulk.EntitySalesTerritory, Records: territories(t, 1)},
	})

	var rateErr *bulk.FailureRateError
	require.True(t, errors.As(err, &rateErr))
	assert.Equal(t, 2, rateErr.Failed)
	assert.Equal(t, 10, rateErr.Total)
	assert.InDelta(t, 0.2, rateErr.Rate(), 1e-9)
	assert.Equal(t, PhaseStatusRolledBack, rep.Status)
	store.Writer.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
}

func TestPhasedLoader_FailuresOtherThanReferencesDoNotCount(t *testing.T) {
	store := newMockStore(t)
	store.On("RunPhase", mock.Anything, bulk.PhaseMaster).Return(nil).Once()
	loader, _, report := newTestLoader(t, store, LoaderOptions{})

	report.Attempt(bulk.PhaseMaster, 2)
	report.Fail(bulk.PhaseMaster, bulk.EntityProduct, sheetimport.SheetProduct, 2,
		&bulk.NormalizationError{Sheet: sheetimport.SheetProduct, Row: 2, Column: "ProductID", Reason: "value is missing"})

	_, err := loader.Load(context.Background(), bulk.PhaseMaster, nil)
	assert.NoError(t, err)
}

func TestPhasedLoader_ConflictModes(t *testing.T) {
	tests := []struct {
		name     string
		mode     bulk.ConflictMode
		written  int
		expected bulk.EntityCounts
	}{
		{name: "update", mode: bulk.ConflictModeUpdate, written: 2, expected: bulk.EntityCounts{Loaded: 1, Updated: 1}},
		{name: "skip", mode: bulk.ConflictModeSkip, written: 1, expected: bulk.EntityCounts{Loaded: 1, Skipped: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore(t)
			store.On("RunPhase", mock.Anything, bulk.PhaseReference).Return(nil).Once()
			store.Writer.On("Write", mock.Anything, bulk.EntitySalesTerritory, recordsLen(tt.written)).Return(nil).Once()
			loader, resolver, _ := newTestLoader(t, store, LoaderOptions{ConflictMode: tt.mode})
			resolver.Seed(bulk.EntitySalesTerritory, map[string]uuid.UUID{"1": uuid.New()})

			rep, err := loader.Load(context.Background(), bulk.PhaseReference, []EntityBatch{
				{Entity: bulk.EntitySalesTerritory, Records: territories(t, 1, 2)},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, rep.Counts[bulk.EntitySalesTerritory])
		})
	}
}

func TestPhasedLoader_PlaceholderBatch(t *testing.T) {
	store := newMockStore(t)
	store.On("RunPhase", mock.Anything, bulk.PhaseTransactional).Return(nil).Once()
	store.Writer.On("Write", mock.Anything, bulk.EntitySalesperson, recordsLen(2)).Return(nil).Once()
	loader, _, _ := newTestLoader(t, store, LoaderOptions{})

	var records []bulk.Record
	for _, key := range []string{"282", "283"} {
		sp, err := partner.NewPlaceholderSalesperson(key)
		require.NoError(t, err)
		records = append(records, sp)
	}

	rep, err := loader.Load(context.Background(), bulk.PhaseTransactional, []EntityBatch{
		{Entity: bulk.EntitySalesperson, Records: records, Placeholders: true},
	})
	require.NoError(t, err)
	assert.Equal(t, bulk.EntityCounts{Placeholders: 2}, rep.Counts[bulk.EntitySalesperson])
}
