package importapp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLoadRunRepository is a mock implementation of bulk.LoadRunRepository
type MockLoadRunRepository struct {
	mock.Mock
}

func (m *MockLoadRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.LoadRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*bulk.LoadRun), args.Error(1)
}

func (m *MockLoadRunRepository) FindRecent(ctx context.Context, limit int) ([]*bulk.LoadRun, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*bulk.LoadRun), args.Error(1)
}

func (m *MockLoadRunRepository) Save(ctx context.Context, run *bulk.LoadRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func TestRunHistoryService_Recent(t *testing.T) {
	ctx := context.Background()

	t.Run("applies default limit", func(t *testing.T) {
		repo := new(MockLoadRunRepository)
		run, err := bulk.NewLoadRun("sales.xlsx", bulk.ConflictModeUpdate, false)
		require.NoError(t, err)
		repo.On("FindRecent", ctx, DefaultHistoryLimit).Return([]*bulk.LoadRun{run}, nil)

		runs, err := NewRunHistoryService(repo).Recent(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, runs, 1)
		repo.AssertExpectations(t)
	})

	t.Run("wraps repository errors", func(t *testing.T) {
		repo := new(MockLoadRunRepository)
		repo.On("FindRecent", ctx, 5).Return(nil, errors.New("connection refused"))

		_, err := NewRunHistoryService(repo).Recent(ctx, 5)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestRunHistoryService_ErrorsCSV(t *testing.T) {
	ctx := context.Background()
	run, err := bulk.NewLoadRun("sales.xlsx", bulk.ConflictModeUpdate, false)
	require.NoError(t, err)
	run.ErrorDetails = []bulk.ErrorDetail{
		{Sheet: "Invoices", Row: 12, Column: "TotalDue", Code: "ERR_SHEET_FINANCIAL", Message: "total off by 2.50, exceeds ceiling", Value: "102.50"},
		{Sheet: "Products", Row: 3, Code: "ERR_SHEET_REFERENCE", Message: `product "X-1" not found`},
	}

	repo := new(MockLoadRunRepository)
	repo.On("FindByID", ctx, run.ID).Return(run, nil)

	content, name, err := NewRunHistoryService(repo).ErrorsCSV(ctx, run.ID)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Sheet,Row,Column,Error Code,Error Message,Value", lines[0])
	assert.Equal(t, `Invoices,12,TotalDue,ERR_SHEET_FINANCIAL,"total off by 2.50, exceeds ceiling",102.50`, lines[1])
	assert.Equal(t, `Products,3,,ERR_SHEET_REFERENCE,"product ""X-1"" not found",`, lines[2])
	assert.Equal(t, "load_errors_"+run.ID.String()[:8]+".csv", name)
}

func TestRunHistoryService_ErrorsCSV_NoErrors(t *testing.T) {
	ctx := context.Background()
	run, err := bulk.NewLoadRun("sales.xlsx", bulk.ConflictModeUpdate, false)
	require.NoError(t, err)

	repo := new(MockLoadRunRepository)
	repo.On("FindByID", ctx, run.ID).Return(run, nil)

	_, _, err = NewRunHistoryService(repo).ErrorsCSV(ctx, run.ID)
	assert.Error(t, err)
}
