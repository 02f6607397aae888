package importapp

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/google/uuid"
)

// DefaultHistoryLimit is the number of runs listed when no limit is given
const DefaultHistoryLimit = 20

// RunHistoryService reads back persisted load runs
type RunHistoryService struct {
	runs bulk.LoadRunRepository
}

// NewRunHistoryService creates a new RunHistoryService
func NewRunHistoryService(runs bulk.LoadRunRepository) *RunHistoryService {
	return &RunHistoryService{runs: runs}
}

// Recent returns the newest runs first
func (s *RunHistoryService) Recent(ctx context.Context, limit int) ([]*bulk.LoadRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	runs, err := s.runs.FindRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list load runs: %w", err)
	}
	return runs, nil
}

// Get returns one run
func (s *RunHistoryService) Get(ctx context.Context, id uuid.UUID) (*bulk.LoadRun, error) {
	return s.runs.FindByID(ctx, id)
}

// ErrorsCSV renders the row errors kept for a run as CSV and proposes a
// file name for it
func (s *RunHistoryService) ErrorsCSV(ctx context.Context, id uuid.UUID) (string, string, error) {
	run, err := s.runs.FindByID(ctx, id)
	if err != nil {
		return "", "", err
	}
	if len(run.ErrorDetails) == 0 {
		return "", "", fmt.Errorf("run %s has no errors to export", id)
	}

	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write([]string{"Sheet", "Row", "Column", "Error Code", "Error Message", "Value"})
	for _, e := range run.ErrorDetails {
		_ = w.Write([]string{e.Sheet, strconv.Itoa(e.Row), e.Column, e.Code, e.Message, e.Value})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", "", fmt.Errorf("failed to render errors: %w", err)
	}

	return sb.String(), fmt.Sprintf("load_errors_%s.csv", id.String()[:8]), nil
}
