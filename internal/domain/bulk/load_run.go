package bulk

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RunStatus is the outcome of a load run
type RunStatus string

const (
	RunStatusPending             RunStatus = "PENDING"
	RunStatusRunning             RunStatus = "RUNNING"
	RunStatusSuccess             RunStatus = "SUCCESS"
	RunStatusSuccessWithWarnings RunStatus = "SUCCESS_WITH_WARNINGS"
	RunStatusFailed              RunStatus = "FAILED"
)

// IsValid checks if the status is valid
func (s RunStatus) IsValid() bool {
	switch s {
	case RunStatusPending, RunStatusRunning, RunStatusSuccess,
		RunStatusSuccessWithWarnings, RunStatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusSuccess || s == RunStatusSuccessWithWarnings || s == RunStatusFailed
}

// ExitCode maps the status to a process exit code. Warnings still exit 0.
func (s RunStatus) ExitCode() int {
	switch s {
	case RunStatusSuccess, RunStatusSuccessWithWarnings:
		return 0
	}
	return 1
}

// ConflictMode defines how records whose natural key already exists in the
// destination are handled
type ConflictMode string

const (
	ConflictModeSkip   ConflictMode = "skip"
	ConflictModeUpdate ConflictMode = "update"
	ConflictModeFail   ConflictMode = "fail"
)

// IsValid checks if the conflict mode is valid
func (c ConflictMode) IsValid() bool {
	switch c {
	case ConflictModeSkip, ConflictModeUpdate, ConflictModeFail:
		return true
	}
	return false
}

// EntityCounts is the per-entity tally reported in every run summary
type EntityCounts struct {
	Loaded        int `json:"loaded"`
	Updated       int `json:"updated"`
	Skipped       int `json:"skipped"`
	Placeholders  int `json:"placeholders"`
	Discrepancies int `json:"discrepancies"`
	Failed        int `json:"failed"`
}

// Written returns the number of records sent to the destination
func (c EntityCounts) Written() int {
	return c.Loaded + c.Updated + c.Placeholders
}

// Add returns the field-wise sum of both counts
func (c EntityCounts) Add(other EntityCounts) EntityCounts {
	return EntityCounts{
		Loaded:        c.Loaded + other.Loaded,
		Updated:       c.Updated + other.Updated,
		Skipped:       c.Skipped + other.Skipped,
		Placeholders:  c.Placeholders + other.Placeholders,
		Discrepancies: c.Discrepancies + other.Discrepancies,
		Failed:        c.Failed + other.Failed,
	}
}

// ErrorDetail represents a detailed error for a specific sheet row
type ErrorDetail struct {
	Sheet   string `json:"sheet,omitempty"`
	Row     int    `json:"row,omitempty"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// LoadRun tracks the history and result of one pipeline run
type LoadRun struct {
	shared.BaseEntity
	Source        string                      `json:"source"`
	ConflictMode  ConflictMode                `json:"conflict_mode"`
	DryRun        bool                        `json:"dry_run"`
	Status        RunStatus                   `json:"status"`
	Counts        map[EntityType]EntityCounts `json:"counts"`
	InvoiceTotal  decimal.Decimal             `json:"invoice_total"`
	ErrorCount    int                         `json:"error_count"`
	ErrorDetails  []ErrorDetail               `json:"error_details,omitempty"`
	FailureReason string                      `json:"failure_reason,omitempty"`
	StartedAt     *time.Time                  `json:"started_at,omitempty"`
	CompletedAt   *time.Time                  `json:"completed_at,omitempty"`
}

// NewLoadRun creates a new load run record
func NewLoadRun(source string, conflictMode ConflictMode, dryRun bool) (*LoadRun, error) {
	if source == "" {
		return nil, shared.NewDomainError("INVALID_SOURCE", "Source cannot be empty")
	}
	if !conflictMode.IsValid() {
		return nil, shared.NewDomainError("INVALID_CONFLICT_MODE", fmt.Sprintf("Invalid conflict mode: %s", conflictMode))
	}

	return &LoadRun{
		BaseEntity:   shared.NewBaseEntity(),
		Source:       source,
		ConflictMode: conflictMode,
		DryRun:       dryRun,
		Status:       RunStatusPending,
		Counts:       make(map[EntityType]EntityCounts),
		ErrorDetails: make([]ErrorDetail, 0),
	}, nil
}

// StartProcessing marks the run as started
func (r *LoadRun) StartProcessing() error {
	if r.Status != RunStatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start processing from state: %s", r.Status))
	}

	r.Status = RunStatusRunning
	now := time.Now()
	r.StartedAt = &now
	r.Touch(now)

	return nil
}

// Complete marks the run as finished. The status is SUCCESS_WITH_WARNINGS
// when any warnings were recorded, otherwise SUCCESS.
func (r *LoadRun) Complete(counts map[EntityType]EntityCounts, invoiceTotal decimal.Decimal, warnings int, errors []ErrorDetail) error {
	if r.Status != RunStatusRunning {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete from state: %s", r.Status))
	}

	status := RunStatusSuccess
	if warnings > 0 {
		status = RunStatusSuccessWithWarnings
	}

	r.Status = status
	r.Counts = counts
	r.InvoiceTotal = invoiceTotal
	r.ErrorCount = warnings
	r.ErrorDetails = errors
	now := time.Now()
	r.CompletedAt = &now
	r.Touch(now)

	return nil
}

// Fail marks the run as failed
func (r *LoadRun) Fail(reason string, counts map[EntityType]EntityCounts, errors []ErrorDetail) error {
	if r.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot fail from terminal state: %s", r.Status))
	}

	r.Status = RunStatusFailed
	r.FailureReason = reason
	if counts != nil {
		r.Counts = counts
	}
	r.ErrorCount = len(errors)
	r.ErrorDetails = errors
	now := time.Now()
	r.CompletedAt = &now
	r.Touch(now)

	return nil
}

// HasErrors returns true if there are any errors
func (r *LoadRun) HasErrors() bool {
	return len(r.ErrorDetails) > 0
}

// ErrorDetailsJSON returns the error details as a JSON string
func (r *LoadRun) ErrorDetailsJSON() (string, error) {
	if len(r.ErrorDetails) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(r.ErrorDetails)
	if err != nil {
		return "", fmt.Errorf("failed to marshal error details: %w", err)
	}
	return string(data), nil
}

// SetErrorDetailsFromJSON parses error details from a JSON string
func (r *LoadRun) SetErrorDetailsFromJSON(jsonStr string) error {
	if jsonStr == "" || jsonStr == "[]" {
		r.ErrorDetails = make([]ErrorDetail, 0)
		return nil
	}
	var details []ErrorDetail
	if err := json.Unmarshal([]byte(jsonStr), &details); err != nil {
		return fmt.Errorf("failed to unmarshal error details: %w", err)
	}
	r.ErrorDetails = details
	return nil
}

// CountsJSON returns the per-entity counts as a JSON string
func (r *LoadRun) CountsJSON() (string, error) {
	if len(r.Counts) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(r.Counts)
	if err != nil {
		return "", fmt.Errorf("failed to marshal counts: %w", err)
	}
	return string(data), nil
}

// SetCountsFromJSON parses per-entity counts from a JSON string
func (r *LoadRun) SetCountsFromJSON(jsonStr string) error {
	r.Counts = make(map[EntityType]EntityCounts)
	if jsonStr == "" || jsonStr == "{}" {
		return nil
	}
	if err := json.Unmarshal([]byte(jsonStr), &r.Counts); err != nil {
		return fmt.Errorf("failed to unmarshal counts: %w", err)
	}
	return nil
}

// Duration returns the duration of the run
func (r *LoadRun) Duration() time.Duration {
	if r.StartedAt == nil {
		return 0
	}
	end := time.Now()
	if r.CompletedAt != nil {
		end = *r.CompletedAt
	}
	return end.Sub(*r.StartedAt)
}
