package sheetimport

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sheet import error codes
const (
	ErrCodeSheetUnknown       = "ERR_SHEET_UNKNOWN"
	ErrCodeSheetMissing       = "ERR_SHEET_MISSING"
	ErrCodeSheetMissingHeader = "ERR_SHEET_MISSING_HEADER"
	ErrCodeSheetMissingColumn = "ERR_SHEET_MISSING_COLUMN"

	ErrCodeSheetRequiredField = "ERR_SHEET_REQUIRED_FIELD"
	ErrCodeSheetInvalidType   = "ERR_SHEET_INVALID_TYPE"
	ErrCodeSheetDerivedValue  = "ERR_SHEET_DERIVED_VALUE"
	ErrCodeSheetDefaulted     = "ERR_SHEET_DEFAULT_APPLIED"
	ErrCodeSheetDuplicateKey  = "ERR_SHEET_DUPLICATE_KEY"
	ErrCodeSheetNeedsReview   = "ERR_SHEET_NEEDS_REVIEW"
	ErrCodeSheetReference     = "ERR_SHEET_REFERENCE_NOT_FOUND"
	ErrCodeSheetFinancial     = "ERR_SHEET_FINANCIAL_INTEGRITY"
	ErrCodeSheetDiscrepancy   = "ERR_SHEET_FINANCIAL_DISCREPANCY"
	ErrCodeSheetInvalidRecord = "ERR_SHEET_INVALID_RECORD"
)

// Common sheet import errors
var (
	// ErrSourceNotFound is returned when the workbook file does not exist
	ErrSourceNotFound = errors.New("source workbook not found")

	// ErrSheetMissing is returned when a required sheet is absent
	ErrSheetMissing = errors.New("sheet missing from workbook")

	// ErrMissingHeader is returned when a sheet has no header row
	ErrMissingHeader = errors.New("sheet missing header row")

	// ErrMissingColumns is returned when required columns are absent
	ErrMissingColumns = errors.New("sheet missing required columns")
)

// ContractError lists every sheet and column the workbook fails to provide
type ContractError struct {
	MissingSheets  []string
	MissingColumns map[string][]string
}

func (e *ContractError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.MissingSheets) > 0 {
		parts = append(parts, fmt.Sprintf("missing sheets: %s", strings.Join(e.MissingSheets, ", ")))
	}
	if len(e.MissingColumns) > 0 {
		sheets := make([]string, 0, len(e.MissingColumns))
		for s := range e.MissingColumns {
			sheets = append(sheets, s)
		}
		sort.Strings(sheets)
		for _, s := range sheets {
			parts = append(parts, fmt.Sprintf("%s missing columns: %s", s, strings.Join(e.MissingColumns[s], ", ")))
		}
	}
	return "workbook does not satisfy sheet contract: " + strings.Join(parts, "; ")
}

// Is makes errors.Is match the sentinel for the first kind of violation
func (e *ContractError) Is(target error) bool {
	switch target {
	case ErrSheetMissing:
		return len(e.MissingSheets) > 0
	case ErrMissingColumns:
		return len(e.MissingColumns) > 0
	}
	return false
}

// RowError represents an anomaly in a specific sheet row
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

// Error implements the error interface
func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s row %d, column '%s': %s", e.Sheet, e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("%s row %d: %s", e.Sheet, e.Row, e.Message)
}

// NewRowError creates a new RowError
func NewRowError(sheet string, row int, column, code, message string) RowError {
	return RowError{
		Sheet:   sheet,
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
	}
}

// NewRowErrorWithValue creates a new RowError with the offending value
func NewRowErrorWithValue(sheet string, row int, column, code, message, value string) RowError {
	return RowError{
		Sheet:   sheet,
		Row:     row,
		Column:  column,
		Code:    code,
		Message: message,
		Value:   value,
	}
}

// ErrorCollection manages a capped collection of row errors. Counts per
// code keep growing after the cap is reached.
type ErrorCollection struct {
	errors     []RowError
	maxErrors  int
	totalCount int
	byCode     map[string]int
}

// NewErrorCollection creates a new ErrorCollection with a maximum error limit
func NewErrorCollection(maxErrors int) *ErrorCollection {
	if maxErrors <= 0 {
		maxErrors = 100
	}
	return &ErrorCollection{
		errors:    make([]RowError, 0, maxErrors),
		maxErrors: maxErrors,
		byCode:    make(map[string]int),
	}
}

// Add adds an error to the collection
func (ec *ErrorCollection) Add(err RowError) {
	ec.totalCount++
	ec.byCode[err.Code]++
	if len(ec.errors) < ec.maxErrors {
		ec.errors = append(ec.errors, err)
	}
}

// AddAll adds several errors
func (ec *ErrorCollection) AddAll(errs []RowError) {
	for _, e := range errs {
		ec.Add(e)
	}
}

// AddRequiredError adds a required field error
func (ec *ErrorCollection) AddRequiredError(sheet string, row int, column string) {
	ec.Add(NewRowError(sheet, row, column, ErrCodeSheetRequiredField, fmt.Sprintf("field '%s' is required", column)))
}

// AddTypeError adds a type validation error
func (ec *ErrorCollection) AddTypeError(sheet string, row int, column, expectedType, value string) {
	ec.Add(NewRowErrorWithValue(sheet, row, column, ErrCodeSheetInvalidType,
		fmt.Sprintf("expected %s", expectedType), value))
}

// AddReferenceError adds a reference not found error
func (ec *ErrorCollection) AddReferenceError(sheet string, row int, column, value, refType string) {
	ec.Add(NewRowErrorWithValue(sheet, row, column, ErrCodeSheetReference,
		fmt.Sprintf("%s '%s' not found", refType, value), value))
}

// Errors returns the collected errors
func (ec *ErrorCollection) Errors() []RowError {
	return ec.errors
}

// Count returns the number of collected errors (up to maxErrors)
func (ec *ErrorCollection) Count() int {
	return len(ec.errors)
}

// TotalCount returns the total number of errors including those not collected
func (ec *ErrorCollection) TotalCount() int {
	return ec.totalCount
}

// HasErrors returns true if there are any errors
func (ec *ErrorCollection) HasErrors() bool {
	return ec.totalCount > 0
}

// IsTruncated returns true if some errors were not collected due to the limit
func (ec *ErrorCollection) IsTruncated() bool {
	return ec.totalCount > ec.maxErrors
}

// ErrorSummary returns the number of errors per code, including those past the cap
func (ec *ErrorCollection) ErrorSummary() map[string]int {
	summary := make(map[string]int, len(ec.byCode))
	for code, n := range ec.byCode {
		summary[code] = n
	}
	return summary
}

// String returns a string representation of all errors
func (ec *ErrorCollection) String() string {
	if !ec.HasErrors() {
		return "no errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d error(s) found", ec.totalCount))
	if ec.IsTruncated() {
		sb.WriteString(fmt.Sprintf(" (showing first %d)", ec.maxErrors))
	}
	sb.WriteString(":\n")

	for _, err := range ec.errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}

	return sb.String()
}
