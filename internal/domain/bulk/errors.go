package bulk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Error codes reported in run summaries
const (
	CodeNormalization       = "NORMALIZATION_ERROR"
	CodeUnresolvedReference = "UNRESOLVED_REFERENCE"
	CodeFinancialIntegrity  = "FINANCIAL_INTEGRITY"
	CodeConfiguration       = "CONFIGURATION_ERROR"
	CodeStorage             = "STORAGE_ERROR"
	CodeRecordInvalid       = "RECORD_INVALID"
	CodeFailureRate         = "FAILURE_RATE_EXCEEDED"
)

// NormalizationError means a required field is missing and has no default.
// It aborts only the offending row.
type NormalizationError struct {
	Sheet  string
	Row    int
	Column string
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Column == "" {
		return fmt.Sprintf("%s row %d: %s", e.Sheet, e.Row, e.Reason)
	}
	return fmt.Sprintf("%s row %d column %s: %s", e.Sheet, e.Row, e.Column, e.Reason)
}

// UnresolvedReferenceError means a foreign key names an entity that is not
// known and no synthesis rule exists for its type.
type UnresolvedReferenceError struct {
	Entity      EntityType
	Key         string
	Referrer    EntityType
	ReferrerKey string
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Referrer == "" {
		return fmt.Sprintf("unresolved %s reference %q", e.Entity, e.Key)
	}
	return fmt.Sprintf("%s %s references unknown %s %q", e.Referrer, e.ReferrerKey, e.Entity, e.Key)
}

// FinancialIntegrityError means a recomputed amount differs from the stated
// amount by more than the hard ceiling. The invoice and its lines are excluded.
type FinancialIntegrityError struct {
	SalesOrderID string
	Check        string
	Expected     decimal.Decimal
	Actual       decimal.Decimal
	Delta        decimal.Decimal
	Ceiling      decimal.Decimal
}

func (e *FinancialIntegrityError) Error() string {
	return fmt.Sprintf("invoice %s: %s expected %s, stated %s (delta %s exceeds ceiling %s)",
		e.SalesOrderID, e.Check, e.Expected.StringFixed(4), e.Actual.StringFixed(4),
		e.Delta.StringFixed(4), e.Ceiling.StringFixed(2))
}

// ConfigurationError means the run cannot start, e.g. a missing source file
// or destination connection string.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a configuration error for a setting
func NewConfigurationError(setting string, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Setting: setting, Err: fmt.Errorf(format, args...)}
}

// StorageError means the destination rejected a write. The current phase is
// rolled back; phases committed earlier stay committed.
type StorageError struct {
	Phase  Phase
	Entity EntityType
	Err    error
}

func (e *StorageError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("storage error in %s phase: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("storage error in %s phase writing %s: %v", e.Phase, e.Entity, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// FailureRateError means too many entities of a phase had unresolved
// references, so the phase is rolled back instead of committed.
type FailureRateError struct {
	Phase   Phase
	Failed  int
	Total   int
	Ceiling float64
}

func (e *FailureRateError) Error() string {
	return fmt.Sprintf("%s phase aborted: %d of %d entities unresolved (ceiling %.2f%%)",
		e.Phase, e.Failed, e.Total, e.Ceiling*100)
}

// Rate returns the observed failure rate
func (e *FailureRateError) Rate() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Failed) / float64(e.Total)
}

// ErrorCode maps an error from the taxonomy to its summary code
func ErrorCode(err error) string {
	var (
		normErr    *NormalizationError
		refErr     *UnresolvedReferenceError
		finErr     *FinancialIntegrityError
		cfgErr     *ConfigurationError
		storageErr *StorageError
	)
	switch {
	case errors.As(err, &normErr):
		return CodeNormalization
	case errors.As(err, &refErr):
		return CodeUnresolvedReference
	case errors.As(err, &finErr):
		return CodeFinancialIntegrity
	case errors.As(err, &cfgErr):
		return CodeConfiguration
	case errors.As(err, &storageErr):
		return CodeStorage
	}
	var rateErr *FailureRateError
	if errors.As(err, &rateErr) {
		return CodeFailureRate
	}
	return CodeRecordInvalid
}

// IsFatal reports whether an error terminates the run
func IsFatal(err error) bool {
	var (
		cfgErr     *ConfigurationError
		storageErr *StorageError
		rateErr    *FailureRateError
	)
	return errors.As(err, &cfgErr) || errors.As(err, &storageErr) || errors.As(err, &rateErr)
}
