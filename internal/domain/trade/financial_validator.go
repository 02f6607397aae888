package trade

import (
	"strconv"

	"github.com/erp/salesetl/internal/domain/bulk"
	"github.com/erp/salesetl/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Default thresholds for the financial checks, in currency units
var (
	DefaultTolerance   = decimal.RequireFromString("0.01")
	DefaultHardCeiling = decimal.RequireFromString("1.00")
)

// Check names one recomputed amount
type Check string

const (
	CheckLineTotal Check = "line_total"
	CheckSubtotal  Check = "subtotal"
	CheckTotal     Check = "total"
)

// Classification is the outcome of validating one invoice
type Classification string

const (
	ClassificationPass        Classification = "pass"
	ClassificationDiscrepancy Classification = "discrepancy"
	ClassificationRejected    Classification = "rejected"
)

// Discrepancy records a recomputed amount that differs from the stated one
// by more than the tolerance
type Discrepancy struct {
	SalesOrderID       int             `json:"sales_order_id"`
	SalesOrderDetailID int             `json:"sales_order_detail_id,omitempty"`
	Check              Check           `json:"check"`
	Expected           decimal.Decimal `json:"expected"`
	Actual             decimal.Decimal `json:"actual"`
	Delta              decimal.Decimal `json:"delta"`
}

// ValidationResult is returned by FinancialValidator.Validate
type ValidationResult struct {
	Classification Classification
	Discrepancies  []Discrepancy
	Err            *bulk.FinancialIntegrityError
}

// FinancialValidator recomputes derived monetary fields and compares them
// with the stated values
type FinancialValidator struct {
	tolerance   decimal.Decimal
	hardCeiling decimal.Decimal
}

// NewFinancialValidator creates a validator. The hard ceiling must not be
// lower than the tolerance.
func NewFinancialValidator(tolerance, hardCeiling decimal.Decimal) (*FinancialValidator, error) {
	if tolerance.IsNegative() {
		return nil, shared.NewDomainError("INVALID_TOLERANCE", "Tolerance cannot be negative")
	}
	if hardCeiling.LessThan(tolerance) {
		return nil, shared.NewDomainError("INVALID_HARD_CEILING", "Hard ceiling cannot be lower than tolerance")
	}
	return &FinancialValidator{tolerance: tolerance, hardCeiling: hardCeiling}, nil
}

// NewDefaultFinancialValidator uses DefaultTolerance and DefaultHardCeiling
func NewDefaultFinancialValidator() *FinancialValidator {
	return &FinancialValidator{tolerance: DefaultTolerance, hardCeiling: DefaultHardCeiling}
}

// Tolerance returns the soft tolerance
func (v *FinancialValidator) Tolerance() decimal.Decimal {
	return v.tolerance
}

// HardCeiling returns the hard ceiling
func (v *FinancialValidator) HardCeiling() decimal.Decimal {
	return v.hardCeiling
}

// Validate checks every line total, the subtotal and the total of an
// invoice. Amounts that were derived rather than stated are not checked.
// Any delta above the hard ceiling rejects the invoice; any delta above the
// tolerance is reported as a discrepancy.
func (v *FinancialValidator) Validate(inv *Invoice) ValidationResult {
	result := ValidationResult{Classification: ClassificationPass}
	var worst *bulk.FinancialIntegrityError

	record := func(detailID int, check Check, expected, actual decimal.Decimal) {
		delta := expected.Sub(actual).Abs()
		if delta.LessThanOrEqual(v.tolerance) {
			return
		}
		result.Discrepancies = append(result.Discrepancies, Discrepancy{
			SalesOrderID:       inv.SalesOrderID,
			SalesOrderDetailID: detailID,
			Check:              check,
			Expected:           expected,
			Actual:             actual,
			Delta:              delta,
		})
		if delta.GreaterThan(v.hardCeiling) && (worst == nil || delta.GreaterThan(worst.Delta)) {
			worst = &bulk.FinancialIntegrityError{
				SalesOrderID: strconv.Itoa(inv.SalesOrderID),
				Check:        string(check),
				Expected:     expected,
				Actual:       actual,
				Delta:        delta,
				Ceiling:      v.hardCeiling,
			}
		}
	}

	for _, line := range inv.Lines {
		if line.LineTotalStated {
			record(line.SalesOrderDetailID, CheckLineTotal, line.ComputedLineTotal(), line.LineTotal)
		}
	}
	if inv.SubTotalStated {
		record(0, CheckSubtotal, inv.SumLineTotals(), inv.SubTotal)
	}
	if inv.TotalDueStated {
		record(0, CheckTotal, inv.ComputedTotalDue(), inv.TotalDue)
	}

	switch {
	case worst != nil:
		result.Classification = ClassificationRejected
		result.Err = worst
	case len(result.Discrepancies) > 0:
		result.Classification = ClassificationDiscrepancy
		inv.HasDiscrepancy = true
	}
	return result
}
