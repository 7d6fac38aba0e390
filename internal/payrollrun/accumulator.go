package payrollrun

import (
	"fmt"

	payrollrunerrors "orvit-payroll/internal/payrollrun/errors"
)

// ConceptLine pairs a built item line with the catalog flags that decide how
// its final amount is bucketed.
type ConceptLine struct {
	Line                   PayrollRunItemLine
	IsRemunerative         bool
	AffectsEmployeeContrib bool
	AffectsEmployerContrib bool
	IsAdvance              bool
}

// ConceptTotals is the output of one accumulation pass, before statutory
// deductions are applied.
type ConceptTotals struct {
	GrossRemunerative   int64
	GrossTotal          int64
	EmployerContribBase int64
	TotalDeductions     int64
	AdvancesDiscounted  int64
}

// Accumulate folds concept lines into the gross/deduction buckets. Earnings
// always feed the total gross, and feed the remunerative gross and employer
// contribution base only when flagged. Deductions feed the deduction total,
// with advance discounts tracked separately. A line that is neither an
// earning nor a deduction fails the whole pass.
func Accumulate(lines []ConceptLine) (ConceptTotals, error) {
	var totals ConceptTotals

	for _, cl := range lines {
		switch cl.Line.Type {
		case LineTypeEarning:
			totals.GrossTotal += cl.Line.FinalAmount
			if cl.IsRemunerative {
				totals.GrossRemunerative += cl.Line.FinalAmount
			}
			if cl.AffectsEmployerContrib {
				totals.EmployerContribBase += cl.Line.FinalAmount
			}
		case LineTypeDeduction:
			totals.TotalDeductions += cl.Line.FinalAmount
			if cl.IsAdvance {
				totals.AdvancesDiscounted += cl.Line.FinalAmount
			}
		default:
			return ConceptTotals{}, fmt.Errorf("%w: concept %q has type %q",
				payrollrunerrors.ErrUnknownConceptType, cl.Line.Code, cl.Line.Type)
		}
	}

	return totals, nil
}
