package payrollrun

import (
	"context"
	"errors"
	"fmt"

	"orvit-payroll/internal/component"
	"orvit-payroll/internal/concept"
	"orvit-payroll/internal/employee"
	payrollrunerrors "orvit-payroll/internal/payrollrun/errors"
	"orvit-payroll/internal/period"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Warning codes reported in the run summary for employees that were skipped
// without aborting the run.
const (
	WarnEmployeeDataInconsistent = "EMPLOYEE_DATA_INCONSISTENT"
	WarnUnknownConceptType       = "UNKNOWN_CONCEPT_TYPE"
)

type RunWarning struct {
	EmployeeID string `json:"employee_id"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// BuiltItem is one employee's fully computed result, ready for the batched
// commit. Nothing is persisted here.
type BuiltItem struct {
	Item  PayrollRunItem
	Lines []PayrollRunItemLine
}

// ItemBuilder composes the proration, accumulation, statutory and employer
// calculators for one employee. It holds only read-only state (a catalog
// snapshot and repositories), so BuildItem is safe to run concurrently across
// employees.
type ItemBuilder struct {
	concepts concept.Repository
	catalog  map[uuid.UUID]component.SalaryComponent
	rates    RateTable
}

func NewItemBuilder(
	concepts concept.Repository,
	catalog map[uuid.UUID]component.SalaryComponent,
	rates RateTable,
) *ItemBuilder {
	return &ItemBuilder{concepts: concepts, catalog: catalog, rates: rates}
}

// BuildItem returns (nil, nil, nil) when the employee is excluded from the
// period, (nil, warning, nil) when the employee is skipped because of bad
// data, and an error only for failures that must abort the whole run.
func (b *ItemBuilder) BuildItem(
	ctx context.Context,
	p *period.PayrollPeriod,
	emp employee.ActiveEmployee,
) (*BuiltItem, *RunWarning, error) {
	if emp.BaseSalary <= 0 || emp.HireDate.IsZero() {
		return nil, &RunWarning{
			EmployeeID: emp.ID.String(),
			Code:       WarnEmployeeDataInconsistent,
			Message:    "missing base salary or hire date",
		}, nil
	}

	pr := Prorate(emp.HireDate, emp.TerminationDate, p.StartDate, p.EndDate)
	if !pr.Include {
		return nil, nil, nil
	}

	itemID := uuid.New()

	fixed, err := b.concepts.ListEffectiveFixed(ctx, emp.ID.String(), p.StartDate, p.EndDate)
	if err != nil {
		return nil, nil, err
	}

	variable, err := b.concepts.ListApprovedVariable(ctx, p.ID.String(), emp.ID.String())
	if err != nil {
		return nil, nil, err
	}

	conceptLines := make([]ConceptLine, 0, len(fixed)+len(variable))

	for _, fc := range fixed {
		cl, ok := b.conceptLine(itemID, p.CompanyID, fc.ComponentID, fc.Quantity, fc.UnitAmount, LineOriginFixed, pr.Factor)
		if !ok {
			return nil, unknownComponentWarning(emp, fc.ComponentID), nil
		}
		conceptLines = append(conceptLines, cl)
	}

	for _, vc := range variable {
		// Variable concepts are approved per period and never prorated.
		cl, ok := b.conceptLine(itemID, p.CompanyID, vc.ComponentID, vc.Quantity, vc.UnitAmount, LineOriginVariable, decimal.NewFromInt(1))
		if !ok {
			return nil, unknownComponentWarning(emp, vc.ComponentID), nil
		}
		conceptLines = append(conceptLines, cl)
	}

	totals, err := Accumulate(conceptLines)
	if err != nil {
		if errors.Is(err, payrollrunerrors.ErrUnknownConceptType) {
			return nil, &RunWarning{
				EmployeeID: emp.ID.String(),
				Code:       WarnUnknownConceptType,
				Message:    err.Error(),
			}, nil
		}
		return nil, nil, err
	}

	lines := make([]PayrollRunItemLine, 0, len(conceptLines)+3)
	for _, cl := range conceptLines {
		lines = append(lines, cl.Line)
	}

	statutory := StatutoryLines(itemID, p.CompanyID, totals.GrossRemunerative, b.rates)
	lines = append(lines, statutory...)

	totalDeductions := totals.TotalDeductions
	for _, l := range statutory {
		totalDeductions += l.FinalAmount
	}

	netSalary := totals.GrossTotal - totalDeductions
	employerCost := EmployerCost(totals.GrossTotal, totals.EmployerContribBase, b.rates)

	item := PayrollRunItem{
		ID:                 itemID,
		CompanyID:          p.CompanyID,
		EmployeeID:         emp.ID,
		EmployeeName:       emp.FullName,
		UnionID:            copyID(emp.UnionID),
		UnionName:          emp.UnionName,
		CategoryID:         copyID(emp.CategoryID),
		CategoryName:       emp.CategoryName,
		SectorID:           copyID(emp.SectorID),
		SectorName:         emp.SectorName,
		BaseSalary:         emp.BaseSalary,
		HireDate:           emp.HireDate,
		DaysWorked:         pr.DaysWorked,
		DaysInPeriod:       pr.DaysInPeriod,
		ProrateFactor:      pr.Factor.InexactFloat64(),
		GrossRemunerative:  totals.GrossRemunerative,
		GrossTotal:         totals.GrossTotal,
		TotalDeductions:    totalDeductions,
		AdvancesDiscounted: totals.AdvancesDiscounted,
		NetSalary:          netSalary,
		EmployerCost:       employerCost,
		Lines:              nil,
	}

	return &BuiltItem{Item: item, Lines: lines}, nil, nil
}

// conceptLine builds one line from a catalog component. Fixed-origin lines are
// pre-multiplied by the proration factor; the caller passes factor 1 for
// variable lines.
func (b *ItemBuilder) conceptLine(
	itemID, companyID uuid.UUID,
	componentID uuid.UUID,
	quantity, unitAmount int64,
	origin string,
	factor decimal.Decimal,
) (ConceptLine, bool) {
	comp, ok := b.catalog[componentID]
	if !ok {
		return ConceptLine{}, false
	}

	baseAmount := quantity * unitAmount
	finalAmount := baseAmount
	if origin == LineOriginFixed {
		finalAmount = decimal.NewFromInt(baseAmount).Mul(factor).Round(0).IntPart()
	}

	compID := comp.ID
	return ConceptLine{
		Line: PayrollRunItemLine{
			ID:               uuid.New(),
			ItemID:           itemID,
			CompanyID:        companyID,
			ComponentID:      &compID,
			Code:             comp.Code,
			Name:             comp.Name,
			Type:             comp.Type,
			Quantity:         quantity,
			UnitAmount:       unitAmount,
			BaseAmount:       baseAmount,
			CalculatedAmount: baseAmount,
			FinalAmount:      finalAmount,
			Origin:           origin,
		},
		IsRemunerative:         comp.IsRemunerative,
		AffectsEmployeeContrib: comp.AffectsEmployeeContrib,
		AffectsEmployerContrib: comp.AffectsEmployerContrib,
		IsAdvance:              comp.IsAdvance,
	}, true
}

// copyID detaches a snapshot id from the directory row it came from. Items
// must not alias anything the employee module can still mutate.
func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func unknownComponentWarning(emp employee.ActiveEmployee, componentID uuid.UUID) *RunWarning {
	return &RunWarning{
		EmployeeID: emp.ID.String(),
		Code:       WarnEmployeeDataInconsistent,
		Message:    fmt.Sprintf("concept references unknown salary component %s", componentID),
	}
}
