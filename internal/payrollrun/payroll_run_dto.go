package payrollrun

import "time"

type CalculateRunRequest struct {
	PeriodID string `json:"period_id" binding:"required,uuid"`
	RunType  string `json:"run_type" binding:"required,oneof=REGULAR ADJUSTMENT RETROACTIVE"`
	Notes    string `json:"notes"`
}

type VoidRunRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type GetRunsFilterRequest struct {
	PeriodID string `form:"period_id"`
	Status   string `form:"status" binding:"omitempty,oneof=DRAFT CALCULATED APPROVED PAID LOCKED VOIDED"`
	RunType  string `form:"run_type" binding:"omitempty,oneof=REGULAR ADJUSTMENT RETROACTIVE"`
}

type RunSummaryResponse struct {
	ID                string       `json:"id"`
	CompanyID         string       `json:"company_id"`
	PeriodID          string       `json:"period_id"`
	RunNumber         int          `json:"run_number"`
	RunType           string       `json:"run_type"`
	Status            string       `json:"status"`
	TotalGross        int64        `json:"total_gross"`
	TotalDeductions   int64        `json:"total_deductions"`
	TotalNet          int64        `json:"total_net"`
	TotalEmployerCost int64        `json:"total_employer_cost"`
	EmployeeCount     int          `json:"employee_count"`
	CalculatedAt      *string      `json:"calculated_at,omitempty"`
	CalculatedBy      *string      `json:"calculated_by,omitempty"`
	VoidReason        *string      `json:"void_reason,omitempty"`
	Notes             string       `json:"notes,omitempty"`
	Warnings          []RunWarning `json:"warnings,omitempty"`
}

type RunLineResponse struct {
	ID               string  `json:"id"`
	ComponentID      *string `json:"component_id,omitempty"`
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Quantity         int64   `json:"quantity"`
	UnitAmount       int64   `json:"unit_amount"`
	BaseAmount       int64   `json:"base_amount"`
	CalculatedAmount int64   `json:"calculated_amount"`
	FinalAmount      int64   `json:"final_amount"`
	Formula          string  `json:"formula,omitempty"`
	Origin           string  `json:"origin"`
}

type RunItemResponse struct {
	ID                 string            `json:"id"`
	EmployeeID         string            `json:"employee_id"`
	EmployeeName       string            `json:"employee_name"`
	UnionName          string            `json:"union_name,omitempty"`
	CategoryName       string            `json:"category_name,omitempty"`
	SectorName         string            `json:"sector_name,omitempty"`
	BaseSalary         int64             `json:"base_salary"`
	HireDate           string            `json:"hire_date"`
	DaysWorked         int               `json:"days_worked"`
	DaysInPeriod       int               `json:"days_in_period"`
	ProrateFactor      float64           `json:"prorate_factor"`
	GrossRemunerative  int64             `json:"gross_remunerative"`
	GrossTotal         int64             `json:"gross_total"`
	TotalDeductions    int64             `json:"total_deductions"`
	AdvancesDiscounted int64             `json:"advances_discounted"`
	NetSalary          int64             `json:"net_salary"`
	EmployerCost       int64             `json:"employer_cost"`
	Lines              []RunLineResponse `json:"lines"`
}

type RunBreakdownResponse struct {
	Run   RunSummaryResponse `json:"run"`
	Items []RunItemResponse  `json:"items"`
}

func mapToSummary(run PayrollRun) RunSummaryResponse {
	resp := RunSummaryResponse{
		ID:                run.ID.String(),
		CompanyID:         run.CompanyID.String(),
		PeriodID:          run.PeriodID.String(),
		RunNumber:         run.RunNumber,
		RunType:           run.RunType,
		Status:            run.Status,
		TotalGross:        run.TotalGross,
		TotalDeductions:   run.TotalDeductions,
		TotalNet:          run.TotalNet,
		TotalEmployerCost: run.TotalEmployerCost,
		EmployeeCount:     run.EmployeeCount,
		VoidReason:        run.VoidReason,
		Notes:             run.Notes,
	}

	if run.CalculatedAt != nil {
		v := run.CalculatedAt.Format(time.RFC3339)
		resp.CalculatedAt = &v
	}
	if run.CalculatedBy != nil {
		v := run.CalculatedBy.String()
		resp.CalculatedBy = &v
	}

	return resp
}

func mapToSummaryList(runs []PayrollRun) []RunSummaryResponse {
	resp := make([]RunSummaryResponse, len(runs))
	for i, run := range runs {
		resp[i] = mapToSummary(run)
	}
	return resp
}

func mapToItemResponse(item PayrollRunItem) RunItemResponse {
	lines := make([]RunLineResponse, len(item.Lines))
	for i, line := range item.Lines {
		lines[i] = RunLineResponse{
			ID:               line.ID.String(),
			Code:             line.Code,
			Name:             line.Name,
			Type:             line.Type,
			Quantity:         line.Quantity,
			UnitAmount:       line.UnitAmount,
			BaseAmount:       line.BaseAmount,
			CalculatedAmount: line.CalculatedAmount,
			FinalAmount:      line.FinalAmount,
			Formula:          line.Formula,
			Origin:           line.Origin,
		}
		if line.ComponentID != nil {
			v := line.ComponentID.String()
			lines[i].ComponentID = &v
		}
	}

	return RunItemResponse{
		ID:                 item.ID.String(),
		EmployeeID:         item.EmployeeID.String(),
		EmployeeName:       item.EmployeeName,
		UnionName:          item.UnionName,
		CategoryName:       item.CategoryName,
		SectorName:         item.SectorName,
		BaseSalary:         item.BaseSalary,
		HireDate:           item.HireDate.Format("2006-01-02"),
		DaysWorked:         item.DaysWorked,
		DaysInPeriod:       item.DaysInPeriod,
		ProrateFactor:      item.ProrateFactor,
		GrossRemunerative:  item.GrossRemunerative,
		GrossTotal:         item.GrossTotal,
		TotalDeductions:    item.TotalDeductions,
		AdvancesDiscounted: item.AdvancesDiscounted,
		NetSalary:          item.NetSalary,
		EmployerCost:       item.EmployerCost,
		Lines:              lines,
	}
}
