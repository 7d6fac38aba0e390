package events

import "time"

const PayrollRunCalculatedTopic = "payroll.run.calculated.v1"

type PayrollRunCalculatedEvent struct {
	EventType     string    `json:"event_type"`
	RunID         string    `json:"run_id"`
	PeriodID      string    `json:"period_id"`
	CompanyID     string    `json:"company_id"`
	RunNumber     int       `json:"run_number"`
	EmployeeCount int       `json:"employee_count"`
	TotalNet      int64     `json:"total_net"`
	CalculatedBy  string    `json:"calculated_by"`
	OccurredAt    time.Time `json:"occurred_at"`
}
