package events

import "time"

const PayrollRunVoidedTopic = "payroll.run.voided.v1"

type PayrollRunVoidedEvent struct {
	EventType  string    `json:"event_type"`
	RunID      string    `json:"run_id"`
	PeriodID   string    `json:"period_id"`
	CompanyID  string    `json:"company_id"`
	Reason     string    `json:"reason"`
	VoidedBy   string    `json:"voided_by"`
	OccurredAt time.Time `json:"occurred_at"`
}
