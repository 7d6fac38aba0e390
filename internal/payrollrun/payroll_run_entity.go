package payrollrun

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusDraft      = "DRAFT"
	StatusCalculated = "CALCULATED"
	StatusApproved   = "APPROVED"
	StatusPaid       = "PAID"
	StatusLocked     = "LOCKED"
	StatusVoided     = "VOIDED"
)

const (
	RunTypeRegular     = "REGULAR"
	RunTypeAdjustment  = "ADJUSTMENT"
	RunTypeRetroactive = "RETROACTIVE"
)

const (
	LineTypeEarning   = "EARNING"
	LineTypeDeduction = "DEDUCTION"
)

const (
	LineOriginFixed      = "FIXED"
	LineOriginVariable   = "VARIABLE"
	LineOriginCalculated = "CALCULATED"
)

// statusTransitions encodes the forward-only lifecycle. VOIDED is reachable
// from any pre-PAID state; nothing leaves LOCKED or VOIDED.
var statusTransitions = map[string][]string{
	StatusDraft:      {StatusCalculated, StatusVoided},
	StatusCalculated: {StatusApproved, StatusVoided},
	StatusApproved:   {StatusPaid, StatusVoided},
	StatusPaid:       {StatusLocked},
	StatusLocked:     {},
	StatusVoided:     {},
}

func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func ValidRunType(t string) bool {
	switch t {
	case RunTypeRegular, RunTypeAdjustment, RunTypeRetroactive:
		return true
	}
	return false
}

// PayrollRun is one calculation attempt ("corrida") for a period. Financial
// amounts are stored in minor units as int64. Totals are always a fold over
// the run's items, never entered independently.
type PayrollRun struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index:idx_run_company_status"`
	PeriodID  uuid.UUID `gorm:"type:uuid;not null;index:idx_period_run_number,unique"`

	// RunNumber is reserved atomically at creation and never reused.
	RunNumber int    `gorm:"not null;index:idx_period_run_number,unique"`
	RunType   string `gorm:"type:varchar(20);not null;default:'REGULAR'"`
	Status    string `gorm:"type:varchar(20);not null;default:'DRAFT';index:idx_run_company_status"`

	TotalGross        int64 `gorm:"type:bigint;not null;default:0"`
	TotalDeductions   int64 `gorm:"type:bigint;not null;default:0"`
	TotalNet          int64 `gorm:"type:bigint;not null;default:0"`
	TotalEmployerCost int64 `gorm:"type:bigint;not null;default:0"`
	EmployeeCount     int   `gorm:"not null;default:0"`

	CalculatedAt *time.Time `gorm:"index"`
	CalculatedBy *uuid.UUID `gorm:"type:uuid"`
	ApprovedAt   *time.Time
	ApprovedBy   *uuid.UUID `gorm:"type:uuid"`
	PaidAt       *time.Time
	LockedAt     *time.Time
	VoidedAt     *time.Time
	VoidedBy     *uuid.UUID `gorm:"type:uuid"`
	VoidReason   *string    `gorm:"type:text"`
	Notes        string     `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []PayrollRunItem `gorm:"foreignKey:RunID"`
}

func (PayrollRun) TableName() string {
	return "payroll_runs"
}

// PayrollRunItem is one employee's result in a run. The employee snapshot
// fields are write-once: later edits to the employee record must not change a
// persisted item.
type PayrollRunItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID      uuid.UUID `gorm:"type:uuid;not null;index"`
	CompanyID  uuid.UUID `gorm:"type:uuid;not null;index"`
	EmployeeID uuid.UUID `gorm:"type:uuid;not null;index"`

	// Snapshot captured at calculation time.
	EmployeeName string     `gorm:"type:varchar(160);not null"`
	UnionID      *uuid.UUID `gorm:"type:uuid"`
	UnionName    string     `gorm:"type:varchar(120)"`
	CategoryID   *uuid.UUID `gorm:"type:uuid"`
	CategoryName string     `gorm:"type:varchar(120)"`
	SectorID     *uuid.UUID `gorm:"type:uuid"`
	SectorName   string     `gorm:"type:varchar(120)"`
	BaseSalary   int64      `gorm:"type:bigint;not null;default:0"`
	HireDate     time.Time  `gorm:"type:date;not null"`

	DaysWorked    int     `gorm:"not null;default:0"`
	DaysInPeriod  int     `gorm:"not null;default:0"`
	ProrateFactor float64 `gorm:"type:numeric(9,6);not null;default:1"`

	GrossRemunerative  int64 `gorm:"type:bigint;not null;default:0"`
	GrossTotal         int64 `gorm:"type:bigint;not null;default:0"`
	TotalDeductions    int64 `gorm:"type:bigint;not null;default:0"`
	AdvancesDiscounted int64 `gorm:"type:bigint;not null;default:0"`
	NetSalary          int64 `gorm:"type:bigint;not null;default:0"`
	EmployerCost       int64 `gorm:"type:bigint;not null;default:0"`

	CreatedAt time.Time

	Lines []PayrollRunItemLine `gorm:"foreignKey:ItemID"`
}

func (PayrollRunItem) TableName() string {
	return "payroll_run_items"
}

// PayrollRunItemLine is one concept's contribution to an item. ComponentID is
// nil for calculated statutory lines.
type PayrollRunItemLine struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ItemID      uuid.UUID  `gorm:"type:uuid;not null;index"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ComponentID *uuid.UUID `gorm:"type:uuid"`

	Code string `gorm:"type:varchar(30);not null"`
	Name string `gorm:"type:varchar(120);not null"`
	Type string `gorm:"type:varchar(20);not null"`

	Quantity         int64  `gorm:"type:bigint;not null;default:1"`
	UnitAmount       int64  `gorm:"type:bigint;not null;default:0"`
	BaseAmount       int64  `gorm:"type:bigint;not null;default:0"`
	CalculatedAmount int64  `gorm:"type:bigint;not null;default:0"`
	FinalAmount      int64  `gorm:"type:bigint;not null;default:0"`
	Formula          string `gorm:"type:varchar(120)"`
	Origin           string `gorm:"type:varchar(20);not null"`

	CreatedAt time.Time
}

func (PayrollRunItemLine) TableName() string {
	return "payroll_run_item_lines"
}
