package concept

import (
	"time"

	"github.com/google/uuid"
)

// EmployeeFixedConcept is a recurring pay component assignment with an
// effective date range. Fixed concepts are prorated by days worked.
type EmployeeFixedConcept struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	EmployeeID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	ComponentID uuid.UUID  `gorm:"type:uuid;not null"`
	Quantity    int64      `gorm:"type:bigint;not null;default:1"`
	UnitAmount  int64      `gorm:"type:bigint;not null;default:0"`
	ValidFrom   time.Time  `gorm:"type:date;not null"`
	ValidTo     *time.Time `gorm:"type:date"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (EmployeeFixedConcept) TableName() string {
	return "employee_fixed_concepts"
}

// PayrollVariableConcept is a one-off component approved for a single period.
// Variable concepts are never prorated.
type PayrollVariableConcept struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index"`
	PeriodID    uuid.UUID `gorm:"type:uuid;not null;index"`
	EmployeeID  uuid.UUID `gorm:"type:uuid;not null;index"`
	ComponentID uuid.UUID `gorm:"type:uuid;not null"`
	Quantity    int64     `gorm:"type:bigint;not null;default:1"`
	UnitAmount  int64     `gorm:"type:bigint;not null;default:0"`
	IsApproved  bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PayrollVariableConcept) TableName() string {
	return "payroll_variable_concepts"
}
