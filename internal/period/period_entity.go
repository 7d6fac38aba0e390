package period

import (
	"time"

	"github.com/google/uuid"
)

// PayrollPeriod is owned by the period-management module. This package only
// reads it; the calculation engine must reject a closed period.
type PayrollPeriod struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	UnionID      *uuid.UUID `gorm:"type:uuid"`
	PeriodType   string     `gorm:"type:varchar(20);not null"`
	Year         int        `gorm:"not null"`
	Month        int        `gorm:"not null"`
	StartDate    time.Time  `gorm:"type:date;not null"`
	EndDate      time.Time  `gorm:"type:date;not null"`
	BusinessDays int        `gorm:"not null;default:0"`
	IsClosed     bool       `gorm:"not null;default:false"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (PayrollPeriod) TableName() string {
	return "payroll_periods"
}
