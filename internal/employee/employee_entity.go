package employee

import (
	"time"

	"github.com/google/uuid"
)

type Employee struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	CompanyID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	UnionID         *uuid.UUID `gorm:"type:uuid;index"`
	CategoryID      *uuid.UUID `gorm:"type:uuid"`
	SectorID        *uuid.UUID `gorm:"type:uuid"`
	FullName        string     `gorm:"type:varchar(160);not null"`
	BaseSalary      int64      `gorm:"type:bigint;not null;default:0"`
	HireDate        time.Time  `gorm:"type:date;not null"`
	TerminationDate *time.Time `gorm:"type:date"`
	IsActive        bool       `gorm:"not null;default:true;index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ActiveEmployee is the directory projection the payroll engine consumes:
// the raw employee row joined with its category, sector and union names so the
// run item snapshot can be taken in one read.
type ActiveEmployee struct {
	ID              uuid.UUID
	UnionID         *uuid.UUID
	UnionName       string
	CategoryID      *uuid.UUID
	CategoryName    string
	SectorID        *uuid.UUID
	SectorName      string
	FullName        string
	BaseSalary      int64
	HireDate        time.Time
	TerminationDate *time.Time
}
