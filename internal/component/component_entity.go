package component

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeEarning   = "EARNING"
	TypeDeduction = "DEDUCTION"
)

// SalaryComponent is the catalog entry behind every concept line. The three
// contribution flags drive how the accumulator buckets each line; IsAdvance
// marks deductions that discount a previously paid advance.
type SalaryComponent struct {
	ID                     uuid.UUID `gorm:"type:uuid;primaryKey"`
	CompanyID              uuid.UUID `gorm:"type:uuid;not null;index"`
	Code                   string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_company_code"`
	Name                   string    `gorm:"type:varchar(120);not null"`
	Type                   string    `gorm:"type:varchar(20);not null"`
	Ordering               int       `gorm:"not null;default:0"`
	IsRemunerative         bool      `gorm:"not null;default:true"`
	AffectsEmployeeContrib bool      `gorm:"not null;default:true"`
	AffectsEmployerContrib bool      `gorm:"not null;default:true"`
	IsAdvance              bool      `gorm:"not null;default:false"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (SalaryComponent) TableName() string {
	return "salary_components"
}
