package concept

import (
	"context"
	"time"

	"gorm.io/gorm"
)

//go:generate mockgen -source=concept_repo.go -destination=mock/concept_repo_mock.go -package=mock
type Repository interface {
	// ListEffectiveFixed returns the fixed assignments whose validity range
	// overlaps the period.
	ListEffectiveFixed(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) ([]EmployeeFixedConcept, error)
	// ListApprovedVariable returns the approved one-off concepts for the
	// employee in the given period.
	ListApprovedVariable(ctx context.Context, periodID string, employeeID string) ([]PayrollVariableConcept, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListEffectiveFixed(ctx context.Context, employeeID string, periodStart, periodEnd time.Time) ([]EmployeeFixedConcept, error) {
	var rows []EmployeeFixedConcept
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", employeeID).
		Where("valid_from <= ?", periodEnd).
		Where("valid_to IS NULL OR valid_to >= ?", periodStart).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListApprovedVariable(ctx context.Context, periodID string, employeeID string) ([]PayrollVariableConcept, error) {
	var rows []PayrollVariableConcept
	err := r.db.WithContext(ctx).
		Where("period_id = ?", periodID).
		Where("employee_id = ?", employeeID).
		Where("is_approved = TRUE").
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
