package employee

import (
	"context"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	// ListActiveByCompany returns the active directory for a company,
	// optionally filtered down to one union.
	ListActiveByCompany(ctx context.Context, companyID string, unionID *string) ([]ActiveEmployee, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListActiveByCompany(ctx context.Context, companyID string, unionID *string) ([]ActiveEmployee, error) {
	q := r.db.WithContext(ctx).
		Table("employees AS e").
		Select(`e.id, e.union_id, COALESCE(u.name, '') AS union_name,
			e.category_id, COALESCE(c.name, '') AS category_name,
			e.sector_id, COALESCE(s.name, '') AS sector_name,
			e.full_name, e.base_salary, e.hire_date, e.termination_date`).
		Joins("LEFT JOIN unions u ON u.id = e.union_id").
		Joins("LEFT JOIN categories c ON c.id = e.category_id").
		Joins("LEFT JOIN sectors s ON s.id = e.sector_id").
		Where("e.company_id = ?", companyID).
		Where("e.is_active = TRUE")

	if unionID != nil && *unionID != "" {
		q = q.Where("e.union_id = ?", *unionID)
	}

	var rows []ActiveEmployee
	if err := q.Order("e.full_name ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
