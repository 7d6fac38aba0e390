package component

import (
	"context"

	"orvit-payroll/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=component_repo.go -destination=mock/component_repo_mock.go -package=mock
type Repository interface {
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*SalaryComponent, error)
	// MapAllByCompany loads the whole catalog keyed by component id. The
	// engine snapshots it once per run before fanning out per employee.
	MapAllByCompany(ctx context.Context, companyID string) (map[uuid.UUID]SalaryComponent, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*SalaryComponent, error) {
	var c SalaryComponent
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&c, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) MapAllByCompany(ctx context.Context, companyID string) (map[uuid.UUID]SalaryComponent, error) {
	var components []SalaryComponent
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("ordering ASC").
		Find(&components).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]SalaryComponent, len(components))
	for _, c := range components {
		byID[c.ID] = c
	}
	return byID, nil
}
