package payrollrun

import (
	"context"
	"database/sql"
	"errors"

	"orvit-payroll/internal/tenant"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type RunQueryFilter struct {
	PeriodID string
	Status   string
	RunType  string
}

//go:generate mockgen -source=payroll_run_repo.go -destination=mock/payroll_run_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	// ReserveRunNumber atomically increments and returns the per-period run
	// counter. Numbers are monotonically increasing and never reused.
	ReserveRunNumber(ctx context.Context, periodID string) (int, error)
	CreateRun(ctx context.Context, run *PayrollRun) error
	InsertItems(ctx context.Context, items []PayrollRunItem, lines []PayrollRunItemLine) error
	MarkCalculated(ctx context.Context, run *PayrollRun) error
	MarkVoided(ctx context.Context, run *PayrollRun) error

	FindAllByCompany(ctx context.Context, companyID string, filter RunQueryFilter) ([]PayrollRun, error)
	FindByIDAndCompany(ctx context.Context, companyID string, id string) (*PayrollRun, error)
	ListItemsWithLines(ctx context.Context, companyID string, runID string) ([]PayrollRunItem, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

// IsUniqueViolation reports whether err is a postgres duplicate-key error,
// which is how a concurrent run-number reservation surfaces.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *repository) ReserveRunNumber(ctx context.Context, periodID string) (int, error) {
	query := `
		INSERT INTO payroll_run_counters (period_id, last_value, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (period_id) DO UPDATE
		SET last_value = payroll_run_counters.last_value + 1, updated_at = now()
		RETURNING last_value
	`

	var next int
	if err := r.queryer().QueryRowContext(ctx, query, periodID).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

func (r *repository) CreateRun(ctx context.Context, run *PayrollRun) error {
	query := `
        INSERT INTO payroll_runs (
            id, company_id, period_id, run_number, run_type, status,
            total_gross, total_deductions, total_net, total_employer_cost,
            employee_count, notes, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, now(), now())
    `

	_, err := r.execer().ExecContext(
		ctx, query,
		run.ID, run.CompanyID, run.PeriodID, run.RunNumber, run.RunType, run.Status,
		run.TotalGross, run.TotalDeductions, run.TotalNet, run.TotalEmployerCost,
		run.EmployeeCount, run.Notes,
	)
	return err
}

func (r *repository) InsertItems(ctx context.Context, items []PayrollRunItem, lines []PayrollRunItemLine) error {
	itemQuery := `
        INSERT INTO payroll_run_items (
            id, run_id, company_id, employee_id,
            employee_name, union_id, union_name, category_id, category_name,
            sector_id, sector_name, base_salary, hire_date,
            days_worked, days_in_period, prorate_factor,
            gross_remunerative, gross_total, total_deductions,
            advances_discounted, net_salary, employer_cost, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
                  $14, $15, $16, $17, $18, $19, $20, $21, $22, now())
    `

	lineQuery := `
        INSERT INTO payroll_run_item_lines (
            id, item_id, company_id, component_id, code, name, type,
            quantity, unit_amount, base_amount, calculated_amount,
            final_amount, formula, origin, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
    `

	exec := r.execer()

	for _, item := range items {
		if _, err := exec.ExecContext(
			ctx, itemQuery,
			item.ID, item.RunID, item.CompanyID, item.EmployeeID,
			item.EmployeeName, item.UnionID, item.UnionName, item.CategoryID, item.CategoryName,
			item.SectorID, item.SectorName, item.BaseSalary, item.HireDate,
			item.DaysWorked, item.DaysInPeriod, item.ProrateFactor,
			item.GrossRemunerative, item.GrossTotal, item.TotalDeductions,
			item.AdvancesDiscounted, item.NetSalary, item.EmployerCost,
		); err != nil {
			return err
		}
	}

	for _, line := range lines {
		if _, err := exec.ExecContext(
			ctx, lineQuery,
			line.ID, line.ItemID, line.CompanyID, line.ComponentID, line.Code, line.Name, line.Type,
			line.Quantity, line.UnitAmount, line.BaseAmount, line.CalculatedAmount,
			line.FinalAmount, line.Formula, line.Origin,
		); err != nil {
			return err
		}
	}

	return nil
}

func (r *repository) MarkCalculated(ctx context.Context, run *PayrollRun) error {
	query := `
        UPDATE payroll_runs
        SET status = $2,
            total_gross = $3,
            total_deductions = $4,
            total_net = $5,
            total_employer_cost = $6,
            employee_count = $7,
            calculated_at = $8,
            calculated_by = $9,
            updated_at = now()
        WHERE id = $1 AND status = $10
    `

	res, err := r.execer().ExecContext(
		ctx, query,
		run.ID, StatusCalculated,
		run.TotalGross, run.TotalDeductions, run.TotalNet, run.TotalEmployerCost,
		run.EmployeeCount, run.CalculatedAt, run.CalculatedBy, StatusDraft,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkVoided only touches rows still in a voidable state. The service checks
// the transition in memory first, but approval and payment workflows mutate
// the same row, so the guard has to hold at the UPDATE too.
func (r *repository) MarkVoided(ctx context.Context, run *PayrollRun) error {
	query := `
        UPDATE payroll_runs
        SET status = $2,
            voided_at = $3,
            voided_by = $4,
            void_reason = $5,
            updated_at = now()
        WHERE id = $1 AND status IN ($6, $7, $8)
    `

	res, err := r.execer().ExecContext(
		ctx, query,
		run.ID, StatusVoided, run.VoidedAt, run.VoidedBy, run.VoidReason,
		StatusDraft, StatusCalculated, StatusApproved,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *repository) FindAllByCompany(ctx context.Context, companyID string, filter RunQueryFilter) ([]PayrollRun, error) {
	q := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Order("created_at DESC")

	if filter.PeriodID != "" {
		q = q.Where("period_id = ?", filter.PeriodID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.RunType != "" {
		q = q.Where("run_type = ?", filter.RunType)
	}

	var runs []PayrollRun
	err := q.Find(&runs).Error
	return runs, err
}

func (r *repository) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*PayrollRun, error) {
	var run PayrollRun
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *repository) ListItemsWithLines(ctx context.Context, companyID string, runID string) ([]PayrollRunItem, error) {
	var items []PayrollRunItem
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Lines").
		Where("run_id = ?", runID).
		Order("employee_name ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	db, _ := r.db.DB()
	return db
}

func (r *repository) queryer() interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	db, _ := r.db.DB()
	return db
}
