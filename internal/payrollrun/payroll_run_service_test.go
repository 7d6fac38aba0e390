package payrollrun_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"orvit-payroll/internal/component"
	"orvit-payroll/internal/concept"
	"orvit-payroll/internal/employee"
	"orvit-payroll/internal/messaging/kafka"
	"orvit-payroll/internal/payrollrun"
	payrollrunerrors "orvit-payroll/internal/payrollrun/errors"
	"orvit-payroll/internal/period"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeRunRepo struct {
	reserveFn        func(ctx context.Context, periodID string) (int, error)
	createFn         func(ctx context.Context, run *payrollrun.PayrollRun) error
	insertItemsFn    func(ctx context.Context, items []payrollrun.PayrollRunItem, lines []payrollrun.PayrollRunItemLine) error
	markCalculatedFn func(ctx context.Context, run *payrollrun.PayrollRun) error
	markVoidedFn     func(ctx context.Context, run *payrollrun.PayrollRun) error
	findAllFn        func(ctx context.Context, companyID string, filter payrollrun.RunQueryFilter) ([]payrollrun.PayrollRun, error)
	findByIDFn       func(ctx context.Context, companyID string, id string) (*payrollrun.PayrollRun, error)
	listItemsFn      func(ctx context.Context, companyID string, runID string) ([]payrollrun.PayrollRunItem, error)

	nextNumber    int
	createdRuns   []*payrollrun.PayrollRun
	insertedItems []payrollrun.PayrollRunItem
	insertedLines []payrollrun.PayrollRunItemLine
	calculated    *payrollrun.PayrollRun
	voided        *payrollrun.PayrollRun
}

func (f *fakeRunRepo) WithTx(_ *sql.Tx) payrollrun.Repository { return f }

func (f *fakeRunRepo) ReserveRunNumber(ctx context.Context, periodID string) (int, error) {
	if f.reserveFn != nil {
		return f.reserveFn(ctx, periodID)
	}
	f.nextNumber++
	return f.nextNumber, nil
}

func (f *fakeRunRepo) CreateRun(ctx context.Context, run *payrollrun.PayrollRun) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, run); err != nil {
			return err
		}
	}
	f.createdRuns = append(f.createdRuns, run)
	return nil
}

func (f *fakeRunRepo) InsertItems(ctx context.Context, items []payrollrun.PayrollRunItem, lines []payrollrun.PayrollRunItemLine) error {
	if f.insertItemsFn != nil {
		if err := f.insertItemsFn(ctx, items, lines); err != nil {
			return err
		}
	}
	f.insertedItems = items
	f.insertedLines = lines
	return nil
}

func (f *fakeRunRepo) MarkCalculated(ctx context.Context, run *payrollrun.PayrollRun) error {
	if f.markCalculatedFn != nil {
		if err := f.markCalculatedFn(ctx, run); err != nil {
			return err
		}
	}
	f.calculated = run
	return nil
}

func (f *fakeRunRepo) MarkVoided(ctx context.Context, run *payrollrun.PayrollRun) error {
	if f.markVoidedFn != nil {
		if err := f.markVoidedFn(ctx, run); err != nil {
			return err
		}
	}
	f.voided = run
	return nil
}

func (f *fakeRunRepo) FindAllByCompany(ctx context.Context, companyID string, filter payrollrun.RunQueryFilter) ([]payrollrun.PayrollRun, error) {
	if f.findAllFn != nil {
		return f.findAllFn(ctx, companyID, filter)
	}
	return nil, nil
}

func (f *fakeRunRepo) FindByIDAndCompany(ctx context.Context, companyID string, id string) (*payrollrun.PayrollRun, error) {
	if f.findByIDFn != nil {
		return f.findByIDFn(ctx, companyID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRunRepo) ListItemsWithLines(ctx context.Context, companyID string, runID string) ([]payrollrun.PayrollRunItem, error) {
	if f.listItemsFn != nil {
		return f.listItemsFn(ctx, companyID, runID)
	}
	return nil, nil
}

type fakeAuditRepo struct {
	recordFn func(ctx context.Context, rec payrollrun.AuditRecord) error
	records  []payrollrun.AuditRecord
}

func (f *fakeAuditRepo) WithTx(_ *sql.Tx) payrollrun.AuditRepository { return f }

func (f *fakeAuditRepo) Record(ctx context.Context, rec payrollrun.AuditRecord) error {
	if f.recordFn != nil {
		if err := f.recordFn(ctx, rec); err != nil {
			return err
		}
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeOutboxRepo struct {
	createFn func(ctx context.Context, event kafka.OutboxEvent) error
	events   []kafka.OutboxEvent
}

func (f *fakeOutboxRepo) WithTx(_ *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutboxRepo) Create(ctx context.Context, event kafka.OutboxEvent) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, event); err != nil {
			return err
		}
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutboxRepo) ListPending(_ context.Context, _ int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}
func (f *fakeOutboxRepo) MarkSent(_ context.Context, _ string) error           { return nil }
func (f *fakeOutboxRepo) MarkFailed(_ context.Context, _ string, _ string) error { return nil }

type fakePeriodRepo struct {
	period *period.PayrollPeriod
	err    error
}

func (f *fakePeriodRepo) FindByIDAndCompany(_ context.Context, _ string, _ string) (*period.PayrollPeriod, error) {
	return f.period, f.err
}

type fakeEmployeeRepo struct {
	employees []employee.ActiveEmployee
	err       error

	gotUnionID *string
}

func (f *fakeEmployeeRepo) ListActiveByCompany(_ context.Context, _ string, unionID *string) ([]employee.ActiveEmployee, error) {
	f.gotUnionID = unionID
	return f.employees, f.err
}

type fakeComponentRepo struct {
	catalog map[uuid.UUID]component.SalaryComponent
	err     error
}

func (f *fakeComponentRepo) FindByIDAndCompany(_ context.Context, _ string, _ string) (*component.SalaryComponent, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeComponentRepo) MapAllByCompany(_ context.Context, _ string) (map[uuid.UUID]component.SalaryComponent, error) {
	return f.catalog, f.err
}

type serviceFixture struct {
	svc        payrollrun.Service
	mock       sqlmock.Sqlmock
	runs       *fakeRunRepo
	audit      *fakeAuditRepo
	outbox     *fakeOutboxRepo
	periods    *fakePeriodRepo
	employees  *fakeEmployeeRepo
	components *fakeComponentRepo
	concepts   *fakeConceptRepo

	companyID uuid.UUID
	actorID   uuid.UUID
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &serviceFixture{
		mock:       mock,
		runs:       &fakeRunRepo{},
		audit:      &fakeAuditRepo{},
		outbox:     &fakeOutboxRepo{},
		periods:    &fakePeriodRepo{},
		employees:  &fakeEmployeeRepo{},
		components: &fakeComponentRepo{catalog: map[uuid.UUID]component.SalaryComponent{}},
		concepts:   &fakeConceptRepo{},
		companyID:  uuid.New(),
		actorID:    uuid.New(),
	}
	f.periods.period = junePeriod(f.companyID)

	f.svc = payrollrun.NewService(
		db, f.runs, f.audit, f.outbox,
		f.periods, f.employees, f.components, f.concepts,
	)
	return f
}

// withBasicSalary seeds one earning component and a fixed concept paying
// unitAmount to every employee the directory returns.
func (f *serviceFixture) withBasicSalary(unitAmount int64) {
	basic := earningComponent(f.companyID, "BASIC")
	f.components.catalog[basic.ID] = basic
	f.concepts.fixed = []concept.EmployeeFixedConcept{{
		ID: uuid.New(), CompanyID: f.companyID,
		ComponentID: basic.ID, Quantity: 1, UnitAmount: unitAmount,
	}}
}

func (f *serviceFixture) calculate(t *testing.T) (payrollrun.RunSummaryResponse, error) {
	t.Helper()
	return f.svc.Calculate(context.Background(), f.companyID.String(), f.actorID.String(), payrollrun.CalculateRunRequest{
		PeriodID: f.periods.period.ID.String(),
		RunType:  payrollrun.RunTypeRegular,
	})
}

func TestCalculate_TotalsReconcileWithItems(t *testing.T) {
	f := newServiceFixture(t)
	f.withBasicSalary(300000)
	f.employees.employees = []employee.ActiveEmployee{
		activeEmployee(300000, date(2024, time.January, 1)),
		activeEmployee(300000, date(2025, time.June, 10)), // prorated to 0.7
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.calculate(t)

	assert.NoError(t, err)
	assert.Equal(t, payrollrun.StatusCalculated, resp.Status)
	assert.Equal(t, 1, resp.RunNumber)
	assert.Equal(t, 2, resp.EmployeeCount)
	assert.Empty(t, resp.Warnings)

	assert.Len(t, f.runs.insertedItems, 2)

	var gross, deductions, net, employerCost int64
	for _, item := range f.runs.insertedItems {
		gross += item.GrossTotal
		deductions += item.TotalDeductions
		net += item.NetSalary
		employerCost += item.EmployerCost
	}
	assert.Equal(t, gross, resp.TotalGross)
	assert.Equal(t, deductions, resp.TotalDeductions)
	assert.Equal(t, net, resp.TotalNet)
	assert.Equal(t, employerCost, resp.TotalEmployerCost)

	// 300000 + 210000 gross across both items.
	assert.Equal(t, int64(510000), resp.TotalGross)

	if assert.NotNil(t, f.runs.calculated) {
		assert.NotNil(t, f.runs.calculated.CalculatedAt)
		assert.Equal(t, f.actorID, *f.runs.calculated.CalculatedBy)
	}

	if assert.Len(t, f.audit.records, 1) {
		assert.Equal(t, payrollrun.AuditActionCalculated, f.audit.records[0].Action)
		assert.Equal(t, f.actorID, f.audit.records[0].ActorID)
	}
	if assert.Len(t, f.outbox.events, 1) {
		assert.Equal(t, "payroll.run.calculated", f.outbox.events[0].EventType)
		assert.Equal(t, kafka.OutboxStatusPending, f.outbox.events[0].Status)
	}

	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCalculate_ExcludedAndSkippedEmployeesLeaveCount(t *testing.T) {
	f := newServiceFixture(t)
	f.withBasicSalary(200000)
	f.employees.employees = []employee.ActiveEmployee{
		activeEmployee(200000, date(2024, time.January, 1)),
		activeEmployee(200000, date(2025, time.July, 15)), // hired after the period
		activeEmployee(0, date(2024, time.January, 1)),    // missing base salary
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.calculate(t)

	assert.NoError(t, err)
	assert.Equal(t, 1, resp.EmployeeCount)
	if assert.Len(t, resp.Warnings, 1) {
		assert.Equal(t, payrollrun.WarnEmployeeDataInconsistent, resp.Warnings[0].Code)
	}
	assert.Len(t, f.runs.insertedItems, 1)
}

func TestCalculate_PeriodNotFound(t *testing.T) {
	f := newServiceFixture(t)
	f.periods.period = nil
	f.periods.err = gorm.ErrRecordNotFound

	_, err := f.svc.Calculate(context.Background(), f.companyID.String(), f.actorID.String(), payrollrun.CalculateRunRequest{
		PeriodID: uuid.NewString(),
		RunType:  payrollrun.RunTypeRegular,
	})

	assert.ErrorIs(t, err, payrollrunerrors.ErrPeriodNotFound)
	assert.Empty(t, f.runs.createdRuns)
}

func TestCalculate_PeriodClosed(t *testing.T) {
	f := newServiceFixture(t)
	f.periods.period.IsClosed = true

	_, err := f.calculate(t)

	assert.ErrorIs(t, err, payrollrunerrors.ErrPeriodClosed)
	assert.Empty(t, f.runs.createdRuns)
}

func TestCalculate_InvalidRunType(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Calculate(context.Background(), f.companyID.String(), f.actorID.String(), payrollrun.CalculateRunRequest{
		PeriodID: f.periods.period.ID.String(),
		RunType:  "BONUS",
	})

	assert.ErrorIs(t, err, payrollrunerrors.ErrInvalidRunType)
}

func TestCalculate_InvalidCompanyID(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Calculate(context.Background(), "not-a-uuid", f.actorID.String(), payrollrun.CalculateRunRequest{
		PeriodID: f.periods.period.ID.String(),
		RunType:  payrollrun.RunTypeRegular,
	})

	assert.ErrorIs(t, err, payrollrunerrors.ErrInvalidCompanyID)
}

func TestCalculate_RunNumberConflictRetriesOnce(t *testing.T) {
	f := newServiceFixture(t)
	f.withBasicSalary(100000)
	f.employees.employees = []employee.ActiveEmployee{
		activeEmployee(100000, date(2024, time.January, 1)),
	}

	attempts := 0
	f.runs.createFn = func(_ context.Context, _ *payrollrun.PayrollRun) error {
		attempts++
		if attempts == 1 {
			return &pgconn.PgError{Code: "23505"}
		}
		return nil
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.calculate(t)

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 2, resp.RunNumber) // second reservation
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCalculate_InterleavedReservationsNeverShareANumber(t *testing.T) {
	f := newServiceFixture(t)
	f.withBasicSalary(100000)
	f.employees.employees = []employee.ActiveEmployee{
		activeEmployee(100000, date(2024, time.January, 1)),
	}

	// A racing request already owns number 1; the unique index rejects the
	// first insert and the retry must come back with a fresh number, never
	// the lost one.
	taken := map[int]bool{1: true}
	f.runs.createFn = func(_ context.Context, run *payrollrun.PayrollRun) error {
		if taken[run.RunNumber] {
			return &pgconn.PgError{Code: "23505"}
		}
		taken[run.RunNumber] = true
		return nil
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	first, err := f.calculate(t)
	assert.NoError(t, err)
	assert.Equal(t, 2, first.RunNumber)

	// A later run on the same period keeps climbing.
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	second, err := f.calculate(t)
	assert.NoError(t, err)
	assert.Equal(t, 3, second.RunNumber)
	assert.Greater(t, second.RunNumber, first.RunNumber)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCalculate_RunNumberConflictGivesUpAfterRetry(t *testing.T) {
	f := newServiceFixture(t)
	f.runs.createFn = func(_ context.Context, _ *payrollrun.PayrollRun) error {
		return &pgconn.PgError{Code: "23505"}
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.calculate(t)

	assert.ErrorIs(t, err, payrollrunerrors.ErrRunNumberConflict)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCalculate_ComputationErrorLeavesRunInDraft(t *testing.T) {
	f := newServiceFixture(t)
	f.employees.employees = []employee.ActiveEmployee{
		activeEmployee(100000, date(2024, time.January, 1)),
	}
	boom := errors.New("connection reset")
	f.concepts.fixedErr = boom

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	_, err := f.calculate(t)

	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.runs.createdRuns, 1)
	assert.Nil(t, f.runs.calculated)
	assert.Empty(t, f.outbox.events)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCalculate_CommitFailureRollsBackEverything(t *testing.T) {
	f := newServiceFixture(t)
	f.withBasicSalary(100000)
	f.employees.employees = []employee.ActiveEmployee{
		activeEmployee(100000, date(2024, time.January, 1)),
	}

	boom := errors.New("deadlock detected")
	f.runs.insertItemsFn = func(_ context.Context, _ []payrollrun.PayrollRunItem, _ []payrollrun.PayrollRunItemLine) error {
		return boom
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.calculate(t)

	assert.ErrorIs(t, err, boom)
	assert.Nil(t, f.runs.calculated)
	assert.Empty(t, f.audit.records)
	assert.Empty(t, f.outbox.events)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestCalculate_UnionPeriodFiltersDirectory(t *testing.T) {
	f := newServiceFixture(t)
	unionID := uuid.New()
	f.periods.period.UnionID = &unionID

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.calculate(t)

	assert.NoError(t, err)
	assert.Equal(t, 0, resp.EmployeeCount)
	if assert.NotNil(t, f.employees.gotUnionID) {
		assert.Equal(t, unionID.String(), *f.employees.gotUnionID)
	}
}

func TestVoid_TransitionsAndAudits(t *testing.T) {
	f := newServiceFixture(t)
	run := &payrollrun.PayrollRun{
		ID:        uuid.New(),
		CompanyID: f.companyID,
		PeriodID:  f.periods.period.ID,
		RunNumber: 1,
		RunType:   payrollrun.RunTypeRegular,
		Status:    payrollrun.StatusCalculated,
	}
	f.runs.findByIDFn = func(_ context.Context, _ string, _ string) (*payrollrun.PayrollRun, error) {
		return run, nil
	}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()

	resp, err := f.svc.Void(context.Background(), f.companyID.String(), f.actorID.String(), run.ID.String(), payrollrun.VoidRunRequest{
		Reason: "wrong period loaded",
	})

	assert.NoError(t, err)
	assert.Equal(t, payrollrun.StatusVoided, resp.Status)
	if assert.NotNil(t, f.runs.voided) {
		assert.NotNil(t, f.runs.voided.VoidedAt)
		assert.Equal(t, "wrong period loaded", *f.runs.voided.VoidReason)
	}
	if assert.Len(t, f.audit.records, 1) {
		assert.Equal(t, payrollrun.AuditActionVoided, f.audit.records[0].Action)
	}
	if assert.Len(t, f.outbox.events, 1) {
		assert.Equal(t, "payroll.run.voided", f.outbox.events[0].EventType)
	}
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestVoid_RowLeftVoidableStateBeforeWrite(t *testing.T) {
	f := newServiceFixture(t)
	run := &payrollrun.PayrollRun{
		ID:        uuid.New(),
		CompanyID: f.companyID,
		PeriodID:  f.periods.period.ID,
		Status:    payrollrun.StatusCalculated,
	}
	f.runs.findByIDFn = func(_ context.Context, _ string, _ string) (*payrollrun.PayrollRun, error) {
		return run, nil
	}
	// Another workflow paid the run after the read; the guarded update
	// matches nothing.
	f.runs.markVoidedFn = func(_ context.Context, _ *payrollrun.PayrollRun) error {
		return sql.ErrNoRows
	}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()

	_, err := f.svc.Void(context.Background(), f.companyID.String(), f.actorID.String(), run.ID.String(), payrollrun.VoidRunRequest{
		Reason: "duplicate run",
	})

	assert.ErrorIs(t, err, payrollrunerrors.ErrInvalidStatusTransition)
	assert.Empty(t, f.audit.records)
	assert.Empty(t, f.outbox.events)
	assert.NoError(t, f.mock.ExpectationsWereMet())
}

func TestVoid_PaidRunRejected(t *testing.T) {
	f := newServiceFixture(t)
	f.runs.findByIDFn = func(_ context.Context, _ string, _ string) (*payrollrun.PayrollRun, error) {
		return &payrollrun.PayrollRun{ID: uuid.New(), Status: payrollrun.StatusPaid}, nil
	}

	_, err := f.svc.Void(context.Background(), f.companyID.String(), f.actorID.String(), uuid.NewString(), payrollrun.VoidRunRequest{
		Reason: "too late",
	})

	assert.ErrorIs(t, err, payrollrunerrors.ErrInvalidStatusTransition)
	assert.Nil(t, f.runs.voided)
}

func TestVoid_ReasonRequired(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Void(context.Background(), f.companyID.String(), f.actorID.String(), uuid.NewString(), payrollrun.VoidRunRequest{})

	assert.ErrorIs(t, err, payrollrunerrors.ErrVoidReasonRequired)
}

func TestGetByID_NotFound(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.GetByID(context.Background(), f.companyID.String(), uuid.NewString())

	assert.ErrorIs(t, err, payrollrunerrors.ErrRunNotFound)
}

func TestGetAll_PassesFilterThrough(t *testing.T) {
	f := newServiceFixture(t)

	var gotFilter payrollrun.RunQueryFilter
	f.runs.findAllFn = func(_ context.Context, _ string, filter payrollrun.RunQueryFilter) ([]payrollrun.PayrollRun, error) {
		gotFilter = filter
		return []payrollrun.PayrollRun{{ID: uuid.New(), Status: payrollrun.StatusCalculated}}, nil
	}

	resp, err := f.svc.GetAll(context.Background(), f.companyID.String(), payrollrun.GetRunsFilterRequest{
		Status: payrollrun.StatusCalculated,
	})

	assert.NoError(t, err)
	assert.Len(t, resp, 1)
	assert.Equal(t, payrollrun.StatusCalculated, gotFilter.Status)
}
