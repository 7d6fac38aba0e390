package payrollrun

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"orvit-payroll/internal/component"
	"orvit-payroll/internal/concept"
	"orvit-payroll/internal/employee"
	"orvit-payroll/internal/events"
	"orvit-payroll/internal/messaging/kafka"
	payrollrunerrors "orvit-payroll/internal/payrollrun/errors"
	"orvit-payroll/internal/period"
	"orvit-payroll/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

const (
	// defaultWorkers bounds the per-employee fan-out during COMPUTING.
	defaultWorkers = 8

	runListKeyPrefix = "payroll_runs:all:"
	runListCacheTTL  = 2 * time.Minute
)

func runListKey(companyID string) string {
	return runListKeyPrefix + companyID
}

//go:generate mockgen -source=payroll_run_service.go -destination=mock/payroll_run_service_mock.go -package=mock
type Service interface {
	// Calculate runs the full engine for a period: validates the period,
	// reserves a run number, computes every eligible employee and commits
	// the results atomically. The caller gets either a complete summary or
	// an error; never a partially committed run.
	Calculate(ctx context.Context, companyID, actorID string, req CalculateRunRequest) (RunSummaryResponse, error)
	GetAll(ctx context.Context, companyID string, req GetRunsFilterRequest) ([]RunSummaryResponse, error)
	GetByID(ctx context.Context, companyID, id string) (RunSummaryResponse, error)
	GetBreakdown(ctx context.Context, companyID, id string) (RunBreakdownResponse, error)
	Void(ctx context.Context, companyID, actorID, id string, req VoidRunRequest) (RunSummaryResponse, error)
}

type service struct {
	db         *sql.DB
	repo       Repository
	audit      AuditRepository
	outbox     kafka.OutboxRepository
	periods    period.Repository
	employees  employee.Repository
	components component.Repository
	concepts   concept.Repository
	rates      RateTable
	workers    int

	rdb *redis.Client
	sf  *singleflight.Group
}

func NewService(
	db *sql.DB,
	repo Repository,
	audit AuditRepository,
	outbox kafka.OutboxRepository,
	periods period.Repository,
	employees employee.Repository,
	components component.Repository,
	concepts concept.Repository,
) Service {
	return &service{
		db:         db,
		repo:       repo,
		audit:      audit,
		outbox:     outbox,
		periods:    periods,
		employees:  employees,
		components: components,
		concepts:   concepts,
		rates:      DefaultRateTable(),
		workers:    defaultWorkers,
		sf:         &singleflight.Group{},
	}
}

// NewServiceWithCache adds redis-backed caching of the run list.
func NewServiceWithCache(
	db *sql.DB,
	repo Repository,
	audit AuditRepository,
	outbox kafka.OutboxRepository,
	periods period.Repository,
	employees employee.Repository,
	components component.Repository,
	concepts concept.Repository,
	rdb *redis.Client,
) Service {
	svc := NewService(db, repo, audit, outbox, periods, employees, components, concepts).(*service)
	svc.rdb = rdb
	return svc
}

func (s *service) Calculate(
	ctx context.Context,
	companyID, actorID string,
	req CalculateRunRequest,
) (RunSummaryResponse, error) {
	log := contextutil.GetLogger(ctx, zap.L()).Named("payrollrun")

	companyUUID, err := uuid.Parse(companyID)
	if err != nil {
		return RunSummaryResponse{}, payrollrunerrors.ErrInvalidCompanyID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return RunSummaryResponse{}, payrollrunerrors.ErrInvalidActorID
	}
	periodUUID, err := uuid.Parse(req.PeriodID)
	if err != nil {
		return RunSummaryResponse{}, payrollrunerrors.ErrInvalidPeriodID
	}
	if !ValidRunType(req.RunType) {
		return RunSummaryResponse{}, payrollrunerrors.ErrInvalidRunType
	}

	// VALIDATING
	p, err := s.periods.FindByIDAndCompany(ctx, companyID, req.PeriodID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RunSummaryResponse{}, payrollrunerrors.ErrPeriodNotFound
		}
		return RunSummaryResponse{}, err
	}
	if p.IsClosed {
		return RunSummaryResponse{}, payrollrunerrors.ErrPeriodClosed
	}

	// NUMBERING: the DRAFT insert is the only serialization point between
	// concurrent calculation requests for the same period.
	run, err := s.reserveDraftRun(ctx, companyUUID, periodUUID, req)
	if err != nil {
		return RunSummaryResponse{}, err
	}

	log.Info("payroll run reserved",
		zap.String("run_id", run.ID.String()),
		zap.Int("run_number", run.RunNumber),
		zap.String("period_id", req.PeriodID),
	)

	// COMPUTING: read-only snapshots, then a bounded fan-out with a barrier.
	catalog, err := s.components.MapAllByCompany(ctx, companyID)
	if err != nil {
		return RunSummaryResponse{}, err
	}

	var unionFilter *string
	if p.UnionID != nil {
		v := p.UnionID.String()
		unionFilter = &v
	}

	emps, err := s.employees.ListActiveByCompany(ctx, companyID, unionFilter)
	if err != nil {
		return RunSummaryResponse{}, err
	}

	builder := NewItemBuilder(s.concepts, catalog, s.rates)

	results := make([]*BuiltItem, len(emps))
	var (
		warnMu   sync.Mutex
		warnings []RunWarning
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for i, emp := range emps {
		i, emp := i, emp
		g.Go(func() error {
			built, warn, err := builder.BuildItem(gctx, p, emp)
			if err != nil {
				return err
			}
			if warn != nil {
				warnMu.Lock()
				warnings = append(warnings, *warn)
				warnMu.Unlock()
				return nil
			}
			results[i] = built // nil when the employee is excluded
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Nothing was committed; the DRAFT row stays behind for retry or void.
		log.Warn("run computation aborted, run left in DRAFT",
			zap.String("run_id", run.ID.String()),
			zap.Error(err),
		)
		return RunSummaryResponse{}, err
	}

	// COMMITTING: items, lines, totals, audit and outbox in one transaction.
	var (
		items []PayrollRunItem
		lines []PayrollRunItemLine
	)
	for _, built := range results {
		if built == nil {
			continue
		}
		built.Item.RunID = run.ID
		items = append(items, built.Item)
		lines = append(lines, built.Lines...)
	}

	run.EmployeeCount = len(items)
	run.TotalGross, run.TotalDeductions, run.TotalNet, run.TotalEmployerCost = foldTotals(items)

	now := time.Now().UTC()
	run.CalculatedAt = &now
	run.CalculatedBy = &actorUUID

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunSummaryResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if err := qtx.InsertItems(ctx, items, lines); err != nil {
		return RunSummaryResponse{}, err
	}
	if err := qtx.MarkCalculated(ctx, run); err != nil {
		return RunSummaryResponse{}, err
	}

	if err := s.audit.WithTx(tx).Record(ctx, AuditRecord{
		RunID:   run.ID,
		Action:  AuditActionCalculated,
		ActorID: actorUUID,
		Details: map[string]any{
			"employee_count": run.EmployeeCount,
			"total_net":      run.TotalNet,
		},
	}); err != nil {
		return RunSummaryResponse{}, err
	}

	event, err := s.calculatedOutboxEvent(ctx, run)
	if err != nil {
		return RunSummaryResponse{}, err
	}
	if err := s.outbox.WithTx(tx).Create(ctx, event); err != nil {
		return RunSummaryResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return RunSummaryResponse{}, err
	}

	run.Status = StatusCalculated
	s.invalidateListCache(ctx, companyID)

	log.Info("payroll run calculated",
		zap.String("run_id", run.ID.String()),
		zap.Int("run_number", run.RunNumber),
		zap.Int("employee_count", run.EmployeeCount),
		zap.Int64("total_net", run.TotalNet),
		zap.Int("warnings", len(warnings)),
	)

	resp := mapToSummary(*run)
	resp.Warnings = warnings
	return resp, nil
}

// reserveDraftRun reserves the next run number and inserts the DRAFT row in a
// short transaction of its own. A unique violation on (period_id, run_number)
// means another request won the same number; the reservation is retried once.
func (s *service) reserveDraftRun(
	ctx context.Context,
	companyID, periodID uuid.UUID,
	req CalculateRunRequest,
) (*PayrollRun, error) {
	for attempt := 0; attempt < 2; attempt++ {
		run, err := s.insertDraftRun(ctx, companyID, periodID, req)
		if err == nil {
			return run, nil
		}
		if !IsUniqueViolation(err) {
			return nil, err
		}
	}
	return nil, payrollrunerrors.ErrRunNumberConflict
}

func (s *service) insertDraftRun(
	ctx context.Context,
	companyID, periodID uuid.UUID,
	req CalculateRunRequest,
) (*PayrollRun, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	runNumber, err := qtx.ReserveRunNumber(ctx, periodID.String())
	if err != nil {
		return nil, err
	}

	run := &PayrollRun{
		ID:        uuid.New(),
		CompanyID: companyID,
		PeriodID:  periodID,
		RunNumber: runNumber,
		RunType:   req.RunType,
		Status:    StatusDraft,
		Notes:     req.Notes,
	}

	if err := qtx.CreateRun(ctx, run); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return run, nil
}

func foldTotals(items []PayrollRunItem) (gross, deductions, net, employerCost int64) {
	for _, item := range items {
		gross += item.GrossTotal
		deductions += item.TotalDeductions
		net += item.NetSalary
		employerCost += item.EmployerCost
	}
	return gross, deductions, net, employerCost
}

func (s *service) calculatedOutboxEvent(ctx context.Context, run *PayrollRun) (kafka.OutboxEvent, error) {
	payload, err := json.Marshal(events.PayrollRunCalculatedEvent{
		EventType:     "payroll.run.calculated",
		RunID:         run.ID.String(),
		PeriodID:      run.PeriodID.String(),
		CompanyID:     run.CompanyID.String(),
		RunNumber:     run.RunNumber,
		EmployeeCount: run.EmployeeCount,
		TotalNet:      run.TotalNet,
		CalculatedBy:  run.CalculatedBy.String(),
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return kafka.OutboxEvent{}, err
	}

	return kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "payroll_run",
		AggregateID:   run.ID.String(),
		EventType:     "payroll.run.calculated",
		Topic:         events.PayrollRunCalculatedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}, nil
}

func (s *service) GetAll(
	ctx context.Context,
	companyID string,
	req GetRunsFilterRequest,
) ([]RunSummaryResponse, error) {
	filter := RunQueryFilter{
		PeriodID: req.PeriodID,
		Status:   req.Status,
		RunType:  req.RunType,
	}

	// Only the unfiltered list is cached; filtered reads go straight through.
	if s.rdb != nil && filter == (RunQueryFilter{}) {
		return s.getAllCached(ctx, companyID)
	}

	runs, err := s.repo.FindAllByCompany(ctx, companyID, filter)
	if err != nil {
		return nil, err
	}
	return mapToSummaryList(runs), nil
}

func (s *service) getAllCached(ctx context.Context, companyID string) ([]RunSummaryResponse, error) {
	key := runListKey(companyID)

	if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
		var resp []RunSummaryResponse
		if err := json.Unmarshal([]byte(cached), &resp); err == nil {
			return resp, nil
		}
	}

	// singleflight collapses concurrent cache fills for the same company.
	v, err, _ := s.sf.Do(key, func() (any, error) {
		runs, err := s.repo.FindAllByCompany(ctx, companyID, RunQueryFilter{})
		if err != nil {
			return nil, err
		}
		resp := mapToSummaryList(runs)

		if payload, err := json.Marshal(resp); err == nil {
			_ = s.rdb.Set(ctx, key, payload, runListCacheTTL).Err()
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]RunSummaryResponse), nil
}

func (s *service) invalidateListCache(ctx context.Context, companyID string) {
	if s.rdb == nil {
		return
	}
	_ = s.rdb.Del(ctx, runListKey(companyID)).Err()
}

func (s *service) GetByID(
	ctx context.Context,
	companyID, id string,
) (RunSummaryResponse, error) {
	run, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RunSummaryResponse{}, payrollrunerrors.ErrRunNotFound
		}
		return RunSummaryResponse{}, err
	}

	return mapToSummary(*run), nil
}

func (s *service) GetBreakdown(
	ctx context.Context,
	companyID, id string,
) (RunBreakdownResponse, error) {
	run, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RunBreakdownResponse{}, payrollrunerrors.ErrRunNotFound
		}
		return RunBreakdownResponse{}, err
	}

	items, err := s.repo.ListItemsWithLines(ctx, companyID, id)
	if err != nil {
		return RunBreakdownResponse{}, err
	}

	resp := RunBreakdownResponse{
		Run:   mapToSummary(*run),
		Items: make([]RunItemResponse, len(items)),
	}
	for i, item := range items {
		resp.Items[i] = mapToItemResponse(item)
	}
	return resp, nil
}

func (s *service) Void(
	ctx context.Context,
	companyID, actorID, id string,
	req VoidRunRequest,
) (RunSummaryResponse, error) {
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return RunSummaryResponse{}, payrollrunerrors.ErrInvalidActorID
	}
	if req.Reason == "" {
		return RunSummaryResponse{}, payrollrunerrors.ErrVoidReasonRequired
	}

	run, err := s.repo.FindByIDAndCompany(ctx, companyID, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RunSummaryResponse{}, payrollrunerrors.ErrRunNotFound
		}
		return RunSummaryResponse{}, err
	}

	if !CanTransition(run.Status, StatusVoided) {
		return RunSummaryResponse{}, payrollrunerrors.ErrInvalidStatusTransition
	}

	now := time.Now().UTC()
	run.Status = StatusVoided
	run.VoidedAt = &now
	run.VoidedBy = &actorUUID
	run.VoidReason = &req.Reason

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunSummaryResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if err := qtx.MarkVoided(ctx, run); err != nil {
		// Zero rows means the run left a voidable state between the read
		// above and this write.
		if errors.Is(err, sql.ErrNoRows) {
			return RunSummaryResponse{}, payrollrunerrors.ErrInvalidStatusTransition
		}
		return RunSummaryResponse{}, err
	}

	if err := s.audit.WithTx(tx).Record(ctx, AuditRecord{
		RunID:   run.ID,
		Action:  AuditActionVoided,
		ActorID: actorUUID,
		Details: map[string]any{"reason": req.Reason},
	}); err != nil {
		return RunSummaryResponse{}, err
	}

	payload, err := json.Marshal(events.PayrollRunVoidedEvent{
		EventType:  "payroll.run.voided",
		RunID:      run.ID.String(),
		PeriodID:   run.PeriodID.String(),
		CompanyID:  run.CompanyID.String(),
		Reason:     req.Reason,
		VoidedBy:   actorID,
		OccurredAt: now,
	})
	if err != nil {
		return RunSummaryResponse{}, err
	}
	if err := s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "payroll_run",
		AggregateID:   run.ID.String(),
		EventType:     "payroll.run.voided",
		Topic:         events.PayrollRunVoidedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		return RunSummaryResponse{}, err
	}

	if err := tx.Commit(); err != nil {
		return RunSummaryResponse{}, err
	}

	s.invalidateListCache(ctx, companyID)

	return mapToSummary(*run), nil
}
