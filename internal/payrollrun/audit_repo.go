package payrollrun

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
)

const (
	AuditActionCalculated = "CALCULATED"
	AuditActionVoided     = "VOIDED"
)

type AuditRecord struct {
	RunID   uuid.UUID
	Action  string
	ActorID uuid.UUID
	Details map[string]any
}

// AuditRepository persists the single audit row the engine emits per run
// mutation. Record must run inside the same transaction as the mutation it
// describes.
//
//go:generate mockgen -source=audit_repo.go -destination=mock/audit_repo_mock.go -package=mock
type AuditRepository interface {
	WithTx(tx *sql.Tx) AuditRepository
	Record(ctx context.Context, rec AuditRecord) error
}

type auditRepository struct {
	db *sql.DB
	tx *sql.Tx
}

func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) WithTx(tx *sql.Tx) AuditRepository {
	return &auditRepository{db: r.db, tx: tx}
}

func (r *auditRepository) Record(ctx context.Context, rec AuditRecord) error {
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO payroll_audit_logs (id, run_id, action, actor_id, details, created_at)
        VALUES ($1, $2, $3, $4, $5, now())
    `

	exec := r.execer()
	_, err = exec.ExecContext(ctx, query, uuid.New(), rec.RunID, rec.Action, rec.ActorID, details)
	return err
}

func (r *auditRepository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}
