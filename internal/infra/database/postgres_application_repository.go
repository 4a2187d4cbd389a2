package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ats_workflow/internal/domain/application"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Custom errors specific to application repository
var ErrApplicationNotFound = fmt.Errorf("application not found")
var ErrStageConflict = fmt.Errorf("application stage changed by a concurrent writer")
var ErrUnknownJobOrCandidate = fmt.Errorf("application references an unknown job or candidate")
var ErrDuplicateApplication = fmt.Errorf("application already exists")

const (
	insertApplicationQuery = `INSERT INTO applications (application_id, job_id, candidate_id, current_stage)
               VALUES ($1, $2, $3, $4)
               RETURNING created_at, updated_at`

	selectApplicationQuery = `SELECT a.application_id, a.job_id, a.candidate_id, COALESCE(u.email, ''), a.current_stage, a.created_at, a.updated_at
               FROM applications a
               LEFT JOIN users u ON u.user_id = a.candidate_id
               WHERE a.application_id = $1`

	// The current_stage predicate is the compare-and-swap guard.
	advanceStageQuery = `UPDATE applications
               SET current_stage = $1, updated_at = NOW()
               WHERE application_id = $2 AND current_stage = $3`

	insertHistoryQuery = `INSERT INTO application_history (application_id, old_stage, new_stage, changed_at)
               VALUES ($1, $2, $3, NOW())
               RETURNING history_id, changed_at`

	listHistoryQuery = `SELECT history_id, application_id, old_stage, new_stage, changed_at
               FROM application_history
               WHERE application_id = $1
               ORDER BY changed_at, history_id`
)

// pq error codes
const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

type PostgresApplicationRepository struct {
	db *sql.DB
}

func NewPostgresApplicationRepository(db *sql.DB) *PostgresApplicationRepository {
	return &PostgresApplicationRepository{db: db}
}

func (r *PostgresApplicationRepository) Create(ctx context.Context, a *application.Application) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	err := r.db.QueryRowContext(ctx, insertApplicationQuery, a.ID, a.JobID, a.CandidateID, string(a.CurrentStage)).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pqForeignKeyViolation:
				return fmt.Errorf("%w: %s", ErrUnknownJobOrCandidate, pqErr.Constraint)
			case pqUniqueViolation:
				return ErrDuplicateApplication
			}
		}
		return fmt.Errorf("error creating application: %w", err)
	}
	return nil
}

func (r *PostgresApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*application.Application, error) {
	a := &application.Application{}
	var stage string
	err := r.db.QueryRowContext(ctx, selectApplicationQuery, id).Scan(
		&a.ID, &a.JobID, &a.CandidateID, &a.CandidateEmail, &stage, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("error getting application by ID: %w", err)
	}
	// Stored values outside the enumeration are kept as-is; the transition
	// policy rejects every move out of them.
	a.CurrentStage = application.Stage(stage)
	return a, nil
}

func (r *PostgresApplicationRepository) AdvanceStage(ctx context.Context, rec *application.TransitionRecord) error {
	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for stage change: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	res, err := txn.ExecContext(ctx, advanceStageQuery, string(rec.ToStage), rec.ApplicationID, string(rec.FromStage))
	if err != nil {
		return fmt.Errorf("error updating application stage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows for stage change: %w", err)
	}
	if affected == 0 {
		return ErrStageConflict
	}

	err = txn.QueryRowContext(ctx, insertHistoryQuery, rec.ApplicationID, string(rec.FromStage), string(rec.ToStage)).Scan(&rec.ID, &rec.ChangedAt)
	if err != nil {
		return fmt.Errorf("error inserting application history: %w", err)
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit stage change: %w", err)
	}
	return nil
}

func (r *PostgresApplicationRepository) ListHistory(ctx context.Context, id uuid.UUID) ([]*application.TransitionRecord, error) {
	rows, err := r.db.QueryContext(ctx, listHistoryQuery, id)
	if err != nil {
		return nil, fmt.Errorf("error querying application history: %w", err)
	}
	defer rows.Close()

	records := make([]*application.TransitionRecord, 0)
	for rows.Next() {
		rec := &application.TransitionRecord{}
		var from, to string
		if err := rows.Scan(&rec.ID, &rec.ApplicationID, &from, &to, &rec.ChangedAt); err != nil {
			return nil, fmt.Errorf("error scanning application history row: %w", err)
		}
		rec.FromStage = application.Stage(from)
		rec.ToStage = application.Stage(to)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating application history rows: %w", err)
	}
	return records, nil
}
