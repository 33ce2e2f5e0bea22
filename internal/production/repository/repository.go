package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mfg_portal_backend/internal/production/domain"
)

const stageColumns = `id, job_order_id, semifinished_id, process_name, position,
		po_quantity, achieved_quantity, rejected_quantity, recycled_quantity,
		status, started_at, updated_by, qc_checked_by, version, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new production repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Get retrieves a stage by its composite identity.
func (r *Repo) Get(ctx context.Context, key StageKey) (domain.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM production_stages
		WHERE job_order_id = $1 AND semifinished_id = $2 AND process_name = $3`

	row := r.pool.QueryRow(ctx, query, key.JobOrderID, key.SemifinishedID, key.ProcessName)
	return scanStage(row)
}

// GetByID retrieves a stage by its opaque ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (domain.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM production_stages
		WHERE id = $1`

	return scanStage(r.pool.QueryRow(ctx, query, id))
}

// GetAt retrieves the stage at a given pipeline position for a unit.
func (r *Repo) GetAt(ctx context.Context, jobOrderID uuid.UUID, semifinishedID string, position int) (domain.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM production_stages
		WHERE job_order_id = $1 AND semifinished_id = $2 AND position = $3`

	return scanStage(r.pool.QueryRow(ctx, query, jobOrderID, semifinishedID, position))
}

// ListForUnit retrieves all stages of a unit ordered by pipeline position.
func (r *Repo) ListForUnit(ctx context.Context, jobOrderID uuid.UUID, semifinishedID string) ([]domain.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM production_stages
		WHERE job_order_id = $1 AND semifinished_id = $2
		ORDER BY position ASC`

	rows, err := r.pool.Query(ctx, query, jobOrderID, semifinishedID)
	if err != nil {
		return nil, fmt.Errorf("list stages for unit: %w", err)
	}
	defer rows.Close()

	return scanStages(rows)
}

// ListByProcess retrieves all stages sharing a process name, newest first.
func (r *Repo) ListByProcess(ctx context.Context, processName string) ([]domain.Stage, error) {
	query := `
		SELECT ` + stageColumns + `
		FROM production_stages
		WHERE process_name = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, processName)
	if err != nil {
		return nil, fmt.Errorf("list stages by process: %w", err)
	}
	defer rows.Close()

	return scanStages(rows)
}

// CreateStages inserts all stage rows for a pipeline in a single transaction.
func (r *Repo) CreateStages(ctx context.Context, stages []NewStage) ([]domain.Stage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create stages: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO production_stages (job_order_id, semifinished_id, process_name, position, po_quantity, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + stageColumns

	created := make([]domain.Stage, 0, len(stages))
	for _, s := range stages {
		stage, err := scanStage(tx.QueryRow(ctx, query,
			s.JobOrderID, s.SemifinishedID, s.ProcessName, s.Position, s.POQuantity, domain.StatusPending,
		))
		if err != nil {
			return nil, fmt.Errorf("insert stage %q: %w", s.ProcessName, err)
		}
		created = append(created, stage)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create stages: %w", err)
	}

	return created, nil
}

// UpdateProgress applies a conditional write keyed on the row version.
// A version mismatch means a concurrent writer got there first; the caller
// retries with a fresh read or surfaces the conflict.
func (r *Repo) UpdateProgress(ctx context.Context, update ProgressUpdate) (domain.Stage, error) {
	query := `
		UPDATE production_stages SET
			achieved_quantity = $3,
			status = $4,
			started_at = COALESCE($5, started_at),
			updated_by = $6,
			version = version + 1,
			updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING ` + stageColumns

	stage, err := scanStage(r.pool.QueryRow(ctx, query,
		update.StageID, update.ExpectedVersion,
		update.AchievedQuantity, update.Status, update.StartedAt, update.UpdatedBy,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// The read that produced ExpectedVersion proved the row exists,
			// so zero rows here is a lost version race, not a missing stage.
			return domain.Stage{}, domain.ErrConflict(update.StageID.String())
		}
		return domain.Stage{}, fmt.Errorf("update stage progress: %w", err)
	}

	return stage, nil
}

func scanStage(row pgx.Row) (domain.Stage, error) {
	var s domain.Stage
	err := row.Scan(
		&s.ID, &s.JobOrderID, &s.SemifinishedID, &s.ProcessName, &s.Position,
		&s.POQuantity, &s.AchievedQuantity, &s.RejectedQuantity, &s.RecycledQuantity,
		&s.Status, &s.StartedAt, &s.UpdatedBy, &s.QCCheckedBy, &s.Version,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Stage{}, domain.ErrStageNotFound()
		}
		return domain.Stage{}, fmt.Errorf("scan stage: %w", err)
	}
	return s, nil
}

func scanStages(rows pgx.Rows) ([]domain.Stage, error) {
	stages := make([]domain.Stage, 0)
	for rows.Next() {
		var s domain.Stage
		if err := rows.Scan(
			&s.ID, &s.JobOrderID, &s.SemifinishedID, &s.ProcessName, &s.Position,
			&s.POQuantity, &s.AchievedQuantity, &s.RejectedQuantity, &s.RecycledQuantity,
			&s.Status, &s.StartedAt, &s.UpdatedBy, &s.QCCheckedBy, &s.Version,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stage row: %w", err)
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage rows: %w", err)
	}
	return stages, nil
}
