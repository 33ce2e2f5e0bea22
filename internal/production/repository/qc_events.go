package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"mfg_portal_backend/internal/production/domain"
)

const qcEventColumns = `id, stage_id, job_order_id, semifinished_id, product_code,
		rejected_quantity, recycled_quantity, remarks, checked_by, created_at`

// InsertStageEvent appends a QC event to a stage and folds the recomputed
// aggregates back into the stage row. The whole operation runs inside one
// transaction with the stage row locked, so concurrent inserts for the same
// stage serialize and the cached aggregates always equal the event sums.
//
// The point-in-time preconditions (stage accepts QC, rejected does not
// exceed achieved) are re-checked under the lock; this is the enforcement
// point, not a courtesy check.
func (r *Repo) InsertStageEvent(ctx context.Context, insert StageQCInsert) (domain.QCEvent, domain.Stage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.QCEvent{}, domain.Stage{}, fmt.Errorf("begin qc insert: %w", err)
	}
	defer tx.Rollback(ctx)

	lockQuery := `
		SELECT ` + stageColumns + `
		FROM production_stages
		WHERE id = $1
		FOR UPDATE`

	stage, err := scanStage(tx.QueryRow(ctx, lockQuery, insert.StageID))
	if err != nil {
		return domain.QCEvent{}, domain.Stage{}, err
	}

	if !stage.Status.AcceptsQC() {
		return domain.QCEvent{}, domain.Stage{}, domain.ErrInvalidState(stage.ProcessName, stage.Status)
	}
	if insert.Rejected > stage.AchievedQuantity {
		return domain.QCEvent{}, domain.Stage{}, domain.ErrExceedsAchieved(stage.ProcessName, insert.Rejected, stage.AchievedQuantity)
	}

	eventQuery := `
		INSERT INTO qc_events (stage_id, rejected_quantity, recycled_quantity, remarks, checked_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + qcEventColumns

	event, err := scanQCEvent(tx.QueryRow(ctx, eventQuery,
		insert.StageID, insert.Rejected, insert.Recycled, insert.Remarks, insert.CheckedBy,
	))
	if err != nil {
		return domain.QCEvent{}, domain.Stage{}, fmt.Errorf("insert qc event: %w", err)
	}

	agg, err := sumStageEvents(ctx, tx, insert.StageID)
	if err != nil {
		return domain.QCEvent{}, domain.Stage{}, err
	}

	foldQuery := `
		UPDATE production_stages SET
			rejected_quantity = $2,
			recycled_quantity = $3,
			qc_checked_by = $4,
			status = $5,
			version = version + 1,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + stageColumns

	updated, err := scanStage(tx.QueryRow(ctx, foldQuery,
		insert.StageID, agg.Rejected, agg.Recycled, insert.CheckedBy,
		domain.StatusAfterQC(stage.Status, insert.Rejected),
	))
	if err != nil {
		return domain.QCEvent{}, domain.Stage{}, fmt.Errorf("fold qc aggregates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.QCEvent{}, domain.Stage{}, fmt.Errorf("commit qc insert: %w", err)
	}

	return event, updated, nil
}

// InsertStandaloneEvent persists an observational QC record with no stage
// linkage and therefore no stage mutation.
func (r *Repo) InsertStandaloneEvent(ctx context.Context, insert StandaloneQCInsert) (domain.QCEvent, error) {
	query := `
		INSERT INTO qc_events (job_order_id, semifinished_id, product_code, rejected_quantity, recycled_quantity, remarks, checked_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + qcEventColumns

	event, err := scanQCEvent(r.pool.QueryRow(ctx, query,
		insert.JobOrderID, insert.SemifinishedID, insert.ProductCode,
		insert.Rejected, insert.Recycled, insert.Remarks, insert.CheckedBy,
	))
	if err != nil {
		return domain.QCEvent{}, fmt.Errorf("insert standalone qc event: %w", err)
	}

	return event, nil
}

// ListStageEvents retrieves all QC events for a stage, oldest first.
func (r *Repo) ListStageEvents(ctx context.Context, stageID uuid.UUID) ([]domain.QCEvent, error) {
	query := `
		SELECT ` + qcEventColumns + `
		FROM qc_events
		WHERE stage_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, stageID)
	if err != nil {
		return nil, fmt.Errorf("list qc events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.QCEvent, 0)
	for rows.Next() {
		var e domain.QCEvent
		if err := rows.Scan(
			&e.ID, &e.StageID, &e.JobOrderID, &e.SemifinishedID, &e.ProductCode,
			&e.RejectedQuantity, &e.RecycledQuantity, &e.Remarks, &e.CheckedBy, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan qc event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate qc event rows: %w", err)
	}

	return events, nil
}

// RefreshAggregates recomputes the event sums for a stage and rewrites the
// cached columns under the same row lock used by InsertStageEvent. Running
// it against an already-consistent stage is a no-op, which is what makes
// the background verification sweep safe to repeat.
func (r *Repo) RefreshAggregates(ctx context.Context, stageID uuid.UUID) (QCAggregate, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return QCAggregate{}, fmt.Errorf("begin aggregate refresh: %w", err)
	}
	defer tx.Rollback(ctx)

	lockQuery := `
		SELECT ` + stageColumns + `
		FROM production_stages
		WHERE id = $1
		FOR UPDATE`

	stage, err := scanStage(tx.QueryRow(ctx, lockQuery, stageID))
	if err != nil {
		return QCAggregate{}, err
	}

	agg, err := sumStageEvents(ctx, tx, stageID)
	if err != nil {
		return QCAggregate{}, err
	}

	if agg.Rejected == stage.RejectedQuantity && agg.Recycled == stage.RecycledQuantity {
		return agg, tx.Commit(ctx)
	}

	updateQuery := `
		UPDATE production_stages SET
			rejected_quantity = $2,
			recycled_quantity = $3,
			version = version + 1,
			updated_at = now()
		WHERE id = $1`

	if _, err := tx.Exec(ctx, updateQuery, stageID, agg.Rejected, agg.Recycled); err != nil {
		return QCAggregate{}, fmt.Errorf("rewrite qc aggregates: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return QCAggregate{}, fmt.Errorf("commit aggregate refresh: %w", err)
	}

	return agg, nil
}

// ListStageIDsWithEvents returns the distinct stages that have QC events,
// used as the work list for the verification sweep.
func (r *Repo) ListStageIDsWithEvents(ctx context.Context) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT stage_id FROM qc_events WHERE stage_id IS NOT NULL`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list stages with qc events: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stage id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage ids: %w", err)
	}

	return ids, nil
}

func sumStageEvents(ctx context.Context, tx pgx.Tx, stageID uuid.UUID) (QCAggregate, error) {
	query := `
		SELECT COALESCE(SUM(rejected_quantity), 0), COALESCE(SUM(recycled_quantity), 0)
		FROM qc_events
		WHERE stage_id = $1`

	var agg QCAggregate
	if err := tx.QueryRow(ctx, query, stageID).Scan(&agg.Rejected, &agg.Recycled); err != nil {
		return QCAggregate{}, fmt.Errorf("sum qc events: %w", err)
	}
	return agg, nil
}

func scanQCEvent(row pgx.Row) (domain.QCEvent, error) {
	var e domain.QCEvent
	err := row.Scan(
		&e.ID, &e.StageID, &e.JobOrderID, &e.SemifinishedID, &e.ProductCode,
		&e.RejectedQuantity, &e.RecycledQuantity, &e.Remarks, &e.CheckedBy, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.QCEvent{}, domain.ErrStageNotFound()
		}
		return domain.QCEvent{}, err
	}
	return e, nil
}
