package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mfg_portal_backend/platform/apperr"
)

const (
	jobOrderNotFoundMessage = "job order not found"
	pipelineNotFoundMessage = "pipeline not found"
)

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new job orders repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Create inserts a job order with its units and pipeline steps in a single
// transaction.
func (r *Repo) Create(ctx context.Context, order NewJobOrder) (JobOrder, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return JobOrder{}, fmt.Errorf("begin create job order: %w", err)
	}
	defer tx.Rollback(ctx)

	var jo JobOrder
	var createdAt, updatedAt time.Time

	err = tx.QueryRow(ctx, `
		INSERT INTO job_orders (order_number, product_code, customer, status, created_by)
		VALUES ($1, $2, $3, 'open', $4)
		RETURNING id, order_number, product_code, customer, status, created_by, created_at, updated_at`,
		order.OrderNumber, order.ProductCode, order.Customer, order.CreatedBy,
	).Scan(&jo.ID, &jo.OrderNumber, &jo.ProductCode, &jo.Customer, &jo.Status, &jo.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return JobOrder{}, fmt.Errorf("insert job order: %w", err)
	}
	jo.CreatedAt = createdAt.Format(time.RFC3339)
	jo.UpdatedAt = updatedAt.Format(time.RFC3339)

	for _, unit := range order.Units {
		_, err = tx.Exec(ctx, `
			INSERT INTO job_order_units (job_order_id, semifinished_id, product_code, po_quantity)
			VALUES ($1, $2, $3, $4)`,
			jo.ID, unit.SemifinishedID, unit.ProductCode, unit.POQuantity,
		)
		if err != nil {
			return JobOrder{}, fmt.Errorf("insert job order unit %s: %w", unit.SemifinishedID, err)
		}

		for position, step := range unit.Steps {
			_, err = tx.Exec(ctx, `
				INSERT INTO pipeline_steps (job_order_id, semifinished_id, position, process_name)
				VALUES ($1, $2, $3, $4)`,
				jo.ID, unit.SemifinishedID, position, step,
			)
			if err != nil {
				return JobOrder{}, fmt.Errorf("insert pipeline step %s/%s: %w", unit.SemifinishedID, step, err)
			}
		}

		jo.Units = append(jo.Units, Unit{
			SemifinishedID: unit.SemifinishedID,
			ProductCode:    unit.ProductCode,
			POQuantity:     unit.POQuantity,
			Steps:          unit.Steps,
		})
	}

	if err := tx.Commit(ctx); err != nil {
		return JobOrder{}, fmt.Errorf("commit create job order: %w", err)
	}

	return jo, nil
}

// Delete removes a job order. Units, pipeline steps and any materialized
// production stages go with it through the cascading foreign keys.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM job_orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete job order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(jobOrderNotFoundMessage)
	}
	return nil
}

// GetByID retrieves a job order with its units and pipelines.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (JobOrder, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByOrderNumber retrieves a job order by its business order number.
func (r *Repo) GetByOrderNumber(ctx context.Context, orderNumber string) (JobOrder, error) {
	return r.get(ctx, `WHERE order_number = $1`, orderNumber)
}

func (r *Repo) get(ctx context.Context, where string, arg interface{}) (JobOrder, error) {
	query := `
		SELECT id, order_number, product_code, customer, status, created_by, created_at, updated_at
		FROM job_orders ` + where

	var jo JobOrder
	var createdAt, updatedAt time.Time

	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&jo.ID, &jo.OrderNumber, &jo.ProductCode, &jo.Customer, &jo.Status, &jo.CreatedBy, &createdAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobOrder{}, apperr.NotFound(jobOrderNotFoundMessage)
		}
		return JobOrder{}, fmt.Errorf("get job order: %w", err)
	}
	jo.CreatedAt = createdAt.Format(time.RFC3339)
	jo.UpdatedAt = updatedAt.Format(time.RFC3339)

	units, err := r.loadUnits(ctx, jo.ID)
	if err != nil {
		return JobOrder{}, err
	}
	jo.Units = units

	return jo, nil
}

func (r *Repo) loadUnits(ctx context.Context, jobOrderID uuid.UUID) ([]Unit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.semifinished_id, u.product_code, u.po_quantity, s.process_name
		FROM job_order_units u
		JOIN pipeline_steps s
		  ON s.job_order_id = u.job_order_id AND s.semifinished_id = u.semifinished_id
		WHERE u.job_order_id = $1
		ORDER BY u.semifinished_id, s.position`,
		jobOrderID,
	)
	if err != nil {
		return nil, fmt.Errorf("load job order units: %w", err)
	}
	defer rows.Close()

	var units []Unit
	for rows.Next() {
		var semifinishedID, productCode, processName string
		var poQuantity int64
		if err := rows.Scan(&semifinishedID, &productCode, &poQuantity, &processName); err != nil {
			return nil, fmt.Errorf("scan job order unit: %w", err)
		}
		if len(units) == 0 || units[len(units)-1].SemifinishedID != semifinishedID {
			units = append(units, Unit{
				SemifinishedID: semifinishedID,
				ProductCode:    productCode,
				POQuantity:     poQuantity,
			})
		}
		last := &units[len(units)-1]
		last.Steps = append(last.Steps, processName)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job order units: %w", err)
	}

	return units, nil
}

// List retrieves job orders with optional search and pagination. Units are
// not loaded for listings.
func (r *Repo) List(ctx context.Context, params ListParams) ([]JobOrder, int, error) {
	var searchParam interface{}
	if params.Search != "" {
		searchParam = "%" + params.Search + "%"
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	var total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM job_orders
		WHERE ($1::text IS NULL OR order_number ILIKE $1 OR customer ILIKE $1 OR product_code ILIKE $1)`,
		searchParam,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count job orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_number, product_code, customer, status, created_by, created_at, updated_at
		FROM job_orders
		WHERE ($1::text IS NULL OR order_number ILIKE $1 OR customer ILIKE $1 OR product_code ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		searchParam, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list job orders: %w", err)
	}
	defer rows.Close()

	var orders []JobOrder
	for rows.Next() {
		var jo JobOrder
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&jo.ID, &jo.OrderNumber, &jo.ProductCode, &jo.Customer, &jo.Status, &jo.CreatedBy, &createdAt, &updatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan job order: %w", err)
		}
		jo.CreatedAt = createdAt.Format(time.RFC3339)
		jo.UpdatedAt = updatedAt.Format(time.RFC3339)
		orders = append(orders, jo)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate job orders: %w", err)
	}

	return orders, total, nil
}

// GetPipeline returns the ordered process names for one unit of a job order.
func (r *Repo) GetPipeline(ctx context.Context, jobOrderID uuid.UUID, semifinishedID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT process_name
		FROM pipeline_steps
		WHERE job_order_id = $1 AND semifinished_id = $2
		ORDER BY position`,
		jobOrderID, semifinishedID,
	)
	if err != nil {
		return nil, fmt.Errorf("get pipeline: %w", err)
	}
	defer rows.Close()

	var steps []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan pipeline step: %w", err)
		}
		steps = append(steps, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pipeline steps: %w", err)
	}
	if len(steps) == 0 {
		return nil, apperr.NotFound(pipelineNotFoundMessage)
	}

	return steps, nil
}
