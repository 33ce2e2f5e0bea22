package repository

import (
	"context"

	"github.com/google/uuid"
)

// JobOrder is a customer production order. Each order carries one or more
// semi-finished units, and every unit owns its own ordered pipeline of
// process steps.
type JobOrder struct {
	ID          uuid.UUID `json:"id"`
	OrderNumber string    `json:"orderNumber"`
	ProductCode string    `json:"productCode"`
	Customer    string    `json:"customer"`
	Status      string    `json:"status"`
	CreatedBy   uuid.UUID `json:"createdBy"`
	CreatedAt   string    `json:"createdAt"`
	UpdatedAt   string    `json:"updatedAt"`
	Units       []Unit    `json:"units,omitempty"`
}

// Unit is one semi-finished product within a job order, together with its
// ordered pipeline definition.
type Unit struct {
	SemifinishedID string   `json:"semifinishedId"`
	ProductCode    string   `json:"productCode"`
	POQuantity     int64    `json:"poQuantity"`
	Steps          []string `json:"steps"`
}

// NewJobOrder is the input for creating a job order with its units and
// pipeline definitions in a single transaction.
type NewJobOrder struct {
	OrderNumber string
	ProductCode string
	Customer    string
	CreatedBy   uuid.UUID
	Units       []NewUnit
}

// NewUnit is the input for one semi-finished unit of a new job order.
type NewUnit struct {
	SemifinishedID string
	ProductCode    string
	POQuantity     int64
	Steps          []string
}

// ListParams controls job order listing.
type ListParams struct {
	Search string
	Limit  int
	Offset int
}

// Repository defines job order persistence operations.
type Repository interface {
	Create(ctx context.Context, order NewJobOrder) (JobOrder, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (JobOrder, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (JobOrder, error)
	List(ctx context.Context, params ListParams) ([]JobOrder, int, error)
	GetPipeline(ctx context.Context, jobOrderID uuid.UUID, semifinishedID string) ([]string, error)
}
