// Package transport defines request and response DTOs for the work
// orders HTTP endpoints.
package transport

import (
	"mfg_portal_backend/internal/workorders/repository"
)

// UnitRequest describes one semi-finished unit with its ordered pipeline.
type UnitRequest struct {
	SemifinishedID string   `json:"semifinishedId" validate:"required,max=100"`
	ProductCode    string   `json:"productCode" validate:"max=100"`
	POQuantity     int64    `json:"poQuantity" validate:"required,gt=0"`
	Steps          []string `json:"steps" validate:"required,min=1,dive,required,max=100"`
}

// CreateJobOrderRequest is the payload for creating a job order.
type CreateJobOrderRequest struct {
	OrderNumber string        `json:"orderNumber" validate:"required,max=100"`
	ProductCode string        `json:"productCode" validate:"max=100"`
	Customer    string        `json:"customer" validate:"max=200"`
	Units       []UnitRequest `json:"units" validate:"required,min=1,dive"`
}

// ListJobOrdersQuery holds query parameters for listing job orders.
type ListJobOrdersQuery struct {
	Search string `form:"search"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// JobOrderResponse is the API representation of a job order.
type JobOrderResponse struct {
	ID          string         `json:"id"`
	OrderNumber string         `json:"orderNumber"`
	ProductCode string         `json:"productCode"`
	Customer    string         `json:"customer"`
	Status      string         `json:"status"`
	CreatedBy   string         `json:"createdBy"`
	CreatedAt   string         `json:"createdAt"`
	UpdatedAt   string         `json:"updatedAt"`
	Units       []UnitResponse `json:"units,omitempty"`
}

// UnitResponse is the API representation of one semi-finished unit.
type UnitResponse struct {
	SemifinishedID string   `json:"semifinishedId"`
	ProductCode    string   `json:"productCode"`
	POQuantity     int64    `json:"poQuantity"`
	Steps          []string `json:"steps"`
}

// JobOrderListResponse is a paginated collection of job orders.
type JobOrderListResponse struct {
	Items []JobOrderResponse `json:"items"`
	Total int                `json:"total"`
}

// PipelineResponse is the ordered process list for one unit.
type PipelineResponse struct {
	JobOrderID     string   `json:"jobOrderId"`
	SemifinishedID string   `json:"semifinishedId"`
	Steps          []string `json:"steps"`
}

// NewJobOrderResponse maps a repository job order to its API shape.
func NewJobOrderResponse(jo repository.JobOrder) JobOrderResponse {
	resp := JobOrderResponse{
		ID:          jo.ID.String(),
		OrderNumber: jo.OrderNumber,
		ProductCode: jo.ProductCode,
		Customer:    jo.Customer,
		Status:      jo.Status,
		CreatedBy:   jo.CreatedBy.String(),
		CreatedAt:   jo.CreatedAt,
		UpdatedAt:   jo.UpdatedAt,
	}
	for _, u := range jo.Units {
		resp.Units = append(resp.Units, UnitResponse{
			SemifinishedID: u.SemifinishedID,
			ProductCode:    u.ProductCode,
			POQuantity:     u.POQuantity,
			Steps:          u.Steps,
		})
	}
	return resp
}

// NewJobOrderListResponse maps a page of job orders to its API shape.
func NewJobOrderListResponse(orders []repository.JobOrder, total int) JobOrderListResponse {
	items := make([]JobOrderResponse, 0, len(orders))
	for _, jo := range orders {
		items = append(items, NewJobOrderResponse(jo))
	}
	return JobOrderListResponse{Items: items, Total: total}
}
