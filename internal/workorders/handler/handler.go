package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mfg_portal_backend/internal/workorders/repository"
	"mfg_portal_backend/internal/workorders/service"
	"mfg_portal_backend/internal/workorders/transport"
	"mfg_portal_backend/platform/httpkit"
	"mfg_portal_backend/platform/validator"
)

// Handler handles HTTP requests for job orders.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid job order ID"
)

// New creates a new work orders handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// CreateJobOrder creates a job order with its per-unit pipelines and
// materializes the production stages.
// POST /api/v1/work-orders
func (h *Handler) CreateJobOrder(c *gin.Context) {
	var req transport.CreateJobOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	params := service.CreateJobOrderParams{
		OrderNumber: req.OrderNumber,
		ProductCode: req.ProductCode,
		Customer:    req.Customer,
		CreatedBy:   identity.UserID(),
	}
	for _, u := range req.Units {
		params.Units = append(params.Units, service.UnitParams{
			SemifinishedID: u.SemifinishedID,
			ProductCode:    u.ProductCode,
			POQuantity:     u.POQuantity,
			Steps:          u.Steps,
		})
	}

	order, err := h.svc.CreateJobOrder(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewJobOrderResponse(order))
}

// GetJobOrder retrieves a job order with its units and pipelines.
// GET /api/v1/work-orders/:id
func (h *Handler) GetJobOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	order, err := h.svc.GetJobOrder(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewJobOrderResponse(order))
}

// ListJobOrders lists job orders with optional search and pagination.
// GET /api/v1/work-orders
func (h *Handler) ListJobOrders(c *gin.Context) {
	var query transport.ListJobOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	orders, total, err := h.svc.ListJobOrders(c.Request.Context(), repository.ListParams{
		Search: query.Search,
		Limit:  query.Limit,
		Offset: query.Offset,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewJobOrderListResponse(orders, total))
}

// GetPipeline returns the ordered process names for one unit.
// GET /api/v1/work-orders/:id/units/:unit/pipeline
func (h *Handler) GetPipeline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	semifinishedID := c.Param("unit")

	steps, err := h.svc.GetPipeline(c.Request.Context(), id, semifinishedID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.PipelineResponse{
		JobOrderID:     id.String(),
		SemifinishedID: semifinishedID,
		Steps:          steps,
	})
}
