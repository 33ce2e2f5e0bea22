package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"mfg_portal_backend/internal/production/service"
	"mfg_portal_backend/internal/production/transport"
	"mfg_portal_backend/platform/httpkit"
	"mfg_portal_backend/platform/validator"
)

// Handler handles HTTP requests for the production engine.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid stage ID"
)

// New creates a new production handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// StartStage starts a Pending pipeline stage.
// POST /api/v1/production/stages/start
func (h *Handler) StartStage(c *gin.Context) {
	var req transport.StartStageRequest
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

	stage, err := h.svc.StartStage(c.Request.Context(), req.JobOrderID, req.SemifinishedID, req.ProcessName, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewStageResponse(stage))
}

// RecordProgress adds an achieved quantity to a stage.
// POST /api/v1/production/stages/progress
func (h *Handler) RecordProgress(c *gin.Context) {
	var req transport.RecordProgressRequest
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

	stage, err := h.svc.RecordAchieved(c.Request.Context(), req.JobOrderID, req.SemifinishedID, req.ProcessName, req.Delta, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewStageResponse(stage))
}

// RecordQCEvent records a QC inspection against a stage.
// POST /api/v1/production/qc-events
func (h *Handler) RecordQCEvent(c *gin.Context) {
	var req transport.StageQCEventRequest
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

	event, _, err := h.svc.RecordQCEvent(c.Request.Context(), service.StageQCParams{
		JobOrderID:     req.JobOrderID,
		SemifinishedID: req.SemifinishedID,
		ProcessName:    req.ProcessName,
		Rejected:       req.Rejected,
		Recycled:       req.Recycled,
		Remarks:        req.Remarks,
		CheckedBy:      identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewQCEventResponse(event))
}

// RecordStandaloneQCEvent records an observational QC inspection.
// POST /api/v1/production/qc-events/standalone
func (h *Handler) RecordStandaloneQCEvent(c *gin.Context) {
	var req transport.StandaloneQCEventRequest
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

	event, err := h.svc.RecordStandaloneQCEvent(c.Request.Context(), service.StandaloneQCParams{
		JobOrderID:     req.JobOrderID,
		SemifinishedID: req.SemifinishedID,
		ProductCode:    req.ProductCode,
		Rejected:       req.Rejected,
		Recycled:       req.Recycled,
		Remarks:        req.Remarks,
		CheckedBy:      identity.UserID(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, transport.NewQCEventResponse(event))
}

// GetStage retrieves a stage by composite key, or all stages of a unit when
// processName is omitted.
// GET /api/v1/production/stages?jobOrderId=&semifinishedId=&processName=
func (h *Handler) GetStage(c *gin.Context) {
	var q transport.StageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if q.ProcessName == "" {
		stages, err := h.svc.ListStagesForUnit(c.Request.Context(), q.JobOrderID, q.SemifinishedID)
		if httpkit.HandleError(c, err) {
			return
		}
		httpkit.OK(c, transport.NewStageListResponse(stages))
		return
	}

	stage, err := h.svc.GetStage(c.Request.Context(), q.JobOrderID, q.SemifinishedID, q.ProcessName)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewStageResponse(stage))
}

// GetStageByID retrieves a stage by its opaque ID.
// GET /api/v1/production/stages/:id
func (h *Handler) GetStageByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	stage, err := h.svc.GetStageByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewStageResponse(stage))
}

// GetPreviousStage resolves a stage's predecessor for client display.
// GET /api/v1/production/stages/previous?jobOrderId=&semifinishedId=&processName=
func (h *Handler) GetPreviousStage(c *gin.Context) {
	var q transport.StageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if q.ProcessName == "" {
		httpkit.Error(c, http.StatusBadRequest, "processName is required", nil)
		return
	}

	prev, err := h.svc.GetPreviousStage(c.Request.Context(), q.JobOrderID, q.SemifinishedID, q.ProcessName)
	if httpkit.HandleError(c, err) {
		return
	}

	resp := transport.PreviousStageResponse{}
	if prev != nil {
		snapshot := transport.NewStageResponse(*prev)
		resp.Stage = &snapshot
	}
	httpkit.OK(c, resp)
}

// ListStagesByProcess retrieves all stages sharing a process name.
// GET /api/v1/production/processes/:process/stages
func (h *Handler) ListStagesByProcess(c *gin.Context) {
	process := c.Param("process")
	if process == "" {
		httpkit.Error(c, http.StatusBadRequest, "process is required", nil)
		return
	}

	stages, err := h.svc.ListStagesByProcess(c.Request.Context(), process)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewStageListResponse(stages))
}

// ListQCEvents retrieves a stage's QC history.
// GET /api/v1/production/stages/:id/qc-events
func (h *Handler) ListQCEvents(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	events, err := h.svc.ListQCEvents(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.QCEventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, transport.NewQCEventResponse(e))
	}
	httpkit.OK(c, transport.QCEventListResponse{Items: items, Total: len(items)})
}
