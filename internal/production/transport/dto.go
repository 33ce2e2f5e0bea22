package transport

import (
	"time"

	"github.com/google/uuid"

	"mfg_portal_backend/internal/production/domain"
)

// StartStageRequest identifies the stage to start. Starting a stage never
// carries a quantity; increments are a separate operation.
type StartStageRequest struct {
	JobOrderID     uuid.UUID `json:"jobOrderId" validate:"required"`
	SemifinishedID string    `json:"semifinishedId" validate:"required,max=100"`
	ProcessName    string    `json:"processName" validate:"required,max=100"`
}

// RecordProgressRequest adds a produced quantity to a stage. Delta is
// validated by the engine so a negative value surfaces the proper
// domain error instead of a generic validation failure.
type RecordProgressRequest struct {
	JobOrderID     uuid.UUID `json:"jobOrderId" validate:"required"`
	SemifinishedID string    `json:"semifinishedId" validate:"required,max=100"`
	ProcessName    string    `json:"processName" validate:"required,max=100"`
	Delta          int64     `json:"delta"`
}

// StageQCEventRequest records an inspection result against a stage.
type StageQCEventRequest struct {
	JobOrderID     uuid.UUID `json:"jobOrderId" validate:"required"`
	SemifinishedID string    `json:"semifinishedId" validate:"required,max=100"`
	ProcessName    string    `json:"processName" validate:"required,max=100"`
	Rejected       int64     `json:"rejected"`
	Recycled       int64     `json:"recycled"`
	Remarks        string    `json:"remarks,omitempty" validate:"max=1000"`
}

// StandaloneQCEventRequest records an observational inspection that is tied
// to a job order, unit, and product rather than a pipeline stage.
type StandaloneQCEventRequest struct {
	JobOrderID     uuid.UUID `json:"jobOrderId" validate:"required"`
	SemifinishedID string    `json:"semifinishedId" validate:"required,max=100"`
	ProductCode    string    `json:"productCode" validate:"required,max=100"`
	Rejected       int64     `json:"rejected"`
	Recycled       int64     `json:"recycled"`
	Remarks        string    `json:"remarks,omitempty" validate:"max=1000"`
}

// StageQuery identifies a stage by its composite key in query form.
type StageQuery struct {
	JobOrderID     uuid.UUID `form:"jobOrderId" validate:"required"`
	SemifinishedID string    `form:"semifinishedId" validate:"required"`
	ProcessName    string    `form:"processName"`
}

// StageResponse is the snapshot of one production stage.
type StageResponse struct {
	ID               uuid.UUID  `json:"id"`
	JobOrderID       uuid.UUID  `json:"jobOrderId"`
	SemifinishedID   string     `json:"semifinishedId"`
	ProcessName      string     `json:"processName"`
	Position         int        `json:"position"`
	POQuantity       int64      `json:"poQuantity"`
	AchievedQuantity int64      `json:"achievedQuantity"`
	RejectedQuantity int64      `json:"rejectedQuantity"`
	RecycledQuantity int64      `json:"recycledQuantity"`
	Status           string     `json:"status"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	UpdatedBy        *uuid.UUID `json:"updatedBy,omitempty"`
	QCCheckedBy      *uuid.UUID `json:"qcCheckedBy,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// StageListResponse wraps a list of stages.
type StageListResponse struct {
	Items []StageResponse `json:"items"`
	Total int             `json:"total"`
}

// PreviousStageResponse is the predecessor lookup result; Stage is null for
// the first stage of a pipeline.
type PreviousStageResponse struct {
	Stage *StageResponse `json:"stage"`
}

// QCEventResponse is the snapshot of one QC event.
type QCEventResponse struct {
	ID               uuid.UUID  `json:"id"`
	StageID          *uuid.UUID `json:"stageId,omitempty"`
	JobOrderID       *uuid.UUID `json:"jobOrderId,omitempty"`
	SemifinishedID   *string    `json:"semifinishedId,omitempty"`
	ProductCode      *string    `json:"productCode,omitempty"`
	RejectedQuantity int64      `json:"rejectedQuantity"`
	RecycledQuantity int64      `json:"recycledQuantity"`
	Remarks          string     `json:"remarks,omitempty"`
	CheckedBy        uuid.UUID  `json:"checkedBy"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// QCEventListResponse wraps a stage's QC history.
type QCEventListResponse struct {
	Items []QCEventResponse `json:"items"`
	Total int               `json:"total"`
}

// NewStageResponse maps a domain stage to its API form.
func NewStageResponse(s domain.Stage) StageResponse {
	return StageResponse{
		ID:               s.ID,
		JobOrderID:       s.JobOrderID,
		SemifinishedID:   s.SemifinishedID,
		ProcessName:      s.ProcessName,
		Position:         s.Position,
		POQuantity:       s.POQuantity,
		AchievedQuantity: s.AchievedQuantity,
		RejectedQuantity: s.RejectedQuantity,
		RecycledQuantity: s.RecycledQuantity,
		Status:           string(s.Status),
		StartedAt:        s.StartedAt,
		UpdatedBy:        s.UpdatedBy,
		QCCheckedBy:      s.QCCheckedBy,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

// NewStageListResponse maps a slice of stages.
func NewStageListResponse(stages []domain.Stage) StageListResponse {
	items := make([]StageResponse, 0, len(stages))
	for _, s := range stages {
		items = append(items, NewStageResponse(s))
	}
	return StageListResponse{Items: items, Total: len(items)}
}

// NewQCEventResponse maps a domain QC event to its API form.
func NewQCEventResponse(e domain.QCEvent) QCEventResponse {
	return QCEventResponse{
		ID:               e.ID,
		StageID:          e.StageID,
		JobOrderID:       e.JobOrderID,
		SemifinishedID:   e.SemifinishedID,
		ProductCode:      e.ProductCode,
		RejectedQuantity: e.RejectedQuantity,
		RecycledQuantity: e.RecycledQuantity,
		Remarks:          e.Remarks,
		CheckedBy:        e.CheckedBy,
		CreatedAt:        e.CreatedAt,
	}
}
