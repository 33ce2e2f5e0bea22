// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"mfg_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Work Order Domain Events
// =============================================================================

// JobOrderCreated is published when a job order and its pipelines are created.
type JobOrderCreated struct {
	BaseEvent
	JobOrderID uuid.UUID `json:"jobOrderId"`
	JobOrder   string    `json:"jobOrder"`
	CreatedBy  uuid.UUID `json:"createdBy"`
	UnitCount  int       `json:"unitCount"`
}

func (e JobOrderCreated) EventName() string { return "workorders.job_order.created" }

// =============================================================================
// Production Domain Events
// =============================================================================

// StageStarted is published when a pipeline stage moves from Pending to InProgress.
type StageStarted struct {
	BaseEvent
	StageID        uuid.UUID `json:"stageId"`
	JobOrderID     uuid.UUID `json:"jobOrderId"`
	SemifinishedID string    `json:"semifinishedId"`
	ProcessName    string    `json:"processName"`
	StartedBy      uuid.UUID `json:"startedBy"`
}

func (e StageStarted) EventName() string { return "production.stage.started" }

// StageProgressRecorded is published after a successful achieved-quantity increment.
type StageProgressRecorded struct {
	BaseEvent
	StageID        uuid.UUID `json:"stageId"`
	JobOrderID     uuid.UUID `json:"jobOrderId"`
	SemifinishedID string    `json:"semifinishedId"`
	ProcessName    string    `json:"processName"`
	Delta          int64     `json:"delta"`
	Achieved       int64     `json:"achieved"`
	RecordedBy     uuid.UUID `json:"recordedBy"`
}

func (e StageProgressRecorded) EventName() string { return "production.stage.progress_recorded" }

// QCRejectionRecorded is published when a QC event with a positive rejected
// quantity is recorded against a stage.
type QCRejectionRecorded struct {
	BaseEvent
	QCEventID      uuid.UUID `json:"qcEventId"`
	StageID        uuid.UUID `json:"stageId"`
	JobOrderID     uuid.UUID `json:"jobOrderId"`
	SemifinishedID string    `json:"semifinishedId"`
	ProcessName    string    `json:"processName"`
	Rejected       int64     `json:"rejected"`
	Recycled       int64     `json:"recycled"`
	TotalRejected  int64     `json:"totalRejected"`
	CheckedBy      uuid.UUID `json:"checkedBy"`
}

func (e QCRejectionRecorded) EventName() string { return "production.qc.rejection_recorded" }
