// Package domain holds the production process-sequence entities and the
// state-machine rules for pipeline stages. No persistence or transport
// concerns live here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a production stage.
type Status string

const (
	// StatusPending means the stage row exists but work has not started.
	StatusPending Status = "Pending"
	// StatusInProgress means the stage is actively producing.
	StatusInProgress Status = "InProgress"
	// StatusPendingQC means the stage has at least one open QC finding.
	// It still accepts achieved-quantity increments.
	StatusPendingQC Status = "PendingQC"
	// StatusApproved is a closed state set by external workflow.
	StatusApproved Status = "Approved"
	// StatusRejected is a closed state set by external workflow.
	StatusRejected Status = "Rejected"
	// StatusPaused is a manually entered hold state.
	StatusPaused Status = "Paused"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusPendingQC, StatusApproved, StatusRejected, StatusPaused:
		return true
	}
	return false
}

// CanStart reports whether a start() transition is allowed from this status.
func (s Status) CanStart() bool {
	return s == StatusPending
}

// AcceptsProduction reports whether achieved-quantity increments are allowed.
// PendingQC is deliberately non-blocking: an open QC finding does not freeze
// the stage for production.
func (s Status) AcceptsProduction() bool {
	return s == StatusInProgress || s == StatusPendingQC
}

// AcceptsQC reports whether QC events may be recorded against the stage.
func (s Status) AcceptsQC() bool {
	return s == StatusInProgress || s == StatusPendingQC
}

// Closed reports whether the stage is in a terminal state.
func (s Status) Closed() bool {
	return s == StatusApproved || s == StatusRejected
}

// Stage is one pipeline step of a semi-finished unit inside a job order.
// Identity is the composite (JobOrderID, SemifinishedID, ProcessName);
// Position is the step's zero-based index in the unit's pipeline.
//
// Quantities are whole units. AchievedQuantity is monotonically
// non-decreasing; RejectedQuantity and RecycledQuantity are cached
// aggregates over the stage's QC events. Version backs the optimistic
// concurrency control on every write.
type Stage struct {
	ID               uuid.UUID
	JobOrderID       uuid.UUID
	SemifinishedID   string
	ProcessName      string
	Position         int
	POQuantity       int64
	AchievedQuantity int64
	RejectedQuantity int64
	RecycledQuantity int64
	Status           Status
	StartedAt        *time.Time
	UpdatedBy        *uuid.UUID
	QCCheckedBy      *uuid.UUID
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// StatusAfterQC returns the stage status after folding in a QC event with
// the given rejected quantity. Only InProgress moves to PendingQC, and only
// when the event actually rejected something; PendingQC never reverts
// automatically.
func StatusAfterQC(current Status, rejected int64) Status {
	if current == StatusInProgress && rejected > 0 {
		return StatusPendingQC
	}
	return current
}

// QCEvent is an immutable inspection record. Stage-linked events carry
// StageID; standalone events instead reference the job order, unit, and
// product they were observed against and never mutate stage counters.
type QCEvent struct {
	ID               uuid.UUID
	StageID          *uuid.UUID
	JobOrderID       *uuid.UUID
	SemifinishedID   *string
	ProductCode      *string
	RejectedQuantity int64
	RecycledQuantity int64
	Remarks          string
	CheckedBy        uuid.UUID
	CreatedAt        time.Time
}

// Standalone reports whether the event is not tied to a specific stage.
func (e QCEvent) Standalone() bool {
	return e.StageID == nil
}
