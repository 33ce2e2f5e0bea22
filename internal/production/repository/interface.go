package repository

import (
	"context"
	"time"

	"mfg_portal_backend/internal/production/domain"

	"github.com/google/uuid"
)

// StageKey is the composite identity of a production stage.
type StageKey struct {
	JobOrderID     uuid.UUID
	SemifinishedID string
	ProcessName    string
}

// NewStage contains the immutable fields for one stage row created at
// pipeline instantiation. All stages start Pending with achieved 0.
type NewStage struct {
	JobOrderID     uuid.UUID
	SemifinishedID string
	ProcessName    string
	Position       int
	POQuantity     int64
}

// ProgressUpdate carries a compare-and-swap write against a stage row.
// The update only applies when the row still holds ExpectedVersion.
type ProgressUpdate struct {
	StageID          uuid.UUID
	ExpectedVersion  int64
	AchievedQuantity int64
	Status           domain.Status
	StartedAt        *time.Time
	UpdatedBy        uuid.UUID
}

// StageQCInsert contains a stage-linked QC inspection result.
type StageQCInsert struct {
	StageID   uuid.UUID
	Rejected  int64
	Recycled  int64
	Remarks   string
	CheckedBy uuid.UUID
}

// StandaloneQCInsert contains an observational QC record not tied to a stage.
type StandaloneQCInsert struct {
	JobOrderID     uuid.UUID
	SemifinishedID string
	ProductCode    string
	Rejected       int64
	Recycled       int64
	Remarks        string
	CheckedBy      uuid.UUID
}

// QCAggregate is the summed rejected/recycled quantities over a stage's events.
type QCAggregate struct {
	Rejected int64
	Recycled int64
}

// StageReader provides read operations for production stages.
type StageReader interface {
	Get(ctx context.Context, key StageKey) (domain.Stage, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Stage, error)
	GetAt(ctx context.Context, jobOrderID uuid.UUID, semifinishedID string, position int) (domain.Stage, error)
	ListForUnit(ctx context.Context, jobOrderID uuid.UUID, semifinishedID string) ([]domain.Stage, error)
	ListByProcess(ctx context.Context, processName string) ([]domain.Stage, error)
}

// StageWriter provides write operations for production stages.
// UpdateProgress is the single mutation path for quantities and status and
// fails with a conflict error when the version check loses a race.
type StageWriter interface {
	CreateStages(ctx context.Context, stages []NewStage) ([]domain.Stage, error)
	UpdateProgress(ctx context.Context, update ProgressUpdate) (domain.Stage, error)
}

// QCEventStore persists immutable QC events and maintains the cached
// aggregates on their stage rows.
type QCEventStore interface {
	// InsertStageEvent locks the stage row, validates the point-in-time
	// preconditions, appends the event, and folds the recomputed aggregates
	// back into the stage. Returns the event and the updated stage.
	InsertStageEvent(ctx context.Context, insert StageQCInsert) (domain.QCEvent, domain.Stage, error)
	InsertStandaloneEvent(ctx context.Context, insert StandaloneQCInsert) (domain.QCEvent, error)
	ListStageEvents(ctx context.Context, stageID uuid.UUID) ([]domain.QCEvent, error)
	// RefreshAggregates recomputes the summed aggregates for a stage and
	// rewrites the cached columns. Idempotent.
	RefreshAggregates(ctx context.Context, stageID uuid.UUID) (QCAggregate, error)
	ListStageIDsWithEvents(ctx context.Context) ([]uuid.UUID, error)
}

// Repository combines all production store operations.
type Repository interface {
	StageReader
	StageWriter
	QCEventStore
}
