package service

import (
	"context"

	"github.com/google/uuid"

	"mfg_portal_backend/internal/production/domain"
	"mfg_portal_backend/internal/production/repository"
	"mfg_portal_backend/platform/apperr"
)

// PipelineReader supplies the ordered process names for a semi-finished
// unit. The work-orders module owns pipeline definitions; the engine only
// consumes them and never hardcodes stage names.
type PipelineReader interface {
	GetPipeline(ctx context.Context, jobOrderID uuid.UUID, semifinishedID string) ([]string, error)
}

// Resolution locates a process inside its unit's pipeline.
type Resolution struct {
	// Position is the zero-based index of the process in the pipeline.
	Position int
	// PredecessorName is the process name at Position-1, empty for the
	// first stage.
	PredecessorName string
}

// Resolver determines pipeline positions and predecessor stages.
type Resolver struct {
	pipelines PipelineReader
	stages    repository.StageReader
}

// NewResolver creates a resolver over the given pipeline source and stage store.
func NewResolver(pipelines PipelineReader, stages repository.StageReader) *Resolver {
	return &Resolver{pipelines: pipelines, stages: stages}
}

// Resolve locates processName in the unit's pipeline. A name that is not a
// member of the pipeline fails with the invalid-process-name error.
func (r *Resolver) Resolve(ctx context.Context, jobOrderID uuid.UUID, semifinishedID, processName string) (Resolution, error) {
	steps, err := r.pipelines.GetPipeline(ctx, jobOrderID, semifinishedID)
	if err != nil {
		return Resolution{}, err
	}

	for i, step := range steps {
		if step == processName {
			res := Resolution{Position: i}
			if i > 0 {
				res.PredecessorName = steps[i-1]
			}
			return res, nil
		}
	}

	return Resolution{}, domain.ErrInvalidProcessName(processName)
}

// Predecessor reads the stage immediately upstream of the resolved position.
// Returns nil for the first stage. A pipeline position whose stage row does
// not exist yet is treated as not started rather than an error: the caller
// sees a synthesized stage with zero achieved quantity, which the gating
// rules then reject the same way they reject an unstarted predecessor.
func (r *Resolver) Predecessor(ctx context.Context, jobOrderID uuid.UUID, semifinishedID string, res Resolution) (*domain.Stage, error) {
	if res.Position == 0 {
		return nil, nil
	}

	stage, err := r.stages.GetAt(ctx, jobOrderID, semifinishedID, res.Position-1)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return &domain.Stage{
				JobOrderID:     jobOrderID,
				SemifinishedID: semifinishedID,
				ProcessName:    res.PredecessorName,
				Position:       res.Position - 1,
				Status:         domain.StatusPending,
			}, nil
		}
		return nil, err
	}

	return &stage, nil
}
