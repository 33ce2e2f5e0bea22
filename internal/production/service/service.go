// Package service implements the production state machine: starting pipeline
// stages, recording achieved quantities against upstream and target bounds,
// and reconciling QC findings into stage counters.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mfg_portal_backend/internal/events"
	"mfg_portal_backend/internal/production/domain"
	"mfg_portal_backend/internal/production/repository"
	"mfg_portal_backend/platform/apperr"
	"mfg_portal_backend/platform/logger"
)

// defaultRetryAttempts bounds how often a lost version race is retried with
// fresh reads before the conflict surfaces to the caller.
const defaultRetryAttempts = 3

// Service is the production engine entry point used by the HTTP layer and
// by the work-orders module during pipeline instantiation.
type Service struct {
	repo          repository.Repository
	resolver      *Resolver
	bus           events.Bus
	log           *logger.Logger
	verifier      VerificationScheduler
	retryAttempts int
}

// New creates the production service.
func New(repo repository.Repository, resolver *Resolver, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		resolver:      resolver,
		bus:           bus,
		log:           log,
		retryAttempts: defaultRetryAttempts,
	}
}

// SetRetryAttempts overrides the bounded retry count for conditional writes.
func (s *Service) SetRetryAttempts(attempts int) {
	if attempts > 0 {
		s.retryAttempts = attempts
	}
}

// PipelineInstantiation describes one unit's pipeline to materialize as
// stage rows.
type PipelineInstantiation struct {
	JobOrderID     uuid.UUID
	SemifinishedID string
	POQuantity     int64
	Steps          []string
}

// InstantiatePipeline creates one Pending stage row per pipeline step, all
// with achieved quantity zero. Step names must be unique within the pipeline.
func (s *Service) InstantiatePipeline(ctx context.Context, p PipelineInstantiation) ([]domain.Stage, error) {
	if len(p.Steps) == 0 {
		return nil, apperr.Validation("pipeline must contain at least one process")
	}
	if p.POQuantity <= 0 {
		return nil, domain.ErrInvalidQuantity(p.POQuantity)
	}

	seen := make(map[string]struct{}, len(p.Steps))
	rows := make([]repository.NewStage, 0, len(p.Steps))
	for i, step := range p.Steps {
		if _, dup := seen[step]; dup {
			return nil, apperr.Validation(fmt.Sprintf("duplicate process %q in pipeline", step))
		}
		seen[step] = struct{}{}
		rows = append(rows, repository.NewStage{
			JobOrderID:     p.JobOrderID,
			SemifinishedID: p.SemifinishedID,
			ProcessName:    step,
			Position:       i,
			POQuantity:     p.POQuantity,
		})
	}

	return s.repo.CreateStages(ctx, rows)
}

// StartStage moves a Pending stage to InProgress and stamps the audit
// fields. Any other starting status fails with the invalid-transition error.
// Starting never carries a quantity; increments go through RecordAchieved.
func (s *Service) StartStage(ctx context.Context, jobOrderID uuid.UUID, semifinishedID, processName string, caller uuid.UUID) (domain.Stage, error) {
	if _, err := s.resolver.Resolve(ctx, jobOrderID, semifinishedID, processName); err != nil {
		return domain.Stage{}, err
	}

	key := repository.StageKey{JobOrderID: jobOrderID, SemifinishedID: semifinishedID, ProcessName: processName}

	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		stage, err := s.repo.Get(ctx, key)
		if err != nil {
			return domain.Stage{}, err
		}

		if !stage.Status.CanStart() {
			return domain.Stage{}, domain.ErrInvalidTransition(processName, stage.Status)
		}

		now := time.Now()
		updated, err := s.repo.UpdateProgress(ctx, repository.ProgressUpdate{
			StageID:          stage.ID,
			ExpectedVersion:  stage.Version,
			AchievedQuantity: stage.AchievedQuantity,
			Status:           domain.StatusInProgress,
			StartedAt:        &now,
			UpdatedBy:        caller,
		})
		if err != nil {
			if apperr.Is(err, apperr.KindConflict) {
				continue
			}
			return domain.Stage{}, err
		}

		s.log.StageTransition(jobOrderID.String(), semifinishedID, processName,
			string(domain.StatusPending), string(domain.StatusInProgress))
		s.bus.Publish(ctx, events.StageStarted{
			BaseEvent:      events.NewBaseEvent(),
			StageID:        updated.ID,
			JobOrderID:     jobOrderID,
			SemifinishedID: semifinishedID,
			ProcessName:    processName,
			StartedBy:      caller,
		})

		return updated, nil
	}

	return domain.Stage{}, domain.ErrConflict(processName)
}

// RecordAchieved adds delta to the stage's achieved quantity after the full
// precondition chain passes, checked strictly in this order: non-negative
// delta, status accepts production, upstream has output, target ceiling,
// upstream availability. The read-validate-write cycle is conditional on the row
// version and retried with fresh reads on a lost race.
//
// The upstream bound read may be stale by one cycle: achieved quantities
// only grow, so a stale predecessor read can only under-admit, never let a
// downstream stage overtake its upstream.
func (s *Service) RecordAchieved(ctx context.Context, jobOrderID uuid.UUID, semifinishedID, processName string, delta int64, caller uuid.UUID) (domain.Stage, error) {
	if delta < 0 {
		return domain.Stage{}, domain.ErrInvalidQuantity(delta)
	}

	res, err := s.resolver.Resolve(ctx, jobOrderID, semifinishedID, processName)
	if err != nil {
		return domain.Stage{}, err
	}

	key := repository.StageKey{JobOrderID: jobOrderID, SemifinishedID: semifinishedID, ProcessName: processName}

	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		stage, err := s.repo.Get(ctx, key)
		if err != nil {
			return domain.Stage{}, err
		}

		if !stage.Status.AcceptsProduction() {
			return domain.Stage{}, domain.ErrInvalidTransition(processName, stage.Status)
		}

		predecessor, err := s.resolver.Predecessor(ctx, jobOrderID, semifinishedID, res)
		if err != nil {
			return domain.Stage{}, err
		}
		if predecessor != nil && predecessor.AchievedQuantity == 0 {
			return domain.Stage{}, domain.ErrUpstreamNotReady(processName, predecessor.ProcessName)
		}

		// Compare headroom rather than the sum so an absurd delta cannot
		// wrap around int64 and slip past the ceiling.
		if delta > stage.POQuantity-stage.AchievedQuantity {
			return domain.Stage{}, domain.ErrExceedsTarget(processName, stage.AchievedQuantity, delta, stage.POQuantity)
		}
		newAchieved := stage.AchievedQuantity + delta
		if predecessor != nil && newAchieved > predecessor.AchievedQuantity {
			return domain.Stage{}, domain.ErrExceedsUpstreamAvailability(processName, newAchieved, predecessor.AchievedQuantity)
		}

		updated, err := s.repo.UpdateProgress(ctx, repository.ProgressUpdate{
			StageID:          stage.ID,
			ExpectedVersion:  stage.Version,
			AchievedQuantity: newAchieved,
			Status:           stage.Status,
			UpdatedBy:        caller,
		})
		if err != nil {
			if apperr.Is(err, apperr.KindConflict) {
				continue
			}
			return domain.Stage{}, err
		}

		s.bus.Publish(ctx, events.StageProgressRecorded{
			BaseEvent:      events.NewBaseEvent(),
			StageID:        updated.ID,
			JobOrderID:     jobOrderID,
			SemifinishedID: semifinishedID,
			ProcessName:    processName,
			Delta:          delta,
			Achieved:       updated.AchievedQuantity,
			RecordedBy:     caller,
		})

		return updated, nil
	}

	return domain.Stage{}, domain.ErrConflict(processName)
}

// GetStage returns a stage by composite identity with its full audit trail.
func (s *Service) GetStage(ctx context.Context, jobOrderID uuid.UUID, semifinishedID, processName string) (domain.Stage, error) {
	return s.repo.Get(ctx, repository.StageKey{
		JobOrderID:     jobOrderID,
		SemifinishedID: semifinishedID,
		ProcessName:    processName,
	})
}

// GetStageByID returns a stage by its opaque ID.
func (s *Service) GetStageByID(ctx context.Context, id uuid.UUID) (domain.Stage, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPreviousStage resolves and returns the stage immediately upstream of
// the given process, or nil for the first stage of the pipeline.
func (s *Service) GetPreviousStage(ctx context.Context, jobOrderID uuid.UUID, semifinishedID, processName string) (*domain.Stage, error) {
	res, err := s.resolver.Resolve(ctx, jobOrderID, semifinishedID, processName)
	if err != nil {
		return nil, err
	}
	return s.resolver.Predecessor(ctx, jobOrderID, semifinishedID, res)
}

// ListStagesForUnit returns all stages of one unit in pipeline order.
func (s *Service) ListStagesForUnit(ctx context.Context, jobOrderID uuid.UUID, semifinishedID string) ([]domain.Stage, error) {
	return s.repo.ListForUnit(ctx, jobOrderID, semifinishedID)
}

// ListStagesByProcess returns all stages across job orders that share a
// process name.
func (s *Service) ListStagesByProcess(ctx context.Context, processName string) ([]domain.Stage, error) {
	return s.repo.ListByProcess(ctx, processName)
}
