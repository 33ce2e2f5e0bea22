package service

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mfg_portal_backend/internal/events"
	"mfg_portal_backend/internal/production/domain"
	"mfg_portal_backend/internal/production/repository"
)

// sweepParallelism bounds concurrent aggregate refreshes during a full sweep.
const sweepParallelism = 8

// VerificationScheduler enqueues a background re-check of a stage's QC
// aggregates. Optional; when unset QC writes simply skip the follow-up task.
type VerificationScheduler interface {
	ScheduleQCVerification(ctx context.Context, stageID uuid.UUID) error
}

// SetVerificationScheduler wires the background verification queue.
func (s *Service) SetVerificationScheduler(v VerificationScheduler) {
	s.verifier = v
}

// StageQCParams describes a QC inspection against a specific stage.
type StageQCParams struct {
	JobOrderID     uuid.UUID
	SemifinishedID string
	ProcessName    string
	Rejected       int64
	Recycled       int64
	Remarks        string
	CheckedBy      uuid.UUID
}

// StandaloneQCParams describes an observational QC record tied to a job
// order, unit, and product instead of a stage.
type StandaloneQCParams struct {
	JobOrderID     uuid.UUID
	SemifinishedID string
	ProductCode    string
	Rejected       int64
	Recycled       int64
	Remarks        string
	CheckedBy      uuid.UUID
}

// RecordQCEvent appends an immutable QC event to a stage and folds the
// recomputed aggregates into the stage row. The store performs the
// insert-and-fold atomically under a row lock; the checks here fail fast
// before any I/O beyond the initial read.
func (s *Service) RecordQCEvent(ctx context.Context, p StageQCParams) (domain.QCEvent, domain.Stage, error) {
	if p.Rejected < 0 {
		return domain.QCEvent{}, domain.Stage{}, domain.ErrInvalidQuantity(p.Rejected)
	}
	if p.Recycled < 0 {
		return domain.QCEvent{}, domain.Stage{}, domain.ErrInvalidQuantity(p.Recycled)
	}

	stage, err := s.repo.Get(ctx, repository.StageKey{
		JobOrderID:     p.JobOrderID,
		SemifinishedID: p.SemifinishedID,
		ProcessName:    p.ProcessName,
	})
	if err != nil {
		return domain.QCEvent{}, domain.Stage{}, err
	}

	if !stage.Status.AcceptsQC() {
		return domain.QCEvent{}, domain.Stage{}, domain.ErrInvalidState(stage.ProcessName, stage.Status)
	}
	if p.Rejected > stage.AchievedQuantity {
		return domain.QCEvent{}, domain.Stage{}, domain.ErrExceedsAchieved(stage.ProcessName, p.Rejected, stage.AchievedQuantity)
	}

	event, updated, err := s.repo.InsertStageEvent(ctx, repository.StageQCInsert{
		StageID:   stage.ID,
		Rejected:  p.Rejected,
		Recycled:  p.Recycled,
		Remarks:   p.Remarks,
		CheckedBy: p.CheckedBy,
	})
	if err != nil {
		return domain.QCEvent{}, domain.Stage{}, err
	}

	if stage.Status != updated.Status {
		s.log.StageTransition(p.JobOrderID.String(), p.SemifinishedID, p.ProcessName,
			string(stage.Status), string(updated.Status))
	}

	if p.Rejected > 0 {
		s.bus.Publish(ctx, events.QCRejectionRecorded{
			BaseEvent:      events.NewBaseEvent(),
			QCEventID:      event.ID,
			StageID:        updated.ID,
			JobOrderID:     p.JobOrderID,
			SemifinishedID: p.SemifinishedID,
			ProcessName:    p.ProcessName,
			Rejected:       p.Rejected,
			Recycled:       p.Recycled,
			TotalRejected:  updated.RejectedQuantity,
			CheckedBy:      p.CheckedBy,
		})
	}

	if s.verifier != nil {
		if err := s.verifier.ScheduleQCVerification(ctx, updated.ID); err != nil {
			s.log.Warn("failed to schedule qc verification", "stage_id", updated.ID, "error", err)
		}
	}

	return event, updated, nil
}

// RecordStandaloneQCEvent persists an observational QC record. No stage is
// touched; only the non-negativity preconditions apply.
func (s *Service) RecordStandaloneQCEvent(ctx context.Context, p StandaloneQCParams) (domain.QCEvent, error) {
	if p.Rejected < 0 {
		return domain.QCEvent{}, domain.ErrInvalidQuantity(p.Rejected)
	}
	if p.Recycled < 0 {
		return domain.QCEvent{}, domain.ErrInvalidQuantity(p.Recycled)
	}

	return s.repo.InsertStandaloneEvent(ctx, repository.StandaloneQCInsert{
		JobOrderID:     p.JobOrderID,
		SemifinishedID: p.SemifinishedID,
		ProductCode:    p.ProductCode,
		Rejected:       p.Rejected,
		Recycled:       p.Recycled,
		Remarks:        p.Remarks,
		CheckedBy:      p.CheckedBy,
	})
}

// ListQCEvents returns a stage's QC history, oldest first.
func (s *Service) ListQCEvents(ctx context.Context, stageID uuid.UUID) ([]domain.QCEvent, error) {
	return s.repo.ListStageEvents(ctx, stageID)
}

// VerifyAggregates recomputes one stage's cached QC aggregates from its
// event log. Idempotent; repairing an already-consistent stage changes
// nothing.
func (s *Service) VerifyAggregates(ctx context.Context, stageID uuid.UUID) error {
	_, err := s.repo.RefreshAggregates(ctx, stageID)
	return err
}

// SweepAggregates verifies every stage that has QC events, with bounded
// parallelism. Used by the periodic background sweep.
func (s *Service) SweepAggregates(ctx context.Context) error {
	ids, err := s.repo.ListStageIDsWithEvents(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepParallelism)
	for _, id := range ids {
		g.Go(func() error {
			return s.VerifyAggregates(gctx, id)
		})
	}

	return g.Wait()
}
