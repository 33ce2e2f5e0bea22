// Package service implements job order business logic: validation of
// per-unit pipeline definitions and materialization of production stages.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"mfg_portal_backend/internal/events"
	proddomain "mfg_portal_backend/internal/production/domain"
	prodservice "mfg_portal_backend/internal/production/service"
	"mfg_portal_backend/internal/workorders/repository"
	"mfg_portal_backend/platform/apperr"
	"mfg_portal_backend/platform/logger"
)

// StageInstantiator materializes a unit's pipeline as production stage rows.
// Implemented by the production service.
type StageInstantiator interface {
	InstantiatePipeline(ctx context.Context, p prodservice.PipelineInstantiation) ([]proddomain.Stage, error)
}

// Service provides job order operations.
type Service struct {
	repo   repository.Repository
	stages StageInstantiator
	bus    events.Bus
	log    *logger.Logger
}

// New creates the work orders service. The stage instantiator is wired
// after construction because the production module consumes this service
// as its pipeline reader.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		bus:  bus,
		log:  log,
	}
}

// SetStageInstantiator wires the production service used to materialize
// stage rows on job order creation.
func (s *Service) SetStageInstantiator(stages StageInstantiator) {
	s.stages = stages
}

// Compile-time check that Service implements the production pipeline reader.
var _ prodservice.PipelineReader = (*Service)(nil)

// CreateJobOrderParams is the input for CreateJobOrder.
type CreateJobOrderParams struct {
	OrderNumber string
	ProductCode string
	Customer    string
	CreatedBy   uuid.UUID
	Units       []UnitParams
}

// UnitParams describes one semi-finished unit and its ordered pipeline.
type UnitParams struct {
	SemifinishedID string
	ProductCode    string
	POQuantity     int64
	Steps          []string
}

// CreateJobOrder validates the order, persists it with its pipeline
// definitions, and materializes one Pending production stage per pipeline
// step of every unit.
func (s *Service) CreateJobOrder(ctx context.Context, params CreateJobOrderParams) (repository.JobOrder, error) {
	if err := validateUnits(params.Units); err != nil {
		return repository.JobOrder{}, err
	}

	input := repository.NewJobOrder{
		OrderNumber: params.OrderNumber,
		ProductCode: params.ProductCode,
		Customer:    params.Customer,
		CreatedBy:   params.CreatedBy,
	}
	for _, u := range params.Units {
		input.Units = append(input.Units, repository.NewUnit{
			SemifinishedID: u.SemifinishedID,
			ProductCode:    u.ProductCode,
			POQuantity:     u.POQuantity,
			Steps:          u.Steps,
		})
	}

	order, err := s.repo.Create(ctx, input)
	if err != nil {
		return repository.JobOrder{}, err
	}

	if s.stages != nil {
		for _, u := range order.Units {
			_, err := s.stages.InstantiatePipeline(ctx, prodservice.PipelineInstantiation{
				JobOrderID:     order.ID,
				SemifinishedID: u.SemifinishedID,
				POQuantity:     u.POQuantity,
				Steps:          u.Steps,
			})
			if err != nil {
				// Roll the order back so a half-materialized job order never
				// survives; cascading deletes remove any stages already
				// created for earlier units.
				if delErr := s.repo.Delete(context.WithoutCancel(ctx), order.ID); delErr != nil {
					s.log.Error("failed to roll back job order after stage materialization failure",
						"jobOrderId", order.ID,
						"error", delErr,
					)
				}
				return repository.JobOrder{}, fmt.Errorf("instantiate pipeline for unit %s: %w", u.SemifinishedID, err)
			}
		}
	}

	s.log.Info("job order created",
		"jobOrderId", order.ID,
		"orderNumber", order.OrderNumber,
		"units", len(order.Units),
	)

	s.bus.Publish(ctx, events.JobOrderCreated{
		BaseEvent:  events.NewBaseEvent(),
		JobOrderID: order.ID,
		JobOrder:   order.OrderNumber,
		CreatedBy:  params.CreatedBy,
		UnitCount:  len(order.Units),
	})

	return order, nil
}

func validateUnits(units []UnitParams) error {
	if len(units) == 0 {
		return apperr.Validation("job order must contain at least one unit")
	}

	seenUnits := make(map[string]struct{}, len(units))
	for _, u := range units {
		if _, dup := seenUnits[u.SemifinishedID]; dup {
			return apperr.Validation(fmt.Sprintf("duplicate semifinished unit %q", u.SemifinishedID))
		}
		seenUnits[u.SemifinishedID] = struct{}{}

		if u.POQuantity <= 0 {
			return apperr.Validation(fmt.Sprintf("unit %q: PO quantity must be positive", u.SemifinishedID))
		}
		if len(u.Steps) == 0 {
			return apperr.Validation(fmt.Sprintf("unit %q: pipeline must contain at least one process", u.SemifinishedID))
		}

		seenSteps := make(map[string]struct{}, len(u.Steps))
		for _, step := range u.Steps {
			if step == "" {
				return apperr.Validation(fmt.Sprintf("unit %q: empty process name", u.SemifinishedID))
			}
			if _, dup := seenSteps[step]; dup {
				return apperr.Validation(fmt.Sprintf("unit %q: duplicate process %q", u.SemifinishedID, step))
			}
			seenSteps[step] = struct{}{}
		}
	}

	return nil
}

// GetJobOrder retrieves a job order with its units and pipelines.
func (s *Service) GetJobOrder(ctx context.Context, id uuid.UUID) (repository.JobOrder, error) {
	return s.repo.GetByID(ctx, id)
}

// GetJobOrderByNumber retrieves a job order by its business order number.
func (s *Service) GetJobOrderByNumber(ctx context.Context, orderNumber string) (repository.JobOrder, error) {
	return s.repo.GetByOrderNumber(ctx, orderNumber)
}

// ListJobOrders retrieves job orders with optional search and pagination.
func (s *Service) ListJobOrders(ctx context.Context, params repository.ListParams) ([]repository.JobOrder, int, error) {
	return s.repo.List(ctx, params)
}

// GetPipeline returns the ordered process names for one unit. This is the
// pipeline reader consumed by the production resolver.
func (s *Service) GetPipeline(ctx context.Context, jobOrderID uuid.UUID, semifinishedID string) ([]string, error) {
	return s.repo.GetPipeline(ctx, jobOrderID, semifinishedID)
}
