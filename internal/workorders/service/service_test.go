package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	proddomain "mfg_portal_backend/internal/production/domain"
	prodservice "mfg_portal_backend/internal/production/service"
	"mfg_portal_backend/internal/workorders/repository"
	"mfg_portal_backend/platform/apperr"
	platformevents "mfg_portal_backend/platform/events"
	"mfg_portal_backend/platform/logger"
)

type fakeRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]repository.JobOrder
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{orders: make(map[uuid.UUID]repository.JobOrder)}
}

var _ repository.Repository = (*fakeRepo)(nil)

func (f *fakeRepo) Create(_ context.Context, order repository.NewJobOrder) (repository.JobOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jo := repository.JobOrder{
		ID:          uuid.New(),
		OrderNumber: order.OrderNumber,
		ProductCode: order.ProductCode,
		Customer:    order.Customer,
		Status:      "open",
		CreatedBy:   order.CreatedBy,
	}
	for _, u := range order.Units {
		jo.Units = append(jo.Units, repository.Unit{
			SemifinishedID: u.SemifinishedID,
			ProductCode:    u.ProductCode,
			POQuantity:     u.POQuantity,
			Steps:          u.Steps,
		})
	}
	f.orders[jo.ID] = jo
	return jo, nil
}

func (f *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[id]; !ok {
		return apperr.NotFound("job order not found")
	}
	delete(f.orders, id)
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.JobOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jo, ok := f.orders[id]
	if !ok {
		return repository.JobOrder{}, apperr.NotFound("job order not found")
	}
	return jo, nil
}

func (f *fakeRepo) GetByOrderNumber(_ context.Context, orderNumber string) (repository.JobOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, jo := range f.orders {
		if jo.OrderNumber == orderNumber {
			return jo, nil
		}
	}
	return repository.JobOrder{}, apperr.NotFound("job order not found")
}

func (f *fakeRepo) List(_ context.Context, _ repository.ListParams) ([]repository.JobOrder, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.JobOrder
	for _, jo := range f.orders {
		out = append(out, jo)
	}
	return out, len(out), nil
}

func (f *fakeRepo) GetPipeline(_ context.Context, jobOrderID uuid.UUID, semifinishedID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jo, ok := f.orders[jobOrderID]
	if !ok {
		return nil, apperr.NotFound("pipeline not found")
	}
	for _, u := range jo.Units {
		if u.SemifinishedID == semifinishedID {
			return u.Steps, nil
		}
	}
	return nil, apperr.NotFound("pipeline not found")
}

type fakeInstantiator struct {
	mu    sync.Mutex
	calls []prodservice.PipelineInstantiation
	// failOn makes the nth call (1-based) fail with fail.
	failOn int
	fail   error
}

func (f *fakeInstantiator) InstantiatePipeline(_ context.Context, p prodservice.PipelineInstantiation) ([]proddomain.Stage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil && (f.failOn == 0 || len(f.calls)+1 == f.failOn) {
		return nil, f.fail
	}
	f.calls = append(f.calls, p)
	return nil, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []platformevents.Event
}

func (b *recordingBus) Publish(_ context.Context, event platformevents.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event platformevents.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, platformevents.Handler) {}

func newTestService() (*Service, *fakeRepo, *fakeInstantiator, *recordingBus) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	svc := New(repo, bus, logger.New("development"))
	inst := &fakeInstantiator{}
	svc.SetStageInstantiator(inst)
	return svc, repo, inst, bus
}

func validParams() CreateJobOrderParams {
	return CreateJobOrderParams{
		OrderNumber: "JO-1001",
		ProductCode: "P-900",
		Customer:    "Acme Industrial",
		CreatedBy:   uuid.New(),
		Units: []UnitParams{
			{SemifinishedID: "SF-1", POQuantity: 100, Steps: []string{"cutting", "welding"}},
			{SemifinishedID: "SF-2", POQuantity: 50, Steps: []string{"casting", "machining", "painting"}},
		},
	}
}

func TestCreateJobOrderInstantiatesPipelines(t *testing.T) {
	svc, _, inst, bus := newTestService()

	order, err := svc.CreateJobOrder(context.Background(), validParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order.Units) != 2 {
		t.Fatalf("expected 2 units, got %d", len(order.Units))
	}
	if len(inst.calls) != 2 {
		t.Fatalf("expected 2 pipeline instantiations, got %d", len(inst.calls))
	}
	if inst.calls[0].JobOrderID != order.ID {
		t.Fatal("instantiation must reference the created job order")
	}
	if inst.calls[1].POQuantity != 50 {
		t.Fatalf("expected PO quantity 50 for second unit, got %d", inst.calls[1].POQuantity)
	}

	if len(bus.events) != 1 || bus.events[0].EventName() != "workorders.job_order.created" {
		t.Fatalf("expected a job order created event, got %v", bus.events)
	}
}

func TestCreateJobOrderValidation(t *testing.T) {
	svc, _, inst, _ := newTestService()

	tests := []struct {
		name   string
		mutate func(*CreateJobOrderParams)
	}{
		{"no units", func(p *CreateJobOrderParams) { p.Units = nil }},
		{"duplicate unit ids", func(p *CreateJobOrderParams) {
			p.Units[1].SemifinishedID = p.Units[0].SemifinishedID
		}},
		{"zero po quantity", func(p *CreateJobOrderParams) { p.Units[0].POQuantity = 0 }},
		{"negative po quantity", func(p *CreateJobOrderParams) { p.Units[0].POQuantity = -5 }},
		{"empty pipeline", func(p *CreateJobOrderParams) { p.Units[0].Steps = nil }},
		{"duplicate step names", func(p *CreateJobOrderParams) {
			p.Units[0].Steps = []string{"cutting", "cutting"}
		}},
		{"empty process name", func(p *CreateJobOrderParams) {
			p.Units[0].Steps = []string{"cutting", ""}
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			_, err := svc.CreateJobOrder(context.Background(), params)
			if err == nil {
				t.Fatal("expected a validation error, got nil")
			}
			if apperr.GetKind(err) != apperr.KindValidation {
				t.Fatalf("expected validation kind, got %v", err)
			}
		})
	}

	// Nothing may be instantiated for rejected orders.
	if len(inst.calls) != 0 {
		t.Fatalf("expected no pipeline instantiations, got %d", len(inst.calls))
	}
}

func TestCreateJobOrderRollsBackOnStageFailure(t *testing.T) {
	svc, repo, inst, bus := newTestService()
	inst.failOn = 2
	inst.fail = errors.New("stage store unavailable")

	_, err := svc.CreateJobOrder(context.Background(), validParams())
	if err == nil {
		t.Fatal("expected the materialization failure to surface")
	}

	// The half-created order must not survive.
	repo.mu.Lock()
	remaining := len(repo.orders)
	repo.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected the job order to be rolled back, %d orders remain", remaining)
	}

	if len(bus.events) != 0 {
		t.Fatalf("expected no created event for a rolled-back order, got %v", bus.events)
	}
}

func TestGetPipeline(t *testing.T) {
	svc, _, _, _ := newTestService()

	order, err := svc.CreateJobOrder(context.Background(), validParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	steps, err := svc.GetPipeline(context.Background(), order.ID, "SF-2")
	if err != nil {
		t.Fatalf("get pipeline: %v", err)
	}
	if len(steps) != 3 || steps[0] != "casting" {
		t.Fatalf("unexpected pipeline: %v", steps)
	}

	if _, err := svc.GetPipeline(context.Background(), order.ID, "SF-404"); err == nil {
		t.Fatal("expected not found for unknown unit")
	}
}
