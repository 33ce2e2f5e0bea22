// Package workorders owns job orders and their per-unit pipeline
// definitions. It is the single source of truth the production engine
// resolves process positions against.
package workorders

import (
	apphttp "mfg_portal_backend/internal/http"
	"mfg_portal_backend/internal/events"
	"mfg_portal_backend/internal/workorders/handler"
	"mfg_portal_backend/internal/workorders/repository"
	"mfg_portal_backend/internal/workorders/service"
	"mfg_portal_backend/platform/logger"
	"mfg_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the work orders module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the work orders module.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "workorders"
}

// Service returns the service layer for external use. It also implements
// the production pipeline reader.
func (m *Module) Service() *service.Service {
	return m.service
}

// SetStageInstantiator wires the production service used to materialize
// stage rows when job orders are created.
func (m *Module) SetStageInstantiator(stages service.StageInstantiator) {
	m.service.SetStageInstantiator(stages)
}

// RegisterRoutes mounts work order routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/work-orders")

	group.POST("", m.handler.CreateJobOrder)
	group.GET("", m.handler.ListJobOrders)
	group.GET("/:id", m.handler.GetJobOrder)
	group.GET("/:id/units/:unit/pipeline", m.handler.GetPipeline)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
