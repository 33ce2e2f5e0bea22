// Package production is the process-sequence engine bounded context. It
// tracks semi-finished units through their ordered manufacturing pipelines,
// enforces quantity conservation between consecutive stages, and reconciles
// QC findings back into stage counters.
package production

import (
	apphttp "mfg_portal_backend/internal/http"
	"mfg_portal_backend/internal/production/handler"
	"mfg_portal_backend/internal/production/repository"
	"mfg_portal_backend/internal/production/service"
	"mfg_portal_backend/internal/events"
	"mfg_portal_backend/platform/logger"
	"mfg_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the production bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the production module. The pipeline
// reader is implemented by the work-orders module, which owns pipeline
// definitions.
func NewModule(pool *pgxpool.Pool, pipelines service.PipelineReader, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	resolver := service.NewResolver(pipelines, repo)
	svc := service.New(repo, resolver, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "production"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// SetVerificationScheduler wires the background QC verification queue.
func (m *Module) SetVerificationScheduler(v service.VerificationScheduler) {
	m.service.SetVerificationScheduler(v)
}

// RegisterRoutes mounts production routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/production")

	group.POST("/stages/start", m.handler.StartStage)
	group.POST("/stages/progress", m.handler.RecordProgress)
	group.GET("/stages", m.handler.GetStage)
	group.GET("/stages/previous", m.handler.GetPreviousStage)
	group.GET("/stages/:id", m.handler.GetStageByID)
	group.GET("/stages/:id/qc-events", m.handler.ListQCEvents)
	group.GET("/processes/:process/stages", m.handler.ListStagesByProcess)

	group.POST("/qc-events", m.handler.RecordQCEvent)
	group.POST("/qc-events/standalone", m.handler.RecordStandaloneQCEvent)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
