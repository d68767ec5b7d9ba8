// Package leads provides the lead conversion pipeline domain module.
package leads

import (
	"trainhub_backend/internal/events"
	apphttp "trainhub_backend/internal/http"
	"trainhub_backend/internal/leads/handler"
	"trainhub_backend/internal/leads/repository"
	"trainhub_backend/internal/leads/scoring"
	"trainhub_backend/internal/leads/service"
	"trainhub_backend/platform/config"
	"trainhub_backend/platform/logger"
	"trainhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig combines the config interfaces the leads module needs.
type ModuleConfig interface {
	config.ScoringConfig
	config.PipelineConfig
}

// Module represents the leads domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
	Scorer  *scoring.Service
}

// NewModule creates a new leads module with all dependencies wired. The
// compliance port and storage port are injected by the composition root so
// the module stays decoupled from the funding module and the object store.
func NewModule(
	pool *pgxpool.Pool,
	compliance service.CompliancePort,
	storage service.StoragePort,
	bus events.Bus,
	val *validator.Validator,
	log *logger.Logger,
	cfg ModuleConfig,
) *Module {
	repo := repository.New(pool)
	scorer := scoring.New(repo, scoring.WeightsFromConfig(cfg), log)
	svc := service.New(repo, scorer, compliance, storage, bus, log, cfg)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
		Scorer:  scorer,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes registers the module's routes under /api/v1/leads
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leads := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leads)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
