// Package funding provides the funding-compliance domain module.
package funding

import (
	"trainhub_backend/internal/events"
	"trainhub_backend/internal/funding/handler"
	"trainhub_backend/internal/funding/repository"
	"trainhub_backend/internal/funding/service"
	apphttp "trainhub_backend/internal/http"
	"trainhub_backend/platform/logger"
	"trainhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module represents the funding-compliance domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new funding module with all dependencies wired
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "funding"
}

// RegisterRoutes registers the module's routes under /api/v1/compliance-records
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	records := ctx.Protected.Group("/compliance-records")
	m.handler.RegisterRoutes(records)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
