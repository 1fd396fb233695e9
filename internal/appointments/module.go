// Package appointments provides the booking bounded context module.
// This file defines the module that encapsulates all appointments setup
// and route registration.
package appointments

import (
	apphttp "advisorhub_backend/internal/http"

	"advisorhub_backend/internal/appointments/handler"
	"advisorhub_backend/internal/appointments/repository"
	"advisorhub_backend/internal/appointments/service"
	"advisorhub_backend/internal/events"
	"advisorhub_backend/platform/config"
	"advisorhub_backend/platform/logger"
	"advisorhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the appointments bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Store
}

// NewModule creates and initializes the appointments module with all its
// dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, booking config.BookingConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, booking, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "appointments"
}

// Service returns the booking service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Store returns the appointment store for the automation runner.
func (m *Module) Store() repository.Store {
	return m.repo
}

// RegisterRoutes mounts appointment routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/appointments")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
