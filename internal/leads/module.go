// Package leads provides the lead engine bounded context module.
// This file defines the module that encapsulates all leads setup, route
// registration, and cross-module event subscriptions.
package leads

import (
	"context"

	apphttp "advisorhub_backend/internal/http"

	"advisorhub_backend/internal/events"
	"advisorhub_backend/internal/leads/handler"
	"advisorhub_backend/internal/leads/repository"
	"advisorhub_backend/internal/leads/service"
	"advisorhub_backend/internal/leads/transport"
	"advisorhub_backend/platform/logger"
	"advisorhub_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its
// dependencies and wires the booking hooks.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, eventBus, log)
	h := handler.New(svc, val)

	// a confirmed booking is also a capture event for the lead engine
	eventBus.Subscribe(events.AppointmentBooked{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.AppointmentBooked)
		if !ok {
			return nil
		}
		_, err := svc.Capture(ctx, transport.CaptureRequest{
			Name:    e.Name,
			Email:   e.Email,
			Source:  "appointment",
			Service: e.Service,
			Meta: map[string]any{
				"appointmentId": e.AppointmentID.String(),
				"date":          e.Date,
				"time":          e.Time,
			},
		})
		return err
	}))

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for the automation runner.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/leads")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
