package automation

import (
	apphttp "advisorhub_backend/internal/http"

	apptrepo "advisorhub_backend/internal/appointments/repository"
	"advisorhub_backend/internal/email"
	leadsvc "advisorhub_backend/internal/leads/service"
	notifsvc "advisorhub_backend/internal/notification/service"
	"advisorhub_backend/platform/config"
	"advisorhub_backend/platform/logger"
)

// Module is the automation bounded context module implementing http.Module.
type Module struct {
	runner  *Runner
	handler *Handler
}

// NewModule creates and initializes the automation module.
func NewModule(appts apptrepo.Store, leads *leadsvc.Service, notifier *notifsvc.Service, sender email.Sender, cfg config.AutomationConfig, log *logger.Logger) *Module {
	runner := NewRunner(appts, leads, notifier, sender, cfg, log)
	return &Module{
		runner:  runner,
		handler: NewHandler(runner),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "automation"
}

// Runner returns the scan runner for the scheduler and the in-process loops.
func (m *Module) Runner() *Runner {
	return m.runner
}

// RegisterRoutes mounts the manual trigger routes on the provided router
// context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/automation")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
