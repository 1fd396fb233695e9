// Package notification provides the notification dispatcher bounded
// context module. This file wires the event subscriptions that turn
// booking and lead events into in-app notices and customer emails.
package notification

import (
	"context"
	"fmt"

	apphttp "advisorhub_backend/internal/http"

	"advisorhub_backend/internal/email"
	"advisorhub_backend/internal/events"
	"advisorhub_backend/internal/notification/handler"
	"advisorhub_backend/internal/notification/repository"
	"advisorhub_backend/internal/notification/service"
	"advisorhub_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the notification module with all its
// dependencies. adminEmail is the destination for urgent-lead alerts; an
// empty value disables them.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, sender email.Sender, adminEmail string, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.NewService(repo, log)
	h := handler.New(svc)
	log = log.WithComponent("notification.module")

	eventBus.Subscribe(events.AppointmentBooked{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.AppointmentBooked)
		if !ok {
			return nil
		}

		_, err := svc.NotifyCreate(ctx, service.Notice{
			Type:         repository.TypeAppointment,
			Title:        "New appointment booked",
			Message:      fmt.Sprintf("%s booked %s on %s at %s", e.Name, e.Service, e.Date, e.Time),
			RelatedID:    e.AppointmentID,
			RelatedModel: "appointment",
			Recipient:    repository.AdminSpec(),
			Metadata:     map[string]any{"bookedBy": e.BookedBy},
		})
		if err != nil {
			return err
		}

		if sendErr := sender.SendBookingConfirmation(ctx, e.Email, email.BookingDetails{
			Name:        e.Name,
			Service:     e.Service,
			Date:        e.Date,
			Time:        e.Time,
			MeetingType: e.MeetingType,
		}); sendErr != nil {
			log.DeliveryError("booking_confirmation", e.Email, sendErr)
		}
		return nil
	}))

	eventBus.Subscribe(events.AppointmentCancelled{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.AppointmentCancelled)
		if !ok {
			return nil
		}
		message := "Appointment cancelled"
		if e.Reason != "" {
			message = fmt.Sprintf("Appointment cancelled: %s", e.Reason)
		}
		_, err := svc.NotifyStateChange(ctx, service.Notice{
			Type:         repository.TypeAppointment,
			Title:        "Appointment cancelled",
			Message:      message,
			RelatedID:    e.AppointmentID,
			RelatedModel: "appointment",
			Recipient:    repository.AdminSpec(),
		}, "cancelled")
		return err
	}))

	eventBus.Subscribe(events.AppointmentStatusChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.AppointmentStatusChanged)
		if !ok {
			return nil
		}
		_, err := svc.NotifyStateChange(ctx, service.Notice{
			Type:         repository.TypeAppointment,
			Title:        "Appointment status changed",
			Message:      fmt.Sprintf("Appointment moved from %s to %s", e.OldStatus, e.NewStatus),
			RelatedID:    e.AppointmentID,
			RelatedModel: "appointment",
			Recipient:    repository.AdminSpec(),
		}, e.NewStatus)
		return err
	}))

	eventBus.Subscribe(events.LeadCaptured{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadCaptured)
		if !ok || !e.IsNew {
			return nil
		}

		_, err := svc.NotifyCreate(ctx, service.Notice{
			Type:         repository.TypeLead,
			Title:        "New lead captured",
			Message:      fmt.Sprintf("%s (%s) via %s, priority %s", e.Name, e.Email, e.Source, e.Priority),
			RelatedID:    e.LeadID,
			RelatedModel: "lead",
			Recipient:    repository.AdminSpec(),
			Metadata:     map[string]any{"score": e.Score, "priority": e.Priority},
		})
		if err != nil {
			return err
		}

		if e.Priority == "urgent" && adminEmail != "" {
			subject := "Urgent lead needs attention"
			body := fmt.Sprintf("%s (%s) came in via %s with score %d. Reach out today.", e.Name, e.Email, e.Source, e.Score)
			if sendErr := sender.SendAdminAlert(ctx, adminEmail, subject, body); sendErr != nil {
				log.DeliveryError("admin_alert", adminEmail, sendErr)
			}
		}
		return nil
	}))

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// Service returns the dispatcher service for the automation runner.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts notification routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/notifications")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
