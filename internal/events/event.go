// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"advisorhub_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Booking Domain Events
// =============================================================================

// AppointmentBooked is published when a new appointment is reserved.
type AppointmentBooked struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Service       string    `json:"service"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	MeetingType   string    `json:"meetingType"`
	BookedBy      string    `json:"bookedBy"`
}

func (e AppointmentBooked) EventName() string { return "appointments.booked" }

// AppointmentCancelled is published when an appointment is cancelled.
// It is not published for repeat cancellations of the same appointment.
type AppointmentCancelled struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	Email         string    `json:"email"`
	Reason        string    `json:"reason,omitempty"`
}

func (e AppointmentCancelled) EventName() string { return "appointments.cancelled" }

// AppointmentStatusChanged is published when an appointment transitions
// between statuses (confirmed, completed, rescheduled).
type AppointmentStatusChanged struct {
	BaseEvent
	AppointmentID uuid.UUID `json:"appointmentId"`
	Email         string    `json:"email"`
	OldStatus     string    `json:"oldStatus"`
	NewStatus     string    `json:"newStatus"`
}

func (e AppointmentStatusChanged) EventName() string { return "appointments.status_changed" }

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCaptured is published on every capture event, for both new and
// existing leads. IsNew distinguishes first contact from repeat activity.
type LeadCaptured struct {
	BaseEvent
	LeadID   uuid.UUID `json:"leadId"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Source   string    `json:"source"`
	Score    int       `json:"score"`
	Priority string    `json:"priority"`
	IsNew    bool      `json:"isNew"`
}

func (e LeadCaptured) EventName() string { return "leads.captured" }

// LeadStatusChanged is published when a lead moves through the pipeline.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	Email     string    `json:"email"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status_changed" }
