// Package transport defines request/response DTOs for the appointments module.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// MeetingType enumerates how an appointment is held.
type MeetingType string

const (
	MeetingTypeInPerson MeetingType = "in-person"
	MeetingTypeOnline   MeetingType = "online"
	MeetingTypePhone    MeetingType = "phone"
)

// AppointmentStatus enumerates the appointment lifecycle.
type AppointmentStatus string

const (
	AppointmentStatusPending     AppointmentStatus = "pending"
	AppointmentStatusConfirmed   AppointmentStatus = "confirmed"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
)

// BookedBy enumerates who created the reservation.
const (
	BookedByCustomer = "customer"
	BookedByAdmin    = "admin"
	BookedByAgent    = "automated-agent"
)

// ReserveRequest is the payload for booking a specific slot.
type ReserveRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Email       string  `json:"email" validate:"required,email"`
	Phone       string  `json:"phone" validate:"max=32"`
	Service     string  `json:"service" validate:"required,max=120"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string  `json:"time" validate:"required,datetime=15:04"`
	Duration    int     `json:"duration" validate:"omitempty,oneof=15 30 45 60"`
	MeetingType string  `json:"meetingType" validate:"omitempty,oneof=in-person online phone"`
	Notes       *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// AutoReserveRequest books the preferred slot when possible and otherwise
// falls back to the earliest open slot in the look-ahead window.
type AutoReserveRequest struct {
	Name          string  `json:"name" validate:"required,max=120"`
	Email         string  `json:"email" validate:"required,email"`
	Phone         string  `json:"phone" validate:"max=32"`
	Service       string  `json:"service" validate:"required,max=120"`
	MeetingType   string  `json:"meetingType" validate:"omitempty,oneof=in-person online phone"`
	PreferredDate *string `json:"preferredDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PreferredTime *string `json:"preferredTime,omitempty" validate:"omitempty,datetime=15:04"`
}

// CancelRequest carries the optional cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// UpdateStatusRequest transitions an appointment to a new status.
type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" validate:"required,oneof=pending confirmed completed cancelled rescheduled"`
}

// AppointmentResponse is the API representation of an appointment.
type AppointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Service      string    `json:"service"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Duration     int       `json:"duration"`
	MeetingType  string    `json:"meetingType"`
	Status       string    `json:"status"`
	Notes        *string   `json:"notes,omitempty"`
	ReminderSent bool      `json:"reminderSent"`
	BookedBy     string    `json:"bookedBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

// DaySlots lists the open slot times for one calendar day.
type DaySlots struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// AvailableSlotsResponse is the availability query result, ordered by date.
type AvailableSlotsResponse struct {
	Days []DaySlots `json:"days"`
}
