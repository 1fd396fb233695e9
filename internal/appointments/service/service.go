// Package service contains the booking business logic: availability
// computation, slot reservation, auto-reservation with fallback, and
// appointment lifecycle transitions.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"advisorhub_backend/internal/appointments/repository"
	"advisorhub_backend/internal/appointments/transport"
	"advisorhub_backend/internal/events"
	"advisorhub_backend/platform/apperr"
	"advisorhub_backend/platform/cache"
	"advisorhub_backend/platform/config"
	"advisorhub_backend/platform/logger"
	"advisorhub_backend/platform/phone"
	"advisorhub_backend/platform/sanitize"
)

const (
	dateFormat = "2006-01-02"
	timeFormat = "15:04"

	maxLookaheadDays = 60

	slotCacheTTL = 30 * time.Second

	msgSlotUnavailable = "requested slot is outside business hours"
	msgSlotConflict    = "slot already booked, choose another time"
	msgNoAvailability  = "no availability within the booking window"
)

// Service implements the appointment booking operations.
type Service struct {
	store     repository.Store
	booking   config.BookingConfig
	bus       events.Bus
	log       *logger.Logger
	slotCache *cache.Cache[[]string]

	// now is injectable for tests.
	now func() time.Time
}

func NewService(store repository.Store, booking config.BookingConfig, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		booking:   booking,
		bus:       bus,
		log:       log.WithComponent("appointments.service"),
		slotCache: cache.New[[]string](slotCacheTTL),
		now:       time.Now,
	}
}

// today returns the current date truncated to midnight local time.
func (s *Service) today() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Reserve books the exact slot the request names. The business-hours and
// conflict checks give fast feedback; the database unique index is what
// actually guarantees the slot is taken once under concurrent requests.
func (s *Service) Reserve(ctx context.Context, req transport.ReserveRequest, bookedBy string) (*transport.AppointmentResponse, error) {
	date, err := time.ParseInLocation(dateFormat, req.Date, s.now().Location())
	if err != nil {
		return nil, apperr.Validation("invalid date format, expected YYYY-MM-DD")
	}

	if !s.slotBookable(date, req.Time) {
		return nil, apperr.Validation(msgSlotUnavailable)
	}

	booked, err := s.store.ListActiveTimes(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to check booked slots: %w", err)
	}
	for _, t := range booked {
		if t == req.Time {
			return nil, apperr.Conflict(msgSlotConflict)
		}
	}

	appt, err := s.insertAppointment(ctx, req, date, bookedBy)
	if err != nil {
		return nil, err
	}

	s.afterBooking(ctx, appt)
	resp := toResponse(appt)
	return &resp, nil
}

// AutoReserve books the preferred slot when it is free, and otherwise
// walks the booking window day by day taking the earliest open slot.
// Insert conflicts from concurrent bookings advance the walk instead of
// failing the request.
func (s *Service) AutoReserve(ctx context.Context, req transport.AutoReserveRequest, bookedBy string) (*transport.AppointmentResponse, error) {
	reserve := transport.ReserveRequest{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Service:     req.Service,
		MeetingType: req.MeetingType,
	}

	if req.PreferredDate != nil && req.PreferredTime != nil {
		date, err := time.ParseInLocation(dateFormat, *req.PreferredDate, s.now().Location())
		if err != nil {
			return nil, apperr.Validation("invalid preferred date format, expected YYYY-MM-DD")
		}
		if s.slotBookable(date, *req.PreferredTime) {
			reserve.Time = *req.PreferredTime
			appt, err := s.insertAppointment(ctx, reserve, date, bookedBy)
			if err == nil {
				s.afterBooking(ctx, appt)
				resp := toResponse(appt)
				return &resp, nil
			}
			if apperr.GetKind(err) != apperr.KindConflict {
				return nil, err
			}
			// preferred slot raced away, fall through to the walk
		}
	}

	today := s.today()
	for i := 0; i < s.booking.GetLookaheadDays(); i++ {
		date := today.AddDate(0, 0, i)
		slots, err := s.openSlots(ctx, date)
		if err != nil {
			return nil, err
		}
		for _, slot := range slots {
			reserve.Time = slot
			appt, err := s.insertAppointment(ctx, reserve, date, bookedBy)
			if err == nil {
				s.afterBooking(ctx, appt)
				resp := toResponse(appt)
				return &resp, nil
			}
			if apperr.GetKind(err) == apperr.KindConflict {
				s.slotCache.Invalidate(date.Format(dateFormat))
				continue
			}
			return nil, err
		}
	}

	return nil, apperr.Validation(msgNoAvailability)
}

// insertAppointment normalizes input and writes the row. A unique index
// violation on the active (date, time) pair surfaces as apperr.Conflict.
func (s *Service) insertAppointment(ctx context.Context, req transport.ReserveRequest, date time.Time, bookedBy string) (*repository.Appointment, error) {
	duration := req.Duration
	if duration == 0 {
		duration = s.booking.GetSlotDurationMinutes()
	}
	meetingType := req.MeetingType
	if meetingType == "" {
		meetingType = string(transport.MeetingTypeOnline)
	}

	normalizedPhone := phone.NormalizeE164(sanitize.Text(req.Phone))

	appt := &repository.Appointment{
		ID:              uuid.New(),
		Name:            sanitize.Text(req.Name),
		Email:           sanitize.Text(req.Email),
		Phone:           normalizedPhone,
		Service:         sanitize.Text(req.Service),
		Date:            date,
		Time:            req.Time,
		DurationMinutes: duration,
		MeetingType:     meetingType,
		Status:          repository.StatusPending,
		Notes:           sanitize.TextPtr(req.Notes),
		BookedBy:        bookedBy,
	}

	if err := s.store.Create(ctx, appt); err != nil {
		if apperr.GetKind(err) == apperr.KindConflict {
			return nil, apperr.Conflict(msgSlotConflict)
		}
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}
	return appt, nil
}

// afterBooking invalidates the day's slot cache and announces the booking.
func (s *Service) afterBooking(ctx context.Context, appt *repository.Appointment) {
	s.slotCache.Invalidate(appt.Date.Format(dateFormat))

	s.bus.Publish(ctx, events.AppointmentBooked{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		Name:          appt.Name,
		Email:         appt.Email,
		Service:       appt.Service,
		Date:          appt.Date.Format(dateFormat),
		Time:          appt.Time,
		MeetingType:   appt.MeetingType,
		BookedBy:      appt.BookedBy,
	})

	s.log.Info("appointment booked",
		"appointmentId", appt.ID,
		"date", appt.Date.Format(dateFormat),
		"time", appt.Time,
		"bookedBy", appt.BookedBy,
	)
}

// Cancel moves an appointment to cancelled. Cancelling an already
// cancelled appointment is a no-op success and publishes nothing.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req transport.CancelRequest) (*transport.AppointmentResponse, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status == repository.StatusCancelled {
		resp := toResponse(appt)
		return &resp, nil
	}

	if err := s.store.UpdateStatus(ctx, id, repository.StatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	appt.Status = repository.StatusCancelled

	s.slotCache.Invalidate(appt.Date.Format(dateFormat))
	s.bus.Publish(ctx, events.AppointmentCancelled{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		Email:         appt.Email,
		Reason:        req.Reason,
	})

	resp := toResponse(appt)
	return &resp, nil
}

// UpdateStatus transitions an appointment between lifecycle statuses.
// Setting the status it already has is a no-op success.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*transport.AppointmentResponse, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if appt.Status == status {
		resp := toResponse(appt)
		return &resp, nil
	}

	oldStatus := appt.Status
	if err := s.store.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("failed to update appointment status: %w", err)
	}
	appt.Status = status

	// leaving or re-entering an active status changes the day's availability
	s.slotCache.Invalidate(appt.Date.Format(dateFormat))

	s.bus.Publish(ctx, events.AppointmentStatusChanged{
		BaseEvent:     events.NewBaseEvent(),
		AppointmentID: appt.ID,
		Email:         appt.Email,
		OldStatus:     oldStatus,
		NewStatus:     status,
	})

	resp := toResponse(appt)
	return &resp, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.AppointmentResponse, error) {
	appt, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(appt)
	return &resp, nil
}

func (s *Service) ListUpcoming(ctx context.Context, limit int) ([]transport.AppointmentResponse, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	appts, err := s.store.ListUpcoming(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	out := make([]transport.AppointmentResponse, 0, len(appts))
	for _, a := range appts {
		out = append(out, toResponse(&a))
	}
	return out, nil
}

func toResponse(a *repository.Appointment) transport.AppointmentResponse {
	return transport.AppointmentResponse{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		Phone:        a.Phone,
		Service:      a.Service,
		Date:         a.Date.Format(dateFormat),
		Time:         a.Time,
		Duration:     a.DurationMinutes,
		MeetingType:  a.MeetingType,
		Status:       a.Status,
		Notes:        a.Notes,
		ReminderSent: a.ReminderSent,
		BookedBy:     a.BookedBy,
		CreatedAt:    a.CreatedAt,
	}
}
