package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. Pending and confirmed appointments occupy their
// slot; the remaining statuses release it.
const (
	StatusPending     = "pending"
	StatusConfirmed   = "confirmed"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
	StatusRescheduled = "rescheduled"
)

// Appointment represents the appointment database model. Date carries the
// calendar day (midnight UTC); Time is a "HH:MM" clock string at slot
// granularity.
type Appointment struct {
	ID              uuid.UUID `db:"id"`
	Name            string    `db:"name"`
	Email           string    `db:"email"`
	Phone           string    `db:"phone"`
	Service         string    `db:"service"`
	Date            time.Time `db:"appointment_date"`
	Time            string    `db:"appointment_time"`
	DurationMinutes int       `db:"duration_minutes"`
	MeetingType     string    `db:"meeting_type"`
	Status          string    `db:"status"`
	Notes           *string   `db:"notes"`
	ReminderSent    bool      `db:"reminder_sent"`
	BookedBy        string    `db:"booked_by"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// StartsAt returns the appointment's wall-clock start in loc.
func (a *Appointment) StartsAt(loc *time.Location) time.Time {
	clock, err := time.Parse("15:04", a.Time)
	if err != nil {
		return a.Date
	}
	return time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(),
		clock.Hour(), clock.Minute(), 0, 0, loc)
}

// Store provides persistence for appointments.
type Store interface {
	// Create inserts a new appointment. Returns a conflict error when a
	// pending or confirmed appointment already holds the same (date, time),
	// enforced by a partial unique index rather than a read-then-write check.
	Create(ctx context.Context, appt *Appointment) error

	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// ListActiveTimes returns the "HH:MM" values of pending and confirmed
	// appointments on the given calendar day.
	ListActiveTimes(ctx context.Context, date time.Time) ([]string, error)

	// ListActiveBetween returns pending and confirmed appointments with a
	// calendar date in [from, to].
	ListActiveBetween(ctx context.Context, from, to time.Time) ([]Appointment, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error

	// ListDueForReminder returns pending and confirmed appointments whose
	// start falls in [windowStart, windowEnd] and that have not been
	// reminded yet.
	ListDueForReminder(ctx context.Context, windowStart, windowEnd time.Time) ([]Appointment, error)

	// MarkReminderSent irreversibly flips the reminder flag.
	MarkReminderSent(ctx context.Context, id uuid.UUID) error

	ListUpcoming(ctx context.Context, limit int) ([]Appointment, error)
}
