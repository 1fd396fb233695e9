package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"advisorhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	appointmentNotFoundMsg = "appointment not found"
	slotTakenMsg           = "slot already booked"

	// pgUniqueViolation is the Postgres error code raised by the partial
	// unique index on (appointment_date, appointment_time).
	pgUniqueViolation = "23505"
)

const appointmentColumns = `id, name, email, phone, service, appointment_date, appointment_time,
	duration_minutes, meeting_type, status, notes, reminder_sent, booked_by, created_at, updated_at`

// Repo implements the Store interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new appointments repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Store.
var _ Store = (*Repo)(nil)

// Create inserts a new appointment. The partial unique index on active
// (date, time) pairs closes the booking race: the loser of two concurrent
// inserts gets a conflict error here, not a duplicate row.
func (r *Repo) Create(ctx context.Context, appt *Appointment) error {
	query := `
		INSERT INTO appointments (
			id, name, email, phone, service, appointment_date, appointment_time,
			duration_minutes, meeting_type, status, notes, reminder_sent, booked_by,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`

	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	_, err := r.pool.Exec(ctx, query,
		appt.ID, appt.Name, appt.Email, appt.Phone, appt.Service, appt.Date,
		appt.Time, appt.DurationMinutes, appt.MeetingType, appt.Status,
		appt.Notes, appt.ReminderSent, appt.BookedBy, appt.CreatedAt, appt.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.Conflict(slotTakenMsg)
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

// GetByID retrieves an appointment by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(appointmentNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	return appt, nil
}

// ListActiveTimes returns booked "HH:MM" values for a calendar day.
func (r *Repo) ListActiveTimes(ctx context.Context, date time.Time) ([]string, error) {
	query := `SELECT appointment_time FROM appointments
		WHERE appointment_date = $1 AND status IN ($2, $3)
		ORDER BY appointment_time`

	rows, err := r.pool.Query(ctx, query, date, StatusPending, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to list booked times: %w", err)
	}
	defer rows.Close()

	times := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan booked time: %w", err)
		}
		times = append(times, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate booked times: %w", err)
	}

	return times, nil
}

// ListActiveBetween returns pending and confirmed appointments in a date range.
func (r *Repo) ListActiveBetween(ctx context.Context, from, to time.Time) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE appointment_date BETWEEN $1 AND $2 AND status IN ($3, $4)
		ORDER BY appointment_date, appointment_time`

	return r.queryAppointments(ctx, query, from, to, StatusPending, StatusConfirmed)
}

// UpdateStatus sets the appointment status.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE appointments SET status = $1, updated_at = now() WHERE id = $2`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(appointmentNotFoundMsg)
	}
	return nil
}

// ListDueForReminder selects reminder candidates by wall-clock start time.
func (r *Repo) ListDueForReminder(ctx context.Context, windowStart, windowEnd time.Time) ([]Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE appointment_date + appointment_time::time BETWEEN $1 AND $2
		  AND status IN ($3, $4)
		  AND reminder_sent = FALSE
		ORDER BY appointment_date, appointment_time`

	return r.queryAppointments(ctx, query, windowStart, windowEnd, StatusPending, StatusConfirmed)
}

// MarkReminderSent flips the reminder flag. The flag never goes back to
// false, so repeat scans skip the row.
func (r *Repo) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE appointments SET reminder_sent = TRUE, updated_at = now() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(appointmentNotFoundMsg)
	}
	return nil
}

// ListUpcoming returns future pending and confirmed appointments.
func (r *Repo) ListUpcoming(ctx context.Context, limit int) ([]Appointment, error) {
	if limit < 1 {
		limit = 50
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments
		WHERE appointment_date >= CURRENT_DATE AND status IN ($1, $2)
		ORDER BY appointment_date, appointment_time
		LIMIT $3`

	return r.queryAppointments(ctx, query, StatusPending, StatusConfirmed, limit)
}

func (r *Repo) queryAppointments(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	items := make([]Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		items = append(items, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*Appointment, error) {
	var appt Appointment
	err := row.Scan(
		&appt.ID, &appt.Name, &appt.Email, &appt.Phone, &appt.Service,
		&appt.Date, &appt.Time, &appt.DurationMinutes, &appt.MeetingType,
		&appt.Status, &appt.Notes, &appt.ReminderSent, &appt.BookedBy,
		&appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}
