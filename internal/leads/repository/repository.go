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
	leadNotFoundMsg = "lead not found"

	pgUniqueViolation = "23505"
)

const leadColumns = `id, name, email, phone, source, status, score, priority,
	interested_services, budget, activity_log, last_contact_date,
	next_follow_up_date, follow_up_count, converted_to_customer, created_at, updated_at`

// Repo implements the Store interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Store.
var _ Store = (*Repo)(nil)

// Create inserts a new lead. The unique index on email makes a concurrent
// double-capture surface here as a conflict instead of a duplicate row.
func (r *Repo) Create(ctx context.Context, lead *Lead) error {
	query := `
		INSERT INTO leads (
			id, name, email, phone, source, status, score, priority,
			interested_services, budget, activity_log, last_contact_date,
			next_follow_up_date, follow_up_count, converted_to_customer,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17
		)`

	now := time.Now()
	lead.CreatedAt = now
	lead.UpdatedAt = now

	_, err := r.pool.Exec(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Source, lead.Status,
		lead.Score, lead.Priority, lead.InterestedServices, lead.Budget,
		lead.ActivityLog, lead.LastContactDate, lead.NextFollowUpDate,
		lead.FollowUpCount, lead.ConvertedToCustomer, lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return apperr.Conflict("lead already exists for this email")
		}
		return fmt.Errorf("failed to create lead: %w", err)
	}

	return nil
}

// GetByID retrieves a lead by its ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// GetByEmail retrieves a lead by its normalized email.
func (r *Repo) GetByEmail(ctx context.Context, email string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE email = $1`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(leadNotFoundMsg)
		}
		return nil, fmt.Errorf("failed to get lead by email: %w", err)
	}
	return lead, nil
}

// Update persists every mutable field of the lead.
func (r *Repo) Update(ctx context.Context, lead *Lead) error {
	query := `
		UPDATE leads SET
			name = $2, phone = $3, status = $4, score = $5, priority = $6,
			interested_services = $7, budget = $8, activity_log = $9,
			last_contact_date = $10, next_follow_up_date = $11,
			follow_up_count = $12, converted_to_customer = $13, updated_at = $14
		WHERE id = $1`

	lead.UpdatedAt = time.Now()

	tag, err := r.pool.Exec(ctx, query,
		lead.ID, lead.Name, lead.Phone, lead.Status, lead.Score, lead.Priority,
		lead.InterestedServices, lead.Budget, lead.ActivityLog,
		lead.LastContactDate, lead.NextFollowUpDate, lead.FollowUpCount,
		lead.ConvertedToCustomer, lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(leadNotFoundMsg)
	}
	return nil
}

// List returns leads ordered by score descending, optionally filtered by
// priority tier.
func (r *Repo) List(ctx context.Context, priority string, limit int) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	args := []any{}
	if priority != "" {
		query += ` WHERE priority = $1`
		args = append(args, priority)
	}
	query += fmt.Sprintf(` ORDER BY score DESC, created_at DESC LIMIT %d`, limit)

	return r.queryLeads(ctx, query, args...)
}

// ListFollowUpCandidates returns the leads due for a follow-up on day's
// calendar date.
func (r *Repo) ListFollowUpCandidates(ctx context.Context, day time.Time, cap int) ([]Lead, error) {
	query := `
		SELECT ` + leadColumns + `
		FROM leads
		WHERE next_follow_up_date::date = $1::date
		  AND status IN ($2, $3)
		  AND converted_to_customer = FALSE
		  AND follow_up_count < $4
		ORDER BY score DESC`

	return r.queryLeads(ctx, query, day, StatusNew, StatusContacted, cap)
}

func (r *Repo) queryLeads(ctx context.Context, query string, args ...any) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, *lead)
	}
	return leads, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.Name, &lead.Email, &lead.Phone, &lead.Source,
		&lead.Status, &lead.Score, &lead.Priority, &lead.InterestedServices,
		&lead.Budget, &lead.ActivityLog, &lead.LastContactDate,
		&lead.NextFollowUpDate, &lead.FollowUpCount, &lead.ConvertedToCustomer,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}
