package repository

import (
	"context"
	"fmt"
	"time"

	"advisorhub_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const notificationNotFoundMsg = "notification not found"

const notificationColumns = `id, type, title, message, related_id, related_model,
	recipient, recipient_id, action, is_read, metadata, created_at`

// Repo implements the Store interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new notifications repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Store.
var _ Store = (*Repo)(nil)

// Insert writes the notification, relying on the unique dedup index to
// swallow repeats. RowsAffected tells us whether this call won.
func (r *Repo) Insert(ctx context.Context, n *Notification) (bool, error) {
	query := `
		INSERT INTO notifications (
			id, type, title, message, related_id, related_model,
			recipient, recipient_id, action, is_read, metadata, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
		ON CONFLICT DO NOTHING`

	n.CreatedAt = time.Now()

	tag, err := r.pool.Exec(ctx, query,
		n.ID, n.Type, n.Title, n.Message, n.RelatedID, n.RelatedModel,
		n.Recipient, n.RecipientID, n.Action, n.IsRead, n.Metadata, n.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// List returns the recipient's notifications, newest first.
func (r *Repo) List(ctx context.Context, spec RecipientSpec, unreadOnly bool, limit, offset int) ([]Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE recipient = $1 AND recipient_id IS NOT DISTINCT FROM $2`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query, spec.Recipient, spec.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		err := rows.Scan(
			&n.ID, &n.Type, &n.Title, &n.Message, &n.RelatedID, &n.RelatedModel,
			&n.Recipient, &n.RecipientID, &n.Action, &n.IsRead, &n.Metadata, &n.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// UnreadCount returns the recipient's unread notification count.
func (r *Repo) UnreadCount(ctx context.Context, spec RecipientSpec) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient = $1 AND recipient_id IS NOT DISTINCT FROM $2 AND is_read = FALSE`

	var count int
	if err := r.pool.QueryRow(ctx, query, spec.Recipient, spec.RecipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips the read flag on one notification.
func (r *Repo) MarkRead(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(notificationNotFoundMsg)
	}
	return nil
}

// MarkAllRead flips the read flag on every unread notification of the
// recipient.
func (r *Repo) MarkAllRead(ctx context.Context, spec RecipientSpec) (int64, error) {
	query := `
		UPDATE notifications SET is_read = TRUE
		WHERE recipient = $1 AND recipient_id IS NOT DISTINCT FROM $2 AND is_read = FALSE`

	tag, err := r.pool.Exec(ctx, query, spec.Recipient, spec.RecipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Delete removes one notification. Administrative use only.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(notificationNotFoundMsg)
	}
	return nil
}
