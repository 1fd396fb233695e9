package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Recipient classes. Admin-class notifications have no recipient id;
// user-class ones are addressed to a specific user.
const (
	RecipientAdmin = "admin"
	RecipientUser  = "user"
)

// Notification types by originating domain.
const (
	TypeAppointment = "appointment"
	TypeLead        = "lead"
	TypeAutomation  = "automation"
)

// Notification represents the notification database model. Action is the
// state-change discriminator; creation notices use the empty string.
// RelatedID is a weak reference, deleting the related entity leaves the
// notification in place.
type Notification struct {
	ID           uuid.UUID      `db:"id"`
	Type         string         `db:"type"`
	Title        string         `db:"title"`
	Message      string         `db:"message"`
	RelatedID    uuid.UUID      `db:"related_id"`
	RelatedModel string         `db:"related_model"`
	Recipient    string         `db:"recipient"`
	RecipientID  *uuid.UUID     `db:"recipient_id"`
	Action       string         `db:"action"`
	IsRead       bool           `db:"is_read"`
	Metadata     map[string]any `db:"metadata"`
	CreatedAt    time.Time      `db:"created_at"`
}

// RecipientSpec addresses a notification query: a class, plus a user id
// for the user class.
type RecipientSpec struct {
	Recipient   string
	RecipientID *uuid.UUID
}

// AdminSpec addresses the shared admin inbox.
func AdminSpec() RecipientSpec {
	return RecipientSpec{Recipient: RecipientAdmin}
}

// UserSpec addresses one user's inbox.
func UserSpec(id uuid.UUID) RecipientSpec {
	return RecipientSpec{Recipient: RecipientUser, RecipientID: &id}
}

// Store provides persistence for notifications.
type Store interface {
	// Insert writes the notification unless the dedup key
	// (type, related_id, recipient, recipient_id, action) is already
	// present. It reports whether a row was actually created.
	Insert(ctx context.Context, n *Notification) (bool, error)

	// List returns the recipient's notifications, newest first.
	List(ctx context.Context, spec RecipientSpec, unreadOnly bool, limit, offset int) ([]Notification, error)

	UnreadCount(ctx context.Context, spec RecipientSpec) (int, error)

	// MarkRead flips the read flag. Unknown ids return a not-found error.
	MarkRead(ctx context.Context, id uuid.UUID) error

	// MarkAllRead flips the read flag on every unread notification of the
	// recipient and returns how many rows changed.
	MarkAllRead(ctx context.Context, spec RecipientSpec) (int64, error)

	Delete(ctx context.Context, id uuid.UUID) error
}
