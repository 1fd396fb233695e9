// Package transport defines response DTOs for the notification module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"advisorhub_backend/internal/notification/repository"
)

// NotificationResponse is the API representation of a notification.
type NotificationResponse struct {
	ID           uuid.UUID      `json:"id"`
	Type         string         `json:"type"`
	Title        string         `json:"title"`
	Message      string         `json:"message"`
	RelatedID    uuid.UUID      `json:"relatedId"`
	RelatedModel string         `json:"relatedModel"`
	Action       string         `json:"action,omitempty"`
	IsRead       bool           `json:"isRead"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// UnreadCountResponse carries the unread counter.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}

// MarkAllReadResponse reports how many notifications were flipped.
type MarkAllReadResponse struct {
	Updated int64 `json:"updated"`
}

// FromNotification maps the database model onto the API representation.
func FromNotification(n *repository.Notification) NotificationResponse {
	return NotificationResponse{
		ID:           n.ID,
		Type:         n.Type,
		Title:        n.Title,
		Message:      n.Message,
		RelatedID:    n.RelatedID,
		RelatedModel: n.RelatedModel,
		Action:       n.Action,
		IsRead:       n.IsRead,
		Metadata:     n.Metadata,
		CreatedAt:    n.CreatedAt,
	}
}
