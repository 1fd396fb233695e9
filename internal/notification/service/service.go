// Package service contains the notification dispatcher: idempotent
// first-notice creation and action-scoped state-change notices.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"advisorhub_backend/internal/notification/repository"
	"advisorhub_backend/platform/logger"
)

// Notice is the dispatch input shared by both notification paths.
type Notice struct {
	Type         string
	Title        string
	Message      string
	RelatedID    uuid.UUID
	RelatedModel string
	Recipient    repository.RecipientSpec
	Metadata     map[string]any
}

// Service implements the notification dispatcher operations.
type Service struct {
	store repository.Store
	log   *logger.Logger
}

func NewService(store repository.Store, log *logger.Logger) *Service {
	return &Service{
		store: store,
		log:   log.WithComponent("notification.service"),
	}
}

// NotifyCreate records a first-occurrence notice. Repeats for the same
// (type, related entity, recipient) are silently dropped; the return value
// reports whether this call created the notification.
func (s *Service) NotifyCreate(ctx context.Context, notice Notice) (bool, error) {
	return s.insert(ctx, notice, "")
}

// NotifyStateChange records a state transition notice. The action
// discriminator widens the dedup key, so one entity can accumulate one
// notice per distinct action while repeats of the same action are dropped.
func (s *Service) NotifyStateChange(ctx context.Context, notice Notice, action string) (bool, error) {
	if action == "" {
		return false, fmt.Errorf("state change notice requires an action")
	}
	return s.insert(ctx, notice, action)
}

func (s *Service) insert(ctx context.Context, notice Notice, action string) (bool, error) {
	metadata := notice.Metadata
	if action != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		metadata["action"] = action
	}

	created, err := s.store.Insert(ctx, &repository.Notification{
		ID:           uuid.New(),
		Type:         notice.Type,
		Title:        notice.Title,
		Message:      notice.Message,
		RelatedID:    notice.RelatedID,
		RelatedModel: notice.RelatedModel,
		Recipient:    notice.Recipient.Recipient,
		RecipientID:  notice.Recipient.RecipientID,
		Action:       action,
		Metadata:     metadata,
	})
	if err != nil {
		return false, err
	}
	if !created {
		s.log.Debug("duplicate notification dropped",
			"type", notice.Type,
			"relatedId", notice.RelatedID,
			"action", action,
		)
	}
	return created, nil
}

// List returns one page of the recipient's notifications, newest first.
func (s *Service) List(ctx context.Context, spec repository.RecipientSpec, unreadOnly bool, page, pageSize int) ([]repository.Notification, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return s.store.List(ctx, spec, unreadOnly, pageSize, (page-1)*pageSize)
}

func (s *Service) UnreadCount(ctx context.Context, spec repository.RecipientSpec) (int, error) {
	return s.store.UnreadCount(ctx, spec)
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.store.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, spec repository.RecipientSpec) (int64, error) {
	return s.store.MarkAllRead(ctx, spec)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}
