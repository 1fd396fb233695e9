package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"advisorhub_backend/internal/notification/repository"
	"advisorhub_backend/platform/apperr"
	"advisorhub_backend/platform/logger"
)

// fakeStore mirrors the unique dedup index on
// (type, related_id, recipient, recipient_id, action).
type fakeStore struct {
	mu   sync.Mutex
	rows []*repository.Notification
}

type dedupKey struct {
	typ         string
	relatedID   uuid.UUID
	recipient   string
	recipientID uuid.UUID
	action      string
}

func keyOf(n *repository.Notification) dedupKey {
	k := dedupKey{typ: n.Type, relatedID: n.RelatedID, recipient: n.Recipient, action: n.Action}
	if n.RecipientID != nil {
		k.recipientID = *n.RecipientID
	}
	return k
}

func (f *fakeStore) Insert(ctx context.Context, n *repository.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.rows {
		if keyOf(existing) == keyOf(n) {
			return false, nil
		}
	}
	cp := *n
	cp.CreatedAt = time.Now()
	f.rows = append(f.rows, &cp)
	return true, nil
}

func (f *fakeStore) List(ctx context.Context, spec repository.RecipientSpec, unreadOnly bool, limit, offset int) ([]repository.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Notification
	for _, n := range f.rows {
		if !f.matches(n, spec) {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, *n)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) matches(n *repository.Notification, spec repository.RecipientSpec) bool {
	if n.Recipient != spec.Recipient {
		return false
	}
	if (n.RecipientID == nil) != (spec.RecipientID == nil) {
		return false
	}
	return n.RecipientID == nil || *n.RecipientID == *spec.RecipientID
}

func (f *fakeStore) UnreadCount(ctx context.Context, spec repository.RecipientSpec) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, n := range f.rows {
		if f.matches(n, spec) && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.rows {
		if n.ID == id {
			n.IsRead = true
			return nil
		}
	}
	return apperr.NotFound("notification not found")
}

func (f *fakeStore) MarkAllRead(ctx context.Context, spec repository.RecipientSpec) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var changed int64
	for _, n := range f.rows {
		if f.matches(n, spec) && !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (f *fakeStore) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.rows {
		if n.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return nil
		}
	}
	return apperr.NotFound("notification not found")
}

var _ repository.Store = (*fakeStore)(nil)

func newTestService() (*Service, *fakeStore) {
	store := &fakeStore{}
	return NewService(store, logger.New("test")), store
}

func bookingNotice(relatedID uuid.UUID) Notice {
	return Notice{
		Type:         repository.TypeAppointment,
		Title:        "New appointment",
		Message:      "Asha Verma booked ITR Filing",
		RelatedID:    relatedID,
		RelatedModel: "appointment",
		Recipient:    repository.AdminSpec(),
	}
}

func TestNotifyCreateIsIdempotent(t *testing.T) {
	svc, store := newTestService()
	relatedID := uuid.New()

	created, err := svc.NotifyCreate(context.Background(), bookingNotice(relatedID))
	if err != nil {
		t.Fatalf("first NotifyCreate: %v", err)
	}
	if !created {
		t.Fatal("first notice should create a row")
	}

	created, err = svc.NotifyCreate(context.Background(), bookingNotice(relatedID))
	if err != nil {
		t.Fatalf("second NotifyCreate: %v", err)
	}
	if created {
		t.Fatal("repeat notice should be dropped")
	}
	if len(store.rows) != 1 {
		t.Fatalf("store holds %d rows, want 1", len(store.rows))
	}
}

func TestNotifyStateChangeScopedByAction(t *testing.T) {
	svc, store := newTestService()
	relatedID := uuid.New()

	for _, action := range []string{"confirmed", "cancelled", "confirmed"} {
		if _, err := svc.NotifyStateChange(context.Background(), bookingNotice(relatedID), action); err != nil {
			t.Fatalf("NotifyStateChange(%s): %v", action, err)
		}
	}

	// two distinct actions stick, the repeat of confirmed is dropped
	if len(store.rows) != 2 {
		t.Fatalf("store holds %d rows, want 2", len(store.rows))
	}
	for _, n := range store.rows {
		if n.Metadata["action"] != n.Action {
			t.Fatalf("metadata action %v does not match column %q", n.Metadata["action"], n.Action)
		}
	}
}

func TestNotifyStateChangeRequiresAction(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.NotifyStateChange(context.Background(), bookingNotice(uuid.New()), ""); err == nil {
		t.Fatal("empty action should be rejected")
	}
}

func TestCreateAndStateChangeDoNotCollide(t *testing.T) {
	svc, store := newTestService()
	relatedID := uuid.New()

	if _, err := svc.NotifyCreate(context.Background(), bookingNotice(relatedID)); err != nil {
		t.Fatalf("NotifyCreate: %v", err)
	}
	if _, err := svc.NotifyStateChange(context.Background(), bookingNotice(relatedID), "cancelled"); err != nil {
		t.Fatalf("NotifyStateChange: %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("store holds %d rows, want 2", len(store.rows))
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	svc, store := newTestService()
	admin := repository.AdminSpec()

	for i := 0; i < 3; i++ {
		if _, err := svc.NotifyCreate(context.Background(), bookingNotice(uuid.New())); err != nil {
			t.Fatalf("NotifyCreate: %v", err)
		}
	}

	count, err := svc.UnreadCount(context.Background(), admin)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 3 {
		t.Fatalf("unread = %d, want 3", count)
	}

	if err := svc.MarkRead(context.Background(), store.rows[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	count, _ = svc.UnreadCount(context.Background(), admin)
	if count != 2 {
		t.Fatalf("unread after MarkRead = %d, want 2", count)
	}

	changed, err := svc.MarkAllRead(context.Background(), admin)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if changed != 2 {
		t.Fatalf("MarkAllRead changed %d, want 2", changed)
	}
	count, _ = svc.UnreadCount(context.Background(), admin)
	if count != 0 {
		t.Fatalf("unread after MarkAllRead = %d, want 0", count)
	}
}

func TestMarkReadUnknownIDIsNotFound(t *testing.T) {
	svc, _ := newTestService()
	err := svc.MarkRead(context.Background(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestRecipientInboxesAreIsolated(t *testing.T) {
	svc, _ := newTestService()
	userID := uuid.New()

	notice := bookingNotice(uuid.New())
	notice.Recipient = repository.UserSpec(userID)
	if _, err := svc.NotifyCreate(context.Background(), notice); err != nil {
		t.Fatalf("NotifyCreate: %v", err)
	}

	adminCount, _ := svc.UnreadCount(context.Background(), repository.AdminSpec())
	if adminCount != 0 {
		t.Fatalf("admin unread = %d, want 0", adminCount)
	}
	userCount, _ := svc.UnreadCount(context.Background(), repository.UserSpec(userID))
	if userCount != 1 {
		t.Fatalf("user unread = %d, want 1", userCount)
	}
}
