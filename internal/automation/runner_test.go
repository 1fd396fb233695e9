package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	apptrepo "advisorhub_backend/internal/appointments/repository"
	"advisorhub_backend/internal/email"
	"advisorhub_backend/internal/events"
	leadrepo "advisorhub_backend/internal/leads/repository"
	leadsvc "advisorhub_backend/internal/leads/service"
	notifrepo "advisorhub_backend/internal/notification/repository"
	notifsvc "advisorhub_backend/internal/notification/service"
	"advisorhub_backend/platform/apperr"
	"advisorhub_backend/platform/logger"
)

var clockNow = time.Date(2026, 9, 4, 10, 0, 0, 0, time.UTC)

// ---- appointment store fake ----

type fakeApptStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*apptrepo.Appointment
}

func newFakeApptStore() *fakeApptStore {
	return &fakeApptStore{rows: make(map[uuid.UUID]*apptrepo.Appointment)}
}

func (f *fakeApptStore) Create(ctx context.Context, a *apptrepo.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeApptStore) GetByID(ctx context.Context, id uuid.UUID) (*apptrepo.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeApptStore) ListActiveTimes(ctx context.Context, date time.Time) ([]string, error) {
	return nil, nil
}

func (f *fakeApptStore) ListActiveBetween(ctx context.Context, from, to time.Time) ([]apptrepo.Appointment, error) {
	return nil, nil
}

func (f *fakeApptStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return nil
}

func (f *fakeApptStore) ListDueForReminder(ctx context.Context, windowStart, windowEnd time.Time) ([]apptrepo.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apptrepo.Appointment
	for _, a := range f.rows {
		if a.ReminderSent {
			continue
		}
		if a.Status != apptrepo.StatusPending && a.Status != apptrepo.StatusConfirmed {
			continue
		}
		start := a.StartsAt(time.UTC)
		if !start.Before(windowStart) && !start.After(windowEnd) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeApptStore) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return apperr.NotFound("appointment not found")
	}
	a.ReminderSent = true
	return nil
}

func (f *fakeApptStore) ListUpcoming(ctx context.Context, limit int) ([]apptrepo.Appointment, error) {
	return nil, nil
}

var _ apptrepo.Store = (*fakeApptStore)(nil)

// ---- lead store fake ----

type fakeLeadStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*leadrepo.Lead
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{rows: make(map[uuid.UUID]*leadrepo.Lead)}
}

func (f *fakeLeadStore) Create(ctx context.Context, l *leadrepo.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	f.rows[l.ID] = &cp
	return nil
}

func (f *fakeLeadStore) GetByID(ctx context.Context, id uuid.UUID) (*leadrepo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("lead not found")
	}
	cp := *l
	return &cp, nil
}

func (f *fakeLeadStore) GetByEmail(ctx context.Context, email string) (*leadrepo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.rows {
		if l.Email == email {
			cp := *l
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("lead not found")
}

func (f *fakeLeadStore) Update(ctx context.Context, l *leadrepo.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rows[l.ID]; !ok {
		return apperr.NotFound("lead not found")
	}
	cp := *l
	f.rows[l.ID] = &cp
	return nil
}

func (f *fakeLeadStore) List(ctx context.Context, priority string, limit int) ([]leadrepo.Lead, error) {
	return nil, nil
}

func (f *fakeLeadStore) ListFollowUpCandidates(ctx context.Context, day time.Time, cap int) ([]leadrepo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []leadrepo.Lead
	for _, l := range f.rows {
		if l.NextFollowUpDate == nil || l.ConvertedToCustomer || l.FollowUpCount >= cap {
			continue
		}
		if l.Status != leadrepo.StatusNew && l.Status != leadrepo.StatusContacted {
			continue
		}
		y1, m1, d1 := l.NextFollowUpDate.Date()
		y2, m2, d2 := day.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			out = append(out, *l)
		}
	}
	return out, nil
}

var _ leadrepo.Store = (*fakeLeadStore)(nil)

// ---- notification store fake ----

type fakeNotifStore struct {
	mu   sync.Mutex
	rows []*notifrepo.Notification
	keys map[string]struct{}
}

func newFakeNotifStore() *fakeNotifStore {
	return &fakeNotifStore{keys: make(map[string]struct{})}
}

func (f *fakeNotifStore) Insert(ctx context.Context, n *notifrepo.Notification) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := n.Type + "|" + n.RelatedID.String() + "|" + n.Recipient + "|" + n.Action
	if _, dup := f.keys[key]; dup {
		return false, nil
	}
	f.keys[key] = struct{}{}
	cp := *n
	f.rows = append(f.rows, &cp)
	return true, nil
}

func (f *fakeNotifStore) List(ctx context.Context, spec notifrepo.RecipientSpec, unreadOnly bool, limit, offset int) ([]notifrepo.Notification, error) {
	return nil, nil
}

func (f *fakeNotifStore) UnreadCount(ctx context.Context, spec notifrepo.RecipientSpec) (int, error) {
	return len(f.rows), nil
}

func (f *fakeNotifStore) MarkRead(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeNotifStore) MarkAllRead(ctx context.Context, spec notifrepo.RecipientSpec) (int64, error) {
	return 0, nil
}

func (f *fakeNotifStore) Delete(ctx context.Context, id uuid.UUID) error { return nil }

var _ notifrepo.Store = (*fakeNotifStore)(nil)

// ---- sender fake ----

type sentMessage struct {
	kind string
	to   string
	tier string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	fail map[string]error // keyed by destination
}

func (f *fakeSender) SendBookingConfirmation(ctx context.Context, to string, d email.BookingDetails) error {
	return f.record("confirmation", to, "")
}

func (f *fakeSender) SendAppointmentReminder(ctx context.Context, to string, d email.BookingDetails) error {
	return f.record("reminder", to, "")
}

func (f *fakeSender) SendFollowUp(ctx context.Context, to, name, priority string, n int) error {
	return f.record("follow_up", to, priority)
}

func (f *fakeSender) SendAdminAlert(ctx context.Context, to, subject, message string) error {
	return f.record("admin_alert", to, "")
}

func (f *fakeSender) record(kind, to, tier string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[to]; err != nil {
		return err
	}
	f.sent = append(f.sent, sentMessage{kind: kind, to: to, tier: tier})
	return nil
}

func (f *fakeSender) byKind(kind string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.kind == kind {
			out = append(out, m)
		}
	}
	return out
}

var _ email.Sender = (*fakeSender)(nil)

// ---- config fake ----

type testAutomationConfig struct{}

func (testAutomationConfig) GetReminderScanInterval() time.Duration { return time.Hour }
func (testAutomationConfig) GetFollowUpScanInterval() time.Duration { return 24 * time.Hour }
func (testAutomationConfig) GetReminderHorizon() time.Duration      { return 24 * time.Hour }
func (testAutomationConfig) GetReminderTolerance() time.Duration    { return time.Hour }
func (testAutomationConfig) GetFollowUpCap() int                    { return 5 }
func (testAutomationConfig) GetSendRatePerMinute() int              { return 60000 }

type nullBus struct{}

func (nullBus) Publish(ctx context.Context, e events.Event) {}

func (nullBus) PublishSync(ctx context.Context, e events.Event) error { return nil }

func (nullBus) Subscribe(name string, h events.Handler) {}

func newTestRunner(appts *fakeApptStore, leadStore *fakeLeadStore) (*Runner, *fakeSender, *fakeNotifStore) {
	log := logger.New("test")
	leads := leadsvc.NewService(leadStore, nullBus{}, log).WithClock(func() time.Time { return clockNow })
	sender := &fakeSender{fail: map[string]error{}}

	notifStore := newFakeNotifStore()
	notifier := notifsvc.NewService(notifStore, log)

	runner := NewRunner(appts, leads, notifier, sender, testAutomationConfig{}, log)
	runner.now = func() time.Time { return clockNow }
	return runner, sender, notifStore
}

func seedAppointment(store *fakeApptStore, startsIn time.Duration, status string) *apptrepo.Appointment {
	start := clockNow.Add(startsIn)
	appt := &apptrepo.Appointment{
		ID:      uuid.New(),
		Name:    "Asha Verma",
		Email:   "asha@example.com",
		Service: "ITR Filing",
		Date:    time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		Time:    start.Format("15:04"),
		Status:  status,
	}
	_ = store.Create(context.Background(), appt)
	return appt
}

func seedLead(store *fakeLeadStore, email, priority string, due time.Time) *leadrepo.Lead {
	lead := &leadrepo.Lead{
		ID:               uuid.New(),
		Name:             "Ravi Iyer",
		Email:            email,
		Source:           "contact_form",
		Status:           leadrepo.StatusNew,
		Priority:         priority,
		NextFollowUpDate: &due,
	}
	_ = store.Create(context.Background(), lead)
	return lead
}

func TestReminderScanSendsOnceAndFlipsFlag(t *testing.T) {
	appts := newFakeApptStore()
	runner, sender, _ := newTestRunner(appts, newFakeLeadStore())

	due := seedAppointment(appts, 24*time.Hour, apptrepo.StatusConfirmed)
	seedAppointment(appts, 48*time.Hour, apptrepo.StatusConfirmed)   // outside horizon
	seedAppointment(appts, 24*time.Hour, apptrepo.StatusCancelled)   // wrong status
	seedAppointment(appts, 30*time.Minute, apptrepo.StatusConfirmed) // too soon

	result, err := runner.ReminderScan(context.Background())
	if err != nil {
		t.Fatalf("ReminderScan: %v", err)
	}
	if result.Candidates != 1 || result.Sent != 1 || result.Failed != 0 {
		t.Fatalf("result = %+v, want one sent", result)
	}
	if got := len(sender.byKind("reminder")); got != 1 {
		t.Fatalf("sent %d reminders, want 1", got)
	}

	stored, _ := appts.GetByID(context.Background(), due.ID)
	if !stored.ReminderSent {
		t.Fatal("reminder flag not set")
	}

	// a second pass finds nothing to do
	result, err = runner.ReminderScan(context.Background())
	if err != nil {
		t.Fatalf("second ReminderScan: %v", err)
	}
	if result.Candidates != 0 {
		t.Fatalf("second pass candidates = %d, want 0", result.Candidates)
	}
	if got := len(sender.byKind("reminder")); got != 1 {
		t.Fatalf("sent %d reminders after second pass, want 1", got)
	}
}

func TestReminderScanToleranceBoundsWindow(t *testing.T) {
	appts := newFakeApptStore()
	runner, _, _ := newTestRunner(appts, newFakeLeadStore())

	seedAppointment(appts, 23*time.Hour+30*time.Minute, apptrepo.StatusPending) // inside
	seedAppointment(appts, 24*time.Hour+30*time.Minute, apptrepo.StatusPending) // inside
	seedAppointment(appts, 22*time.Hour, apptrepo.StatusPending)                // below
	seedAppointment(appts, 26*time.Hour, apptrepo.StatusPending)                // above

	result, err := runner.ReminderScan(context.Background())
	if err != nil {
		t.Fatalf("ReminderScan: %v", err)
	}
	if result.Candidates != 2 {
		t.Fatalf("candidates = %d, want 2", result.Candidates)
	}
}

func TestReminderScanFailureStillFlipsFlagAndContinues(t *testing.T) {
	appts := newFakeApptStore()
	runner, sender, _ := newTestRunner(appts, newFakeLeadStore())

	failing := seedAppointment(appts, 24*time.Hour, apptrepo.StatusConfirmed)
	healthy := seedAppointment(appts, 23*time.Hour+30*time.Minute, apptrepo.StatusConfirmed)
	healthy.Email = "ok@example.com"
	_ = appts.Create(context.Background(), healthy)

	sender.fail["asha@example.com"] = errors.New("mailbox unavailable")

	result, err := runner.ReminderScan(context.Background())
	if err != nil {
		t.Fatalf("ReminderScan: %v", err)
	}
	if result.Failed != 1 || result.Sent != 1 {
		t.Fatalf("result = %+v, want one failed and one sent", result)
	}

	stored, _ := appts.GetByID(context.Background(), failing.ID)
	if !stored.ReminderSent {
		t.Fatal("failed send must still flip the reminder flag")
	}
}

func TestFollowUpScanSendsAndReschedules(t *testing.T) {
	leadStore := newFakeLeadStore()
	runner, sender, _ := newTestRunner(newFakeApptStore(), leadStore)

	lead := seedLead(leadStore, "ravi@example.com", "urgent", clockNow)

	result, err := runner.FollowUpScan(context.Background())
	if err != nil {
		t.Fatalf("FollowUpScan: %v", err)
	}
	if result.Sent != 1 {
		t.Fatalf("result = %+v, want one sent", result)
	}
	msgs := sender.byKind("follow_up")
	if len(msgs) != 1 || msgs[0].tier != "urgent" {
		t.Fatalf("follow-ups = %+v, want one urgent-tier message", msgs)
	}

	stored, _ := leadStore.GetByID(context.Background(), lead.ID)
	if stored.FollowUpCount != 1 {
		t.Fatalf("followUpCount = %d, want 1", stored.FollowUpCount)
	}
	if stored.LastContactDate == nil || !stored.LastContactDate.Equal(clockNow) {
		t.Fatalf("lastContactDate = %v, want scan time", stored.LastContactDate)
	}
	if stored.NextFollowUpDate == nil || !stored.NextFollowUpDate.Equal(clockNow.Add(24*time.Hour)) {
		t.Fatalf("nextFollowUpDate = %v, want next day for the urgent tier", stored.NextFollowUpDate)
	}
	last := stored.ActivityLog[len(stored.ActivityLog)-1]
	if last.Type != "follow_up_sent" {
		t.Fatalf("last activity = %q, want follow_up_sent", last.Type)
	}

	// rescheduled out of today, so a second pass finds nothing
	result, err = runner.FollowUpScan(context.Background())
	if err != nil {
		t.Fatalf("second FollowUpScan: %v", err)
	}
	if result.Candidates != 0 {
		t.Fatalf("second pass candidates = %d, want 0", result.Candidates)
	}
}

func TestFollowUpScanSendFailureLeavesLeadDue(t *testing.T) {
	leadStore := newFakeLeadStore()
	runner, sender, _ := newTestRunner(newFakeApptStore(), leadStore)

	lead := seedLead(leadStore, "ravi@example.com", "medium", clockNow)
	sender.fail["ravi@example.com"] = errors.New("mailbox unavailable")

	result, err := runner.FollowUpScan(context.Background())
	if err != nil {
		t.Fatalf("FollowUpScan: %v", err)
	}
	if result.Failed != 1 || result.Sent != 0 {
		t.Fatalf("result = %+v, want one failed", result)
	}

	stored, _ := leadStore.GetByID(context.Background(), lead.ID)
	if stored.FollowUpCount != 0 {
		t.Fatalf("followUpCount = %d, want 0 after failed send", stored.FollowUpCount)
	}

	// the lead is still due once the mailbox recovers
	delete(sender.fail, "ravi@example.com")
	result, _ = runner.FollowUpScan(context.Background())
	if result.Sent != 1 {
		t.Fatalf("retry result = %+v, want one sent", result)
	}
}

func TestReminderScanRecordsAdminNotice(t *testing.T) {
	appts := newFakeApptStore()
	runner, _, notifStore := newTestRunner(appts, newFakeLeadStore())

	seedAppointment(appts, 24*time.Hour, apptrepo.StatusConfirmed)

	if _, err := runner.ReminderScan(context.Background()); err != nil {
		t.Fatalf("ReminderScan: %v", err)
	}
	if len(notifStore.rows) != 1 {
		t.Fatalf("notices = %d, want 1", len(notifStore.rows))
	}
	if notifStore.rows[0].Action != "reminder_sent" {
		t.Fatalf("action = %q, want reminder_sent", notifStore.rows[0].Action)
	}
}
