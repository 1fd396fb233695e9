package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"advisorhub_backend/internal/appointments/repository"
	"advisorhub_backend/internal/appointments/transport"
	"advisorhub_backend/internal/events"
	"advisorhub_backend/platform/apperr"
	"advisorhub_backend/platform/config"
	"advisorhub_backend/platform/logger"
)

// fakeStore is an in-memory Store that mirrors the partial unique index:
// inserting a second pending or confirmed appointment on the same
// (date, time) returns a conflict.
type fakeStore struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*repository.Appointment
	fails map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uuid.UUID]*repository.Appointment)}
}

func (f *fakeStore) active(a *repository.Appointment) bool {
	return a.Status == repository.StatusPending || a.Status == repository.StatusConfirmed
}

func (f *fakeStore) Create(ctx context.Context, appt *repository.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if f.active(a) && a.Date.Equal(appt.Date) && a.Time == appt.Time {
			return apperr.Conflict("slot already booked")
		}
	}
	cp := *appt
	cp.CreatedAt = time.Now()
	f.rows[appt.ID] = &cp
	return nil
}

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*repository.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return nil, apperr.NotFound("appointment not found")
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) ListActiveTimes(ctx context.Context, date time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var times []string
	for _, a := range f.rows {
		if f.active(a) && a.Date.Equal(date) {
			times = append(times, a.Time)
		}
	}
	return times, nil
}

func (f *fakeStore) ListActiveBetween(ctx context.Context, from, to time.Time) ([]repository.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.Appointment
	for _, a := range f.rows {
		if f.active(a) && !a.Date.Before(from) && !a.Date.After(to) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return apperr.NotFound("appointment not found")
	}
	a.Status = status
	return nil
}

func (f *fakeStore) ListDueForReminder(ctx context.Context, windowStart, windowEnd time.Time) ([]repository.Appointment, error) {
	return nil, nil
}

func (f *fakeStore) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.rows[id]
	if !ok {
		return apperr.NotFound("appointment not found")
	}
	a.ReminderSent = true
	return nil
}

func (f *fakeStore) ListUpcoming(ctx context.Context, limit int) ([]repository.Appointment, error) {
	return f.ListActiveBetween(ctx, time.Time{}, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))
}

var _ repository.Store = (*fakeStore)(nil)

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, e events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
}

func (b *recordingBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *recordingBus) Subscribe(name string, h events.Handler) {}

func (b *recordingBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

// testBookingConfig opens Monday through Friday 09:00 to 11:00 with
// 30 minute slots, giving a four slot grid per open day.
type testBookingConfig struct{}

func (testBookingConfig) GetSlotDurationMinutes() int { return 30 }
func (testBookingConfig) GetLookaheadDays() int       { return 7 }
func (testBookingConfig) GetBusinessHours() map[time.Weekday]config.HoursWindow {
	hours := make(map[time.Weekday]config.HoursWindow)
	for d := time.Monday; d <= time.Friday; d++ {
		hours[d] = config.HoursWindow{Open: "09:00", Close: "11:00"}
	}
	return hours
}

// monday 2026-09-07 00:00 local; every test pins the clock to the
// preceding friday morning so the whole week ahead is bookable.
var (
	clockNow = time.Date(2026, 9, 4, 8, 0, 0, 0, time.UTC)
	monday   = "2026-09-07"
)

func newTestService(store repository.Store, bus events.Bus) *Service {
	svc := NewService(store, testBookingConfig{}, bus, logger.New("test"))
	svc.now = func() time.Time { return clockNow }
	return svc
}

func reserveReq(date, clock string) transport.ReserveRequest {
	return transport.ReserveRequest{
		Name:    "Asha Verma",
		Email:   "asha@example.com",
		Phone:   "+919876543210",
		Service: "ITR Filing",
		Date:    date,
		Time:    clock,
	}
}

func TestAvailableSlotsGridOrderingAndSpacing(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{})

	resp, err := svc.AvailableSlots(context.Background(), 7)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}

	// friday 2026-09-04 has passed 08:00 slots still open, weekend closed
	if len(resp.Days) == 0 {
		t.Fatal("expected at least one open day")
	}
	for i := 1; i < len(resp.Days); i++ {
		if resp.Days[i].Date <= resp.Days[i-1].Date {
			t.Fatalf("days out of order: %s after %s", resp.Days[i].Date, resp.Days[i-1].Date)
		}
	}
	for _, day := range resp.Days {
		if day.Date == "2026-09-05" || day.Date == "2026-09-06" {
			t.Fatalf("closed day %s listed", day.Date)
		}
		want := []string{"09:00", "09:30", "10:00", "10:30"}
		if len(day.Slots) != len(want) {
			t.Fatalf("day %s: got slots %v, want %v", day.Date, day.Slots, want)
		}
		for i, slot := range day.Slots {
			if slot != want[i] {
				t.Fatalf("day %s: got slots %v, want %v", day.Date, day.Slots, want)
			}
		}
	}
}

func TestAvailableSlotsExcludesBookedTimes(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	if _, err := svc.Reserve(context.Background(), reserveReq(monday, "09:30"), transport.BookedByCustomer); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	resp, err := svc.AvailableSlots(context.Background(), 7)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	for _, day := range resp.Days {
		if day.Date != monday {
			continue
		}
		for _, slot := range day.Slots {
			if slot == "09:30" {
				t.Fatal("booked slot still listed as available")
			}
		}
		if len(day.Slots) != 3 {
			t.Fatalf("got %d slots on %s, want 3", len(day.Slots), monday)
		}
		return
	}
	t.Fatalf("day %s missing from availability", monday)
}

func TestReserveRejectsOutsideBusinessHours(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{})

	cases := []struct{ date, clock string }{
		{monday, "08:30"},       // before opening
		{monday, "11:00"},       // at close, slot would overrun
		{monday, "09:15"},       // off the slot grid
		{"2026-09-06", "09:00"}, // sunday, closed
		{"2026-09-03", "09:00"}, // yesterday
	}
	for _, tc := range cases {
		_, err := svc.Reserve(context.Background(), reserveReq(tc.date, tc.clock), transport.BookedByCustomer)
		if apperr.GetKind(err) != apperr.KindValidation {
			t.Fatalf("Reserve(%s %s): got %v, want validation error", tc.date, tc.clock, err)
		}
	}
}

func TestReserveConflictOnTakenSlot(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	if _, err := svc.Reserve(context.Background(), reserveReq(monday, "10:00"), transport.BookedByCustomer); err != nil {
		t.Fatalf("first Reserve: %v", err)
	}
	_, err := svc.Reserve(context.Background(), reserveReq(monday, "10:00"), transport.BookedByCustomer)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("second Reserve: got %v, want conflict", err)
	}

	if got := len(bus.named("appointments.booked")); got != 1 {
		t.Fatalf("published %d booked events, want 1", got)
	}
}

func TestReserveConflictFromStoreRace(t *testing.T) {
	// the store holds a booking the pre-check cannot see, simulating a
	// concurrent insert landing between check and create
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	raced := &repository.Appointment{
		ID:     uuid.New(),
		Date:   time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		Time:   "10:00",
		Status: repository.StatusPending,
	}
	if err := store.Create(context.Background(), raced); err != nil {
		t.Fatalf("seed: %v", err)
	}

	req := reserveReq(monday, "10:00")
	date, _ := time.Parse("2006-01-02", monday)
	_, err := svc.insertAppointment(context.Background(), req, date, transport.BookedByCustomer)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("insertAppointment: got %v, want conflict", err)
	}
}

func TestAutoReservePrefersRequestedSlot(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{})

	date, clock := monday, "10:30"
	resp, err := svc.AutoReserve(context.Background(), transport.AutoReserveRequest{
		Name:          "Asha Verma",
		Email:         "asha@example.com",
		Service:       "GST Registration",
		PreferredDate: &date,
		PreferredTime: &clock,
	}, transport.BookedByAgent)
	if err != nil {
		t.Fatalf("AutoReserve: %v", err)
	}
	if resp.Date != monday || resp.Time != "10:30" {
		t.Fatalf("got %s %s, want preferred slot", resp.Date, resp.Time)
	}
	if resp.BookedBy != transport.BookedByAgent {
		t.Fatalf("bookedBy = %q, want %q", resp.BookedBy, transport.BookedByAgent)
	}
}

func TestAutoReserveFallsBackWhenPreferredTaken(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	if _, err := svc.Reserve(context.Background(), reserveReq(monday, "09:00"), transport.BookedByCustomer); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	date, clock := monday, "09:00"
	resp, err := svc.AutoReserve(context.Background(), transport.AutoReserveRequest{
		Name:          "Ravi Iyer",
		Email:         "ravi@example.com",
		Service:       "ITR Filing",
		PreferredDate: &date,
		PreferredTime: &clock,
	}, transport.BookedByAgent)
	if err != nil {
		t.Fatalf("AutoReserve: %v", err)
	}
	if resp.Date == monday && resp.Time == "09:00" {
		t.Fatal("auto reserve landed on the taken slot")
	}
}

func TestAutoReserveFailsWhenWindowFull(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	// fill every grid slot of every open day in the look-ahead window
	for i := 0; i < 7; i++ {
		date := time.Date(2026, 9, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		for _, clock := range []string{"09:00", "09:30", "10:00", "10:30"} {
			_ = store.Create(context.Background(), &repository.Appointment{
				ID:     uuid.New(),
				Date:   date,
				Time:   clock,
				Status: repository.StatusConfirmed,
			})
		}
	}

	_, err := svc.AutoReserve(context.Background(), transport.AutoReserveRequest{
		Name:    "Ravi Iyer",
		Email:   "ravi@example.com",
		Service: "ITR Filing",
	}, transport.BookedByAgent)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("AutoReserve on full window: got %v, want validation error", err)
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	created, err := svc.Reserve(context.Background(), reserveReq(monday, "09:00"), transport.BookedByCustomer)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	first, err := svc.Cancel(context.Background(), created.ID, transport.CancelRequest{Reason: "client request"})
	if err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	if first.Status != repository.StatusCancelled {
		t.Fatalf("status = %q, want cancelled", first.Status)
	}

	second, err := svc.Cancel(context.Background(), created.ID, transport.CancelRequest{})
	if err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if second.Status != repository.StatusCancelled {
		t.Fatalf("status = %q, want cancelled", second.Status)
	}

	if got := len(bus.named("appointments.cancelled")); got != 1 {
		t.Fatalf("published %d cancelled events, want 1", got)
	}
}

func TestCancelledSlotBecomesAvailableAgain(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store, &recordingBus{})

	created, err := svc.Reserve(context.Background(), reserveReq(monday, "09:00"), transport.BookedByCustomer)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := svc.Cancel(context.Background(), created.ID, transport.CancelRequest{}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if _, err := svc.Reserve(context.Background(), reserveReq(monday, "09:00"), transport.BookedByCustomer); err != nil {
		t.Fatalf("rebooking cancelled slot: %v", err)
	}
}

func TestUpdateStatusPublishesTransition(t *testing.T) {
	store := newFakeStore()
	bus := &recordingBus{}
	svc := newTestService(store, bus)

	created, err := svc.Reserve(context.Background(), reserveReq(monday, "09:00"), transport.BookedByCustomer)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	updated, err := svc.UpdateStatus(context.Background(), created.ID, repository.StatusConfirmed)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if updated.Status != repository.StatusConfirmed {
		t.Fatalf("status = %q, want confirmed", updated.Status)
	}

	changes := bus.named("appointments.status_changed")
	if len(changes) != 1 {
		t.Fatalf("published %d status events, want 1", len(changes))
	}
	e := changes[0].(events.AppointmentStatusChanged)
	if e.OldStatus != repository.StatusPending || e.NewStatus != repository.StatusConfirmed {
		t.Fatalf("transition %s -> %s, want pending -> confirmed", e.OldStatus, e.NewStatus)
	}

	// setting the same status again is a quiet no-op
	if _, err := svc.UpdateStatus(context.Background(), created.ID, repository.StatusConfirmed); err != nil {
		t.Fatalf("repeat UpdateStatus: %v", err)
	}
	if got := len(bus.named("appointments.status_changed")); got != 1 {
		t.Fatalf("published %d status events after no-op, want 1", got)
	}
}

func TestPastTimesFilteredForToday(t *testing.T) {
	svc := newTestService(newFakeStore(), &recordingBus{})
	svc.now = func() time.Time { return time.Date(2026, 9, 7, 9, 45, 0, 0, time.UTC) }

	resp, err := svc.AvailableSlots(context.Background(), 1)
	if err != nil {
		t.Fatalf("AvailableSlots: %v", err)
	}
	if len(resp.Days) != 1 || resp.Days[0].Date != monday {
		t.Fatalf("unexpected days: %+v", resp.Days)
	}
	want := []string{"10:00", "10:30"}
	got := resp.Days[0].Slots
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got slots %v, want %v", got, want)
	}
}
