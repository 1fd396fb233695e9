package service

import (
	"context"
	"time"

	"advisorhub_backend/internal/appointments/transport"
)

// AvailableSlots computes open slots per calendar day over the next
// daysAhead days, starting today. Days with no remaining slots (closed
// days, fully booked days, past times) are omitted.
func (s *Service) AvailableSlots(ctx context.Context, daysAhead int) (*transport.AvailableSlotsResponse, error) {
	if daysAhead < 1 {
		daysAhead = s.booking.GetLookaheadDays()
	}
	if daysAhead > maxLookaheadDays {
		daysAhead = maxLookaheadDays
	}

	today := s.today()
	days := make([]transport.DaySlots, 0, daysAhead)
	for i := 0; i < daysAhead; i++ {
		date := today.AddDate(0, 0, i)
		slots, err := s.openSlots(ctx, date)
		if err != nil {
			return nil, err
		}
		if len(slots) > 0 {
			days = append(days, transport.DaySlots{Date: date.Format(dateFormat), Slots: slots})
		}
	}

	return &transport.AvailableSlotsResponse{Days: days}, nil
}

// openSlots returns the bookable "HH:MM" values for one calendar day:
// the business-hours grid minus booked times, minus times already in the
// past. The grid-minus-booked result is cached per date with a short TTL
// and invalidated on every booking mutation; the past-time filter depends
// on the current clock and is applied outside the cache.
func (s *Service) openSlots(ctx context.Context, date time.Time) ([]string, error) {
	dateKey := date.Format(dateFormat)
	slots, err := s.slotCache.Get(ctx, dateKey, func(ctx context.Context) ([]string, error) {
		booked, err := s.store.ListActiveTimes(ctx, date)
		if err != nil {
			return nil, err
		}

		taken := make(map[string]struct{}, len(booked))
		for _, t := range booked {
			taken[t] = struct{}{}
		}

		grid := s.slotGrid(date.Weekday())
		open := make([]string, 0, len(grid))
		for _, slot := range grid {
			if _, ok := taken[slot]; !ok {
				open = append(open, slot)
			}
		}
		return open, nil
	})
	if err != nil {
		return nil, err
	}

	return s.dropPastTimes(date, slots), nil
}

// slotGrid produces the full slot grid for a weekday from the weekly
// business-hours table. A slot is included only when it fits entirely
// inside the opening window. Closed days yield an empty grid.
func (s *Service) slotGrid(day time.Weekday) []string {
	window, open := s.booking.GetBusinessHours()[day]
	if !open {
		return nil
	}

	start, err := time.Parse(timeFormat, window.Open)
	if err != nil {
		return nil
	}
	end, err := time.Parse(timeFormat, window.Close)
	if err != nil {
		return nil
	}

	width := time.Duration(s.booking.GetSlotDurationMinutes()) * time.Minute
	var slots []string
	for t := start; !t.Add(width).After(end); t = t.Add(width) {
		slots = append(slots, t.Format(timeFormat))
	}
	return slots
}

// dropPastTimes removes slots that already started. Dates before today
// yield nothing; future dates pass through untouched.
func (s *Service) dropPastTimes(date time.Time, slots []string) []string {
	today := s.today()
	if date.Before(today) {
		return nil
	}
	if date.After(today) {
		return slots
	}

	cutoff := s.now().Format(timeFormat)
	remaining := make([]string, 0, len(slots))
	for _, slot := range slots {
		if slot > cutoff {
			remaining = append(remaining, slot)
		}
	}
	return remaining
}

// slotBookable reports whether the (date, time) pair is a member of the
// day's business-hours grid and not in the past. It deliberately ignores
// existing bookings; those are the conflict check's concern.
func (s *Service) slotBookable(date time.Time, clock string) bool {
	today := s.today()
	if date.Before(today) {
		return false
	}
	if date.Equal(today) && clock <= s.now().Format(timeFormat) {
		return false
	}

	for _, slot := range s.slotGrid(date.Weekday()) {
		if slot == clock {
			return true
		}
	}
	return false
}
