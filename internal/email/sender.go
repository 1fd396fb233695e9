// Package email delivers outbound customer and admin messages. Delivery
// errors are non-fatal; callers log them and move on.
package email

import (
	"context"

	"advisorhub_backend/platform/config"
)

// BookingDetails carries the appointment fields the booking messages render.
type BookingDetails struct {
	Name        string
	Service     string
	Date        string
	Time        string
	MeetingType string
}

type Sender interface {
	SendBookingConfirmation(ctx context.Context, toEmail string, details BookingDetails) error
	SendAppointmentReminder(ctx context.Context, toEmail string, details BookingDetails) error
	SendFollowUp(ctx context.Context, toEmail, name, priority string, followUpNumber int) error
	SendAdminAlert(ctx context.Context, toEmail, subject, message string) error
}

// NoopSender is used when outbound email is disabled.
type NoopSender struct{}

func (NoopSender) SendBookingConfirmation(ctx context.Context, toEmail string, details BookingDetails) error {
	return nil
}

func (NoopSender) SendAppointmentReminder(ctx context.Context, toEmail string, details BookingDetails) error {
	return nil
}

func (NoopSender) SendFollowUp(ctx context.Context, toEmail, name, priority string, followUpNumber int) error {
	return nil
}

func (NoopSender) SendAdminAlert(ctx context.Context, toEmail, subject, message string) error {
	return nil
}

var _ Sender = (*NoopSender)(nil)

// NewSender builds the configured sender. When email is disabled the
// noop sender is returned and every send silently succeeds.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
