package email

import (
	"context"
	"fmt"
	"net"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// SMTPSender implements the Sender interface with a direct SMTP connection
// via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a new SMTPSender with the given SMTP credentials.
func NewSMTPSender(host string, port int, username, password, fromEmail, fromName string) *SMTPSender {
	return &SMTPSender{
		host:      host,
		port:      port,
		username:  username,
		password:  password,
		fromName:  fromName,
		fromEmail: fromEmail,
	}
}

var _ Sender = (*SMTPSender)(nil)

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	client, err := gomail.NewClient(s.host,
		gomail.WithPort(s.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(s.username),
		gomail.WithPassword(s.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func (s *SMTPSender) SendBookingConfirmation(ctx context.Context, toEmail string, details BookingDetails) error {
	content, err := renderEmailTemplate("booking_confirmation.html", bookingEmailData{
		baseEmailData: baseEmailData{
			Title:   "Appointment confirmed",
			Heading: "Your appointment is booked",
		},
		Name:        details.Name,
		Service:     details.Service,
		Date:        details.Date,
		Time:        details.Time,
		MeetingType: details.MeetingType,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf(subjectBookingConfirmationFmt, details.Date, details.Time)
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendAppointmentReminder(ctx context.Context, toEmail string, details BookingDetails) error {
	content, err := renderEmailTemplate("appointment_reminder.html", bookingEmailData{
		baseEmailData: baseEmailData{
			Title:   "Appointment reminder",
			Heading: "Your appointment is tomorrow",
		},
		Name:        details.Name,
		Service:     details.Service,
		Date:        details.Date,
		Time:        details.Time,
		MeetingType: details.MeetingType,
	})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf(subjectAppointmentReminderFmt, details.Date, details.Time)
	return s.send(ctx, toEmail, subject, content)
}

func (s *SMTPSender) SendFollowUp(ctx context.Context, toEmail, name, priority string, followUpNumber int) error {
	content, err := renderEmailTemplate("follow_up.html", followUpEmailData{
		baseEmailData: baseEmailData{
			Title:   "Following up",
			Heading: "We have not forgotten about you",
		},
		Name:           name,
		Priority:       priority,
		FollowUpNumber: followUpNumber,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectFollowUp, content)
}

func (s *SMTPSender) SendAdminAlert(ctx context.Context, toEmail, subject, message string) error {
	content, err := renderEmailTemplate("admin_alert.html", adminAlertEmailData{
		baseEmailData: baseEmailData{
			Title:   subject,
			Heading: subject,
		},
		Message: message,
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subject, content)
}
