// Package automation contains the scheduled scans that drive reminders
// and lead follow-ups. Scan bodies are plain methods so the same logic
// runs from in-process tickers, asynq task handlers, and the manual HTTP
// triggers.
package automation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	apptrepo "advisorhub_backend/internal/appointments/repository"
	"advisorhub_backend/internal/email"
	leadsvc "advisorhub_backend/internal/leads/service"
	notifrepo "advisorhub_backend/internal/notification/repository"
	notifsvc "advisorhub_backend/internal/notification/service"
	"advisorhub_backend/platform/config"
	"advisorhub_backend/platform/logger"
)

// ScanResult summarizes one scan pass.
type ScanResult struct {
	Candidates int `json:"candidates"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
}

// Runner executes the reminder and follow-up scans.
type Runner struct {
	appts    apptrepo.Store
	leads    *leadsvc.Service
	notifier *notifsvc.Service
	sender   email.Sender
	cfg      config.AutomationConfig
	log      *logger.Logger
	limiter  *rate.Limiter

	// now is injectable for tests.
	now func() time.Time
}

func NewRunner(appts apptrepo.Store, leads *leadsvc.Service, notifier *notifsvc.Service, sender email.Sender, cfg config.AutomationConfig, log *logger.Logger) *Runner {
	perMinute := cfg.GetSendRatePerMinute()
	if perMinute < 1 {
		perMinute = 30
	}

	return &Runner{
		appts:    appts,
		leads:    leads,
		notifier: notifier,
		sender:   sender,
		cfg:      cfg,
		log:      log.WithComponent("automation.runner"),
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		now:      time.Now,
	}
}

// ReminderScan sends one reminder per appointment starting inside the
// horizon window. The reminder flag is flipped after the send attempt
// whether or not delivery worked, so a permanently failing address is
// never retried on the next pass. A failing candidate does not stop the
// scan; ctx cancellation stops it between candidates.
func (r *Runner) ReminderScan(ctx context.Context) (ScanResult, error) {
	now := r.now()
	target := now.Add(r.cfg.GetReminderHorizon())
	tolerance := r.cfg.GetReminderTolerance()

	candidates, err := r.appts.ListDueForReminder(ctx, target.Add(-tolerance), target.Add(tolerance))
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to list reminder candidates: %w", err)
	}

	result := ScanResult{Candidates: len(candidates)}
	for i := range candidates {
		appt := &candidates[i]
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return result, err
		}

		sendErr := r.sender.SendAppointmentReminder(ctx, appt.Email, email.BookingDetails{
			Name:        appt.Name,
			Service:     appt.Service,
			Date:        appt.Date.Format("2006-01-02"),
			Time:        appt.Time,
			MeetingType: appt.MeetingType,
		})
		if sendErr != nil {
			result.Failed++
			r.log.DeliveryError("appointment_reminder", appt.Email, sendErr)
		} else {
			result.Sent++
		}

		// flipped even on failure, otherwise a dead address retries forever
		if err := r.appts.MarkReminderSent(ctx, appt.ID); err != nil {
			r.log.Error("failed to mark reminder sent", "appointmentId", appt.ID, "error", err)
			continue
		}

		if _, err := r.notifier.NotifyStateChange(ctx, notifsvc.Notice{
			Type:         notifrepo.TypeAutomation,
			Title:        "Reminder sent",
			Message:      fmt.Sprintf("Reminder sent to %s for %s at %s", appt.Email, appt.Date.Format("2006-01-02"), appt.Time),
			RelatedID:    appt.ID,
			RelatedModel: "appointment",
			Recipient:    notifrepo.AdminSpec(),
		}, "reminder_sent"); err != nil {
			r.log.Error("failed to record reminder notification", "appointmentId", appt.ID, "error", err)
		}
	}

	r.log.ScanResult("reminders", result.Candidates, result.Sent, result.Failed)
	return result, nil
}

// FollowUpScan sends a priority-tier message to every lead due today and
// performs the follow-up bookkeeping through the lead service. Send
// failures skip the bookkeeping so the lead stays due.
func (r *Runner) FollowUpScan(ctx context.Context) (ScanResult, error) {
	now := r.now()

	candidates, err := r.leads.FollowUpCandidates(ctx, now, r.cfg.GetFollowUpCap())
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to list follow-up candidates: %w", err)
	}

	result := ScanResult{Candidates: len(candidates)}
	for i := range candidates {
		lead := &candidates[i]
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := r.limiter.Wait(ctx); err != nil {
			return result, err
		}

		sendErr := r.sender.SendFollowUp(ctx, lead.Email, lead.Name, lead.Priority, lead.FollowUpCount+1)
		if sendErr != nil {
			result.Failed++
			r.log.DeliveryError("lead_follow_up", lead.Email, sendErr)
			continue
		}
		result.Sent++

		if err := r.leads.RecordFollowUpSent(ctx, lead); err != nil {
			r.log.Error("failed to record follow-up", "leadId", lead.ID, "error", err)
		}
	}

	r.log.ScanResult("follow_ups", result.Candidates, result.Sent, result.Failed)
	return result, nil
}

// RunReminderLoop runs the reminder scan on its configured cadence until
// ctx is cancelled. One pass runs immediately on start.
func (r *Runner) RunReminderLoop(ctx context.Context) {
	r.runLoop(ctx, "reminders", r.cfg.GetReminderScanInterval(), r.ReminderScan)
}

// RunFollowUpLoop runs the follow-up scan on its configured cadence until
// ctx is cancelled. One pass runs immediately on start.
func (r *Runner) RunFollowUpLoop(ctx context.Context) {
	r.runLoop(ctx, "follow_ups", r.cfg.GetFollowUpScanInterval(), r.FollowUpScan)
}

func (r *Runner) runLoop(ctx context.Context, name string, interval time.Duration, scan func(context.Context) (ScanResult, error)) {
	if interval <= 0 {
		interval = time.Hour
	}

	if _, err := scan(ctx); err != nil && ctx.Err() == nil {
		r.log.Error("scan failed", "scan", name, "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := scan(ctx); err != nil && ctx.Err() == nil {
				r.log.Error("scan failed", "scan", name, "error", err)
			}
		}
	}
}
