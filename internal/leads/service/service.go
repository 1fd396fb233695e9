// Package service contains the lead engine: capture upserts, weighted
// re-scoring, pipeline status transitions, and follow-up bookkeeping.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"advisorhub_backend/internal/events"
	"advisorhub_backend/internal/leads/repository"
	"advisorhub_backend/internal/leads/scoring"
	"advisorhub_backend/internal/leads/transport"
	"advisorhub_backend/platform/apperr"
	"advisorhub_backend/platform/logger"
	"advisorhub_backend/platform/phone"
	"advisorhub_backend/platform/sanitize"
)

// sourceActivity maps an acquisition channel onto the activity type a
// repeat capture from that channel logs.
var sourceActivity = map[string]string{
	"appointment":   "appointment_book",
	"quote_request": "quote_request",
	"booking":       "booking_made",
}

// Service implements the lead engine operations.
type Service struct {
	store repository.Store
	bus   events.Bus
	log   *logger.Logger

	// now is injectable for tests.
	now func() time.Time
}

func NewService(store repository.Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store: store,
		bus:   bus,
		log:   log.WithComponent("leads.service"),
		now:   time.Now,
	}
}

// WithClock overrides the service clock and returns the service. Tests in
// other packages use it to pin follow-up timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// NormalizeEmail produces the lead identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Capture upserts a lead from one inbound capture event. The first event
// for an email creates the lead; every later one mutates the same record.
// The score is recomputed and persisted on both paths.
func (s *Service) Capture(ctx context.Context, req transport.CaptureRequest) (*transport.LeadResponse, error) {
	email := NormalizeEmail(req.Email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}

	lead, err := s.store.GetByEmail(ctx, email)
	switch apperr.GetKind(err) {
	case apperr.KindNotFound:
		lead, err = s.createFromCapture(ctx, email, req)
		if err == nil {
			s.publishCaptured(ctx, lead, req.Source, true)
			resp := transport.FromLead(lead)
			return &resp, nil
		}
		if apperr.GetKind(err) != apperr.KindConflict {
			return nil, err
		}
		// lost a concurrent first-capture race, merge into the winner
		lead, err = s.store.GetByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
	default:
		if err != nil {
			return nil, err
		}
	}

	s.mergeCapture(lead, req)
	s.rescore(lead)
	if err := s.store.Update(ctx, lead); err != nil {
		return nil, err
	}

	s.publishCaptured(ctx, lead, req.Source, false)
	resp := transport.FromLead(lead)
	return &resp, nil
}

func (s *Service) createFromCapture(ctx context.Context, email string, req transport.CaptureRequest) (*repository.Lead, error) {
	now := s.now()

	description := sanitize.Text(req.Message)
	if description == "" {
		description = "Lead captured via " + req.Source
	}

	lead := &repository.Lead{
		ID:     uuid.New(),
		Name:   sanitize.Text(req.Name),
		Email:  email,
		Phone:  phone.NormalizeE164(req.Phone),
		Source: req.Source,
		Status: repository.StatusNew,
		Budget: req.Budget,
		ActivityLog: []repository.Activity{{
			Type:        "form_submit",
			Description: description,
			Timestamp:   now,
			Metadata:    req.Meta,
		}},
	}
	if svc := sanitize.Text(req.Service); svc != "" {
		lead.InterestedServices = []string{svc}
	}

	s.rescore(lead)
	next := now.Add(scoring.FollowUpInterval(scoring.Priority(lead.Priority)))
	lead.NextFollowUpDate = &next

	if err := s.store.Create(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// mergeCapture folds a repeat capture event into an existing lead:
// activity appended, services unioned, budget raised only upward, contact
// fields refreshed when the event carries them.
func (s *Service) mergeCapture(lead *repository.Lead, req transport.CaptureRequest) {
	activityType := sourceActivity[req.Source]
	if activityType == "" {
		activityType = "form_submit"
	}
	description := sanitize.Text(req.Message)
	if description == "" {
		description = "Repeat capture via " + req.Source
	}
	lead.ActivityLog = append(lead.ActivityLog, repository.Activity{
		Type:        activityType,
		Description: description,
		Timestamp:   s.now(),
		Metadata:    req.Meta,
	})

	if svc := sanitize.Text(req.Service); svc != "" {
		lead.InterestedServices = unionService(lead.InterestedServices, svc)
	}
	if scoring.BudgetOutranks(req.Budget, lead.Budget) {
		lead.Budget = req.Budget
	}
	if name := sanitize.Text(req.Name); name != "" {
		lead.Name = name
	}
	if req.Phone != "" {
		lead.Phone = phone.NormalizeE164(req.Phone)
	}
}

func unionService(services []string, svc string) []string {
	for _, existing := range services {
		if strings.EqualFold(existing, svc) {
			return services
		}
	}
	return append(services, svc)
}

// rescore recomputes score and priority from the lead's current fields.
func (s *Service) rescore(lead *repository.Lead) {
	score, priority := scoring.Calculate(scoring.Input{
		Source:             lead.Source,
		Budget:             lead.Budget,
		ActivityTypes:      lead.ActivityTypes(),
		InterestedServices: lead.InterestedServices,
		LastContactDate:    lead.LastContactDate,
	}, s.now())
	lead.Score = score
	lead.Priority = string(priority)
}

func (s *Service) publishCaptured(ctx context.Context, lead *repository.Lead, source string, isNew bool) {
	s.bus.Publish(ctx, events.LeadCaptured{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Email:     lead.Email,
		Name:      lead.Name,
		Source:    source,
		Score:     lead.Score,
		Priority:  lead.Priority,
		IsNew:     isNew,
	})
	s.log.Info("lead captured",
		"leadId", lead.ID,
		"source", source,
		"score", lead.Score,
		"priority", lead.Priority,
		"new", isNew,
	)
}

// AddActivity appends one activity to the lead's log and re-scores it.
func (s *Service) AddActivity(ctx context.Context, id uuid.UUID, req transport.AddActivityRequest) (*transport.LeadResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.appendActivity(lead, req)
	if err := s.store.Update(ctx, lead); err != nil {
		return nil, err
	}
	resp := transport.FromLead(lead)
	return &resp, nil
}

// AddActivityByEmail is the cross-module hook used by event subscribers.
// Unknown emails are not an error; there is simply no lead to enrich.
func (s *Service) AddActivityByEmail(ctx context.Context, email string, req transport.AddActivityRequest) error {
	lead, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if apperr.GetKind(err) == apperr.KindNotFound {
			return nil
		}
		return err
	}
	s.appendActivity(lead, req)
	return s.store.Update(ctx, lead)
}

func (s *Service) appendActivity(lead *repository.Lead, req transport.AddActivityRequest) {
	lead.ActivityLog = append(lead.ActivityLog, repository.Activity{
		Type:        req.Type,
		Description: sanitize.Text(req.Description),
		Timestamp:   s.now(),
		Metadata:    req.Metadata,
	})
	s.rescore(lead)
}

// UpdateStatus moves the lead through the pipeline. Won marks the lead as
// converted; the flag never flips back. Terminal leads stop being
// follow-up candidates.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*transport.LeadResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if lead.Status == status {
		resp := transport.FromLead(lead)
		return &resp, nil
	}

	oldStatus := lead.Status
	lead.Status = status
	if status == repository.StatusWon {
		lead.ConvertedToCustomer = true
	}
	if status == repository.StatusWon || status == repository.StatusLost {
		lead.NextFollowUpDate = nil
	}
	s.rescore(lead)

	if err := s.store.Update(ctx, lead); err != nil {
		return nil, err
	}

	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Email:     lead.Email,
		OldStatus: oldStatus,
		NewStatus: status,
	})

	resp := transport.FromLead(lead)
	return &resp, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*transport.LeadResponse, error) {
	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := transport.FromLead(lead)
	return &resp, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*transport.LeadResponse, error) {
	lead, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	resp := transport.FromLead(lead)
	return &resp, nil
}

// List returns leads ordered hottest first, optionally filtered by tier.
func (s *Service) List(ctx context.Context, priority string, limit int) ([]transport.LeadResponse, error) {
	if priority != "" {
		switch scoring.Priority(priority) {
		case scoring.PriorityLow, scoring.PriorityMedium, scoring.PriorityHigh, scoring.PriorityUrgent:
		default:
			return nil, apperr.Validation("unknown priority tier")
		}
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}

	leads, err := s.store.List(ctx, priority, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	out := make([]transport.LeadResponse, 0, len(leads))
	for i := range leads {
		out = append(out, transport.FromLead(&leads[i]))
	}
	return out, nil
}

// FollowUpCandidates returns the leads due for a follow-up on day.
func (s *Service) FollowUpCandidates(ctx context.Context, day time.Time, cap int) ([]repository.Lead, error) {
	return s.store.ListFollowUpCandidates(ctx, day, cap)
}

// RecordFollowUpSent performs the post-send bookkeeping for one follow-up:
// activity logged, counter bumped, contact date refreshed, the next
// follow-up scheduled by tier, and the score recomputed.
func (s *Service) RecordFollowUpSent(ctx context.Context, lead *repository.Lead) error {
	now := s.now()

	lead.ActivityLog = append(lead.ActivityLog, repository.Activity{
		Type:        "follow_up_sent",
		Description: fmt.Sprintf("Follow-up %d sent (%s tier)", lead.FollowUpCount+1, lead.Priority),
		Timestamp:   now,
	})
	lead.FollowUpCount++
	lead.LastContactDate = &now
	next := now.Add(scoring.FollowUpInterval(scoring.Priority(lead.Priority)))
	lead.NextFollowUpDate = &next
	s.rescore(lead)

	return s.store.Update(ctx, lead)
}
