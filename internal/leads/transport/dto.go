// Package transport defines request/response DTOs for the leads module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"advisorhub_backend/internal/leads/repository"
)

// CaptureRequest is one inbound capture event from any acquisition channel.
type CaptureRequest struct {
	Name    string         `json:"name" validate:"required,max=120"`
	Email   string         `json:"email" validate:"required,email"`
	Phone   string         `json:"phone" validate:"max=32"`
	Source  string         `json:"source" validate:"required,oneof=appointment quote_request booking contact_form newsletter referral website"`
	Service string         `json:"service" validate:"max=120"`
	Budget  string         `json:"budget" validate:"omitempty,oneof=below-50k 50k-1lakh 1-5lakh above-5lakh"`
	Message string         `json:"message" validate:"max=2000"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// AddActivityRequest appends one activity to a lead's log.
type AddActivityRequest struct {
	Type        string         `json:"type" validate:"required,oneof=appointment_book quote_request booking_made form_submit email_open page_view follow_up_sent"`
	Description string         `json:"description" validate:"max=500"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UpdateStatusRequest moves a lead through the pipeline.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=new contacted qualified proposal negotiation won lost"`
}

// ActivityResponse is one activity log entry.
type ActivityResponse struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// LeadResponse is the API representation of a lead.
type LeadResponse struct {
	ID                  uuid.UUID          `json:"id"`
	Name                string             `json:"name"`
	Email               string             `json:"email"`
	Phone               string             `json:"phone,omitempty"`
	Source              string             `json:"source"`
	Status              string             `json:"status"`
	Score               int                `json:"score"`
	Priority            string             `json:"priority"`
	InterestedServices  []string           `json:"interestedServices"`
	Budget              string             `json:"budget,omitempty"`
	Activity            []ActivityResponse `json:"activity"`
	LastContactDate     *time.Time         `json:"lastContactDate,omitempty"`
	NextFollowUpDate    *time.Time         `json:"nextFollowUpDate,omitempty"`
	FollowUpCount       int                `json:"followUpCount"`
	ConvertedToCustomer bool               `json:"convertedToCustomer"`
	CreatedAt           time.Time          `json:"createdAt"`
}

// FromLead maps the database model onto the API representation.
func FromLead(l *repository.Lead) LeadResponse {
	activity := make([]ActivityResponse, 0, len(l.ActivityLog))
	for _, a := range l.ActivityLog {
		activity = append(activity, ActivityResponse{
			Type:        a.Type,
			Description: a.Description,
			Timestamp:   a.Timestamp,
			Metadata:    a.Metadata,
		})
	}
	return LeadResponse{
		ID:                  l.ID,
		Name:                l.Name,
		Email:               l.Email,
		Phone:               l.Phone,
		Source:              l.Source,
		Status:              l.Status,
		Score:               l.Score,
		Priority:            l.Priority,
		InterestedServices:  l.InterestedServices,
		Budget:              l.Budget,
		Activity:            activity,
		LastContactDate:     l.LastContactDate,
		NextFollowUpDate:    l.NextFollowUpDate,
		FollowUpCount:       l.FollowUpCount,
		ConvertedToCustomer: l.ConvertedToCustomer,
		CreatedAt:           l.CreatedAt,
	}
}
