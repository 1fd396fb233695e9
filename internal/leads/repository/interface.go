package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lead statuses. Won and lost are terminal for automation purposes.
const (
	StatusNew         = "new"
	StatusContacted   = "contacted"
	StatusQualified   = "qualified"
	StatusProposal    = "proposal"
	StatusNegotiation = "negotiation"
	StatusWon         = "won"
	StatusLost        = "lost"
)

// Activity is one entry in a lead's append-only activity log, stored as a
// JSONB array element.
type Activity struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Lead represents the lead database model. Email is the identity key,
// stored normalized (trimmed, lowercased) and unique.
type Lead struct {
	ID                  uuid.UUID  `db:"id"`
	Name                string     `db:"name"`
	Email               string     `db:"email"`
	Phone               string     `db:"phone"`
	Source              string     `db:"source"`
	Status              string     `db:"status"`
	Score               int        `db:"score"`
	Priority            string     `db:"priority"`
	InterestedServices  []string   `db:"interested_services"`
	Budget              string     `db:"budget"`
	ActivityLog         []Activity `db:"activity_log"`
	LastContactDate     *time.Time `db:"last_contact_date"`
	NextFollowUpDate    *time.Time `db:"next_follow_up_date"`
	FollowUpCount       int        `db:"follow_up_count"`
	ConvertedToCustomer bool       `db:"converted_to_customer"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// ActivityTypes returns the type of every logged activity, oldest first.
func (l *Lead) ActivityTypes() []string {
	types := make([]string, 0, len(l.ActivityLog))
	for _, a := range l.ActivityLog {
		types = append(types, a.Type)
	}
	return types
}

// Store provides persistence for leads.
type Store interface {
	// Create inserts a new lead. Returns a conflict error when the email
	// is already taken.
	Create(ctx context.Context, lead *Lead) error

	GetByID(ctx context.Context, id uuid.UUID) (*Lead, error)

	// GetByEmail looks up a lead by its normalized email.
	GetByEmail(ctx context.Context, email string) (*Lead, error)

	// Update persists every mutable field of the lead.
	Update(ctx context.Context, lead *Lead) error

	// List returns leads ordered by score descending, optionally filtered
	// by priority tier.
	List(ctx context.Context, priority string, limit int) ([]Lead, error)

	// ListFollowUpCandidates returns non-converted leads in status new or
	// contacted whose next_follow_up_date falls on day's calendar date and
	// whose follow_up_count is below cap.
	ListFollowUpCandidates(ctx context.Context, day time.Time, cap int) ([]Lead, error)
}
