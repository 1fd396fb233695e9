// Package scoring computes lead scores and priority tiers. The score is a
// deterministic function of the lead's persisted fields; callers recompute
// it on every mutation so the stored value is never stale.
package scoring

import "time"

// Priority tiers derived from the score.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

const maxScore = 100

// recencyWindow is the trailing window in which a recent contact earns a bonus.
const recencyWindow = 7 * 24 * time.Hour

var sourceWeights = map[string]int{
	"appointment":   30,
	"quote_request": 20,
	"booking":       20,
	"contact_form":  10,
	"newsletter":    5,
	"referral":      15,
	"website":       8,
}

var activityWeights = map[string]int{
	"appointment_book": 20,
	"quote_request":    15,
	"booking_made":     15,
	"form_submit":      8,
	"email_open":       2,
	"page_view":        1,
	"follow_up_sent":   3,
}

var budgetWeights = map[string]int{
	"above-5lakh": 20,
	"1-5lakh":     15,
	"50k-1lakh":   10,
	"below-50k":   5,
}

// budgetRank orders the budget tiers so upserts only upgrade. Unknown
// tiers rank lowest.
var budgetRank = map[string]int{
	"below-50k":   1,
	"50k-1lakh":   2,
	"1-5lakh":     3,
	"above-5lakh": 4,
}

// BudgetOutranks reports whether candidate ranks strictly higher than current.
func BudgetOutranks(candidate, current string) bool {
	return budgetRank[candidate] > budgetRank[current]
}

// Input carries the lead fields the score depends on.
type Input struct {
	Source             string
	Budget             string
	ActivityTypes      []string
	InterestedServices []string
	LastContactDate    *time.Time
}

// Calculate returns the weighted score and its priority tier. now is the
// reference clock for the recency bonus.
func Calculate(in Input, now time.Time) (int, Priority) {
	score := sourceWeights[in.Source]
	score += budgetWeights[in.Budget]

	for _, t := range in.ActivityTypes {
		score += activityWeights[t]
	}

	if in.LastContactDate != nil {
		since := now.Sub(*in.LastContactDate)
		if since >= 0 && since <= recencyWindow {
			score += 10
		}
	}

	if extra := len(in.InterestedServices) - 1; extra > 0 {
		score += 3 * extra
	}

	if score > maxScore {
		score = maxScore
	}
	return score, PriorityFor(score)
}

// PriorityFor maps a score onto its tier.
func PriorityFor(score int) Priority {
	switch {
	case score >= 70:
		return PriorityUrgent
	case score >= 50:
		return PriorityHigh
	case score >= 30:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// FollowUpInterval returns how long after a follow-up the next one is due.
// Hotter leads get shorter intervals.
func FollowUpInterval(p Priority) time.Duration {
	switch p {
	case PriorityUrgent:
		return 24 * time.Hour
	case PriorityHigh:
		return 3 * 24 * time.Hour
	case PriorityMedium:
		return 7 * 24 * time.Hour
	default:
		return 14 * 24 * time.Hour
	}
}
