package domain

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPro        SubscriptionTier = "pro"
	TierEnterprise SubscriptionTier = "enterprise"
)

// MonthlyLimit returns the analysis quota for the tier. Unknown tiers get the
// free limit.
func (t SubscriptionTier) MonthlyLimit() int {
	switch t {
	case TierPro:
		return 500
	case TierEnterprise:
		return 10000
	default:
		return 10
	}
}

type User struct {
	ID                 uuid.UUID        `json:"id"`
	Email              string           `json:"email"`
	FullName           *string          `json:"full_name,omitempty"`
	Tier               SubscriptionTier `json:"subscription_tier"`
	SubscriptionStatus string           `json:"subscription_status"`

	// Usage tracking
	AnalyzedThisMonth int `json:"emails_analyzed_this_month"`
	AnalyzedTotal     int `json:"total_emails_analyzed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UsageLimit returns the user's monthly analysis quota.
func (u *User) UsageLimit() int {
	return u.Tier.MonthlyLimit()
}

// CanAnalyze reports whether the user has quota left this month.
func (u *User) CanAnalyze() bool {
	return u.AnalyzedThisMonth < u.UsageLimit()
}

// Usage is the quota block returned to clients.
type Usage struct {
	Used      int `json:"used"`
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`
}

// UsageFor builds the usage block for a user. Remaining never goes negative
// even when a batch overran the limit.
func UsageFor(u *User) Usage {
	limit := u.UsageLimit()
	remaining := limit - u.AnalyzedThisMonth
	if remaining < 0 {
		remaining = 0
	}
	return Usage{
		Used:      u.AnalyzedThisMonth,
		Limit:     limit,
		Remaining: remaining,
	}
}
