package models

import "time"

// SubscriptionTier identifies a user's plan. Every tier other than free is
// treated as unlimited by the usage gate.
type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierPremium    SubscriptionTier = "premium"
	TierBusiness   SubscriptionTier = "business"
	TierEnterprise SubscriptionTier = "enterprise"
)

// User is the profile subset the pipeline needs: identity, account state and
// quota counters.
type User struct {
	ID                 string           `db:"id" json:"id"`
	Email              string           `db:"email" json:"email"`
	FullName           string           `db:"full_name" json:"full_name"`
	SubscriptionTier   SubscriptionTier `db:"subscription_tier" json:"subscription_tier"`
	SubscriptionStatus string           `db:"subscription_status" json:"subscription_status"`
	UsageCount         int              `db:"usage_count" json:"usage_count"`
	UsageLimit         int              `db:"usage_limit" json:"usage_limit"`
	IsActive           bool             `db:"is_active" json:"is_active"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time        `db:"updated_at" json:"updated_at"`
}

// Unlimited reports whether the gate should skip quota checks entirely.
func (u *User) Unlimited() bool {
	return u.SubscriptionTier != TierFree || u.UsageLimit < 0
}

// Session is one row of the identity collaborator's session table; a token
// is only honored while its session is active and unexpired.
type Session struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"user_id"`
	SessionToken string    `db:"session_token" json:"-"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
