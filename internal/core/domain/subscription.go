package domain

import "time"

// DefaultTierName is the entitlement embedded in access tokens when a user
// has no subscription row or no default tier is configured.
const DefaultTierName = "free"

// SubscriptionStatusActive marks a subscription currently in force.
const SubscriptionStatusActive = "active"

// SubscriptionTier identifies an entitlement level resolved into access tokens.
type SubscriptionTier struct {
	ID   string
	Name string
}

// UserSubscription links a user to a tier for a bounded period.
type UserSubscription struct {
	ID        string
	UserID    string
	TierID    string
	Status    string
	StartDate time.Time
	EndDate   *time.Time
}
