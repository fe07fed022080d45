package port

import (
	"context"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
)

// SubscriptionRepository resolves entitlement tiers. This engine only reads
// tiers and attaches the default one at registration; everything else about
// subscriptions belongs to the billing side of the platform.
type SubscriptionRepository interface {
	// GetDefaultTier returns repository.ErrNotFound when no default tier is
	// configured; callers treat that as "no tier to attach", not a failure.
	GetDefaultTier(ctx context.Context) (*domain.SubscriptionTier, error)
	// GetTierForUser resolves the user's active subscription tier, or
	// repository.ErrNotFound when the user has none.
	GetTierForUser(ctx context.Context, userID string) (*domain.SubscriptionTier, error)
	CreateSubscription(ctx context.Context, sub domain.UserSubscription) error
}
