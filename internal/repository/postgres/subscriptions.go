package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/core/port"
	"github.com/dustinober1/pmp-application-sub001/internal/repository"
)

// SubscriptionRepository implements port.SubscriptionRepository using
// PostgreSQL.
type SubscriptionRepository struct {
	exec        pgExecutor
	builder     squirrel.StatementBuilderType
	defaultTier string
}

// NewSubscriptionRepository constructs a subscription repository. defaultTier
// names the tier attached to new registrations.
func NewSubscriptionRepository(exec pgExecutor, defaultTier string) *SubscriptionRepository {
	if defaultTier == "" {
		defaultTier = domain.DefaultTierName
	}
	return &SubscriptionRepository{
		exec:        exec,
		builder:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		defaultTier: defaultTier,
	}
}

// GetDefaultTier resolves the tier attached to new registrations.
func (r *SubscriptionRepository) GetDefaultTier(ctx context.Context) (*domain.SubscriptionTier, error) {
	stmt, args, err := r.builder.
		Select("id", "name").
		From("auth.subscription_tiers").
		Where(squirrel.Eq{"name": r.defaultTier}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select default tier sql: %w", err)
	}

	var tier domain.SubscriptionTier
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&tier.ID, &tier.Name); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan default tier: %w", err)
	}

	return &tier, nil
}

// GetTierForUser resolves the tier of the user's most recent active
// subscription.
func (r *SubscriptionRepository) GetTierForUser(ctx context.Context, userID string) (*domain.SubscriptionTier, error) {
	stmt, args, err := r.builder.
		Select("t.id", "t.name").
		From("auth.user_subscriptions s").
		Join("auth.subscription_tiers t ON t.id = s.tier_id").
		Where(squirrel.Eq{"s.user_id": userID, "s.status": domain.SubscriptionStatusActive}).
		OrderBy("s.start_date DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user tier sql: %w", err)
	}

	var tier domain.SubscriptionTier
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&tier.ID, &tier.Name); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user tier: %w", err)
	}

	return &tier, nil
}

// CreateSubscription inserts a new subscription row.
func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, sub domain.UserSubscription) error {
	stmt, args, err := r.builder.Insert("auth.user_subscriptions").
		Columns("id", "user_id", "tier_id", "status", "start_date", "end_date").
		Values(sub.ID, sub.UserID, sub.TierID, sub.Status, sub.StartDate, sub.EndDate).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert subscription sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}

	return nil
}

var _ port.SubscriptionRepository = (*SubscriptionRepository)(nil)
