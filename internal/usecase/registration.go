package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/core/port"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/security"
	"github.com/dustinober1/pmp-application-sub001/internal/repository"
)

// RegistrationService creates accounts and drives email verification.
type RegistrationService struct {
	users     port.UserRepository
	subs      port.SubscriptionRepository
	issuer    *TokenIssuer
	publisher port.EventPublisher
}

// NewRegistrationService constructs a RegistrationService instance.
// publisher may be nil; verification emails then simply never go out.
func NewRegistrationService(
	users port.UserRepository,
	subs port.SubscriptionRepository,
	issuer *TokenIssuer,
	publisher port.EventPublisher,
) *RegistrationService {
	return &RegistrationService{
		users:     users,
		subs:      subs,
		issuer:    issuer,
		publisher: publisher,
	}
}

// Register creates an account, attaches the default tier, and signs the new
// user in. The pre-insert email check gives the common duplicate a clean
// answer; the unique constraint closes the race it cannot.
func (s *RegistrationService) Register(ctx context.Context, email, password, displayName string) (domain.Profile, domain.TokenPair, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Profile{}, domain.TokenPair{}, fmt.Errorf("email is required")
	}
	if password == "" {
		return domain.Profile{}, domain.TokenPair{}, fmt.Errorf("password is required")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return domain.Profile{}, domain.TokenPair{}, domain.ErrEmailTaken()
	} else if !errors.Is(err, repository.ErrNotFound) {
		return domain.Profile{}, domain.TokenPair{}, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return domain.Profile{}, domain.TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	verifyToken := uuid.NewString()
	user := domain.User{
		ID:               uuid.NewString(),
		Email:            email,
		PasswordHash:     hash,
		DisplayName:      displayName,
		EmailVerifyToken: &verifyToken,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return domain.Profile{}, domain.TokenPair{}, domain.ErrEmailTaken()
		}
		return domain.Profile{}, domain.TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	// The account stands even when no tier can be attached; entitlements
	// resolve to none until a subscription exists.
	tier := s.attachDefaultTier(ctx, user.ID, now)

	pair, err := s.issuer.IssuePair(ctx, user, tier.ID, false)
	if err != nil {
		return domain.Profile{}, domain.TokenPair{}, err
	}

	s.publishRegistered(ctx, user, verifyToken, now)

	return user.Sanitize(tier.Name), pair, nil
}

func (s *RegistrationService) attachDefaultTier(ctx context.Context, userID string, now time.Time) domain.SubscriptionTier {
	tier, err := s.subs.GetDefaultTier(ctx)
	if err != nil {
		return domain.SubscriptionTier{}
	}

	sub := domain.UserSubscription{
		ID:        uuid.NewString(),
		UserID:    userID,
		TierID:    tier.ID,
		Status:    domain.SubscriptionStatusActive,
		StartDate: now,
	}
	if err := s.subs.CreateSubscription(ctx, sub); err != nil {
		return domain.SubscriptionTier{}
	}

	return *tier
}

func (s *RegistrationService) publishRegistered(ctx context.Context, user domain.User, verifyToken string, now time.Time) {
	if s.publisher == nil {
		return
	}

	_ = s.publisher.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
		UserID:       user.ID,
		Email:        user.Email,
		DisplayName:  user.DisplayName,
		RegisteredAt: now,
	})
	_ = s.publisher.PublishEmailVerificationRequested(ctx, domain.EmailVerificationRequestedEvent{
		UserID:      user.ID,
		Email:       user.Email,
		Token:       verifyToken,
		RequestedAt: now,
	})
}

// VerifyEmail redeems a verification token. The token lives on the user row,
// so redeeming it clears it and a second attempt finds nothing.
func (s *RegistrationService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return domain.ErrInvalidOneTimeToken()
	}

	user, err := s.users.GetByVerifyToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidOneTimeToken()
		}
		return fmt.Errorf("lookup verify token: %w", err)
	}

	if err := s.users.MarkEmailVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}

	return nil
}

// ResendVerification issues a fresh verification token for the authenticated
// user, invalidating the previous one. It returns the empty string when the
// address is already verified; callers translate that to an "already
// verified" answer rather than an error.
func (s *RegistrationService) ResendVerification(ctx context.Context, userID string) (string, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", domain.ErrUnknownUser()
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	if user.EmailVerified {
		return "", nil
	}

	token := uuid.NewString()
	if err := s.users.SetVerifyToken(ctx, user.ID, token); err != nil {
		return "", fmt.Errorf("set verify token: %w", err)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishEmailVerificationRequested(ctx, domain.EmailVerificationRequestedEvent{
			UserID:      user.ID,
			Email:       user.Email,
			Token:       token,
			RequestedAt: time.Now().UTC(),
		})
	}

	return token, nil
}
