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

const resetTokenBytes = 32

// PasswordResetService drives the forgot-password flow.
type PasswordResetService struct {
	users     port.UserRepository
	tokens    port.TokenRepository
	tokenTTL  time.Duration
	publisher port.EventPublisher
}

// NewPasswordResetService constructs a PasswordResetService instance.
func NewPasswordResetService(
	users port.UserRepository,
	tokens port.TokenRepository,
	tokenTTL time.Duration,
	publisher port.EventPublisher,
) *PasswordResetService {
	return &PasswordResetService{
		users:     users,
		tokens:    tokens,
		tokenTTL:  tokenTTL,
		publisher: publisher,
	}
}

// RequestReset mints a reset token for the address. An unknown address
// returns success with nothing minted, so the response never reveals which
// emails have accounts.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	email = domain.NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("lookup email: %w", err)
	}

	value, err := security.GenerateSecureToken(resetTokenBytes)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	now := time.Now().UTC()
	token := domain.PasswordResetToken{
		ID:        uuid.NewString(),
		Token:     value,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.tokenTTL),
	}
	if err := s.tokens.CreatePasswordReset(ctx, token); err != nil {
		return fmt.Errorf("persist reset token: %w", err)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishPasswordResetRequested(ctx, domain.PasswordResetRequestedEvent{
			UserID:      user.ID,
			Email:       user.Email,
			Token:       value,
			RequestedAt: now,
			ExpiresAt:   token.ExpiresAt,
		})
	}

	return nil
}

// ResetPassword redeems a reset token for a new password. The store applies
// the digest, the token consumption, the lockout reset, and the session
// purge in one transaction; a raced redemption of the same token fails as
// invalid.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return domain.ErrInvalidOneTimeToken()
	}

	record, err := s.tokens.GetPasswordReset(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidOneTimeToken()
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	now := time.Now().UTC()
	if !record.Usable(now) {
		return domain.ErrInvalidOneTimeToken()
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	revoked, err := s.tokens.CompletePasswordReset(ctx, port.PasswordResetCompletion{
		TokenID:      record.ID,
		UserID:       record.UserID,
		PasswordHash: hash,
		UsedAt:       now,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidOneTimeToken()
		}
		return fmt.Errorf("complete password reset: %w", err)
	}

	if s.publisher != nil {
		_ = s.publisher.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
			UserID:          record.UserID,
			ChangedAt:       now,
			SessionsRevoked: revoked,
		})
	}

	return nil
}
