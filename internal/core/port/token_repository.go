package port

import (
	"context"
	"time"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
)

// PasswordResetCompletion carries the multi-table state change applied when
// a reset token is redeemed: new password digest, cleared lockout state,
// consumed token, and every refresh token of the user purged. Implementations
// must apply it in a single transaction; a half-applied completion must never
// be observable.
type PasswordResetCompletion struct {
	TokenID      string
	UserID       string
	PasswordHash string
	UsedAt       time.Time
}

// TokenRepository manages refresh and password-reset token records.
type TokenRepository interface {
	CreateRefresh(ctx context.Context, token domain.RefreshToken) error
	GetRefresh(ctx context.Context, token string) (*domain.RefreshToken, error)
	// DeleteRefresh is a no-op when the token is already gone.
	DeleteRefresh(ctx context.Context, token string) error
	// DeleteRefreshForUser removes every refresh token of the user and
	// reports how many were deleted.
	DeleteRefreshForUser(ctx context.Context, userID string) (int, error)
	CreatePasswordReset(ctx context.Context, token domain.PasswordResetToken) error
	GetPasswordReset(ctx context.Context, token string) (*domain.PasswordResetToken, error)
	// CompletePasswordReset reports how many refresh tokens it revoked.
	CompletePasswordReset(ctx context.Context, change PasswordResetCompletion) (int, error)
}
