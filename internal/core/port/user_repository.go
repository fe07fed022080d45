package port

import (
	"context"
	"time"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
)

// UserRepository exposes persistence behavior for users. Implementations
// return repository.ErrNotFound for missing rows and repository.ErrDuplicate
// for unique-constraint violations.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmail expects an already-normalized email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByVerifyToken(ctx context.Context, token string) (*domain.User, error)
	// RegisterFailedLogin atomically increments the failed-attempt counter
	// and, when the post-increment count reaches threshold, stamps lockUntil
	// in the same statement. It returns the post-increment count as seen by
	// the store, so concurrent failures never under-count.
	RegisterFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, error)
	// ClearLoginFailures zeroes the counter and lifts any lock in one write.
	ClearLoginFailures(ctx context.Context, id string) error
	// SetVerifyToken overwrites the pending email verification token,
	// invalidating any previous one.
	SetVerifyToken(ctx context.Context, id string, token string) error
	// MarkEmailVerified flips the verified flag and clears the token.
	MarkEmailVerified(ctx context.Context, id string) error
}
