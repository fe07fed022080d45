package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/core/port"
	"github.com/dustinober1/pmp-application-sub001/internal/repository"
)

var userColumns = []string{
	"id",
	"email",
	"password_hash",
	"display_name",
	"email_verified",
	"email_verify_token",
	"failed_login_attempts",
	"locked_until",
	"created_at",
	"updated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository constructs a repository backed by any executor that
// satisfies pgExecutor.
func NewUserRepository(exec pgExecutor) *UserRepository {
	return &UserRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new user row. Unique violations surface as
// repository.ErrDuplicate so callers can treat a racing registration the
// same as a pre-existing email.
func (r *UserRepository) Create(ctx context.Context, user domain.User) error {
	stmt, args, err := r.builder.Insert("auth.users").
		Columns(userColumns...).
		Values(
			user.ID,
			user.Email,
			user.PasswordHash,
			user.DisplayName,
			user.EmailVerified,
			user.EmailVerifyToken,
			user.FailedLoginAttempts,
			user.LockedUntil,
			user.CreatedAt,
			user.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if translated := translateError(err); errors.Is(translated, repository.ErrDuplicate) {
			return translated
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a user by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by normalized email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email": email})
}

// GetByVerifyToken retrieves the user holding the pending verification token.
func (r *UserRepository) GetByVerifyToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getBy(ctx, squirrel.Eq{"email_verify_token": token})
}

func (r *UserRepository) getBy(ctx context.Context, cond squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("auth.users").
		Where(cond).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.EmailVerified,
		&user.EmailVerifyToken,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}

// RegisterFailedLogin increments the failed-attempt counter and stamps the
// lock deadline in the same statement when the new count reaches threshold.
// The returned count is the post-increment value the store observed, so
// concurrent failures never under-count.
func (r *UserRepository) RegisterFailedLogin(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, error) {
	stmt, args, err := r.builder.Update("auth.users").
		Set("failed_login_attempts", squirrel.Expr("failed_login_attempts + 1")).
		Set("locked_until", squirrel.Expr(
			"CASE WHEN failed_login_attempts + 1 >= ? THEN ?::timestamptz ELSE locked_until END",
			threshold, lockUntil,
		)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING failed_login_attempts").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build failed login sql: %w", err)
	}

	var attempts int
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&attempts); err != nil {
		if err == pgx.ErrNoRows {
			return 0, repository.ErrNotFound
		}
		return 0, fmt.Errorf("register failed login: %w", err)
	}

	return attempts, nil
}

// ClearLoginFailures zeroes the counter and lifts any lock in one write.
func (r *UserRepository) ClearLoginFailures(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("auth.users").
		Set("failed_login_attempts", 0).
		Set("locked_until", nil).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build clear login failures sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("clear login failures: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetVerifyToken overwrites the pending email verification token.
func (r *UserRepository) SetVerifyToken(ctx context.Context, id string, token string) error {
	stmt, args, err := r.builder.Update("auth.users").
		Set("email_verify_token", token).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set verify token sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("set verify token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// MarkEmailVerified flips the verified flag and clears the token.
func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Update("auth.users").
		Set("email_verified", true).
		Set("email_verify_token", nil).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark verified sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("mark email verified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.UserRepository = (*UserRepository)(nil)
