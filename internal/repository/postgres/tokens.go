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

// TokenRepository implements port.TokenRepository using PostgreSQL tables.
type TokenRepository struct {
	pool    pgPool
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a new token repository.
func NewTokenRepository(pool pgPool) *TokenRepository {
	return &TokenRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateRefresh inserts a new refresh token record.
func (r *TokenRepository) CreateRefresh(ctx context.Context, token domain.RefreshToken) error {
	stmt, args, err := r.builder.Insert("auth.refresh_tokens").
		Columns("token", "user_id", "created_at", "expires_at").
		Values(token.Token, token.UserID, token.CreatedAt, token.ExpiresAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetRefresh retrieves a refresh token record by its value.
func (r *TokenRepository) GetRefresh(ctx context.Context, token string) (*domain.RefreshToken, error) {
	stmt, args, err := r.builder.
		Select("token", "user_id", "created_at", "expires_at").
		From("auth.refresh_tokens").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select refresh token sql: %w", err)
	}

	var record domain.RefreshToken
	if err := r.pool.QueryRow(ctx, stmt, args...).Scan(
		&record.Token,
		&record.UserID,
		&record.CreatedAt,
		&record.ExpiresAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &record, nil
}

// DeleteRefresh removes a refresh token record. Deleting a token that is
// already gone is not an error.
func (r *TokenRepository) DeleteRefresh(ctx context.Context, token string) error {
	stmt, args, err := r.builder.Delete("auth.refresh_tokens").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete refresh token sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}

// DeleteRefreshForUser removes every refresh token of the user and reports
// how many were deleted.
func (r *TokenRepository) DeleteRefreshForUser(ctx context.Context, userID string) (int, error) {
	stmt, args, err := r.builder.Delete("auth.refresh_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build delete user refresh tokens sql: %w", err)
	}

	tag, err := r.pool.Exec(ctx, stmt, args...)
	if err != nil {
		return 0, fmt.Errorf("delete user refresh tokens: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

// CreatePasswordReset inserts a new password reset token record.
func (r *TokenRepository) CreatePasswordReset(ctx context.Context, token domain.PasswordResetToken) error {
	stmt, args, err := r.builder.Insert("auth.password_reset_tokens").
		Columns("id", "token", "user_id", "created_at", "expires_at", "used_at").
		Values(token.ID, token.Token, token.UserID, token.CreatedAt, token.ExpiresAt, token.UsedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert reset token sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert reset token: %w", err)
	}

	return nil
}

// GetPasswordReset retrieves a password reset token record by its value.
func (r *TokenRepository) GetPasswordReset(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	stmt, args, err := r.builder.
		Select("id", "token", "user_id", "created_at", "expires_at", "used_at").
		From("auth.password_reset_tokens").
		Where(squirrel.Eq{"token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select reset token sql: %w", err)
	}

	var record domain.PasswordResetToken
	if err := r.pool.QueryRow(ctx, stmt, args...).Scan(
		&record.ID,
		&record.Token,
		&record.UserID,
		&record.CreatedAt,
		&record.ExpiresAt,
		&record.UsedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan reset token: %w", err)
	}

	return &record, nil
}

// CompletePasswordReset applies the full reset state change in one
// transaction: new digest plus cleared lockout counters, token consumption,
// and revocation of every refresh token the user holds. The token update
// guards on used_at so two racing completions cannot both succeed. It
// reports how many refresh tokens were revoked.
func (r *TokenRepository) CompletePasswordReset(ctx context.Context, change port.PasswordResetCompletion) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin password reset tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	userStmt, userArgs, err := r.builder.Update("auth.users").
		Set("password_hash", change.PasswordHash).
		Set("failed_login_attempts", 0).
		Set("locked_until", nil).
		Set("updated_at", change.UsedAt).
		Where(squirrel.Eq{"id": change.UserID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build reset user sql: %w", err)
	}

	tag, err := tx.Exec(ctx, userStmt, userArgs...)
	if err != nil {
		return 0, fmt.Errorf("update user password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, repository.ErrNotFound
	}

	tokenStmt, tokenArgs, err := r.builder.Update("auth.password_reset_tokens").
		Set("used_at", change.UsedAt).
		Where(squirrel.Eq{"id": change.TokenID}).
		Where("used_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build consume reset token sql: %w", err)
	}

	tag, err = tx.Exec(ctx, tokenStmt, tokenArgs...)
	if err != nil {
		return 0, fmt.Errorf("consume reset token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return 0, repository.ErrNotFound
	}

	revokeStmt, revokeArgs, err := r.builder.Delete("auth.refresh_tokens").
		Where(squirrel.Eq{"user_id": change.UserID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke refresh tokens sql: %w", err)
	}

	tag, err = tx.Exec(ctx, revokeStmt, revokeArgs...)
	if err != nil {
		return 0, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	revoked := int(tag.RowsAffected())

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit password reset tx: %w", err)
	}

	return revoked, nil
}

var _ port.TokenRepository = (*TokenRepository)(nil)
