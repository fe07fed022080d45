package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/core/port"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/security"
	"github.com/dustinober1/pmp-application-sub001/internal/repository"
)

// AuthService coordinates the session lifecycle: login with lockout
// accounting, refresh rotation, and logout.
type AuthService struct {
	lockout  domain.LockoutPolicy
	users    port.UserRepository
	tokens   port.TokenRepository
	subs     port.SubscriptionRepository
	issuer   *TokenIssuer
	signer   *security.TokenSigner
	denylist port.AccessTokenDenylist
	logger   *zap.Logger
}

// NewAuthService constructs an AuthService instance. denylist may be nil;
// logout then relies on refresh revocation alone.
func NewAuthService(
	lockout domain.LockoutPolicy,
	users port.UserRepository,
	tokens port.TokenRepository,
	subs port.SubscriptionRepository,
	issuer *TokenIssuer,
	signer *security.TokenSigner,
	denylist port.AccessTokenDenylist,
) *AuthService {
	return &AuthService{
		lockout:  lockout,
		users:    users,
		tokens:   tokens,
		subs:     subs,
		issuer:   issuer,
		signer:   signer,
		denylist: denylist,
		logger:   zap.NewNop(),
	}
}

// WithLogger attaches a logger for best-effort failures that are swallowed
// by design.
func (s *AuthService) WithLogger(log *zap.Logger) *AuthService {
	if log != nil {
		s.logger = log
	}
	return s
}

// Login validates credentials and issues a token pair. Unknown email and
// wrong password fail identically; a lock in force fails with the unlock
// instant before the password is ever checked.
func (s *AuthService) Login(ctx context.Context, email, password string, rememberMe bool) (domain.Profile, domain.TokenPair, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.Profile{}, domain.TokenPair{}, domain.ErrInvalidCredentials()
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Profile{}, domain.TokenPair{}, domain.ErrInvalidCredentials()
		}
		return domain.Profile{}, domain.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	now := time.Now().UTC()
	if s.lockout.Locked(user.LockedUntil, now) {
		return domain.Profile{}, domain.TokenPair{}, domain.ErrAccountLocked(*user.LockedUntil)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return domain.Profile{}, domain.TokenPair{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return domain.Profile{}, domain.TokenPair{}, s.registerFailure(ctx, user.ID, now)
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		// A valid login must not fail because the counter reset did.
		if err := s.users.ClearLoginFailures(ctx, user.ID); err != nil {
			s.logger.Warn("failed to clear login failure counters",
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
	}

	tier, err := s.resolveTier(ctx, user.ID)
	if err != nil {
		return domain.Profile{}, domain.TokenPair{}, err
	}

	pair, err := s.issuer.IssuePair(ctx, *user, tier.ID, rememberMe)
	if err != nil {
		return domain.Profile{}, domain.TokenPair{}, err
	}

	return user.Sanitize(tier.Name), pair, nil
}

// registerFailure counts the miss at the store and returns the generic
// credentials failure. The attempt that trips the threshold persists the
// lock but still gets the same answer as any other miss; the lock is only
// observable on the next attempt. Failed logins stay indistinguishable.
func (s *AuthService) registerFailure(ctx context.Context, userID string, now time.Time) error {
	deadline := s.lockout.Deadline(now)
	if _, err := s.users.RegisterFailedLogin(ctx, userID, s.lockout.MaxAttempts, deadline); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrInvalidCredentials()
		}
		return fmt.Errorf("register failed login: %w", err)
	}

	return domain.ErrInvalidCredentials()
}

// Refresh redeems a refresh token for a new pair. The store is the source
// of truth: an unknown token fails, and an expired record is deleted on
// sight. The stored record is deleted before the new pair is issued, so a
// token redeems at most once even under concurrent use. The tier is
// re-resolved so entitlement changes land in the next access token.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error) {
	if refreshToken == "" {
		return domain.TokenPair{}, domain.ErrInvalidRefreshToken()
	}

	record, err := s.tokens.GetRefresh(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenPair{}, domain.ErrInvalidRefreshToken()
		}
		return domain.TokenPair{}, fmt.Errorf("lookup refresh token: %w", err)
	}

	now := time.Now().UTC()
	if record.IsExpired(now) {
		_ = s.tokens.DeleteRefresh(ctx, refreshToken)
		return domain.TokenPair{}, domain.ErrInvalidRefreshToken()
	}

	if err := s.tokens.DeleteRefresh(ctx, refreshToken); err != nil {
		return domain.TokenPair{}, fmt.Errorf("consume refresh token: %w", err)
	}

	user, err := s.users.GetByID(ctx, record.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.TokenPair{}, domain.ErrInvalidRefreshToken()
		}
		return domain.TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}

	tier, err := s.resolveTier(ctx, user.ID)
	if err != nil {
		return domain.TokenPair{}, err
	}

	// A long-lived record keeps its extended lifetime across rotations.
	rememberMe := record.ExpiresAt.Sub(record.CreatedAt) > s.issuer.cfg.RefreshTokenTTL

	return s.issuer.IssuePair(ctx, *user, tier.ID, rememberMe)
}

// Logout revokes the presented credentials. Naming a refresh token revokes
// that session; a valid access token with no refresh token revokes every
// session the user holds. It is idempotent: unknown or already-revoked tokens
// do not fail, and a denylist outage never blocks the logout itself.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	var claims *security.AccessTokenClaims
	if accessToken != "" {
		if parsed, err := s.signer.ParseAccessToken(accessToken); err == nil {
			claims = parsed
		}
	}

	switch {
	case refreshToken != "":
		_ = s.tokens.DeleteRefresh(ctx, refreshToken)
	case claims != nil:
		_, _ = s.tokens.DeleteRefreshForUser(ctx, claims.UserID)
	}

	if claims != nil && s.denylist != nil && claims.ExpiresAt != nil {
		_ = s.denylist.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))
	}

	return nil
}

// GetProfile resolves the sanitized profile for an authenticated principal.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Profile{}, domain.ErrUnknownUser()
		}
		return domain.Profile{}, fmt.Errorf("lookup user: %w", err)
	}

	tier, err := s.resolveTier(ctx, user.ID)
	if err != nil {
		return domain.Profile{}, err
	}

	return user.Sanitize(tier.Name), nil
}

// ValidateAccessToken verifies signature and expiry, then checks the
// revocation denylist. A denylist read failure fails open: the signed expiry
// still bounds the token's life.
func (s *AuthService) ValidateAccessToken(ctx context.Context, token string) (*security.AccessTokenClaims, error) {
	claims, err := s.signer.ParseAccessToken(token)
	if err != nil {
		return nil, domain.ErrInvalidAccessToken()
	}

	if s.denylist != nil {
		if revoked, err := s.denylist.IsRevoked(ctx, claims.ID); err == nil && revoked {
			return nil, domain.ErrInvalidAccessToken()
		}
	}

	return claims, nil
}

// resolveTier returns the user's active tier, or the zero tier when none is
// attached. Having no subscription is a valid state, not a failure.
func (s *AuthService) resolveTier(ctx context.Context, userID string) (domain.SubscriptionTier, error) {
	tier, err := s.subs.GetTierForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.SubscriptionTier{}, nil
		}
		return domain.SubscriptionTier{}, fmt.Errorf("resolve tier: %w", err)
	}
	return *tier, nil
}
