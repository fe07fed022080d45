package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/core/port"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/config"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/security"
)

// TokenIssuer mints access/refresh token pairs and persists the server-side
// refresh record. Registration, login, and refresh all issue through it so
// the lifetimes and claims stay consistent.
type TokenIssuer struct {
	cfg    config.JWTSettings
	signer *security.TokenSigner
	tokens port.TokenRepository
}

// NewTokenIssuer constructs a TokenIssuer.
func NewTokenIssuer(cfg config.JWTSettings, signer *security.TokenSigner, tokens port.TokenRepository) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, signer: signer, tokens: tokens}
}

// Lifetimes resolves the access/refresh TTL pair for the session flavor.
func (i *TokenIssuer) Lifetimes(rememberMe bool) (time.Duration, time.Duration) {
	if rememberMe {
		return i.cfg.RememberMeAccessTTL, i.cfg.RememberMeRefreshTTL
	}
	return i.cfg.AccessTokenTTL, i.cfg.RefreshTokenTTL
}

// IssuePair signs a fresh access/refresh pair for the user and stores the
// refresh token so it can be redeemed exactly once.
func (i *TokenIssuer) IssuePair(ctx context.Context, user domain.User, tierID string, rememberMe bool) (domain.TokenPair, error) {
	accessTTL, refreshTTL := i.Lifetimes(rememberMe)

	accessToken, _, err := i.signer.SignAccessToken(user.ID, user.Email, tierID, accessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := i.signer.SignRefreshToken(user.ID, refreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	now := time.Now().UTC()
	record := domain.RefreshToken{
		Token:     refreshToken,
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(refreshTTL),
	}
	if err := i.tokens.CreateRefresh(ctx, record); err != nil {
		return domain.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(accessTTL.Seconds()),
	}, nil
}
