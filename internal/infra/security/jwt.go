package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

// ErrInvalidToken indicates the token failed signature or claim validation.
var ErrInvalidToken = errors.New("jwt: invalid token")

const refreshTokenType = "refresh"

// AccessTokenClaims is the fixed claim set carried by access tokens.
type AccessTokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Tier   string `json:"tierId"`
	jwt.RegisteredClaims
}

// RefreshTokenClaims is the fixed claim set carried by refresh tokens. The
// type discriminator keeps a refresh token from being replayed where an
// access token is expected, and vice versa.
type RefreshTokenClaims struct {
	UserID    string `json:"userId"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// TokenSigner signs and parses the two token families with separate HMAC
// secrets so an access token never verifies against the refresh secret.
type TokenSigner struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
}

// NewTokenSigner constructs a TokenSigner. Both secrets are required.
func NewTokenSigner(accessSecret, refreshSecret, issuer string) (*TokenSigner, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("jwt: signing secrets not configured")
	}
	return &TokenSigner{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		issuer:        issuer,
	}, nil
}

// SignAccessToken issues an HS256 access token and returns it together with
// the generated jti so callers can later revoke it.
func (s *TokenSigner) SignAccessToken(userID, email, tier string, ttl time.Duration) (string, string, error) {
	now := time.Now()
	jti := uuid.NewString()

	claims := AccessTokenClaims{
		UserID: userID,
		Email:  email,
		Tier:   tier,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.accessSecret)
	if err != nil {
		return "", "", fmt.Errorf("jwt: sign access token: %w", err)
	}
	return signed, jti, nil
}

// SignRefreshToken issues an HS256 refresh token.
func (s *TokenSigner) SignRefreshToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := RefreshTokenClaims{
		UserID:    userID,
		TokenType: refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign refresh token: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies the signature and expiry of an access token.
func (s *TokenSigner) ParseAccessToken(token string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Header["alg"])
		}
		return s.accessSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseRefreshToken verifies the signature, expiry, and type discriminator
// of a refresh token.
func (s *TokenSigner) ParseRefreshToken(token string) (*RefreshTokenClaims, error) {
	claims := &RefreshTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method %v", ErrInvalidToken, t.Header["alg"])
		}
		return s.refreshSecret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != refreshTokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
