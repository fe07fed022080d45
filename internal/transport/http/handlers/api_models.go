package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/transport/http/middleware"
)

// ErrorResponse represents a generic error payload with a stable machine
// code and the request correlation ID for debugging.
type ErrorResponse struct {
	Error       string     `json:"error"`
	Code        string     `json:"code,omitempty"`
	Suggestion  string     `json:"suggestion,omitempty"`
	LockedUntil *time.Time `json:"locked_until,omitempty"`
	RequestID   string     `json:"request_id,omitempty"`
}

// NewErrorResponse creates an error response carrying the request ID.
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:     errorMsg,
		RequestID: middleware.GetRequestID(c),
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary describes the public view of a user returned by the API.
type UserSummary struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	Tier          string    `json:"tier,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newUserSummary(profile domain.Profile) UserSummary {
	return UserSummary{
		ID:            profile.ID,
		Email:         profile.Email,
		DisplayName:   profile.DisplayName,
		EmailVerified: profile.EmailVerified,
		Tier:          profile.Tier,
		CreatedAt:     profile.CreatedAt,
	}
}

// RegistrationRequest defines the account registration payload.
type RegistrationRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email      string `json:"email" binding:"required"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"remember_me"`
}

// TokenPairResponse describes an issued access/refresh token pair together
// with the authenticated user's public profile.
type TokenPairResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         *UserSummary `json:"user,omitempty"`
}

func newTokenPairResponse(pair domain.TokenPair, user *UserSummary) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		User:         user,
	}
}

// TokenRefreshRequest represents the payload to refresh an access token.
type TokenRefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest carries the refresh token to revoke. The access token is
// taken from the Authorization header.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// VerifyEmailRequest holds the email verification payload.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// PasswordResetRequest initiates a password reset for an email address.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// PasswordResetConfirmRequest redeems a reset token for a new password.
type PasswordResetConfirmRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness results.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
