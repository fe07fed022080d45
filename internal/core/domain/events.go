package domain

import "time"

// UserRegisteredEvent announces a newly created account.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	DisplayName  string
	RegisteredAt time.Time
}

// EmailVerificationRequestedEvent hands a verification token to the
// notification pipeline for delivery.
type EmailVerificationRequestedEvent struct {
	EventID     string
	UserID      string
	Email       string
	Token       string
	RequestedAt time.Time
}

// PasswordResetRequestedEvent hands a reset token to the notification
// pipeline for delivery.
type PasswordResetRequestedEvent struct {
	EventID     string
	UserID      string
	Email       string
	Token       string
	RequestedAt time.Time
	ExpiresAt   time.Time
}

// PasswordChangedEvent announces a completed password reset.
type PasswordChangedEvent struct {
	EventID         string
	UserID          string
	ChangedAt       time.Time
	SessionsRevoked int
}
