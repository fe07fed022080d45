package domain

import "time"

// RefreshToken is the server-side record of an issued refresh token. The
// token value itself is the primary key; deleting the row revokes the token
// regardless of its signature still verifying.
type RefreshToken struct {
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the token has elapsed its validity window.
func (t RefreshToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// PasswordResetToken is a one-time credential for setting a new password.
type PasswordResetToken struct {
	ID        string
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// IsExpired reports whether the token has elapsed its validity window.
func (t PasswordResetToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// Usable reports whether the token can still redeem a password change.
func (t PasswordResetToken) Usable(at time.Time) bool {
	return t.UsedAt == nil && !t.IsExpired(at)
}

// TokenPair is the credential set returned by registration, login, and refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds.
	ExpiresIn int
}
