package domain

import (
	"strings"
	"time"
)

// User mirrors the persisted representation in the users table.
type User struct {
	ID                  string
	Email               string
	PasswordHash        string
	DisplayName         string
	EmailVerified       bool
	EmailVerifyToken    *string
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// NormalizeEmail lower-cases and trims an email address. Every lookup or
// write keyed by email goes through this first; the stored value is always
// normalized.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Profile is the sanitized view of a user returned to callers. It never
// carries the password hash or the pending email verification token.
type Profile struct {
	ID                  string
	Email               string
	DisplayName         string
	EmailVerified       bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	Tier                string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Sanitize projects the user onto its public profile with the resolved
// entitlement tier.
func (u User) Sanitize(tier string) Profile {
	return Profile{
		ID:                  u.ID,
		Email:               u.Email,
		DisplayName:         u.DisplayName,
		EmailVerified:       u.EmailVerified,
		FailedLoginAttempts: u.FailedLoginAttempts,
		LockedUntil:         u.LockedUntil,
		Tier:                tier,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}
