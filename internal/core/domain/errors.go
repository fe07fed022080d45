package domain

import (
	"errors"
	"time"
)

// ErrorKind classifies an AuthError for transport-layer status mapping.
type ErrorKind string

const (
	KindConflict     ErrorKind = "conflict"
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindBadRequest   ErrorKind = "bad_request"
)

// Stable machine-readable failure codes. Login failures share
// CodeInvalidCredentials regardless of cause so the response cannot reveal
// whether the email exists.
const (
	CodeEmailTaken         = "AUTH_002"
	CodeInvalidCredentials = "AUTH_003"
	CodeAccountLocked      = "AUTH_004"
	CodeInvalidToken       = "AUTH_005"
)

// AuthError is the engine's typed failure. Lower-layer store or crypto
// errors are never wrapped into one; they propagate as opaque internal
// errors instead.
type AuthError struct {
	Kind       ErrorKind
	Code       string
	Message    string
	Suggestion string
	// LockedUntil carries the unlock instant on account-locked failures.
	LockedUntil *time.Time
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	return e.Message
}

// ErrEmailTaken reports a duplicate registration.
func ErrEmailTaken() *AuthError {
	return &AuthError{
		Kind:       KindConflict,
		Code:       CodeEmailTaken,
		Message:    "Email already registered",
		Suggestion: "Please login instead",
	}
}

// ErrInvalidCredentials covers both unknown email and wrong password.
func ErrInvalidCredentials() *AuthError {
	return &AuthError{
		Kind:    KindUnauthorized,
		Code:    CodeInvalidCredentials,
		Message: "Invalid credentials",
	}
}

// ErrAccountLocked reports a lockout in force, carrying the unlock instant.
func ErrAccountLocked(until time.Time) *AuthError {
	u := until
	return &AuthError{
		Kind:        KindForbidden,
		Code:        CodeAccountLocked,
		Message:     "Account locked",
		Suggestion:  "Account locked until " + until.UTC().Format(time.RFC3339),
		LockedUntil: &u,
	}
}

// ErrInvalidRefreshToken reports an unknown, expired, or already-consumed
// refresh token.
func ErrInvalidRefreshToken() *AuthError {
	return &AuthError{
		Kind:    KindUnauthorized,
		Code:    CodeInvalidToken,
		Message: "Invalid or expired token",
	}
}

// ErrInvalidAccessToken reports an access token that fails signature,
// expiry, or revocation checks.
func ErrInvalidAccessToken() *AuthError {
	return &AuthError{
		Kind:    KindUnauthorized,
		Code:    CodeInvalidToken,
		Message: "Invalid or expired token",
	}
}

// ErrInvalidOneTimeToken reports an unusable password-reset or
// email-verification token.
func ErrInvalidOneTimeToken() *AuthError {
	return &AuthError{
		Kind:    KindBadRequest,
		Code:    CodeInvalidToken,
		Message: "Invalid or expired token",
	}
}

// ErrUnknownUser reports an authenticated principal that no longer resolves
// to a user record.
func ErrUnknownUser() *AuthError {
	return &AuthError{
		Kind:    KindUnauthorized,
		Code:    CodeInvalidToken,
		Message: "Invalid or expired token",
	}
}

// AsAuthError unwraps err into an AuthError when possible.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsKind reports whether err is an AuthError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ae, ok := AsAuthError(err)
	return ok && ae.Kind == kind
}
