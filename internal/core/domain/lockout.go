package domain

import "time"

const (
	// DefaultMaxFailedAttempts is the consecutive-failure count that locks an account.
	DefaultMaxFailedAttempts = 5
	// DefaultLockoutDuration is how long a triggered lock holds.
	DefaultLockoutDuration = 15 * time.Minute
)

// LockoutPolicy decides when repeated login failures lock an account and for
// how long. The policy itself is stateless: lock expiry is evaluated lazily
// against LockedUntil at read time, never flipped by a background job.
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

// DefaultLockoutPolicy returns the policy used when configuration supplies nothing.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		MaxAttempts: DefaultMaxFailedAttempts,
		Duration:    DefaultLockoutDuration,
	}
}

// Locked reports whether login is refused at the given instant. A past
// LockedUntil means the account is implicitly active again.
func (p LockoutPolicy) Locked(lockedUntil *time.Time, now time.Time) bool {
	return lockedUntil != nil && lockedUntil.After(now)
}

// LocksAt reports whether a post-increment failure count has reached the
// lock threshold.
func (p LockoutPolicy) LocksAt(failedAttempts int) bool {
	return p.MaxAttempts > 0 && failedAttempts >= p.MaxAttempts
}

// Deadline returns the instant a lock imposed now expires. The deadline is
// fixed at transition time; further attempts while locked do not extend it.
func (p LockoutPolicy) Deadline(now time.Time) time.Time {
	return now.Add(p.Duration)
}
