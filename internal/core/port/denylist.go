package port

import (
	"context"
	"time"
)

// AccessTokenDenylist records revoked access-token identifiers until their
// natural expiry. Logout uses it to retire the presented access token ahead
// of its signed lifetime.
type AccessTokenDenylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
