package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/dustinober1/pmp-application-sub001/internal/core/port"
)

const defaultDenylistPrefix = "auth:revoked_jti"

// AccessTokenDenylist implements port.AccessTokenDenylist on Redis. Entries
// carry a TTL matching the token's remaining lifetime, so the set never
// outgrows the set of tokens that could still verify.
type AccessTokenDenylist struct {
	client *red.Client
	prefix string
}

// NewAccessTokenDenylist wires Redis storage for revoked token identifiers.
func NewAccessTokenDenylist(client *red.Client, prefix string) *AccessTokenDenylist {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		trimmed = defaultDenylistPrefix
	}
	return &AccessTokenDenylist{client: client, prefix: trimmed}
}

func (d *AccessTokenDenylist) key(jti string) string {
	return d.prefix + ":" + jti
}

// Revoke records the jti until its natural expiry. A non-positive TTL means
// the token has already expired and there is nothing to record.
func (d *AccessTokenDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if d == nil || d.client == nil {
		return fmt.Errorf("denylist not configured")
	}
	if jti == "" {
		return fmt.Errorf("jti required")
	}
	if ttl <= 0 {
		return nil
	}

	if err := d.client.Set(ctx, d.key(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis set revoked jti: %w", err)
	}
	return nil
}

// IsRevoked reports whether the jti has been revoked.
func (d *AccessTokenDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if d == nil || d.client == nil {
		return false, fmt.Errorf("denylist not configured")
	}

	count, err := d.client.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("redis check revoked jti: %w", err)
	}
	return count > 0, nil
}

var _ port.AccessTokenDenylist = (*AccessTokenDenylist)(nil)
