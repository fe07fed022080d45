package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users         *UserRepository
	Tokens        *TokenRepository
	Subscriptions *SubscriptionRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool, defaultTier string) *Repositories {
	return &Repositories{
		Users:         NewUserRepository(pool),
		Tokens:        NewTokenRepository(pool),
		Subscriptions: NewSubscriptionRepository(pool, defaultTier),
	}
}
