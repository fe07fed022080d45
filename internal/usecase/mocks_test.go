package usecase

import (
	"context"
	"testing"
	"time"

	uuid "github.com/google/uuid"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/core/port"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/config"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/security"
	"github.com/dustinober1/pmp-application-sub001/internal/repository"
)

type testUserRepo struct {
	users     map[string]*domain.User
	createErr error
	clearErr  error
}

func newTestUserRepo() *testUserRepo {
	return &testUserRepo{users: make(map[string]*domain.User)}
}

func (r *testUserRepo) add(user domain.User) {
	copied := user
	r.users[user.ID] = &copied
}

func (r *testUserRepo) Create(_ context.Context, user domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.add(user)
	return nil
}

func (r *testUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *testUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *testUserRepo) GetByVerifyToken(_ context.Context, token string) (*domain.User, error) {
	for _, user := range r.users {
		if user.EmailVerifyToken != nil && *user.EmailVerifyToken == token {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *testUserRepo) RegisterFailedLogin(_ context.Context, id string, threshold int, lockUntil time.Time) (int, error) {
	user, ok := r.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts >= threshold {
		until := lockUntil
		user.LockedUntil = &until
	}
	return user.FailedLoginAttempts, nil
}

func (r *testUserRepo) ClearLoginFailures(_ context.Context, id string) error {
	if r.clearErr != nil {
		return r.clearErr
	}
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	return nil
}

func (r *testUserRepo) SetVerifyToken(_ context.Context, id string, token string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EmailVerifyToken = &token
	return nil
}

func (r *testUserRepo) MarkEmailVerified(_ context.Context, id string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EmailVerified = true
	user.EmailVerifyToken = nil
	return nil
}

type testTokenRepo struct {
	refresh map[string]domain.RefreshToken
	resets  map[string]*domain.PasswordResetToken
	users   *testUserRepo
}

func newTestTokenRepo(users *testUserRepo) *testTokenRepo {
	return &testTokenRepo{
		refresh: make(map[string]domain.RefreshToken),
		resets:  make(map[string]*domain.PasswordResetToken),
		users:   users,
	}
}

func (r *testTokenRepo) CreateRefresh(_ context.Context, token domain.RefreshToken) error {
	r.refresh[token.Token] = token
	return nil
}

func (r *testTokenRepo) GetRefresh(_ context.Context, token string) (*domain.RefreshToken, error) {
	if record, ok := r.refresh[token]; ok {
		copied := record
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *testTokenRepo) DeleteRefresh(_ context.Context, token string) error {
	delete(r.refresh, token)
	return nil
}

func (r *testTokenRepo) DeleteRefreshForUser(_ context.Context, userID string) (int, error) {
	deleted := 0
	for value, record := range r.refresh {
		if record.UserID == userID {
			delete(r.refresh, value)
			deleted++
		}
	}
	return deleted, nil
}

func (r *testTokenRepo) CreatePasswordReset(_ context.Context, token domain.PasswordResetToken) error {
	copied := token
	r.resets[token.Token] = &copied
	return nil
}

func (r *testTokenRepo) GetPasswordReset(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	if record, ok := r.resets[token]; ok {
		copied := *record
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *testTokenRepo) CompletePasswordReset(ctx context.Context, change port.PasswordResetCompletion) (int, error) {
	var record *domain.PasswordResetToken
	for _, candidate := range r.resets {
		if candidate.ID == change.TokenID {
			record = candidate
			break
		}
	}
	if record == nil || record.UsedAt != nil {
		return 0, repository.ErrNotFound
	}

	user, ok := r.users.users[change.UserID]
	if !ok {
		return 0, repository.ErrNotFound
	}

	usedAt := change.UsedAt
	record.UsedAt = &usedAt
	user.PasswordHash = change.PasswordHash
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil

	return r.DeleteRefreshForUser(ctx, change.UserID)
}

type testSubscriptionRepo struct {
	defaultTier *domain.SubscriptionTier
	tiers       map[string]domain.SubscriptionTier
	created     []domain.UserSubscription
}

func newTestSubscriptionRepo(defaultTier *domain.SubscriptionTier) *testSubscriptionRepo {
	return &testSubscriptionRepo{
		defaultTier: defaultTier,
		tiers:       make(map[string]domain.SubscriptionTier),
	}
}

func (r *testSubscriptionRepo) GetDefaultTier(context.Context) (*domain.SubscriptionTier, error) {
	if r.defaultTier == nil {
		return nil, repository.ErrNotFound
	}
	copied := *r.defaultTier
	return &copied, nil
}

func (r *testSubscriptionRepo) GetTierForUser(_ context.Context, userID string) (*domain.SubscriptionTier, error) {
	if tier, ok := r.tiers[userID]; ok {
		copied := tier
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *testSubscriptionRepo) CreateSubscription(_ context.Context, sub domain.UserSubscription) error {
	r.created = append(r.created, sub)
	if r.defaultTier != nil && sub.TierID == r.defaultTier.ID {
		r.tiers[sub.UserID] = *r.defaultTier
	}
	return nil
}

type testPublisher struct {
	registered    []domain.UserRegisteredEvent
	verifications []domain.EmailVerificationRequestedEvent
	resets        []domain.PasswordResetRequestedEvent
	changes       []domain.PasswordChangedEvent
}

func (p *testPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.registered = append(p.registered, event)
	return nil
}

func (p *testPublisher) PublishEmailVerificationRequested(_ context.Context, event domain.EmailVerificationRequestedEvent) error {
	p.verifications = append(p.verifications, event)
	return nil
}

func (p *testPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.resets = append(p.resets, event)
	return nil
}

func (p *testPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.changes = append(p.changes, event)
	return nil
}

type testDenylist struct {
	revoked   map[string]bool
	checkErr  error
	revokeErr error
}

func newTestDenylist() *testDenylist {
	return &testDenylist{revoked: make(map[string]bool)}
}

func (d *testDenylist) Revoke(_ context.Context, jti string, _ time.Duration) error {
	if d.revokeErr != nil {
		return d.revokeErr
	}
	d.revoked[jti] = true
	return nil
}

func (d *testDenylist) IsRevoked(_ context.Context, jti string) (bool, error) {
	if d.checkErr != nil {
		return false, d.checkErr
	}
	return d.revoked[jti], nil
}

type testEnv struct {
	users        *testUserRepo
	tokens       *testTokenRepo
	subs         *testSubscriptionRepo
	publisher    *testPublisher
	denylist     *testDenylist
	signer       *security.TokenSigner
	issuer       *TokenIssuer
	auth         *AuthService
	registration *RegistrationService
	reset        *PasswordResetService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	signer, err := security.NewTokenSigner("access-secret", "refresh-secret", "auth-service")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	jwtCfg := config.JWTSettings{
		AccessTokenTTL:       15 * time.Minute,
		RefreshTokenTTL:      7 * 24 * time.Hour,
		RememberMeAccessTTL:  time.Hour,
		RememberMeRefreshTTL: 30 * 24 * time.Hour,
		Issuer:               "auth-service",
	}

	users := newTestUserRepo()
	tokens := newTestTokenRepo(users)
	subs := newTestSubscriptionRepo(&domain.SubscriptionTier{ID: "tier-free", Name: "free"})
	publisher := &testPublisher{}
	denylist := newTestDenylist()
	issuer := NewTokenIssuer(jwtCfg, signer, tokens)

	return &testEnv{
		users:        users,
		tokens:       tokens,
		subs:         subs,
		publisher:    publisher,
		denylist:     denylist,
		signer:       signer,
		issuer:       issuer,
		auth:         NewAuthService(domain.DefaultLockoutPolicy(), users, tokens, subs, issuer, signer, denylist),
		registration: NewRegistrationService(users, subs, issuer, publisher),
		reset:        NewPasswordResetService(users, tokens, 24*time.Hour, publisher),
	}
}

// addUser seeds a user with the given password and an active default-tier
// subscription.
func (e *testEnv) addUser(t *testing.T, email, password string) domain.User {
	t.Helper()

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        domain.NormalizeEmail(email),
		PasswordHash: hash,
		DisplayName:  "Test User",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	e.users.add(user)
	e.subs.tiers[user.ID] = *e.subs.defaultTier
	return user
}
