package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/core/port"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/config"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/security"
	"github.com/dustinober1/pmp-application-sub001/internal/repository"
	httproutes "github.com/dustinober1/pmp-application-sub001/internal/transport/http/routes"
	"github.com/dustinober1/pmp-application-sub001/internal/usecase"
)

func TestHealthEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger, _ := zap.NewDevelopment()
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	r := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: logger,
	})
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestRegisterLoginProfileRefreshLogout(t *testing.T) {
	env := newRouterEnv(t)

	// Register signs the user in immediately.
	code, body := env.postJSON(t, "/api/v1/auth/register", map[string]any{
		"email":        "flow@example.com",
		"password":     "quiet lantern harbor 7",
		"display_name": "Flow",
	})
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", code, body)
	}

	code, body = env.postJSON(t, "/api/v1/auth/login", map[string]any{
		"email":    "flow@example.com",
		"password": "quiet lantern harbor 7",
	})
	if code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", code, body)
	}

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		User         *struct {
			Email string `json:"email"`
			Tier  string `json:"tier"`
		} `json:"user"`
	}
	if err := json.Unmarshal(body, &pair); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if pair.TokenType != "Bearer" || pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("unexpected token payload: %+v", pair)
	}
	if pair.User == nil || pair.User.Tier != "free" {
		t.Fatalf("expected default tier in login response, got %+v", pair.User)
	}

	// Authenticated profile lookup.
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	// Refresh rotates; the consumed token stops working.
	code, body = env.postJSON(t, "/api/v1/auth/refresh", map[string]any{
		"refresh_token": pair.RefreshToken,
	})
	if code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d (%s)", code, body)
	}

	code, body = env.postJSON(t, "/api/v1/auth/refresh", map[string]any{
		"refresh_token": pair.RefreshToken,
	})
	if code != http.StatusUnauthorized {
		t.Fatalf("replayed refresh: expected 401, got %d (%s)", code, body)
	}
	var failure struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal(body, &failure); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if failure.Code != domain.CodeInvalidToken {
		t.Fatalf("expected %s, got %s", domain.CodeInvalidToken, failure.Code)
	}

	// Logout is idempotent.
	for i := 0; i < 2; i++ {
		code, body = env.postJSON(t, "/api/v1/auth/logout", map[string]any{
			"refresh_token": pair.RefreshToken,
		})
		if code != http.StatusOK {
			t.Fatalf("logout: expected 200, got %d (%s)", code, body)
		}
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	env := newRouterEnv(t)

	payload := map[string]any{
		"email":    "dup@example.com",
		"password": "quiet lantern harbor 7",
	}
	if code, body := env.postJSON(t, "/api/v1/auth/register", payload); code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d (%s)", code, body)
	}

	code, body := env.postJSON(t, "/api/v1/auth/register", payload)
	if code != http.StatusConflict {
		t.Fatalf("second register: expected 409, got %d (%s)", code, body)
	}
	var failure struct {
		Code       string `json:"code"`
		Suggestion string `json:"suggestion"`
	}
	if err := json.Unmarshal(body, &failure); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if failure.Code != domain.CodeEmailTaken {
		t.Fatalf("expected %s, got %s", domain.CodeEmailTaken, failure.Code)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	env := newRouterEnv(t)

	code, body := env.postJSON(t, "/api/v1/auth/register", map[string]any{
		"email":    "weak@example.com",
		"password": "password",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 for weak password, got %d (%s)", code, body)
	}
}

func TestLoginLockoutResponse(t *testing.T) {
	env := newRouterEnv(t)
	env.register(t, "locked@example.com", "quiet lantern harbor 7")

	var code int
	var body []byte
	for i := 0; i < domain.DefaultMaxFailedAttempts; i++ {
		code, body = env.postJSON(t, "/api/v1/auth/login", map[string]any{
			"email":    "locked@example.com",
			"password": "wrong password",
		})
	}

	// The threshold attempt itself answers like any other miss.
	if code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on the threshold attempt, got %d (%s)", code, body)
	}

	code, body = env.postJSON(t, "/api/v1/auth/login", map[string]any{
		"email":    "locked@example.com",
		"password": "quiet lantern harbor 7",
	})
	if code != http.StatusForbidden {
		t.Fatalf("expected 403 once locked, got %d (%s)", code, body)
	}
	var failure struct {
		Code        string     `json:"code"`
		Suggestion  string     `json:"suggestion"`
		LockedUntil *time.Time `json:"locked_until"`
	}
	if err := json.Unmarshal(body, &failure); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if failure.Code != domain.CodeAccountLocked {
		t.Fatalf("expected %s, got %s", domain.CodeAccountLocked, failure.Code)
	}
	if failure.LockedUntil == nil || failure.Suggestion == "" {
		t.Fatalf("lock response missing deadline: %+v", failure)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newRouterEnv(t)
	env.register(t, "reset@example.com", "quiet lantern harbor 7")

	// The response is identical whether or not the address exists.
	code, body := env.postJSON(t, "/api/v1/auth/password/request-reset", map[string]any{
		"email": "nobody@example.com",
	})
	if code != http.StatusOK {
		t.Fatalf("unknown address: expected 200, got %d (%s)", code, body)
	}

	code, body = env.postJSON(t, "/api/v1/auth/password/request-reset", map[string]any{
		"email": "reset@example.com",
	})
	if code != http.StatusOK {
		t.Fatalf("request-reset: expected 200, got %d (%s)", code, body)
	}

	if len(env.publisher.resets) != 1 {
		t.Fatalf("expected 1 reset event, got %d", len(env.publisher.resets))
	}
	token := env.publisher.resets[0].Token

	code, body = env.postJSON(t, "/api/v1/auth/password/reset", map[string]any{
		"token":    token,
		"password": "salt marsh beacon 9",
	})
	if code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d (%s)", code, body)
	}

	// The token is single use.
	code, body = env.postJSON(t, "/api/v1/auth/password/reset", map[string]any{
		"token":    token,
		"password": "another stone bridge 3",
	})
	if code != http.StatusBadRequest {
		t.Fatalf("reused token: expected 400, got %d (%s)", code, body)
	}

	// Only the new password logs in.
	if code, body = env.postJSON(t, "/api/v1/auth/login", map[string]any{
		"email": "reset@example.com", "password": "quiet lantern harbor 7",
	}); code != http.StatusUnauthorized {
		t.Fatalf("old password: expected 401, got %d (%s)", code, body)
	}
	if code, body = env.postJSON(t, "/api/v1/auth/login", map[string]any{
		"email": "reset@example.com", "password": "salt marsh beacon 9",
	}); code != http.StatusOK {
		t.Fatalf("new password: expected 200, got %d (%s)", code, body)
	}
}

func TestVerifyEmailEndpoint(t *testing.T) {
	env := newRouterEnv(t)

	code, body := env.postJSON(t, "/api/v1/auth/register", map[string]any{
		"email":    "verify@example.com",
		"password": "quiet lantern harbor 7",
	})
	if code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", code, body)
	}
	var registered struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &registered); err != nil {
		t.Fatalf("decode register response: %v", err)
	}

	if len(env.publisher.verifications) != 1 {
		t.Fatalf("expected 1 verification event, got %d", len(env.publisher.verifications))
	}

	// Resend requires the authenticated session.
	code, body = env.postJSON(t, "/api/v1/auth/resend-verification", nil)
	if code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated resend: expected 401, got %d (%s)", code, body)
	}

	req, _ := http.NewRequest(http.MethodPost, "/api/v1/auth/resend-verification", nil)
	req.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("resend-verification: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if len(env.publisher.verifications) != 2 {
		t.Fatalf("expected a fresh verification event, got %d", len(env.publisher.verifications))
	}
	token := env.publisher.verifications[1].Token

	code, body = env.postJSON(t, "/api/v1/auth/verify-email", map[string]any{"token": token})
	if code != http.StatusOK {
		t.Fatalf("verify-email: expected 200, got %d (%s)", code, body)
	}

	code, body = env.postJSON(t, "/api/v1/auth/verify-email", map[string]any{"token": token})
	if code != http.StatusBadRequest {
		t.Fatalf("redeemed token: expected 400, got %d (%s)", code, body)
	}

	// Already verified: resend answers with a plain message and mints nothing.
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/auth/resend-verification", nil)
	req.Header.Set("Authorization", "Bearer "+registered.AccessToken)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("verified resend: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if len(env.publisher.verifications) != 2 {
		t.Fatal("no new verification event expected for a verified address")
	}
}

// routerEnv wires the full HTTP stack against in-memory stores.
type routerEnv struct {
	router    *gin.Engine
	publisher *capturePublisher
}

func newRouterEnv(t *testing.T) *routerEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	signer, err := security.NewTokenSigner("access-secret", "refresh-secret", "auth-service")
	if err != nil {
		t.Fatalf("NewTokenSigner: %v", err)
	}

	cfg := &config.AppConfig{
		App: config.AppSettings{Env: "test", CORSOrigins: []string{"*"}},
		JWT: config.JWTSettings{
			Issuer:               "auth-service",
			AccessTokenTTL:       15 * time.Minute,
			RefreshTokenTTL:      7 * 24 * time.Hour,
			RememberMeAccessTTL:  time.Hour,
			RememberMeRefreshTTL: 30 * 24 * time.Hour,
		},
	}

	users := newMemUsers()
	tokens := newMemTokens(users)
	subs := newMemSubs(domain.SubscriptionTier{ID: "tier-free", Name: "free"})
	publisher := &capturePublisher{}

	issuer := usecase.NewTokenIssuer(cfg.JWT, signer, tokens)
	auth := usecase.NewAuthService(domain.DefaultLockoutPolicy(), users, tokens, subs, issuer, signer, nil)
	registration := usecase.NewRegistrationService(users, subs, issuer, publisher)
	reset := usecase.NewPasswordResetService(users, tokens, 24*time.Hour, publisher)

	router := httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: zap.NewNop(),
		Services: httproutes.ServiceSet{
			Auth:          auth,
			Registration:  registration,
			PasswordReset: reset,
		},
	})

	return &routerEnv{router: router, publisher: publisher}
}

func (e *routerEnv) postJSON(t *testing.T, path string, payload any) (int, []byte) {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w.Code, w.Body.Bytes()
}

func (e *routerEnv) register(t *testing.T, email, password string) {
	t.Helper()

	code, body := e.postJSON(t, "/api/v1/auth/register", map[string]any{
		"email":    email,
		"password": password,
	})
	if code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d (%s)", email, code, body)
	}
}

type memUsers struct {
	users map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*domain.User)}
}

func (r *memUsers) Create(_ context.Context, user domain.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	copied := user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := r.users[id]; ok {
		copied := *user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) GetByVerifyToken(_ context.Context, token string) (*domain.User, error) {
	for _, user := range r.users {
		if user.EmailVerifyToken != nil && *user.EmailVerifyToken == token {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) RegisterFailedLogin(_ context.Context, id string, threshold int, lockUntil time.Time) (int, error) {
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

func (r *memUsers) ClearLoginFailures(_ context.Context, id string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	return nil
}

func (r *memUsers) SetVerifyToken(_ context.Context, id string, token string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EmailVerifyToken = &token
	return nil
}

func (r *memUsers) MarkEmailVerified(_ context.Context, id string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.EmailVerified = true
	user.EmailVerifyToken = nil
	return nil
}

type memTokens struct {
	refresh map[string]domain.RefreshToken
	resets  map[string]*domain.PasswordResetToken
	users   *memUsers
}

func newMemTokens(users *memUsers) *memTokens {
	return &memTokens{
		refresh: make(map[string]domain.RefreshToken),
		resets:  make(map[string]*domain.PasswordResetToken),
		users:   users,
	}
}

func (r *memTokens) CreateRefresh(_ context.Context, token domain.RefreshToken) error {
	r.refresh[token.Token] = token
	return nil
}

func (r *memTokens) GetRefresh(_ context.Context, token string) (*domain.RefreshToken, error) {
	if record, ok := r.refresh[token]; ok {
		copied := record
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memTokens) DeleteRefresh(_ context.Context, token string) error {
	delete(r.refresh, token)
	return nil
}

func (r *memTokens) DeleteRefreshForUser(_ context.Context, userID string) (int, error) {
	deleted := 0
	for value, record := range r.refresh {
		if record.UserID == userID {
			delete(r.refresh, value)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memTokens) CreatePasswordReset(_ context.Context, token domain.PasswordResetToken) error {
	copied := token
	r.resets[token.Token] = &copied
	return nil
}

func (r *memTokens) GetPasswordReset(_ context.Context, token string) (*domain.PasswordResetToken, error) {
	if record, ok := r.resets[token]; ok {
		copied := *record
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memTokens) CompletePasswordReset(ctx context.Context, change port.PasswordResetCompletion) (int, error) {
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

type memSubs struct {
	tier   domain.SubscriptionTier
	byUser map[string]domain.SubscriptionTier
}

func newMemSubs(tier domain.SubscriptionTier) *memSubs {
	return &memSubs{tier: tier, byUser: make(map[string]domain.SubscriptionTier)}
}

func (r *memSubs) GetDefaultTier(context.Context) (*domain.SubscriptionTier, error) {
	copied := r.tier
	return &copied, nil
}

func (r *memSubs) GetTierForUser(_ context.Context, userID string) (*domain.SubscriptionTier, error) {
	if tier, ok := r.byUser[userID]; ok {
		copied := tier
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *memSubs) CreateSubscription(_ context.Context, sub domain.UserSubscription) error {
	if sub.TierID == r.tier.ID {
		r.byUser[sub.UserID] = r.tier
	}
	return nil
}

type capturePublisher struct {
	registered    []domain.UserRegisteredEvent
	verifications []domain.EmailVerificationRequestedEvent
	resets        []domain.PasswordResetRequestedEvent
	changes       []domain.PasswordChangedEvent
}

func (p *capturePublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.registered = append(p.registered, event)
	return nil
}

func (p *capturePublisher) PublishEmailVerificationRequested(_ context.Context, event domain.EmailVerificationRequestedEvent) error {
	p.verifications = append(p.verifications, event)
	return nil
}

func (p *capturePublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	p.resets = append(p.resets, event)
	return nil
}

func (p *capturePublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.changes = append(p.changes, event)
	return nil
}
