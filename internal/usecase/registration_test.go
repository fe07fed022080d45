package usecase

import (
	"context"
	"testing"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/security"
	"github.com/dustinober1/pmp-application-sub001/internal/repository"
)

func TestRegisterSuccess(t *testing.T) {
	env := newTestEnv(t)

	profile, pair, err := env.registration.Register(context.Background(), " New@Example.COM", "correct horse battery staple", "New User")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if profile.Email != "new@example.com" {
		t.Fatalf("email was not normalized: %s", profile.Email)
	}
	if profile.Tier != "free" {
		t.Fatalf("expected default tier attached, got %q", profile.Tier)
	}
	if profile.EmailVerified {
		t.Fatal("new account should start unverified")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("registration should sign the user in")
	}

	stored, err := env.users.GetByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("stored user lookup failed: %v", err)
	}
	if stored.EmailVerifyToken == nil || *stored.EmailVerifyToken == "" {
		t.Fatal("expected pending verification token on the user row")
	}

	ok, err := security.VerifyPassword("correct horse battery staple", stored.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify: ok=%v err=%v", ok, err)
	}

	if len(env.publisher.registered) != 1 {
		t.Fatalf("expected 1 registered event, got %d", len(env.publisher.registered))
	}
	if len(env.publisher.verifications) != 1 {
		t.Fatalf("expected 1 verification event, got %d", len(env.publisher.verifications))
	}
	if env.publisher.verifications[0].Token != *stored.EmailVerifyToken {
		t.Fatal("verification event does not carry the stored token")
	}

	if len(env.subs.created) != 1 {
		t.Fatalf("expected 1 subscription created, got %d", len(env.subs.created))
	}
	if env.subs.created[0].Status != domain.SubscriptionStatusActive {
		t.Fatalf("unexpected subscription status: %s", env.subs.created[0].Status)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "taken@example.com", "correct horse battery staple")

	_, _, err := env.registration.Register(context.Background(), "taken@example.com", "another password", "Other")
	taken, ok := domain.AsAuthError(err)
	if !ok || taken.Code != domain.CodeEmailTaken {
		t.Fatalf("expected email-taken error, got %v", err)
	}
	if taken.Kind != domain.KindConflict {
		t.Fatalf("expected conflict kind, got %s", taken.Kind)
	}
}

func TestRegisterDuplicateRace(t *testing.T) {
	env := newTestEnv(t)

	// Simulate a racing insert landing between the pre-check and the write:
	// the store rejects with a duplicate, which surfaces as the same
	// email-taken failure.
	env.users.createErr = repository.ErrDuplicate

	_, _, err := env.registration.Register(context.Background(), "raced@example.com", "another password", "Second")
	taken, ok := domain.AsAuthError(err)
	if !ok || taken.Code != domain.CodeEmailTaken {
		t.Fatalf("expected email-taken error, got %v", err)
	}
}

func TestRegisterWithoutDefaultTier(t *testing.T) {
	env := newTestEnv(t)
	env.subs.defaultTier = nil

	profile, pair, err := env.registration.Register(context.Background(), "new@example.com", "correct horse battery staple", "New")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if profile.Tier != "" {
		t.Fatalf("expected no tier, got %q", profile.Tier)
	}
	if pair.AccessToken == "" {
		t.Fatal("registration should still sign the user in")
	}

	claims, err := env.signer.ParseAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ParseAccessToken: %v", err)
	}
	if claims.Tier != "" {
		t.Fatalf("expected empty tier claim, got %q", claims.Tier)
	}
}

func TestVerifyEmailRedeemsOnce(t *testing.T) {
	env := newTestEnv(t)

	profile, _, err := env.registration.Register(context.Background(), "new@example.com", "correct horse battery staple", "New")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	token := *env.users.users[profile.ID].EmailVerifyToken

	if err := env.registration.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}
	if !env.users.users[profile.ID].EmailVerified {
		t.Fatal("user was not marked verified")
	}
	if env.users.users[profile.ID].EmailVerifyToken != nil {
		t.Fatal("verification token survived redemption")
	}

	err = env.registration.VerifyEmail(context.Background(), token)
	invalid, ok := domain.AsAuthError(err)
	if !ok || invalid.Code != domain.CodeInvalidToken {
		t.Fatalf("expected invalid token on second redemption, got %v", err)
	}
}

func TestResendVerificationRotatesToken(t *testing.T) {
	env := newTestEnv(t)

	profile, _, err := env.registration.Register(context.Background(), "new@example.com", "correct horse battery staple", "New")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	original := *env.users.users[profile.ID].EmailVerifyToken

	token, err := env.registration.ResendVerification(context.Background(), profile.ID)
	if err != nil {
		t.Fatalf("ResendVerification returned error: %v", err)
	}
	if token == "" || token == original {
		t.Fatal("expected a fresh verification token")
	}

	// The superseded token no longer redeems.
	if err := env.registration.VerifyEmail(context.Background(), original); err == nil {
		t.Fatal("superseded token should not redeem")
	}
	if err := env.registration.VerifyEmail(context.Background(), token); err != nil {
		t.Fatalf("fresh token failed to redeem: %v", err)
	}
}

func TestResendVerificationAlreadyVerified(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "done@example.com", "correct horse battery staple")
	env.users.users[user.ID].EmailVerified = true

	token, err := env.registration.ResendVerification(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("ResendVerification returned error: %v", err)
	}
	if token != "" {
		t.Fatal("expected empty token for an already-verified address")
	}
}

func TestResendVerificationUnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.registration.ResendVerification(context.Background(), "missing-user-id")
	unknown, ok := domain.AsAuthError(err)
	if !ok || unknown.Kind != domain.KindUnauthorized {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}
