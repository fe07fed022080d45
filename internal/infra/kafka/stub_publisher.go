package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
	"github.com/dustinober1/pmp-application-sub001/internal/core/port"
	"github.com/dustinober1/pmp-application-sub001/internal/infra/logger"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, userID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", userID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishUserRegistered logs auth.user.registered events.
func (p *StubPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"email":         logger.MaskEmail(event.Email),
		"display_name":  event.DisplayName,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("auth.user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishEmailVerificationRequested logs auth.user.email.verification_requested events.
func (p *StubPublisher) PublishEmailVerificationRequested(_ context.Context, event domain.EmailVerificationRequestedEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"email":        logger.MaskEmail(event.Email),
		"token":        logger.MaskString(event.Token),
		"requested_at": event.RequestedAt,
	}
	p.logEvent("auth.user.email.verification_requested", event.UserID, event.RequestedAt, payload)
	return nil
}

// PublishPasswordResetRequested logs auth.user.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"email":        logger.MaskEmail(event.Email),
		"token":        logger.MaskString(event.Token),
		"requested_at": event.RequestedAt,
		"expires_at":   event.ExpiresAt,
	}
	p.logEvent("auth.user.password.reset_requested", event.UserID, event.RequestedAt, payload)
	return nil
}

// PublishPasswordChanged logs auth.user.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"user_id":          event.UserID,
		"changed_at":       event.ChangedAt,
		"sessions_revoked": event.SessionsRevoked,
	}
	p.logEvent("auth.user.password.changed", event.UserID, event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
