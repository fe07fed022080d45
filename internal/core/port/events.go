package port

import (
	"context"

	"github.com/dustinober1/pmp-application-sub001/internal/core/domain"
)

// EventPublisher fans security events out to the notification pipeline.
// Publishing is best-effort: callers log failures and carry on, so the
// engine's outcomes never depend on the broker being reachable.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishEmailVerificationRequested(ctx context.Context, event domain.EmailVerificationRequestedEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
}
