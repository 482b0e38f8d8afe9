package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/logger"
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
		"role":          event.Role,
		"registered_at": event.RegisteredAt,
	}
	p.logEvent("auth.user.registered", event.UserID, event.RegisteredAt, payload)
	return nil
}

// PublishUserActivated logs auth.user.activated events.
func (p *StubPublisher) PublishUserActivated(_ context.Context, event domain.UserActivatedEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"email":        logger.MaskEmail(event.Email),
		"activated_at": event.ActivatedAt,
	}
	p.logEvent("auth.user.activated", event.UserID, event.ActivatedAt, payload)
	return nil
}

// PublishUserLoggedIn logs auth.session.created events.
func (p *StubPublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	payload := map[string]any{
		"user_id":      event.UserID,
		"email":        logger.MaskEmail(event.Email),
		"logged_in_at": event.LoggedInAt,
	}
	p.logEvent("auth.session.created", event.UserID, event.LoggedInAt, payload)
	return nil
}

// PublishUserLoggedOut logs auth.session.revoked events.
func (p *StubPublisher) PublishUserLoggedOut(_ context.Context, event domain.UserLoggedOutEvent) error {
	payload := map[string]any{
		"user_id":       event.UserID,
		"email":         logger.MaskEmail(event.Email),
		"logged_out_at": event.LoggedOutAt,
	}
	p.logEvent("auth.session.revoked", event.UserID, event.LoggedOutAt, payload)
	return nil
}

// PublishPasswordResetRequested logs auth.password.reset_requested events.
func (p *StubPublisher) PublishPasswordResetRequested(_ context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := map[string]any{
		"email":        logger.MaskEmail(event.Email),
		"requested_at": event.RequestedAt,
		"expires_at":   event.ExpiresAt,
	}
	p.logEvent("auth.password.reset_requested", "", event.RequestedAt, payload)
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	payload := map[string]any{
		"email":      logger.MaskEmail(event.Email),
		"changed_at": event.ChangedAt,
	}
	p.logEvent("auth.password.changed", "", event.ChangedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
