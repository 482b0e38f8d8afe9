package port

import (
	"context"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
)

// EventPublisher fans out security-relevant account events to downstream
// consumers. Publishing is best effort; failures must not break the flow
// that emitted the event.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error
	PublishUserActivated(ctx context.Context, event domain.UserActivatedEvent) error
	PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error
	PublishUserLoggedOut(ctx context.Context, event domain.UserLoggedOutEvent) error
	PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
}
