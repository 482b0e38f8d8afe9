package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishUserRegistered publishes auth.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event domain.UserRegisteredEvent) error {
	payload := struct {
		UserID       string    `json:"user_id"`
		Email        string    `json:"email"`
		Role         string    `json:"role"`
		RegisteredAt time.Time `json:"registered_at"`
	}{
		UserID:       event.UserID,
		Email:        event.Email,
		Role:         event.Role,
		RegisteredAt: event.RegisteredAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.user.registered", event.UserID, event.RegisteredAt, payload)
}

// PublishUserActivated publishes auth.user.activated events.
func (p *EventPublisher) PublishUserActivated(ctx context.Context, event domain.UserActivatedEvent) error {
	payload := struct {
		UserID      string    `json:"user_id"`
		Email       string    `json:"email"`
		ActivatedAt time.Time `json:"activated_at"`
	}{
		UserID:      event.UserID,
		Email:       event.Email,
		ActivatedAt: event.ActivatedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.user.activated", event.UserID, event.ActivatedAt, payload)
}

// PublishUserLoggedIn publishes auth.session.created events.
func (p *EventPublisher) PublishUserLoggedIn(ctx context.Context, event domain.UserLoggedInEvent) error {
	payload := struct {
		UserID     string    `json:"user_id"`
		Email      string    `json:"email"`
		LoggedInAt time.Time `json:"logged_in_at"`
	}{
		UserID:     event.UserID,
		Email:      event.Email,
		LoggedInAt: event.LoggedInAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.session.created", event.UserID, event.LoggedInAt, payload)
}

// PublishUserLoggedOut publishes auth.session.revoked events.
func (p *EventPublisher) PublishUserLoggedOut(ctx context.Context, event domain.UserLoggedOutEvent) error {
	payload := struct {
		UserID      string    `json:"user_id"`
		Email       string    `json:"email"`
		LoggedOutAt time.Time `json:"logged_out_at"`
	}{
		UserID:      event.UserID,
		Email:       event.Email,
		LoggedOutAt: event.LoggedOutAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.session.revoked", event.UserID, event.LoggedOutAt, payload)
}

// PublishPasswordResetRequested publishes auth.password.reset_requested events.
func (p *EventPublisher) PublishPasswordResetRequested(ctx context.Context, event domain.PasswordResetRequestedEvent) error {
	payload := struct {
		Email       string    `json:"email"`
		RequestedAt time.Time `json:"requested_at"`
		ExpiresAt   time.Time `json:"expires_at"`
	}{
		Email:       event.Email,
		RequestedAt: event.RequestedAt.UTC(),
		ExpiresAt:   event.ExpiresAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.password.reset_requested", "", event.RequestedAt, payload)
}

// PublishPasswordChanged publishes auth.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	payload := struct {
		Email     string    `json:"email"`
		ChangedAt time.Time `json:"changed_at"`
	}{
		Email:     event.Email,
		ChangedAt: event.ChangedAt.UTC(),
	}

	return p.publish(ctx, event.EventID, "auth.password.changed", "", event.ChangedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
