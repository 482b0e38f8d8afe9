package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
)

const recentEventsWindow = 5 * time.Minute

// TelemetryInput carries a client-reported simulator event.
type TelemetryInput struct {
	SessionID  string
	ActivityID string
	Name       string
	Payload    json.RawMessage
	OccurredAt time.Time
}

// TelemetryStats summarizes the stored event volume for the admin surface.
type TelemetryStats struct {
	Total  int64
	Recent int64
}

// TelemetryService records client events with best-effort user attribution.
type TelemetryService struct {
	events port.TelemetryRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewTelemetryService constructs the telemetry service.
func NewTelemetryService(events port.TelemetryRepository, log *zap.Logger) *TelemetryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &TelemetryService{events: events, logger: log, now: time.Now}
}

// RecordEvent validates and stores a client event. The identity comes from
// the soft guard and may be empty; attribution never gates recording.
func (s *TelemetryService) RecordEvent(ctx context.Context, identity domain.AuthContext, in TelemetryInput) error {
	if strings.TrimSpace(in.Name) == "" || in.OccurredAt.IsZero() {
		return newValidationError(CodeRequiredFields)
	}

	event := domain.TelemetryEvent{
		ID:         uuid.NewString(),
		UserID:     identity.UserID,
		SessionID:  in.SessionID,
		ActivityID: in.ActivityID,
		Name:       in.Name,
		Payload:    in.Payload,
		OccurredAt: in.OccurredAt.UTC(),
		CreatedAt:  s.now().UTC(),
	}

	if err := s.events.Insert(ctx, event); err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	return nil
}

// Stats returns the total and recent event counts.
func (s *TelemetryService) Stats(ctx context.Context) (TelemetryStats, error) {
	total, err := s.events.Count(ctx)
	if err != nil {
		return TelemetryStats{}, fmt.Errorf("count events: %w", err)
	}

	recent, err := s.events.CountSince(ctx, s.now().UTC().Add(-recentEventsWindow))
	if err != nil {
		return TelemetryStats{}, fmt.Errorf("count recent events: %w", err)
	}

	return TelemetryStats{Total: total, Recent: recent}, nil
}

// RecentEvents returns the most recent events, newest first.
func (s *TelemetryService) RecentEvents(ctx context.Context, limit int) ([]domain.TelemetryEvent, error) {
	events, err := s.events.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	return events, nil
}

// WithClock overrides the service clock, used in tests.
func (s *TelemetryService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}
