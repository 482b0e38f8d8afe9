package domain

import (
	"encoding/json"
	"time"
)

// TelemetryEvent is a client-reported simulator event with best-effort user
// attribution. UserID is empty when the reporting request carried no usable
// session.
type TelemetryEvent struct {
	ID         string
	UserID     string
	SessionID  string
	ActivityID string
	Name       string
	Payload    json.RawMessage
	OccurredAt time.Time
	CreatedAt  time.Time
}
