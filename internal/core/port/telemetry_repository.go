package port

import (
	"context"
	"time"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
)

// TelemetryRepository persists client event records.
type TelemetryRepository interface {
	Insert(ctx context.Context, event domain.TelemetryEvent) error
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]domain.TelemetryEvent, error)
}
