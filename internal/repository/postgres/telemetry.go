package postgres

import (
	"context"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/port"
)

var telemetryColumns = []string{
	"id",
	"user_id",
	"session_id",
	"activity_id",
	"name",
	"payload",
	"occurred_at",
	"created_at",
}

// TelemetryRepository implements port.TelemetryRepository using PostgreSQL.
type TelemetryRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTelemetryRepository wires a PostgreSQL-backed telemetry repository.
func NewTelemetryRepository(exec pgExecutor) *TelemetryRepository {
	return &TelemetryRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Insert stores a telemetry event row.
func (r *TelemetryRepository) Insert(ctx context.Context, event domain.TelemetryEvent) error {
	stmt, args, err := r.builder.Insert("telemetry_events").
		Columns(telemetryColumns...).
		Values(
			event.ID,
			event.UserID,
			event.SessionID,
			event.ActivityID,
			event.Name,
			event.Payload,
			event.OccurredAt,
			event.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert telemetry event sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert telemetry event: %w", err)
	}

	return nil
}

// Count returns the total number of stored events.
func (r *TelemetryRepository) Count(ctx context.Context) (int64, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("telemetry_events").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count telemetry events sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count telemetry events: %w", err)
	}

	return count, nil
}

// CountSince returns the number of events that occurred after the given time.
func (r *TelemetryRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	stmt, args, err := r.builder.
		Select("COUNT(*)").
		From("telemetry_events").
		Where(squirrel.Gt{"occurred_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count recent telemetry events sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count recent telemetry events: %w", err)
	}

	return count, nil
}

// ListRecent returns the most recent events, newest first.
func (r *TelemetryRepository) ListRecent(ctx context.Context, limit int) ([]domain.TelemetryEvent, error) {
	query := r.builder.Select(telemetryColumns...).
		From("telemetry_events").
		OrderBy("occurred_at DESC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list telemetry events sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query telemetry events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TelemetryEvent, 0)
	for rows.Next() {
		var event domain.TelemetryEvent
		if err := rows.Scan(
			&event.ID,
			&event.UserID,
			&event.SessionID,
			&event.ActivityID,
			&event.Name,
			&event.Payload,
			&event.OccurredAt,
			&event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan telemetry event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate telemetry events: %w", err)
	}

	return events, nil
}

var _ port.TelemetryRepository = (*TelemetryRepository)(nil)
