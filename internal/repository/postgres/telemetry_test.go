package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/solovyshn/Blockly-for-Dwenguino/internal/core/domain"
)

func TestTelemetryRepository_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTelemetryRepository(mock)

	now := time.Now().UTC()
	event := domain.TelemetryEvent{
		ID:         "event-1",
		UserID:     "user-1",
		SessionID:  "session-1",
		ActivityID: "activity-1",
		Name:       "blocklyChange",
		Payload:    json.RawMessage(`{"block":"move_forward"}`),
		OccurredAt: now,
		CreatedAt:  now,
	}

	mock.ExpectExec(`INSERT INTO telemetry_events`).
		WithArgs(
			event.ID,
			event.UserID,
			event.SessionID,
			event.ActivityID,
			event.Name,
			event.Payload,
			event.OccurredAt,
			event.CreatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := repo.Insert(context.Background(), event); err != nil {
		t.Fatalf("Insert returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTelemetryRepository_Count(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTelemetryRepository(mock)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM telemetry_events`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(42)))

	count, err := repo.Count(context.Background())
	if err != nil {
		t.Fatalf("Count returned error: %v", err)
	}
	if count != 42 {
		t.Fatalf("expected 42, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTelemetryRepository_CountSince(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTelemetryRepository(mock)
	since := time.Now().UTC().Add(-5 * time.Minute)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM telemetry_events`).
		WithArgs(since).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	count, err := repo.CountSince(context.Background(), since)
	if err != nil {
		t.Fatalf("CountSince returned error: %v", err)
	}
	if count != 7 {
		t.Fatalf("expected 7, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTelemetryRepository_ListRecent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewTelemetryRepository(mock)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(telemetryColumns).
		AddRow("event-2", "user-1", "session-1", "activity-1", "runClicked", json.RawMessage(`{}`), now, now).
		AddRow("event-1", "user-1", "session-1", "activity-1", "blocklyChange", json.RawMessage(`{}`), now.Add(-time.Minute), now.Add(-time.Minute))

	mock.ExpectQuery(`SELECT .*FROM telemetry_events`).WillReturnRows(rows)

	events, err := repo.ListRecent(context.Background(), 100)
	if err != nil {
		t.Fatalf("ListRecent returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected two events, got %d", len(events))
	}
	if events[0].ID != "event-2" || events[1].ID != "event-1" {
		t.Fatalf("unexpected event order: %+v", events)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
