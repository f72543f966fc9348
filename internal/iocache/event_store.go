package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
)

var eventColumns = []string{
	"event_id",
	"user_id",
	"mode",
	"status",
	"score",
	"grade",
	"persisted",
	"rate_remaining",
	"started_at",
	"finished_at",
	"duration_ms",
	"error_message",
}

// EventStoreImpl is the append-only scan log.
type EventStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.EventStore = &EventStoreImpl{} // Compile-time check

// NewEventStore initializes and returns a new EventStore based on the backend type.
func NewEventStore(backend schema.DatabaseBackend, connStr string) (*EventStoreImpl, error) {
	if backend == schema.NoneBackend {
		return &EventStoreImpl{backend: backend, connStr: connStr}, nil
	}

	db, err := openDB(backend, connStr, contract.GetEventDBFilePath())
	if err != nil {
		return nil, err
	}

	ddl, err := readDDL(backend, eventDDLFile)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table %s: %w", EventTable, err)
	}

	return &EventStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

// Append inserts one event. A missing event id is generated.
func (s *EventStoreImpl) Append(ctx context.Context, event schema.ScanEvent) error {
	if s.backend == schema.NoneBackend || s.db == nil {
		return nil
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	var score sql.NullFloat64
	if event.Score != nil {
		score = sql.NullFloat64{Float64: *event.Score, Valid: true}
	}
	persisted := 0
	if event.Persisted {
		persisted = 1
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteTableName(EventTable, s.backend), strings.Join(eventColumns, ", "), placeholders(s.backend, len(eventColumns)))
	_, err := s.db.ExecContext(ctx, query,
		event.EventID,
		schema.NormalizeUser(event.UserID),
		string(event.Mode),
		string(event.Status),
		score,
		sql.NullString{String: string(event.Grade), Valid: event.Grade != ""},
		persisted,
		event.RateRemaining,
		event.StartedAt.UnixMilli(),
		event.FinishedAt.UnixMilli(),
		event.DurationMs,
		sql.NullString{String: event.Error, Valid: event.Error != ""},
	)
	if err != nil {
		return fmt.Errorf("failed to append scan event: %w", err)
	}
	return nil
}

// ListEvents returns events newest first. An empty userID lists every user and a non-positive limit lists everything.
func (s *EventStoreImpl) ListEvents(ctx context.Context, userID string, limit int) ([]schema.ScanEvent, error) {
	if s.backend == schema.NoneBackend || s.db == nil {
		return []schema.ScanEvent{}, nil
	}

	var (
		where string
		args  []any
	)
	if userID != "" {
		where = " WHERE user_id = " + placeholder(s.backend, 1)
		args = append(args, schema.NormalizeUser(userID))
	}
	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY started_at DESC, event_id",
		strings.Join(eventColumns, ", "), quoteTableName(EventTable, s.backend), where)
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scan events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	events := []schema.ScanEvent{}
	for rows.Next() {
		var (
			e                   schema.ScanEvent
			mode, status        string
			score               sql.NullFloat64
			grade, errMsg       sql.NullString
			persisted           int
			startedAt, finished int64
		)
		if err := rows.Scan(&e.EventID, &e.UserID, &mode, &status, &score, &grade, &persisted,
			&e.RateRemaining, &startedAt, &finished, &e.DurationMs, &errMsg); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Mode = schema.ScanMode(mode)
		e.Status = schema.ScanStatus(status)
		if score.Valid {
			v := score.Float64
			e.Score = &v
		}
		e.Grade = schema.Grade(grade.String)
		e.Persisted = persisted != 0
		e.StartedAt = time.UnixMilli(startedAt).UTC()
		e.FinishedAt = time.UnixMilli(finished).UTC()
		e.Error = errMsg.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetStatus returns status information about the event store.
func (s *EventStoreImpl) GetStatus() (schema.StoreStatus, error) {
	return tableStatus(s.db, s.backend, s.connStr, EventTable, "started_at")
}

// Close closes the underlying DB connection.
func (s *EventStoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
