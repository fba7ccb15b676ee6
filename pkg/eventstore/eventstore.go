// Package eventstore keeps an append-only, per-aggregate log of domain events in
// the same database (and the same transaction) as the aggregate it describes.
package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrConcurrencyConflict = errors.New("concurrency conflict: version mismatch")
	ErrInvalidVersion      = errors.New("invalid version number")
)

// Schema is the events table, written with database.Migrate placeholders.
const Schema = `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id BIGINT NOT NULL,
	event_type TEXT NOT NULL,
	event_data {{json}} NOT NULL,
	version INT NOT NULL,
	created_at {{timestamp}} NOT NULL,
	UNIQUE (aggregate_type, aggregate_id, version)
)`

// Event is one recorded state change of an aggregate.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   int64           `json:"aggregateId"`
	EventType     string          `json:"eventType"`
	EventData     json.RawMessage `json:"eventData"`
	Version       int             `json:"version"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type eventRow struct {
	ID            string    `db:"id"`
	AggregateType string    `db:"aggregate_type"`
	AggregateID   int64     `db:"aggregate_id"`
	EventType     string    `db:"event_type"`
	EventData     []byte    `db:"event_data"`
	Version       int       `db:"version"`
	CreatedAt     time.Time `db:"created_at"`
}

// EventStore appends and loads events.
type EventStore struct {
	tracer trace.Tracer
	now    func() time.Time
}

// New creates an event store.
func New() *EventStore {
	return &EventStore{
		tracer: otel.Tracer("gymnexus/eventstore"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NewEvent marshals data into an event of the given type.
func NewEvent(eventType string, data any) (Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return Event{EventType: eventType, EventData: payload}, nil
}

// Append writes events inside tx with optimistic concurrency control: the
// aggregate's latest stored version must equal expectedVersion. Events are
// numbered expectedVersion+1, expectedVersion+2, ...
func (es *EventStore) Append(ctx context.Context, tx *sqlx.Tx, aggregateType string, aggregateID int64, expectedVersion int, events []Event) error {
	ctx, span := es.tracer.Start(ctx, "eventstore.append",
		trace.WithAttributes(
			attribute.String("aggregate.type", aggregateType),
			attribute.Int64("aggregate.id", aggregateID),
			attribute.Int("expected.version", expectedVersion),
			attribute.Int("event.count", len(events)),
		),
	)
	defer span.End()

	if expectedVersion < 0 {
		return ErrInvalidVersion
	}

	var currentVersion int
	err := tx.GetContext(ctx, &currentVersion, tx.Rebind(`
		SELECT COALESCE(MAX(version), 0)
		FROM events
		WHERE aggregate_type = ? AND aggregate_id = ?
	`), aggregateType, aggregateID)
	if err != nil {
		return fmt.Errorf("query current version: %w", err)
	}

	if currentVersion != expectedVersion {
		span.SetAttributes(
			attribute.Int("actual.version", currentVersion),
			attribute.Bool("conflict.detected", true),
		)
		return ErrConcurrencyConflict
	}

	insert := tx.Rebind(`
		INSERT INTO events (id, aggregate_type, aggregate_id, event_type, event_data, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	for i, event := range events {
		version := expectedVersion + i + 1
		id := uuid.New()
		_, err := tx.ExecContext(ctx, insert,
			id.String(),
			aggregateType,
			aggregateID,
			event.EventType,
			string(event.EventData),
			version,
			es.now(),
		)
		if err != nil {
			return fmt.Errorf("insert event %d: %w", i, err)
		}

		span.AddEvent("event.appended", trace.WithAttributes(
			attribute.String("event.id", id.String()),
			attribute.Int("event.version", version),
			attribute.String("event.type", event.EventType),
		))
	}

	span.SetAttributes(attribute.Bool("append.success", true))
	return nil
}

// Load returns every event of an aggregate ordered by version.
func (es *EventStore) Load(ctx context.Context, q sqlx.ExtContext, aggregateType string, aggregateID int64) ([]Event, error) {
	ctx, span := es.tracer.Start(ctx, "eventstore.load",
		trace.WithAttributes(
			attribute.String("aggregate.type", aggregateType),
			attribute.Int64("aggregate.id", aggregateID),
		),
	)
	defer span.End()

	var rows []eventRow
	err := sqlx.SelectContext(ctx, q, &rows, q.Rebind(`
		SELECT id, aggregate_type, aggregate_id, event_type, event_data, version, created_at
		FROM events
		WHERE aggregate_type = ? AND aggregate_id = ?
		ORDER BY version ASC
	`), aggregateType, aggregateID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}

	events := make([]Event, 0, len(rows))
	for _, row := range rows {
		id, err := uuid.Parse(row.ID)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, Event{
			ID:            id,
			AggregateType: row.AggregateType,
			AggregateID:   row.AggregateID,
			EventType:     row.EventType,
			EventData:     json.RawMessage(row.EventData),
			Version:       row.Version,
			CreatedAt:     row.CreatedAt,
		})
	}

	span.SetAttributes(attribute.Int("events.loaded", len(events)))
	return events, nil
}
