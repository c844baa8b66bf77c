package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	txcontext "keystone/pkg/platform/tx"
)

// PostgresStore implements Store using the transactional outbox pattern:
// events are written to the outbox table in the same transaction as the
// state change they record, and the relay publishes them to Kafka. The
// audit_events table materializes them for local querying.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres creates a PostgreSQL audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	eventID := uuid.New()
	query := `
		INSERT INTO audit_outbox (id, subject, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := s.execer(ctx).ExecContext(ctx, query,
		eventID, event.Subject, string(event.Action), payload, time.Now(),
	); err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}

	materialize := `
		INSERT INTO audit_events (id, timestamp, subject, action, actor, request_id, detail)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	detail, err := json.Marshal(event.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	if _, err := s.execer(ctx).ExecContext(ctx, materialize,
		eventID, event.Timestamp, event.Subject, string(event.Action),
		event.Actor, event.RequestID, detail,
	); err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	query := `
		SELECT timestamp, subject, action, actor, request_id, detail
		FROM audit_events
		WHERE subject = $1
		ORDER BY timestamp
	`
	rows, err := s.db.QueryContext(ctx, query, subject)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event  Event
			action string
			detail []byte
		)
		if err := rows.Scan(&event.Timestamp, &event.Subject, &action, &event.Actor, &event.RequestID, &detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &event.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

// NextOutbox claims up to limit unpublished outbox rows for the relay.
type OutboxEntry struct {
	ID      uuid.UUID
	Subject string
	Payload []byte
}

// ListOutbox returns unpublished outbox entries in insertion order.
func (s *PostgresStore) ListOutbox(ctx context.Context, limit int) ([]OutboxEntry, error) {
	query := `
		SELECT id, subject, payload
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []OutboxEntry
	for rows.Next() {
		var e OutboxEntry
		if err := rows.Scan(&e.ID, &e.Subject, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

// MarkPublished stamps an outbox entry after the broker acknowledged it.
func (s *PostgresStore) MarkPublished(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE audit_outbox SET published_at = $2 WHERE id = $1`
	if _, err := s.db.ExecContext(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("mark outbox published: %w", err)
	}
	return nil
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}
