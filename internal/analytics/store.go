package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store persists and aggregates analytics events.
type Store interface {
	Insert(ctx context.Context, e Event) error
	// EventCounts returns the number of events per event name in the window.
	EventCounts(ctx context.Context, w Window) (map[string]int, error)
	// ListEvents returns events in the window, newest first.
	ListEvents(ctx context.Context, w Window, event string, limit, offset int) ([]Event, error)
}

// PgxConn is the subset of pgxpool.Pool the store uses.
type PgxConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore backs the analytics tables.
type PostgresStore struct {
	db PgxConn
}

func NewPostgresStore(db PgxConn) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, e Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("analytics: encode properties: %w", err)
	}

	var id string
	err = s.db.QueryRow(ctx, `
		INSERT INTO analytics_events (id, event, properties, session_id, organization_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, e.ID, e.Event, props, e.SessionID, e.OrganizationID, e.OccurredAt).Scan(&id)
	if err != nil {
		return fmt.Errorf("analytics: insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) EventCounts(ctx context.Context, w Window) (map[string]int, error) {
	w = w.normalized()
	rows, err := s.db.Query(ctx, `
		SELECT event, COUNT(*)
		FROM analytics_events
		WHERE occurred_at >= $1 AND occurred_at <= $2
		GROUP BY event
	`, w.Start, w.End)
	if err != nil {
		return nil, fmt.Errorf("analytics: count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var event string
		var count int
		if err := rows.Scan(&event, &count); err != nil {
			return nil, fmt.Errorf("analytics: scan count: %w", err)
		}
		counts[event] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: rows: %w", err)
	}
	return counts, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context, w Window, event string, limit, offset int) ([]Event, error) {
	w = w.normalized()
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, event, properties, session_id, organization_id, occurred_at
		FROM analytics_events
		WHERE occurred_at >= $1 AND occurred_at <= $2
	`
	args := []any{w.Start, w.End}
	if event != "" {
		query += ` AND event = $3 ORDER BY occurred_at DESC LIMIT $4 OFFSET $5`
		args = append(args, event, limit, offset)
	} else {
		query += ` ORDER BY occurred_at DESC LIMIT $3 OFFSET $4`
		args = append(args, limit, offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("analytics: list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var props []byte
		if err := rows.Scan(&e.ID, &e.Event, &props, &e.SessionID, &e.OrganizationID, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("analytics: scan event: %w", err)
		}
		if len(props) > 0 {
			if err := json.Unmarshal(props, &e.Properties); err != nil {
				return nil, fmt.Errorf("analytics: decode properties: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("analytics: rows: %w", err)
	}
	return out, nil
}

// InMemoryStore holds events in a slice for tests and local development.
type InMemoryStore struct {
	mu     sync.Mutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Insert(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	s.events = append(s.events, e)
	return nil
}

func (s *InMemoryStore) EventCounts(ctx context.Context, w Window) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w = w.normalized()
	counts := make(map[string]int)
	for _, e := range s.events {
		if e.OccurredAt.Before(w.Start) || e.OccurredAt.After(w.End) {
			continue
		}
		counts[e.Event]++
	}
	return counts, nil
}

func (s *InMemoryStore) ListEvents(ctx context.Context, w Window, event string, limit, offset int) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w = w.normalized()
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var matched []Event
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if e.OccurredAt.Before(w.Start) || e.OccurredAt.After(w.End) {
			continue
		}
		if event != "" && e.Event != event {
			continue
		}
		matched = append(matched, e)
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
