package alerts

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Store persists alerts for the operator audit trail.
type Store interface {
	// Record appends an alert. Implementations must not mutate a.
	Record(ctx context.Context, a Alert) (string, error)
	// ListByOrg returns the most recent alerts for an organization,
	// newest first, capped at limit.
	ListByOrg(ctx context.Context, orgID string, limit int) ([]Alert, error)
}

// PgxConn is the subset of pgxpool.Pool used by PostgresStore.
type PgxConn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore writes alerts to the system_alerts table.
type PostgresStore struct {
	db PgxConn
}

func NewPostgresStore(db PgxConn) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, a Alert) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Severity == "" {
		a.Severity = SeverityWarning
	}

	var id string
	err := s.db.QueryRow(ctx, `
		INSERT INTO system_alerts (id, organization_id, lead_id, kind, severity, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.ID, a.OrganizationID, a.LeadID, a.Kind, string(a.Severity), a.Message, a.CreatedAt).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("alerts: insert: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) ListByOrg(ctx context.Context, orgID string, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, organization_id, lead_id, kind, severity, message, created_at
		FROM system_alerts
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("alerts: query: %w", err)
	}
	defer rows.Close()

	var out []Alert
	for rows.Next() {
		var a Alert
		var sev string
		if err := rows.Scan(&a.ID, &a.OrganizationID, &a.LeadID, &a.Kind, &sev, &a.Message, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("alerts: scan: %w", err)
		}
		a.Severity = Severity(sev)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("alerts: rows: %w", err)
	}
	return out, nil
}

// InMemoryStore is a thread-safe store for tests and local development.
type InMemoryStore struct {
	mu     sync.Mutex
	alerts []Alert
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Record(ctx context.Context, a Alert) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Severity == "" {
		a.Severity = SeverityWarning
	}
	s.alerts = append(s.alerts, a)
	return a.ID, nil
}

func (s *InMemoryStore) ListByOrg(ctx context.Context, orgID string, limit int) ([]Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 50
	}
	var out []Alert
	for i := len(s.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		if s.alerts[i].OrganizationID == orgID {
			out = append(out, s.alerts[i])
		}
	}
	return out, nil
}
