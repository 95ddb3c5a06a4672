package orgs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/junglehq/jungle/internal/faults"
)

// ErrOrgNotFound is returned when an organization is not found.
var ErrOrgNotFound = errors.New("organization not found")

// Store defines organization persistence.
type Store interface {
	GetByID(ctx context.Context, id string) (*Organization, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateThreshold(ctx context.Context, id string, minutes int) error
	UpdateSubscriptionStatus(ctx context.Context, id, status string) error
}

// PgxPool is the pgxpool surface used here, extracted so tests can use pgxmock.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore stores organizations in the relational database.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("orgs: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

// GetByID fetches one organization row.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (*Organization, error) {
	query := `
		SELECT id, name, subscription_status, speed_to_lead_minutes, created_at, updated_at
		FROM organizations
		WHERE id = $1
	`
	var org Organization
	if err := s.pool.QueryRow(ctx, query, id).Scan(
		&org.ID,
		&org.Name,
		&org.SubscriptionStatus,
		&org.SpeedToLeadMinutes,
		&org.CreatedAt,
		&org.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, &faults.StorageError{Op: "select organization", Err: err}
	}
	return &org, nil
}

// Exists reports whether an organization row exists.
func (s *PostgresStore) Exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM organizations WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return false, &faults.StorageError{Op: "check organization", Err: err}
	}
	return found, nil
}

// UpdateThreshold sets the speed-to-lead threshold for a tenant.
func (s *PostgresStore) UpdateThreshold(ctx context.Context, id string, minutes int) error {
	if minutes < MinThresholdMinutes || minutes > MaxThresholdMinutes {
		return &faults.ValidationError{Field: "speedToLeadMinutes", Reason: "must be between 1 and 60"}
	}
	query := `
		UPDATE organizations
		SET speed_to_lead_minutes = $2, updated_at = now()
		WHERE id = $1
		RETURNING id
	`
	var updated string
	if err := s.pool.QueryRow(ctx, query, id, minutes).Scan(&updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrgNotFound
		}
		return &faults.StorageError{Op: "update threshold", Err: err}
	}
	return nil
}

// UpdateSubscriptionStatus records billing lifecycle changes.
func (s *PostgresStore) UpdateSubscriptionStatus(ctx context.Context, id, status string) error {
	query := `
		UPDATE organizations
		SET subscription_status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id
	`
	var updated string
	if err := s.pool.QueryRow(ctx, query, id, status).Scan(&updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrOrgNotFound
		}
		return &faults.StorageError{Op: "update subscription status", Err: err}
	}
	return nil
}

// InMemoryStore backs tests and the development mode.
type InMemoryStore struct {
	mu   sync.RWMutex
	orgs map[string]*Organization
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{orgs: make(map[string]*Organization)}
}

// Put inserts or replaces an organization.
func (s *InMemoryStore) Put(org *Organization) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.CreatedAt.IsZero() {
		org.CreatedAt = time.Now().UTC()
	}
	org.UpdatedAt = time.Now().UTC()
	s.orgs[org.ID] = org
}

// GetByID fetches an organization.
func (s *InMemoryStore) GetByID(ctx context.Context, id string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrOrgNotFound
	}
	c := *org
	return &c, nil
}

// Exists reports whether the organization is known.
func (s *InMemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.orgs[id]
	return ok, nil
}

// UpdateThreshold sets the threshold.
func (s *InMemoryStore) UpdateThreshold(ctx context.Context, id string, minutes int) error {
	if minutes < MinThresholdMinutes || minutes > MaxThresholdMinutes {
		return &faults.ValidationError{Field: "speedToLeadMinutes", Reason: "must be between 1 and 60"}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return ErrOrgNotFound
	}
	m := minutes
	org.SpeedToLeadMinutes = &m
	org.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateSubscriptionStatus sets the billing status.
func (s *InMemoryStore) UpdateSubscriptionStatus(ctx context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return ErrOrgNotFound
	}
	org.SubscriptionStatus = status
	org.UpdatedAt = time.Now().UTC()
	return nil
}
