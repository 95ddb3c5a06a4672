package integrations

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/junglehq/jungle/internal/faults"
)

// ErrCredentialNotFound is returned when no credential exists for the pair.
var ErrCredentialNotFound = errors.New("integration credential not found")

// Store persists encrypted credentials, one per (organization, type).
type Store interface {
	Upsert(ctx context.Context, orgID string, typ ProviderType, encryptedKey string) error
	Get(ctx context.Context, orgID string, typ ProviderType) (*Credential, error)
	ListMetadata(ctx context.Context, orgID string) ([]Metadata, error)
}

// PgxPool is the pgxpool surface used here, extracted so tests can use pgxmock.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore stores credentials in the relational database.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool PgxPool) *PostgresStore {
	if pool == nil {
		panic("integrations: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

// Upsert creates or replaces the credential for (org, type). The unique
// constraint on that pair gives upsert semantics on reconfiguration.
func (s *PostgresStore) Upsert(ctx context.Context, orgID string, typ ProviderType, encryptedKey string) error {
	query := `
		INSERT INTO integrations (id, organization_id, type, encrypted_key)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (organization_id, type)
		DO UPDATE SET encrypted_key = EXCLUDED.encrypted_key, updated_at = now()
		RETURNING id
	`
	var id string
	if err := s.pool.QueryRow(ctx, query, uuid.New(), orgID, string(typ), encryptedKey).Scan(&id); err != nil {
		return &faults.StorageError{Op: "upsert credential", Err: err}
	}
	return nil
}

// Get fetches the credential for (org, type).
func (s *PostgresStore) Get(ctx context.Context, orgID string, typ ProviderType) (*Credential, error) {
	query := `
		SELECT id, organization_id, type, encrypted_key, created_at, updated_at
		FROM integrations
		WHERE organization_id = $1 AND type = $2
	`
	var cred Credential
	if err := s.pool.QueryRow(ctx, query, orgID, string(typ)).Scan(
		&cred.ID,
		&cred.OrganizationID,
		&cred.Type,
		&cred.EncryptedKey,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, &faults.StorageError{Op: "select credential", Err: err}
	}
	return &cred, nil
}

// ListMetadata returns the secret-free credential list for an organization.
func (s *PostgresStore) ListMetadata(ctx context.Context, orgID string) ([]Metadata, error) {
	query := `
		SELECT type, created_at, updated_at
		FROM integrations
		WHERE organization_id = $1
		ORDER BY type
	`
	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, &faults.StorageError{Op: "list credentials", Err: err}
	}
	defer rows.Close()

	var out []Metadata
	for rows.Next() {
		var m Metadata
		if err := rows.Scan(&m.Type, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, &faults.StorageError{Op: "scan credential", Err: err}
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &faults.StorageError{Op: "iterate credentials", Err: err}
	}
	return out, nil
}

// InMemoryStore backs tests and the development mode.
type InMemoryStore struct {
	mu    sync.RWMutex
	creds map[string]*Credential // key: orgID + "/" + type
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{creds: make(map[string]*Credential)}
}

func credKey(orgID string, typ ProviderType) string {
	return orgID + "/" + string(typ)
}

// Upsert creates or replaces the credential for (org, type).
func (s *InMemoryStore) Upsert(ctx context.Context, orgID string, typ ProviderType, encryptedKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	if existing, ok := s.creds[credKey(orgID, typ)]; ok {
		existing.EncryptedKey = encryptedKey
		existing.UpdatedAt = now
		return nil
	}
	s.creds[credKey(orgID, typ)] = &Credential{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		Type:           typ,
		EncryptedKey:   encryptedKey,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

// Get fetches the credential for (org, type).
func (s *InMemoryStore) Get(ctx context.Context, orgID string, typ ProviderType) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[credKey(orgID, typ)]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	c := *cred
	return &c, nil
}

// ListMetadata returns the secret-free credential list for an organization.
func (s *InMemoryStore) ListMetadata(ctx context.Context, orgID string) ([]Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Metadata
	for _, cred := range s.creds {
		if cred.OrganizationID != orgID {
			continue
		}
		out = append(out, Metadata{Type: cred.Type, CreatedAt: cred.CreatedAt, UpdatedAt: cred.UpdatedAt})
	}
	return out, nil
}
