package leads

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/junglehq/jungle/internal/faults"
)

// PgxPool is the pgxpool surface used here, extracted so tests can use pgxmock.
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	pool PgxPool
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool PgxPool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{pool: pool}
}

// Create inserts a new pending lead row.
func (r *PostgresRepository) Create(ctx context.Context, params CreateLeadParams) (*Lead, error) {
	id := uuid.New()
	receivedAt := params.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO leads (id, organization_id, crm_id, name, phone, email, status, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	var createdAt, updatedAt time.Time
	if err := r.pool.QueryRow(ctx, query,
		id,
		params.OrganizationID,
		params.CRMID,
		params.Name,
		params.Phone,
		params.Email,
		string(StatusPending),
		receivedAt,
	).Scan(&createdAt, &updatedAt); err != nil {
		return nil, &faults.StorageError{Op: "insert lead", Err: err}
	}

	return &Lead{
		ID:             id.String(),
		OrganizationID: params.OrganizationID,
		CRMID:          params.CRMID,
		Name:           params.Name,
		Phone:          params.Phone,
		Email:          params.Email,
		Status:         StatusPending,
		ReceivedAt:     receivedAt,
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
	}, nil
}

// GetByID fetches a lead row.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `
		SELECT id, organization_id, crm_id, name, phone, email, status,
		       received_at, ai_call_triggered_at, speed_to_lead_minutes,
		       created_at, updated_at
		FROM leads
		WHERE id = $1
	`
	var lead Lead
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&lead.ID,
		&lead.OrganizationID,
		&lead.CRMID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.Status,
		&lead.ReceivedAt,
		&lead.AICallTriggeredAt,
		&lead.SpeedToLeadMinutes,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, &faults.StorageError{Op: "select lead", Err: err}
	}
	return &lead, nil
}

// FindDue selects pending leads past their organization's threshold. The
// comparison happens in SQL so the evaluator never races its own clock
// against another instance's.
func (r *PostgresRepository) FindDue(ctx context.Context, defaultThresholdMins, limit int) ([]DueLead, error) {
	query := `
		SELECT l.id, l.organization_id, l.received_at,
		       COALESCE(o.speed_to_lead_minutes, $1) AS threshold_mins
		FROM leads l
		JOIN organizations o ON o.id = l.organization_id
		WHERE l.status = 'pending'
		  AND l.received_at <= now() - make_interval(mins => COALESCE(o.speed_to_lead_minutes, $1))
		ORDER BY l.received_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, defaultThresholdMins, limit)
	if err != nil {
		return nil, &faults.StorageError{Op: "select due leads", Err: err}
	}
	defer rows.Close()

	var due []DueLead
	for rows.Next() {
		var d DueLead
		if err := rows.Scan(&d.LeadID, &d.OrganizationID, &d.ReceivedAt, &d.ThresholdMins); err != nil {
			return nil, &faults.StorageError{Op: "scan due lead", Err: err}
		}
		due = append(due, d)
	}
	if err := rows.Err(); err != nil {
		return nil, &faults.StorageError{Op: "iterate due leads", Err: err}
	}
	return due, nil
}

// ClaimForDispatch atomically moves a pending lead to ai_triggered. The WHERE
// clause on status is what makes concurrent evaluator runs safe: only one
// UPDATE can match.
func (r *PostgresRepository) ClaimForDispatch(ctx context.Context, id string, speedToLeadMins int) (*Lead, error) {
	query := `
		UPDATE leads
		SET status = 'ai_triggered',
		    ai_call_triggered_at = now(),
		    speed_to_lead_minutes = $2,
		    updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, organization_id, crm_id, name, phone, email, status,
		          received_at, ai_call_triggered_at, speed_to_lead_minutes,
		          created_at, updated_at
	`
	var lead Lead
	if err := r.pool.QueryRow(ctx, query, id, speedToLeadMins).Scan(
		&lead.ID,
		&lead.OrganizationID,
		&lead.CRMID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.Status,
		&lead.ReceivedAt,
		&lead.AICallTriggeredAt,
		&lead.SpeedToLeadMinutes,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Either the lead does not exist or another run claimed it;
			// distinguish so callers can log the right thing.
			if _, getErr := r.GetByID(ctx, id); getErr != nil {
				return nil, getErr
			}
			return nil, ErrAlreadyProcessed
		}
		return nil, &faults.StorageError{Op: "claim lead", Err: err}
	}
	return &lead, nil
}

// MarkFailed conditionally moves a lead to ai_failed.
func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, from Status) (bool, error) {
	if !from.Valid() {
		return false, fmt.Errorf("leads: invalid prior status %q", from)
	}
	query := `
		UPDATE leads
		SET status = 'ai_failed', updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING id
	`
	var updated string
	if err := r.pool.QueryRow(ctx, query, id, string(from)).Scan(&updated); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, &faults.StorageError{Op: "mark lead failed", Err: err}
	}
	return true, nil
}
