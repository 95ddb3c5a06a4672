package leads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CreateLeadParams is what intake persists for a new lead.
type CreateLeadParams struct {
	OrganizationID string
	CRMID          *string
	Name           string
	Phone          string
	Email          *string
	ReceivedAt     time.Time
}

// Repository defines the interface for lead storage.
//
// All status transitions are compare-and-set on the expected prior status so
// overlapping evaluator runs cannot both move the same lead.
type Repository interface {
	Create(ctx context.Context, params CreateLeadParams) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)

	// FindDue returns pending leads whose elapsed time since receipt has
	// crossed their organization's threshold (defaultThresholdMins applies
	// when the organization has none configured).
	FindDue(ctx context.Context, defaultThresholdMins, limit int) ([]DueLead, error)

	// ClaimForDispatch moves a lead pending -> ai_triggered, stamping
	// ai_call_triggered_at and speed_to_lead_minutes. It returns
	// ErrAlreadyProcessed when the lead is no longer pending.
	ClaimForDispatch(ctx context.Context, id string, speedToLeadMins int) (*Lead, error)

	// MarkFailed moves a lead from the given prior status to ai_failed.
	// It reports false without error when the lead was not in that status.
	MarkFailed(ctx context.Context, id string, from Status) (bool, error)
}

// InMemoryRepository keeps leads in a map. Used by tests and the
// memory-queue development mode.
type InMemoryRepository struct {
	mu         sync.RWMutex
	leads      map[string]*Lead
	thresholds map[string]int // org id -> configured threshold, 0 = unset
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads:      make(map[string]*Lead),
		thresholds: make(map[string]int),
	}
}

// SetOrgThreshold configures a per-org threshold for FindDue.
func (r *InMemoryRepository) SetOrgThreshold(orgID string, minutes int) {
	r.mu.Lock()
	r.thresholds[orgID] = minutes
	r.mu.Unlock()
}

// Create stores a new pending lead.
func (r *InMemoryRepository) Create(ctx context.Context, params CreateLeadParams) (*Lead, error) {
	now := time.Now().UTC()
	receivedAt := params.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}
	lead := &Lead{
		ID:             uuid.NewString(),
		OrganizationID: params.OrganizationID,
		CRMID:          params.CRMID,
		Name:           params.Name,
		Phone:          params.Phone,
		Email:          params.Email,
		Status:         StatusPending,
		ReceivedAt:     receivedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	r.mu.Lock()
	r.leads[lead.ID] = lead
	r.mu.Unlock()

	return copyLead(lead), nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return copyLead(lead), nil
}

// FindDue scans for pending leads past their threshold.
func (r *InMemoryRepository) FindDue(ctx context.Context, defaultThresholdMins, limit int) ([]DueLead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now().UTC()
	var due []DueLead
	for _, lead := range r.leads {
		if lead.Status != StatusPending {
			continue
		}
		threshold := r.thresholds[lead.OrganizationID]
		if threshold <= 0 {
			threshold = defaultThresholdMins
		}
		if now.Sub(lead.ReceivedAt) < time.Duration(threshold)*time.Minute {
			continue
		}
		due = append(due, DueLead{
			LeadID:         lead.ID,
			OrganizationID: lead.OrganizationID,
			ReceivedAt:     lead.ReceivedAt,
			ThresholdMins:  threshold,
		})
		if limit > 0 && len(due) >= limit {
			break
		}
	}
	return due, nil
}

// ClaimForDispatch performs the pending -> ai_triggered transition.
func (r *InMemoryRepository) ClaimForDispatch(ctx context.Context, id string, speedToLeadMins int) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	if lead.Status != StatusPending {
		return nil, ErrAlreadyProcessed
	}
	now := time.Now().UTC()
	lead.Status = StatusAITriggered
	lead.AICallTriggeredAt = &now
	lead.SpeedToLeadMinutes = &speedToLeadMins
	lead.UpdatedAt = now
	return copyLead(lead), nil
}

// MarkFailed performs the from -> ai_failed transition.
func (r *InMemoryRepository) MarkFailed(ctx context.Context, id string, from Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return false, ErrLeadNotFound
	}
	if lead.Status != from {
		return false, nil
	}
	lead.Status = StatusAIFailed
	lead.UpdatedAt = time.Now().UTC()
	return true, nil
}

func copyLead(l *Lead) *Lead {
	c := *l
	return &c
}
