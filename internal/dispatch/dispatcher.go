package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/junglehq/jungle/internal/caller"
	"github.com/junglehq/jungle/internal/alerts"
	"github.com/junglehq/jungle/internal/integrations"
	"github.com/junglehq/jungle/internal/leads"
	"github.com/junglehq/jungle/internal/notify"
	"github.com/junglehq/jungle/internal/observability/metrics"
	"github.com/junglehq/jungle/pkg/logging"
)

// CredentialSource resolves a decrypted provider API key for an organization.
type CredentialSource interface {
	APIKey(ctx context.Context, orgID string, typ integrations.ProviderType) (string, error)
}

// CallCreator places an outbound AI phone call.
type CallCreator interface {
	CreatePhoneCall(ctx context.Context, req caller.CallRequest) (*caller.CallResult, error)
}

// FailureNotifier alerts operators about a failed dispatch.
type FailureNotifier interface {
	CallFailed(ctx context.Context, f notify.CallFailure)
}

// Dispatcher claims a due lead and places the outbound call. The claim
// happens before the call: under concurrent evaluator runs exactly one
// claimer wins, and a lost claim is a silent no-op. A lead is never
// re-dispatched once it has left pending.
type Dispatcher struct {
	repo        leads.Repository
	credentials CredentialSource
	caller      CallCreator
	notifier    FailureNotifier
	metrics     *metrics.PipelineMetrics
	logger      *logging.Logger

	// CallTimeout bounds the outbound call request.
	CallTimeout time.Duration
}

// NewDispatcher wires the dispatch path.
func NewDispatcher(repo leads.Repository, credentials CredentialSource, callCreator CallCreator, notifier FailureNotifier, m *metrics.PipelineMetrics, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		repo:        repo,
		credentials: credentials,
		caller:      callCreator,
		notifier:    notifier,
		metrics:     m,
		logger:      logger.Component("dispatcher"),
		CallTimeout: 15 * time.Second,
	}
}

// Dispatch attempts an AI call for the lead. It returns
// leads.ErrAlreadyProcessed when another dispatcher got there first and
// leads.ErrLeadNotFound for unknown IDs. A failed call marks the lead
// ai_failed and alerts, and is reported as an error to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, leadID string) error {
	lead, err := d.repo.GetByID(ctx, leadID)
	if err != nil {
		return err
	}

	speedToLead := int(time.Since(lead.ReceivedAt).Minutes())
	if speedToLead < 0 {
		speedToLead = 0
	}

	claimed, err := d.repo.ClaimForDispatch(ctx, leadID, speedToLead)
	if err != nil {
		if errors.Is(err, leads.ErrAlreadyProcessed) {
			d.logger.Debug("lead already claimed, skipping", "lead_id", leadID)
			d.metrics.ObserveDispatch("already_processed")
			return leads.ErrAlreadyProcessed
		}
		return err
	}

	apiKey, err := d.credentials.APIKey(ctx, claimed.OrganizationID, integrations.ProviderRetellAI)
	if err != nil {
		d.fail(ctx, claimed, alerts.KindCredentialMissing, fmt.Sprintf("retell credential unavailable: %v", err))
		return fmt.Errorf("dispatch lead %s: %w", leadID, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, d.CallTimeout)
	defer cancel()

	email := ""
	if claimed.Email != nil {
		email = *claimed.Email
	}

	start := time.Now()
	result, err := d.caller.CreatePhoneCall(callCtx, caller.CallRequest{
		APIKey:    apiKey,
		To:        claimed.Phone,
		LeadID:    claimed.ID,
		LeadName:  claimed.Name,
		LeadEmail: email,
	})
	d.metrics.ObserveCallLatency(time.Since(start).Seconds())
	if err != nil {
		d.fail(ctx, claimed, alerts.KindAICallFailed, fmt.Sprintf("call creation failed: %v", err))
		return fmt.Errorf("dispatch lead %s: %w", leadID, err)
	}

	d.metrics.ObserveDispatch("called")
	d.logger.Info("AI call dispatched",
		"lead_id", claimed.ID,
		"org_id", claimed.OrganizationID,
		"call_id", result.CallID,
		"speed_to_lead_minutes", speedToLead,
	)
	return nil
}

// fail moves the claimed lead to ai_failed and alerts. The transition is
// compare-and-set from ai_triggered so a racing human update wins.
func (d *Dispatcher) fail(ctx context.Context, lead *leads.Lead, kind, reason string) {
	d.metrics.ObserveDispatch("failed")

	moved, err := d.repo.MarkFailed(ctx, lead.ID, leads.StatusAITriggered)
	if err != nil {
		d.logger.Error("failed to mark lead ai_failed", "error", err, "lead_id", lead.ID)
	} else if !moved {
		d.logger.Warn("lead left ai_triggered before failure could be recorded", "lead_id", lead.ID)
	}

	if d.notifier != nil {
		d.notifier.CallFailed(ctx, notify.CallFailure{
			OrganizationID: lead.OrganizationID,
			LeadID:         lead.ID,
			LeadName:       lead.Name,
			Kind:           kind,
			Reason:         reason,
		})
	}
}
