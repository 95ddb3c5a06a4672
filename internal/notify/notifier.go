// Package notify sends operator-facing alerts when the call pipeline fails.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/junglehq/jungle/internal/alerts"
	"github.com/junglehq/jungle/internal/observability/metrics"
	"github.com/junglehq/jungle/pkg/logging"
)

// CallFailure describes a dispatch that could not complete.
type CallFailure struct {
	OrganizationID string
	LeadID         string
	LeadName       string
	Kind           string
	Reason         string
}

// Notifier fans a failure out to Slack, email, and the system_alerts audit
// trail. Each channel is best-effort and independent: one channel failing
// never suppresses the others, and notification never blocks the pipeline.
type Notifier struct {
	slack   *SlackNotifier
	email   EmailSender
	emailTo string
	store   alerts.Store
	metrics *metrics.PipelineMetrics
	logger  *logging.Logger

	// Timeout bounds each channel delivery.
	Timeout time.Duration
}

// NewNotifier creates a failure notifier. slack and email may be nil when the
// corresponding channel is not configured.
func NewNotifier(slack *SlackNotifier, email EmailSender, emailTo string, store alerts.Store, m *metrics.PipelineMetrics, logger *logging.Logger) *Notifier {
	if logger == nil {
		logger = logging.Default()
	}
	return &Notifier{
		slack:   slack,
		email:   email,
		emailTo: emailTo,
		store:   store,
		metrics: m,
		logger:  logger.Component("notify"),
		Timeout: 10 * time.Second,
	}
}

// CallFailed records the failure and alerts every configured channel.
// The audit row is written first so the trail survives channel outages.
func (n *Notifier) CallFailed(ctx context.Context, f CallFailure) {
	if f.Kind == "" {
		f.Kind = alerts.KindAICallFailed
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.Timeout)
	defer cancel()

	n.recordAlert(ctx, f)
	n.sendSlack(ctx, f)
	n.sendEmail(ctx, f)
}

func (n *Notifier) recordAlert(ctx context.Context, f CallFailure) {
	if n.store == nil {
		return
	}
	a := alerts.Alert{
		OrganizationID: f.OrganizationID,
		Kind:           f.Kind,
		Severity:       alerts.SeverityCritical,
		Message:        f.Reason,
	}
	if f.LeadID != "" {
		leadID := f.LeadID
		a.LeadID = &leadID
	}
	if _, err := n.store.Record(ctx, a); err != nil {
		n.logger.Error("failed to record system alert", "error", err, "lead_id", f.LeadID)
		n.metrics.ObserveAlert("audit", "error")
		return
	}
	n.metrics.ObserveAlert("audit", "ok")
}

func (n *Notifier) sendSlack(ctx context.Context, f CallFailure) {
	if n.slack == nil {
		return
	}
	err := n.slack.PostAlert(ctx, "AI call failed", map[string]string{
		"Organization": f.OrganizationID,
		"Lead":         leadLabel(f),
		"Reason":       f.Reason,
	})
	if err != nil {
		n.logger.Error("slack alert failed", "error", err, "lead_id", f.LeadID)
		n.metrics.ObserveAlert("slack", "error")
		return
	}
	n.metrics.ObserveAlert("slack", "ok")
}

func (n *Notifier) sendEmail(ctx context.Context, f CallFailure) {
	if n.email == nil || n.emailTo == "" {
		return
	}
	msg := EmailMessage{
		To:      n.emailTo,
		Subject: fmt.Sprintf("AI call failed for lead %s", leadLabel(f)),
		Body: fmt.Sprintf(
			"An AI follow-up call could not be completed.\n\nOrganization: %s\nLead: %s\nReason: %s\n\nThe lead is marked for manual follow-up.",
			f.OrganizationID, leadLabel(f), f.Reason,
		),
	}
	if err := n.email.Send(ctx, msg); err != nil {
		n.logger.Error("email alert failed", "error", err, "lead_id", f.LeadID)
		n.metrics.ObserveAlert("email", "error")
		return
	}
	n.metrics.ObserveAlert("email", "ok")
}

func leadLabel(f CallFailure) string {
	if f.LeadName != "" {
		return fmt.Sprintf("%s (%s)", f.LeadName, f.LeadID)
	}
	return f.LeadID
}
