// Package billing consumes payment-provider webhooks and keeps each
// organization's subscription status current.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/junglehq/jungle/internal/orgs"
	"github.com/junglehq/jungle/pkg/logging"
)

// Subscription statuses written to organizations.subscription_status.
const (
	StatusTrialing = "trialing"
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
)

// signatureTolerance is the maximum accepted event age.
const signatureTolerance = 5 * time.Minute

// WebhookHandler verifies and applies subscription lifecycle events.
type WebhookHandler struct {
	secret string
	orgs   orgs.Store
	logger *logging.Logger
}

// NewWebhookHandler creates the billing webhook handler. The secret is
// required: unsigned billing events are never accepted.
func NewWebhookHandler(secret string, orgStore orgs.Store, logger *logging.Logger) (*WebhookHandler, error) {
	if secret == "" {
		return nil, errors.New("billing: webhook secret is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &WebhookHandler{secret: secret, orgs: orgStore, logger: logger.Component("billing")}, nil
}

type webhookEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			Status   string            `json:"status"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// Handle processes one provider event.
// POST /webhooks/billing
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if !verifySignature(h.secret, payload, r.Header.Get("Billing-Signature")) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var evt webhookEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		h.logger.Error("failed to decode billing event", "error", err)
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if evt.ID == "" {
		http.Error(w, "missing event id", http.StatusBadRequest)
		return
	}

	status, handled := statusForEvent(evt)
	if !handled {
		// Acknowledge event types we don't act on so the provider
		// stops retrying them.
		w.WriteHeader(http.StatusOK)
		return
	}

	orgID := evt.Data.Object.Metadata["org_id"]
	if orgID == "" {
		h.logger.Warn("billing event missing org_id metadata", "event_id", evt.ID, "type", evt.Type)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.orgs.UpdateSubscriptionStatus(r.Context(), orgID, status); err != nil {
		if errors.Is(err, orgs.ErrOrgNotFound) {
			h.logger.Warn("billing event for unknown organization", "event_id", evt.ID, "org_id", orgID)
			w.WriteHeader(http.StatusOK)
			return
		}
		h.logger.Error("failed to update subscription status", "error", err, "org_id", orgID)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("subscription status updated", "org_id", orgID, "status", status, "event_type", evt.Type)
	w.WriteHeader(http.StatusOK)
}

// statusForEvent maps provider event types to a subscription status.
func statusForEvent(evt webhookEvent) (string, bool) {
	switch evt.Type {
	case "checkout.session.completed":
		return StatusActive, true
	case "customer.subscription.deleted":
		return StatusCanceled, true
	case "customer.subscription.created", "customer.subscription.updated":
		switch evt.Data.Object.Status {
		case StatusTrialing, StatusActive, StatusPastDue, StatusCanceled:
			return evt.Data.Object.Status, true
		}
		return "", false
	case "invoice.payment_failed":
		return StatusPastDue, true
	default:
		return "", false
	}
}

// verifySignature checks the Stripe-style signature header
// "t=<unix>,v1=<hex hmac-sha256 of 't.payload'>" within tolerance.
func verifySignature(secret string, payload []byte, header string) bool {
	if header == "" {
		return false
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	if abs64(time.Now().Unix()-ts) > int64(signatureTolerance/time.Second) {
		return false
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if hmac.Equal([]byte(sig), []byte(expected)) {
			return true
		}
	}
	return false
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
