package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junglehq/jungle/internal/orgs"
)

const testSecret = "whsec_billing_test"

func sign(t *testing.T, secret, payload string, ts int64) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postEvent(t *testing.T, h *WebhookHandler, payload, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/billing", strings.NewReader(payload))
	if signature != "" {
		req.Header.Set("Billing-Signature", signature)
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func newHandler(t *testing.T) (*WebhookHandler, *orgs.InMemoryStore) {
	t.Helper()
	store := orgs.NewInMemoryStore()
	store.Put(&orgs.Organization{ID: "org-1", Name: "Acme", SubscriptionStatus: StatusTrialing})
	h, err := NewWebhookHandler(testSecret, store, nil)
	require.NoError(t, err)
	return h, store
}

func TestHandleCheckoutCompleted(t *testing.T) {
	h, store := newHandler(t)

	payload := `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"metadata":{"org_id":"org-1"}}}}`
	rec := postEvent(t, h, payload, sign(t, testSecret, payload, time.Now().Unix()))
	require.Equal(t, http.StatusOK, rec.Code)

	org, err := store.GetByID(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, org.SubscriptionStatus)
}

func TestHandleSubscriptionLifecycle(t *testing.T) {
	for _, tc := range []struct {
		eventType string
		objStatus string
		want      string
	}{
		{"customer.subscription.updated", "past_due", StatusPastDue},
		{"customer.subscription.created", "trialing", StatusTrialing},
		{"customer.subscription.deleted", "", StatusCanceled},
		{"invoice.payment_failed", "", StatusPastDue},
	} {
		t.Run(tc.eventType, func(t *testing.T) {
			h, store := newHandler(t)

			payload := fmt.Sprintf(`{"id":"evt_2","type":%q,"data":{"object":{"status":%q,"metadata":{"org_id":"org-1"}}}}`, tc.eventType, tc.objStatus)
			rec := postEvent(t, h, payload, sign(t, testSecret, payload, time.Now().Unix()))
			require.Equal(t, http.StatusOK, rec.Code)

			org, err := store.GetByID(context.Background(), "org-1")
			require.NoError(t, err)
			assert.Equal(t, tc.want, org.SubscriptionStatus)
		})
	}
}

func TestHandleRejectsBadSignature(t *testing.T) {
	h, store := newHandler(t)
	payload := `{"id":"evt_3","type":"checkout.session.completed","data":{"object":{"metadata":{"org_id":"org-1"}}}}`

	rec := postEvent(t, h, payload, "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = postEvent(t, h, payload, sign(t, "wrong-secret", payload, time.Now().Unix()))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Valid signature over a different payload must not verify.
	rec = postEvent(t, h, payload, sign(t, testSecret, payload+" ", time.Now().Unix()))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	org, err := store.GetByID(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, StatusTrialing, org.SubscriptionStatus)
}

func TestHandleRejectsStaleTimestamp(t *testing.T) {
	h, _ := newHandler(t)
	payload := `{"id":"evt_4","type":"checkout.session.completed","data":{"object":{"metadata":{"org_id":"org-1"}}}}`

	rec := postEvent(t, h, payload, sign(t, testSecret, payload, time.Now().Add(-10*time.Minute).Unix()))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestHandleIgnoresUnknownEventTypes(t *testing.T) {
	h, store := newHandler(t)
	payload := `{"id":"evt_5","type":"invoice.finalized","data":{"object":{"metadata":{"org_id":"org-1"}}}}`

	rec := postEvent(t, h, payload, sign(t, testSecret, payload, time.Now().Unix()))
	assert.Equal(t, http.StatusOK, rec.Code)

	org, err := store.GetByID(context.Background(), "org-1")
	require.NoError(t, err)
	assert.Equal(t, StatusTrialing, org.SubscriptionStatus)
}

func TestHandleUnknownOrgAcknowledged(t *testing.T) {
	h, _ := newHandler(t)
	payload := `{"id":"evt_6","type":"checkout.session.completed","data":{"object":{"metadata":{"org_id":"org-missing"}}}}`

	rec := postEvent(t, h, payload, sign(t, testSecret, payload, time.Now().Unix()))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewWebhookHandlerRequiresSecret(t *testing.T) {
	_, err := NewWebhookHandler("", orgs.NewInMemoryStore(), nil)
	assert.Error(t, err)
}
