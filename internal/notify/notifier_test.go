package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junglehq/jungle/internal/alerts"
)

func TestCallFailedAllChannels(t *testing.T) {
	var slackBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slackBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := alerts.NewInMemoryStore()
	email := NewStubEmailSender(nil)
	n := NewNotifier(NewSlackNotifier(srv.URL, nil), email, "ops@example.com", store, nil, nil)

	n.CallFailed(context.Background(), CallFailure{
		OrganizationID: "org-1",
		LeadID:         "lead-1",
		LeadName:       "Dana Smith",
		Reason:         "retell returned status 500",
	})

	recorded, err := store.ListByOrg(context.Background(), "org-1", 10)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, alerts.KindAICallFailed, recorded[0].Kind)
	assert.Equal(t, alerts.SeverityCritical, recorded[0].Severity)
	require.NotNil(t, recorded[0].LeadID)
	assert.Equal(t, "lead-1", *recorded[0].LeadID)

	var msg struct {
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(slackBody, &msg))
	assert.Equal(t, "AI call failed", msg.Text)
	assert.Contains(t, string(slackBody), "Dana Smith")

	require.Len(t, email.Sent, 1)
	assert.Equal(t, "ops@example.com", email.Sent[0].To)
	assert.Contains(t, email.Sent[0].Body, "retell returned status 500")
}

func TestCallFailedSlackOutageDoesNotSuppressOthers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway timeout", http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	store := alerts.NewInMemoryStore()
	email := NewStubEmailSender(nil)
	n := NewNotifier(NewSlackNotifier(srv.URL, nil), email, "ops@example.com", store, nil, nil)

	n.CallFailed(context.Background(), CallFailure{
		OrganizationID: "org-1",
		LeadID:         "lead-1",
		Reason:         "credential missing",
		Kind:           alerts.KindCredentialMissing,
	})

	recorded, err := store.ListByOrg(context.Background(), "org-1", 10)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, alerts.KindCredentialMissing, recorded[0].Kind)
	assert.Len(t, email.Sent, 1)
}

func TestCallFailedUnconfiguredChannels(t *testing.T) {
	store := alerts.NewInMemoryStore()
	n := NewNotifier(nil, nil, "", store, nil, nil)

	// Must not panic with no channels wired.
	n.CallFailed(context.Background(), CallFailure{OrganizationID: "org-1", LeadID: "lead-1", Reason: "boom"})

	recorded, err := store.ListByOrg(context.Background(), "org-1", 10)
	require.NoError(t, err)
	assert.Len(t, recorded, 1)
}

func TestNewSlackNotifierDisabled(t *testing.T) {
	assert.Nil(t, NewSlackNotifier("", nil))
}
