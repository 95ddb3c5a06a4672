package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junglehq/jungle/internal/analytics"
	"github.com/junglehq/jungle/internal/chatbot"
	httpmiddleware "github.com/junglehq/jungle/internal/http/middleware"
	"github.com/junglehq/jungle/internal/leads"
	"github.com/junglehq/jungle/internal/orgs"
)

const (
	webhookSecret = "router-test-webhook-secret"
	sessionSecret = "router-test-session-secret"
	testOrgID     = "3f2c7a80-95d2-4f7b-8a43-5f0d1c2b9e01"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	orgStore := orgs.NewInMemoryStore()
	orgStore.Put(&orgs.Organization{ID: testOrgID, Name: "Acme"})
	repo := leads.NewInMemoryRepository()

	return New(&Config{
		LeadsHandler:     leads.NewHandler(repo, orgStore, webhookSecret, nil, nil),
		OrgsHandler:      orgs.NewHandler(orgStore, nil),
		ChatbotHandler:   chatbot.NewHandler(chatbot.NewService(nil, nil), nil),
		AnalyticsHandler: analytics.NewHandler(analytics.NewService(analytics.NewInMemoryStore(), nil), nil, nil),
		SessionSecret:    sessionSecret,
	})
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestWebhookRequiresBearer(t *testing.T) {
	r := newTestRouter(t)

	payload, _ := json.Marshal(map[string]string{
		"name": "Dana Smith", "phone": "+15557654321", "organizationId": testOrgID,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/leads/webhook", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/leads/webhook", bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+webhookSecret)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSessionRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/organization/settings", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := httpmiddleware.IssueSessionToken(sessionSecret, testOrgID, "", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/organization/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatbotIsPublic(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"message": "pricing?"})
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalyticsIngestIsPublicButMetricsIsNot(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(map[string]string{"event": "page_view"})
	req := httptest.NewRequest(http.MethodPost, "/api/analytics/events", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics/metrics", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
