package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junglehq/jungle/internal/tenancy"
)

const sessionSecret = "unit-test-session-secret"

func sessionProtected(t *testing.T) (http.Handler, *string) {
	t.Helper()
	var gotOrg string
	handler := SessionAuth(sessionSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		orgID, _ := tenancy.OrgIDFromContext(r.Context())
		gotOrg = orgID
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &gotOrg
}

func TestSessionAuthValidToken(t *testing.T) {
	handler, gotOrg := sessionProtected(t)

	token, err := IssueSessionToken(sessionSecret, "org-1", "owner@acme.test", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/organization/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-1", *gotOrg)
}

func TestSessionAuthRejectsBadTokens(t *testing.T) {
	handler, _ := sessionProtected(t)

	cases := map[string]string{
		"missing header":  "",
		"not bearer":      "Basic abc",
		"garbage token":   "Bearer not-a-jwt",
		"wrong secret":    "Bearer " + mustToken(t, "other-secret", "org-1", time.Hour),
		"expired token":   "Bearer " + mustToken(t, sessionSecret, "org-1", -time.Hour),
		"missing org":     "Bearer " + mustToken(t, sessionSecret, "", time.Hour),
	}

	for name, auth := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/organization/settings", nil)
			if auth != "" {
				req.Header.Set("Authorization", auth)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func mustToken(t *testing.T, secret, orgID string, ttl time.Duration) string {
	t.Helper()
	token, err := IssueSessionToken(secret, orgID, "", ttl)
	require.NoError(t, err)
	return token
}
