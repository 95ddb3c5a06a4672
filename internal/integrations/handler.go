package integrations

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/junglehq/jungle/internal/secrets"
	"github.com/junglehq/jungle/internal/tenancy"
	"github.com/junglehq/jungle/pkg/logging"
)

// Handler serves credential configuration endpoints. Secrets are encrypted
// before they reach storage and are never returned by any endpoint.
type Handler struct {
	store  Store
	cipher *secrets.Cipher
	logger *logging.Logger
}

// NewHandler creates a credentials handler.
func NewHandler(store Store, cipher *secrets.Cipher, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, cipher: cipher, logger: logger.Component("integrations")}
}

type upsertRequest struct {
	Type   string `json:"type"`
	APIKey string `json:"apiKey"`
}

// Upsert handles POST /api/integrations.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	typ := ProviderType(strings.TrimSpace(req.Type))
	if !typ.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown integration type")
		return
	}
	if strings.TrimSpace(req.APIKey) == "" {
		writeError(w, http.StatusBadRequest, "apiKey is required")
		return
	}

	encrypted, err := h.cipher.Encrypt(req.APIKey)
	if err != nil {
		h.logger.Error("failed to encrypt credential", "error", err, "org_id", orgID, "type", typ)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.store.Upsert(r.Context(), orgID, typ, encrypted); err != nil {
		h.logger.Error("failed to store credential", "error", err, "org_id", orgID, "type", typ)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.Info("credential stored", "org_id", orgID, "type", typ)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// List handles GET /api/integrations. It returns metadata only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	meta, err := h.store.ListMetadata(r.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to list credentials", "error", err, "org_id", orgID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if meta == nil {
		meta = []Metadata{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"integrations": meta})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
