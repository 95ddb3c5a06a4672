package orgs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/junglehq/jungle/internal/faults"
	"github.com/junglehq/jungle/internal/tenancy"
	"github.com/junglehq/jungle/pkg/logging"
)

// Handler serves organization settings endpoints.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates an organization settings handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger.Component("orgs")}
}

type thresholdRequest struct {
	SpeedToLeadMinutes int `json:"speedToLeadMinutes"`
}

// UpdateThreshold handles POST /api/organization/speed-to-lead.
func (h *Handler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req thresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if err := h.store.UpdateThreshold(r.Context(), orgID, req.SpeedToLeadMinutes); err != nil {
		var verr *faults.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, ErrOrgNotFound):
			writeError(w, http.StatusNotFound, "Organization not found")
		default:
			h.logger.Error("failed to update threshold", "error", err, "org_id", orgID)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.logger.Info("threshold updated", "org_id", orgID, "minutes", req.SpeedToLeadMinutes)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// GetSettings handles GET /api/organization.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	org, err := h.store.GetByID(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, ErrOrgNotFound) {
			writeError(w, http.StatusNotFound, "Organization not found")
			return
		}
		h.logger.Error("failed to fetch organization", "error", err, "org_id", orgID)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
