package dispatch

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/junglehq/jungle/internal/leads"
	"github.com/junglehq/jungle/internal/tenancy"
	"github.com/junglehq/jungle/pkg/logging"
)

// Handler exposes operator-initiated dispatch.
type Handler struct {
	dispatcher *Dispatcher
	repo       leads.Repository
	logger     *logging.Logger
}

// NewHandler creates the dispatch HTTP handler.
func NewHandler(dispatcher *Dispatcher, repo leads.Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{dispatcher: dispatcher, repo: repo, logger: logger}
}

// HandleManualDispatch triggers the AI call for one lead without waiting for
// the threshold, subject to the same claim semantics as the evaluator path.
// POST /api/leads/{leadID}/dispatch
func (h *Handler) HandleManualDispatch(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	leadID := chi.URLParam(r, "leadID")
	lead, err := h.repo.GetByID(r.Context(), leadID)
	if err != nil || lead.OrganizationID != orgID {
		writeError(w, http.StatusNotFound, "lead not found")
		return
	}

	err = h.dispatcher.Dispatch(r.Context(), leadID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "leadId": leadID})
	case errors.Is(err, leads.ErrAlreadyProcessed):
		writeError(w, http.StatusConflict, "lead already processed")
	case errors.Is(err, leads.ErrLeadNotFound):
		writeError(w, http.StatusNotFound, "lead not found")
	default:
		h.logger.Error("manual dispatch failed", "error", err, "lead_id", leadID)
		writeError(w, http.StatusBadGateway, "dispatch failed, lead marked for manual follow-up")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
