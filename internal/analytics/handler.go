package analytics

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/junglehq/jungle/internal/tenancy"
	"github.com/junglehq/jungle/pkg/logging"
)

// Handler serves event ingest and the dashboard aggregates.
type Handler struct {
	service   *Service
	dashboard *Dashboard
	logger    *logging.Logger
}

// NewHandler creates the analytics HTTP handler. dashboard may be nil when
// no relational store is configured.
func NewHandler(service *Service, dashboard *Dashboard, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, dashboard: dashboard, logger: logger}
}

// HandleIngest stores one tracking event. Storage failures still return
// success so analytics never breaks the site.
// POST /api/analytics/events
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Event == "" {
		writeError(w, http.StatusBadRequest, "event name is required")
		return
	}

	h.service.Track(r.Context(), req)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleListEvents returns raw events for the window.
// GET /api/analytics/events?event=&startDate=&endDate=&limit=&offset=
func (h *Handler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	window, limit, offset := queryWindow(r)
	events, err := h.service.store.ListEvents(r.Context(), window, r.URL.Query().Get("event"), limit, offset)
	if err != nil {
		h.logger.Error("failed to list analytics events", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if events == nil {
		events = []Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"limit":  limit,
		"offset": offset,
	})
}

// HandleMetrics returns the aggregated funnel metrics.
// GET /api/analytics/metrics?startDate=&endDate=
func (h *Handler) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	window, _, _ := queryWindow(r)
	metrics, err := h.service.Metrics(r.Context(), window)
	if err != nil {
		h.logger.Error("failed to compute analytics metrics", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metrics": metrics})
}

// HandleDashboard returns the per-organization lead summary.
// GET /api/dashboard
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.dashboard == nil {
		writeError(w, http.StatusServiceUnavailable, "dashboard unavailable")
		return
	}

	summary, err := h.dashboard.Summary(r.Context(), orgID)
	if err != nil {
		h.logger.Error("failed to build dashboard summary", "error", err, "org_id", orgID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if summary.RecentLeads == nil {
		summary.RecentLeads = []RecentLead{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func queryWindow(r *http.Request) (Window, int, int) {
	q := r.URL.Query()
	var w Window
	if v := q.Get("startDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			w.Start = t
		}
	}
	if v := q.Get("endDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			w.End = t
		}
	}
	limit := 100
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
		if limit > 1000 {
			limit = 1000
		}
	}
	offset := 0
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return w, limit, offset
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
