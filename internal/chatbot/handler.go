package chatbot

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/junglehq/jungle/internal/faults"
	"github.com/junglehq/jungle/pkg/logging"
)

// Handler serves the marketing-site chat widget.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the chatbot HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// HandleChat answers one widget message.
// POST /api/chatbot
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.service.Chat(r.Context(), req)
	if err != nil {
		var validation *faults.ValidationError
		if errors.As(err, &validation) {
			writeError(w, http.StatusBadRequest, validation.Reason)
			return
		}
		h.logger.Error("chat request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
