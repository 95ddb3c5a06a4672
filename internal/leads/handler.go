package leads

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"github.com/junglehq/jungle/internal/observability/metrics"
	"github.com/junglehq/jungle/internal/tenancy"
	"github.com/junglehq/jungle/pkg/logging"
)

// OrgStore verifies that the tenant referenced by a webhook exists.
type OrgStore interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Handler handles HTTP requests for leads
type Handler struct {
	repo     Repository
	orgs     OrgStore
	secret   string
	validate *validator.Validate
	metrics  *metrics.PipelineMetrics
	logger   *logging.Logger
}

// NewHandler creates a new leads handler
func NewHandler(repo Repository, orgs OrgStore, webhookSecret string, m *metrics.PipelineMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		repo:     repo,
		orgs:     orgs,
		secret:   webhookSecret,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  m,
		logger:   logger.Component("leads"),
	}
}

// HandleWebhook handles POST /api/leads/webhook requests from CRMs.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.metrics.ObserveIntake("unauthorized")
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var payload WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.metrics.ObserveIntake("rejected")
		writeError(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}

	if err := h.validate.Struct(&payload); err != nil {
		h.metrics.ObserveIntake("rejected")
		writeError(w, http.StatusBadRequest, "Invalid payload", validationDetails(err))
		return
	}

	exists, err := h.orgs.Exists(r.Context(), payload.OrganizationID)
	if err != nil {
		h.logger.Error("failed to look up organization", "error", err, "org_id", payload.OrganizationID)
		h.metrics.ObserveIntake("error")
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}
	if !exists {
		h.metrics.ObserveIntake("rejected")
		writeError(w, http.StatusNotFound, "Organization not found", nil)
		return
	}

	params := CreateLeadParams{
		OrganizationID: payload.OrganizationID,
		Name:           payload.Name,
		Phone:          normalizePhone(payload.Phone),
		ReceivedAt:     time.Now().UTC(),
	}
	if payload.Email != "" {
		params.Email = &payload.Email
	}
	if payload.CRMID != "" {
		params.CRMID = &payload.CRMID
	}

	lead, err := h.repo.Create(r.Context(), params)
	if err != nil {
		h.logger.Error("failed to create lead", "error", err, "org_id", payload.OrganizationID)
		h.metrics.ObserveIntake("error")
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	h.logger.Info("lead created", "lead_id", lead.ID, "org_id", lead.OrganizationID)
	h.metrics.ObserveIntake("created")
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"leadId":  lead.ID,
	})
}

// TestLeadRequest is the operator-facing body for synthetic leads.
type TestLeadRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=500"`
	Phone string `json:"phone" validate:"required,min=10,max=20"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=255"`
}

// HandleTestLead handles POST /api/leads/test for the onboarding flow. The
// org comes from the authenticated session, not the body.
func (h *Handler) HandleTestLead(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	var req TestLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload", nil)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload", validationDetails(err))
		return
	}

	crmID := fmt.Sprintf("test-%d", time.Now().UnixMilli())
	params := CreateLeadParams{
		OrganizationID: orgID,
		Name:           req.Name,
		Phone:          normalizePhone(req.Phone),
		CRMID:          &crmID,
		ReceivedAt:     time.Now().UTC(),
	}
	if req.Email != "" {
		params.Email = &req.Email
	}

	lead, err := h.repo.Create(r.Context(), params)
	if err != nil {
		h.logger.Error("failed to create test lead", "error", err, "org_id", orgID)
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"leadId":  lead.ID,
		"message": "Test lead created successfully",
	})
}

// GetLead handles GET /api/leads/{leadID} for the dashboard.
func (h *Handler) GetLead(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "leadID"))
	lead, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			writeError(w, http.StatusNotFound, "Lead not found", nil)
			return
		}
		h.logger.Error("failed to fetch lead", "error", err, "lead_id", id)
		writeError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}
	if lead.OrganizationID != orgID {
		writeError(w, http.StatusNotFound, "Lead not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// authorized compares the bearer token against the shared secret in constant
// time. Hashing both sides first keeps the comparison length-independent.
func (h *Handler) authorized(r *http.Request) bool {
	if h.secret == "" {
		return false
	}
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return false
	}
	token := strings.TrimPrefix(auth, "Bearer ")
	want := sha256.Sum256([]byte(h.secret))
	got := sha256.Sum256([]byte(token))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}

// normalizePhone formats parseable numbers as E.164 and leaves the rest as
// submitted; length limits were already enforced by validation.
func normalizePhone(raw string) string {
	num, err := phonenumbers.Parse(raw, "US")
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return strings.TrimSpace(raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		field := jsonFieldName(fe.Field())
		switch fe.Tag() {
		case "required":
			details[field] = "is required"
		case "min":
			details[field] = "is too short"
		case "max":
			details[field] = "is too long"
		case "email":
			details[field] = "must be a valid email address"
		case "uuid":
			details[field] = "must be a valid UUID"
		default:
			details[field] = "is invalid"
		}
	}
	return details
}

func jsonFieldName(structField string) string {
	switch structField {
	case "Name":
		return "name"
	case "Phone":
		return "phone"
	case "Email":
		return "email"
	case "CRMID":
		return "crmId"
	case "OrganizationID":
		return "organizationId"
	}
	return structField
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]string) {
	body := map[string]any{"error": message}
	if len(details) > 0 {
		body["details"] = details
	}
	writeJSON(w, status, body)
}
