// Package router assembles the HTTP surface of the API server.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/junglehq/jungle/internal/analytics"
	"github.com/junglehq/jungle/internal/billing"
	"github.com/junglehq/jungle/internal/chatbot"
	"github.com/junglehq/jungle/internal/dispatch"
	httpmiddleware "github.com/junglehq/jungle/internal/http/middleware"
	"github.com/junglehq/jungle/internal/integrations"
	"github.com/junglehq/jungle/internal/leads"
	"github.com/junglehq/jungle/internal/orgs"
	"github.com/junglehq/jungle/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	LeadsHandler       *leads.Handler
	OrgsHandler        *orgs.Handler
	IntegrationsHandler *integrations.Handler
	DispatchHandler    *dispatch.Handler
	ChatbotHandler     *chatbot.Handler
	AnalyticsHandler   *analytics.Handler
	BillingWebhook     *billing.WebhookHandler
	MetricsHandler     http.Handler
	SessionSecret      string
	RateLimiter        httpmiddleware.Limiter
	CORSAllowedOrigins []string
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimiter != nil {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
	}

	// Public endpoints: health, metrics, CRM webhook, site widgets.
	r.Group(func(public chi.Router) {
		public.Get("/health", handleHealth)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Post("/api/leads/webhook", cfg.LeadsHandler.HandleWebhook)
		if cfg.ChatbotHandler != nil {
			public.Post("/api/chatbot", cfg.ChatbotHandler.HandleChat)
		}
		if cfg.AnalyticsHandler != nil {
			public.Post("/api/analytics/events", cfg.AnalyticsHandler.HandleIngest)
		}
		if cfg.BillingWebhook != nil {
			public.Post("/webhooks/billing", cfg.BillingWebhook.Handle)
		}
	})

	// Operator endpoints behind the session token.
	r.Group(func(session chi.Router) {
		session.Use(httpmiddleware.SessionAuth(cfg.SessionSecret))

		session.Route("/api/organization", func(r chi.Router) {
			r.Get("/settings", cfg.OrgsHandler.GetSettings)
			r.Post("/speed-to-lead", cfg.OrgsHandler.UpdateThreshold)
		})

		if cfg.IntegrationsHandler != nil {
			session.Route("/api/integrations", func(r chi.Router) {
				r.Get("/", cfg.IntegrationsHandler.List)
				r.Post("/", cfg.IntegrationsHandler.Upsert)
			})
		}

		session.Post("/api/leads/test", cfg.LeadsHandler.HandleTestLead)
		session.Get("/api/leads/{leadID}", cfg.LeadsHandler.GetLead)
		if cfg.DispatchHandler != nil {
			session.Post("/api/leads/{leadID}/dispatch", cfg.DispatchHandler.HandleManualDispatch)
		}

		if cfg.AnalyticsHandler != nil {
			session.Get("/api/analytics/events", cfg.AnalyticsHandler.HandleListEvents)
			session.Get("/api/analytics/metrics", cfg.AnalyticsHandler.HandleMetrics)
			session.Get("/api/dashboard", cfg.AnalyticsHandler.HandleDashboard)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
