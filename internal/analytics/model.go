package analytics

import "time"

// Event is one tracked product or marketing event.
type Event struct {
	ID             string         `json:"id"`
	Event          string         `json:"event"`
	Properties     map[string]any `json:"properties,omitempty"`
	SessionID      string         `json:"sessionId,omitempty"`
	OrganizationID *string        `json:"organizationId,omitempty"`
	OccurredAt     time.Time      `json:"occurredAt"`
}

// Event names emitted by the marketing site and app.
const (
	EventPageView         = "page_view"
	EventDemoStarted      = "demo_started"
	EventDemoCompleted    = "demo_completed"
	EventChatbotOpened    = "chatbot_opened"
	EventChatbotMessage   = "chatbot_message_sent"
	EventChatbotHighFit   = "chatbot_high_fit_lead"
	EventChatbotCTAClick  = "chatbot_cta_click"
	EventSignupAttempt    = "signup_attempt"
	EventSignupCompleted  = "signup_completed"
	EventTestLeadSent     = "test_lead_sent"
	EventTestLeadSuccess  = "test_lead_success"
)

// IngestRequest is the tracking payload from the site.
type IngestRequest struct {
	Event          string         `json:"event"`
	Properties     map[string]any `json:"properties,omitempty"`
	SessionID      string         `json:"sessionId,omitempty"`
	OrganizationID string         `json:"organizationId,omitempty"`
}

// Window bounds a metrics query. Zero values default to the last 30 days.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) normalized() Window {
	if w.End.IsZero() {
		w.End = time.Now().UTC()
	}
	if w.Start.IsZero() {
		w.Start = w.End.Add(-30 * 24 * time.Hour)
	}
	return w
}

// RateMetric pairs an attempt count with its completion count.
type RateMetric struct {
	Started        int     `json:"started"`
	Completed      int     `json:"completed"`
	ConversionRate float64 `json:"conversionRate"`
}

// ChatbotMetrics summarizes widget engagement.
type ChatbotMetrics struct {
	Opened               int     `json:"opened"`
	Messages             int     `json:"messages"`
	AvgMessagesPerSession float64 `json:"avgMessagesPerSession"`
	HighFitLeads         int     `json:"highFitLeads"`
	CTAClicks            int     `json:"ctaClicks"`
}

// FunnelMetrics is the visitor-to-signup funnel.
type FunnelMetrics struct {
	Visitors int `json:"visitors"`
	Demos    int `json:"demos"`
	Signups  int `json:"signups"`
}

// Metrics is the aggregate response for the dashboard charts.
type Metrics struct {
	Demo     RateMetric     `json:"demo"`
	Chatbot  ChatbotMetrics `json:"chatbot"`
	Signup   RateMetric     `json:"signup"`
	TestLead RateMetric     `json:"testLead"`
	Funnel   FunnelMetrics  `json:"funnel"`
}
