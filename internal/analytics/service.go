// Package analytics tracks marketing-site events and serves the dashboard
// aggregates built from them.
package analytics

import (
	"context"

	"github.com/junglehq/jungle/pkg/logging"
)

// Service computes dashboard metrics from stored events.
type Service struct {
	store  Store
	logger *logging.Logger
}

func NewService(store Store, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, logger: logger.Component("analytics")}
}

// Track stores one event. Failures are logged, not surfaced: analytics must
// never break the referring request.
func (s *Service) Track(ctx context.Context, req IngestRequest) {
	e := Event{
		Event:      req.Event,
		Properties: req.Properties,
		SessionID:  req.SessionID,
	}
	if req.OrganizationID != "" {
		orgID := req.OrganizationID
		e.OrganizationID = &orgID
	}
	if err := s.store.Insert(ctx, e); err != nil {
		s.logger.Error("failed to store analytics event", "error", err, "event", req.Event)
	}
}

// Metrics aggregates the window's events into the dashboard shape.
func (s *Service) Metrics(ctx context.Context, w Window) (Metrics, error) {
	counts, err := s.store.EventCounts(ctx, w)
	if err != nil {
		return Metrics{}, err
	}

	opened := counts[EventChatbotOpened]
	messages := counts[EventChatbotMessage]
	avgMessages := 0.0
	if opened > 0 {
		avgMessages = float64(messages) / float64(opened)
	}

	return Metrics{
		Demo:     rate(counts[EventDemoStarted], counts[EventDemoCompleted]),
		Signup:   rate(counts[EventSignupAttempt], counts[EventSignupCompleted]),
		TestLead: rate(counts[EventTestLeadSent], counts[EventTestLeadSuccess]),
		Chatbot: ChatbotMetrics{
			Opened:                opened,
			Messages:              messages,
			AvgMessagesPerSession: avgMessages,
			HighFitLeads:          counts[EventChatbotHighFit],
			CTAClicks:             counts[EventChatbotCTAClick],
		},
		Funnel: FunnelMetrics{
			Visitors: counts[EventPageView],
			Demos:    counts[EventDemoCompleted],
			Signups:  counts[EventSignupCompleted],
		},
	}, nil
}

func rate(started, completed int) RateMetric {
	m := RateMetric{Started: started, Completed: completed}
	if started > 0 {
		m.ConversionRate = float64(completed) / float64(started) * 100
	}
	return m
}
