// Package chatbot powers the marketing-site assistant. A hosted model
// answers when configured; otherwise a small rule-based responder keeps the
// widget useful.
package chatbot

import (
	"context"
	"strings"

	"github.com/junglehq/jungle/internal/faults"
	"github.com/junglehq/jungle/pkg/logging"
)

const maxMessageChars = 5000

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of the widget conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the widget's request body.
type ChatRequest struct {
	Message             string    `json:"message"`
	ConversationHistory []Message `json:"conversationHistory,omitempty"`
}

// Qualification carries lead-fit hints extracted from the exchange.
type Qualification struct {
	CRM       string `json:"crm,omitempty"`
	Challenge string `json:"challenge,omitempty"`
	Fit       string `json:"fit,omitempty"`
}

// ChatResponse is what the widget renders.
type ChatResponse struct {
	Text          string         `json:"text"`
	Qualification *Qualification `json:"qualification"`
}

// LLM generates an assistant reply for the conversation.
type LLM interface {
	Reply(ctx context.Context, history []Message, message string) (string, error)
}

// Service validates chat requests and produces replies.
type Service struct {
	llm    LLM
	logger *logging.Logger
}

// NewService creates the chat service. llm may be nil, in which case every
// reply comes from the rule-based fallback.
func NewService(llm LLM, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{llm: llm, logger: logger.Component("chatbot")}
}

// Chat answers one widget message. Model errors degrade to the rule-based
// fallback rather than surfacing to the visitor.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if req.Message == "" || len(req.Message) > maxMessageChars {
		return ChatResponse{}, &faults.ValidationError{Field: "message", Reason: "message is required and must be less than 5000 characters"}
	}

	if s.llm == nil {
		return ChatResponse{Text: fallbackResponse(req.Message)}, nil
	}

	text, err := s.llm.Reply(ctx, req.ConversationHistory, req.Message)
	if err != nil {
		s.logger.Error("model reply failed, using fallback", "error", err)
		return ChatResponse{Text: fallbackResponse(req.Message)}, nil
	}

	return ChatResponse{
		Text:          text,
		Qualification: extractQualification(req.Message, text),
	}, nil
}

// extractQualification pulls CRM, challenge, and fit hints out of the
// exchange so the marketing site can route high-fit visitors to signup.
func extractQualification(userMessage, aiResponse string) *Qualification {
	lowerMessage := strings.ToLower(userMessage)
	lowerResponse := strings.ToLower(aiResponse)

	q := Qualification{}

	switch {
	case strings.Contains(lowerMessage, "gohighlevel") || strings.Contains(lowerMessage, "ghl"):
		q.CRM = "GoHighLevel"
		q.Fit = "high"
	case strings.Contains(lowerMessage, "close"):
		q.CRM = "Close"
		q.Fit = "high"
	case strings.Contains(lowerMessage, "hubspot"):
		q.CRM = "HubSpot"
		q.Fit = "high"
	case strings.Contains(lowerMessage, "crm"):
		q.Fit = "medium"
	}

	switch {
	case strings.Contains(lowerMessage, "slow") || strings.Contains(lowerMessage, "response time"):
		q.Challenge = "response_time"
		if q.Fit == "" {
			q.Fit = "high"
		}
	case strings.Contains(lowerMessage, "miss") || strings.Contains(lowerMessage, "after hours"):
		q.Challenge = "coverage"
		if q.Fit == "" {
			q.Fit = "high"
		}
	}

	if strings.Contains(lowerResponse, "signup") || strings.Contains(lowerResponse, "trial") || strings.Contains(lowerResponse, "demo") {
		q.Fit = "high"
	}

	if q == (Qualification{}) {
		return nil
	}
	return &q
}

func fallbackResponse(message string) string {
	lowerInput := strings.ToLower(message)

	switch {
	case strings.Contains(lowerInput, "how does") && strings.Contains(lowerInput, "work"):
		return "Jungle automatically calls leads within your set threshold (e.g., 5 minutes). When a lead comes in via your CRM, our AI calls them, qualifies them, and schedules follow-ups if needed. It works 24/7, so you never miss a lead."
	case strings.Contains(lowerInput, "gohighlevel") || strings.Contains(lowerInput, "ghl"):
		return "Yes! Jungle integrates seamlessly with GoHighLevel. Just connect your GHL API key in the onboarding process, and we'll automatically receive new leads via webhook. Would you like to see how the integration works?"
	case strings.Contains(lowerInput, "crm") || strings.Contains(lowerInput, "integration"):
		return "Jungle supports multiple CRM integrations including GoHighLevel, Close, HubSpot, and more. What CRM are you currently using?"
	case strings.Contains(lowerInput, "pricing") || strings.Contains(lowerInput, "cost") || strings.Contains(lowerInput, "price"):
		return "Jungle offers three plans: Starter ($99/mo), Professional ($299/mo), and Enterprise (custom). All plans include a 14-day free trial. Would you like to see the full feature comparison?"
	case strings.Contains(lowerInput, "trial") || strings.Contains(lowerInput, "sign up") || strings.Contains(lowerInput, "start"):
		return "Great! You can start your free 14-day trial right now. No credit card required. I'll guide you through the setup process. Ready to get started?"
	default:
		return "I can help you with questions about how Jungle works, CRM integrations, pricing, or setting up a free trial. What would you like to know?"
	}
}
