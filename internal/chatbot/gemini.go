package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const systemPrompt = `You are a helpful assistant for Jungle, an AI-powered speed to lead automation platform. Your role is to:

1. Answer questions about Jungle's features, pricing, and integrations
2. Qualify leads by asking about their CRM, challenges, and needs
3. Guide qualified leads to signup or demo
4. Provide helpful information about speed to lead automation

Key information about Jungle:
- Automatically calls leads within minutes using AI
- Integrates with GoHighLevel, Close, HubSpot, and other CRMs
- Uses Retell AI for automated calling
- Pricing: Starter ($99/mo), Professional ($299/mo), Enterprise (custom)
- 14-day free trial, no credit card required
- Main value: Never miss a lead by calling within 5 minutes

When qualifying leads:
- Ask about their current CRM
- Understand their biggest challenge with lead follow-up
- Categorize as high/medium/low fit
- For high-fit leads, suggest signup or demo

Be friendly, helpful, and concise. Always offer to help with signup or demo when appropriate.`

// GeminiClient answers chat messages using Google's Gemini API.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates a Gemini-backed chat client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("chatbot: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("chatbot: failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		modelID: modelID,
	}, nil
}

// Reply sends the conversation to Gemini and returns the assistant's answer.
func (c *GeminiClient) Reply(ctx context.Context, history []Message, message string) (string, error) {
	model := c.client.GenerativeModel(c.modelID)
	model.SetTemperature(0.7)
	model.SetMaxOutputTokens(500)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))

	cs := model.StartChat()
	for _, msg := range history {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			continue
		}
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		cs.History = append(cs.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(message))
	if err != nil {
		return "", fmt.Errorf("chatbot: gemini completion failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", errors.New("chatbot: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", errors.New("chatbot: gemini returned empty content")
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return strings.TrimSpace(text.String()), nil
}

// Close releases resources held by the Gemini client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
