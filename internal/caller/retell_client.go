// Package caller initiates outbound AI phone calls via the Retell API.
package caller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/junglehq/jungle/internal/faults"
	"github.com/junglehq/jungle/pkg/logging"
)

const (
	defaultRetellBaseURL = "https://api.retellai.com"
	retellCallTimeout    = 15 * time.Second
)

// RetellClient creates outbound phone calls through Retell's voice AI API.
// The API key is resolved per organization and passed on each call, so one
// client instance serves every tenant.
type RetellClient struct {
	baseURL    string
	agentID    string
	fromNumber string
	httpClient *http.Client
	logger     *logging.Logger
}

// RetellConfig configures the outbound call client.
type RetellConfig struct {
	// BaseURL overrides the Retell API base URL (for testing).
	BaseURL string
	// AgentID is the default Retell agent used for lead follow-up calls.
	AgentID string
	// FromNumber is the outbound caller ID (E.164).
	FromNumber string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// NewRetellClient creates a client for initiating outbound AI calls.
func NewRetellClient(cfg RetellConfig) (*RetellClient, error) {
	if strings.TrimSpace(cfg.AgentID) == "" {
		return nil, fmt.Errorf("retell client: agent ID required")
	}
	if strings.TrimSpace(cfg.FromNumber) == "" {
		return nil, fmt.Errorf("retell client: from number required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultRetellBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: retellCallTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &RetellClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		agentID:    cfg.AgentID,
		fromNumber: cfg.FromNumber,
		httpClient: httpClient,
		logger:     logger.Component("retell"),
	}, nil
}

// CallRequest contains the parameters for one outbound call.
type CallRequest struct {
	// APIKey is the organization's Retell API key (Bearer token).
	APIKey string
	// To is the lead's phone number (E.164).
	To string
	// LeadID, LeadName, and LeadEmail travel in call metadata so the
	// agent and post-call webhooks can correlate the conversation.
	LeadID    string
	LeadName  string
	LeadEmail string
}

// CallResult is the subset of the Retell response the pipeline records.
type CallResult struct {
	CallID     string `json:"call_id"`
	CallStatus string `json:"call_status"`
	AgentID    string `json:"agent_id"`
}

type createCallBody struct {
	FromNumber      string            `json:"from_number"`
	ToNumber        string            `json:"to_number"`
	OverrideAgentID string            `json:"override_agent_id,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// CreatePhoneCall starts an outbound AI call to the lead. Call creation is
// never retried here: a lead is already claimed by the time this runs, and a
// duplicate call is worse than a failed one.
func (c *RetellClient) CreatePhoneCall(ctx context.Context, req CallRequest) (*CallResult, error) {
	if strings.TrimSpace(req.APIKey) == "" {
		return nil, &faults.ConfigurationError{Reason: "retell API key is empty"}
	}
	if req.To == "" {
		return nil, fmt.Errorf("retell: to phone number required")
	}

	payload := createCallBody{
		FromNumber:      c.fromNumber,
		ToNumber:        req.To,
		OverrideAgentID: c.agentID,
		Metadata: map[string]string{
			"lead_id":    req.LeadID,
			"lead_name":  req.LeadName,
			"lead_email": req.LeadEmail,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("retell: marshal request: %w", err)
	}

	url := c.baseURL + "/v2/create-phone-call"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("retell: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)

	c.logger.Info("initiating outbound call",
		"to", maskPhone(req.To),
		"lead_id", req.LeadID,
	)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("retell: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("retell: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("retell API error",
			"status", resp.StatusCode,
			"body", string(respBody),
			"lead_id", req.LeadID,
		)
		return nil, &faults.UpstreamError{Service: "retell", Status: resp.StatusCode, Body: string(respBody)}
	}

	var result CallResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("retell: decode response: %w", err)
	}

	c.logger.Info("outbound call created",
		"call_id", result.CallID,
		"to", maskPhone(req.To),
	)
	return &result, nil
}

// maskPhone hides all but the last four digits in log output.
func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
