package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Reply(ctx context.Context, history []Message, message string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestChatWithModel(t *testing.T) {
	svc := NewService(&fakeLLM{reply: "Happy to help! Want to start a free trial?"}, nil)

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "We use HubSpot and our follow-up is slow"})
	require.NoError(t, err)

	assert.Equal(t, "Happy to help! Want to start a free trial?", resp.Text)
	require.NotNil(t, resp.Qualification)
	assert.Equal(t, "HubSpot", resp.Qualification.CRM)
	assert.Equal(t, "response_time", resp.Qualification.Challenge)
	assert.Equal(t, "high", resp.Qualification.Fit)
}

func TestChatFallbackWhenUnconfigured(t *testing.T) {
	svc := NewService(nil, nil)

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "what's your pricing?"})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "$99/mo")
	assert.Nil(t, resp.Qualification)
}

func TestChatFallbackOnModelError(t *testing.T) {
	svc := NewService(&fakeLLM{err: errors.New("quota exceeded")}, nil)

	resp, err := svc.Chat(context.Background(), ChatRequest{Message: "do you integrate with my crm?"})
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "CRM integrations")
}

func TestChatMessageValidation(t *testing.T) {
	svc := NewService(nil, nil)

	_, err := svc.Chat(context.Background(), ChatRequest{Message: ""})
	assert.Error(t, err)

	_, err = svc.Chat(context.Background(), ChatRequest{Message: strings.Repeat("a", maxMessageChars+1)})
	assert.Error(t, err)

	_, err = svc.Chat(context.Background(), ChatRequest{Message: strings.Repeat("a", maxMessageChars)})
	assert.NoError(t, err)
}

func TestExtractQualification(t *testing.T) {
	q := extractQualification("we miss calls after hours", "you should book a demo")
	require.NotNil(t, q)
	assert.Equal(t, "coverage", q.Challenge)
	assert.Equal(t, "high", q.Fit)

	assert.Nil(t, extractQualification("hello there", "hi, how can I help?"))
}

func TestHandleChat(t *testing.T) {
	h := NewHandler(NewService(&fakeLLM{reply: "Welcome to Jungle!"}, nil), nil)

	body, _ := json.Marshal(ChatRequest{Message: "hi"})
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Welcome to Jungle!", resp.Text)
}

func TestHandleChatRejectsOversizedMessage(t *testing.T) {
	h := NewHandler(NewService(nil, nil), nil)

	body, _ := json.Marshal(ChatRequest{Message: strings.Repeat("a", maxMessageChars+1)})
	req := httptest.NewRequest(http.MethodPost, "/api/chatbot", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.HandleChat(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
