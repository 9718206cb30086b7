package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// OllamaComposer sends the prompt to an Ollama-compatible chat endpoint.
type OllamaComposer struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	Client      *http.Client
}

// NewOllamaComposer constructs a composer for the given endpoint and model.
func NewOllamaComposer(baseURL, model, apiKey string, timeout time.Duration) *OllamaComposer {
	return &OllamaComposer{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Model:       model,
		APIKey:      apiKey,
		Temperature: 0.4,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (o *OllamaComposer) Compose(ctx context.Context, req Request) (string, error) {
	body := chatRequest{
		Model: o.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You advise retail buyers. Be specific and brief."},
			{Role: "user", Content: BuildPrompt(req)},
		},
		Stream: false,
		Options: map[string]any{
			"temperature": o.Temperature,
		},
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if o.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+o.APIKey)
	}

	resp, err := o.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call generation endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("generation endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}

	return Clean(chat.Message.Content), nil
}
