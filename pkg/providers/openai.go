package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAI calls an OpenAI-compatible chat completions endpoint. Temperature
// is pinned to zero so the critic's judge scores stay near-deterministic for
// identical inputs.
type OpenAI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// OpenAIOption customizes the client.
type OpenAIOption func(*OpenAI)

// WithBaseURL points the client at a compatible non-OpenAI endpoint.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(p *OpenAI) {
		p.baseURL = baseURL
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAI) {
		p.httpClient = client
	}
}

// NewOpenAI creates a chat completions provider.
func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAI {
	p := &OpenAI{
		apiKey:     apiKey,
		baseURL:    defaultOpenAIBaseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends a single-turn chat completion request.
func (p *OpenAI) Generate(ctx context.Context, prompt string, model string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %w", ErrProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProvider, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrProvider, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", ErrProvider, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response (status %d): %w", ErrProvider, resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := "unknown error"
		if parsed.Error != nil {
			detail = parsed.Error.Message
		}

		return "", fmt.Errorf("%w: status %d: %s", ErrProvider, resp.StatusCode, detail)
	}

	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response carries no choices", ErrProvider)
	}

	return parsed.Choices[0].Message.Content, nil
}
