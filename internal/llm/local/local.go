// Package local implements the LLM Provider Adapter's Local back-end
// (spec.md §4.5), grounded directly on the teacher's MLXEngine
// (internal/ai/mlx.go): an OpenAI-wire-compatible client pointed at a
// localhost model server, generalized from MLX specifically to any
// OpenAI-compatible local daemon (e.g. Ollama, llama.cpp's server mode).
package local

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docs_organiser/internal/llm"
)

const defaultBaseURL = "http://localhost:11434/v1"

// Provider implements llm.Provider for a local OpenAI-compatible model
// server.
type Provider struct {
	apiURL string
	model  string
	client *http.Client
}

// New constructs a Local provider. baseURL should be the server's base
// URL; if empty, defaultBaseURL is used. model is required: spec.md §4.5
// marks it "configurable" with no fixed default.
func New(baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiURL := strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(apiURL, "/chat/completions") {
		apiURL += "/chat/completions"
	}
	return &Provider{
		apiURL: apiURL,
		model:  model,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *Provider) Name() string         { return "local" }
func (p *Provider) SupportsVision() bool { return false }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message message `json:"message"`
}

// ProposeFilename calls the local server's chat completions endpoint.
// Image input is ignored since this back-end is text-only (spec.md §4.5).
func (p *Provider) ProposeFilename(ctx context.Context, req llm.Request) (string, bool, error) {
	prompt, injectionDetected := llm.GuardedPrompt(req.Text)

	reqBody := chatRequest{
		Model: p.model,
		Messages: []message{
			{Role: "system", Content: llm.Instruction},
			{Role: "user", Content: prompt},
		},
		Stream:      false,
		Temperature: 0.1,
	}

	resp, err := p.send(ctx, reqBody)
	if err != nil {
		return "", injectionDetected, err
	}
	if len(resp.Choices) == 0 {
		return "", injectionDetected, &llm.Error{Kind: llm.KindBadResponse, Provider: "local", Err: fmt.Errorf("no choices in response")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), injectionDetected, nil
}

func (p *Provider) send(ctx context.Context, reqBody chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &llm.Error{Kind: llm.KindNetwork, Provider: "local", Err: fmt.Errorf("local model server unreachable: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &llm.Error{Kind: llm.KindBadResponse, Provider: "local", Err: fmt.Errorf("local server error (status %d): %s", resp.StatusCode, string(body))}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &llm.Error{Kind: llm.KindBadResponse, Provider: "local", Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &parsed, nil
}

// ValidateCredentials checks the daemon is reachable and the configured
// model responds, per spec.md §4.5 "first checks daemon is reachable and
// model is pulled". No API key is required for a local server.
func (p *Provider) ValidateCredentials(ctx context.Context) bool {
	_, err := p.send(ctx, chatRequest{
		Model:    p.model,
		Messages: []message{{Role: "user", Content: "ping"}},
	})
	return err == nil
}
