// Package deepseek implements the LLM Provider Adapter's DeepSeek back-end
// (spec.md §4.5: "OpenAI-compatible HTTP"), grounded directly on the
// teacher's internal/ai/mlx.go OpenAI-wire-compatible chatRequest /
// chatResponse structs and http.Client usage.
package deepseek

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

// DefaultModel is spec.md §4.5's default for this back-end.
const DefaultModel = "deepseek-chat"

const defaultAPIURL = "https://api.deepseek.com/v1/chat/completions"

// Provider implements llm.Provider for DeepSeek's OpenAI-compatible API.
type Provider struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
}

// New constructs a DeepSeek provider.
func New(apiKey, model string) *Provider {
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		apiKey: apiKey,
		model:  model,
		apiURL: defaultAPIURL,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *Provider) Name() string         { return "deepseek" }
func (p *Provider) SupportsVision() bool { return false }

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []choice  `json:"choices"`
	Error   *apiError `json:"error"`
}

type choice struct {
	Message message `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ProposeFilename calls DeepSeek's chat completions endpoint. Image input
// is ignored since this back-end is text-only (spec.md §4.5).
func (p *Provider) ProposeFilename(ctx context.Context, req llm.Request) (string, bool, error) {
	prompt, injectionDetected := llm.GuardedPrompt(req.Text)

	reqBody := chatRequest{
		Model: p.model,
		Messages: []message{
			{Role: "system", Content: llm.Instruction},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   llm.MaxGenerationTokens,
		Temperature: 0.1,
	}

	resp, err := p.send(ctx, reqBody)
	if err != nil {
		return "", injectionDetected, err
	}
	if len(resp.Choices) == 0 {
		return "", injectionDetected, &llm.Error{Kind: llm.KindBadResponse, Provider: "deepseek", Err: fmt.Errorf("no choices in response")}
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
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &llm.Error{Kind: llm.KindBadResponse, Provider: "deepseek", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, &parsed)
	}
	return &parsed, nil
}

func classifyStatus(status int, resp *chatResponse) error {
	msg := ""
	if resp.Error != nil {
		msg = resp.Error.Message
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &llm.Error{Kind: llm.KindAuth, Provider: "deepseek", Err: fmt.Errorf("%s", msg)}
	case status == http.StatusTooManyRequests:
		return &llm.Error{Kind: llm.KindRateLimit, Provider: "deepseek", Err: fmt.Errorf("%s", msg)}
	case status >= 500:
		return &llm.Error{Kind: llm.KindBadResponse, Provider: "deepseek", Err: fmt.Errorf("server error %d: %s", status, msg)}
	default:
		return &llm.Error{Kind: llm.KindBadResponse, Provider: "deepseek", Err: fmt.Errorf("status %d: %s", status, msg)}
	}
}

func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return &llm.Error{Kind: llm.KindTimeout, Provider: "deepseek", Err: err}
	}
	return &llm.Error{Kind: llm.KindNetwork, Provider: "deepseek", Err: err}
}

// ValidateCredentials performs a minimal live request.
func (p *Provider) ValidateCredentials(ctx context.Context) bool {
	_, err := p.send(ctx, chatRequest{
		Model:     p.model,
		Messages:  []message{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	})
	return err == nil
}
