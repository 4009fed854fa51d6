// Package anthropic implements the LLM Provider Adapter's Anthropic
// back-end (spec.md §4.5). No example in the pack pins an Anthropic SDK,
// so this follows the pack's general "provider with no SDK" idiom: a
// small net/http client with its own request/response structs, the same
// shape the teacher's internal/ai/mlx.go uses for its OpenAI-compatible
// wire format.
package anthropic

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
const DefaultModel = "claude-3.5-haiku"

const defaultAPIURL = "https://api.anthropic.com/v1/messages"
const anthropicVersion = "2023-06-01"

// Provider implements llm.Provider for Anthropic's Messages API.
type Provider struct {
	apiKey string
	model  string
	apiURL string
	client *http.Client
}

// New constructs an Anthropic provider.
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

func (p *Provider) Name() string         { return "anthropic" }
func (p *Provider) SupportsVision() bool { return false }

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ProposeFilename calls Anthropic's Messages API. Image input is ignored
// since this back-end is text-only (spec.md §4.5).
func (p *Provider) ProposeFilename(ctx context.Context, req llm.Request) (string, bool, error) {
	prompt, injectionDetected := llm.GuardedPrompt(req.Text)

	reqBody := messagesRequest{
		Model:     p.model,
		System:    llm.Instruction,
		MaxTokens: llm.MaxGenerationTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	}
	// Opus 4.1-family models reject a temperature parameter.
	if !strings.Contains(strings.ToLower(p.model), "opus-4.1") {
		temp := 0.2
		reqBody.Temperature = &temp
	}

	resp, err := p.send(ctx, reqBody)
	if err != nil {
		return "", injectionDetected, err
	}

	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return strings.TrimSpace(block.Text), injectionDetected, nil
		}
	}
	return "", injectionDetected, &llm.Error{Kind: llm.KindBadResponse, Provider: "anthropic", Err: fmt.Errorf("no text block in response")}
}

func (p *Provider) send(ctx context.Context, reqBody messagesRequest) (*messagesResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &llm.Error{Kind: llm.KindBadResponse, Provider: "anthropic", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, &parsed)
	}

	return &parsed, nil
}

func classifyStatus(status int, resp *messagesResponse) error {
	msg := ""
	if resp.Error != nil {
		msg = resp.Error.Message
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &llm.Error{Kind: llm.KindAuth, Provider: "anthropic", Err: fmt.Errorf("%s", msg)}
	case status == http.StatusTooManyRequests:
		return &llm.Error{Kind: llm.KindRateLimit, Provider: "anthropic", Err: fmt.Errorf("%s", msg)}
	case status >= 500:
		return &llm.Error{Kind: llm.KindBadResponse, Provider: "anthropic", Err: fmt.Errorf("server error %d: %s", status, msg)}
	default:
		return &llm.Error{Kind: llm.KindBadResponse, Provider: "anthropic", Err: fmt.Errorf("status %d: %s", status, msg)}
	}
}

func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return &llm.Error{Kind: llm.KindTimeout, Provider: "anthropic", Err: err}
	default:
		return &llm.Error{Kind: llm.KindNetwork, Provider: "anthropic", Err: err}
	}
}

// ValidateCredentials checks the key's format, then performs a minimal
// live request.
func (p *Provider) ValidateCredentials(ctx context.Context) bool {
	if !llm.ValidateKeyFormat("anthropic", p.apiKey) {
		return false
	}
	_, err := p.send(ctx, messagesRequest{
		Model:     p.model,
		MaxTokens: 1,
		Messages:  []chatMessage{{Role: "user", Content: "ping"}},
	})
	return err == nil
}
