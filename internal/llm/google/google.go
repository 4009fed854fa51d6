// Package google implements the LLM Provider Adapter's Google back-end
// (spec.md §4.5). No example in the pack pins a Gemini SDK, so this
// follows the same hand-rolled net/http idiom as the anthropic package.
package google

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
const DefaultModel = "gemini-2.0-flash"

// maxOutputTokens is spec.md §4.5's per-back-end reasoning knob for
// Google ("max output tokens 60").
const maxOutputTokens = 60

const defaultAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// Provider implements llm.Provider for the Gemini generateContent API.
type Provider struct {
	apiKey  string
	model   string
	apiBase string
	client  *http.Client
}

// New constructs a Google provider.
func New(apiKey, model string) *Provider {
	if model == "" {
		model = DefaultModel
	}
	return &Provider{
		apiKey:  apiKey,
		model:   model,
		apiBase: defaultAPIBase,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

func (p *Provider) Name() string         { return "google" }
func (p *Provider) SupportsVision() bool { return false }

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error"`
}

type candidate struct {
	Content content `json:"content"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// ProposeFilename calls Gemini's generateContent endpoint. Image input is
// ignored since this back-end is text-only (spec.md §4.5).
func (p *Provider) ProposeFilename(ctx context.Context, req llm.Request) (string, bool, error) {
	prompt, injectionDetected := llm.GuardedPrompt(req.Text)
	fullPrompt := llm.Instruction + "\n\nDocument Content:\n" + prompt

	reqBody := generateRequest{
		Contents:         []content{{Parts: []part{{Text: fullPrompt}}}},
		GenerationConfig: generationConfig{MaxOutputTokens: maxOutputTokens},
	}

	resp, err := p.send(ctx, reqBody)
	if err != nil {
		return "", injectionDetected, err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", injectionDetected, &llm.Error{Kind: llm.KindBadResponse, Provider: "google", Err: fmt.Errorf("no candidates in response")}
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), injectionDetected, nil
}

func (p *Provider) send(ctx context.Context, reqBody generateRequest) (*generateResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", p.apiBase, p.model, p.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var parsed generateResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &llm.Error{Kind: llm.KindBadResponse, Provider: "google", Err: fmt.Errorf("failed to decode response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, &parsed)
	}
	return &parsed, nil
}

func classifyStatus(status int, resp *generateResponse) error {
	msg := ""
	if resp.Error != nil {
		msg = resp.Error.Message
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &llm.Error{Kind: llm.KindAuth, Provider: "google", Err: fmt.Errorf("%s", msg)}
	case status == http.StatusTooManyRequests:
		return &llm.Error{Kind: llm.KindRateLimit, Provider: "google", Err: fmt.Errorf("%s", msg)}
	case status >= 500:
		return &llm.Error{Kind: llm.KindBadResponse, Provider: "google", Err: fmt.Errorf("server error %d: %s", status, msg)}
	default:
		return &llm.Error{Kind: llm.KindBadResponse, Provider: "google", Err: fmt.Errorf("status %d: %s", status, msg)}
	}
}

func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return &llm.Error{Kind: llm.KindTimeout, Provider: "google", Err: err}
	}
	return &llm.Error{Kind: llm.KindNetwork, Provider: "google", Err: err}
}

// ValidateCredentials checks the key's format (Google API keys start with
// "AIza") without a live request, mirroring original_source's
// GeminiProvider.validate_api_key.
func (p *Provider) ValidateCredentials(ctx context.Context) bool {
	return llm.ValidateKeyFormat("google", p.apiKey)
}
