// Package openai implements the LLM Provider Adapter's OpenAI back-end
// (spec.md §4.5), grounded on the pack's
// xuanyiying-cleanup-assistant/internal/ai/openai client, which already
// wraps github.com/openai/openai-go for an almost identical
// "suggest a name for this file" call.
package openai

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"docs_organiser/internal/llm"
)

// DefaultModel is spec.md §4.5's default for this back-end.
const DefaultModel = "gpt-5-mini"

// visionFallbackModel is retried when the configured model's response to a
// vision request comes back empty (spec.md §4.5 "falls back to a known
// vision model if the response is empty").
const visionFallbackModel = "gpt-4o-mini"

// Provider implements llm.Provider for OpenAI's chat completions API.
type Provider struct {
	client *openai.Client
	model  string
}

// New constructs an OpenAI provider. model may be empty, in which case
// DefaultModel is used.
func New(apiKey, model string) *Provider {
	if model == "" {
		model = DefaultModel
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Provider{client: &client, model: model}
}

func (p *Provider) Name() string         { return "openai" }
func (p *Provider) SupportsVision() bool { return true }

// ProposeFilename calls the chat completions API, attempting a vision
// request first when an image is present, then automatically dropping the
// image and retrying text-only if the response errors with a message
// mentioning "image" or "vision" (spec.md §4.5).
func (p *Provider) ProposeFilename(ctx context.Context, req llm.Request) (string, bool, error) {
	prompt, injectionDetected := llm.GuardedPrompt(req.Text)

	if len(req.Image) > 0 {
		name, err := p.proposeWithImage(ctx, prompt, req.Image, p.model)
		if err == nil && name != "" {
			return name, injectionDetected, nil
		}
		if err != nil && isVisionError(err) {
			name, err := p.proposeTextOnly(ctx, prompt)
			return name, injectionDetected, err
		}
		if name == "" {
			if retryName, retryErr := p.proposeWithImage(ctx, prompt, req.Image, visionFallbackModel); retryErr == nil && retryName != "" {
				return retryName, injectionDetected, nil
			}
		}
		if err != nil {
			return "", injectionDetected, err
		}
	}

	name, err := p.proposeTextOnly(ctx, prompt)
	return name, injectionDetected, err
}

func (p *Provider) proposeTextOnly(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llm.Instruction),
			openai.UserMessage(prompt),
		},
		MaxTokens: openai.Int(llm.MaxGenerationTokens),
	}
	applyReasoningKnobs(&params, p.model)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}
	return extractContent(resp)
}

func (p *Provider) proposeWithImage(ctx context.Context, prompt string, image []byte, model string) (string, error) {
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)

	userMessage := openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(prompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
	})

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(llm.Instruction),
			userMessage,
		},
		MaxTokens: openai.Int(llm.MaxGenerationTokens),
	}
	applyReasoningKnobs(&params, model)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyError(err)
	}
	return extractContent(resp)
}

// isReasoningFamily reports whether model belongs to one of OpenAI's
// reasoning-family lines (gpt-5, o1, o3), which reject temperature/top_p
// and take a reasoning-effort knob instead (spec.md §4.5).
func isReasoningFamily(model string) bool {
	lower := strings.ToLower(model)
	return strings.Contains(lower, "gpt-5") || strings.Contains(lower, "o1") || strings.Contains(lower, "o3")
}

// applyReasoningKnobs sets the sampling/reasoning parameters spec.md §4.5
// requires: reasoning effort "low" for the newer reasoning-family models,
// otherwise the fixed temperature=0.1/top_p=0.9 pair.
func applyReasoningKnobs(params *openai.ChatCompletionNewParams, model string) {
	if isReasoningFamily(model) {
		params.ReasoningEffort = shared.ReasoningEffortLow
		return
	}
	params.Temperature = openai.Float(0.1)
	params.TopP = openai.Float(0.9)
}

func extractContent(resp *openai.ChatCompletion) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", &llm.Error{Kind: llm.KindBadResponse, Provider: "openai", Err: fmt.Errorf("no choices in response")}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func isVisionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "image") || strings.Contains(msg, "vision")
}

func classifyError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "401") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key"):
		return &llm.Error{Kind: llm.KindAuth, Provider: "openai", Err: err}
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit"):
		return &llm.Error{Kind: llm.KindRateLimit, Provider: "openai", Err: err}
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return &llm.Error{Kind: llm.KindTimeout, Provider: "openai", Err: err}
	case strings.Contains(msg, "content_policy") || strings.Contains(msg, "content policy"):
		return &llm.Error{Kind: llm.KindContentPolicy, Provider: "openai", Err: err}
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network"):
		return &llm.Error{Kind: llm.KindNetwork, Provider: "openai", Err: err}
	default:
		return &llm.Error{Kind: llm.KindBadResponse, Provider: "openai", Err: err}
	}
}

// ValidateCredentials performs a minimal live request, per spec.md §4.5
// "optionally by a live minimal request".
func (p *Provider) ValidateCredentials(ctx context.Context) bool {
	_, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("ping"),
		},
		MaxTokens: openai.Int(1),
	})
	return err == nil
}
