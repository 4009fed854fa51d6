// Package llm implements the LLM Provider Adapter (spec.md §4.5): a closed
// set of back-ends (OpenAI, Anthropic, Google, DeepSeek, Local) behind one
// interface, plus the shared budget, cache, and injection-defense
// machinery every back-end uses.
package llm

import (
	"context"
	"fmt"
)

// Request is the input to a filename proposal call.
type Request struct {
	Text  string
	Image []byte // optional page-1 PNG bytes for vision-capable back-ends
}

// Provider is the uniform interface spec.md §4.5 requires of every
// back-end. injectionDetected reports whether GuardedPrompt substituted
// SafeFallbackPrompt for req.Text, so the caller can log the event
// (spec.md §4.5 "the event is logged").
type Provider interface {
	ProposeFilename(ctx context.Context, req Request) (name string, injectionDetected bool, err error)
	ValidateCredentials(ctx context.Context) bool
	Name() string
	SupportsVision() bool
}

// Kind categorizes an LLM call failure per spec.md §4.5, feeding C6's
// classifier the same way C4's Kind does.
type Kind string

const (
	KindAuth          Kind = "auth"
	KindRateLimit     Kind = "rate_limit"
	KindTimeout       Kind = "timeout"
	KindNetwork       Kind = "network"
	KindBadResponse   Kind = "bad_response"
	KindContentPolicy Kind = "content_policy"
	KindUnsupported   Kind = "unsupported"
)

// Error wraps a provider failure with its known Kind.
type Error struct {
	Kind     Kind
	Provider string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Instruction is the shared prompt every back-end sends, verbatim, per
// spec.md §4.5 ("All back-ends use the same instruction").
const Instruction = `You are a file naming assistant. Read the document content below and produce a single descriptive filename.

Rules:
- 4 to 8 words, underscore_separated, lowercase
- No file extension
- No punctuation other than underscores
- 60 characters maximum
- Return only the filename, nothing else`

// MaxGenerationTokens is the tight output budget from spec.md §4.5
// ("≈ 60 generation tokens").
const MaxGenerationTokens = 60

// MaxFilenameLength is the 60-character ceiling that Instruction asks
// providers to respect. Nothing in this package truncates a proposal to
// it; the only enforced length cap is sanitize.MaxNameLength (160).
const MaxFilenameLength = 60
