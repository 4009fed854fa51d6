package llm

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Tokenizer wraps tiktoken-go for provider-specific token counting (spec.md
// §4.4 "exact tokenizer counting if available").
type Tokenizer struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenizer returns a Tokenizer for the named model, falling back to
// cl100k_base when the model has no known encoding (covers Anthropic,
// Google, DeepSeek, and Local back-ends, none of which publish a tiktoken
// vocabulary).
func NewTokenizer(model string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get encoding: %w", err)
		}
	}
	return &Tokenizer{encoding: enc}, nil
}

// CountTokens returns the number of tokens text would occupy.
func (t *Tokenizer) CountTokens(text string) int {
	return len(t.encoding.Encode(text, nil, nil))
}
