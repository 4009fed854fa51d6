package llm

import (
	"fmt"

	"docs_organiser/internal/llm/anthropic"
	"docs_organiser/internal/llm/deepseek"
	"docs_organiser/internal/llm/google"
	"docs_organiser/internal/llm/local"
	"docs_organiser/internal/llm/openai"
)

// New builds the Provider for one of the closed set of back-ends named in
// spec.md §4.5. baseURL is only consulted by the Local back-end.
func New(providerName, apiKey, model, baseURL string) (Provider, error) {
	switch providerName {
	case "openai":
		return openai.New(apiKey, model), nil
	case "anthropic":
		return anthropic.New(apiKey, model), nil
	case "google":
		return google.New(apiKey, model), nil
	case "deepseek":
		return deepseek.New(apiKey, model), nil
	case "local":
		return local.New(baseURL, model), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}

// KnownProviders lists the closed set of back-end names spec.md §4.5
// defines.
var KnownProviders = []string{"openai", "anthropic", "google", "deepseek", "local"}

// IsKnownProvider reports whether name is one of the closed set of
// back-ends.
func IsKnownProvider(name string) bool {
	for _, p := range KnownProviders {
		if p == name {
			return true
		}
	}
	return false
}
