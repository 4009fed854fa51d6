package llm

import "strings"

// EnvVar returns the environment variable name associated with a
// back-end, per spec.md §4.5 ("<PROVIDER>_API_KEY"), grounded on
// original_source's ProviderCapabilities.get_provider_requirements.
func EnvVar(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "OPENAI_API_KEY"
	case "anthropic":
		return "ANTHROPIC_API_KEY"
	case "google":
		return "GEMINI_API_KEY"
	case "deepseek":
		return "DEEPSEEK_API_KEY"
	default:
		return ""
	}
}

// keyFormat describes the shape a provider's key is expected to take.
type keyFormat struct {
	prefix    string
	minLength int
	maxLength int
}

var keyFormats = map[string]keyFormat{
	"openai":    {prefix: "sk-", minLength: 20, maxLength: 200},
	"anthropic": {prefix: "sk-ant-", minLength: 20, maxLength: 200},
	"google":    {prefix: "AIza", minLength: 20, maxLength: 100},
	"deepseek":  {prefix: "sk-", minLength: 20, maxLength: 200},
}

// placeholderSubstrings catch keys left as documentation examples or
// copy-paste templates rather than real secrets.
var placeholderSubstrings = []string{
	"your_api_key", "your-api-key", "xxxxxxxx", "changeme", "placeholder",
	"example", "insert_key_here", "<api_key>", "sk-test-000",
}

// ValidateKeyFormat applies spec.md §4.5's format check: provider-specific
// prefix and length range, rejection of all-zeros/all-ones and common
// placeholder substrings. It does not make a network call.
func ValidateKeyFormat(provider, key string) bool {
	if key == "" {
		return false
	}
	format, known := keyFormats[strings.ToLower(provider)]
	if !known {
		return len(key) >= 8
	}

	if len(key) < format.minLength || len(key) > format.maxLength {
		return false
	}
	if format.prefix != "" && !strings.HasPrefix(key, format.prefix) {
		return false
	}

	lower := strings.ToLower(key)
	for _, placeholder := range placeholderSubstrings {
		if strings.Contains(lower, placeholder) {
			return false
		}
	}

	if isAllSameDigit(key, '0') || isAllSameDigit(key, '1') {
		return false
	}

	return true
}

// isAllSameDigit reports whether every character in the key's body (after
// any provider prefix) is the same digit, catching keys like
// "sk-00000000000000000000".
func isAllSameDigit(key string, digit byte) bool {
	body := key
	for _, prefix := range []string{"sk-ant-", "sk-", "AIza"} {
		if strings.HasPrefix(body, prefix) {
			body = body[len(prefix):]
			break
		}
	}
	if body == "" {
		return false
	}
	for i := 0; i < len(body); i++ {
		if body[i] != digit {
			return false
		}
	}
	return true
}
