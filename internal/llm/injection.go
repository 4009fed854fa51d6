package llm

import "strings"

// injectionPatterns are the simple phrases spec.md §4.5 calls out
// ("ignore previous", "system:", etc.), grounded on
// original_source's openai_provider._build_content_parts.
var injectionPatterns = []string{
	"ignore previous",
	"ignore all previous",
	"forget all",
	"disregard previous",
	"system:",
	"assistant:",
}

// SafeFallbackPrompt is sent in place of the extracted text when injection
// is detected, matching original_source's suspicious-document fallback.
const SafeFallbackPrompt = "Create a generic filename for a document that contained potentially unsafe content. Use format: suspicious_document_<date>"

// ScanForInjection reports whether text contains a known prompt-injection
// phrase, checked case-insensitively.
func ScanForInjection(text string) bool {
	lower := strings.ToLower(text)
	for _, pattern := range injectionPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// GuardedPrompt returns text unchanged if it's clean, or the safe fallback
// prompt if it contains an injection attempt. substituted reports whether a
// fallback was substituted, so the caller can log the event (spec.md
// §4.5 "the event is logged").
func GuardedPrompt(text string) (prompt string, substituted bool) {
	if ScanForInjection(text) {
		return SafeFallbackPrompt, true
	}
	return text, false
}
