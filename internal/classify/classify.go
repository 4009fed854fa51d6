// Package classify implements the Retry & Error Classifier (spec.md §4.6):
// it maps any error into a recoverability verdict and backoff hint, and
// drives the exponential-backoff retry loop built on top of it.
package classify

import (
	"errors"
	"strings"
	"syscall"

	"docs_organiser/internal/extractor"
	"docs_organiser/internal/llm"
)

// Kind is one of the error kinds enumerated in spec.md §7.
type Kind string

const (
	KindRecoverablePermission Kind = "recoverable_permission"
	KindFileLocked            Kind = "file_locked"
	KindSyncConflict          Kind = "sync_conflict"
	KindNetwork               Kind = "network"
	KindUnsupportedFormat     Kind = "unsupported_format"
	KindRateLimit             Kind = "rate_limit"
	KindServerError           Kind = "server_error"
	KindPermanent             Kind = "permanent"
)

// Verdict is the result of classifying an error, per spec.md §4.6.
type Verdict struct {
	Kind                    Kind
	Recoverable             bool
	SuggestedBackoffSeconds float64
	UserMessage             string
	RetryRecommended        bool
}

// Classify maps err onto one of spec.md §7's kinds using the first-match,
// case-insensitive substring and errno rules of §4.6.
func Classify(err error) Verdict {
	if err == nil {
		return Verdict{Kind: KindPermanent, Recoverable: false, UserMessage: "no error"}
	}

	var extractErr *extractor.Error
	if errors.As(err, &extractErr) {
		return classifyExtractorKind(extractErr.Kind)
	}

	var llmErr *llm.Error
	if errors.As(err, &llmErr) {
		return classifyLLMKind(llmErr.Kind)
	}

	if errors.Is(err, syscall.EACCES) || containsAny(err, "permission denied") {
		return Verdict{
			Kind:                    KindRecoverablePermission,
			Recoverable:             true,
			SuggestedBackoffSeconds: 2,
			RetryRecommended:        true,
			UserMessage:             "file is locked by antivirus or sync software",
		}
	}

	if errors.Is(err, syscall.EBUSY) || containsAny(err, "file is being used", "locked") {
		return Verdict{
			Kind:                    KindFileLocked,
			Recoverable:             true,
			SuggestedBackoffSeconds: 1.5,
			RetryRecommended:        true,
			UserMessage:             "file is in use by another process",
		}
	}

	if containsAny(err, "onedrive", "dropbox", "sync", "conflicted copy") {
		return Verdict{
			Kind:                    KindSyncConflict,
			Recoverable:             true,
			SuggestedBackoffSeconds: 3,
			RetryRecommended:        true,
			UserMessage:             "file is being synced by a cloud storage client",
		}
	}

	if containsAny(err, "timeout", "timed out", "connection", "network", "unreachable") {
		return Verdict{
			Kind:                    KindNetwork,
			Recoverable:             true,
			SuggestedBackoffSeconds: 5,
			RetryRecommended:        true,
			UserMessage:             "network error talking to the LLM provider",
		}
	}

	if containsAny(err, "unsupported", "invalid format", "corrupted", "not a valid") {
		return Verdict{
			Kind:                    KindUnsupportedFormat,
			Recoverable:             false,
			SuggestedBackoffSeconds: 0,
			RetryRecommended:        false,
			UserMessage:             "file format is unsupported or corrupted",
		}
	}

	if containsAny(err, "rate limit", "429", "throttle", "quota") {
		return Verdict{
			Kind:                    KindRateLimit,
			Recoverable:             true,
			SuggestedBackoffSeconds: 5,
			RetryRecommended:        true,
			UserMessage:             "provider rate limit reached",
		}
	}

	if containsAny(err, "500", "502", "503", "504", "server error", "service unavailable") {
		return Verdict{
			Kind:                    KindServerError,
			Recoverable:             true,
			SuggestedBackoffSeconds: 5,
			RetryRecommended:        true,
			UserMessage:             "provider server error",
		}
	}

	return Verdict{
		Kind:             KindPermanent,
		Recoverable:      false,
		RetryRecommended: false,
		UserMessage:      err.Error(),
	}
}

// classifyExtractorKind maps C4's already-known failure kind directly to a
// Verdict, per spec.md §9: tagged kinds are the primary signal, string
// matching is only the fallback for errors nothing already classified.
func classifyExtractorKind(kind extractor.Kind) Verdict {
	switch kind {
	case extractor.KindEncrypted, extractor.KindCorrupt, extractor.KindUnsupported:
		return Verdict{
			Kind:             KindUnsupportedFormat,
			Recoverable:      false,
			RetryRecommended: false,
			UserMessage:      "file format is unsupported or corrupted",
		}
	case extractor.KindTooLarge:
		return Verdict{
			Kind:             KindPermanent,
			Recoverable:      false,
			RetryRecommended: false,
			UserMessage:      "file is too large to process",
		}
	case extractor.KindIOError:
		return Verdict{
			Kind:                    KindRecoverablePermission,
			Recoverable:             true,
			SuggestedBackoffSeconds: 2,
			RetryRecommended:        true,
			UserMessage:             "I/O error reading the file",
		}
	default:
		return Verdict{Kind: KindPermanent, Recoverable: false, RetryRecommended: false, UserMessage: string(kind)}
	}
}

// classifyLLMKind maps C5's already-known failure kind directly to a
// Verdict, the same way classifyExtractorKind does for C4.
func classifyLLMKind(kind llm.Kind) Verdict {
	switch kind {
	case llm.KindAuth:
		return Verdict{Kind: KindPermanent, Recoverable: false, RetryRecommended: false, UserMessage: "provider credentials rejected"}
	case llm.KindRateLimit:
		return Verdict{
			Kind:                    KindRateLimit,
			Recoverable:             true,
			SuggestedBackoffSeconds: 5,
			RetryRecommended:        true,
			UserMessage:             "provider rate limit reached",
		}
	case llm.KindTimeout, llm.KindNetwork:
		return Verdict{
			Kind:                    KindNetwork,
			Recoverable:             true,
			SuggestedBackoffSeconds: 5,
			RetryRecommended:        true,
			UserMessage:             "network error talking to the LLM provider",
		}
	case llm.KindBadResponse:
		return Verdict{
			Kind:                    KindServerError,
			Recoverable:             true,
			SuggestedBackoffSeconds: 5,
			RetryRecommended:        true,
			UserMessage:             "provider server error",
		}
	case llm.KindContentPolicy, llm.KindUnsupported:
		return Verdict{Kind: KindPermanent, Recoverable: false, RetryRecommended: false, UserMessage: "provider rejected the request"}
	default:
		return Verdict{Kind: KindPermanent, Recoverable: false, RetryRecommended: false, UserMessage: string(kind)}
	}
}

func containsAny(err error, substrings ...string) bool {
	msg := strings.ToLower(err.Error())
	for _, s := range substrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
