// Package sanitize implements the filesystem-safe filename production and
// destination-directory conflict resolution used by the pipeline coordinator.
package sanitize

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the hard cap on a sanitized name, excluding extension.
const MaxNameLength = 160

// MaxConflictProbes is how many "_N" suffixes ResolveConflict tries before
// falling back to an epoch-based disambiguator.
const MaxConflictProbes = 1000

// timestampFn is overridable in tests so fallback names are deterministic.
var timestampFn = func() string { return time.Now().UTC().Format("20060102150405") }

// Sanitize normalizes an LLM filename proposal into a filesystem-safe
// identifier matching `[A-Za-z0-9_]+`, never empty, truncated to
// MaxNameLength. It is pure and total: every input produces a valid output.
func Sanitize(proposal string) string {
	normalized := norm.NFKD.String(proposal)

	var b strings.Builder
	for _, r := range normalized {
		if r > unicode.MaxASCII {
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			continue
		}
		if r == ' ' || r == '-' || r == '.' {
			b.WriteRune('_')
		}
	}

	result := collapseUnderscores(b.String())
	result = strings.Trim(result, "_")

	if result == "" {
		result = fallbackName(proposal)
	}

	if len(result) > MaxNameLength {
		result = strings.Trim(result[:MaxNameLength], "_")
		if result == "" {
			result = fallbackName(proposal)
		}
	}

	return result
}

// fallbackName picks a literal fallback for an unsalvageable proposal:
// empty_file_ when the proposal is blank, invalid_name_ otherwise. The
// third fallback, untitled_document_, comes from UntitledDocumentName.
func fallbackName(proposal string) string {
	ts := timestampFn()
	trimmed := strings.TrimSpace(proposal)
	switch {
	case trimmed == "":
		return "empty_file_" + ts
	default:
		return "invalid_name_" + ts
	}
}

// UntitledDocumentName produces the fallback used when every LLM retry is
// exhausted with a non-network permanent error (spec.md §4.7 step 4).
func UntitledDocumentName() string {
	return "untitled_document_" + timestampFn()
}

// NetworkErrorName produces the fallback used when every LLM retry is
// exhausted with a Network classification (spec.md §4.7 step 4).
func NetworkErrorName() string {
	return "network_error_" + timestampFn()
}

// EmptyFileName produces the fallback used when extraction yields neither
// text nor an image (spec.md §4.7 step 3).
func EmptyFileName() string {
	return "empty_file_" + timestampFn()
}

func collapseUnderscores(s string) string {
	for strings.Contains(s, "__") {
		s = strings.ReplaceAll(s, "__", "_")
	}
	return s
}

// ResolveConflict returns a name (without extension) guaranteed not to
// collide with an existing `name.extension` entry in dir. It probes
// name_1, name_2, ... up to MaxConflictProbes, then falls back to a
// Unix-epoch suffix. It never overwrites an existing file; the caller's
// subsequent rename is the final race arbiter (spec.md §4.1).
func ResolveConflict(name, dir, extension string) string {
	candidate := name
	if !exists(dir, candidate, extension) {
		return candidate
	}

	for i := 1; i <= MaxConflictProbes; i++ {
		candidate = fmt.Sprintf("%s_%d", name, i)
		if !exists(dir, candidate, extension) {
			return candidate
		}
	}

	return fmt.Sprintf("%s_%d", name, time.Now().Unix())
}

func exists(dir, name, extension string) bool {
	path := filepath.Join(dir, name+extension)
	_, err := os.Stat(path)
	return err == nil
}
