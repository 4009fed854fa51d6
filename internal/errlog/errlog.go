// Package errlog implements the Error Log layout from spec.md §6: plain
// UTF-8, one line per event, `YYYY-MM-DD HH:MM:SS: <message>`, with every
// substring that looks like a provider API key replaced by `[REDACTED]`
// before it ever touches disk.
package errlog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"docs_organiser/internal/fileops"
)

// timeFn is overridable in tests so log lines are deterministic.
var timeFn = func() time.Time { return time.Now().UTC() }

// keyPattern matches the provider key shapes this project hands to LLM
// back-ends: OpenAI/DeepSeek `sk-...`, Anthropic `sk-ant-...`, Google
// `AIza...`. It is intentionally broad (any run of 10+ key-alphabet
// characters following a recognized prefix) since the log's job is to
// never leak a credential, not to validate one.
var keyPattern = regexp.MustCompile(`(sk-ant-[A-Za-z0-9_-]{10,}|sk-[A-Za-z0-9_-]{10,}|AIza[A-Za-z0-9_-]{10,})`)

// Redact replaces every substring of msg matching a known API-key shape
// with "[REDACTED]".
func Redact(msg string) string {
	return keyPattern.ReplaceAllString(msg, "[REDACTED]")
}

// Logger appends redacted, timestamped lines to a file under an exclusive
// lock, so concurrent workers never interleave partial lines.
type Logger struct {
	path string
	mu   sync.Mutex
}

// New opens (creating if necessary) the error log at path.
func New(path string) (*Logger, error) {
	if err := fileops.CreateDir(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create error log directory: %w", err)
	}
	return &Logger{path: path}, nil
}

// Log appends one redacted, timestamped line built from format/args.
func (l *Logger) Log(format string, args ...any) error {
	if l == nil {
		return nil
	}
	line := Redact(fmt.Sprintf(format, args...))

	l.mu.Lock()
	defer l.mu.Unlock()

	release, err := fileops.Lock(l.path)
	if err != nil {
		return fmt.Errorf("failed to lock error log: %w", err)
	}
	defer release()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open error log for append: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s: %s\n", timeFn().Format("2006-01-02 15:04:05"), line); err != nil {
		return fmt.Errorf("failed to write error log entry: %w", err)
	}
	return f.Sync()
}
