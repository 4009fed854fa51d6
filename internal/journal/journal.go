// Package journal implements the crash-safe, append-only progress record
// described in spec.md §4.3 and §6: one source basename per line, written
// only after the corresponding move has physically completed, and locked
// for concurrent writers via fileops.Lock.
package journal

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"docs_organiser/internal/fileops"
)

// FileName is the well-known journal filename within the destination area.
const FileName = ".progress"

// Load reads the journal at path, if present, and reconciles each entry
// against inputDir: an entry is retained only if the corresponding file is
// no longer present in inputDir, meaning the prior run's move actually
// completed (spec.md §4.3). Entries for files still present in inputDir
// are dropped so the batch driver re-processes them.
func Load(path, inputDir string) (map[string]struct{}, error) {
	seen := make(map[string]struct{})

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return seen, nil
		}
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		basename := scanner.Text()
		if basename == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(inputDir, basename)); os.IsNotExist(err) {
			seen[basename] = struct{}{}
		}
		// If the file is still present in inputDir, the prior run wrote the
		// journal entry but crashed before the move completed; drop it so
		// it gets reprocessed.
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	return seen, nil
}

// Reset deletes the journal file, discarding all recorded progress.
func Reset(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to reset journal: %w", err)
	}
	return nil
}

// Writer serializes appends to the journal across concurrent workers via
// an exclusive advisory lock, so multiple worker goroutines (or processes)
// sharing one journal path never interleave writes.
type Writer struct {
	path string
}

// NewWriter opens (creating if necessary) the journal for appending.
func NewWriter(path string) (*Writer, error) {
	if err := fileops.CreateDir(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}
	return &Writer{path: path}, nil
}

// Record appends basename to the journal under an exclusive lock, flushing
// before releasing it. Safe for concurrent callers.
func (w *Writer) Record(basename string) error {
	release, err := fileops.Lock(w.path)
	if err != nil {
		return fmt.Errorf("failed to lock journal: %w", err)
	}
	defer release()

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open journal for append: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s\n", basename); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	return f.Sync()
}
