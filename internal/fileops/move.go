// Package fileops implements the atomic, cross-device-safe, lock-aware file
// placement layer (spec.md §4.2). Delete and CreateDir are idempotent;
// Move, Copy and AtomicWrite replace any file already at the destination
// and do no conflict resolution of their own.
package fileops

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// MaxRenameAttempts is the number of in-place rename attempts before
// falling back to copy-then-delete (spec.md §4.2 step 3).
const MaxRenameAttempts = 3

// RenameBackoff is the base linear backoff between rename attempts.
const RenameBackoff = 200 * time.Millisecond

// Move moves src to dst, preferring a single rename syscall and falling
// back to copy+fsync+rename+unlink when rename fails (e.g. cross-device).
// The destination's parent directory is created if missing.
func Move(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("source not accessible: %w", err)
	}

	dstDir := filepath.Dir(dst)
	if err := CreateDir(dstDir, 0o755); err != nil {
		return fmt.Errorf("failed to prepare destination directory: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < MaxRenameAttempts; attempt++ {
		if err := os.Rename(src, dst); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < MaxRenameAttempts-1 {
			time.Sleep(RenameBackoff * time.Duration(attempt+1))
		}
	}

	if err := copyThenDelete(src, dst); err != nil {
		return fmt.Errorf("rename failed (%v), fallback copy+delete also failed: %w", lastErr, err)
	}
	return nil
}

// copyThenDelete implements spec.md §4.2 step 4: copy to a temp name in
// dst's directory, fsync, rename temp to final, then unlink src.
func copyThenDelete(src, dst string) error {
	tmp := fmt.Sprintf("%s.tmp.%d.%s", dst, os.Getpid(), uuid.NewString())

	if err := copyFile(src, tmp); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("copy to temp failed: %w", err)
	}

	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp to final failed: %w", err)
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("copy succeeded but unlinking source failed: %w", err)
	}
	return nil
}

// Copy copies src to dst, preserving no special metadata beyond file mode.
func Copy(src, dst string) error {
	if err := CreateDir(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return copyFile(src, dst)
}

func copyFile(src, dst string) (err error) {
	in, openErr := os.Open(src)
	if openErr != nil {
		return openErr
	}
	defer in.Close()

	info, statErr := in.Stat()
	if statErr != nil {
		return statErr
	}

	out, createErr := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if createErr != nil {
		return createErr
	}
	defer func() {
		closeErr := out.Close()
		if err == nil {
			err = closeErr
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// Delete removes path. It is idempotent: a missing path is not an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// CreateDir creates path (and parents) with the given mode if it doesn't
// already exist.
func CreateDir(path string, mode os.FileMode) error {
	return os.MkdirAll(path, mode)
}

// AtomicWrite writes bytes to path via a temp-file-then-rename sequence,
// fsyncing before the rename so a crash never leaves a partially written
// file visible at path (spec.md §4.2 "atomic_write").
func AtomicWrite(path string, data []byte) (err error) {
	tmp := fmt.Sprintf("%s.tmp.%d", path, os.Getpid())

	f, createErr := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if createErr != nil {
		return fmt.Errorf("failed to create temp file: %w", createErr)
	}

	defer func() {
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err = f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// Lock acquires a cross-platform exclusive advisory lock on path (a
// sidecar lock file, not the data file itself, so locking never interferes
// with readers that open the data file directly). The returned release
// function must be called exactly once, typically via defer; it is safe
// to call even after a panic since callers defer it before doing any work.
func Lock(path string) (release func(), err error) {
	lockPath := path + ".lock"
	fl := flock.New(lockPath)
	if err := fl.Lock(); err != nil {
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", lockPath, err)
	}
	return func() { fl.Unlock() }, nil
}
