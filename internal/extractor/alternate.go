package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// alternateTextTimeout bounds the external pdftotext invocation so a
// pathological PDF can't hang a worker indefinitely.
const alternateTextTimeout = 2 * time.Minute

// extractAlternateText implements strategy 2: a second, independent
// extraction attempt via a different tool than strategy 1, used only when
// strategy 1 yields empty text or errors (spec.md §4.4, §9). Following the
// idiom of other_examples/ripfix and other_examples/bulk-ocr, this shells
// out to poppler-utils' pdftotext rather than embedding a second PDF
// library, since no example repo in the pack pins one.
func extractAlternateText(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, alternateTextTimeout)
	defer cancel()

	if _, err := exec.LookPath("pdftotext"); err != nil {
		return "", &Error{Kind: KindUnsupported, Err: fmt.Errorf("pdftotext not available: %w", err)}
	}

	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.ToLower(stderr.String())
		if strings.Contains(msg, "encrypt") || strings.Contains(msg, "password") {
			return "", &Error{Kind: KindEncrypted, Err: fmt.Errorf("pdftotext: %s", stderr.String())}
		}
		return "", fmt.Errorf("pdftotext failed: %w (%s)", err, stderr.String())
	}

	return stdout.String(), nil
}
