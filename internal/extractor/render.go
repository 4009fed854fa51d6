package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// renderTimeout bounds a single pdftoppm invocation.
const renderTimeout = 90 * time.Second

// visionZoomDPI is the resolution used for the page-1 image handed to
// vision-capable LLM providers (spec.md §4.4: "≈ 250 DPI").
const visionZoomDPI = 250

// ocrZoomDPI is the resolution used when rasterizing pages for OCR; higher
// than the vision render since OCR accuracy is resolution-sensitive.
const ocrZoomDPI = 300

// renderPage rasterizes page number (1-indexed) of the PDF at path into PNG
// bytes at the given DPI, using pdftoppm (poppler-utils), matching the
// rendering idiom of other_examples/ripfix and other_examples/bulk-ocr.
func renderPage(ctx context.Context, path string, page, dpi int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, renderTimeout)
	defer cancel()

	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, &Error{Kind: KindUnsupported, Err: fmt.Errorf("pdftoppm not available: %w", err)}
	}

	tmpDir, err := os.MkdirTemp("", "docsorg-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create render temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outPrefix := filepath.Join(tmpDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-r", fmt.Sprintf("%d", dpi),
		"-f", fmt.Sprintf("%d", page),
		"-l", fmt.Sprintf("%d", page),
		"-singlefile",
		path, outPrefix,
	)
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w", err)
	}

	data, err := os.ReadFile(outPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("rendered page image missing: %w", err)
	}
	return data, nil
}
