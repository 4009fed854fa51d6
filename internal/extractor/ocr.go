package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ocrTimeout bounds a single tesseract invocation.
const ocrTimeout = 3 * time.Minute

// maxOCRPages caps how many rasterized pages are fed through tesseract,
// matching the "first handful of pages" guardrail from spec.md §4.4 so a
// 300-page scan doesn't stall a worker for minutes.
const maxOCRPages = 4

// extractOCRText implements strategy 3: rasterize the first few pages of the
// PDF with pdftoppm, detect and correct page orientation with tesseract's
// own --psm 0 pass, then recognize text with tesseract. Grounded on the
// exec-based pipeline in other_examples/ripfix and other_examples/bulk-ocr,
// which both shell out to poppler-utils and tesseract rather than binding
// either via cgo.
func extractOCRText(ctx context.Context, path, language string) (string, error) {
	if _, err := exec.LookPath("tesseract"); err != nil {
		return "", &Error{Kind: KindUnsupported, Err: fmt.Errorf("tesseract not available: %w", err)}
	}

	pageCount, err := pdfPageCount(ctx, path)
	if err != nil {
		return "", err
	}
	if pageCount > maxOCRPages {
		pageCount = maxOCRPages
	}
	if pageCount < 1 {
		pageCount = 1
	}

	var combined strings.Builder
	for page := 1; page <= pageCount; page++ {
		img, err := renderPage(ctx, path, page, ocrZoomDPI)
		if err != nil {
			if page == 1 {
				return "", err
			}
			break
		}

		img = correctOrientation(ctx, img)

		text, err := recognizeText(ctx, img, language)
		if err != nil {
			if page == 1 {
				return "", err
			}
			break
		}
		combined.WriteString(text)
		combined.WriteString("\n")
	}

	return combined.String(), nil
}

// correctOrientation runs tesseract's orientation-and-script-detection pass
// (--psm 0) and rotates the image to upright if a non-zero rotation is
// reported. Failures are non-fatal: OCR proceeds on the original image.
func correctOrientation(ctx context.Context, png []byte) []byte {
	tmpDir, err := os.MkdirTemp("", "docsorg-osd-*")
	if err != nil {
		return png
	}
	defer os.RemoveAll(tmpDir)

	imgPath := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(imgPath, png, 0o644); err != nil {
		return png
	}

	osdCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(osdCtx, "tesseract", imgPath, "stdout", "--psm", "0")
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return png
	}

	rotation := parseOSDRotation(stdout.String())
	if rotation == 0 {
		return png
	}

	rotated, err := rotatePNG(ctx, imgPath, tmpDir, rotation)
	if err != nil {
		return png
	}
	return rotated
}

// parseOSDRotation extracts the "Rotate: N" field from tesseract --psm 0
// output, returning 0 if the field is absent or unparsable.
func parseOSDRotation(osd string) int {
	for _, line := range strings.Split(osd, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "Rotate:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		return n
	}
	return 0
}

// rotatePNG applies a best-effort rotation via ImageMagick's convert, when
// present. Orientation correction is a quality improvement, not a
// requirement, so a missing convert binary just skips the correction.
func rotatePNG(ctx context.Context, imgPath, tmpDir string, degrees int) ([]byte, error) {
	if _, err := exec.LookPath("convert"); err != nil {
		return nil, fmt.Errorf("no rotation tool available")
	}
	outPath := filepath.Join(tmpDir, "rotated.png")
	rotCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	cmd := exec.CommandContext(rotCtx, "convert", "-rotate", strconv.Itoa(degrees), imgPath, outPath)
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return os.ReadFile(outPath)
}

// recognizeText runs tesseract against raw PNG bytes and returns the
// recognized text. language maps to spec.md §6's ocr_language config field
// (tesseract's -l flag), defaulting to "eng".
func recognizeText(ctx context.Context, png []byte, language string) (string, error) {
	if language == "" {
		language = "eng"
	}

	ctx, cancel := context.WithTimeout(ctx, ocrTimeout)
	defer cancel()

	tmpDir, err := os.MkdirTemp("", "docsorg-ocr-*")
	if err != nil {
		return "", fmt.Errorf("failed to create ocr temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imgPath := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(imgPath, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage ocr input: %w", err)
	}

	outPrefix := filepath.Join(tmpDir, "out")
	cmd := exec.CommandContext(ctx, "tesseract", imgPath, outPrefix, "-l", language)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w (%s)", err, stderr.String())
	}

	text, err := os.ReadFile(outPrefix + ".txt")
	if err != nil {
		return "", fmt.Errorf("ocr output missing: %w", err)
	}
	return string(text), nil
}

// pdfPageCount shells out to pdfinfo to discover the page count without
// loading the document through ledongthuc/pdf, since a corrupt structured
// layer (the reason OCR was reached) may not parse there either.
func pdfPageCount(ctx context.Context, path string) (int, error) {
	if _, err := exec.LookPath("pdfinfo"); err != nil {
		return 1, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "pdfinfo", path)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return 1, nil
	}

	for _, line := range strings.Split(stdout.String(), "\n") {
		if !strings.HasPrefix(line, "Pages:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		return n, nil
	}
	return 1, nil
}
