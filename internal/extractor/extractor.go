// Package extractor implements the Content Extractor (spec.md §4.4): it
// turns a file path into Extracted Content by trying PDF strategies in
// preference order, scoring the resulting text, and falling back to the
// best candidate seen if nothing clears the minimum bar.
package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the security gate from spec.md §4.4: files larger than
// this are rejected outright rather than extracted.
const MaxFileSize = 50 * 1024 * 1024

// minAcceptableChars is the "≥ 40 characters" bar from spec.md §4.4 below
// which the extractor falls back to whichever candidate produced the most
// text rather than trusting any single strategy's result.
const minAcceptableChars = 40

// candidate pairs a strategy's text output with the quality tier it would
// receive, used to pick a fallback winner when no strategy clears the bar.
type candidate struct {
	text    string
	method  Method
	quality Quality
	err     error
}

// Extract produces Extracted Content for the file at path. inputRoot is the
// configured input directory, used to reject directory-traversal paths;
// language is the OCR language hint (spec.md §6 ocr_language).
func Extract(ctx context.Context, path, inputRoot, language string) (Content, error) {
	if err := checkSecurityConstraints(path, inputRoot); err != nil {
		return Content{}, err
	}

	if isImageFile(path) {
		return extractFromImage(ctx, path, language)
	}

	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return Content{}, &Error{Kind: KindUnsupported, Err: fmt.Errorf("unsupported file type: %s", filepath.Ext(path))}
	}

	return extractPDF(ctx, path, language)
}

func extractPDF(ctx context.Context, path, language string) (Content, error) {
	var candidates []candidate

	if text, err := extractStructuredText(path); err == nil && len(strings.TrimSpace(text)) > 0 {
		candidates = append(candidates, candidate{text: text, method: MethodStructuredText, quality: assessTextQuality(text)})
		if len(text) >= minAcceptableChars {
			return finalize(ctx, path, candidates[len(candidates)-1])
		}
	} else if err != nil {
		candidates = append(candidates, candidate{method: MethodStructuredText, err: err})
	}

	if text, err := extractAlternateText(ctx, path); err == nil && len(strings.TrimSpace(text)) > 0 {
		candidates = append(candidates, candidate{text: text, method: MethodAlternateText, quality: assessTextQuality(text)})
		if len(text) >= minAcceptableChars {
			return finalize(ctx, path, candidates[len(candidates)-1])
		}
	} else if extErr, ok := err.(*Error); ok && extErr.Kind == KindEncrypted {
		return Content{Quality: QualityFailed, ErrorMessage: "encrypted"}, extErr
	} else if err != nil {
		candidates = append(candidates, candidate{method: MethodAlternateText, err: err})
	}

	if text, err := extractOCRText(ctx, path, language); err == nil && len(strings.TrimSpace(text)) > 0 {
		candidates = append(candidates, candidate{text: text, method: MethodOCR, quality: assessOCRQuality(text)})
		if len(text) >= minAcceptableChars {
			return finalize(ctx, path, candidates[len(candidates)-1])
		}
	} else if err != nil {
		candidates = append(candidates, candidate{method: MethodOCR, err: err})
	}

	return finalizeFallback(ctx, path, candidates)
}

// finalize renders page 1 for the visual channel and returns the winning
// text candidate.
func finalize(ctx context.Context, path string, c candidate) (Content, error) {
	img, _ := renderPage(ctx, path, 1, visionZoomDPI)
	return Content{
		Text:      c.text,
		PageImage: img,
		Quality:   c.quality,
		Method:    c.method,
	}, nil
}

// finalizeFallback implements spec.md §4.4's final rule: if no strategy
// produced ≥ 40 characters, the longest candidate wins; if every candidate
// produced zero characters but a page image exists, text="" and the image
// alone is returned; if nothing at all was produced, the result is Failed.
func finalizeFallback(ctx context.Context, path string, candidates []candidate) (Content, error) {
	img, _ := renderPage(ctx, path, 1, visionZoomDPI)

	var best *candidate
	for i := range candidates {
		if candidates[i].err != nil {
			continue
		}
		if best == nil || len(candidates[i].text) > len(best.text) {
			best = &candidates[i]
		}
	}

	if best != nil && len(best.text) > 0 {
		return Content{
			Text:      best.text,
			PageImage: img,
			Quality:   best.quality,
			Method:    best.method,
		}, nil
	}

	if img != nil {
		return Content{Text: "", PageImage: img, Quality: QualityPoor, Method: MethodPlainText}, nil
	}

	lastErr := lastError(candidates)
	return Content{Quality: QualityFailed, ErrorMessage: errString(lastErr)}, lastErr
}

func lastError(candidates []candidate) error {
	for i := len(candidates) - 1; i >= 0; i-- {
		if candidates[i].err != nil {
			return candidates[i].err
		}
	}
	return &Error{Kind: KindCorrupt, Err: fmt.Errorf("no extraction strategy produced output")}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// checkSecurityConstraints enforces spec.md §4.4's size cap, zero-byte
// rejection, and directory-traversal rejection.
func checkSecurityConstraints(path, inputRoot string) error {
	info, err := os.Stat(path)
	if err != nil {
		return &Error{Kind: KindIOError, Err: err}
	}
	if info.Size() == 0 {
		return &Error{Kind: KindUnsupported, Err: fmt.Errorf("zero-byte file")}
	}
	if info.Size() > MaxFileSize {
		return &Error{Kind: KindTooLarge, Err: fmt.Errorf("file exceeds %d bytes", MaxFileSize)}
	}

	if inputRoot != "" {
		absRoot, err := filepath.Abs(inputRoot)
		if err != nil {
			return &Error{Kind: KindIOError, Err: err}
		}
		absPath, err := filepath.Abs(path)
		if err != nil {
			return &Error{Kind: KindIOError, Err: err}
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err != nil || strings.HasPrefix(rel, "..") {
			return &Error{Kind: KindUnsupported, Err: fmt.Errorf("path escapes input root: %s", path)}
		}
	}

	return nil
}
