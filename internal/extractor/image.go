package extractor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// imageExtensions lists the raw-image inputs spec.md §4.4 requires support
// for, beyond PDF. Decoding uses stdlib image/* plus golang.org/x/image for
// the two formats the stdlib doesn't cover (BMP, TIFF).
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
	".gif":  true,
}

func isImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}

// extractFromImage applies strategy 3 (OCR) directly to a raw image input,
// re-encoding it to PNG first since tesseract's format support varies by
// build and the PNG re-encode also normalizes the bytes returned for the
// visual channel (spec.md §4.4 "the image itself also returned").
func extractFromImage(ctx context.Context, path, language string) (Content, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Content{}, &Error{Kind: KindIOError, Err: err}
	}

	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Content{}, &Error{Kind: KindCorrupt, Err: fmt.Errorf("unsupported or corrupt image: %w", err)}
	}

	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, decoded); err != nil {
		return Content{}, &Error{Kind: KindIOError, Err: fmt.Errorf("failed to normalize image: %w", err)}
	}
	pngBytes := pngBuf.Bytes()

	pngBytes2 := correctOrientation(ctx, pngBytes)

	text, err := recognizeText(ctx, pngBytes2, language)
	if err != nil {
		return Content{Method: MethodOCR, PageImage: nil, Quality: QualityFailed, ErrorMessage: err.Error()}, nil
	}

	quality := assessOCRQuality(text)
	return Content{
		Text:      text,
		PageImage: pngBytes,
		Quality:   quality,
		Method:    MethodOCR,
	}, nil
}
