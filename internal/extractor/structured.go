package extractor

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// maxStructuredPages guardrails the pages read in strategy 1 (spec.md §4.4
// "capped at 100"), matching the teacher's own page cap idiom
// (internal/extractor/extractor.go used 50; the spec's guardrail is 100).
const maxStructuredPages = 100

// extractStructuredText implements strategy 1: the fastest structured-text
// path, via the pure-Go ledongthuc/pdf library the teacher already depends
// on. Panic recovery is kept from the teacher's extractor, since the
// library is known to panic on malformed input.
func extractStructuredText(path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf library panicked while processing %s: %v", path, r)
		}
	}()

	f, r, openErr := pdf.Open(path)
	if openErr != nil {
		return "", openErr
	}
	defer f.Close()

	var content strings.Builder
	totalPages := r.NumPage()
	if totalPages > maxStructuredPages {
		totalPages = maxStructuredPages
	}

	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		s, pageErr := p.GetPlainText(nil)
		if pageErr != nil {
			continue
		}
		content.WriteString(s)
	}

	return content.String(), nil
}
