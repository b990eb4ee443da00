package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

type pdfParser struct{}

func (pdfParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// Parse concatenates the plain text of every page, one trailing newline per
// page. Pages that fail to extract are skipped.
func (pdfParser) Parse(content []byte) (text string, err error) {
	// the pdf package panics on some malformed xref tables
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("open pdf: malformed document: %v", rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, perr := page.GetPlainText(nil)
		if perr != nil {
			continue
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return collapseBlankLines(sb.String()), nil
}
