package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

// Parser defines a template document parser implementation.
type Parser interface {
	CanParse(filename string) bool
	Parse(content []byte) (string, error)
}

var registry []Parser

// Register adds a parser implementation to the registry.
func Register(p Parser) {
	registry = append(registry, p)
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported template format")

// ErrEmptyTemplate is returned when a template yields no text at all.
var ErrEmptyTemplate = errors.New("template contains no extractable text")

// ParseFile selects a parser based on filename and returns the extracted text.
// Unknown extensions are rejected; an empty result is ErrEmptyTemplate.
func ParseFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	for _, p := range registry {
		if !p.CanParse(path) {
			continue
		}
		text, err := p.Parse(data)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
		if strings.TrimSpace(text) == "" {
			return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrEmptyTemplate)
		}
		return text, nil
	}
	return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrUnsupported)
}

// Supported reports whether some registered parser accepts the file name.
func Supported(filename string) bool {
	for _, p := range registry {
		if p.CanParse(filename) {
			return true
		}
	}
	return false
}

// EstimateTokens delegates to utils.CountTokens for now.
func EstimateTokens(text string) int {
	return utils.CountTokens(text)
}

// collapseBlankLines normalizes line endings and squeezes runs of blank lines.
func collapseBlankLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}
	return text
}

func init() {
	Register(pdfParser{})
	Register(docxParser{})
	Register(markdownParser{})
	Register(txtParser{})
}
