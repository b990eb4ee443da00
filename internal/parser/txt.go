package parser

import (
	"bytes"
	"path/filepath"
	"strings"
)

// txtParser reads plain-text templates, which are often exported from Word
// with a BOM, CRLF endings and the odd stray byte.
type txtParser struct{}

func (txtParser) CanParse(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".text":
		return true
	}
	return false
}

func (txtParser) Parse(content []byte) (string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	return collapseBlankLines(strings.ToValidUTF8(string(content), "\uFFFD")), nil
}
