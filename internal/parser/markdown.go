package parser

import (
	"bytes"
	"strings"
)

type markdownParser struct{}

func (markdownParser) CanParse(filename string) bool {
	name := strings.ToLower(filename)
	return strings.HasSuffix(name, ".md") || strings.HasSuffix(name, ".markdown")
}

func (markdownParser) Parse(content []byte) (string, error) {
	return collapseBlankLines(string(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf")))), nil
}
