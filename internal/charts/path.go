package charts

import (
	"path"
	"regexp"
	"strings"

	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

var imageExt = `\.(?:png|jpe?g|svg|pdf)`

// outputPathPattern matches a quoted string that starts with chartDir and ends
// with an image extension. Either slash direction is accepted as separator.
func outputPathPattern(chartDir string) *regexp.Regexp {
	dir := strings.TrimRight(utils.ToSlash(chartDir), "/")
	if dir == "" || dir == "." {
		dir = ""
	}
	var prefix string
	if dir != "" {
		parts := strings.Split(dir, "/")
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		prefix = strings.Join(parts, `(?:/|\\{1,2})`) + `(?:/|\\{1,2})`
	}
	return regexp.MustCompile(`(?i)(['"])((?:\./)?` + prefix + `[^'"\n]+?` + imageExt + `)['"]`)
}

// ExtractOutputPath returns the first quoted image path under chartDir found in
// code, with separators normalized to '/'. The quotes must match.
func ExtractOutputPath(code, chartDir string) (string, bool) {
	re := outputPathPattern(chartDir)
	for _, m := range re.FindAllStringSubmatchIndex(code, -1) {
		open := code[m[2]:m[3]]
		end := m[1] - 1
		if code[end:m[1]] != open {
			continue
		}
		p := code[m[4]:m[5]]
		p = strings.ReplaceAll(p, `\\`, "/")
		p = utils.ToSlash(p)
		return path.Clean(p), true
	}
	return "", false
}
