package charts

import (
	"regexp"
	"strings"
)

// FailureCategory is the closed set of chart failures the repair loop knows.
type FailureCategory int

const (
	FailureUnknown FailureCategory = iota
	FailureMissingSeaborn
	FailureMissingTickerAlias
	FailureInvalidStyle
	FailureMissingPlotAlias
)

func (c FailureCategory) String() string {
	switch c {
	case FailureMissingSeaborn:
		return "missing_seaborn"
	case FailureMissingTickerAlias:
		return "missing_ticker_alias"
	case FailureInvalidStyle:
		return "invalid_style"
	case FailureMissingPlotAlias:
		return "missing_plot_alias"
	default:
		return "unknown"
	}
}

// DefaultStyle replaces any seaborn style the code asks for.
const DefaultStyle = "darkgrid"

var setStyleCall = regexp.MustCompile(`sns\.set_style\((['"])[^'"]+['"]\)`)

// Classify maps an exception message (and the code that raised it) to a
// category. Order matters: the first matching signature wins.
func Classify(code, message string) FailureCategory {
	switch {
	case strings.Contains(message, "seaborn") && strings.Contains(message, "module"):
		return FailureMissingSeaborn
	case strings.Contains(message, "mticker"):
		return FailureMissingTickerAlias
	case strings.Contains(code, "sns.set_style") && strings.Contains(message, "not a valid package style"):
		return FailureInvalidStyle
	case !strings.Contains(code, "plt") && strings.Contains(message, "plt"):
		return FailureMissingPlotAlias
	default:
		return FailureUnknown
	}
}

// Patch rewrites chart code to address one failure category.
type Patch func(code string) string

func prependLine(line string) Patch {
	return func(code string) string { return line + "\n" + code }
}

var patches = map[FailureCategory]Patch{
	FailureMissingSeaborn:     prependLine("import seaborn as sns"),
	FailureMissingTickerAlias: prependLine("from matplotlib import ticker as mticker"),
	FailureInvalidStyle:       NormalizeStyle,
	FailureMissingPlotAlias:   prependLine("import matplotlib.pyplot as plt"),
}

// PatchFor returns the patch registered for a category.
func PatchFor(c FailureCategory) (Patch, bool) {
	p, ok := patches[c]
	return p, ok
}

// NormalizeStyle rewrites every sns.set_style('<x>') call to DefaultStyle.
func NormalizeStyle(code string) string {
	return setStyleCall.ReplaceAllString(code, "sns.set_style('"+DefaultStyle+"')")
}
