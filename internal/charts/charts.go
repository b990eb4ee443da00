// Package charts turns a dataset into chart images: it asks the model for
// charting code, runs that code out of process, and repairs a small closed
// set of known failures before giving up.
package charts

import (
	"errors"
	"fmt"
	"strings"
)

// ChartRequest is one model-proposed chart.
type ChartRequest struct {
	Title string `json:"chart_title"`
	Code  string `json:"python_code"`
}

// ChartResult is a chart whose image was confirmed on disk.
type ChartResult struct {
	Filename string `json:"filename" yaml:"filename"`
	Title    string `json:"title" yaml:"title"`
}

var (
	// ErrMissingOutputPath means the code names no image under the chart directory.
	ErrMissingOutputPath = errors.New("chart code has no output path under the chart directory")
	// ErrSilentFailure means the code ran cleanly but the image never appeared.
	ErrSilentFailure = errors.New("chart code ran but produced no image")
)

// ExecError is a Python exception raised by the chart code itself.
type ExecError struct {
	Type    string // Python exception class, e.g. NameError
	Message string // str(exception)
	Stderr  string
}

func (e *ExecError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("chart code raised %s: %s", e.Type, e.Message)
	}
	return "chart code raised: " + e.Message
}

// UnrecoverableError ends the repair loop: either the failure is not one we
// know how to patch, or the attempt budget ran out.
type UnrecoverableError struct {
	Category FailureCategory
	Attempts int
	Err      error
}

func (e *UnrecoverableError) Error() string {
	var b strings.Builder
	if e.Category == FailureUnknown {
		b.WriteString("unrecognized chart failure")
	} else {
		fmt.Fprintf(&b, "chart failure %s not fixed", e.Category)
	}
	fmt.Fprintf(&b, " after %d attempt(s)", e.Attempts)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *UnrecoverableError) Unwrap() error { return e.Err }
