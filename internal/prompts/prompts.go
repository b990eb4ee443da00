// Package prompts holds the prompt texts sent to the model and the
// presentation strings used by the HTML report. Defaults are Vietnamese;
// any field can be replaced from a TOML file.
package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
)

// Set is one complete prompt/presentation configuration.
type Set struct {
	ChartingPrompt   string `toml:"charting_prompt"`
	ReportPrompt     string `toml:"report_prompt"`
	ReportTitle      string `toml:"report_title"`
	ReportLang       string `toml:"report_lang"`
	CaptionPrefix    string `toml:"caption_prefix"`
	MissingChartText string `toml:"missing_chart_text"`
	UntitledChart    string `toml:"untitled_chart"`
}

// ChartingData feeds ChartingPrompt.
type ChartingData struct {
	FileName     string
	Columns      string
	Schema       string
	Sample       string
	SampleRows   int
	ChartFolder  string
	SafeBaseName string
	MaxCharts    int
}

// ChartEntry is one chart offered to the report prompt.
type ChartEntry struct {
	Title string
	Path  string
}

// ReportData feeds ReportPrompt.
type ReportData struct {
	ChartCount   int
	TemplateText string
	Charts       []ChartEntry
}

// Default returns the built-in Vietnamese set.
func Default() Set {
	return Set{
		ChartingPrompt:   defaultChartingPrompt,
		ReportPrompt:     defaultReportPrompt,
		ReportTitle:      "Báo cáo Phân tích Tự động",
		ReportLang:       "vi",
		CaptionPrefix:    "Hình:",
		MissingChartText: "Lỗi: Không tìm thấy ảnh tại",
		UntitledChart:    "Biểu đồ không tên",
	}
}

// Load returns the defaults overlaid with any non-empty fields from a TOML
// file. An empty path yields the defaults.
func Load(path string) (Set, error) {
	s := Default()
	if path == "" {
		return s, nil
	}
	var over Set
	md, err := toml.DecodeFile(path, &over)
	if err != nil {
		return s, fmt.Errorf("read prompts %s: %w", path, err)
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		keys := make([]string, len(undec))
		for i, k := range undec {
			keys[i] = k.String()
		}
		return s, fmt.Errorf("read prompts %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	s.merge(over)
	if err := s.Validate(); err != nil {
		return s, fmt.Errorf("prompts %s: %w", path, err)
	}
	return s, nil
}

func (s *Set) merge(o Set) {
	pick := func(dst *string, v string) {
		if strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	pick(&s.ChartingPrompt, o.ChartingPrompt)
	pick(&s.ReportPrompt, o.ReportPrompt)
	pick(&s.ReportTitle, o.ReportTitle)
	pick(&s.ReportLang, o.ReportLang)
	pick(&s.CaptionPrefix, o.CaptionPrefix)
	pick(&s.MissingChartText, o.MissingChartText)
	pick(&s.UntitledChart, o.UntitledChart)
}

// Validate parses both prompt templates.
func (s Set) Validate() error {
	var errs []error
	if _, err := parse("charting", s.ChartingPrompt); err != nil {
		errs = append(errs, err)
	}
	if _, err := parse("report", s.ReportPrompt); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Charting renders the charting prompt.
func (s Set) Charting(d ChartingData) (string, error) { return render("charting", s.ChartingPrompt, d) }

// Report renders the report prompt.
func (s Set) Report(d ReportData) (string, error) { return render("report", s.ReportPrompt, d) }

func parse(name, text string) (*template.Template, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse %s prompt: %w", name, err)
	}
	return t, nil
}

func render(name, text string, data any) (string, error) {
	t, err := parse(name, text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// WriteDefault writes the default set as TOML, for users to edit.
func WriteDefault(path string) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(Default()); err != nil {
		return fmt.Errorf("encode prompts: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
