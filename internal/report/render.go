package report

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/charts"
	"github.com/KaramelBytes/chartloom-cli/internal/prompts"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

// Placeholder matches a chart tag; group 1 is the path.
var Placeholder = regexp.MustCompile(`(?is)\[INSERT_CHART:\s*(.*?)\s*\]`)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.Table),
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// Renderer turns a Markdown draft into the final HTML document.
type Renderer struct {
	BaseDir     string // placeholder paths resolve against this; "" means cwd
	EmbedImages bool   // inline images as data: URIs instead of relative src
	Prompts     prompts.Set
}

// NewRenderer returns a renderer with the default presentation strings.
func NewRenderer(baseDir string) *Renderer {
	return &Renderer{BaseDir: baseDir, Prompts: prompts.Default()}
}

func chartKey(p string) string {
	p = utils.ToSlash(strings.TrimSpace(p))
	if p == "" {
		return p
	}
	return path.Clean(p)
}

// Substitute replaces every placeholder with an image block when the file
// exists, or with a red error paragraph naming the path when it does not.
func (r *Renderer) Substitute(md string, results []charts.ChartResult) string {
	if !Placeholder.MatchString(md) {
		return md
	}
	titles := make(map[string]string, len(results))
	for _, c := range results {
		titles[chartKey(c.Filename)] = c.Title
	}
	return Placeholder.ReplaceAllStringFunc(md, func(tag string) string {
		p := strings.TrimSpace(Placeholder.FindStringSubmatch(tag)[1])
		full := resolve(r.BaseDir, p)
		info, err := os.Stat(full)
		if p == "" || err != nil || info.IsDir() {
			return fmt.Sprintf("\n<p style=\"color: red;\">[%s %s]</p>\n",
				html.EscapeString(r.Prompts.MissingChartText), html.EscapeString(p))
		}
		title, ok := titles[chartKey(p)]
		if !ok || title == "" {
			title = filepath.Base(full)
		}
		src := p
		if r.EmbedImages {
			if data, err := os.ReadFile(full); err == nil {
				src = imageDataURL(full, data)
			}
		}
		return fmt.Sprintf("\n<div class=\"chart-container\">\n  <img src=\"%s\" alt=\"%s\">\n  <p class=\"caption\">%s %s</p>\n</div>\n",
			html.EscapeString(src), html.EscapeString(title),
			html.EscapeString(r.Prompts.CaptionPrefix), html.EscapeString(title))
	})
}

func imageDataURL(file string, data []byte) string {
	return ai.ImagePart(mimeType(strings.ToLower(filepath.Ext(file))), data).DataURL()
}

// ToHTML converts Markdown (tables, fenced code, raw HTML) to an HTML fragment.
func ToHTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("markdown: %w", err)
	}
	return buf.String(), nil
}

// Render substitutes placeholders, converts the draft and wraps it in the page shell.
func (r *Renderer) Render(md string, results []charts.ChartResult) ([]byte, error) {
	body, err := ToHTML(r.Substitute(md, results))
	if err != nil {
		return nil, err
	}
	return renderPage(r.Prompts.ReportLang, r.Prompts.ReportTitle, body)
}

// WriteFile renders and atomically writes the report, overwriting any old one.
func (r *Renderer) WriteFile(out, md string, results []charts.ChartResult) error {
	page, err := r.Render(md, results)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(out, page)
}
