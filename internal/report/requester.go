// Package report asks the model for the Markdown report and renders it into
// a standalone HTML document.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/charts"
	"github.com/KaramelBytes/chartloom-cli/internal/prompts"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

// ErrNoImages means none of the charts could be loaded, so nothing was sent.
var ErrNoImages = errors.New("no chart images could be loaded")

// Requester sends the charts and the template text to the model and returns
// the Markdown draft.
type Requester struct {
	Runtime           ai.Runtime
	Model             string
	Prompts           prompts.Set
	BaseDir           string // chart filenames resolve against this
	MaxTemplateTokens int    // 0 sends the template text whole
	MaxTokens         int
	Temperature       float64
	Log               logrus.FieldLogger
}

// Request builds one multimodal prompt holding every loadable chart.
func (r *Requester) Request(ctx context.Context, results []charts.ChartResult, templateText string) (string, error) {
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	var images []ai.ContentPart
	entries := make([]prompts.ChartEntry, 0, len(results))
	for _, c := range results {
		part, err := loadImage(resolve(r.BaseDir, c.Filename))
		if err != nil {
			log.WithError(err).WithField("chart", c.Filename).Warn("skipping chart image")
			continue
		}
		images = append(images, part)
		entries = append(entries, prompts.ChartEntry{Title: c.Title, Path: c.Filename})
	}
	if len(images) == 0 {
		return "", ErrNoImages
	}

	if r.MaxTemplateTokens > 0 {
		templateText = utils.TruncateToTokenLimit(templateText, r.MaxTemplateTokens)
	}
	prompt, err := r.Prompts.Report(prompts.ReportData{
		ChartCount:   len(images),
		TemplateText: templateText,
		Charts:       entries,
	})
	if err != nil {
		return "", err
	}

	log.WithField("images", len(images)).Info("requesting report draft")
	resp, err := r.Runtime.Generate(ctx, ai.GenerateRequest{
		Model:       r.Model,
		Messages:    []ai.Message{ai.UserMessage(prompt, images...)},
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("report request: %w", err)
	}
	draft := stripMarkdownFence(resp.Text())
	if draft == "" {
		return "", errors.New("report request: empty response")
	}
	if resp.Usage.TotalTokens > 0 {
		log.WithFields(logrus.Fields{
			"prompt_tokens":     resp.Usage.PromptTokens,
			"completion_tokens": resp.Usage.CompletionTokens,
		}).Debug("report usage")
	}
	return draft, nil
}

func resolve(base, p string) string {
	p = filepath.FromSlash(p)
	if base == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// loadImage reads a chart file. PNG and JPEG must also decode; other formats
// are passed through as read.
func loadImage(path string) (ai.ContentPart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ai.ContentPart{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	mt := mimeType(ext)
	switch ext {
	case ".png", ".jpg", ".jpeg":
		if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
			return ai.ContentPart{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
	}
	return ai.ImagePart(mt, data), nil
}

func mimeType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml"
	}
	if mt := mime.TypeByExtension(ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

// stripMarkdownFence removes one ```markdown (or bare ```) fence wrapping the
// whole draft.
func stripMarkdownFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	first, rest, ok := strings.Cut(s, "\n")
	if !ok {
		return s
	}
	lang := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(first, "```")))
	if lang != "" && lang != "markdown" && lang != "md" {
		return s
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "```")
	return strings.TrimSpace(rest)
}
