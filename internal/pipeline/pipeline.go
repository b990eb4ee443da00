// Package pipeline sequences one report run: template text, datasets,
// charting code, chart execution, report draft and HTML.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/chartloom-cli/internal/charts"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/parser"
	"github.com/KaramelBytes/chartloom-cli/internal/report"
)

// Halting conditions. Each is returned wrapped, so match with errors.Is.
var (
	ErrNoTemplate       = errors.New("template has no usable text")
	ErrNoDatasets       = errors.New("no datasets found")
	ErrNoCharts         = errors.New("no charts were produced")
	ErrNoDraft          = errors.New("report draft was not produced")
	ErrReportNotWritten = errors.New("report file was not written")
)

// ChartRequester proposes charting code for one dataset.
type ChartRequester interface {
	Request(ctx context.Context, ds *dataset.Dataset) ([]charts.ChartRequest, error)
}

// ChartExecutor runs one chart's code and returns the image path.
type ChartExecutor interface {
	Execute(ctx context.Context, code string, ds *dataset.Dataset) (string, error)
}

// DraftRequester writes the Markdown report from the produced charts.
type DraftRequester interface {
	Request(ctx context.Context, results []charts.ChartResult, templateText string) (string, error)
}

// Options are the paths and knobs of one run.
type Options struct {
	TemplatePath string
	DatasetDir   string
	ReportPath   string // final HTML; the draft and manifest are written beside it
	ChartDelay   time.Duration
	Dataset      dataset.Options
	Progress     io.Writer // dataset progress bar; nil disables it
}

// Pipeline wires the steps of a run together.
type Pipeline struct {
	Options
	Charts   ChartRequester
	Executor ChartExecutor
	Drafts   DraftRequester
	Renderer *report.Renderer
	Log      logrus.FieldLogger
}

// Result summarizes a finished run.
type Result struct {
	RunID        string
	TemplateText string
	Charts       []charts.ChartResult
	Draft        string
	DraftPath    string
	ManifestPath string
	ReportPath   string
	Elapsed      time.Duration
}

func (p *Pipeline) logger() logrus.FieldLogger {
	if p.Log == nil {
		return logrus.StandardLogger()
	}
	return p.Log
}

// Run executes every step in order. A halt returns one of the sentinel errors
// above together with whatever the run produced so far.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.NewString()}
	log := p.logger().WithField("run_id", res.RunID)
	defer func() { res.Elapsed = time.Since(start) }()

	text, err := parser.ParseFile(p.TemplatePath)
	if err != nil {
		log.WithError(err).WithField("template", p.TemplatePath).Error("cannot read template")
		return res, fmt.Errorf("%w: %w", ErrNoTemplate, err)
	}
	res.TemplateText = text
	log.WithFields(logrus.Fields{"template": p.TemplatePath, "tokens": parser.EstimateTokens(text)}).Info("template loaded")

	files, err := dataset.Discover(p.DatasetDir)
	if err != nil {
		log.WithError(err).Error("cannot list datasets")
		return res, fmt.Errorf("%w: %w", ErrNoDatasets, err)
	}
	if len(files) == 0 {
		log.WithField("dir", p.DatasetDir).Error("no datasets found")
		return res, fmt.Errorf("%w in %s", ErrNoDatasets, p.DatasetDir)
	}
	log.WithField("datasets", len(files)).Info("datasets discovered")

	res.Charts, err = p.collectCharts(ctx, log, files)
	if err != nil {
		return res, err
	}
	if len(res.Charts) == 0 {
		log.Error("no charts were produced; nothing to report")
		return res, ErrNoCharts
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	draft, err := p.Drafts.Request(ctx, res.Charts, text)
	if err != nil {
		log.WithError(err).Error("report draft failed")
		return res, fmt.Errorf("%w: %w", ErrNoDraft, err)
	}
	res.Draft = draft

	p.saveDraft(log, res)

	if err := p.Renderer.WriteFile(p.ReportPath, draft, res.Charts); err != nil {
		log.WithError(err).WithField("report", p.ReportPath).Error("writing report failed")
		return res, fmt.Errorf("%w: %w", ErrReportNotWritten, err)
	}
	res.ReportPath = p.ReportPath
	log.WithFields(logrus.Fields{"report": p.ReportPath, "charts": len(res.Charts)}).Info("report written")
	return res, nil
}

// collectCharts runs every dataset through the charting request and the
// executor. Per-dataset failures are logged and skipped.
func (p *Pipeline) collectCharts(ctx context.Context, log logrus.FieldLogger, files []string) ([]charts.ChartResult, error) {
	var bar *progressbar.ProgressBar
	if p.Progress != nil {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Datasets"),
			progressbar.OptionSetWriter(p.Progress),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.Progress) }),
		)
	}

	var out []charts.ChartResult
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, p.chartsFor(ctx, log.WithField("dataset", filepath.Base(file)), file)...)
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return out, ctx.Err()
}

func (p *Pipeline) chartsFor(ctx context.Context, log logrus.FieldLogger, file string) []charts.ChartResult {
	ds, err := dataset.Load(file, p.Dataset)
	if err != nil {
		log.WithError(err).Warn("skipping unreadable dataset")
		return nil
	}
	reqs, err := p.Charts.Request(ctx, ds)
	if err != nil {
		log.WithError(err).Warn("no charting code for dataset")
		return nil
	}

	var out []charts.ChartResult
	for i, req := range reqs {
		clog := log.WithFields(logrus.Fields{"chart": i + 1, "title": req.Title})
		path, err := p.Executor.Execute(ctx, req.Code, ds)
		if err != nil {
			clog.WithError(err).Warn("chart skipped")
		} else {
			out = append(out, charts.ChartResult{Filename: path, Title: req.Title})
		}
		if err := sleepCtx(ctx, p.ChartDelay); err != nil {
			break
		}
	}
	return out
}

// saveDraft writes the Markdown draft and chart manifest beside the report.
// Failures here only cost the re-render option, so they are logged.
func (p *Pipeline) saveDraft(log logrus.FieldLogger, res *Result) {
	base := strings.TrimSuffix(p.ReportPath, filepath.Ext(p.ReportPath))
	draftPath := base + ".md"
	if err := os.MkdirAll(filepath.Dir(draftPath), 0o755); err != nil {
		log.WithError(err).Warn("cannot create report dir for draft")
		return
	}
	if err := os.WriteFile(draftPath, []byte(res.Draft+"\n"), 0o644); err != nil {
		log.WithError(err).Warn("saving draft failed")
		return
	}
	res.DraftPath = draftPath

	manifestPath := filepath.Join(filepath.Dir(p.ReportPath), report.ManifestName)
	m := &report.Manifest{
		RunID:     res.RunID,
		Generated: time.Now().UTC().Truncate(time.Second),
		Template:  p.TemplatePath,
		Draft:     filepath.Base(draftPath),
		Report:    filepath.Base(p.ReportPath),
		Charts:    res.Charts,
	}
	if err := report.WriteManifest(manifestPath, m); err != nil {
		log.WithError(err).Warn("saving chart manifest failed")
		return
	}
	res.ManifestPath = manifestPath
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
