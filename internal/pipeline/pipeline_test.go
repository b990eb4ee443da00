package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/charts"
	"github.com/KaramelBytes/chartloom-cli/internal/config"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/logging"
	"github.com/KaramelBytes/chartloom-cli/internal/prompts"
	"github.com/KaramelBytes/chartloom-cli/internal/report"
)

const chartingReply = `[{"chart_title":"Giá theo thời gian","python_code":"fig, ax = plt.subplots()\nax.plot(df['date'], df['price'])\nplt.savefig('charts/x_price.png')\nplt.close()"}]`

const reportReply = "# Báo cáo\n[INSERT_CHART: charts/x_price.png]\n"

// scriptedAI answers charting prompts (no images) and report prompts (images).
type scriptedAI struct {
	mu          sync.Mutex
	charting    string
	report      string
	reportErr   error
	chartCalls  int
	reportCalls int
}

func (s *scriptedAI) Generate(_ context.Context, req ai.GenerateRequest) (*ai.GenerateResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.charting
	if len(req.Messages[0].Images()) > 0 {
		s.reportCalls++
		if s.reportErr != nil {
			return nil, s.reportErr
		}
		text = s.report
	} else {
		s.chartCalls++
	}
	return &ai.GenerateResponse{Choices: []ai.Choice{{Message: ai.Message{Role: "assistant", Content: text}}}}, nil
}

// imageRunner writes a PNG wherever the code says it saves, or fails.
type imageRunner struct {
	base string
	fail error
	runs int
}

func (r *imageRunner) Run(_ context.Context, code string, _ *dataset.Dataset) error {
	r.runs++
	if r.fail != nil {
		return r.fail
	}
	out, ok := charts.ExtractOutputPath(code, "charts")
	if !ok {
		return errors.New("no output path")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(r.base, filepath.FromSlash(out)), buf.Bytes(), 0o644)
}

type fixture struct {
	base   string
	ai     *scriptedAI
	runner *imageRunner
	p      *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	mustWrite(t, filepath.Join(base, "template.txt"), "Báo cáo thị trường tuần\nTổng quan\nDự báo\n")
	if err := os.MkdirAll(filepath.Join(base, "csv"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg := &config.Global{
		Model:               "test-model",
		TemplatePDF:         filepath.Join(base, "template.txt"),
		DatasetDir:          filepath.Join(base, "csv"),
		ChartDir:            "charts",
		ReportDir:           filepath.Join(base, "report"),
		OutputFilename:      "report.html",
		MaxChartsPerDataset: 4,
		MaxRepairAttempts:   2,
		SampleRows:          10,
	}
	f := &fixture{
		base:   base,
		ai:     &scriptedAI{charting: chartingReply, report: reportReply},
		runner: &imageRunner{base: base},
	}
	f.p = FromConfig(cfg, f.ai, prompts.Default(), base, logging.Discard())
	f.p.Executor.(*charts.Executor).Runner = f.runner
	return f
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func (f *fixture) addPriceCSV(t *testing.T) {
	t.Helper()
	var b strings.Builder
	b.WriteString("date,price\n")
	for i := 1; i <= 10; i++ {
		fmt.Fprintf(&b, "2024-01-%02d,%d\n", i, 100+i)
	}
	mustWrite(t, filepath.Join(f.base, "csv", "x.csv"), b.String())
}

func TestRunEndToEnd(t *testing.T) {
	f := newFixture(t)
	f.addPriceCSV(t)

	res, err := f.p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Charts) != 1 || res.Charts[0].Filename != "charts/x_price.png" || res.Charts[0].Title != "Giá theo thời gian" {
		t.Fatalf("unexpected charts: %+v", res.Charts)
	}
	if _, err := os.Stat(filepath.Join(f.base, "charts", "x_price.png")); err != nil {
		t.Fatalf("chart image missing: %v", err)
	}
	if f.ai.chartCalls != 1 || f.ai.reportCalls != 1 {
		t.Fatalf("calls: charting=%d report=%d", f.ai.chartCalls, f.ai.reportCalls)
	}

	page, err := os.ReadFile(res.ReportPath)
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	out := string(page)
	if strings.Count(out, `<div class="chart-container">`) != 1 ||
		!strings.Contains(out, `src="charts/x_price.png"`) ||
		!strings.Contains(out, "Giá theo thời gian") {
		t.Fatalf("unexpected report:\n%s", out)
	}

	m, err := report.ReadManifest(res.ManifestPath)
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if m.RunID != res.RunID || len(m.Charts) != 1 || m.Draft != "report.md" {
		t.Fatalf("unexpected manifest: %+v", m)
	}
	draft, err := os.ReadFile(res.DraftPath)
	if err != nil || !strings.Contains(string(draft), "[INSERT_CHART: charts/x_price.png]") {
		t.Fatalf("draft not saved: %v %q", err, draft)
	}
}

func TestRunWithoutDatasetsHalts(t *testing.T) {
	f := newFixture(t)

	_, err := f.p.Run(context.Background())
	if !errors.Is(err, ErrNoDatasets) {
		t.Fatalf("expected ErrNoDatasets, got %v", err)
	}
	if f.ai.chartCalls+f.ai.reportCalls != 0 || f.runner.runs != 0 {
		t.Fatal("nothing should run without datasets")
	}
	if entries, _ := os.ReadDir(filepath.Join(f.base, "charts")); len(entries) != 0 {
		t.Fatalf("chart folder should be empty, got %d entries", len(entries))
	}
	if _, err := os.Stat(filepath.Join(f.base, "report", "report.html")); !os.IsNotExist(err) {
		t.Fatalf("report must not exist: %v", err)
	}
}

func TestRunSkipsUnreadableDataset(t *testing.T) {
	f := newFixture(t)
	f.addPriceCSV(t)
	mustWrite(t, filepath.Join(f.base, "csv", "a_empty.csv"), "")

	res, err := f.p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Charts) != 1 || f.ai.chartCalls != 1 {
		t.Fatalf("empty dataset should contribute nothing: charts=%d calls=%d", len(res.Charts), f.ai.chartCalls)
	}
}

func TestRunWithoutChartsSkipsReport(t *testing.T) {
	f := newFixture(t)
	f.addPriceCSV(t)
	f.runner.fail = &charts.ExecError{Type: "KeyError", Message: "'volume'"}

	_, err := f.p.Run(context.Background())
	if !errors.Is(err, ErrNoCharts) {
		t.Fatalf("expected ErrNoCharts, got %v", err)
	}
	if f.ai.reportCalls != 0 {
		t.Fatal("report must not be requested without charts")
	}
}

func TestRunBadChartingResponseSkipsDataset(t *testing.T) {
	f := newFixture(t)
	f.addPriceCSV(t)
	f.ai.charting = "Xin lỗi, tôi không thể giúp."

	if _, err := f.p.Run(context.Background()); !errors.Is(err, ErrNoCharts) {
		t.Fatalf("expected ErrNoCharts, got %v", err)
	}
	if f.runner.runs != 0 {
		t.Fatal("nothing to execute after a malformed response")
	}
}

func TestRunReportFailure(t *testing.T) {
	f := newFixture(t)
	f.addPriceCSV(t)
	f.ai.reportErr = errors.New("quota exceeded")

	res, err := f.p.Run(context.Background())
	if !errors.Is(err, ErrNoDraft) {
		t.Fatalf("expected ErrNoDraft, got %v", err)
	}
	if len(res.Charts) != 1 || res.ReportPath != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRunMissingTemplate(t *testing.T) {
	f := newFixture(t)
	f.addPriceCSV(t)
	f.p.TemplatePath = filepath.Join(f.base, "nope.pdf")

	if _, err := f.p.Run(context.Background()); !errors.Is(err, ErrNoTemplate) {
		t.Fatalf("expected ErrNoTemplate, got %v", err)
	}
	if f.ai.chartCalls != 0 {
		t.Fatal("no AI call expected without a template")
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	f := newFixture(t)
	f.addPriceCSV(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.p.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if f.ai.chartCalls != 0 {
		t.Fatal("no AI call expected after cancellation")
	}
}

func TestRunReportsProgress(t *testing.T) {
	f := newFixture(t)
	f.addPriceCSV(t)
	var buf bytes.Buffer
	f.p.Progress = &buf

	if _, err := f.p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(buf.String(), "Datasets") {
		t.Fatalf("expected progress output, got %q", buf.String())
	}
}
