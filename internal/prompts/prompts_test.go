package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultChartingPromptRenders(t *testing.T) {
	out, err := Default().Charting(ChartingData{
		FileName: "x.csv", Columns: "['date', 'price']", Schema: "- date: datetime",
		Sample: "0  2024-01-01  100", SampleRows: 10, ChartFolder: "charts", SafeBaseName: "x", MaxCharts: 4,
	})
	if err != nil {
		t.Fatalf("Charting: %v", err)
	}
	for _, want := range []string{"'x.csv'", "tối đa 4", "thư mục 'charts'", "bắt đầu bằng 'x_'", "plt.close()", "```json"} {
		if !strings.Contains(out, want) {
			t.Fatalf("charting prompt missing %q:\n%s", want, out)
		}
	}
}

func TestDefaultReportPromptListsCharts(t *testing.T) {
	out, err := Default().Report(ReportData{
		ChartCount:   2,
		TemplateText: "MẪU",
		Charts:       []ChartEntry{{Title: "Giá", Path: "charts/a.png"}, {Title: "Khối lượng", Path: "charts/b.png"}},
	})
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	for _, want := range []string{"tất cả 2 biểu đồ", "- Tiêu đề: \"Giá\"\n  Tag để chèn: [INSERT_CHART: charts/a.png]", "[INSERT_CHART: charts/b.png]", "MẪU", "1 tháng tiếp theo"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report prompt missing %q:\n%s", want, out)
		}
	}
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	p := filepath.Join(t.TempDir(), "prompts.toml")
	content := "report_title = \"Market Report\"\nreport_lang = \"en\"\ncaption_prefix = \"Figure:\"\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := Default()
	if s.ReportTitle != "Market Report" || s.ReportLang != "en" || s.CaptionPrefix != "Figure:" {
		t.Fatalf("overrides not applied: %+v", s)
	}
	if s.ChartingPrompt != def.ChartingPrompt || s.MissingChartText != def.MissingChartText {
		t.Fatal("unset fields should keep defaults")
	}
}

func TestLoadRejectsUnknownKeysAndBadTemplates(t *testing.T) {
	dir := t.TempDir()
	unknown := filepath.Join(dir, "u.toml")
	_ = os.WriteFile(unknown, []byte("titel = \"x\"\n"), 0o644)
	if _, err := Load(unknown); err == nil || !strings.Contains(err.Error(), "titel") {
		t.Fatalf("expected unknown key error, got %v", err)
	}
	bad := filepath.Join(dir, "b.toml")
	_ = os.WriteFile(bad, []byte("charting_prompt = \"{{.FileName\"\n"), 0o644)
	if _, err := Load(bad); err == nil {
		t.Fatal("expected template parse error")
	}
}

func TestMissingFieldIsAnError(t *testing.T) {
	s := Default()
	s.ChartingPrompt = "{{.NoSuchField}}"
	if _, err := s.Charting(ChartingData{}); err == nil {
		t.Fatal("expected render error for unknown field")
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), "p.toml")
	if err := WriteDefault(p); err != nil {
		t.Fatalf("WriteDefault: %v", err)
	}
	s, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s != Default() {
		t.Fatal("round trip changed the default set")
	}
}
