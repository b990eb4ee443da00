package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/chartloom-cli/internal/config"
	"github.com/KaramelBytes/chartloom-cli/internal/logging"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
	"github.com/KaramelBytes/chartloom-cli/internal/prompts"
)

// fakeRun records the workspace it was given and writes a report.
type fakeRun struct {
	ws       Workspace
	err      error
	datasets []string
	panic    bool
}

func (f *fakeRun) Run(context.Context) (*pipeline.Result, error) {
	if f.panic {
		panic("boom")
	}
	entries, _ := os.ReadDir(f.ws.DatasetDir)
	for _, e := range entries {
		f.datasets = append(f.datasets, e.Name())
	}
	if f.err != nil {
		return nil, f.err
	}
	if err := os.WriteFile(f.ws.ReportPath, []byte("<html>ok</html>"), 0o644); err != nil {
		return nil, err
	}
	return &pipeline.Result{RunID: "run-1", ReportPath: f.ws.ReportPath}, nil
}

func newTestServer(t *testing.T, run *fakeRun) (*Server, string) {
	t.Helper()
	uploads := t.TempDir()
	s := New(Config{UploadDir: uploads, DefaultTemplate: "/srv/template.pdf"}, func(ws Workspace) Runner {
		run.ws = ws
		return run
	}, logging.Discard())
	return s, uploads
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte(content))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, s *Server, field string, files map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, field, files)
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not json: %q", rec.Body.String())
	}
	return body["error"]
}

func TestUploadReturnsReport(t *testing.T) {
	run := &fakeRun{}
	s, uploads := newTestServer(t, run)

	rec := doUpload(t, s, "files", map[string]string{
		"prices.csv":    "date,price\n2024-01-01,1\n",
		"../volume.csv": "date,vol\n2024-01-01,2\n",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="report.html"` {
		t.Fatalf("Content-Disposition = %q", got)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") || rec.Body.String() != "<html>ok</html>" {
		t.Fatalf("unexpected response: %s %q", rec.Header().Get("Content-Type"), rec.Body.String())
	}
	if len(run.datasets) != 2 {
		t.Fatalf("expected both datasets in the workspace, got %v", run.datasets)
	}
	if run.ws.TemplatePath != "/srv/template.pdf" {
		t.Fatalf("default template not used: %q", run.ws.TemplatePath)
	}
	if entries, _ := os.ReadDir(uploads); len(entries) != 0 {
		t.Fatalf("workspace not cleaned up: %d entries", len(entries))
	}
}

func TestUploadedTemplateWins(t *testing.T) {
	run := &fakeRun{}
	s, _ := newTestServer(t, run)
	rec := doUpload(t, s, "files", map[string]string{
		"prices.csv": "date,price\n2024-01-01,1\n",
		"mau.md":     "# Mẫu\n",
		"notes.exe":  "MZ",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if filepath.Base(run.ws.TemplatePath) != "template.md" || filepath.Dir(run.ws.TemplatePath) != run.ws.Dir {
		t.Fatalf("uploaded template not used: %q", run.ws.TemplatePath)
	}
	if len(run.datasets) != 1 {
		t.Fatalf("unsupported upload should be ignored: %v", run.datasets)
	}
}

func TestUploadRejectsBadRequests(t *testing.T) {
	run := &fakeRun{}
	s, _ := newTestServer(t, run)

	rec := doUpload(t, s, "other", map[string]string{"a.csv": "x\n1\n"})
	if rec.Code != http.StatusBadRequest || errorMessage(t, rec) == "" {
		t.Fatalf("missing files field: status %d", rec.Code)
	}

	rec = doUpload(t, s, "files", map[string]string{"only.pdf": "%PDF"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("no dataset: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("non-multipart: status %d", rr.Code)
	}
}

func TestUploadPipelineFailureIs500(t *testing.T) {
	run := &fakeRun{err: pipeline.ErrNoCharts}
	s, uploads := newTestServer(t, run)
	rec := doUpload(t, s, "files", map[string]string{"a.csv": "x\n1\n"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if msg := errorMessage(t, rec); !strings.Contains(msg, pipeline.ErrNoCharts.Error()) {
		t.Fatalf("error message = %q", msg)
	}
	if entries, _ := os.ReadDir(uploads); len(entries) != 0 {
		t.Fatal("workspace must be removed after a failed run")
	}
}

func TestRecoveryAndHealth(t *testing.T) {
	s, _ := newTestServer(t, &fakeRun{panic: true})
	rec := doUpload(t, s, "files", map[string]string{"a.csv": "x\n1\n"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("panic should become 500, got %d", rec.Code)
	}

	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Fatalf("healthz: %d %s", rr.Code, rr.Body.String())
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://app.local"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://app.local")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || rr.Header().Get("Access-Control-Allow-Origin") != "http://app.local" {
		t.Fatalf("preflight: %d %v", rr.Code, rr.Header())
	}

	req = httptest.NewRequest(http.MethodPost, "/upload", nil)
	req.Header.Set("Origin", "http://evil.local")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusTeapot || rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("disallowed origin: %d %v", rr.Code, rr.Header())
	}
}

func TestPipelineBuilderScopesToWorkspace(t *testing.T) {
	cfg := &config.Global{Model: "m", TemplatePDF: "/srv/t.pdf", DatasetDir: "csv", ChartDir: "/abs/charts", ReportDir: "report", OutputFilename: "x.html"}
	ws := Workspace{Dir: "/tmp/ws", DatasetDir: "/tmp/ws/data", ReportPath: "/tmp/ws/report/report.html", TemplatePath: "/tmp/ws/template.md"}
	r := PipelineBuilder(cfg, nil, prompts.Default(), logging.Discard())(ws)
	p, ok := r.(*pipeline.Pipeline)
	if !ok {
		t.Fatalf("unexpected runner %T", r)
	}
	if p.DatasetDir != ws.DatasetDir || p.TemplatePath != ws.TemplatePath || p.ReportPath != ws.ReportPath {
		t.Fatalf("pipeline not scoped: %+v", p.Options)
	}
	if !p.Renderer.EmbedImages || p.Renderer.BaseDir != ws.Dir {
		t.Fatalf("renderer not configured for uploads: %+v", p.Renderer)
	}
	if cfg.DatasetDir != "csv" {
		t.Fatal("builder must not mutate the shared config")
	}
}
