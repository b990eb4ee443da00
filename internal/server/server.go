// Package server exposes the report pipeline behind a file-upload endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/parser"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
)

// Workspace is the private directory tree of one upload.
type Workspace struct {
	Dir          string
	DatasetDir   string
	ReportPath   string
	TemplatePath string
}

// Runner is one ready-to-run pipeline.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Result, error)
}

// Builder creates the pipeline for a workspace.
type Builder func(ws Workspace) Runner

// Config holds the server settings.
type Config struct {
	Addr              string
	UploadDir         string
	MaxUploadMB       int
	MaxConcurrentRuns int
	CORSOrigins       []string
	DefaultTemplate   string // used when an upload carries no template
}

// Server handles uploads, one workspace per request.
type Server struct {
	cfg   Config
	build Builder
	log   logrus.FieldLogger
	sem   chan struct{}
}

// New returns a server; cfg zero values get defaults.
func New(cfg Config, build Builder, log logrus.FieldLogger) *Server {
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 32
	}
	if cfg.MaxConcurrentRuns <= 0 {
		cfg.MaxConcurrentRuns = 1
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{cfg: cfg, build: build, log: log, sem: make(chan struct{}, cfg.MaxConcurrentRuns)}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return Chain(mux, Recovery(s.log), Logging(s.log), CORS(s.cfg.CORSOrigins))
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return fmt.Errorf("upload dir: %w", err)
	}
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.WithField("addr", s.cfg.Addr).Info("upload server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded (field \"files\")")
		return
	}

	ws, err := s.newWorkspace()
	if err != nil {
		s.log.WithError(err).Error("cannot create workspace")
		writeError(w, http.StatusInternalServerError, "cannot create workspace")
		return
	}
	defer func() {
		if err := os.RemoveAll(ws.Dir); err != nil {
			s.log.WithError(err).WithField("workspace", ws.Dir).Warn("workspace cleanup failed")
		}
	}()
	log := s.log.WithField("workspace", filepath.Base(ws.Dir))

	datasets := 0
	for _, fh := range files {
		name := cleanName(fh.Filename)
		var dst string
		switch {
		case name == "":
			log.WithField("file", fh.Filename).Warn("ignoring upload with unusable name")
			continue
		case dataset.IsDataset(name):
			dst = filepath.Join(ws.DatasetDir, name)
			datasets++
		case parser.Supported(name):
			dst = filepath.Join(ws.Dir, "template"+strings.ToLower(filepath.Ext(name)))
			ws.TemplatePath = dst
		default:
			log.WithField("file", name).Warn("ignoring unsupported upload")
			continue
		}
		if err := saveUpload(fh, dst); err != nil {
			log.WithError(err).WithField("file", name).Error("saving upload failed")
			writeError(w, http.StatusInternalServerError, "cannot store upload")
			return
		}
	}
	if datasets == 0 {
		writeError(w, http.StatusBadRequest, "no dataset files (.csv, .tsv, .xlsx) in upload")
		return
	}
	if ws.TemplatePath == "" {
		ws.TemplatePath = s.cfg.DefaultTemplate
	}

	select {
	case s.sem <- struct{}{}:
		defer func() { <-s.sem }()
	case <-r.Context().Done():
		writeError(w, http.StatusServiceUnavailable, "request cancelled while waiting for a free runner")
		return
	}

	log.WithField("datasets", datasets).Info("starting report run")
	res, err := s.build(ws).Run(r.Context())
	if err != nil {
		log.WithError(err).Error("report run failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	page, err := os.ReadFile(res.ReportPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "report missing after run")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="report.html"`)
	w.Header().Set("X-Run-ID", res.RunID)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) newWorkspace() (Workspace, error) {
	dir := filepath.Join(s.cfg.UploadDir, uuid.NewString())
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Workspace{}, err
	}
	ws := Workspace{
		Dir:        abs,
		DatasetDir: filepath.Join(abs, "data"),
		ReportPath: filepath.Join(abs, "report", "report.html"),
	}
	for _, d := range []string{ws.DatasetDir, filepath.Dir(ws.ReportPath)} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return Workspace{}, err
		}
	}
	return ws, nil
}

// cleanName strips any directory part a client sent with the file name.
func cleanName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if name == "." || name == "/" || name == ".." || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}

func saveUpload(fh *multipart.FileHeader, dst string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
