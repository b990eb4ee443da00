package server

import (
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/config"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
	"github.com/KaramelBytes/chartloom-cli/internal/prompts"
)

// PipelineBuilder builds production pipelines that read and write only inside
// the workspace and return a self-contained report.
func PipelineBuilder(cfg *config.Global, rt ai.Runtime, ps prompts.Set, log logrus.FieldLogger) Builder {
	return func(ws Workspace) Runner {
		c := *cfg
		c.TemplatePDF = ws.TemplatePath
		c.DatasetDir = ws.DatasetDir
		c.ChartDir = "charts"
		c.ReportDir = filepath.Dir(ws.ReportPath)
		c.OutputFilename = filepath.Base(ws.ReportPath)
		p := pipeline.FromConfig(&c, rt, ps, ws.Dir, log.WithField("workspace", filepath.Base(ws.Dir)))
		p.Renderer.EmbedImages = true
		return p
	}
}

// ConfigFrom maps the global settings onto server settings.
func ConfigFrom(cfg *config.Global) Config {
	return Config{
		Addr:              cfg.ServerAddr,
		UploadDir:         cfg.UploadDir,
		MaxUploadMB:       cfg.MaxUploadMB,
		MaxConcurrentRuns: cfg.MaxConcurrentRuns,
		CORSOrigins:       cfg.CORSOrigins,
		DefaultTemplate:   cfg.TemplatePDF,
	}
}
