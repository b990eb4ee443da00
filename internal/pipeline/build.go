package pipeline

import (
	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/charts"
	"github.com/KaramelBytes/chartloom-cli/internal/config"
	"github.com/KaramelBytes/chartloom-cli/internal/prompts"
	"github.com/KaramelBytes/chartloom-cli/internal/report"
)

// FromConfig assembles the production pipeline. Relative chart paths are
// resolved against baseDir ("" means the working directory), which is also
// where chart code runs.
func FromConfig(cfg *config.Global, rt ai.Runtime, ps prompts.Set, baseDir string, log logrus.FieldLogger) *Pipeline {
	runner := &charts.PythonRunner{
		Python:     cfg.PythonBin,
		WorkDir:    baseDir,
		Timeout:    cfg.ExecTimeout(),
		CPUSeconds: cfg.ExecCPUSec,
		MemoryMB:   cfg.ExecMemMB,
	}
	return &Pipeline{
		Options: Options{
			TemplatePath: cfg.TemplatePDF,
			DatasetDir:   cfg.DatasetDir,
			ReportPath:   cfg.OutputHTMLPath(),
			ChartDelay:   cfg.ChartDelay(),
		},
		Charts: &charts.Requester{
			Runtime:    rt,
			Model:      cfg.Model,
			Prompts:    ps,
			ChartDir:   cfg.ChartDir,
			MaxCharts:  cfg.MaxChartsPerDataset,
			SampleRows: cfg.SampleRows,
			Log:        log,
		},
		Executor: &charts.Executor{
			Runner:      runner,
			ChartDir:    cfg.ChartDir,
			BaseDir:     baseDir,
			MaxAttempts: cfg.MaxRepairAttempts,
			RepairDelay: cfg.RepairDelay(),
			Log:         log,
		},
		Drafts: &report.Requester{
			Runtime:           rt,
			Model:             cfg.Model,
			Prompts:           ps,
			BaseDir:           baseDir,
			MaxTemplateTokens: cfg.TemplateTokenLimit,
			Log:               log,
		},
		Renderer: &report.Renderer{BaseDir: baseDir, Prompts: ps},
		Log:      log,
	}
}
