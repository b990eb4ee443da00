package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/charts"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/parser"
	"github.com/KaramelBytes/chartloom-cli/internal/pipeline"
	"github.com/KaramelBytes/chartloom-cli/internal/prompts"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

var (
	runTemplate    string
	runDatasets    string
	runChartDir    string
	runReportDir   string
	runOutput      string
	runModel       string
	runProvider    string
	runBaseURL     string
	runMaxCharts   int
	runNoProgress  bool
	runEmbedImages bool
	runDryRun      bool
	runSheet       string
	runCleanCharts bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate charts and the HTML report from the dataset folder",
	Example: `  chartloom run
  chartloom run --template mau.pdf --datasets ./csv --output BaoCao.html
  chartloom run --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		applyRunFlags(cmd)
		ps, err := loadPrompts(c)
		if err != nil {
			return err
		}
		if runDryRun {
			return dryRun(cmd, ps)
		}
		if err := c.Validate(); err != nil {
			return err
		}

		log, err := newLogger(c)
		if err != nil {
			return err
		}
		rt, err := buildRuntime(c, runBaseURL)
		if err != nil {
			return err
		}
		meter := ai.NewMeter(rt)
		if runCleanCharts {
			if err := utils.ClearDir(c.ChartDir); err != nil {
				return fmt.Errorf("clean charts: %w", err)
			}
		}
		if err := c.EnsureOutputDirs(); err != nil {
			return err
		}

		p := pipeline.FromConfig(c, meter, ps, "", log)
		p.Dataset.Sheet = runSheet
		p.Renderer.EmbedImages = runEmbedImages
		if !runNoProgress {
			p.Progress = cmd.ErrOrStderr()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		res, err := p.Run(ctx)
		out := cmd.OutOrStdout()
		if err != nil {
			if res != nil && len(res.Charts) > 0 {
				fmt.Fprintf(out, "⚠ %d chart(s) were produced in %s before the run stopped\n", len(res.Charts), c.ChartDir)
			}
			return err
		}

		fmt.Fprintf(out, "✓ Report written: %s\n", res.ReportPath)
		fmt.Fprintf(out, "  charts: %d  draft: %s  elapsed: %s\n", len(res.Charts), filepath.Base(res.DraftPath), res.Elapsed.Round(time.Second))
		if u, calls := meter.Totals(); calls > 0 && u.TotalTokens > 0 {
			line := fmt.Sprintf("  AI calls: %d  tokens: %d in / %d out", calls, u.PromptTokens, u.CompletionTokens)
			if cost, ok := ai.EstimateCostUSD(c.Model, u.PromptTokens, u.CompletionTokens); ok && cost > 0 {
				line += fmt.Sprintf("  est. cost: $%.4f", cost)
			}
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

func applyRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	if f.Changed("template") {
		cfg.TemplatePDF = runTemplate
	}
	if f.Changed("datasets") {
		cfg.DatasetDir = runDatasets
	}
	if f.Changed("charts") {
		cfg.ChartDir = runChartDir
	}
	if f.Changed("report-dir") {
		cfg.ReportDir = runReportDir
	}
	if f.Changed("output") {
		cfg.OutputFilename = runOutput
	}
	if f.Changed("model") {
		cfg.Model = runModel
	}
	if f.Changed("provider") {
		cfg.Provider = runProvider
	}
	if f.Changed("max-charts") {
		cfg.MaxChartsPerDataset = runMaxCharts
		if cfg.MaxChartsPerDataset < 1 {
			cfg.MaxChartsPerDataset = 1
		}
		if cfg.MaxChartsPerDataset > 4 {
			cfg.MaxChartsPerDataset = 4
		}
	}
}

// dryRun checks inputs and prints the charting prompt for each dataset
// without calling the model or running any code.
func dryRun(cmd *cobra.Command, ps prompts.Set) error {
	out := cmd.OutOrStdout()
	text, err := parser.ParseFile(cfg.TemplatePDF)
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrNoTemplate, err)
	}
	fmt.Fprintf(out, "✓ Template: %s (≈%d tokens)\n", cfg.TemplatePDF, parser.EstimateTokens(text))
	files, err := dataset.Discover(cfg.DatasetDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w in %s", pipeline.ErrNoDatasets, cfg.DatasetDir)
	}
	req := &charts.Requester{Prompts: ps, ChartDir: cfg.ChartDir, MaxCharts: cfg.MaxChartsPerDataset, SampleRows: cfg.SampleRows}
	for _, file := range files {
		ds, err := dataset.Load(file, dataset.Options{Sheet: runSheet})
		if err != nil {
			fmt.Fprintf(out, "⚠ %s: %v\n", filepath.Base(file), err)
			continue
		}
		prompt, err := req.Prompt(ds)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Dataset: %s (%d rows, %d columns)\n", ds.Name, len(ds.Rows), len(ds.Columns))
		fmt.Fprintf(out, "----- charting prompt (%s) -----\n%s\n", ds.Name, prompt)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runTemplate, "template", "", "template document (.pdf, .docx, .md, .txt)")
	runCmd.Flags().StringVar(&runDatasets, "datasets", "", "folder with .csv/.tsv/.xlsx datasets")
	runCmd.Flags().StringVar(&runChartDir, "charts", "", "chart output folder")
	runCmd.Flags().StringVar(&runReportDir, "report-dir", "", "report output folder")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "report file name")
	runCmd.Flags().StringVar(&runModel, "model", "", "model name (overrides config)")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "AI provider: gemini, openrouter, ollama")
	runCmd.Flags().StringVar(&runBaseURL, "base-url", "", "override the provider endpoint")
	runCmd.Flags().IntVar(&runMaxCharts, "max-charts", 0, "charts per dataset (1-4)")
	runCmd.Flags().StringVar(&runSheet, "sheet", "", "XLSX sheet to read (default: first)")
	runCmd.Flags().BoolVar(&runNoProgress, "no-progress", false, "disable the dataset progress bar")
	runCmd.Flags().BoolVar(&runEmbedImages, "embed-images", false, "inline chart images into the HTML")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "check inputs and print prompts without calling the model")
	runCmd.Flags().BoolVar(&runCleanCharts, "clean-charts", false, "empty the chart folder before generating")
}
