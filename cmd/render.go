package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/report"
)

var (
	renderManifest string
	renderDraft    string
	renderOutput   string
	renderBaseDir  string
	renderEmbed    bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Re-render a saved Markdown draft to HTML without calling the model",
	Example: `  chartloom render --manifest report/charts.yaml
  chartloom render --draft report/BaoCaoTongHop_Final.md --output /tmp/r.html --embed-images`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		manifestPath := renderManifest
		if manifestPath == "" {
			manifestPath = filepath.Join(c.ReportDir, report.ManifestName)
		}
		m, err := report.ReadManifest(manifestPath)
		if err != nil {
			return fmt.Errorf("read manifest: %w", err)
		}

		draftPath := renderDraft
		if draftPath == "" {
			draftPath = filepath.Join(filepath.Dir(manifestPath), m.Draft)
		}
		draft, err := os.ReadFile(draftPath)
		if err != nil {
			return fmt.Errorf("read draft: %w", err)
		}

		out := renderOutput
		if out == "" {
			if m.Report != "" {
				out = filepath.Join(filepath.Dir(manifestPath), m.Report)
			} else {
				out = c.OutputHTMLPath()
			}
		}
		ps, err := loadPrompts(c)
		if err != nil {
			return err
		}
		r := &report.Renderer{BaseDir: renderBaseDir, EmbedImages: renderEmbed, Prompts: ps}
		if err := r.WriteFile(out, string(draft), m.Charts); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Report written: %s (%d charts)\n", out, len(m.Charts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringVar(&renderManifest, "manifest", "", "chart manifest (default <report_dir>/charts.yaml)")
	renderCmd.Flags().StringVar(&renderDraft, "draft", "", "Markdown draft (default: the one named in the manifest)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "HTML output path")
	renderCmd.Flags().StringVar(&renderBaseDir, "base-dir", "", "directory chart paths are relative to (default: working directory)")
	renderCmd.Flags().BoolVar(&renderEmbed, "embed-images", false, "inline chart images into the HTML")
}
