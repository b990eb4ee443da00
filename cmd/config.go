package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/chartloom-cli/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set ChartLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "api_key: %s\n", mask(c.APIKey))
		fmt.Fprintf(out, "provider: %s\n", c.Provider)
		fmt.Fprintf(out, "model: %s\n", c.Model)
		fmt.Fprintf(out, "template_pdf: %s\n", c.TemplatePDF)
		fmt.Fprintf(out, "dataset_dir: %s\n", c.DatasetDir)
		fmt.Fprintf(out, "chart_dir: %s\n", c.ChartDir)
		fmt.Fprintf(out, "report: %s\n", c.OutputHTMLPath())
		if c.PromptsFile != "" {
			fmt.Fprintf(out, "prompts_file: %s\n", c.PromptsFile)
		}
		fmt.Fprintf(out, "max_charts_per_dataset: %d\n", c.MaxChartsPerDataset)
		fmt.Fprintf(out, "max_repair_attempts: %d\n", c.MaxRepairAttempts)
		fmt.Fprintf(out, "chart_delay_ms: %d\n", c.ChartDelayMs)
		fmt.Fprintf(out, "python_bin: %s (timeout %ds, cpu %ds, mem %dMB)\n", c.PythonBin, c.ExecTimeoutSec, c.ExecCPUSec, c.ExecMemMB)
		if c.Provider == ai.ProviderOllama {
			fmt.Fprintf(out, "ollama_host: %s\n", c.OllamaHost)
		}
		fmt.Fprintf(out, "server_addr: %s\n", c.ServerAddr)
		if err := c.Validate(); err != nil {
			fmt.Fprintf(out, "⚠ %v\n", err)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		c, err := requireConfig()
		if err != nil {
			return err
		}
		if err := setConfigValue(c, key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(c, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	strs := map[string]*string{
		"api_key":         &c.APIKey,
		"model":           &c.Model,
		"template_pdf":    &c.TemplatePDF,
		"dataset_dir":     &c.DatasetDir,
		"chart_dir":       &c.ChartDir,
		"report_dir":      &c.ReportDir,
		"output_filename": &c.OutputFilename,
		"prompts_file":    &c.PromptsFile,
		"python_bin":      &c.PythonBin,
		"ollama_host":     &c.OllamaHost,
		"server_addr":     &c.ServerAddr,
		"upload_dir":      &c.UploadDir,
		"log_level":       &c.LogLevel,
		"log_format":      &c.LogFormat,
	}
	ints := map[string]*int{
		"max_charts_per_dataset": &c.MaxChartsPerDataset,
		"max_repair_attempts":    &c.MaxRepairAttempts,
		"sample_rows":            &c.SampleRows,
		"chart_delay_ms":         &c.ChartDelayMs,
		"repair_delay_ms":        &c.RepairDelayMs,
		"exec_timeout_sec":       &c.ExecTimeoutSec,
		"max_upload_mb":          &c.MaxUploadMB,
		"max_concurrent_runs":    &c.MaxConcurrentRuns,
	}
	if p, ok := strs[key]; ok {
		*p = val
		return nil
	}
	if p, ok := ints[key]; ok {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		if key == "max_charts_per_dataset" && (i < 1 || i > 4) {
			return fmt.Errorf("max_charts_per_dataset must be between 1 and 4")
		}
		*p = i
		return nil
	}
	switch key {
	case "provider":
		v := strings.ToLower(val)
		if _, ok := ai.GetRuntime(v, ai.RuntimeConfig{}); !ok {
			return fmt.Errorf("invalid provider: %s (use %s)", val, strings.Join(ai.Providers(), ", "))
		}
		c.Provider = v
	case "cors_origins":
		c.CORSOrigins = strings.Split(val, ",")
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
