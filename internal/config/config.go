package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// PlaceholderAPIKey is the value shipped in sample config files; it is treated as unset.
const PlaceholderAPIKey = "YOUR_API_KEY"

// Global configuration structure.
type Global struct {
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`
	Provider string `mapstructure:"provider" yaml:"provider"`
	Model    string `mapstructure:"model" yaml:"model"`

	// Paths
	TemplatePDF    string `mapstructure:"template_pdf" yaml:"template_pdf"`
	DatasetDir     string `mapstructure:"dataset_dir" yaml:"dataset_dir"`
	ChartDir       string `mapstructure:"chart_dir" yaml:"chart_dir"`
	ReportDir      string `mapstructure:"report_dir" yaml:"report_dir"`
	OutputFilename string `mapstructure:"output_filename" yaml:"output_filename"`
	PromptsFile    string `mapstructure:"prompts_file" yaml:"prompts_file"`

	// Chart generation
	MaxChartsPerDataset int `mapstructure:"max_charts_per_dataset" yaml:"max_charts_per_dataset"`
	MaxRepairAttempts   int `mapstructure:"max_repair_attempts" yaml:"max_repair_attempts"`
	SampleRows          int `mapstructure:"sample_rows" yaml:"sample_rows"`
	ChartDelayMs        int `mapstructure:"chart_delay_ms" yaml:"chart_delay_ms"`
	RepairDelayMs       int `mapstructure:"repair_delay_ms" yaml:"repair_delay_ms"`
	TemplateTokenLimit  int `mapstructure:"template_token_limit" yaml:"template_token_limit"`

	// Python sandbox
	PythonBin      string `mapstructure:"python_bin" yaml:"python_bin"`
	ExecTimeoutSec int    `mapstructure:"exec_timeout_sec" yaml:"exec_timeout_sec"`
	ExecCPUSec     int    `mapstructure:"exec_cpu_sec" yaml:"exec_cpu_sec"`
	ExecMemMB      int    `mapstructure:"exec_mem_mb" yaml:"exec_mem_mb"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	// Upload server
	ServerAddr        string   `mapstructure:"server_addr" yaml:"server_addr"`
	UploadDir         string   `mapstructure:"upload_dir" yaml:"upload_dir"`
	MaxUploadMB       int      `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	MaxConcurrentRuns int      `mapstructure:"max_concurrent_runs" yaml:"max_concurrent_runs"`
	CORSOrigins       []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid configuration: " + strings.Join(e.Problems, "; ")
}

// Validate checks the settings required before a pipeline run may start:
// a real API key, an existing template file and an existing dataset folder.
func (c *Global) Validate() error {
	var problems []string
	if c.APIKey == "" || c.APIKey == PlaceholderAPIKey {
		if !strings.EqualFold(c.Provider, "ollama") {
			problems = append(problems, "api_key is not set (config api_key or CHARTLOOM_API_KEY)")
		}
	}
	if c.TemplatePDF == "" {
		problems = append(problems, "template_pdf is not set")
	} else if info, err := os.Stat(c.TemplatePDF); err != nil {
		problems = append(problems, fmt.Sprintf("template_pdf not found: %s", c.TemplatePDF))
	} else if info.IsDir() {
		problems = append(problems, fmt.Sprintf("template_pdf is a directory: %s", c.TemplatePDF))
	}
	if c.DatasetDir == "" {
		problems = append(problems, "dataset_dir is not set")
	} else if info, err := os.Stat(c.DatasetDir); err != nil || !info.IsDir() {
		problems = append(problems, fmt.Sprintf("dataset_dir is not a directory: %s", c.DatasetDir))
	}
	if c.ChartDir == "" {
		problems = append(problems, "chart_dir is not set")
	}
	if c.ReportDir == "" {
		problems = append(problems, "report_dir is not set")
	}
	if c.OutputFilename == "" {
		problems = append(problems, "output_filename is not set")
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// EnsureOutputDirs creates the chart and report folders if they do not exist.
func (c *Global) EnsureOutputDirs() error {
	for _, dir := range []string{c.ChartDir, c.ReportDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// OutputHTMLPath is the full path of the rendered report.
func (c *Global) OutputHTMLPath() string {
	return filepath.Join(c.ReportDir, c.OutputFilename)
}

// ChartDelay is the pause after each chart execution.
func (c *Global) ChartDelay() time.Duration {
	return time.Duration(c.ChartDelayMs) * time.Millisecond
}

// RepairDelay is the pause between self-repair attempts.
func (c *Global) RepairDelay() time.Duration {
	return time.Duration(c.RepairDelayMs) * time.Millisecond
}

// ExecTimeout bounds one chart execution.
func (c *Global) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSec) * time.Second
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.chartloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := homeConfigDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from .env, env, file, and defaults.
// Precedence: env > config file (cfgFile or ~/.chartloom/config.*) > defaults.
func Load(cfgFile string) (*Global, error) {
	// .env is optional; a missing file is not an error.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("CHARTLOOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		if dir, err := homeConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
		v.SetConfigName("config")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applySections(v, &c)
	if c.APIKey == "" || c.APIKey == PlaceholderAPIKey {
		c.APIKey = providerKeyFromEnv(c.Provider, c.APIKey)
	}
	c.clamp()
	return &c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("provider", "gemini")
	v.SetDefault("model", "gemini-2.5-pro")
	v.SetDefault("template_pdf", "")
	v.SetDefault("dataset_dir", "csv")
	v.SetDefault("chart_dir", "charts")
	v.SetDefault("report_dir", "report")
	v.SetDefault("output_filename", "BaoCaoTongHop_Final.html")
	v.SetDefault("prompts_file", "")
	v.SetDefault("max_charts_per_dataset", 4)
	v.SetDefault("max_repair_attempts", 2)
	v.SetDefault("sample_rows", 10)
	v.SetDefault("chart_delay_ms", 5000)
	v.SetDefault("repair_delay_ms", 1000)
	v.SetDefault("template_token_limit", 0)
	v.SetDefault("python_bin", "python3")
	v.SetDefault("exec_timeout_sec", 120)
	v.SetDefault("exec_cpu_sec", 60)
	v.SetDefault("exec_mem_mb", 2048)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 180)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	// Server defaults
	v.SetDefault("server_addr", ":8000")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("max_upload_mb", 32)
	v.SetDefault("max_concurrent_runs", 1)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// clamp keeps numeric knobs inside the ranges the pipeline supports.
func (c *Global) clamp() {
	if c.MaxChartsPerDataset < 1 {
		c.MaxChartsPerDataset = 1
	}
	if c.MaxChartsPerDataset > 4 {
		c.MaxChartsPerDataset = 4
	}
	if c.MaxRepairAttempts < 1 {
		c.MaxRepairAttempts = 1
	}
	if c.SampleRows <= 0 {
		c.SampleRows = 10
	}
	if c.ChartDelayMs < 0 {
		c.ChartDelayMs = 0
	}
	if c.RepairDelayMs < 0 {
		c.RepairDelayMs = 0
	}
	if c.MaxConcurrentRuns < 1 {
		c.MaxConcurrentRuns = 1
	}
}

// applySections maps the legacy sectioned layout (api.gemini_api_key,
// paths.template_pdf, paths.csv_folder, ...) onto Global. Sectioned keys win
// over defaults.
func applySections(v *viper.Viper, c *Global) {
	pairs := []struct {
		key string
		dst *string
	}{
		{"api.gemini_api_key", &c.APIKey},
		{"paths.template_pdf", &c.TemplatePDF},
		{"paths.csv_folder", &c.DatasetDir},
		{"paths.chart_folder", &c.ChartDir},
		{"paths.report_folder", &c.ReportDir},
		{"paths.output_filename", &c.OutputFilename},
	}
	for _, p := range pairs {
		if v.IsSet(p.key) {
			if s := strings.TrimSpace(v.GetString(p.key)); s != "" {
				*p.dst = s
			}
		}
	}
}

func providerKeyFromEnv(provider, fallback string) string {
	var keys []string
	switch strings.ToLower(provider) {
	case "openrouter":
		keys = []string{"OPENROUTER_API_KEY"}
	default:
		keys = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	}
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return fallback
}

func homeConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".chartloom"), nil
}
