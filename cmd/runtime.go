package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/chartloom-cli/internal/config"
	"github.com/KaramelBytes/chartloom-cli/internal/prompts"
)

// buildRuntime creates the configured AI runtime. baseURL overrides the
// provider endpoint when non-empty.
func buildRuntime(c *cfgpkg.Global, baseURL string) (ai.Runtime, error) {
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	if provider == "" {
		provider = ai.ProviderGemini
	}
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      c.APIKey,
		BaseURL:     baseURL,
		Host:        c.OllamaHost,
	}
	if provider == ai.ProviderOllama && baseURL != "" {
		rc.Host = baseURL
	}
	rt, err := ai.MustRuntime(provider, rc)
	if err != nil {
		return nil, err
	}
	if mi, ok := ai.LookupModel(c.Model); ok && !mi.Vision {
		return nil, fmt.Errorf("model %s cannot read images; pick a vision model (see 'chartloom models')", c.Model)
	}
	return rt, nil
}

// loadPrompts returns the prompt set, overlaid from the configured TOML file.
func loadPrompts(c *cfgpkg.Global) (prompts.Set, error) {
	ps, err := prompts.Load(c.PromptsFile)
	if err != nil {
		return prompts.Set{}, fmt.Errorf("prompts: %w", err)
	}
	return ps, nil
}
