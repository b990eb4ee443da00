package ai

import "sort"

// Model metadata and simple pricing helpers for the run summary.
// Prices are illustrative and should be verified against provider docs.

type ModelInfo struct {
	Name          string
	ContextTokens int     // approximate context window
	InputPerK     float64 // USD per 1K input tokens
	OutputPerK    float64 // USD per 1K output tokens
	Vision        bool
}

var models = map[string]ModelInfo{
	"gemini-2.5-pro":              {Name: "gemini-2.5-pro", ContextTokens: 1048576, InputPerK: 0.00125, OutputPerK: 0.01, Vision: true},
	"gemini-2.5-flash":            {Name: "gemini-2.5-flash", ContextTokens: 1048576, InputPerK: 0.0003, OutputPerK: 0.0025, Vision: true},
	"gemini-1.5-pro":              {Name: "gemini-1.5-pro", ContextTokens: 2097152, InputPerK: 0.00125, OutputPerK: 0.005, Vision: true},
	"gemini-1.5-flash":            {Name: "gemini-1.5-flash", ContextTokens: 1048576, InputPerK: 0.000075, OutputPerK: 0.0003, Vision: true},
	"google/gemini-2.5-pro":       {Name: "google/gemini-2.5-pro", ContextTokens: 1048576, InputPerK: 0.00125, OutputPerK: 0.01, Vision: true},
	"google/gemini-2.5-flash":     {Name: "google/gemini-2.5-flash", ContextTokens: 1048576, InputPerK: 0.0003, OutputPerK: 0.0025, Vision: true},
	"openai/gpt-4o":               {Name: "openai/gpt-4o", ContextTokens: 128000, InputPerK: 0.005, OutputPerK: 0.015, Vision: true},
	"openai/gpt-4o-mini":          {Name: "openai/gpt-4o-mini", ContextTokens: 128000, InputPerK: 0.0006, OutputPerK: 0.0024, Vision: true},
	"anthropic/claude-3.5-sonnet": {Name: "anthropic/claude-3.5-sonnet", ContextTokens: 200000, InputPerK: 0.003, OutputPerK: 0.015, Vision: true},
	"llava:latest":                {Name: "llava:latest", ContextTokens: 4096, Vision: true},
	"llama3.2-vision:latest":      {Name: "llama3.2-vision:latest", ContextTokens: 131072, Vision: true},
	"qwen2.5-coder:7b":            {Name: "qwen2.5-coder:7b", ContextTokens: 32768},
}

// LookupModel returns ModelInfo and ok flag.
func LookupModel(name string) (ModelInfo, bool) {
	mi, ok := models[name]
	return mi, ok
}

// EstimateCostUSD estimates total cost in USD for given tokens using model pricing.
// If the model is unknown, returns 0 and ok=false.
func EstimateCostUSD(model string, promptTokens, completionTokens int) (float64, bool) {
	mi, ok := LookupModel(model)
	if !ok {
		return 0, false
	}
	inCost := (float64(promptTokens) / 1000.0) * mi.InputPerK
	outCost := (float64(completionTokens) / 1000.0) * mi.OutputPerK
	return inCost + outCost, true
}

// Models returns the catalog sorted by name.
func Models() []ModelInfo {
	out := make([]ModelInfo, 0, len(models))
	for _, mi := range models {
		out = append(out, mi)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
