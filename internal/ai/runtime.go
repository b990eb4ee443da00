package ai

import "context"

// Runtime is the single capability the pipeline needs from a model backend:
// send a (possibly multimodal) prompt, get text back.
type Runtime interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// Provider identifiers used across the CLI for selection.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)
