package ai

import (
	"context"
	"sync"
)

// Meter wraps a Runtime and adds up token usage across calls.
type Meter struct {
	Runtime Runtime

	mu    sync.Mutex
	usage Usage
	calls int
}

// NewMeter returns a Meter around rt.
func NewMeter(rt Runtime) *Meter { return &Meter{Runtime: rt} }

// Generate forwards to the wrapped runtime and records usage on success.
func (m *Meter) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	resp, err := m.Runtime.Generate(ctx, req)
	if err != nil {
		return resp, err
	}
	m.mu.Lock()
	m.calls++
	m.usage.PromptTokens += resp.Usage.PromptTokens
	m.usage.CompletionTokens += resp.Usage.CompletionTokens
	m.usage.TotalTokens += resp.Usage.TotalTokens
	m.mu.Unlock()
	return resp, nil
}

// Totals reports the summed usage and the number of successful calls.
func (m *Meter) Totals() (Usage, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage, m.calls
}
