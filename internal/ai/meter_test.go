package ai

import (
	"context"
	"errors"
	"testing"
)

type usageRuntime struct {
	usage Usage
	err   error
}

func (u usageRuntime) Generate(context.Context, GenerateRequest) (*GenerateResponse, error) {
	if u.err != nil {
		return nil, u.err
	}
	return &GenerateResponse{Usage: u.usage}, nil
}

func TestMeterSumsSuccessfulCalls(t *testing.T) {
	m := NewMeter(usageRuntime{usage: Usage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120}})
	for i := 0; i < 3; i++ {
		if _, err := m.Generate(context.Background(), GenerateRequest{}); err != nil {
			t.Fatal(err)
		}
	}
	u, calls := m.Totals()
	if calls != 3 || u.PromptTokens != 300 || u.CompletionTokens != 60 || u.TotalTokens != 360 {
		t.Fatalf("unexpected totals: %+v calls=%d", u, calls)
	}

	cost, ok := EstimateCostUSD("gemini-2.5-pro", u.PromptTokens, u.CompletionTokens)
	if !ok || cost <= 0 {
		t.Fatalf("expected a cost estimate, got %v %v", cost, ok)
	}
}

func TestMeterIgnoresFailures(t *testing.T) {
	boom := errors.New("boom")
	m := NewMeter(usageRuntime{err: boom})
	if _, err := m.Generate(context.Background(), GenerateRequest{}); !errors.Is(err, boom) {
		t.Fatalf("expected passthrough error, got %v", err)
	}
	if _, calls := m.Totals(); calls != 0 {
		t.Fatalf("failed calls must not count, got %d", calls)
	}
}

func TestModelsSorted(t *testing.T) {
	ms := Models()
	if len(ms) == 0 {
		t.Fatal("empty catalog")
	}
	for i := 1; i < len(ms); i++ {
		if ms[i-1].Name > ms[i].Name {
			t.Fatalf("not sorted at %d: %s > %s", i, ms[i-1].Name, ms[i].Name)
		}
	}
}
