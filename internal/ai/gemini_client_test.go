package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestGeminiGenerateMapsRequestAndResponse(t *testing.T) {
	var captured geminiRequest
	var gotPath, gotKey string
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("X-Goog-Request-Id", "g-1")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{"role": "model", "parts": []any{
					map[string]any{"text": "[{\"chart_title\":"},
					map[string]any{"text": "\"A\"}]"},
				}},
			}},
			"usageMetadata": map[string]any{"promptTokenCount": 7, "candidatesTokenCount": 3, "totalTokenCount": 10},
		})
	}))
	defer srv.Close()

	c := NewGeminiClientWithBaseURL("secret", 2*time.Second, 1, 0, 0, srv.URL)
	req := GenerateRequest{
		Model: "gemini-2.5-pro",
		Messages: []Message{
			{Role: "system", Content: "be brief"},
			UserMessage("charts", ImagePart("image/jpeg", []byte("xyz"))),
		},
		Temperature: 0.2,
	}
	resp, err := c.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if gotPath != "/models/gemini-2.5-pro:generateContent" {
		t.Fatalf("unexpected path %s", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("api key header = %q", gotKey)
	}
	if resp.Text() != `[{"chart_title":"A"}]` {
		t.Fatalf("parts not joined: %q", resp.Text())
	}
	if resp.Usage.TotalTokens != 10 || resp.RequestID != "g-1" {
		t.Fatalf("unexpected meta: %+v", resp)
	}
	if captured.SystemInstruction == nil || captured.SystemInstruction.Parts[0].Text != "be brief" {
		t.Fatalf("system instruction missing: %+v", captured.SystemInstruction)
	}
	if len(captured.Contents) != 1 || len(captured.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected contents %+v", captured.Contents)
	}
	inline := captured.Contents[0].Parts[1].InlineData
	if inline == nil || inline.MIMEType != "image/jpeg" || inline.Data != "eHl6" {
		t.Fatalf("unexpected inline data %+v", inline)
	}
}

func TestGeminiBlockedPrompt(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"promptFeedback": map[string]any{"blockReason": "SAFETY"}})
	}))
	defer srv.Close()

	c := NewGeminiClientWithBaseURL("k", 2*time.Second, 1, 0, 0, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "gemini-2.5-flash", Messages: []Message{{Role: "user", Content: "x"}}})
	if !errors.Is(err, ErrEmptyCandidates) {
		t.Fatalf("expected ErrEmptyCandidates, got %v", err)
	}
}

func TestGeminiInvalidKeyIsAuthError(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{
			"code": 400, "message": "API key not valid. Please pass a valid API key.", "status": "INVALID_ARGUMENT",
		}})
	}))
	defer srv.Close()

	c := NewGeminiClientWithBaseURL("bad", 2*time.Second, 1, 0, 0, srv.URL)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "gemini-2.5-pro", Messages: []Message{{Role: "user", Content: "x"}}})
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T %v", err, err)
	}
	if ae.Code != "INVALID_ARGUMENT" {
		t.Fatalf("status not captured as code: %q", ae.Code)
	}
}

func TestGeminiRequiresKey(t *testing.T) {
	c := NewGeminiClient("", time.Second, 1, 0, 0)
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: []Message{{Role: "user", Content: "x"}}}); err == nil {
		t.Fatal("expected missing key error")
	}
}
