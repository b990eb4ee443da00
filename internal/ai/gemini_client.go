package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GeminiClient calls the Google Generative Language REST API (generateContent).
type GeminiClient struct {
	apiKey  string
	baseURL string
	tr      *transport
}

// NewGeminiClient builds a client against the public v1beta endpoint.
func NewGeminiClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration) *GeminiClient {
	if httpTimeout <= 0 {
		httpTimeout = 180 * time.Second
	}
	return &GeminiClient{
		apiKey:  apiKey,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		tr: &transport{
			httpClient: &http.Client{Timeout: httpTimeout},
			policy:     newRetryPolicy(retryMax, baseDelay, maxDelay, retryPolicy{3, 500 * time.Millisecond, 4 * time.Second}),
			headers:    map[string]string{"x-goog-api-key": apiKey},
		},
	}
}

// NewGeminiClientWithBaseURL is used by tests to point at a local server.
func NewGeminiClientWithBaseURL(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay, maxDelay time.Duration, baseURL string) *GeminiClient {
	c := NewGeminiClient(apiKey, httpTimeout, retryMax, baseDelay, maxDelay)
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

type geminiInlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	ResponseID string `json:"responseId"`
}

// ErrEmptyCandidates is returned when Gemini answers without any candidate text.
var ErrEmptyCandidates = errors.New("gemini returned no candidates")

func toGeminiRequest(req GenerateRequest) geminiRequest {
	var out geminiRequest
	var system []string
	for _, m := range req.Messages {
		if m.Role == "system" {
			system = append(system, m.Text())
			continue
		}
		role := "user"
		if m.Role == "assistant" || m.Role == "model" {
			role = "model"
		}
		gc := geminiContent{Role: role}
		if len(m.Parts) == 0 {
			gc.Parts = []geminiPart{{Text: m.Content}}
		} else {
			for _, p := range m.Parts {
				if p.Type == PartImage {
					gc.Parts = append(gc.Parts, geminiPart{InlineData: &geminiInlineData{MIMEType: p.MIMEType, Data: p.Base64()}})
					continue
				}
				gc.Parts = append(gc.Parts, geminiPart{Text: p.Text})
			}
		}
		out.Contents = append(out.Contents, gc)
	}
	if len(system) > 0 {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: strings.Join(system, "\n\n")}}}
	}
	if req.Temperature > 0 || req.MaxTokens > 0 {
		out.GenerationConfig = &geminiGenerationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxTokens}
	}
	return out
}

// Generate maps the request onto generateContent and the first candidate back
// onto GenerateResponse.
func (c *GeminiClient) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if c.apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is missing")
	}
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	if len(req.Messages) == 0 {
		return nil, errors.New("messages cannot be empty")
	}
	payload, err := json.Marshal(toGeminiRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	model := strings.TrimPrefix(req.Model, "models/")
	endpoint := c.baseURL + "/models/" + url.PathEscape(model) + ":generateContent"

	var gr geminiResponse
	var requestID string
	err = c.tr.postJSON(ctx, endpoint, payload, func(resp *http.Response) error {
		if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		requestID = extractRequestID(resp)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(gr.Candidates) == 0 {
		if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: blocked (%s)", ErrEmptyCandidates, gr.PromptFeedback.BlockReason)
		}
		return nil, ErrEmptyCandidates
	}
	var sb strings.Builder
	for _, p := range gr.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if requestID == "" {
		requestID = gr.ResponseID
	}
	return &GenerateResponse{
		ID:      gr.ResponseID,
		Choices: []Choice{{Message: Message{Role: "assistant", Content: sb.String()}}},
		Usage: Usage{
			PromptTokens:     gr.UsageMetadata.PromptTokenCount,
			CompletionTokens: gr.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      gr.UsageMetadata.TotalTokenCount,
		},
		RequestID: requestID,
	}, nil
}
