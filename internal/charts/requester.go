package charts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/chartloom-cli/internal/ai"
	"github.com/KaramelBytes/chartloom-cli/internal/dataset"
	"github.com/KaramelBytes/chartloom-cli/internal/prompts"
	"github.com/KaramelBytes/chartloom-cli/internal/utils"
)

// MaxChartsLimit is the hard upper bound on charts per dataset.
const MaxChartsLimit = 4

// ErrBadChartResponse wraps any response that is not a JSON array of charts.
var ErrBadChartResponse = errors.New("charting response is not a JSON array of charts")

// Requester asks the model for charting code for one dataset.
type Requester struct {
	Runtime     ai.Runtime
	Model       string
	Prompts     prompts.Set
	ChartDir    string
	MaxCharts   int
	SampleRows  int
	MaxTokens   int
	Temperature float64
	Log         logrus.FieldLogger
}

func (r *Requester) maxCharts() int {
	n := r.MaxCharts
	if n <= 0 || n > MaxChartsLimit {
		n = MaxChartsLimit
	}
	return n
}

// Prompt renders the charting prompt for ds.
func (r *Requester) Prompt(ds *dataset.Dataset) (string, error) {
	rows := r.SampleRows
	if rows <= 0 {
		rows = 10
	}
	if rows > len(ds.Rows) {
		rows = len(ds.Rows)
	}
	return r.Prompts.Charting(prompts.ChartingData{
		FileName:     ds.Name,
		Columns:      ds.ColumnList(),
		Schema:       strings.TrimRight(ds.SchemaSummary(), "\n"),
		Sample:       ds.SampleTable(rows),
		SampleRows:   rows,
		ChartFolder:  strings.TrimRight(utils.ToSlash(r.ChartDir), "/"),
		SafeBaseName: ds.SafeBaseName(),
		MaxCharts:    r.maxCharts(),
	})
}

// Request sends one charting request and parses the answer. It never retries
// a malformed response; the caller skips the dataset on error.
func (r *Requester) Request(ctx context.Context, ds *dataset.Dataset) ([]ChartRequest, error) {
	log := r.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("dataset", ds.Name)
	prompt, err := r.Prompt(ds)
	if err != nil {
		return nil, err
	}
	log.Debug("requesting charting code")
	resp, err := r.Runtime.Generate(ctx, ai.GenerateRequest{
		Model:       r.Model,
		Messages:    []ai.Message{{Role: "user", Content: prompt}},
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("charting request: %w", err)
	}
	reqs, dropped, err := ParseChartResponse(resp.Text(), r.maxCharts(), r.Prompts.UntitledChart)
	if err != nil {
		log.WithField("response", truncate(resp.Text(), 300)).Warn("could not parse charting response")
		return nil, err
	}
	if dropped > 0 {
		log.WithField("dropped", dropped).Warn("ignored chart proposals without code")
	}
	log.WithField("charts", len(reqs)).Info("received charting code")
	return reqs, nil
}

// ParseChartResponse strips whitespace and code fences, decodes the JSON array,
// drops entries without code, fills missing titles and caps the result at
// limit. It reports how many entries were dropped.
func ParseChartResponse(text string, limit int, untitled string) ([]ChartRequest, int, error) {
	cleaned := stripFences(text)
	var raw []struct {
		Title *string `json:"chart_title"`
		Code  string  `json:"python_code"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		// tolerate prose around the array
		start, end := strings.Index(cleaned, "["), strings.LastIndex(cleaned, "]")
		if start < 0 || end <= start {
			return nil, 0, fmt.Errorf("%w: %v", ErrBadChartResponse, err)
		}
		if err2 := json.Unmarshal([]byte(cleaned[start:end+1]), &raw); err2 != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrBadChartResponse, err)
		}
	}
	var out []ChartRequest
	dropped := 0
	for _, item := range raw {
		if strings.TrimSpace(item.Code) == "" {
			dropped++
			continue
		}
		title := untitled
		if item.Title != nil && strings.TrimSpace(*item.Title) != "" {
			title = strings.TrimSpace(*item.Title)
		}
		out = append(out, ChartRequest{Title: title, Code: item.Code})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, dropped, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```JSON", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
