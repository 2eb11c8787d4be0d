// Package generator is the Gemini adapter of schedule.Generator. It calls the
// generateContent REST endpoint and decodes the reply into task descriptors;
// validation is left to schedule.Sanitize.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rezkam/focusflow/internal/application/schedule"
	"github.com/rezkam/focusflow/internal/domain"
)

// Defaults for the Gemini client.
const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
	DefaultTimeout = 30 * time.Second

	maxOutputTokens = 1000
	temperature     = 0.1
)

// Config holds configuration for the Gemini client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration

	// HTTPClient overrides the instrumented default, for tests.
	HTTPClient *http.Client
}

// Gemini generates schedules with a Gemini model.
type Gemini struct {
	apiKey   string
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

var _ schedule.Generator = (*Gemini)(nil)

// New creates a Gemini generator.
func New(cfg Config) *Gemini {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}

	return &Gemini{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/models/" + cfg.Model + ":generateContent",
		timeout:  cfg.Timeout,
		http:     cfg.HTTPClient,
	}
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	CandidateCount   int     `json:"candidateCount"`
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// descriptor is the JSON shape the model is asked to produce.
type descriptor struct {
	Title              string   `json:"title"`
	Start              string   `json:"start"`
	End                string   `json:"end"`
	IsFlexible         bool     `json:"isFlexible"`
	Duration           int      `json:"duration"`
	PreferredTimeSlots []string `json:"preferredTimeSlots"`
	EarliestStart      string   `json:"earliestStart"`
	LatestEnd          string   `json:"latestEnd"`
	IsTimeless         bool     `json:"isTimeless"`
}

// Generate implements schedule.Generator.
func (g *Gemini) Generate(ctx context.Context, prompt string, existing []*domain.Task) ([]schedule.Descriptor, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: no API key configured", domain.ErrGeneratorUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
		Contents:          []content{{Parts: []part{{Text: userPrompt(prompt, existing)}}}},
		GenerationConfig: generationConfig{
			Temperature:      temperature,
			MaxOutputTokens:  maxOutputTokens,
			CandidateCount:   1,
			ResponseMIMEType: "application/json",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneratorUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", domain.ErrGeneratorUnavailable, err)
	}

	var out generateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("%w: status %d: undecodable response", domain.ErrGeneratorUnavailable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg = out.Error.Message
		}
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrGeneratorUnavailable, resp.StatusCode, msg)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty reply", domain.ErrGeneratorUnavailable)
	}

	return parseReply(out.Candidates[0].Content.Parts[0].Text)
}

// parseReply decodes the JSON array in a model reply, tolerating markdown fences
// and surrounding prose.
func parseReply(text string) ([]schedule.Descriptor, error) {
	raw := extractJSONArray(text)
	if raw == "" {
		return nil, fmt.Errorf("%w: reply holds no JSON array", domain.ErrGeneratorUnavailable)
	}

	var descs []descriptor
	if err := json.Unmarshal([]byte(raw), &descs); err != nil {
		return nil, fmt.Errorf("%w: decoding reply: %v", domain.ErrGeneratorUnavailable, err)
	}

	out := make([]schedule.Descriptor, len(descs))
	for i, d := range descs {
		out[i] = schedule.Descriptor{
			Title:          d.Title,
			Start:          d.Start,
			End:            d.End,
			IsFlexible:     d.IsFlexible,
			Duration:       d.Duration,
			PreferredSlots: d.PreferredTimeSlots,
			EarliestStart:  d.EarliestStart,
			LatestEnd:      d.LatestEnd,
			IsTimeless:     d.IsTimeless,
		}
	}
	return out, nil
}

func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return ""
	}
	return text[start : end+1]
}
