package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// SummaryRequest compresses Text into a headline guided by Prompt.
// MinTokens and MaxTokens are soft bounds handed to the backend.
type SummaryRequest struct {
	Text      string
	Prompt    string
	Model     string
	MinTokens int
	MaxTokens int
}

// Summarizer is a sequence-to-sequence text compressor. Failures are *BackendError values.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (string, error)
}

// HFSummarizer calls a Hugging Face style inference endpoint
// (POST {base}/models/{model} -> [{"summary_text": "..."}]).
type HFSummarizer struct {
	Model   string
	BaseURL string
	token   string
	client  *http.Client
}

// NewHFSummarizer creates a summarizer for the given model and endpoint.
func NewHFSummarizer(model, baseURL, tokenEnv string, timeout time.Duration) *HFSummarizer {
	return &HFSummarizer{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		token:   os.Getenv(tokenEnv),
		client:  &http.Client{Timeout: timeout},
	}
}

func (h *HFSummarizer) Summarize(ctx context.Context, r SummaryRequest) (string, error) {
	model := r.Model
	if model == "" {
		model = h.Model
	}

	inputs := r.Text
	if r.Prompt != "" {
		inputs = r.Prompt + "\n\n" + r.Text
	}
	body := map[string]any{
		"inputs": inputs,
		"parameters": map[string]any{
			"min_length": r.MinTokens,
			"max_length": r.MaxTokens,
		},
		"options": map[string]any{"wait_for_model": true},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", malformed("summarizer", fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.BaseURL+"/models/"+model, bytes.NewReader(data))
	if err != nil {
		return "", unavailable("summarizer", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return "", unavailable("summarizer", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", unavailable("summarizer", fmt.Errorf("reading response: %w", err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", unavailable("summarizer", fmt.Errorf("API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var result []struct {
		SummaryText   *string `json:"summary_text"`
		GeneratedText *string `json:"generated_text"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", malformed("summarizer", fmt.Errorf("decoding response: %w", err))
	}
	if len(result) == 0 {
		return "", malformed("summarizer", errors.New("empty result list"))
	}

	switch {
	case result[0].SummaryText != nil:
		return CleanHeadline(*result[0].SummaryText), nil
	case result[0].GeneratedText != nil:
		return CleanHeadline(*result[0].GeneratedText), nil
	default:
		return "", malformed("summarizer", errors.New(`result has no "summary_text" field`))
	}
}

// GeneratorSummarizer asks a text Generator for the headline. MaxTokens
// becomes the generation budget; MinTokens has no backend equivalent.
type GeneratorSummarizer struct {
	gen         Generator
	temperature float64
}

// NewGeneratorSummarizer wraps gen as a Summarizer.
func NewGeneratorSummarizer(gen Generator, temperature float64) *GeneratorSummarizer {
	return &GeneratorSummarizer{gen: gen, temperature: temperature}
}

func (g *GeneratorSummarizer) Summarize(ctx context.Context, r SummaryRequest) (string, error) {
	prompt := r.Text
	if r.Prompt != "" {
		prompt = r.Prompt + "\n\n" + r.Text
	}
	text, err := g.gen.Generate(ctx, Request{
		Prompt:      prompt,
		Model:       r.Model,
		Temperature: g.temperature,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	return CleanHeadline(text), nil
}
