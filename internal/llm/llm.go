package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"
)

// Request is a single text generation call.
type Request struct {
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
	Language    string
}

// Generator produces text for a prompt. Failures are *BackendError values.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Provider is a Generator that can report its readiness and default model.
type Provider interface {
	Generator
	IsConfigured() bool
	DefaultModel() string
}

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string, timeout time.Duration) *OllamaProvider {
	return &OllamaProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OllamaProvider) DefaultModel() string { return o.Model }

// IsConfigured checks if Ollama is running and the model is available.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	log.Warn().Str("model", o.Model).Msg("Ollama model not found")
	return false
}

// Generate sends a prompt to Ollama's generate endpoint and returns the response text.
func (o *OllamaProvider) Generate(ctx context.Context, r Request) (string, error) {
	model := r.Model
	if model == "" {
		model = o.Model
	}
	body := map[string]any{
		"model":  model,
		"prompt": r.Prompt,
		"stream": false,
		"options": map[string]any{
			"num_predict": r.MaxTokens,
			"temperature": r.Temperature,
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return "", malformed("ollama", fmt.Errorf("marshaling request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.BaseURL+"/api/generate", bytes.NewReader(data))
	if err != nil {
		return "", unavailable("ollama", fmt.Errorf("creating request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", unavailable("ollama", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", unavailable("ollama", fmt.Errorf("API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var result struct {
		Response *string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", malformed("ollama", fmt.Errorf("decoding response: %w", err))
	}
	if result.Response == nil {
		return "", malformed("ollama", errors.New(`response has no "response" field`))
	}

	return *result.Response, nil
}

// OpenAIProvider talks to the OpenAI chat API or any compatible endpoint.
type OpenAIProvider struct {
	Model  string
	APIKey string
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider. An empty baseURL means api.openai.com.
func NewOpenAIProvider(model, baseURL, apiKeyEnv string, timeout time.Duration) *OpenAIProvider {
	key := os.Getenv(apiKeyEnv)
	cc := openai.DefaultConfig(key)
	if baseURL != "" {
		cc.BaseURL = baseURL
	}
	cc.HTTPClient = &http.Client{Timeout: timeout}
	return &OpenAIProvider{
		Model:  model,
		APIKey: key,
		client: openai.NewClientWithConfig(cc),
	}
}

func (o *OpenAIProvider) DefaultModel() string { return o.Model }

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends a prompt as a single user message and returns the first choice.
func (o *OpenAIProvider) Generate(ctx context.Context, r Request) (string, error) {
	if o.APIKey == "" {
		return "", unavailable("openai", errors.New("API key not configured"))
	}
	model := r.Model
	if model == "" {
		model = o.Model
	}

	// go-openai omits a zero temperature, which the API reads as 1.0.
	temperature := float32(r.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: r.Prompt},
		},
		Temperature: temperature,
		MaxTokens:   r.MaxTokens,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", unavailable("openai", fmt.Errorf("API returned %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
		}
		return "", unavailable("openai", err)
	}

	if len(resp.Choices) == 0 {
		return "", malformed("openai", errors.New("no choices in response"))
	}

	return resp.Choices[0].Message.Content, nil
}

// CreateProvider creates an LLM provider based on configuration. When Ollama is
// requested but unreachable and an OpenAI key is present, OpenAI is used instead.
// Otherwise the requested provider is returned even if it looks unavailable, so the
// first call fails with a typed error instead of the caller getting nil.
func CreateProvider(provider, model, ollamaURL, openaiModel, openaiBaseURL, apiKeyEnv string, timeout time.Duration) Provider {
	if strings.ToLower(provider) == "ollama" {
		p := NewOllamaProvider(model, ollamaURL, timeout)
		if p.IsConfigured() {
			log.Info().Str("model", model).Msg("Using Ollama")
			return p
		}
		fallback := NewOpenAIProvider(openaiModel, openaiBaseURL, apiKeyEnv, timeout)
		if fallback.IsConfigured() {
			log.Info().Str("model", openaiModel).Msg("Ollama not available, using OpenAI fallback")
			return fallback
		}
		log.Warn().Str("url", ollamaURL).Msg("Ollama not available and no OpenAI key set")
		return p
	}

	p := NewOpenAIProvider(openaiModel, openaiBaseURL, apiKeyEnv, timeout)
	if !p.IsConfigured() {
		log.Warn().Str("env", apiKeyEnv).Msg("OpenAI API key not set")
	} else {
		log.Info().Str("model", openaiModel).Msg("Using OpenAI")
	}
	return p
}
