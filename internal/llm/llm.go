// Package llm talks to chat-completion and embedding services: a local
// Ollama daemon or an OpenAI-compatible API (OpenAI, Groq).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/TobiSchelling/newsdigest/internal/config"
)

const (
	openAIChatURL = "https://api.openai.com/v1/chat/completions"
	groqChatURL   = "https://api.groq.com/openai/v1/chat/completions"

	// GroqModel is the default Groq chat model.
	GroqModel = "llama-3.3-70b-versatile"
)

// Options tune one generation request. Zero MaxTokens leaves the limit to
// the service.
type Options struct {
	MaxTokens   int
	Temperature float64
}

// Provider is the interface for LLM providers.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts Options) (string, error)
	IsConfigured() bool
}

// Embedder is the interface for generating embeddings.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// OllamaProvider is a local Ollama LLM provider.
type OllamaProvider struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewOllamaProvider creates a new Ollama provider.
func NewOllamaProvider(model, baseURL string) *OllamaProvider {
	return &OllamaProvider{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OllamaProvider) Name() string { return "ollama" }

// IsConfigured checks if Ollama is running and the model is pulled.
func (o *OllamaProvider) IsConfigured() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := doJSON(ctx, o.client, http.MethodGet, o.BaseURL+"/api/tags", nil, nil, &result); err != nil {
		return false
	}

	modelBase := strings.SplitN(o.Model, ":", 2)[0]
	for _, m := range result.Models {
		if strings.Contains(m.Name, modelBase) {
			return true
		}
	}
	return false
}

// Generate sends a prompt to Ollama's chat endpoint.
func (o *OllamaProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	options := map[string]any{"temperature": opts.Temperature}
	if opts.MaxTokens > 0 {
		options["num_predict"] = opts.MaxTokens
	}
	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"stream":  false,
		"options": options,
	}

	var result struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	if err := doJSON(ctx, o.client, http.MethodPost, o.BaseURL+"/api/chat", nil, body, &result); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	return result.Message.Content, nil
}

// OllamaEmbedder generates embeddings via the Ollama API.
type OllamaEmbedder struct {
	Model   string
	BaseURL string
	client  *http.Client
}

// NewOllamaEmbedder creates a new Ollama embedder.
func NewOllamaEmbedder(model, baseURL string) *OllamaEmbedder {
	return &OllamaEmbedder{
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Embed returns one vector per input text, in input order.
func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	body := map[string]any{
		"model": e.Model,
		"input": texts,
	}

	var result struct {
		Embeddings [][]float64 `json:"embeddings"`
	}
	if err := doJSON(ctx, e.client, http.MethodPost, e.BaseURL+"/api/embed", nil, body, &result); err != nil {
		return nil, fmt.Errorf("ollama embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d texts", len(result.Embeddings), len(texts))
	}
	return result.Embeddings, nil
}

// OpenAIProvider speaks the OpenAI chat-completions protocol. Groq serves
// the same protocol under a different base URL.
type OpenAIProvider struct {
	Model    string
	APIKey   string
	Endpoint string
	name     string
	client   *http.Client
}

// NewOpenAIProvider creates a provider against api.openai.com.
func NewOpenAIProvider(model, apiKeyEnv string) *OpenAIProvider {
	return &OpenAIProvider{
		Model:    model,
		APIKey:   os.Getenv(apiKeyEnv),
		Endpoint: openAIChatURL,
		name:     "openai",
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

// NewGroqProvider creates a provider against Groq's OpenAI-compatible API.
func NewGroqProvider(model, apiKeyEnv string) *OpenAIProvider {
	if model == "" {
		model = GroqModel
	}
	return &OpenAIProvider{
		Model:    model,
		APIKey:   os.Getenv(apiKeyEnv),
		Endpoint: groqChatURL,
		name:     "groq",
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OpenAIProvider) Name() string { return o.name }

// IsConfigured checks if the API key is set.
func (o *OpenAIProvider) IsConfigured() bool {
	return o.APIKey != ""
}

// Generate sends a single-message chat completion.
func (o *OpenAIProvider) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	if o.APIKey == "" {
		return "", fmt.Errorf("%s API key not configured", o.name)
	}

	body := map[string]any{
		"model": o.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		body["max_tokens"] = opts.MaxTokens
	}
	header := http.Header{"Authorization": {"Bearer " + o.APIKey}}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := doJSON(ctx, o.client, http.MethodPost, o.Endpoint, header, body, &result); err != nil {
		return "", fmt.Errorf("%s: %w", o.name, err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in %s response", o.name)
	}
	return result.Choices[0].Message.Content, nil
}

func doJSON(ctx context.Context, client *http.Client, method, url string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("API returned %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// CreateProvider picks the configured provider, falling back to OpenAI when
// the preferred one is unusable. It returns nil when nothing is available.
func CreateProvider(cfg config.Summarization, log *slog.Logger) Provider {
	log = log.With("component", "llm")

	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		p := NewOllamaProvider(cfg.Model, cfg.OllamaURL)
		if p.IsConfigured() {
			log.Info("using ollama", "model", cfg.Model)
			return p
		}
		log.Warn("ollama not available, trying openai fallback")
	case "groq":
		p := NewGroqProvider(cfg.Model, cfg.APIKeyEnv)
		if p.IsConfigured() {
			log.Info("using groq", "model", p.Model)
			return p
		}
		log.Warn("groq key not set, trying openai fallback", "env", cfg.APIKeyEnv)
	}

	p := NewOpenAIProvider(cfg.OpenAIModel, cfg.OpenAIAPIKeyEnv)
	if p.IsConfigured() {
		log.Info("using openai", "model", cfg.OpenAIModel)
		return p
	}

	log.Warn("no LLM provider available; summaries and translations are disabled")
	return nil
}
