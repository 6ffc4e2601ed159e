package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ymu4/document-processor/config"
	"github.com/ymu4/document-processor/internal/llm"
)

const (
	providerName = "openai"
	apiURL       = "https://api.openai.com/v1/chat/completions"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (llm.Generator, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: api key is required")
		}
		return NewGenerator(cfg), nil
	})
}

// Generator implements llm.Generator using the OpenAI chat completions API.
type Generator struct {
	apiKey      string
	model       string
	endpoint    string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewGenerator creates an OpenAI generator from a provider config.
func NewGenerator(cfg *config.ProviderConfig) *Generator {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	return newGenerator(cfg, endpoint)
}

// NewGeneratorWithEndpoint creates a generator pointing at a custom API endpoint (for testing).
func NewGeneratorWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Generator {
	return newGenerator(cfg, endpoint)
}

func newGenerator(cfg *config.ProviderConfig, endpoint string) *Generator {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}
	return &Generator{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    endpoint,
		maxTokens:   maxTokens,
		temperature: cfg.Temperature,
		client:      llm.NewHTTPClient(cfg.Timeout),
	}
}

func (g *Generator) Name() string { return llm.DisplayName(providerName, g.model) }

func (g *Generator) Generate(ctx context.Context, prompt, system string, opts llm.Options) (string, error) {
	messages := []map[string]interface{}{}
	if system != "" {
		messages = append(messages, map[string]interface{}{"role": "system", "content": system})
	}
	messages = append(messages, map[string]interface{}{"role": "user", "content": prompt})

	reqBody := map[string]interface{}{
		"model":       g.model,
		"messages":    messages,
		"max_tokens":  pick(opts.MaxTokens, g.maxTokens),
		"temperature": pickFloat(opts.Temperature, g.temperature),
	}

	respBody, err := llm.PostJSON(ctx, g.client, providerName, g.endpoint,
		map[string]string{"Authorization": "Bearer " + g.apiKey}, reqBody)
	if err != nil {
		return "", err
	}
	return parseResponse(respBody)
}

// apiResponse models the chat completions response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func parseResponse(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("openai error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("empty response from API")
	}
	return resp.Choices[0].Message.Content, nil
}

func pick(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func pickFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
