package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ymu4/document-processor/config"
	"github.com/ymu4/document-processor/internal/llm"
)

const (
	providerName = "claude"
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (llm.Generator, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("claude: api key is required")
		}
		return NewGenerator(cfg), nil
	})
}

// Generator implements llm.Generator using the Anthropic Messages API.
type Generator struct {
	apiKey      string
	model       string
	endpoint    string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewGenerator creates a Claude generator from a provider config.
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
		model = "claude-sonnet-4-20250514"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
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
	maxTokens := g.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	reqBody := map[string]interface{}{
		"model":      g.model,
		"max_tokens": maxTokens,
		"messages": []map[string]interface{}{
			{"role": "user", "content": prompt},
		},
	}
	if system != "" {
		reqBody["system"] = system
	}
	if t := opts.Temperature; t > 0 {
		reqBody["temperature"] = t
	} else if g.temperature > 0 {
		reqBody["temperature"] = g.temperature
	}

	respBody, err := llm.PostJSON(ctx, g.client, providerName, g.endpoint, map[string]string{
		"x-api-key":         g.apiKey,
		"anthropic-version": apiVersion,
	}, reqBody)
	if err != nil {
		return "", err
	}
	return parseResponse(respBody)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func parseResponse(body []byte) (string, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}

	var b strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty response from API")
	}
	return b.String(), nil
}
