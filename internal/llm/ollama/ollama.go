package ollama

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
	providerName    = "ollama"
	defaultEndpoint = "http://localhost:11434"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (llm.Generator, error) {
		return NewGenerator(cfg), nil
	})
}

// Response is the non-streaming /api/generate reply.
type Response struct {
	Response        string `json:"response"`
	Model           string `json:"model"`
	Done            bool   `json:"done"`
	TotalDuration   int64  `json:"total_duration,omitempty"`
	PromptEvalCount int    `json:"prompt_eval_count,omitempty"`
	EvalCount       int    `json:"eval_count,omitempty"`
	Error           string `json:"error,omitempty"`
}

// Generator talks to a local Ollama server.
type Generator struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

func NewGenerator(cfg *config.ProviderConfig) *Generator {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = "llama3.1"
	}
	return &Generator{
		endpoint:    endpoint,
		model:       model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  llm.NewHTTPClient(cfg.Timeout),
	}
}

func (g *Generator) Name() string { return llm.DisplayName(providerName, g.model) }

func (g *Generator) Generate(ctx context.Context, prompt, system string, opts llm.Options) (string, error) {
	options := map[string]interface{}{}
	if n := opts.MaxTokens; n > 0 {
		options["num_predict"] = n
	} else if g.maxTokens > 0 {
		options["num_predict"] = g.maxTokens
	}
	if t := opts.Temperature; t > 0 {
		options["temperature"] = t
	} else if g.temperature > 0 {
		options["temperature"] = g.temperature
	}

	reqBody := map[string]interface{}{
		"model":   g.model,
		"prompt":  prompt,
		"stream":  false,
		"options": options,
	}
	if system != "" {
		reqBody["system"] = system
	}
	if opts.Task == llm.TaskOptimize {
		reqBody["format"] = "json"
	}

	respBody, err := llm.PostJSON(ctx, g.httpClient, providerName, g.endpoint+"/api/generate", nil, reqBody)
	if err != nil {
		return "", err
	}

	var result Response
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("ollama error: %s", result.Error)
	}
	if strings.TrimSpace(result.Response) == "" {
		return "", fmt.Errorf("empty response from API")
	}
	return result.Response, nil
}
