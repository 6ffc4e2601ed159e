package gemini

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
	providerName = "gemini"
	apiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (llm.Generator, error) {
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("gemini: api key is required")
		}
		return NewGenerator(cfg), nil
	})
}

// Generator implements llm.Generator using Google's Gemini API.
type Generator struct {
	apiKey      string
	model       string
	endpoint    string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewGenerator creates a Gemini generator.
func NewGenerator(cfg *config.ProviderConfig) *Generator {
	return newGenerator(cfg, cfg.Endpoint)
}

// NewGeneratorWithEndpoint creates a generator pointing at a custom API endpoint (for testing).
func NewGeneratorWithEndpoint(cfg *config.ProviderConfig, endpoint string) *Generator {
	return newGenerator(cfg, endpoint)
}

func newGenerator(cfg *config.ProviderConfig, endpoint string) *Generator {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
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
	genCfg := map[string]interface{}{
		"maxOutputTokens": g.maxTokens,
	}
	if opts.MaxTokens > 0 {
		genCfg["maxOutputTokens"] = opts.MaxTokens
	}
	if t := opts.Temperature; t > 0 {
		genCfg["temperature"] = t
	} else if g.temperature > 0 {
		genCfg["temperature"] = g.temperature
	}
	if opts.Task == llm.TaskOptimize {
		genCfg["responseMimeType"] = "application/json"
	}

	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"role":  "user",
				"parts": []map[string]interface{}{{"text": prompt}},
			},
		},
		"generationConfig": genCfg,
	}
	if system != "" {
		reqBody["systemInstruction"] = map[string]interface{}{
			"parts": []map[string]interface{}{{"text": system}},
		}
	}

	respBody, err := llm.PostJSON(ctx, g.client, providerName, g.endpoint,
		map[string]string{"x-goog-api-key": g.apiKey}, reqBody)
	if err != nil {
		return "", err
	}
	return parseResponse(respBody)
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
}

func parseResponse(body []byte) (string, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("empty response from API: no candidates")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("empty response from API: no parts")
	}
	return b.String(), nil
}
