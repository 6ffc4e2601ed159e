package claude_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/config"
	"github.com/ymu4/document-processor/internal/llm"
	"github.com/ymu4/document-processor/internal/llm/claude"
)

func newTestGenerator(serverURL string) *claude.Generator {
	return claude.NewGeneratorWithEndpoint(&config.ProviderConfig{
		Provider: "claude",
		APIKey:   "test-api-key",
		Model:    "claude-sonnet-4-20250514",
	}, serverURL)
}

func TestClaudeGenerator_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-api-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "claude-sonnet-4-20250514", reqBody["model"])
		assert.Equal(t, float64(8192), reqBody["max_tokens"])
		assert.Equal(t, "you write process documents", reqBody["system"])
		assert.Len(t, reqBody["messages"], 1)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"content": []map[string]interface{}{
				{"type": "text", "text": "# Process"},
				{"type": "text", "text": "\nStep 1: Intake (10 minutes)"},
			},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	out, err := newTestGenerator(server.URL).Generate(context.Background(), "prompt", "you write process documents", llm.Options{})

	require.NoError(t, err)
	assert.Equal(t, "# Process\nStep 1: Intake (10 minutes)", out)
}

func TestClaudeGenerator_Generate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"type":"api_error"}}`))
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "prompt", "", llm.Options{})
	assert.ErrorContains(t, err, "status 500")
}

func TestClaudeGenerator_Generate_NoText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content":[]}`))
	}))
	defer server.Close()

	_, err := newTestGenerator(server.URL).Generate(context.Background(), "prompt", "", llm.Options{})
	assert.ErrorContains(t, err, "empty response")
}
