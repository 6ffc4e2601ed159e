package ollama_test

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
	"github.com/ymu4/document-processor/internal/llm/ollama"
)

func TestOllamaGenerator_Generate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "llama3.1", reqBody["model"])
		assert.Equal(t, false, reqBody["stream"])
		assert.Equal(t, "json", reqBody["format"])

		_ = json.NewEncoder(w).Encode(ollama.Response{Response: "done", Done: true})
	}))
	defer server.Close()

	g := ollama.NewGenerator(&config.ProviderConfig{Endpoint: server.URL + "/"})
	out, err := g.Generate(context.Background(), "prompt", "", llm.Options{Task: llm.TaskOptimize})

	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestOllamaGenerator_Generate_ErrorField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ollama.Response{Error: "model not found"})
	}))
	defer server.Close()

	g := ollama.NewGenerator(&config.ProviderConfig{Endpoint: server.URL, Model: "missing"})
	_, err := g.Generate(context.Background(), "prompt", "", llm.Options{})

	assert.ErrorContains(t, err, "model not found")
	assert.Equal(t, "ollama:missing", g.Name())
}
