package llm

import (
	"context"
	"fmt"
	"sync"

	"github.com/ymu4/document-processor/config"
)

// Task names the kind of output a prompt asks for.
type Task string

const (
	TaskDocument Task = "document"
	TaskDiagram  Task = "diagram"
	TaskOptimize Task = "optimize"
)

// Options tune a single generation call. Zero values fall back to provider defaults.
type Options struct {
	Task        Task
	MaxTokens   int
	Temperature float64
}

// Generator produces free text from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt, system string, opts Options) (string, error)
	Name() string
}

// ProviderFactory creates a Generator from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (Generator, error)

var (
	mu        sync.RWMutex
	providers = map[string]ProviderFactory{}
)

// RegisterProvider registers a generator factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	mu.Lock()
	defer mu.Unlock()
	providers[name] = factory
}

// NewGenerator creates a Generator using the factory registered for cfg.Provider.
func NewGenerator(cfg *config.ProviderConfig) (Generator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil provider config")
	}
	mu.RLock()
	factory, ok := providers[cfg.Provider]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown generation provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

func init() {
	RegisterProvider(StubProvider, func(cfg *config.ProviderConfig) (Generator, error) {
		return NewStubGenerator(), nil
	})
}

// DisplayName renders a provider and model as "provider:model".
func DisplayName(provider, model string) string {
	if model == "" {
		return provider
	}
	return provider + ":" + model
}
