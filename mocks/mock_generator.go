package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ymu4/document-processor/internal/llm"
)

// MockGenerator is a mock implementation of llm.Generator.
type MockGenerator struct {
	mock.Mock
	ProviderName string
}

func (m *MockGenerator) Generate(ctx context.Context, prompt, system string, opts llm.Options) (string, error) {
	args := m.Called(ctx, prompt, system, opts)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}
