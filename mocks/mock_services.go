package mocks

import (
	"context"
	"mime/multipart"

	"github.com/stretchr/testify/mock"

	"github.com/ymu4/document-processor/internal/models"
)

// MockDocumentService is a mock implementation of document.DocumentService.
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Ingest(ctx context.Context, uploads []models.Upload) (*models.IngestResult, error) {
	args := m.Called(ctx, uploads)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IngestResult), args.Error(1)
}

func (m *MockDocumentService) ProcessBatch(ctx context.Context, files []*multipart.FileHeader) (*models.IngestResult, error) {
	args := m.Called(ctx, files)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IngestResult), args.Error(1)
}

// MockWorkflowService is a mock implementation of workflow.WorkflowService.
type MockWorkflowService struct {
	mock.Mock
}

func (m *MockWorkflowService) Generate(ctx context.Context, rec *models.DocumentRecord) (*models.GeneratedArtifacts, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GeneratedArtifacts), args.Error(1)
}

func (m *MockWorkflowService) Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.OptimizeResult), args.Error(1)
}

func (m *MockWorkflowService) Metrics(document, diagram string) models.ProcessMetrics {
	args := m.Called(document, diagram)
	return args.Get(0).(models.ProcessMetrics)
}
