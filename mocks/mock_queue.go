package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ymu4/document-processor/pkg/queue"
)

// MockQueue is a mock implementation of queue.Queue.
type MockQueue struct {
	mock.Mock
}

func (m *MockQueue) Enqueue(ctx context.Context, task *queue.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockQueue) GetTaskStatus(ctx context.Context, taskID string) (*queue.TaskStatus, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*queue.TaskStatus), args.Error(1)
}

func (m *MockQueue) CancelTask(ctx context.Context, taskID string) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func (m *MockQueue) SaveStatus(ctx context.Context, status *queue.TaskStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}

func (m *MockQueue) SaveResult(ctx context.Context, taskID string, result []byte) error {
	args := m.Called(ctx, taskID, result)
	return args.Error(0)
}

func (m *MockQueue) GetResult(ctx context.Context, taskID string) ([]byte, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockQueue) Close() error {
	return m.Called().Error(0)
}
