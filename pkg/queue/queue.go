package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ymu4/document-processor/config"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
)

const (
	TaskTypeOptimize = "workflow:optimize"

	// QueueName is the asynq queue optimization jobs run on.
	QueueName = "workflow"

	statusKeyPrefix = "task_status:"
	resultKeyPrefix = "task_result:"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrResultNotReady = errors.New("task result is not available")
	ErrTaskFinished   = errors.New("task already finished")
)

// Queue schedules optimization jobs and keeps their status and results.
type Queue interface {
	Enqueue(ctx context.Context, task *Task) error
	GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error)
	CancelTask(ctx context.Context, taskID string) error
	SaveStatus(ctx context.Context, status *TaskStatus) error
	SaveResult(ctx context.Context, taskID string, result []byte) error
	GetResult(ctx context.Context, taskID string) ([]byte, error)
	Close() error
}

// Task is a job as it travels through asynq.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TaskStatus is what is kept in redis about a job.
type TaskStatus struct {
	TaskID    string                  `json:"taskId"`
	Status    models.ProcessingStatus `json:"status"`
	Error     string                  `json:"error,omitempty"`
	Retried   int                     `json:"retried"`
	CreatedAt time.Time               `json:"createdAt"`
	UpdatedAt time.Time               `json:"updatedAt"`
}

// ProcessingTask converts the status into the API model.
func (s *TaskStatus) ProcessingTask() *models.ProcessingTask {
	return &models.ProcessingTask{
		ID:        s.TaskID,
		Status:    s.Status,
		Type:      TaskTypeOptimize,
		Error:     s.Error,
		Retried:   s.Retried,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// Final reports whether the job will not change state any more.
func (s *TaskStatus) Final() bool {
	switch s.Status {
	case models.StatusCompleted, models.StatusFailed, models.StatusCancelled:
		return true
	}
	return false
}

// NewOptimizeTask wraps an optimization request into a job with a fresh id.
func NewOptimizeTask(req models.OptimizeRequest) (*Task, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal optimize request: %w", err)
	}
	return &Task{
		ID:        uuid.New().String(),
		Type:      TaskTypeOptimize,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// DecodeOptimizeTask is the inverse of NewOptimizeTask applied to an asynq payload.
func DecodeOptimizeTask(data []byte) (*Task, models.OptimizeRequest, error) {
	var (
		task Task
		req  models.OptimizeRequest
	)
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, req, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	if task.ID == "" || task.Type != TaskTypeOptimize {
		return nil, req, fmt.Errorf("invalid task: id %q type %q", task.ID, task.Type)
	}
	if err := json.Unmarshal(task.Payload, &req); err != nil {
		return nil, req, fmt.Errorf("failed to unmarshal optimize request: %w", err)
	}
	return &task, req, nil
}

// Config holds the queue settings.
type Config struct {
	RedisAddr string
	RedisDB   int
	MaxRetry  int
	Timeout   time.Duration
	ResultTTL time.Duration
}

func ConfigFrom(c config.QueueConfig) *Config {
	return &Config{
		RedisAddr: c.RedisAddr,
		RedisDB:   c.RedisDB,
		MaxRetry:  c.MaxRetry,
		Timeout:   c.Timeout,
		ResultTTL: c.ResultTTL,
	}
}

// AsynqQueue is the redis-backed Queue.
type AsynqQueue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	redis     *redis.Client
	config    *Config
	logger    logger.Logger
}

func NewAsynqQueue(ctx context.Context, cfg *Config, log logger.Logger) (*AsynqQueue, error) {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}

	return &AsynqQueue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		redis:     rdb,
		config:    cfg,
		logger:    log.Named("queue"),
	}, nil
}

func (q *AsynqQueue) Enqueue(ctx context.Context, task *Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	opts := []asynq.Option{
		asynq.TaskID(task.ID),
		asynq.Queue(QueueName),
		asynq.MaxRetry(q.config.MaxRetry),
		asynq.Retention(q.config.ResultTTL),
	}
	if q.config.Timeout > 0 {
		opts = append(opts, asynq.Timeout(q.config.Timeout))
	}

	if _, err := q.client.EnqueueContext(ctx, asynq.NewTask(task.Type, payload), opts...); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	now := time.Now().UTC()
	if err := q.SaveStatus(ctx, &TaskStatus{TaskID: task.ID, Status: models.StatusPending, CreatedAt: task.CreatedAt, UpdatedAt: now}); err != nil {
		q.logger.Warn("Failed to save initial status", logger.String("taskId", task.ID), logger.Error(err))
	}
	q.logger.Info("Task enqueued", logger.String("taskId", task.ID), logger.String("type", task.Type))
	return nil
}

// GetTaskStatus prefers the status the worker recorded and falls back to asynq.
func (q *AsynqQueue) GetTaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	saved, err := q.savedStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if saved != nil && saved.Final() {
		return saved, nil
	}

	info, err := q.inspector.GetTaskInfo(QueueName, taskID)
	if err != nil {
		if saved != nil {
			return saved, nil
		}
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to inspect task: %w", err)
	}

	status := StatusFromAsynq(info)
	if saved != nil {
		status.CreatedAt = saved.CreatedAt
	}
	return status, nil
}

func (q *AsynqQueue) savedStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	data, err := q.redis.Get(ctx, statusKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get status from redis: %w", err)
	}
	var status TaskStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &status, nil
}

// CancelTask stops a running job or removes a waiting one.
func (q *AsynqQueue) CancelTask(ctx context.Context, taskID string) error {
	info, err := q.inspector.GetTaskInfo(QueueName, taskID)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to inspect task: %w", err)
	}

	switch info.State {
	case asynq.TaskStateCompleted, asynq.TaskStateArchived:
		return ErrTaskFinished
	case asynq.TaskStateActive:
		err = q.inspector.CancelProcessing(taskID)
	default:
		err = q.inspector.DeleteTask(QueueName, taskID)
	}
	if err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	status := &TaskStatus{TaskID: taskID, Status: models.StatusCancelled, Retried: info.Retried, UpdatedAt: time.Now().UTC()}
	if saved, _ := q.savedStatus(ctx, taskID); saved != nil {
		status.CreatedAt = saved.CreatedAt
	}
	if err := q.SaveStatus(ctx, status); err != nil {
		q.logger.Warn("Failed to save cancelled status", logger.String("taskId", taskID), logger.Error(err))
	}
	return nil
}

func (q *AsynqQueue) SaveStatus(ctx context.Context, status *TaskStatus) error {
	data, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	if err := q.redis.Set(ctx, statusKeyPrefix+status.TaskID, data, q.config.ResultTTL).Err(); err != nil {
		return fmt.Errorf("failed to save status: %w", err)
	}
	return nil
}

func (q *AsynqQueue) SaveResult(ctx context.Context, taskID string, result []byte) error {
	if err := q.redis.Set(ctx, resultKeyPrefix+taskID, result, q.config.ResultTTL).Err(); err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

func (q *AsynqQueue) GetResult(ctx context.Context, taskID string) ([]byte, error) {
	data, err := q.redis.Get(ctx, resultKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrResultNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return data, nil
}

func (q *AsynqQueue) Close() error {
	return errors.Join(q.client.Close(), q.inspector.Close(), q.redis.Close())
}

// StatusFromAsynq maps an asynq task state onto a TaskStatus.
func StatusFromAsynq(info *asynq.TaskInfo) *TaskStatus {
	status := &TaskStatus{
		TaskID:    info.ID,
		Status:    models.StatusPending,
		Error:     info.LastErr,
		Retried:   info.Retried,
		UpdatedAt: time.Now().UTC(),
	}

	switch info.State {
	case asynq.TaskStateActive:
		status.Status = models.StatusRunning
	case asynq.TaskStateCompleted:
		status.Status = models.StatusCompleted
		status.UpdatedAt = info.CompletedAt
	case asynq.TaskStateArchived:
		status.Status = models.StatusFailed
		status.UpdatedAt = info.LastFailedAt
	}
	return status
}
