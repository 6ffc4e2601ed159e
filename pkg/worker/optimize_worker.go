package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/pkg/logger"
	"github.com/ymu4/document-processor/pkg/queue"
)

// Optimizer is the part of the workflow service the worker needs.
type Optimizer interface {
	Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error)
}

type OptimizeWorker struct {
	BaseWorker
	optimizer Optimizer
	queue     queue.Queue
}

func NewOptimizeWorker(cfg *Config, opt Optimizer, q queue.Queue, log logger.Logger) *OptimizeWorker {
	if len(cfg.Queues) == 0 {
		cfg.Queues = map[string]int{queue.QueueName: 1}
	}
	log = log.Named("worker")
	w := &OptimizeWorker{
		BaseWorker: newBaseWorker(cfg, log),
		optimizer:  opt,
		queue:      q,
	}
	w.mux.HandleFunc(queue.TaskTypeOptimize, w.HandleOptimize)
	return w
}

// HandleOptimize runs one optimization job and records its outcome.
func (w *OptimizeWorker) HandleOptimize(ctx context.Context, t *asynq.Task) error {
	task, req, err := queue.DecodeOptimizeTask(t.Payload())
	if err != nil {
		w.logger.Error("Invalid optimize task", logger.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	retried, _ := asynq.GetRetryCount(ctx)
	status := &queue.TaskStatus{
		TaskID:    task.ID,
		Status:    models.StatusRunning,
		Retried:   retried,
		CreatedAt: task.CreatedAt,
		UpdatedAt: time.Now().UTC(),
	}
	w.saveStatus(ctx, status)

	w.logger.Info("Processing optimize task", logger.String("taskId", task.ID), logger.Int("retried", retried))
	start := time.Now()

	result, err := w.optimizer.Optimize(ctx, req)
	if err == nil {
		var data []byte
		if data, err = json.Marshal(result); err == nil {
			err = w.queue.SaveResult(ctx, task.ID, data)
		}
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			status.Status = models.StatusCancelled
		} else if w.finalAttempt(ctx, retried) {
			status.Status = models.StatusFailed
		} else {
			status.Status = models.StatusPending
		}
		status.Error = err.Error()
		status.UpdatedAt = time.Now().UTC()
		w.saveStatus(context.WithoutCancel(ctx), status)
		w.logger.Error("Optimize task failed",
			logger.String("taskId", task.ID),
			logger.String("status", string(status.Status)),
			logger.Error(err),
		)
		return err
	}

	status.Status = models.StatusCompleted
	status.UpdatedAt = time.Now().UTC()
	w.saveStatus(ctx, status)
	w.logger.Info("Optimize task completed",
		logger.String("taskId", task.ID),
		logger.Duration("elapsed", time.Since(start)),
		logger.Int("timeSavingsPercent", result.TimeSavingsPercent),
	)
	return nil
}

func (w *OptimizeWorker) finalAttempt(ctx context.Context, retried int) bool {
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	return !ok || retried >= maxRetry
}

func (w *OptimizeWorker) saveStatus(ctx context.Context, status *queue.TaskStatus) {
	if err := w.queue.SaveStatus(ctx, status); err != nil {
		w.logger.Warn("Failed to save task status",
			logger.String("taskId", status.TaskID),
			logger.String("status", string(status.Status)),
			logger.Error(err),
		)
	}
}
