package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ymu4/document-processor/config"
	"github.com/ymu4/document-processor/internal/llm"
	_ "github.com/ymu4/document-processor/internal/llm/claude"
	_ "github.com/ymu4/document-processor/internal/llm/gemini"
	_ "github.com/ymu4/document-processor/internal/llm/ollama"
	_ "github.com/ymu4/document-processor/internal/llm/openai"
	"github.com/ymu4/document-processor/internal/service/workflow"
	"github.com/ymu4/document-processor/pkg/logger"
	"github.com/ymu4/document-processor/pkg/queue"
	"github.com/ymu4/document-processor/pkg/worker"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		panic(err)
	}

	log, err := logger.FromConfig(cfg.Log, logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := llm.New(cfg.LLM, log)
	if err != nil {
		log.Fatal("Failed to initialize generation provider", logger.Error(err))
	}
	wfService := workflow.NewService(gen, log, workflow.ConfigFrom(cfg))

	q, err := queue.NewAsynqQueue(ctx, queue.ConfigFrom(cfg.Queue), log)
	if err != nil {
		log.Fatal("Failed to connect to queue", logger.Error(err))
	}
	defer q.Close()

	w := worker.NewOptimizeWorker(
		worker.ConfigFrom(cfg.Queue, map[string]int{queue.QueueName: 1}),
		wfService,
		q,
		log,
	)
	if err := w.Start(ctx); err != nil {
		log.Fatal("Failed to start worker", logger.Error(err))
	}
	log.Info("Worker started", logger.String("provider", gen.Name()), logger.Int("concurrency", cfg.Queue.Concurrency))

	<-ctx.Done()
	log.Info("Shutting down worker...")
	_ = w.Stop()
	log.Info("Worker stopped")
}
