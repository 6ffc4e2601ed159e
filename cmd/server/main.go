package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/ymu4/document-processor/api/handlers"
	"github.com/ymu4/document-processor/api/routes"
	"github.com/ymu4/document-processor/config"
	"github.com/ymu4/document-processor/internal/agent"
	"github.com/ymu4/document-processor/internal/llm"
	_ "github.com/ymu4/document-processor/internal/llm/claude"
	_ "github.com/ymu4/document-processor/internal/llm/gemini"
	_ "github.com/ymu4/document-processor/internal/llm/ollama"
	_ "github.com/ymu4/document-processor/internal/llm/openai"
	"github.com/ymu4/document-processor/internal/service/document"
	"github.com/ymu4/document-processor/internal/service/workflow"
	"github.com/ymu4/document-processor/internal/utils/validator"
	"github.com/ymu4/document-processor/pkg/logger"
	"github.com/ymu4/document-processor/pkg/queue"
	"github.com/ymu4/document-processor/pkg/storage"
)

func main() {
	cfg, err := config.Get()
	if err != nil {
		panic(err)
	}

	log, err := logger.FromConfig(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize storage", logger.Error(err))
	}
	go storage.RunJanitor(ctx, store, cfg.Storage.Retention, cfg.Storage.CleanupInterval, log.Named("janitor"))

	gen, err := llm.New(cfg.LLM, log)
	if err != nil {
		log.Fatal("Failed to initialize generation provider", logger.Error(err))
	}

	docService := document.NewService(
		agent.NewFormatParser(log.Named("parser")),
		validator.NewDocumentValidator(log.Named("validator"), validator.ConfigFrom(cfg.Ingest)),
		store,
		log,
		&document.ServiceConfig{MaxConcurrent: cfg.Ingest.MaxFiles},
	)
	wfService := workflow.NewService(gen, log, workflow.ConfigFrom(cfg))

	var q queue.Queue
	if cfg.Queue.Enabled {
		aq, err := queue.NewAsynqQueue(ctx, queue.ConfigFrom(cfg.Queue), log)
		if err != nil {
			log.Fatal("Failed to initialize queue", logger.Error(err))
		}
		defer aq.Close()
		q = aq
	}

	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handlers.NewHandlers(docService, wfService, q, log, cfg.Server.IsProduction())
	r := gin.New()
	routes.SetupRoutes(r, h, log, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("Server starting",
			logger.String("addr", cfg.Server.Port),
			logger.String("provider", gen.Name()),
			logger.Bool("queueEnabled", q != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
	}
}
