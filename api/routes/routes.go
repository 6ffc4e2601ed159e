package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ymu4/document-processor/api/handlers"
	"github.com/ymu4/document-processor/api/middleware"
	"github.com/ymu4/document-processor/pkg/logger"
)

// SetupRoutes registers middleware and every API route on r.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, log logger.Logger, allowedOrigins []string) {
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(allowedOrigins))

	v1 := r.Group("/api/v1")
	v1.GET("/health", h.Health.Check)

	docs := v1.Group("/documents")
	{
		docs.POST("/upload", h.Document.Upload)
		docs.POST("/analyze", h.Document.Analyze)
	}

	wf := v1.Group("/workflow")
	{
		wf.POST("/metrics", h.Workflow.Metrics)
		wf.POST("/optimize", h.Workflow.Optimize)
		wf.POST("/optimize/async", h.Workflow.OptimizeAsync)
		wf.GET("/tasks/:taskId", h.Workflow.TaskStatus)
		wf.GET("/tasks/:taskId/result", h.Workflow.TaskResult)
		wf.DELETE("/tasks/:taskId", h.Workflow.CancelTask)
	}
}
