package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/internal/service/workflow"
	"github.com/ymu4/document-processor/pkg/queue"
)

type WorkflowHandler struct {
	workflows workflow.WorkflowService
	queue     queue.Queue
	errs      *errorResponder
}

type MetricsRequest struct {
	Document string `json:"document"`
	Diagram  string `json:"diagram"`
}

func NewWorkflowHandler(workflows workflow.WorkflowService, q queue.Queue, errs *errorResponder) *WorkflowHandler {
	return &WorkflowHandler{workflows: workflows, queue: q, errs: errs}
}

// Metrics recomputes merged metrics for an edited document and diagram.
func (h *WorkflowHandler) Metrics(c *gin.Context) {
	var req MetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "invalid request body", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"metrics": h.workflows.Metrics(req.Document, req.Diagram)})
}

func (h *WorkflowHandler) Optimize(c *gin.Context) {
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "invalid request body", err)
		return
	}

	result, err := h.workflows.Optimize(c.Request.Context(), req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// OptimizeAsync queues the optimization and answers with the task id.
func (h *WorkflowHandler) OptimizeAsync(c *gin.Context) {
	if !h.requireQueue(c) {
		return
	}
	var req models.OptimizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errs.badRequest(c, "invalid request body", err)
		return
	}

	task, err := queue.NewOptimizeTask(req)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	if err := h.queue.Enqueue(c.Request.Context(), task); err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"taskId": task.ID,
		"status": models.StatusPending,
	})
}

func (h *WorkflowHandler) TaskStatus(c *gin.Context) {
	if !h.requireQueue(c) {
		return
	}
	status, err := h.queue.GetTaskStatus(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, status.ProcessingTask())
}

func (h *WorkflowHandler) TaskResult(c *gin.Context) {
	if !h.requireQueue(c) {
		return
	}
	data, err := h.queue.GetResult(c.Request.Context(), c.Param("taskId"))
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *WorkflowHandler) CancelTask(c *gin.Context) {
	if !h.requireQueue(c) {
		return
	}
	taskID := c.Param("taskId")
	if err := h.queue.CancelTask(c.Request.Context(), taskID); err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Task cancelled successfully",
		"taskId":  taskID,
	})
}

func (h *WorkflowHandler) requireQueue(c *gin.Context) bool {
	if h.queue != nil {
		return true
	}
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
		Error:   "QUEUE_DISABLED",
		Message: "asynchronous optimization is not enabled",
	})
	return false
}
