package handlers

import (
	"github.com/ymu4/document-processor/internal/service/document"
	"github.com/ymu4/document-processor/internal/service/workflow"
	"github.com/ymu4/document-processor/pkg/logger"
	"github.com/ymu4/document-processor/pkg/queue"
)

type Handlers struct {
	Health   *HealthHandler
	Document *DocumentHandler
	Workflow *WorkflowHandler
}

// NewHandlers wires every handler. q may be nil when async jobs are disabled.
func NewHandlers(
	documentService document.DocumentService,
	workflowService workflow.WorkflowService,
	q queue.Queue,
	log logger.Logger,
	production bool,
) *Handlers {
	errs := &errorResponder{logger: log, production: production}
	return &Handlers{
		Health:   NewHealthHandler(q != nil),
		Document: NewDocumentHandler(documentService, workflowService, errs),
		Workflow: NewWorkflowHandler(workflowService, q, errs),
	}
}
