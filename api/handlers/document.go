package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/internal/service/document"
	"github.com/ymu4/document-processor/internal/service/workflow"
)

const filesField = "files"

type DocumentHandler struct {
	documents document.DocumentService
	workflows workflow.WorkflowService
	errs      *errorResponder
}

// AnalyzeResponse is the ingest result together with the generated artifacts.
type AnalyzeResponse struct {
	*models.IngestResult
	*models.GeneratedArtifacts
}

func NewDocumentHandler(documents document.DocumentService, workflows workflow.WorkflowService, errs *errorResponder) *DocumentHandler {
	return &DocumentHandler{documents: documents, workflows: workflows, errs: errs}
}

// Upload parses and combines a batch without calling any provider.
func (h *DocumentHandler) Upload(c *gin.Context) {
	result, ok := h.ingest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, result)
}

// Analyze ingests a batch and generates the process document, diagram and metrics.
func (h *DocumentHandler) Analyze(c *gin.Context) {
	result, ok := h.ingest(c)
	if !ok {
		return
	}

	artifacts, err := h.workflows.Generate(c.Request.Context(), result.Combined)
	if err != nil {
		h.errs.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, AnalyzeResponse{IngestResult: result, GeneratedArtifacts: artifacts})
}

func (h *DocumentHandler) ingest(c *gin.Context) (*models.IngestResult, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		h.errs.badRequest(c, "expected a multipart form with a files field", err)
		return nil, false
	}

	result, err := h.documents.ProcessBatch(c.Request.Context(), form.File[filesField])
	if err != nil {
		h.errs.respond(c, err)
		return nil, false
	}
	return result, true
}
