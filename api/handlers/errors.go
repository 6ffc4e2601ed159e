package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/internal/service/workflow"
	"github.com/ymu4/document-processor/pkg/logger"
	"github.com/ymu4/document-processor/pkg/queue"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message"`
	Files   []models.FileStatus `json:"files,omitempty"`
	Details string              `json:"details,omitempty"`
}

type errorResponder struct {
	logger     logger.Logger
	production bool
}

// respond maps err onto a status code and writes the error body. The wrapped
// error chain is only exposed outside production.
func (r *errorResponder) respond(c *gin.Context, err error) {
	status, code, msg := mapError(err)
	resp := ErrorResponse{Error: code, Message: msg}

	var allFailed *models.AllFilesFailedError
	if errors.As(err, &allFailed) {
		resp.Files = allFailed.Failures
	}
	if !r.production {
		resp.Details = err.Error()
	}

	log := logger.FromContext(c.Request.Context(), r.logger)
	fields := []logger.Field{
		logger.String("path", c.Request.URL.Path),
		logger.Int("status", status),
		logger.Error(err),
	}
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", fields...)
	} else {
		log.Warn("Request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, resp)
}

// badRequest answers a malformed request body.
func (r *errorResponder) badRequest(c *gin.Context, msg string, err error) {
	resp := ErrorResponse{Error: "invalid_request", Message: msg}
	if err != nil && !r.production {
		resp.Details = err.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, resp)
}

func mapError(err error) (status int, code, msg string) {
	var (
		verr      *models.ValidationError
		allFailed *models.AllFilesFailedError
		fileErr   *models.FileAccessError
		provErr   *models.GenerationProviderError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Code, verr.Error()
	case errors.As(err, &allFailed):
		return http.StatusBadRequest, "PROCESSING_FAILED", "none of the uploaded files could be processed"
	case errors.As(err, &fileErr):
		return http.StatusBadRequest, "FILE_ACCESS_ERROR", fileErr.Error()
	case errors.Is(err, workflow.ErrNothingToAnalyze):
		return http.StatusBadRequest, "NOTHING_TO_ANALYZE", err.Error()
	case errors.As(err, &provErr):
		return http.StatusBadGateway, "PROVIDER_ERROR", "the generation provider did not respond successfully"
	case errors.Is(err, queue.ErrTaskNotFound):
		return http.StatusNotFound, "NOT_FOUND", "task not found"
	case errors.Is(err, queue.ErrResultNotReady):
		return http.StatusConflict, "RESULT_NOT_READY", "task has not produced a result yet"
	case errors.Is(err, queue.ErrTaskFinished):
		return http.StatusConflict, "TASK_FINISHED", "task already finished"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}
