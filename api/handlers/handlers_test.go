package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ymu4/document-processor/api/handlers"
	"github.com/ymu4/document-processor/api/routes"
	"github.com/ymu4/document-processor/internal/models"
	"github.com/ymu4/document-processor/internal/service/workflow"
	"github.com/ymu4/document-processor/mocks"
	"github.com/ymu4/document-processor/pkg/logger"
	"github.com/ymu4/document-processor/pkg/queue"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router    *gin.Engine
	documents *mocks.MockDocumentService
	workflows *mocks.MockWorkflowService
	queue     *mocks.MockQueue
}

func newTestServer(withQueue, production bool) *testServer {
	ts := &testServer{
		router:    gin.New(),
		documents: new(mocks.MockDocumentService),
		workflows: new(mocks.MockWorkflowService),
	}
	var q queue.Queue
	if withQueue {
		ts.queue = new(mocks.MockQueue)
		q = ts.queue
	}
	h := handlers.NewHandlers(ts.documents, ts.workflows, q, logger.NewNop(), production)
	routes.SetupRoutes(ts.router, h, logger.NewNop(), []string{"*"})
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func multipartRequest(t *testing.T, path string, files map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		fw, err := mw.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, path string, v interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handlers.ErrorResponse {
	t.Helper()
	var resp handlers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func ingestResult() *models.IngestResult {
	return &models.IngestResult{
		BatchID: "batch-1",
		Combined: &models.DocumentRecord{
			FileName: "a.txt",
			Type:     models.TypeText,
			Content:  models.TextContent("Receive request"),
			Parsed:   true,
		},
		Files: []models.FileStatus{{FileName: "a.txt", Parsed: true, Type: models.TypeText}},
	}
}

func TestHealthHandler_Check(t *testing.T) {
	ts := newTestServer(false, false)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","queueEnabled":false}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestID_Propagated(t *testing.T) {
	ts := newTestServer(false, false)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req-42")

	w := ts.do(req)

	assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
}

func TestDocumentHandler_Upload(t *testing.T) {
	ts := newTestServer(false, false)
	ts.documents.On("ProcessBatch", mock.Anything, mock.MatchedBy(func(files []*multipart.FileHeader) bool {
		return len(files) == 1 && files[0].Filename == "a.txt"
	})).Return(ingestResult(), nil)

	w := ts.do(multipartRequest(t, "/api/v1/documents/upload", map[string]string{"a.txt": "Receive request"}))

	require.Equal(t, http.StatusOK, w.Code)
	var got models.IngestResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "batch-1", got.BatchID)
	assert.Len(t, got.Files, 1)
	ts.documents.AssertExpectations(t)
}

func TestDocumentHandler_Upload_NotMultipart(t *testing.T) {
	ts := newTestServer(false, false)

	w := ts.do(jsonRequest(t, http.MethodPost, "/api/v1/documents/upload", map[string]string{"a": "b"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeError(t, w).Error)
	ts.documents.AssertNotCalled(t, "ProcessBatch", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Upload_ValidationError(t *testing.T) {
	ts := newTestServer(false, false)
	ts.documents.On("ProcessBatch", mock.Anything, mock.Anything).Return(nil, &models.ValidationError{
		Code:    models.CodeTooManyFiles,
		Message: "at most 5 files may be uploaded at once, got 6",
	})

	w := ts.do(multipartRequest(t, "/api/v1/documents/upload", map[string]string{"a.txt": "x"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, models.CodeTooManyFiles, resp.Error)
	assert.Contains(t, resp.Message, "at most 5 files")
}

func TestDocumentHandler_Upload_AllFilesFailed(t *testing.T) {
	ts := newTestServer(false, false)
	failures := []models.FileStatus{{FileName: "a.txt", Type: models.TypeError, Error: "empty file"}}
	ts.documents.On("ProcessBatch", mock.Anything, mock.Anything).Return(nil, &models.AllFilesFailedError{Failures: failures})

	w := ts.do(multipartRequest(t, "/api/v1/documents/upload", map[string]string{"a.txt": ""}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "PROCESSING_FAILED", resp.Error)
	assert.Equal(t, failures, resp.Files)
}

func TestDocumentHandler_Analyze(t *testing.T) {
	ts := newTestServer(false, false)
	res := ingestResult()
	ts.documents.On("ProcessBatch", mock.Anything, mock.Anything).Return(res, nil)
	ts.workflows.On("Generate", mock.Anything, res.Combined).Return(&models.GeneratedArtifacts{
		Document: "<h1>Intake</h1>",
		Diagram:  models.DiagramDescription{Diagram: "graph TD\nA-->B", Type: models.DiagramTypeFlow},
		Metrics:  models.ProcessMetrics{TotalSteps: 1, TotalTime: "10 minutes", StepTimes: []models.StepTime{{Step: "1", StepName: "Receive", Time: "10 minutes"}}},
	}, nil)

	w := ts.do(multipartRequest(t, "/api/v1/documents/analyze", map[string]string{"a.txt": "Receive request"}))

	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "batch-1", got["batchId"])
	assert.Equal(t, "<h1>Intake</h1>", got["document"])
	assert.Contains(t, got, "diagram")
	assert.Contains(t, got, "metrics")
}

func TestDocumentHandler_Analyze_ProviderErrorHidesDetailsInProduction(t *testing.T) {
	ts := newTestServer(false, true)
	ts.documents.On("ProcessBatch", mock.Anything, mock.Anything).Return(ingestResult(), nil)
	ts.workflows.On("Generate", mock.Anything, mock.Anything).Return(nil,
		&models.GenerationProviderError{Provider: "openai:gpt-4o-mini", Err: errors.New("secret upstream detail")})

	w := ts.do(multipartRequest(t, "/api/v1/documents/analyze", map[string]string{"a.txt": "x"}))

	assert.Equal(t, http.StatusBadGateway, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "PROVIDER_ERROR", resp.Error)
	assert.Empty(t, resp.Details)
	assert.NotContains(t, w.Body.String(), "secret upstream detail")
}

func TestDocumentHandler_Analyze_NothingToAnalyze(t *testing.T) {
	ts := newTestServer(false, false)
	ts.documents.On("ProcessBatch", mock.Anything, mock.Anything).Return(ingestResult(), nil)
	ts.workflows.On("Generate", mock.Anything, mock.Anything).Return(nil, workflow.ErrNothingToAnalyze)

	w := ts.do(multipartRequest(t, "/api/v1/documents/analyze", map[string]string{"a.txt": "x"}))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "NOTHING_TO_ANALYZE", decodeError(t, w).Error)
}

func TestWorkflowHandler_Metrics(t *testing.T) {
	ts := newTestServer(false, false)
	want := models.ProcessMetrics{TotalSteps: 2, TotalTime: "30 minutes", StepTimes: []models.StepTime{
		{Step: "1", StepName: "A", Time: "10 minutes"},
		{Step: "2", StepName: "B", Time: "20 minutes"},
	}}
	ts.workflows.On("Metrics", "<table></table>", "graph TD").Return(want)

	w := ts.do(jsonRequest(t, http.MethodPost, "/api/v1/workflow/metrics", handlers.MetricsRequest{Document: "<table></table>", Diagram: "graph TD"}))

	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Metrics models.ProcessMetrics `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, want, got.Metrics)
}

func TestWorkflowHandler_Optimize(t *testing.T) {
	ts := newTestServer(false, false)
	req := models.OptimizeRequest{OriginalMetrics: models.ProcessMetrics{TotalSteps: 1, TotalTime: "1 hour"}}
	ts.workflows.On("Optimize", mock.Anything, mock.MatchedBy(func(r models.OptimizeRequest) bool {
		return r.OriginalMetrics.TotalTime == "1 hour"
	})).Return(&models.OptimizeResult{Summary: "faster", TimeSavingsPercent: 30}, nil)

	w := ts.do(jsonRequest(t, http.MethodPost, "/api/v1/workflow/optimize", req))

	require.Equal(t, http.StatusOK, w.Code)
	var got models.OptimizeResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "faster", got.Summary)
	assert.Equal(t, 30, got.TimeSavingsPercent)
}

func TestWorkflowHandler_Optimize_BadBody(t *testing.T) {
	ts := newTestServer(false, false)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflow/optimize", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")

	w := ts.do(req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", decodeError(t, w).Error)
}

func TestWorkflowHandler_Optimize_InternalError(t *testing.T) {
	ts := newTestServer(false, false)
	ts.workflows.On("Optimize", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	w := ts.do(jsonRequest(t, http.MethodPost, "/api/v1/workflow/optimize", models.OptimizeRequest{}))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error)
	assert.Equal(t, "boom", resp.Details)
}

func TestWorkflowHandler_Async_QueueDisabled(t *testing.T) {
	ts := newTestServer(false, false)

	w := ts.do(jsonRequest(t, http.MethodPost, "/api/v1/workflow/optimize/async", models.OptimizeRequest{}))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "QUEUE_DISABLED", decodeError(t, w).Error)
}

func TestWorkflowHandler_OptimizeAsync(t *testing.T) {
	ts := newTestServer(true, false)
	ts.queue.On("Enqueue", mock.Anything, mock.MatchedBy(func(task *queue.Task) bool {
		return task.Type == queue.TaskTypeOptimize && task.ID != ""
	})).Return(nil)

	w := ts.do(jsonRequest(t, http.MethodPost, "/api/v1/workflow/optimize/async", models.OptimizeRequest{}))

	require.Equal(t, http.StatusAccepted, w.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.NotEmpty(t, got["taskId"])
	assert.Equal(t, "pending", got["status"])
}

func TestWorkflowHandler_TaskStatus(t *testing.T) {
	ts := newTestServer(true, false)
	ts.queue.On("GetTaskStatus", mock.Anything, "t1").Return(&queue.TaskStatus{TaskID: "t1", Status: models.StatusRunning}, nil)
	ts.queue.On("GetTaskStatus", mock.Anything, "missing").Return(nil, queue.ErrTaskNotFound)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/workflow/tasks/t1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got models.ProcessingTask
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, models.StatusRunning, got.Status)

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/workflow/tasks/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkflowHandler_TaskResult(t *testing.T) {
	ts := newTestServer(true, false)
	ts.queue.On("GetResult", mock.Anything, "done").Return([]byte(`{"summary":"ok"}`), nil)
	ts.queue.On("GetResult", mock.Anything, "busy").Return(nil, queue.ErrResultNotReady)

	w := ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/workflow/tasks/done/result", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"summary":"ok"}`, w.Body.String())

	w = ts.do(httptest.NewRequest(http.MethodGet, "/api/v1/workflow/tasks/busy/result", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "RESULT_NOT_READY", decodeError(t, w).Error)
}

func TestWorkflowHandler_CancelTask(t *testing.T) {
	ts := newTestServer(true, false)
	ts.queue.On("CancelTask", mock.Anything, "t1").Return(nil)
	ts.queue.On("CancelTask", mock.Anything, "t2").Return(queue.ErrTaskFinished)

	w := ts.do(httptest.NewRequest(http.MethodDelete, "/api/v1/workflow/tasks/t1", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Task cancelled successfully","taskId":"t1"}`, w.Body.String())

	w = ts.do(httptest.NewRequest(http.MethodDelete, "/api/v1/workflow/tasks/t2", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}
