package http

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/agrostream/studio-api/internal/application/usecase/workflow"
	workflowdomain "github.com/agrostream/studio-api/internal/domain/workflow"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
)

type WorkflowHandler struct {
	createUploadUC *workflow.CreateUploadUseCase
	processUC      *workflow.ProcessUploadUseCase
	requestUC      *workflow.RequestWorkflowUseCase
	logger         logger.Logger
}

func NewWorkflowHandler(
	createUploadUC *workflow.CreateUploadUseCase,
	processUC *workflow.ProcessUploadUseCase,
	requestUC *workflow.RequestWorkflowUseCase,
	log logger.Logger,
) *WorkflowHandler {
	return &WorkflowHandler{
		createUploadUC: createUploadUC,
		processUC:      processUC,
		requestUC:      requestUC,
		logger:         log,
	}
}

// CreateUpload hands the browser a pre-authorized direct-upload URL.
func (h *WorkflowHandler) CreateUpload(c *gin.Context) {
	output, err := h.createUploadUC.Execute(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"upload_id":  output.UploadID,
		"upload_url": output.UploadURL,
	})
}

// ProcessUpload runs the full pipeline on the request path and streams
// progress lines back as they happen. The response is always 200; failures
// travel in-band as ERROR lines so the browser can render them mid-stream.
func (h *WorkflowHandler) ProcessUpload(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}

	var req TriggerWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	c.Writer.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	emitter := newLineEmitter(c.Writer)

	input := workflow.ProcessUploadInput{
		UploadID: req.UploadID,
		Filename: req.Filename,
		OwnerID:  ownerID,
	}

	// The request context cancels the pipeline when the browser goes away.
	if _, err := h.processUC.Execute(c.Request.Context(), input, emitter); err != nil {
		// Already reported in-band; the stream has been written to, so a
		// status rewrite is impossible anyway.
		h.logger.Warn("Upload workflow ended with error: " + err.Error())
	}
}

// RequestProcessing enqueues the pipeline for the background worker and
// returns immediately.
func (h *WorkflowHandler) RequestProcessing(c *gin.Context) {
	ownerID, ok := GetOwnerIDFromGinContext(c)
	if !ok {
		c.Error(apperror.NewPermissionDenied("ownerID not found in context"))
		return
	}

	var req TriggerWorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperror.NewInvalidInput("invalid request data", err))
		return
	}

	err := h.requestUC.Execute(c.Request.Context(), workflow.RequestWorkflowInput{
		UploadID: req.UploadID,
		Filename: req.Filename,
		OwnerID:  ownerID,
	})
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "Processing queued"})
}

// lineEmitter writes one encoded event per line and flushes after each so
// the browser sees progress without waiting for the response to finish.
type lineEmitter struct {
	mu sync.Mutex
	w  gin.ResponseWriter
}

func newLineEmitter(w gin.ResponseWriter) *lineEmitter {
	return &lineEmitter{w: w}
}

func (e *lineEmitter) Emit(ev workflowdomain.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.w.Write([]byte(ev.EncodeLine() + "\n")); err != nil {
		return
	}
	if f, ok := e.w.(http.Flusher); ok {
		f.Flush()
	}
}
