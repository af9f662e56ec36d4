package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/agrostream/studio-api/internal/domain/workflow"
)

func TestLineEmitter_WritesOneLinePerEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	emitter := newLineEmitter(c.Writer)
	emitter.Emit(workflow.Step(workflow.StepProcessing))
	emitter.Emit(workflow.Info("Checking upload status with the video host..."))
	emitter.Emit(workflow.Success("Video and master file ready."))
	emitter.Emit(workflow.Errorf("Transcription failed: %v", "timeout"))
	emitter.Emit(workflow.Step(workflow.StepDone))

	body := rec.Body.String()
	lines := strings.Split(strings.TrimSuffix(body, "\n"), "\n")
	assert.Equal(t, []string{
		"STEP:1",
		"Checking upload status with the video host...",
		"SUCCESS:Video and master file ready.",
		"ERROR:Transcription failed: timeout",
		"STEP:4",
	}, lines)

	// Every line must survive a decode by the browser-side protocol.
	for _, line := range lines {
		decoded := workflow.ParseLine(line)
		assert.Equal(t, line, decoded.EncodeLine())
	}

	assert.True(t, rec.Flushed)
}
