package workflow

import (
	"context"

	"github.com/google/uuid"

	"github.com/agrostream/studio-api/adapters/event"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
)

// RequestWorkflowUseCase enqueues a processing run for the worker instead of
// executing it on the request path. The browser can disconnect; the upload
// still gets transcribed and enriched.
type RequestWorkflowUseCase struct {
	events *event.KafkaProducerClient
	logger logger.Logger
}

func NewRequestWorkflowUseCase(events *event.KafkaProducerClient, log logger.Logger) *RequestWorkflowUseCase {
	return &RequestWorkflowUseCase{events: events, logger: log}
}

type RequestWorkflowInput struct {
	UploadID string
	Filename string
	OwnerID  uuid.UUID
}

func (uc *RequestWorkflowUseCase) Execute(ctx context.Context, input RequestWorkflowInput) error {
	if input.UploadID == "" {
		return apperror.NewInvalidInput("upload_id is required", nil)
	}
	payload := event.WorkflowRequestPayload{
		UploadID: input.UploadID,
		Filename: input.Filename,
		OwnerID:  input.OwnerID,
	}
	if err := uc.events.PublishWorkflowRequest(ctx, payload); err != nil {
		return apperror.NewInternal("failed to enqueue workflow request", err)
	}
	return nil
}
