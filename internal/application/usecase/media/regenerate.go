package media

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/agrostream/studio-api/internal/application/service"
	"github.com/agrostream/studio-api/internal/domain/media"
	"github.com/agrostream/studio-api/pkg/apperror"
	"github.com/agrostream/studio-api/pkg/logger"
)

// RegenerateFieldUseCase re-runs the AI generation for one metadata field of
// an already-processed item, using its stored transcript.
type RegenerateFieldUseCase struct {
	mediaRepo media.Repository
	generator service.Generator
	logger    logger.Logger
}

func NewRegenerateFieldUseCase(r media.Repository, g service.Generator, log logger.Logger) *RegenerateFieldUseCase {
	return &RegenerateFieldUseCase{mediaRepo: r, generator: g, logger: log}
}

type RegenerateFieldInput struct {
	OwnerID uuid.UUID
	MediaID uuid.UUID
	Field   service.FieldKind
}

type RegenerateFieldOutput struct {
	Field service.FieldKind
	Text  string
}

func (uc *RegenerateFieldUseCase) Execute(ctx context.Context, in RegenerateFieldInput) (*RegenerateFieldOutput, error) {
	switch in.Field {
	case service.FieldTitle, service.FieldDescription, service.FieldSummary:
	default:
		return nil, apperror.NewInvalidInput("unknown field kind", nil)
	}

	item, err := uc.mediaRepo.FindByID(ctx, in.MediaID, in.OwnerID)
	if err != nil {
		return nil, err
	}
	if item.Transcript == "" {
		return nil, apperror.NewInvalidInput("media item has no transcript to generate from", nil)
	}

	text, err := uc.generator.Generate(ctx, item.Transcript, in.Field)
	if err != nil {
		return nil, apperror.NewUpstream("content generator", "field generation failed", err)
	}

	switch in.Field {
	case service.FieldTitle:
		item.Title = text
	case service.FieldDescription:
		item.Description = text
	case service.FieldSummary:
		item.Summary = text
	}
	item.UpdatedAt = time.Now().UTC()

	if err := uc.mediaRepo.Update(ctx, item); err != nil {
		return nil, err
	}
	return &RegenerateFieldOutput{Field: in.Field, Text: text}, nil
}
